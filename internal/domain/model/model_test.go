package model_test

import (
	"errors"
	"math"
	"testing"

	model "github.com/okian/gliderindex/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestClassSet(t *testing.T) {
	convey.Convey("Given a class set built from several flags", t, func() {
		set := model.NewClassSet(model.ClassStandard, model.Class15m, "", model.Class15m)

		convey.Convey("Then it should contain every non-empty flag once", func() {
			convey.So(set.Len(), convey.ShouldEqual, 2)
			convey.So(set.Has(model.Class15m), convey.ShouldBeTrue)
			convey.So(set.Has(model.ClassStandard), convey.ShouldBeTrue)
			convey.So(set.Has(model.ClassClub), convey.ShouldBeFalse)
			convey.So(set.Has(""), convey.ShouldBeFalse)
		})

		convey.Convey("And Flags should be sorted", func() {
			convey.So(set.Flags(), convey.ShouldResemble, []model.ClassFlag{model.Class15m, model.ClassStandard})
		})

		convey.Convey("And it should encode as a sorted JSON array", func() {
			b, err := set.MarshalJSON()
			convey.So(err, convey.ShouldBeNil)
			convey.So(string(b), convey.ShouldEqual, `["15","Standard"]`)
		})
	})

	convey.Convey("Given the zero class set", t, func() {
		var set model.ClassSet

		convey.Convey("Then it should behave as empty", func() {
			convey.So(set.Len(), convey.ShouldEqual, 0)
			convey.So(set.Has(model.ClassOpen), convey.ShouldBeFalse)
			convey.So(set.Flags(), convey.ShouldBeEmpty)
		})
	})
}

func TestModel_WithHandicap(t *testing.T) {
	convey.Convey("Given a model", t, func() {
		m := model.Model{ID: 7, Name: "LS8", Handicap: 114, Classes: model.NewClassSet(model.Class15m), Highlight: true}

		convey.Convey("When deriving a rescaled copy", func() {
			derived := m.WithHandicap(1.0)

			convey.Convey("Then identity fields should be preserved", func() {
				convey.So(derived.ID, convey.ShouldEqual, 7)
				convey.So(derived.Name, convey.ShouldEqual, "LS8")
				convey.So(derived.Highlight, convey.ShouldBeTrue)
				convey.So(derived.Classes.Has(model.Class15m), convey.ShouldBeTrue)
				convey.So(derived.Handicap, convey.ShouldEqual, 1.0)
			})

			convey.Convey("And the original should be untouched", func() {
				convey.So(m.Handicap, convey.ShouldEqual, 114)
			})
		})
	})
}

func TestModel_Validate(t *testing.T) {
	convey.Convey("Given models with various field values", t, func() {
		convey.Convey("When the model is well formed", func() {
			err := model.Model{Name: "Discus", Handicap: 108}.Validate()
			convey.So(err, convey.ShouldBeNil)
		})

		convey.Convey("When the name is empty", func() {
			err := model.Model{Handicap: 108}.Validate()
			convey.So(errors.Is(err, model.ErrInvalidModel), convey.ShouldBeTrue)
		})

		convey.Convey("When the handicap is not positive or not finite", func() {
			for _, h := range []float64{0, -1, math.NaN(), math.Inf(1)} {
				err := model.Model{Name: "Ka 6", Handicap: h}.Validate()
				convey.So(errors.Is(err, model.ErrInvalidModel), convey.ShouldBeTrue)
			}
		})

		convey.Convey("When validating a list with one bad entry", func() {
			err := model.ValidateAll([]model.Model{
				{Name: "ASW 20", Handicap: 110},
				{Name: "", Handicap: 100},
			})

			convey.Convey("Then the error should name the position", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "model 1")
				convey.So(errors.Is(err, model.ErrInvalidModel), convey.ShouldBeTrue)
			})
		})
	})
}
