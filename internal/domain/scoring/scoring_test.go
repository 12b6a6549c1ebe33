package scoring_test

import (
	"errors"
	"testing"

	model "github.com/okian/hackjudge/internal/domain/model"
	scoring "github.com/okian/hackjudge/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func TestWeightedScorer_JudgeTotal(t *testing.T) {
	Convey("Given a weighted scorer and two equally weighted criteria", t, func() {
		scorer := scoring.NewWeightedScorer()
		criteria := []model.Criterion{
			{Name: "Innovation", MaxScore: 10, Weight: 1},
			{Name: "Impact", MaxScore: 10, Weight: 1},
		}

		Convey("When a judge scores 8 and 6", func() {
			total, err := scorer.JudgeTotal(criteria, map[string]float64{"Innovation": 8, "Impact": 6})

			Convey("Then the total is the plain mean", func() {
				So(err, ShouldBeNil)
				So(total, ShouldEqual, 7.0)
			})
		})

		Convey("When weights differ", func() {
			weighted := []model.Criterion{
				{Name: "Innovation", MaxScore: 10, Weight: 3},
				{Name: "Impact", MaxScore: 10, Weight: 1},
			}
			total, err := scorer.JudgeTotal(weighted, map[string]float64{"Innovation": 8, "Impact": 4})

			Convey("Then the total is weight-normalized", func() {
				So(err, ShouldBeNil)
				So(total, ShouldEqual, 7.0)
			})
		})

		Convey("When a repeating fraction appears", func() {
			three := append(criteria, model.Criterion{Name: "Design", MaxScore: 10, Weight: 1})
			total, err := scorer.JudgeTotal(three, map[string]float64{"Innovation": 1, "Impact": 0, "Design": 0})

			Convey("Then it is rounded to six places", func() {
				So(err, ShouldBeNil)
				So(total, ShouldEqual, 0.333333)
			})
		})

		Convey("When a score exceeds the criterion maximum", func() {
			_, err := scorer.JudgeTotal(criteria, map[string]float64{"Innovation": 11, "Impact": 6})
			So(errors.Is(err, scoring.ErrOutOfRange), ShouldBeTrue)
		})

		Convey("When a score is negative", func() {
			_, err := scorer.JudgeTotal(criteria, map[string]float64{"Innovation": -1, "Impact": 6})
			So(errors.Is(err, scoring.ErrOutOfRange), ShouldBeTrue)
		})

		Convey("When the maximum itself is used", func() {
			total, err := scorer.JudgeTotal(criteria, map[string]float64{"Innovation": 10, "Impact": 0})
			So(err, ShouldBeNil)
			So(total, ShouldEqual, 5.0)
		})

		Convey("When a criterion is missing", func() {
			_, err := scorer.JudgeTotal(criteria, map[string]float64{"Innovation": 8})
			So(errors.Is(err, scoring.ErrMissingCriterion), ShouldBeTrue)
		})

		Convey("When an unknown criterion is sent", func() {
			_, err := scorer.JudgeTotal(criteria, map[string]float64{"Innovation": 8, "Impact": 6, "Style": 2})
			So(errors.Is(err, scoring.ErrUnknownCriterion), ShouldBeTrue)
		})

		Convey("When the round has no criteria", func() {
			_, err := scorer.JudgeTotal(nil, map[string]float64{})
			So(errors.Is(err, scoring.ErrNoCriteria), ShouldBeTrue)
		})
	})
}

func TestWeightedScorer_Aggregate(t *testing.T) {
	Convey("Given per-judge totals", t, func() {
		scorer := scoring.NewWeightedScorer()

		Convey("Then the aggregate is their mean", func() {
			So(scorer.Aggregate([]float64{7, 7}), ShouldEqual, 7.0)
			So(scorer.Aggregate([]float64{9, 6, 6}), ShouldEqual, 7.0)
			So(scorer.Aggregate([]float64{0.1, 0.2}), ShouldEqual, 0.15)
		})

		Convey("Then no totals aggregate to zero", func() {
			So(scorer.Aggregate(nil), ShouldEqual, 0)
		})

		Convey("Then ledger entries aggregate with their count", func() {
			agg, n := scoring.AggregateEntries(scorer, []model.ScoreEntry{{Total: 7}, {Total: 8}})
			So(agg, ShouldEqual, 7.5)
			So(n, ShouldEqual, 2)
		})

		Convey("Then a custom precision is honoured", func() {
			coarse := scoring.NewWeightedScorer(scoring.WithPrecision(2))
			So(coarse.Aggregate([]float64{1, 0, 0}), ShouldEqual, 0.33)
		})
	})
}
