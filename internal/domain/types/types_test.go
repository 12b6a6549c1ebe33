package types_test

import (
	"errors"
	"math"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/hackjudge/internal/domain/model"
	"github.com/okian/hackjudge/internal/domain/types"
)

func TestRequestValidation(t *testing.T) {
	Convey("Given API request bodies", t, func() {
		invalid := func(err error) {
			So(err, ShouldNotBeNil)
			So(errors.Is(err, types.ErrInvalidRequest), ShouldBeTrue)
		}

		Convey("Score requests need a submission and finite scores", func() {
			ok := types.ScoreRequest{SubmissionID: "s1", Scores: map[string]float64{"impact": 5}}
			So(ok.Validate(), ShouldBeNil)

			invalid(types.ScoreRequest{Scores: map[string]float64{"impact": 5}}.Validate())
			invalid(types.ScoreRequest{SubmissionID: "s1"}.Validate())
			invalid(types.ScoreRequest{SubmissionID: "s1", Scores: map[string]float64{"impact": math.NaN()}}.Validate())
			invalid(types.ScoreRequest{SubmissionID: "s1", RoundIndex: -1, Scores: map[string]float64{"impact": 1}}.Validate())

			in := ok.Input("j1")
			So(in.JudgeID, ShouldEqual, "j1")
			So(in.SubmissionID, ShouldEqual, "s1")
		})

		Convey("Assign requests need hackathon, judge and targets", func() {
			So(types.AssignRequest{HackathonID: "h1", JudgeID: "j1", Targets: []model.Target{{ID: "all"}}}.Validate(), ShouldBeNil)
			invalid(types.AssignRequest{JudgeID: "j1", Targets: []model.Target{{ID: "all"}}}.Validate())
			invalid(types.AssignRequest{HackathonID: "h1", Targets: []model.Target{{ID: "all"}}}.Validate())
			invalid(types.AssignRequest{HackathonID: "h1", JudgeID: "j1"}.Validate())
		})

		Convey("Shortlist requests need a mode", func() {
			req := types.ShortlistRequest{HackathonID: "h1", Mode: model.ShortlistTopN, Param: 3}
			So(req.Validate(), ShouldBeNil)
			So(req.Engine().Param, ShouldEqual, 3)
			invalid(types.ShortlistRequest{HackathonID: "h1"}.Validate())
		})

		Convey("Simple bodies check their ids", func() {
			invalid(types.ToggleRequest{}.Validate())
			invalid(types.RebuildRequest{}.Validate())
			invalid(types.SubmitRequest{}.Validate())
			invalid(types.AutoDistributeRequest{}.Validate())
			invalid(types.AssignmentStatusRequest{HackathonID: "h1"}.Validate())
			invalid(types.TeamRequest{}.Validate())
			invalid(types.TeamRequest{Members: []string{" "}}.Validate())
			So(types.TeamRequest{Members: []string{"a"}}.Validate(), ShouldBeNil)
		})
	})
}
