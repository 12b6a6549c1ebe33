package model_test

import (
	"errors"
	"testing"
	"time"

	model "github.com/okian/hackjudge/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestRoundWindow(t *testing.T) {
	convey.Convey("Given a round open for one hour", t, func() {
		opens := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
		r := model.Round{OpensAt: opens, ClosesAt: opens.Add(time.Hour)}

		convey.Convey("Then the opening instant is inside the window", func() {
			convey.So(r.Open(opens), convey.ShouldBeTrue)
			convey.So(r.Closed(opens), convey.ShouldBeFalse)
		})

		convey.Convey("Then the closing instant is outside the window", func() {
			convey.So(r.Open(opens.Add(time.Hour)), convey.ShouldBeFalse)
			convey.So(r.Closed(opens.Add(time.Hour)), convey.ShouldBeTrue)
		})

		convey.Convey("Then a time before opening is neither open nor closed", func() {
			convey.So(r.Open(opens.Add(-time.Second)), convey.ShouldBeFalse)
			convey.So(r.Closed(opens.Add(-time.Second)), convey.ShouldBeFalse)
		})
	})
}

func TestHackathonLookups(t *testing.T) {
	convey.Convey("Given a hackathon with two rounds", t, func() {
		h := model.Hackathon{
			ID:                "h1",
			Judges:            []string{"j1", "j2"},
			ProblemStatements: []string{"ps1"},
			Rounds: []model.Round{
				{Index: 0, Criteria: []model.Criterion{{Name: "Impact", MaxScore: 10, Weight: 1}}},
				{Index: 1},
			},
		}

		convey.So(h.HasJudge("j2"), convey.ShouldBeTrue)
		convey.So(h.HasJudge("j3"), convey.ShouldBeFalse)
		convey.So(h.HasProblemStatement("ps1"), convey.ShouldBeTrue)

		_, ok := h.Round(2)
		convey.So(ok, convey.ShouldBeFalse)
		_, ok = h.Round(-1)
		convey.So(ok, convey.ShouldBeFalse)

		r, ok := h.Round(0)
		convey.So(ok, convey.ShouldBeTrue)
		c, ok := r.Criterion("Impact")
		convey.So(ok, convey.ShouldBeTrue)
		convey.So(c.MaxScore, convey.ShouldEqual, 10)
		_, ok = r.Criterion("Design")
		convey.So(ok, convey.ShouldBeFalse)
	})
}

func TestAssignmentCoverage(t *testing.T) {
	convey.Convey("Given an assignment with one target of each kind", t, func() {
		a := model.JudgeAssignment{Targets: []model.Target{
			{Kind: model.TargetSubmission, ID: "s1"},
			{Kind: model.TargetTeam, ID: "t1"},
			{Kind: model.TargetProblem, ID: "ps1"},
		}}

		convey.So(a.Covers(model.Submission{ID: "s1"}), convey.ShouldBeTrue)
		convey.So(a.Covers(model.Submission{ID: "s2", TeamID: "t1"}), convey.ShouldBeTrue)
		convey.So(a.Covers(model.Submission{ID: "s3", ProblemStatementID: "ps1"}), convey.ShouldBeTrue)
		convey.So(a.Covers(model.Submission{ID: "s4", TeamID: "t2", ProblemStatementID: "ps2"}), convey.ShouldBeFalse)
	})

	convey.Convey("Given two target lists in different order with a duplicate", t, func() {
		a := []model.Target{{Kind: model.TargetTeam, ID: "t1"}, {Kind: model.TargetSubmission, ID: "s1"}}
		b := []model.Target{{Kind: model.TargetSubmission, ID: "s1"}, {Kind: model.TargetTeam, ID: "t1"}}

		convey.So(model.SameTargets(a, b), convey.ShouldBeTrue)
		convey.So(model.SameTargets(a, b[:1]), convey.ShouldBeFalse)
		convey.So(model.SortTargets(append(b, b[0])), convey.ShouldResemble, []model.Target{
			{Kind: model.TargetSubmission, ID: "s1"},
			{Kind: model.TargetTeam, ID: "t1"},
		})
	})
}

func TestProgressSets(t *testing.T) {
	convey.Convey("Given a set built from unsorted ids", t, func() {
		set := model.NewSet("c", "a", "", "b", "a")

		convey.So(set, convey.ShouldResemble, []string{"a", "b", "c"})

		convey.Convey("When adding and removing members", func() {
			set = model.AddToSet(set, "ab")
			set = model.AddToSet(set, "ab")
			set = model.RemoveFromSet(set, "c")
			set = model.RemoveFromSet(set, "zz")

			convey.So(set, convey.ShouldResemble, []string{"a", "ab", "b"})
		})

		convey.Convey("Then progress lookups use the sets", func() {
			p := model.RoundProgress{ShortlistedSubmissions: set, ShortlistedTeams: set, EligibleParticipants: set}
			convey.So(p.HasSubmission("b"), convey.ShouldBeTrue)
			convey.So(p.HasTeam("d"), convey.ShouldBeFalse)
			convey.So(p.HasParticipant(""), convey.ShouldBeFalse)
		})
	})
}

func TestTransition(t *testing.T) {
	convey.Convey("Given the submission lifecycle", t, func() {
		allowed := [][2]model.SubmissionStatus{
			{model.StatusDraft, model.StatusSubmitted},
			{model.StatusSubmitted, model.StatusShortlisted},
			{model.StatusSubmitted, model.StatusRejected},
			{model.StatusShortlisted, model.StatusRejected},
			{model.StatusRejected, model.StatusShortlisted},
		}
		for _, tr := range allowed {
			convey.So(model.Transition(tr[0], tr[1]), convey.ShouldBeNil)
		}

		forbidden := [][2]model.SubmissionStatus{
			{model.StatusDraft, model.StatusShortlisted},
			{model.StatusShortlisted, model.StatusSubmitted},
			{model.StatusRejected, model.StatusDraft},
			{model.StatusSubmitted, model.StatusSubmitted},
		}
		for _, tr := range forbidden {
			err := model.Transition(tr[0], tr[1])
			convey.So(errors.Is(err, model.ErrInvalidTransition), convey.ShouldBeTrue)
		}

		convey.Convey("When applying a transition to a submission", func() {
			s := model.Submission{ID: "s1", Status: model.StatusSubmitted}
			next, err := s.Apply(model.StatusShortlisted)

			convey.So(err, convey.ShouldBeNil)
			convey.So(next.Status, convey.ShouldEqual, model.StatusShortlisted)
			convey.So(s.Status, convey.ShouldEqual, model.StatusSubmitted)

			_, err = next.Apply(model.StatusDraft)
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}
