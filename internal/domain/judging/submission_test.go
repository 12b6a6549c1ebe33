package judging_test

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/hackjudge/internal/domain/judging"
	"github.com/okian/hackjudge/internal/domain/model"
)

func TestSubmit(t *testing.T) {
	Convey("Given an open round", t, func() {
		f := newFixture(twoRounds())
		f.team("t1", "alice", "bob")

		submit := func(in judging.SubmitInput) (model.Submission, error) {
			in.HackathonID = "h1"
			return f.eng.Submit(f.ctx, in)
		}

		Convey("A member submits under their registered team", func() {
			s, err := submit(judging.SubmitInput{OwnerID: "bob", ProblemStatementID: "p2"})
			So(err, ShouldBeNil)
			So(s.TeamID, ShouldEqual, "t1")
			So(s.Status, ShouldEqual, model.StatusSubmitted)
			So(s.CreatedAt, ShouldEqual, f.now)
		})

		Convey("Claiming a foreign team is an invalid target", func() {
			_, err := submit(judging.SubmitInput{OwnerID: "carol", TeamID: "t1"})
			So(judging.KindOf(err), ShouldEqual, judging.KindInvalidTarget)
		})

		Convey("Unknown problem statements are invalid targets", func() {
			_, err := submit(judging.SubmitInput{OwnerID: "alice", ProblemStatementID: "p9"})
			So(judging.KindOf(err), ShouldEqual, judging.KindInvalidTarget)
		})

		Convey("An owner is required", func() {
			_, err := submit(judging.SubmitInput{})
			So(judging.KindOf(err), ShouldEqual, judging.KindInvalidInput)
		})

		Convey("Submissions outside the window are rejected", func() {
			f.closeRound0()
			_, err := submit(judging.SubmitInput{OwnerID: "alice"})
			So(judging.KindOf(err), ShouldEqual, judging.KindRoundClosed)
		})

		Convey("When individuals are not allowed", func() {
			h := twoRounds()
			h.AllowIndividual = false
			_, err := f.eng.ConfigureHackathon(f.ctx, h)
			So(err, ShouldBeNil)

			_, err = submit(judging.SubmitInput{OwnerID: "carol"})
			So(judging.KindOf(err), ShouldEqual, judging.KindNotEligible)
			_, err = submit(judging.SubmitInput{OwnerID: "alice"})
			So(err, ShouldBeNil)
		})

		Convey("When a draft is created", func() {
			d, err := submit(judging.SubmitInput{OwnerID: "alice", Draft: true})
			So(err, ShouldBeNil)
			So(d.Status, ShouldEqual, model.StatusDraft)

			Convey("Only the owner finalizes it", func() {
				_, err := f.eng.Finalize(f.ctx, d.ID, "bob")
				So(judging.KindOf(err), ShouldEqual, judging.KindNotEligible)

				s, err := f.eng.Finalize(f.ctx, d.ID, "alice")
				So(err, ShouldBeNil)
				So(s.Status, ShouldEqual, model.StatusSubmitted)
			})

			Convey("Finalizing twice is invalid", func() {
				_, err := f.eng.Finalize(f.ctx, d.ID, "alice")
				So(err, ShouldBeNil)
				_, err = f.eng.Finalize(f.ctx, d.ID, "alice")
				So(judging.KindOf(err), ShouldEqual, judging.KindInvalidInput)
			})

			Convey("Finalizing after the window is rejected", func() {
				f.closeRound0()
				_, err := f.eng.Finalize(f.ctx, d.ID, "alice")
				So(judging.KindOf(err), ShouldEqual, judging.KindRoundClosed)
			})
		})
	})
}
