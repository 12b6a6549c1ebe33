package judging_test

import (
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/hackjudge/internal/domain/judging"
	"github.com/okian/hackjudge/internal/domain/model"
)

func TestValidateHackathon(t *testing.T) {
	Convey("Given a valid hackathon", t, func() {
		h := twoRounds()
		So(judging.ValidateHackathon(h), ShouldBeNil)

		cases := []struct {
			name   string
			mutate func(h *model.Hackathon)
		}{
			{"missing id", func(h *model.Hackathon) { h.ID = "" }},
			{"no rounds", func(h *model.Hackathon) { h.Rounds = nil }},
			{"gap in round indices", func(h *model.Hackathon) { h.Rounds[1].Index = 2 }},
			{"inverted window", func(h *model.Hackathon) { h.Rounds[0].ClosesAt = h.Rounds[0].OpensAt }},
			{"no criteria", func(h *model.Hackathon) { h.Rounds[0].Criteria = nil }},
			{"zero weight", func(h *model.Hackathon) { h.Rounds[0].Criteria[0].Weight = 0 }},
			{"negative max", func(h *model.Hackathon) { h.Rounds[0].Criteria[1].MaxScore = -1 }},
			{"repeated criterion", func(h *model.Hackathon) { h.Rounds[0].Criteria[1].Name = "impact" }},
			{"unnamed criterion", func(h *model.Hackathon) { h.Rounds[0].Criteria[1].Name = "" }},
			{"duplicate judge", func(h *model.Hackathon) { h.Judges = append(h.Judges, "j1") }},
			{"unknown assignment mode", func(h *model.Hackathon) { h.Rounds[0].AssignmentMode = "lottery" }},
		}
		for _, tc := range cases {
			Convey("It rejects "+tc.name, func() {
				bad := twoRounds()
				tc.mutate(&bad)
				err := judging.ValidateHackathon(bad)
				So(err, ShouldNotBeNil)
				So(judging.KindOf(err), ShouldEqual, judging.KindInvalidInput)
			})
		}
	})
}

func TestConfigureHackathon(t *testing.T) {
	Convey("Given an engine", t, func() {
		f := newFixture(model.Hackathon{})

		Convey("When a hackathon is configured", func() {
			h := twoRounds()
			h.Rounds[0].OpensAt = h.Rounds[0].OpensAt.In(time.FixedZone("CET", 3600))
			out, err := f.eng.ConfigureHackathon(f.ctx, h)
			So(err, ShouldBeNil)

			Convey("Then rounds default to manual assignment in UTC", func() {
				So(out.Rounds[0].AssignmentMode, ShouldEqual, model.AssignmentManual)
				So(out.Rounds[0].OpensAt.Location(), ShouldEqual, time.UTC)
			})

			Convey("Then criteria are served per round", func() {
				c, err := f.eng.Criteria(f.ctx, "h1", 1)
				So(err, ShouldBeNil)
				So(c, ShouldResemble, criteria())
			})

			Convey("Then a missing round is not found", func() {
				_, err := f.eng.Criteria(f.ctx, "h1", 5)
				So(judging.KindOf(err), ShouldEqual, judging.KindNotFound)
			})
		})

		Convey("A missing hackathon is not found", func() {
			_, err := f.eng.Criteria(f.ctx, "nope", 0)
			So(judging.KindOf(err), ShouldEqual, judging.KindNotFound)
			So(errors.Is(err, judging.ErrNotFound), ShouldBeTrue)
		})

		Convey("Teams need an existing hackathon and members", func() {
			err := f.eng.RegisterTeam(f.ctx, model.Team{ID: "t1", HackathonID: "nope", Members: []string{"a"}})
			So(judging.KindOf(err), ShouldEqual, judging.KindNotFound)
			err = f.eng.RegisterTeam(f.ctx, model.Team{ID: "t1", HackathonID: "h1"})
			So(judging.KindOf(err), ShouldEqual, judging.KindInvalidInput)
		})
	})
}
