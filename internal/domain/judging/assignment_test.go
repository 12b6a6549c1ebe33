package judging_test

import (
	"fmt"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/hackjudge/internal/domain/judging"
	"github.com/okian/hackjudge/internal/domain/model"
)

func TestPartition(t *testing.T) {
	Convey("Given twelve items and five buckets", t, func() {
		items := make([]string, 12)
		for i := range items {
			items[i] = fmt.Sprintf("s%02d", i)
		}
		parts := judging.Partition(items, 5)

		Convey("Then loads differ by at most one, larger first", func() {
			loads := make([]int, len(parts))
			for i, p := range parts {
				loads[i] = len(p)
			}
			So(loads, ShouldResemble, []int{3, 3, 2, 2, 2})
		})

		Convey("Then every item lands in exactly one bucket in order", func() {
			var flat []string
			for _, p := range parts {
				flat = append(flat, p...)
			}
			So(flat, ShouldResemble, items)
		})
	})

	Convey("More buckets than items leaves the tail empty", t, func() {
		parts := judging.Partition([]string{"a", "b", "c"}, 5)
		So(parts, ShouldHaveLength, 5)
		So(parts[2], ShouldResemble, []string{"c"})
		So(parts[4], ShouldBeEmpty)
	})

	Convey("Zero buckets yields nothing", t, func() {
		So(judging.Partition([]string{"a"}, 0), ShouldBeNil)
	})
}

func TestAutoDistribute(t *testing.T) {
	Convey("Given twelve submissions and five judges", t, func() {
		f := newFixture(twoRounds())
		var subs []model.Submission
		for i := 0; i < 12; i++ {
			subs = append(subs, f.submit(fmt.Sprintf("user%02d", i)))
		}
		_, err := f.eng.Submit(f.ctx, judging.SubmitInput{HackathonID: "h1", OwnerID: "drafter", Draft: true})
		So(err, ShouldBeNil)

		out, err := f.eng.AutoDistribute(f.ctx, "h1", 0, nil)
		So(err, ShouldBeNil)

		Convey("Then loads are 3,3,2,2,2 and cover every submission once", func() {
			So(out, ShouldHaveLength, 5)
			seen := map[string]int{}
			var loads []int
			for _, a := range out {
				loads = append(loads, len(a.Targets))
				So(a.Status, ShouldEqual, model.AssignmentPending)
				for _, tg := range a.Targets {
					seen[tg.ID]++
				}
			}
			So(loads, ShouldResemble, []int{3, 3, 2, 2, 2})
			So(seen, ShouldHaveLength, 12)
			for _, s := range subs {
				So(seen[s.ID], ShouldEqual, 1)
			}
			So(out[0].Targets[0].ID, ShouldEqual, subs[0].ID)
		})

		Convey("When a judge accepts and the distribution is recomputed", func() {
			_, err := f.eng.RespondToAssignment(f.ctx, "j1", "j1", "h1", 0, model.AssignmentAccepted)
			So(err, ShouldBeNil)
			again, err := f.eng.AutoDistribute(f.ctx, "h1", 0, nil)
			So(err, ShouldBeNil)

			Convey("Then ids survive and unchanged targets keep their status", func() {
				So(again[0].ID, ShouldEqual, out[0].ID)
				So(again[0].Status, ShouldEqual, model.AssignmentAccepted)
				So(again[1].Status, ShouldEqual, model.AssignmentPending)
			})
		})

		Convey("When only two judges are chosen", func() {
			two, err := f.eng.AutoDistribute(f.ctx, "h1", 0, []string{"j4", "j5", "j4"})
			So(err, ShouldBeNil)

			Convey("Then they split the round and the others lose their assignments", func() {
				So(two, ShouldHaveLength, 2)
				So(len(two[0].Targets), ShouldEqual, 6)
				list, err := f.eng.Assignments(f.ctx, "h1", 0)
				So(err, ShouldBeNil)
				So(list, ShouldHaveLength, 2)
			})
		})

		Convey("Unknown judges are not found", func() {
			_, err := f.eng.AutoDistribute(f.ctx, "h1", 0, []string{"ghost"})
			So(judging.KindOf(err), ShouldEqual, judging.KindNotFound)
		})
	})
}

func TestAssign(t *testing.T) {
	Convey("Given a round with submissions and a team", t, func() {
		f := newFixture(twoRounds())
		f.team("t1", "alice", "bob")
		a := f.submit("alice")
		b := f.submit("carol")

		Convey("The all wildcard expands to every submission", func() {
			got, err := f.eng.Assign(f.ctx, "j1", "h1", 0, []model.Target{{ID: model.AllTargets}})
			So(err, ShouldBeNil)
			So(got.Targets, ShouldHaveLength, 2)
			So(got.Covers(a), ShouldBeTrue)
			So(got.Covers(b), ShouldBeTrue)
		})

		Convey("The all wildcard on a round without submissions is rejected", func() {
			_, err := f.eng.Assign(f.ctx, "j1", "h1", 1, []model.Target{{ID: model.AllTargets}})
			So(judging.KindOf(err), ShouldEqual, judging.KindInvalidInput)
			list, err := f.eng.Assignments(f.ctx, "h1", 1)
			So(err, ShouldBeNil)
			So(list, ShouldBeEmpty)
		})

		Convey("Reassigning keeps the id and resets the status", func() {
			first, err := f.eng.Assign(f.ctx, "j1", "h1", 0, []model.Target{{Kind: model.TargetSubmission, ID: a.ID}})
			So(err, ShouldBeNil)
			_, err = f.eng.RespondToAssignment(f.ctx, "j1", "", "h1", 0, model.AssignmentAccepted)
			So(err, ShouldBeNil)
			second, err := f.eng.Assign(f.ctx, "j1", "h1", 0, []model.Target{{Kind: model.TargetProblem, ID: "p1"}})
			So(err, ShouldBeNil)
			So(second.ID, ShouldEqual, first.ID)
			So(second.Status, ShouldEqual, model.AssignmentPending)
			So(second.Targets, ShouldResemble, []model.Target{{Kind: model.TargetProblem, ID: "p1"}})
		})

		Convey("Invalid targets are rejected", func() {
			bad := [][]model.Target{
				{{Kind: model.TargetSubmission, ID: "missing"}},
				{{Kind: model.TargetTeam, ID: "ghosts"}},
				{{Kind: model.TargetProblem, ID: "p9"}},
			}
			for _, targets := range bad {
				_, err := f.eng.Assign(f.ctx, "j1", "h1", 0, targets)
				So(judging.KindOf(err), ShouldEqual, judging.KindInvalidTarget)
			}
			_, err := f.eng.Assign(f.ctx, "j1", "h1", 1, []model.Target{{ID: a.ID}})
			So(judging.KindOf(err), ShouldEqual, judging.KindInvalidTarget)
		})

		Convey("Empty targets and unknown kinds are invalid input", func() {
			_, err := f.eng.Assign(f.ctx, "j1", "h1", 0, nil)
			So(judging.KindOf(err), ShouldEqual, judging.KindInvalidInput)
			_, err = f.eng.Assign(f.ctx, "j1", "h1", 0, []model.Target{{Kind: "venue", ID: "x"}})
			So(judging.KindOf(err), ShouldEqual, judging.KindInvalidInput)
		})

		Convey("Unknown judges are not found", func() {
			_, err := f.eng.Assign(f.ctx, "ghost", "h1", 0, []model.Target{{ID: a.ID}})
			So(judging.KindOf(err), ShouldEqual, judging.KindNotFound)
		})

		Convey("Responses follow the assignment lifecycle", func() {
			_, err := f.eng.Assign(f.ctx, "j1", "h1", 0, []model.Target{{ID: a.ID}})
			So(err, ShouldBeNil)

			_, err = f.eng.RespondToAssignment(f.ctx, "j2", "j1", "h1", 0, model.AssignmentAccepted)
			So(judging.KindOf(err), ShouldEqual, judging.KindNotAssigned)

			_, err = f.eng.RespondToAssignment(f.ctx, "j1", "j1", "h1", 0, model.AssignmentPending)
			So(judging.KindOf(err), ShouldEqual, judging.KindInvalidInput)

			got, err := f.eng.RespondToAssignment(f.ctx, "j1", "j1", "h1", 0, model.AssignmentAccepted)
			So(err, ShouldBeNil)
			So(got.Status, ShouldEqual, model.AssignmentAccepted)

			_, err = f.eng.RespondToAssignment(f.ctx, "j1", "j1", "h1", 0, model.AssignmentAccepted)
			So(err, ShouldBeNil)

			_, err = f.eng.RespondToAssignment(f.ctx, "j1", "j1", "h1", 0, model.AssignmentDeclined)
			So(judging.KindOf(err), ShouldEqual, judging.KindInvalidInput)

			_, err = f.eng.RespondToAssignment(f.ctx, "j2", "j2", "h1", 0, model.AssignmentAccepted)
			So(judging.KindOf(err), ShouldEqual, judging.KindNotFound)
		})

		Convey("Unassign removes the assignment once", func() {
			_, err := f.eng.Assign(f.ctx, "j1", "h1", 0, []model.Target{{ID: a.ID}})
			So(err, ShouldBeNil)
			So(f.eng.Unassign(f.ctx, "j1", "h1", 0), ShouldBeNil)
			So(judging.KindOf(f.eng.Unassign(f.ctx, "j1", "h1", 0)), ShouldEqual, judging.KindNotFound)
		})
	})
}
