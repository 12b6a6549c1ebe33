package simulate

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/okian/hackjudge/internal/domain/model"
)

// Score generation ranges.
const (
	qualityMin   = 2.0
	qualityRange = 7.0
	judgeJitter  = 1.5
	scoreStep    = 0.5
)

var criteria = []model.Criterion{
	{Name: "impact", MaxScore: 10, Weight: 2},
	{Name: "execution", MaxScore: 10, Weight: 1},
	{Name: "presentation", MaxScore: 10, Weight: 1},
}

// Entrant is one team or solo participant that submits in round 0.
type Entrant struct {
	Owner   string
	TeamID  string
	Members []string
	Quality float64
}

// Plan is the generated hackathon and its participants.
type Plan struct {
	Hackathon model.Hackathon
	Entrants  []Entrant
	rng       *rand.Rand
}

// NewPlan generates a two-round hackathon whose first round closes
// cfg.RoundWindow after now.
func NewPlan(cfg *Config, now time.Time) *Plan {
	id := cfg.HackathonID
	if id == "" {
		id = "sim-" + uuid.NewString()[:8]
	}
	judges := make([]string, cfg.Judges)
	for i := range judges {
		judges[i] = "judge-" + strconv.Itoa(i+1)
	}
	closes := now.Add(cfg.RoundWindow).UTC()
	p := &Plan{
		Hackathon: model.Hackathon{
			ID:              id,
			Name:            "Simulated hackathon " + id,
			AllowIndividual: cfg.Solo > 0,
			Judges:          judges,
			Rounds: []model.Round{
				{Index: 0, Kind: "idea", OpensAt: now.Add(-time.Hour).UTC(), ClosesAt: closes, Criteria: criteria, AssignmentMode: model.AssignmentAuto},
				{Index: 1, Kind: "final", OpensAt: closes, ClosesAt: closes.Add(24 * time.Hour), Criteria: criteria, AssignmentMode: model.AssignmentManual},
			},
		},
		rng: rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
	}
	for t := range cfg.Teams {
		team := fmt.Sprintf("%s-team-%02d", id, t+1)
		members := make([]string, cfg.TeamSize)
		for m := range members {
			members[m] = fmt.Sprintf("%s-m%d", team, m+1)
		}
		p.Entrants = append(p.Entrants, Entrant{Owner: members[0], TeamID: team, Members: members, Quality: p.quality()})
	}
	for s := range cfg.Solo {
		owner := fmt.Sprintf("%s-solo-%02d", id, s+1)
		p.Entrants = append(p.Entrants, Entrant{Owner: owner, Members: []string{owner}, Quality: p.quality()})
	}
	return p
}

func (p *Plan) quality() float64 {
	return qualityMin + p.rng.Float64()*qualityRange
}

// Scores draws one judge's criterion scores around the entrant quality.
// Not safe for concurrent use.
func (p *Plan) Scores(quality float64) map[string]float64 {
	out := make(map[string]float64, len(criteria))
	for _, c := range criteria {
		v := quality + (p.rng.Float64()*2-1)*judgeJitter
		v = math.Round(v/scoreStep) * scoreStep
		out[c.Name] = math.Max(0, math.Min(c.MaxScore, v))
	}
	return out
}
