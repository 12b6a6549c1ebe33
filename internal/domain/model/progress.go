package model

import (
	"slices"
	"time"
)

// ShortlistMode selects how shortlisting picks submissions.
type ShortlistMode string

// Shortlist modes. ShortlistManual marks progress built only from toggles.
const (
	ShortlistTopN      ShortlistMode = "top_n"
	ShortlistThreshold ShortlistMode = "threshold"
	ShortlistManual    ShortlistMode = "manual"
)

// RoundProgress is the persisted shortlisting outcome of one round.
// Sets are kept sorted.
type RoundProgress struct {
	HackathonID            string        `json:"hackathon_id"`
	RoundIndex             int           `json:"round_index"`
	ShortlistedSubmissions []string      `json:"shortlisted_submissions"`
	ShortlistedTeams       []string      `json:"shortlisted_teams"`
	EligibleParticipants   []string      `json:"eligible_participants"`
	RoundCompleted         bool          `json:"round_completed"`
	ShortlistedAt          time.Time     `json:"shortlisted_at"`
	Mode                   ShortlistMode `json:"mode"`
	Param                  float64       `json:"param"`
}

// HasSubmission reports membership in ShortlistedSubmissions.
func (p RoundProgress) HasSubmission(id string) bool { return contains(p.ShortlistedSubmissions, id) }

// HasTeam reports membership in ShortlistedTeams.
func (p RoundProgress) HasTeam(id string) bool { return contains(p.ShortlistedTeams, id) }

// HasParticipant reports membership in EligibleParticipants.
func (p RoundProgress) HasParticipant(id string) bool { return contains(p.EligibleParticipants, id) }

func contains(set []string, id string) bool {
	if id == "" {
		return false
	}
	_, ok := slices.BinarySearch(set, id)
	return ok
}

// AddToSet inserts id into the sorted set.
func AddToSet(set []string, id string) []string {
	i, ok := slices.BinarySearch(set, id)
	if ok || id == "" {
		return set
	}
	return slices.Insert(set, i, id)
}

// RemoveFromSet deletes id from the sorted set.
func RemoveFromSet(set []string, id string) []string {
	i, ok := slices.BinarySearch(set, id)
	if !ok {
		return set
	}
	return slices.Delete(set, i, i+1)
}

// NewSet builds a sorted, de-duplicated set, ignoring empty ids.
func NewSet(ids ...string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
