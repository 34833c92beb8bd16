// Package report carries the cycle output handed to reporting
// collaborators: correlated events, per-outcome opportunities and
// per-source statuses.
package report

import (
	"sort"
	"time"

	"github.com/harbibet/harbi/internal/pkg/models"
)

// Stats summarizes one pipeline cycle for logging and inspection.
type Stats struct {
	Identities    int `json:"identities"`
	NewMatches    int `json:"new_matches"`
	Unresolved    int `json:"unresolved"`
	Ambiguous     int `json:"ambiguous"`
	TieBreaks     int `json:"tie_breaks"`
	Correlated    int `json:"correlated"`
	WithMembers   int `json:"with_members"`
	Opportunities int `json:"opportunities"`
	Profitable    int `json:"profitable"`
}

// CycleReport is everything a rendering or notification collaborator needs
// for one cycle. Sources that errored are present in Statuses with an
// explicit marker so renderers show "data unavailable", never stale or
// blank odds.
type CycleReport struct {
	CycleID    string    `json:"cycle_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Statuses      map[models.SourceID]models.SourceStatus `json:"statuses"`
	Events        []models.CorrelatedEvent                `json:"events"`
	Opportunities []models.ArbitrageOpportunity           `json:"opportunities"`
	Stats         Stats                                   `json:"stats"`
}

// Profitable returns only the flagged opportunities, best spread first.
func (r *CycleReport) Profitable() []models.ArbitrageOpportunity {
	var out []models.ArbitrageOpportunity
	for _, o := range r.Opportunities {
		if o.Profitable {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Spread.GreaterThan(out[j].Spread) })
	return out
}
