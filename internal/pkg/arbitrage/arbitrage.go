// Package arbitrage evaluates correlated events for guaranteed-profit
// pairings between the authoritative lay prices and traditional back prices.
package arbitrage

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/harbibet/harbi/internal/pkg/models"
)

// DefaultMinEdge filters noise from quoting-increment rounding: a spread
// must strictly exceed this to be flagged profitable.
var DefaultMinEdge = decimal.NewFromFloat(0.001)

var one = decimal.NewFromInt(1)

// Evaluate computes per-outcome spreads for one correlated event. It is a
// pure function of its inputs: no mutation, no I/O, deterministic given
// identical prices. Opportunity IDs are left empty for the caller to
// assign.
//
// The anchor must quote lay prices; for every member and every outcome both
// sides share (already re-oriented per canonical identity by correlation),
// spread = back/lay - 1. An outcome missing on either side yields no row,
// not an error. All evaluated pairings are returned, with Profitable set
// only where the spread strictly exceeds minEdge.
func Evaluate(ce models.CorrelatedEvent, minEdge decimal.Decimal, now time.Time) []models.ArbitrageOpportunity {
	if !ce.Anchor.Prices.Kind.IsLay() || len(ce.Members) == 0 {
		return nil
	}

	sources := make([]models.SourceID, 0, len(ce.Members))
	for src := range ce.Members {
		sources = append(sources, src)
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i] < sources[j] })

	var out []models.ArbitrageOpportunity
	for _, src := range sources {
		member := ce.Members[src]
		for _, outcome := range member.Prices.Kind.Outcomes() {
			lay, ok := ce.Anchor.Prices.Get(outcome)
			if !ok {
				continue
			}
			back, ok := member.Prices.Get(outcome)
			if !ok {
				continue
			}
			spread := back.Div(lay).Sub(one)
			out = append(out, models.ArbitrageOpportunity{
				Outcome:    outcome,
				LaySource:  ce.Anchor.Source,
				BackSource: src,
				LayPrice:   lay,
				BackPrice:  back,
				Spread:     spread,
				Profitable: spread.GreaterThan(minEdge),
				HomeName:   ce.Anchor.Home.Raw,
				AwayName:   ce.Anchor.Away.Raw,
				LayLink:    ce.Anchor.Link,
				BackLink:   member.Link,
				StartTime:  ce.Anchor.StartTime,
				FoundAt:    now,
			})
		}
	}
	return out
}
