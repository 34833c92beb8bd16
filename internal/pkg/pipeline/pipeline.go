// Package pipeline drives one collection cycle through the core stages:
// collect, match, correlate, evaluate.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/harbibet/harbi/internal/pkg/arbitrage"
	"github.com/harbibet/harbi/internal/pkg/collect"
	"github.com/harbibet/harbi/internal/pkg/correlate"
	"github.com/harbibet/harbi/internal/pkg/matcher"
	"github.com/harbibet/harbi/internal/pkg/models"
	"github.com/harbibet/harbi/internal/pkg/registry"
	"github.com/harbibet/harbi/internal/pkg/report"
)

// Pipeline owns the registry across cycles; everything else is rebuilt
// per cycle.
type Pipeline struct {
	registry      *registry.Registry
	authoritative models.SourceID
	minConfidence int
	minEdge       decimal.Decimal
}

// New builds a pipeline around an existing registry. minConfidence gates
// automatic matching; minEdge gates the profitable flag.
func New(reg *registry.Registry, authoritative models.SourceID, minConfidence int, minEdge decimal.Decimal) *Pipeline {
	if minConfidence <= 0 {
		minConfidence = matcher.DefaultMinConfidence
	}
	return &Pipeline{
		registry:      reg,
		authoritative: authoritative,
		minConfidence: minConfidence,
		minEdge:       minEdge,
	}
}

// Registry exposes the pipeline's registry for persistence and inspection.
func (p *Pipeline) Registry() *registry.Registry { return p.registry }

// RunCycle executes one full cycle. Per-team and per-event failures are
// local and non-fatal; the only escalated failure is the authoritative
// source being unavailable, because nothing can be anchored without it.
// Even then the returned report still carries the per-source statuses.
func (p *Pipeline) RunCycle(ctx context.Context, collectors []collect.Collector) (*report.CycleReport, error) {
	rep := &report.CycleReport{
		CycleID:   uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}

	events, statuses := collect.RunCycle(ctx, collectors)
	rep.Statuses = statuses

	// Canonical identities come only from the authoritative source's
	// listings; the matching pass then owns the registry exclusively
	// until the snapshot is taken.
	added := p.registry.Seed(teamNames(events[p.authoritative]))
	if added > 0 {
		slog.Info("Pipeline: seeded canonical identities", "added", added, "total", p.registry.IdentityCount())
	}

	for _, src := range sortedSources(events) {
		if src == p.authoritative {
			continue
		}
		if st, ok := statuses[src]; ok && !st.Contributes() {
			continue
		}
		res := matcher.MatchAll(p.registry, src, teamNames(events[src]), p.minConfidence)
		rep.Stats.NewMatches += len(res.Matches)
		rep.Stats.Unresolved += len(res.Unresolved)
		rep.Stats.Ambiguous += len(res.Ambiguous)
		rep.Stats.TieBreaks += len(res.TieBreaks)
		for _, raw := range res.Unresolved {
			slog.Debug("Pipeline: unresolved team name", "source", src, "raw", raw)
		}
	}
	rep.Stats.Identities = p.registry.IdentityCount()

	// The snapshot is fixed for the whole correlation pass.
	snap := p.registry.Snapshot()
	correlated, err := correlate.Correlate(events, snap, statuses, p.authoritative)
	if err != nil {
		rep.FinishedAt = time.Now().UTC()
		return rep, fmt.Errorf("correlation aborted: %w", err)
	}
	rep.Events = correlated
	rep.Stats.Correlated = len(correlated)

	now := time.Now().UTC()
	for _, ce := range correlated {
		if len(ce.Members) > 0 {
			rep.Stats.WithMembers++
		}
		opps := arbitrage.Evaluate(ce, p.minEdge, now)
		for i := range opps {
			opps[i].ID = uuid.NewString()
			if opps[i].Profitable {
				rep.Stats.Profitable++
			}
		}
		rep.Opportunities = append(rep.Opportunities, opps...)
	}
	rep.Stats.Opportunities = len(rep.Opportunities)

	rep.FinishedAt = time.Now().UTC()
	slog.Info("Pipeline: cycle complete",
		"cycle", rep.CycleID,
		"identities", rep.Stats.Identities,
		"correlated", rep.Stats.Correlated,
		"with_members", rep.Stats.WithMembers,
		"opportunities", rep.Stats.Opportunities,
		"profitable", rep.Stats.Profitable,
		"took", rep.FinishedAt.Sub(rep.StartedAt))
	return rep, nil
}

// teamNames collects the distinct raw team names appearing in a source's
// events for the cycle.
func teamNames(events []models.SourceEvent) []string {
	seen := make(map[string]struct{}, len(events)*2)
	var names []string
	for _, ev := range events {
		for _, raw := range []string{ev.Home.Raw, ev.Away.Raw} {
			if raw == "" {
				continue
			}
			if _, ok := seen[raw]; ok {
				continue
			}
			seen[raw] = struct{}{}
			names = append(names, raw)
		}
	}
	return names
}

func sortedSources(events map[models.SourceID][]models.SourceEvent) []models.SourceID {
	out := make([]models.SourceID, 0, len(events))
	for src := range events {
		out = append(out, src)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
