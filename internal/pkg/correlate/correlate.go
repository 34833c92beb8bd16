// Package correlate groups per-source events that describe the same
// real-world fixture, keyed through canonical identities.
package correlate

import (
	"errors"
	"log/slog"
	"sort"

	"github.com/harbibet/harbi/internal/pkg/models"
	"github.com/harbibet/harbi/internal/pkg/registry"
)

// ErrAuthoritativeUnavailable is the only cycle-level failure: without the
// authoritative source there is no reference metadata to anchor any group.
var ErrAuthoritativeUnavailable = errors.New("authoritative source unavailable for this cycle")

// Correlate builds CorrelatedEvent groups from one cycle's per-source
// events. Only sources whose status allows contribution take part; an
// errored source contributes zero events without blocking the others.
// The registry snapshot is fixed for the whole pass.
func Correlate(
	eventsBySource map[models.SourceID][]models.SourceEvent,
	snap *registry.Snapshot,
	statuses map[models.SourceID]models.SourceStatus,
	authoritative models.SourceID,
) ([]models.CorrelatedEvent, error) {
	if st, ok := statuses[authoritative]; ok && !st.Contributes() {
		return nil, ErrAuthoritativeUnavailable
	}

	// Anchor a group on every authoritative event. Unresolved anchors are
	// retained: they still carry reference metadata for reporting, they
	// just cannot accept members or produce opportunities.
	type group struct {
		ce  models.CorrelatedEvent
		key string // unordered canonical pair, "" when unresolved
	}
	var groups []*group
	byPair := make(map[string]*group)

	for _, ev := range eventsBySource[authoritative] {
		ev.Home.IdentityID = resolveSide(snap, authoritative, authoritative, ev.Home.Raw)
		ev.Away.IdentityID = resolveSide(snap, authoritative, authoritative, ev.Away.Raw)

		g := &group{ce: models.CorrelatedEvent{
			Anchor:  ev,
			HomeID:  ev.Home.IdentityID,
			AwayID:  ev.Away.IdentityID,
			Members: make(map[models.SourceID]models.SourceEvent),
		}}
		if g.ce.PairResolved() {
			g.key = pairKey(g.ce.HomeID, g.ce.AwayID)
			if prev, dup := byPair[g.key]; dup {
				// Duplicate listing (e.g. live + prematch): keep the entry
				// with prices, then the most recently observed one.
				if prefer(ev, prev.ce.Anchor) {
					prev.ce.Anchor = ev
				}
				continue
			}
			byPair[g.key] = g
		}
		groups = append(groups, g)
	}

	// Attach non-authoritative contributions by unordered canonical pair.
	sources := make([]models.SourceID, 0, len(eventsBySource))
	for src := range eventsBySource {
		if src != authoritative {
			sources = append(sources, src)
		}
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i] < sources[j] })

	for _, src := range sources {
		if st, ok := statuses[src]; ok && !st.Contributes() {
			slog.Info("Correlator: source excluded for cycle", "source", src, "kind", st.Kind)
			continue
		}
		for _, ev := range eventsBySource[src] {
			ev.Home.IdentityID = resolveSide(snap, src, authoritative, ev.Home.Raw)
			ev.Away.IdentityID = resolveSide(snap, src, authoritative, ev.Away.Raw)
			if !ev.Home.Resolved() || !ev.Away.Resolved() {
				continue
			}
			g, ok := byPair[pairKey(ev.Home.IdentityID, ev.Away.IdentityID)]
			if !ok {
				continue
			}
			// Team order may differ between sources; re-orient prices to
			// the anchor's home/away assignment by canonical identity.
			if ev.Home.IdentityID == g.ce.AwayID {
				ev.Home, ev.Away = ev.Away, ev.Home
				ev.Prices = ev.Prices.Swapped()
			}
			if prev, dup := g.ce.Members[src]; !dup || prefer(ev, prev) {
				g.ce.Members[src] = ev
			}
		}
	}

	// Every group carries the full per-source status map so reporting can
	// show "data unavailable" for errored sources instead of blank odds.
	out := make([]models.CorrelatedEvent, 0, len(groups))
	for _, g := range groups {
		g.ce.Statuses = statuses
		out = append(out, g.ce)
	}
	sort.Slice(out, func(i, j int) bool {
		return sortKey(out[i]) < sortKey(out[j])
	})
	return out, nil
}

// resolveSide resolves one team reference. The authoritative source's own
// spellings resolve by exact canonical lookup; other sources go through
// their TeamMatch rows.
func resolveSide(snap *registry.Snapshot, src, authoritative models.SourceID, raw string) string {
	if src == authoritative {
		if ident, ok := snap.ResolveCanonical(raw); ok {
			return ident.ID
		}
		return ""
	}
	if ident, ok := snap.Resolve(src, raw); ok {
		return ident.ID
	}
	return ""
}

// prefer reports whether candidate should replace current for the same
// (group, source) slot: populated prices win, then the later observation.
func prefer(candidate, current models.SourceEvent) bool {
	candEmpty, curEmpty := candidate.Prices.Empty(), current.Prices.Empty()
	if candEmpty != curEmpty {
		return curEmpty
	}
	return candidate.ObservedAt.After(current.ObservedAt)
}

// pairKey builds an order-independent key for a canonical identity pair.
func pairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "|" + b
}

func sortKey(ce models.CorrelatedEvent) string {
	if ce.PairResolved() {
		return pairKey(ce.HomeID, ce.AwayID)
	}
	return "~" + ce.Anchor.Home.Raw + "|" + ce.Anchor.Away.Raw
}
