package models

import (
	"time"
)

// TeamRef is one side of a source event: the raw name as the source printed
// it, plus the canonical identity once resolution succeeded.
type TeamRef struct {
	Raw        string `json:"raw"`
	IdentityID string `json:"identity_id,omitempty"`
}

// Resolved reports whether the reference points at a canonical identity.
func (r TeamRef) Resolved() bool {
	return r.IdentityID != ""
}

// SourceEvent is one fixture as reported by one source during one collection
// cycle. Events are rebuilt every cycle and never persisted by the core.
type SourceEvent struct {
	Source     SourceID  `json:"source"`
	Home       TeamRef   `json:"home"`
	Away       TeamRef   `json:"away"`
	Prices     Prices    `json:"prices"`
	Link       string    `json:"link"`
	StartTime  time.Time `json:"start_time,omitempty"`
	Live       bool      `json:"live"`
	ObservedAt time.Time `json:"observed_at"`
}

// CorrelatedEvent groups source events that reference the same fixture,
// at most one per source. The authoritative member anchors the group and
// supplies reference metadata; the others contribute prices only.
type CorrelatedEvent struct {
	Anchor SourceEvent `json:"anchor"`

	// Canonical pair resolved from the anchor. Either may be empty when the
	// authoritative raw name could not be matched; such groups carry no
	// non-authoritative members.
	HomeID string `json:"home_id,omitempty"`
	AwayID string `json:"away_id,omitempty"`

	// Members holds the non-authoritative contributions, keyed by source,
	// with prices already re-oriented to the anchor's home/away order.
	Members map[SourceID]SourceEvent `json:"members,omitempty"`

	// Statuses carries the per-source cycle status so reporting can show
	// "data unavailable" instead of blank odds for failed sources.
	Statuses map[SourceID]SourceStatus `json:"statuses,omitempty"`
}

// PairResolved reports whether both anchor sides resolved to identities.
func (c CorrelatedEvent) PairResolved() bool {
	return c.HomeID != "" && c.AwayID != ""
}
