package models

import (
	"time"
)

// SourceID identifies one betting source ("oddswar", "stoiximan", ...).
type SourceID string

// IndicatorSet holds the structured qualifiers extracted from a raw team
// name before fuzzy comparison. A name carries at most one age bracket and
// independently at most one gender and one reserve marker.
type IndicatorSet struct {
	Age     string `json:"age,omitempty"` // "U17", "U19", "U20", "U21", "U23"
	Women   bool   `json:"women,omitempty"`
	Reserve bool   `json:"reserve,omitempty"` // "II" and "B" collapse here
}

// Equal reports whether two indicator sets are exactly the same.
// Matching uses this as a hard pre-filter, never as a scoring weight.
func (s IndicatorSet) Equal(o IndicatorSet) bool {
	return s.Age == o.Age && s.Women == o.Women && s.Reserve == o.Reserve
}

// Empty reports whether no indicator was extracted.
func (s IndicatorSet) Empty() bool {
	return s.Age == "" && !s.Women && !s.Reserve
}

func (s IndicatorSet) String() string {
	out := ""
	if s.Age != "" {
		out += s.Age
	}
	if s.Women {
		if out != "" {
			out += "+"
		}
		out += "W"
	}
	if s.Reserve {
		if out != "" {
			out += "+"
		}
		out += "II"
	}
	if out == "" {
		return "-"
	}
	return out
}

// TeamIdentity is a canonical team. Rows are created only from the
// authoritative source's team list and are immutable within a matching run.
type TeamIdentity struct {
	ID          string       `json:"id"`
	DisplayName string       `json:"display_name"` // as published by the authoritative source
	NormName    string       `json:"norm_name"`    // normalized text used for similarity
	Indicators  IndicatorSet `json:"indicators"`
}

// MatchOrigin tells whether a TeamMatch came from automatic matching or
// from a manual review import.
type MatchOrigin string

const (
	OriginAutomatic MatchOrigin = "automatic"
	OriginManual    MatchOrigin = "manual-reviewed"
)

// TeamMatch links one source's raw spelling to a canonical identity.
// For a given (source, raw name) pair there is at most one active row;
// manual-reviewed rows are never overwritten by automatic matching.
type TeamMatch struct {
	Source     SourceID    `json:"source"`
	RawName    string      `json:"raw_name"`
	IdentityID string      `json:"identity_id"`
	Confidence int         `json:"confidence"` // 0-100
	Origin     MatchOrigin `json:"origin"`
	UpdatedAt  time.Time   `json:"updated_at"`
}
