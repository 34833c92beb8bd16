// Package matcher links one source's raw team names to canonical
// identities using indicator-gated fuzzy matching.
package matcher

import (
	"log/slog"
	"sort"
	"time"

	"github.com/harbibet/harbi/internal/pkg/models"
	"github.com/harbibet/harbi/internal/pkg/normalize"
	"github.com/harbibet/harbi/internal/pkg/registry"
	"github.com/harbibet/harbi/internal/pkg/similarity"
)

// DefaultMinConfidence is the general matching threshold. Callers doing
// automatic high-confidence linking (e.g. event-level double confirmation)
// pass 100 instead; the threshold is always an explicit parameter.
const DefaultMinConfidence = 60

// TieBreak records that two or more canonical candidates tied on maximum
// similarity and the lexicographically-first display name was selected.
// Informational, for audit; not an error.
type TieBreak struct {
	Source     models.SourceID
	RawName    string
	Chosen     string
	Contenders []string
	Score      int
}

// Result summarizes one matching pass over a source's raw names.
type Result struct {
	Matches    []models.TeamMatch
	Unresolved []string // below threshold or empty candidate pool
	Ambiguous  []string // conflicting indicator markers, never guessed
	TieBreaks  []TieBreak
}

// MatchAll matches every raw name against the registry and writes accepted
// matches into it, respecting the supersede rules. An unmatched raw name
// is not an error; it is simply absent from the registry for this cycle.
func MatchAll(reg *registry.Registry, source models.SourceID, rawNames []string, minConfidence int) Result {
	var res Result

	// Dedupe and sort for deterministic processing order.
	seen := make(map[string]struct{}, len(rawNames))
	names := make([]string, 0, len(rawNames))
	for _, raw := range rawNames {
		if raw == "" {
			continue
		}
		if _, dup := seen[raw]; dup {
			continue
		}
		seen[raw] = struct{}{}
		names = append(names, raw)
	}
	sort.Strings(names)

	now := time.Now().UTC()
	for _, raw := range names {
		set, text, err := normalize.Normalize(raw)
		if err != nil {
			slog.Warn("Matcher: ambiguous indicators, skipping", "source", source, "raw", raw)
			res.Ambiguous = append(res.Ambiguous, raw)
			continue
		}
		if text == "" {
			res.Unresolved = append(res.Unresolved, raw)
			continue
		}

		// Indicator gating: only identities with the exact same indicator
		// set are candidates. A reserve-squad name can never match a
		// first-team identity, however similar the text.
		pool := reg.Candidates(set)
		best, contenders := bestCandidate(text, pool)
		if best == nil || contenders[0].score < minConfidence {
			res.Unresolved = append(res.Unresolved, raw)
			continue
		}
		if len(contenders) > 1 {
			tb := TieBreak{Source: source, RawName: raw, Chosen: best.DisplayName, Score: contenders[0].score}
			for _, c := range contenders {
				tb.Contenders = append(tb.Contenders, c.ident.DisplayName)
			}
			res.TieBreaks = append(res.TieBreaks, tb)
			slog.Info("Matcher: similarity tie broken lexicographically",
				"source", source, "raw", raw, "chosen", tb.Chosen, "contenders", len(tb.Contenders))
		}

		m := models.TeamMatch{
			Source:     source,
			RawName:    raw,
			IdentityID: best.ID,
			Confidence: contenders[0].score,
			Origin:     models.OriginAutomatic,
			UpdatedAt:  now,
		}
		if reg.Upsert(m) {
			res.Matches = append(res.Matches, m)
		}
	}
	return res
}

type scored struct {
	ident models.TeamIdentity
	score int
}

// bestCandidate scores the normalized text against every candidate and
// returns the winner plus all candidates tied on the maximum score, sorted
// by display name. Ties resolve to the lexicographically-first canonical
// name, a documented deterministic choice.
func bestCandidate(text string, pool []models.TeamIdentity) (*models.TeamIdentity, []scored) {
	maxScore := -1
	var top []scored
	for _, ident := range pool {
		s := similarity.Ratio(text, ident.NormName)
		switch {
		case s > maxScore:
			maxScore = s
			top = top[:0]
			top = append(top, scored{ident, s})
		case s == maxScore:
			top = append(top, scored{ident, s})
		}
	}
	if len(top) == 0 {
		return nil, nil
	}
	sort.Slice(top, func(i, j int) bool { return top[i].ident.DisplayName < top[j].ident.DisplayName })
	winner := top[0].ident
	return &winner, top
}
