// Package registry holds the master set of canonical team identities and
// the per-source raw-name mappings produced by matching.
package registry

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/harbibet/harbi/internal/pkg/models"
	"github.com/harbibet/harbi/internal/pkg/normalize"
)

// Namespace for deterministic identity IDs: the same canonical team gets
// the same UUID across runs, so persisted TeamMatch rows stay valid after
// the identity set is re-derived.
var teamNamespace = uuid.MustParse("9f2c1a4e-5b3d-4c6f-8a70-1e2d3c4b5a69")

// identityKey is the lookup key for a canonical identity: indicator set
// plus normalized text.
func identityKey(set models.IndicatorSet, norm string) string {
	return set.String() + "|" + norm
}

// Registry is the explicit master-key object passed into every component
// call. It is rebuilt or refreshed once per matching pass and read
// thereafter; the correlator only ever sees an immutable Snapshot.
type Registry struct {
	mu         sync.RWMutex
	identities map[string]models.TeamIdentity // by ID
	byKey      map[string]string              // identityKey -> ID
	matches    map[models.SourceID]map[string]models.TeamMatch
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		identities: make(map[string]models.TeamIdentity),
		byKey:      make(map[string]string),
		matches:    make(map[models.SourceID]map[string]models.TeamMatch),
	}
}

// Seed derives canonical identities from the authoritative source's team
// list. This is the only permitted origin of TeamIdentity rows. Existing
// identities are kept (IDs are deterministic, so reseeding the same name
// is a no-op); names with ambiguous indicators are skipped, not guessed.
// Returns the number of identities added.
func (r *Registry) Seed(rawNames []string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	added := 0
	for _, raw := range rawNames {
		set, text, err := normalize.Normalize(raw)
		if err != nil {
			slog.Warn("Registry: skipping authoritative name with ambiguous indicators", "raw", raw)
			continue
		}
		if text == "" {
			continue
		}
		key := identityKey(set, text)
		if _, exists := r.byKey[key]; exists {
			continue
		}
		id := uuid.NewSHA1(teamNamespace, []byte(key)).String()
		r.identities[id] = models.TeamIdentity{
			ID:          id,
			DisplayName: raw,
			NormName:    text,
			Indicators:  set,
		}
		r.byKey[key] = id
		added++
	}
	return added
}

// Identity returns a canonical identity by ID.
func (r *Registry) Identity(id string) (models.TeamIdentity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ident, ok := r.identities[id]
	return ident, ok
}

// Candidates returns the identities whose indicator set exactly equals the
// given one, sorted by display name for deterministic iteration. This is
// the matcher's hard pre-filter pool.
func (r *Registry) Candidates(set models.IndicatorSet) []models.TeamIdentity {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var pool []models.TeamIdentity
	for _, ident := range r.identities {
		if ident.Indicators.Equal(set) {
			pool = append(pool, ident)
		}
	}
	sort.Slice(pool, func(i, j int) bool { return pool[i].DisplayName < pool[j].DisplayName })
	return pool
}

// Match returns the active TeamMatch for a (source, raw name) pair.
func (r *Registry) Match(source models.SourceID, rawName string) (models.TeamMatch, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.matches[source][rawName]
	return m, ok
}

// Upsert applies the supersede rules for a new TeamMatch:
//
//   - manual-reviewed rows are never overwritten by an automatic match,
//     whatever its score;
//   - an automatic row is replaced only by a strictly higher-confidence
//     automatic match;
//   - manual rows may replace anything (a later review wins).
//
// Rows are superseded, never deleted. Returns whether the row was applied.
func (r *Registry) Upsert(m models.TeamMatch) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if m.RawName == "" || m.IdentityID == "" {
		return false
	}
	bySource, ok := r.matches[m.Source]
	if !ok {
		bySource = make(map[string]models.TeamMatch)
		r.matches[m.Source] = bySource
	}

	existing, exists := bySource[m.RawName]
	if exists && m.Origin == models.OriginAutomatic {
		if existing.Origin == models.OriginManual {
			return false
		}
		if m.Confidence <= existing.Confidence {
			return false
		}
	}
	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = time.Now().UTC()
	}
	bySource[m.RawName] = m
	return true
}

// ImportManual loads manual-review rows (confidence 100) before automatic
// matching so they are never downgraded. Rows referencing unknown
// identities are dropped with a warning.
func (r *Registry) ImportManual(rows []models.TeamMatch) int {
	applied := 0
	for _, row := range rows {
		if _, ok := r.Identity(row.IdentityID); !ok {
			slog.Warn("Registry: manual row references unknown identity",
				"source", row.Source, "raw", row.RawName, "identity", row.IdentityID)
			continue
		}
		row.Origin = models.OriginManual
		if row.Confidence == 0 {
			row.Confidence = 100
		}
		if r.Upsert(row) {
			applied++
		}
	}
	return applied
}

// Matches returns all active TeamMatch rows, sorted by (source, raw name),
// for persistence and inspection.
func (r *Registry) Matches() []models.TeamMatch {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []models.TeamMatch
	for _, bySource := range r.matches {
		for _, m := range bySource {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Source != out[j].Source {
			return out[i].Source < out[j].Source
		}
		return out[i].RawName < out[j].RawName
	})
	return out
}

// Identities returns every canonical identity, sorted by display name.
func (r *Registry) Identities() []models.TeamIdentity {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.TeamIdentity, 0, len(r.identities))
	for _, ident := range r.identities {
		out = append(out, ident)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayName < out[j].DisplayName })
	return out
}

// IdentityCount returns the number of canonical identities.
func (r *Registry) IdentityCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.identities)
}
