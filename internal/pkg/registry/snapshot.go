package registry

import (
	"github.com/harbibet/harbi/internal/pkg/models"
	"github.com/harbibet/harbi/internal/pkg/normalize"
)

// Snapshot is an immutable view of the registry, fixed for the whole of
// one correlation pass. A matching pass running concurrently with a
// correlation pass can never leave the correlator reading a partially
// updated registry.
type Snapshot struct {
	identities map[string]models.TeamIdentity
	byKey      map[string]string
	matches    map[models.SourceID]map[string]models.TeamMatch
}

// Snapshot copies the registry's current state.
func (r *Registry) Snapshot() *Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := &Snapshot{
		identities: make(map[string]models.TeamIdentity, len(r.identities)),
		byKey:      make(map[string]string, len(r.byKey)),
		matches:    make(map[models.SourceID]map[string]models.TeamMatch, len(r.matches)),
	}
	for id, ident := range r.identities {
		s.identities[id] = ident
	}
	for k, id := range r.byKey {
		s.byKey[k] = id
	}
	for src, bySource := range r.matches {
		cp := make(map[string]models.TeamMatch, len(bySource))
		for raw, m := range bySource {
			cp[raw] = m
		}
		s.matches[src] = cp
	}
	return s
}

// Identity returns a canonical identity by ID.
func (s *Snapshot) Identity(id string) (models.TeamIdentity, bool) {
	ident, ok := s.identities[id]
	return ident, ok
}

// ResolveCanonical resolves a raw name from the authoritative source by
// exact normalized lookup: the authoritative spelling defines the
// canonical identity, so no fuzzy step is involved.
func (s *Snapshot) ResolveCanonical(rawName string) (models.TeamIdentity, bool) {
	set, text, err := normalize.Normalize(rawName)
	if err != nil || text == "" {
		return models.TeamIdentity{}, false
	}
	id, ok := s.byKey[identityKey(set, text)]
	if !ok {
		return models.TeamIdentity{}, false
	}
	return s.identities[id], true
}

// Resolve resolves a non-authoritative source's raw name through its
// TeamMatch row.
func (s *Snapshot) Resolve(source models.SourceID, rawName string) (models.TeamIdentity, bool) {
	m, ok := s.matches[source][rawName]
	if !ok {
		return models.TeamIdentity{}, false
	}
	ident, ok := s.identities[m.IdentityID]
	return ident, ok
}
