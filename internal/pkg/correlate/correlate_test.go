package correlate

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/harbibet/harbi/internal/pkg/models"
	"github.com/harbibet/harbi/internal/pkg/registry"
)

const authSource = models.SourceID("oddswar")

// fixture seeds Arsenal and Chelsea and links the "* FC" spellings for
// one traditional book.
func fixture(t *testing.T) (*registry.Registry, map[string]string) {
	t.Helper()
	reg := registry.New()
	reg.Seed([]string{"Arsenal", "Chelsea", "Liverpool"})

	ids := make(map[string]string)
	for _, ident := range reg.Identities() {
		ids[ident.DisplayName] = ident.ID
	}
	for raw, display := range map[string]string{
		"Arsenal FC": "Arsenal", "Chelsea FC": "Chelsea", "Liverpool FC": "Liverpool",
	} {
		reg.Upsert(models.TeamMatch{
			Source: "stoiximan", RawName: raw,
			IdentityID: ids[display], Confidence: 82, Origin: models.OriginAutomatic,
		})
	}
	return reg, ids
}

func threeWay(model models.PriceModel, home, draw, away string) models.Prices {
	return models.Prices{Kind: model, Odds: map[models.Outcome]decimal.Decimal{
		models.OutcomeHome: decimal.RequireFromString(home),
		models.OutcomeDraw: decimal.RequireFromString(draw),
		models.OutcomeAway: decimal.RequireFromString(away),
	}}
}

func event(src models.SourceID, home, away string, prices models.Prices) models.SourceEvent {
	return models.SourceEvent{
		Source: src,
		Home:   models.TeamRef{Raw: home},
		Away:   models.TeamRef{Raw: away},
		Prices: prices,
	}
}

func okStatuses() map[models.SourceID]models.SourceStatus {
	return map[models.SourceID]models.SourceStatus{
		authSource:  models.StatusOK(),
		"stoiximan": models.StatusOK(),
	}
}

func TestCorrelate_GroupsByCanonicalPair(t *testing.T) {
	reg, ids := fixture(t)
	events := map[models.SourceID][]models.SourceEvent{
		authSource:  {event(authSource, "Arsenal", "Chelsea", threeWay(models.PriceLay3Way, "2.0", "3.4", "3.8"))},
		"stoiximan": {event("stoiximan", "Arsenal FC", "Chelsea FC", threeWay(models.PriceBack3Way, "2.3", "3.3", "3.9"))},
	}

	groups, err := Correlate(events, reg.Snapshot(), okStatuses(), authSource)
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 1 {
		t.Fatalf("groups = %d, want 1", len(groups))
	}
	g := groups[0]
	if g.HomeID != ids["Arsenal"] || g.AwayID != ids["Chelsea"] {
		t.Errorf("anchor pair = (%s, %s), want Arsenal/Chelsea", g.HomeID, g.AwayID)
	}
	member, ok := g.Members["stoiximan"]
	if !ok {
		t.Fatal("stoiximan member missing")
	}
	home, _ := member.Prices.Get(models.OutcomeHome)
	if !home.Equal(decimal.RequireFromString("2.3")) {
		t.Errorf("member home price = %s, want 2.3", home)
	}
}

func TestCorrelate_ReversedTeamOrder(t *testing.T) {
	reg, ids := fixture(t)
	events := map[models.SourceID][]models.SourceEvent{
		authSource:  {event(authSource, "Arsenal", "Chelsea", threeWay(models.PriceLay3Way, "2.0", "3.4", "3.8"))},
		"stoiximan": {event("stoiximan", "Chelsea FC", "Arsenal FC", threeWay(models.PriceBack3Way, "3.9", "3.3", "2.3"))},
	}

	groups, err := Correlate(events, reg.Snapshot(), okStatuses(), authSource)
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 1 {
		t.Fatalf("groups = %d, want 1", len(groups))
	}
	member, ok := groups[0].Members["stoiximan"]
	if !ok {
		t.Fatal("reversed listing should still join its group")
	}
	if member.Home.IdentityID != ids["Arsenal"] {
		t.Error("member sides not re-oriented to the anchor's order")
	}
	home, _ := member.Prices.Get(models.OutcomeHome)
	away, _ := member.Prices.Get(models.OutcomeAway)
	if !home.Equal(decimal.RequireFromString("2.3")) || !away.Equal(decimal.RequireFromString("3.9")) {
		t.Errorf("prices not swapped with the sides: home %s away %s", home, away)
	}
}

func TestCorrelate_ErroredSourceExcluded(t *testing.T) {
	reg, _ := fixture(t)
	events := map[models.SourceID][]models.SourceEvent{
		authSource:  {event(authSource, "Arsenal", "Chelsea", threeWay(models.PriceLay3Way, "2.0", "3.4", "3.8"))},
		"stoiximan": {event("stoiximan", "Arsenal FC", "Chelsea FC", threeWay(models.PriceBack3Way, "2.3", "3.3", "3.9"))},
	}
	statuses := okStatuses()
	statuses["stoiximan"] = models.StatusError(models.ErrorGeoblock, "403 from edge")

	groups, err := Correlate(events, reg.Snapshot(), statuses, authSource)
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 1 {
		t.Fatalf("groups = %d, want 1", len(groups))
	}
	if len(groups[0].Members) != 0 {
		t.Errorf("errored source contributed members: %v", groups[0].Members)
	}
	st := groups[0].Statuses["stoiximan"]
	if st.State != models.SourceError || st.Kind != models.ErrorGeoblock {
		t.Errorf("group status = %+v, want the geoblock error", st)
	}
}

func TestCorrelate_AuthoritativeErrorAbortsCycle(t *testing.T) {
	reg, _ := fixture(t)
	statuses := okStatuses()
	statuses[authSource] = models.StatusError(models.ErrorTimeout, "deadline exceeded")

	_, err := Correlate(nil, reg.Snapshot(), statuses, authSource)
	if !errors.Is(err, ErrAuthoritativeUnavailable) {
		t.Errorf("err = %v, want ErrAuthoritativeUnavailable", err)
	}
}

func TestCorrelate_UnresolvedAnchorRetained(t *testing.T) {
	reg, _ := fixture(t)
	events := map[models.SourceID][]models.SourceEvent{
		authSource:  {event(authSource, "Zenit", "Spartak", threeWay(models.PriceLay3Way, "1.8", "3.6", "4.2"))},
		"stoiximan": {event("stoiximan", "Arsenal FC", "Chelsea FC", threeWay(models.PriceBack3Way, "2.3", "3.3", "3.9"))},
	}

	groups, err := Correlate(events, reg.Snapshot(), okStatuses(), authSource)
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 1 {
		t.Fatalf("groups = %d, want 1", len(groups))
	}
	g := groups[0]
	if g.PairResolved() {
		t.Error("unknown anchor teams must not resolve")
	}
	if len(g.Members) != 0 {
		t.Errorf("unresolved anchor accepted members: %v", g.Members)
	}
	if g.Anchor.Home.Raw != "Zenit" {
		t.Errorf("anchor metadata lost: %+v", g.Anchor)
	}
}

func TestCorrelate_DuplicateAnchorPrefersPopulatedThenLatest(t *testing.T) {
	reg, _ := fixture(t)

	empty := event(authSource, "Arsenal", "Chelsea", models.Prices{Kind: models.PriceLay3Way})
	early := event(authSource, "Arsenal", "Chelsea", threeWay(models.PriceLay3Way, "2.0", "3.4", "3.8"))
	early.ObservedAt = time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	late := event(authSource, "Arsenal", "Chelsea", threeWay(models.PriceLay3Way, "2.1", "3.4", "3.7"))
	late.ObservedAt = early.ObservedAt.Add(time.Minute)

	events := map[models.SourceID][]models.SourceEvent{
		authSource: {empty, early, late},
	}
	groups, err := Correlate(events, reg.Snapshot(), okStatuses(), authSource)
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 1 {
		t.Fatalf("groups = %d, want 1 after anchor dedupe", len(groups))
	}
	home, _ := groups[0].Anchor.Prices.Get(models.OutcomeHome)
	if !home.Equal(decimal.RequireFromString("2.1")) {
		t.Errorf("anchor home price = %s, want the latest populated listing (2.1)", home)
	}
}

func TestCorrelate_MemberWithoutAnchorDropped(t *testing.T) {
	reg, _ := fixture(t)
	events := map[models.SourceID][]models.SourceEvent{
		authSource:  {event(authSource, "Arsenal", "Chelsea", threeWay(models.PriceLay3Way, "2.0", "3.4", "3.8"))},
		"stoiximan": {event("stoiximan", "Liverpool FC", "Chelsea FC", threeWay(models.PriceBack3Way, "2.5", "3.2", "3.1"))},
	}

	groups, err := Correlate(events, reg.Snapshot(), okStatuses(), authSource)
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 1 || len(groups[0].Members) != 0 {
		t.Errorf("a pair with no anchor must not form or join a group: %+v", groups)
	}
}

func TestCorrelate_DeterministicOrder(t *testing.T) {
	reg, _ := fixture(t)
	events := map[models.SourceID][]models.SourceEvent{
		authSource: {
			event(authSource, "Liverpool", "Chelsea", threeWay(models.PriceLay3Way, "2.4", "3.3", "3.1")),
			event(authSource, "Arsenal", "Chelsea", threeWay(models.PriceLay3Way, "2.0", "3.4", "3.8")),
		},
	}

	a, err := Correlate(events, reg.Snapshot(), okStatuses(), authSource)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Correlate(events, reg.Snapshot(), okStatuses(), authSource)
	if err != nil {
		t.Fatal(err)
	}
	if len(a) != 2 || len(b) != 2 {
		t.Fatalf("groups = %d/%d, want 2/2", len(a), len(b))
	}
	for i := range a {
		if a[i].Anchor.Home.Raw != b[i].Anchor.Home.Raw {
			t.Errorf("ordering not deterministic at %d: %q vs %q", i, a[i].Anchor.Home.Raw, b[i].Anchor.Home.Raw)
		}
	}
}
