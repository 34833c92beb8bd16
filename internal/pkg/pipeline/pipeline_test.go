package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/harbibet/harbi/internal/pkg/collect"
	"github.com/harbibet/harbi/internal/pkg/correlate"
	"github.com/harbibet/harbi/internal/pkg/models"
	"github.com/harbibet/harbi/internal/pkg/registry"
)

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

// Full cycle over a known fixture: the exchange lists Arsenal vs Chelsea
// with lay prices, one traditional book lists the same fixture under its
// own spellings with back prices. One outcome carries a wide spread.
func TestRunCycle_EndToEnd(t *testing.T) {
	collectors := []collect.Collector{
		collect.Static{ID: "oddswar", Events: []models.SourceEvent{
			event("oddswar", "Arsenal", "Chelsea", threeWay(models.PriceLay3Way, "2.0", "3.4", "3.8")),
		}},
		collect.Static{ID: "stoiximan", Events: []models.SourceEvent{
			event("stoiximan", "Arsenal FC", "Chelsea FC", threeWay(models.PriceBack3Way, "2.3", "3.3", "3.9")),
		}},
	}

	p := New(registry.New(), "oddswar", 0, decimal.NewFromFloat(0.05))
	rep, err := p.RunCycle(context.Background(), collectors)
	if err != nil {
		t.Fatal(err)
	}

	if rep.Stats.Identities != 2 {
		t.Errorf("identities = %d, want 2", rep.Stats.Identities)
	}
	if rep.Stats.NewMatches != 2 {
		t.Errorf("new matches = %d, want 2", rep.Stats.NewMatches)
	}
	if len(rep.Events) != 1 {
		t.Fatalf("correlated events = %d, want 1", len(rep.Events))
	}
	if len(rep.Events[0].Members) != 1 {
		t.Fatalf("members = %d, want 1", len(rep.Events[0].Members))
	}
	if len(rep.Opportunities) != 3 {
		t.Fatalf("opportunities = %d, want 3 (one per shared outcome)", len(rep.Opportunities))
	}

	profitable := rep.Profitable()
	if len(profitable) != 1 {
		t.Fatalf("profitable = %d, want exactly 1", len(profitable))
	}
	best := profitable[0]
	if best.Outcome != models.OutcomeHome {
		t.Errorf("profitable outcome = %s, want home", best.Outcome)
	}
	// 2.3 / 2.0 - 1 = 0.15
	if !best.Spread.Equal(decimal.RequireFromString("0.15")) {
		t.Errorf("spread = %s, want 0.15", best.Spread)
	}
	if best.ID == "" {
		t.Error("pipeline should assign opportunity IDs")
	}
	if best.HomeName != "Arsenal" || best.AwayName != "Chelsea" {
		t.Errorf("display names = %q / %q, want the authoritative spellings", best.HomeName, best.AwayName)
	}
}

func TestRunCycle_ErroredSourceIsLocal(t *testing.T) {
	collectors := []collect.Collector{
		collect.Static{ID: "oddswar", Events: []models.SourceEvent{
			event("oddswar", "Arsenal", "Chelsea", threeWay(models.PriceLay3Way, "2.0", "3.4", "3.8")),
		}},
		collect.Static{ID: "stoiximan", Events: []models.SourceEvent{
			event("stoiximan", "Arsenal FC", "Chelsea FC", threeWay(models.PriceBack3Way, "2.3", "3.3", "3.9")),
		}},
		collect.Static{ID: "roobet", Status: models.StatusError(models.ErrorGeoblock, "blocked")},
	}

	p := New(registry.New(), "oddswar", 0, decimal.NewFromFloat(0.05))
	rep, err := p.RunCycle(context.Background(), collectors)
	if err != nil {
		t.Fatalf("one failed book must not fail the cycle: %v", err)
	}
	if len(rep.Events) != 1 || len(rep.Events[0].Members) != 1 {
		t.Fatalf("surviving sources should still correlate: %+v", rep.Events)
	}
	if st := rep.Statuses["roobet"]; st.State != models.SourceError {
		t.Errorf("roobet status = %+v, want error", st)
	}
	if len(rep.Profitable()) != 1 {
		t.Errorf("profitable = %d, want 1", len(rep.Profitable()))
	}
}

func TestRunCycle_AuthoritativeFailureEscalates(t *testing.T) {
	collectors := []collect.Collector{
		collect.Static{ID: "oddswar", Status: models.StatusError(models.ErrorTimeout, "deadline")},
		collect.Static{ID: "stoiximan", Events: []models.SourceEvent{
			event("stoiximan", "Arsenal FC", "Chelsea FC", threeWay(models.PriceBack3Way, "2.3", "3.3", "3.9")),
		}},
	}

	p := New(registry.New(), "oddswar", 0, decimal.NewFromFloat(0.05))
	rep, err := p.RunCycle(context.Background(), collectors)
	if !errors.Is(err, correlate.ErrAuthoritativeUnavailable) {
		t.Fatalf("err = %v, want ErrAuthoritativeUnavailable", err)
	}
	if rep == nil || rep.Statuses["oddswar"].State != models.SourceError {
		t.Error("report should still carry statuses when the cycle aborts")
	}
}

func TestRunCycle_RegistryPersistsAcrossCycles(t *testing.T) {
	reg := registry.New()
	p := New(reg, "oddswar", 0, decimal.NewFromFloat(0.05))

	first := []collect.Collector{
		collect.Static{ID: "oddswar", Events: []models.SourceEvent{
			event("oddswar", "Arsenal", "Chelsea", threeWay(models.PriceLay3Way, "2.0", "3.4", "3.8")),
		}},
		collect.Static{ID: "stoiximan", Events: []models.SourceEvent{
			event("stoiximan", "Arsenal FC", "Chelsea FC", threeWay(models.PriceBack3Way, "2.3", "3.3", "3.9")),
		}},
	}
	if _, err := p.RunCycle(context.Background(), first); err != nil {
		t.Fatal(err)
	}

	// Second cycle re-lists the same teams: nothing new to learn.
	rep, err := p.RunCycle(context.Background(), first)
	if err != nil {
		t.Fatal(err)
	}
	if rep.Stats.Identities != 2 {
		t.Errorf("identities = %d, want 2 (reseed is a no-op)", rep.Stats.Identities)
	}
	if rep.Stats.NewMatches != 0 {
		t.Errorf("new matches = %d, want 0 (equal confidence does not supersede)", rep.Stats.NewMatches)
	}
	if _, ok := reg.Match("stoiximan", "Arsenal FC"); !ok {
		t.Error("match rows should survive across cycles")
	}
}
