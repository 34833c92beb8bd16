package arbitrage

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/harbibet/harbi/internal/pkg/models"
)

var testNow = time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

func prices(model models.PriceModel, odds map[models.Outcome]string) models.Prices {
	p := models.Prices{Kind: model, Odds: make(map[models.Outcome]decimal.Decimal, len(odds))}
	for o, v := range odds {
		p.Odds[o] = decimal.RequireFromString(v)
	}
	return p
}

func correlated(anchor models.Prices, members map[models.SourceID]models.Prices) models.CorrelatedEvent {
	ce := models.CorrelatedEvent{
		Anchor: models.SourceEvent{
			Source: "oddswar",
			Home:   models.TeamRef{Raw: "Arsenal", IdentityID: "id-a"},
			Away:   models.TeamRef{Raw: "Chelsea", IdentityID: "id-c"},
			Prices: anchor,
			Link:   "https://exchange.example/ev/1",
		},
		HomeID:  "id-a",
		AwayID:  "id-c",
		Members: make(map[models.SourceID]models.SourceEvent),
	}
	for src, p := range members {
		ce.Members[src] = models.SourceEvent{Source: src, Prices: p}
	}
	return ce
}

func TestEvaluate_SpreadAndProfitFlag(t *testing.T) {
	tests := []struct {
		name       string
		back       string
		spread     string
		profitable bool
	}{
		{"back above lay", "2.20", "0.1", true},
		{"back below lay", "1.90", "-0.05", false},
		{"back equals lay", "2.00", "0", false},
	}
	for _, tt := range tests {
		ce := correlated(
			prices(models.PriceLay3Way, map[models.Outcome]string{models.OutcomeHome: "2.00"}),
			map[models.SourceID]models.Prices{
				"stoiximan": prices(models.PriceBack3Way, map[models.Outcome]string{models.OutcomeHome: tt.back}),
			},
		)
		out := Evaluate(ce, DefaultMinEdge, testNow)
		if len(out) != 1 {
			t.Fatalf("%s: rows = %d, want 1", tt.name, len(out))
		}
		op := out[0]
		if !op.Spread.Equal(decimal.RequireFromString(tt.spread)) {
			t.Errorf("%s: spread = %s, want %s", tt.name, op.Spread, tt.spread)
		}
		if op.Profitable != tt.profitable {
			t.Errorf("%s: profitable = %v, want %v", tt.name, op.Profitable, tt.profitable)
		}
		if op.Outcome != models.OutcomeHome || op.BackSource != "stoiximan" || op.LaySource != "oddswar" {
			t.Errorf("%s: wrong attribution: %+v", tt.name, op)
		}
	}
}

func TestEvaluate_MinEdgeFiltersThinSpreads(t *testing.T) {
	ce := correlated(
		prices(models.PriceLay3Way, map[models.Outcome]string{models.OutcomeAway: "3.80"}),
		map[models.SourceID]models.Prices{
			"roobet": prices(models.PriceBack3Way, map[models.Outcome]string{models.OutcomeAway: "3.90"}),
		},
	)

	// spread = 3.9/3.8 - 1 ~ 0.0263
	thin := Evaluate(ce, decimal.NewFromFloat(0.05), testNow)
	if len(thin) != 1 || thin[0].Profitable {
		t.Errorf("2.6%% spread must not pass a 5%% edge threshold: %+v", thin)
	}
	wide := Evaluate(ce, DefaultMinEdge, testNow)
	if len(wide) != 1 || !wide[0].Profitable {
		t.Errorf("2.6%% spread should pass the default threshold: %+v", wide)
	}
}

func TestEvaluate_MissingOutcomesSkipped(t *testing.T) {
	ce := correlated(
		prices(models.PriceLay3Way, map[models.Outcome]string{
			models.OutcomeHome: "2.00",
			models.OutcomeDraw: "3.40",
		}),
		map[models.SourceID]models.Prices{
			"stoiximan": prices(models.PriceBack3Way, map[models.Outcome]string{
				models.OutcomeHome: "2.30",
				models.OutcomeAway: "3.90", // no lay quote for away
			}),
		},
	)

	out := Evaluate(ce, DefaultMinEdge, testNow)
	if len(out) != 1 {
		t.Fatalf("rows = %d, want 1 (only the outcome both sides quote)", len(out))
	}
	if out[0].Outcome != models.OutcomeHome {
		t.Errorf("outcome = %s, want home", out[0].Outcome)
	}
}

func TestEvaluate_TwoWayMarket(t *testing.T) {
	ce := correlated(
		prices(models.PriceLay2Way, map[models.Outcome]string{
			models.OutcomeSideA: "1.70",
			models.OutcomeSideB: "2.10",
		}),
		map[models.SourceID]models.Prices{
			"tumbet": prices(models.PriceBack2Way, map[models.Outcome]string{
				models.OutcomeSideA: "1.87",
				models.OutcomeSideB: "2.05",
			}),
		},
	)

	out := Evaluate(ce, DefaultMinEdge, testNow)
	if len(out) != 2 {
		t.Fatalf("rows = %d, want 2", len(out))
	}
	bySide := make(map[models.Outcome]models.ArbitrageOpportunity)
	for _, op := range out {
		bySide[op.Outcome] = op
	}
	if !bySide[models.OutcomeSideA].Profitable {
		t.Error("side_a 1.87 over 1.70 should be profitable")
	}
	if bySide[models.OutcomeSideB].Profitable {
		t.Error("side_b 2.05 under 2.10 must not be profitable")
	}
}

func TestEvaluate_RequiresLayAnchor(t *testing.T) {
	ce := correlated(
		prices(models.PriceBack3Way, map[models.Outcome]string{models.OutcomeHome: "2.00"}),
		map[models.SourceID]models.Prices{
			"stoiximan": prices(models.PriceBack3Way, map[models.Outcome]string{models.OutcomeHome: "2.30"}),
		},
	)
	if out := Evaluate(ce, DefaultMinEdge, testNow); out != nil {
		t.Errorf("back-quoting anchor must not be evaluated: %+v", out)
	}
}

func TestEvaluate_NoMembersNoRows(t *testing.T) {
	ce := correlated(prices(models.PriceLay3Way, map[models.Outcome]string{models.OutcomeHome: "2.00"}), nil)
	if out := Evaluate(ce, DefaultMinEdge, testNow); out != nil {
		t.Errorf("group without members produced rows: %+v", out)
	}
}

func TestEvaluate_Pure(t *testing.T) {
	ce := correlated(
		prices(models.PriceLay3Way, map[models.Outcome]string{models.OutcomeHome: "2.00"}),
		map[models.SourceID]models.Prices{
			"stoiximan": prices(models.PriceBack3Way, map[models.Outcome]string{models.OutcomeHome: "2.30"}),
		},
	)
	a := Evaluate(ce, DefaultMinEdge, testNow)
	b := Evaluate(ce, DefaultMinEdge, testNow)
	if len(a) != 1 || len(b) != 1 {
		t.Fatalf("rows = %d/%d, want 1/1", len(a), len(b))
	}
	if !a[0].Spread.Equal(b[0].Spread) || !a[0].FoundAt.Equal(b[0].FoundAt) || a[0].ID != "" {
		t.Errorf("repeat evaluation differs or ID assigned internally: %+v vs %+v", a[0], b[0])
	}
}
