package models

import (
	"github.com/shopspring/decimal"
)

// Outcome names one side of a market. Three-way markets use home/draw/away,
// two-way markets use side_a/side_b.
type Outcome string

const (
	OutcomeHome  Outcome = "home"
	OutcomeDraw  Outcome = "draw"
	OutcomeAway  Outcome = "away"
	OutcomeSideA Outcome = "side_a"
	OutcomeSideB Outcome = "side_b"
)

// PriceModel tags how a source quotes an event. The evaluator switches on
// this tag, never on source identity, so a new source with an existing
// model needs no evaluator change.
type PriceModel string

const (
	// Lay models: exchange-style quotes where we act as the counterparty.
	PriceLay3Way PriceModel = "lay_3way"
	PriceLay2Way PriceModel = "lay_2way"
	// Back models: traditional bookmaker quotes.
	PriceBack3Way PriceModel = "back_3way"
	PriceBack2Way PriceModel = "back_2way"
)

// IsLay reports whether the model quotes lay prices.
func (m PriceModel) IsLay() bool {
	return m == PriceLay3Way || m == PriceLay2Way
}

// Outcomes returns the outcomes the model can quote.
func (m PriceModel) Outcomes() []Outcome {
	switch m {
	case PriceLay3Way, PriceBack3Way:
		return []Outcome{OutcomeHome, OutcomeDraw, OutcomeAway}
	case PriceLay2Way, PriceBack2Way:
		return []Outcome{OutcomeSideA, OutcomeSideB}
	default:
		return nil
	}
}

// Prices holds the quotes one source published for one event.
// Money never touches float64; all quotes are decimals.
type Prices struct {
	Kind PriceModel                  `json:"model"`
	Odds map[Outcome]decimal.Decimal `json:"odds"`
}

// Empty reports whether no outcome carries a usable quote.
func (p Prices) Empty() bool {
	for _, v := range p.Odds {
		if v.IsPositive() {
			return false
		}
	}
	return true
}

// Get returns the quote for an outcome, if present and positive.
func (p Prices) Get(o Outcome) (decimal.Decimal, bool) {
	v, ok := p.Odds[o]
	if !ok || !v.IsPositive() {
		return decimal.Decimal{}, false
	}
	return v, true
}

// Swapped returns a copy with home/away (or side_a/side_b) quotes exchanged,
// used when a source listed the fixture's teams in the opposite order.
// Draw quotes are order-independent and stay put.
func (p Prices) Swapped() Prices {
	out := Prices{Kind: p.Kind, Odds: make(map[Outcome]decimal.Decimal, len(p.Odds))}
	for o, v := range p.Odds {
		switch o {
		case OutcomeHome:
			out.Odds[OutcomeAway] = v
		case OutcomeAway:
			out.Odds[OutcomeHome] = v
		case OutcomeSideA:
			out.Odds[OutcomeSideB] = v
		case OutcomeSideB:
			out.Odds[OutcomeSideA] = v
		default:
			out.Odds[o] = v
		}
	}
	return out
}
