package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ArbitrageOpportunity is one (outcome, back source) pairing evaluated
// against the authoritative lay price. Derived per cycle, never persisted.
type ArbitrageOpportunity struct {
	ID         string          `json:"id"`
	Outcome    Outcome         `json:"outcome"`
	LaySource  SourceID        `json:"lay_source"`
	BackSource SourceID        `json:"back_source"`
	LayPrice   decimal.Decimal `json:"lay_price"`
	BackPrice  decimal.Decimal `json:"back_price"`
	// Spread = back/lay - 1, the relative margin of backing at one source
	// while laying at the exchange.
	Spread     decimal.Decimal `json:"spread"`
	Profitable bool            `json:"profitable"`

	// Display metadata for reporting.
	HomeName  string    `json:"home_name"`
	AwayName  string    `json:"away_name"`
	LayLink   string    `json:"lay_link,omitempty"`
	BackLink  string    `json:"back_link,omitempty"`
	StartTime time.Time `json:"start_time,omitempty"`
	FoundAt   time.Time `json:"found_at"`
}
