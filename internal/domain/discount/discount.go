// Package discount resolves the promotional discount for one order: a flat
// seasonal base rate, a product-category tier rate, and a repeat-order
// loyalty bonus, composed and capped so stacked discounts can never push a
// price negative.
package discount

import (
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// baseRate models the active seasonal promotion applied to every order.
	baseRate = decimal.RequireFromString("0.15")
	// loyaltyBonus is the flat extra rate for an order id seen earlier in
	// the same run.
	loyaltyBonus = decimal.RequireFromString("0.02")
	// maxRate caps the composed rate; without it stacked discounts could
	// drive the final price negative.
	maxRate = decimal.RequireFromString("0.50")
)

// tierRates maps a product category keyword (the first lowercase token of
// the product name) to its tier rate.
var tierRates = map[string]decimal.Decimal{
	"toy":      decimal.RequireFromString("0.10"),
	"game":     decimal.RequireFromString("0.15"),
	"puzzle":   decimal.RequireFromString("0.12"),
	"fast":     decimal.RequireFromString("0.10"),
	"giant":    decimal.RequireFromString("0.08"),
	"building": decimal.RequireFromString("0.10"),
	"board":    decimal.RequireFromString("0.15"),
	"action":   decimal.RequireFromString("0.12"),
	"robot":    decimal.RequireFromString("0.15"),
	"soccer":   decimal.RequireFromString("0.05"),
	"painting": decimal.RequireFromString("0.08"),
	"mystery":  decimal.RequireFromString("0.10"),
	"empty":    decimal.RequireFromString("0.05"),
	"drone":    decimal.RequireFromString("0.12"),
	"1000":     decimal.RequireFromString("0.10"),
}

// Outcome holds the composed discount for one order.
type Outcome struct {
	Rate            decimal.Decimal
	Amount          decimal.Decimal
	DiscountedTotal decimal.Decimal
}

// Ledger tracks the discount amount last computed per order id during one
// batch run. Presence of an id means "seen before in this run" and earns the
// loyalty bonus. The ledger lives for exactly one run, grows monotonically,
// and is never persisted. Not safe for concurrent use; the batch driver
// processes orders strictly one at a time.
type Ledger struct {
	amounts map[string]decimal.Decimal
}

// NewLedger returns an empty ledger for a new batch run.
func NewLedger() *Ledger {
	return &Ledger{amounts: make(map[string]decimal.Decimal)}
}

// Seen reports whether the order id was recorded earlier in this run.
func (l *Ledger) Seen(orderID string) bool {
	_, ok := l.amounts[orderID]
	return ok
}

// Record stores the discount amount for the order id, overwriting any prior
// value.
func (l *Ledger) Record(orderID string, amount decimal.Decimal) {
	l.amounts[orderID] = amount
}

// Len returns the number of distinct order ids recorded this run.
func (l *Ledger) Len() int {
	return len(l.amounts)
}

// Resolver composes discount rates against a run-scoped ledger.
type Resolver struct {
	ledger *Ledger
}

// NewResolver creates a Resolver backed by the given ledger.
func NewResolver(ledger *Ledger) *Resolver {
	return &Resolver{ledger: ledger}
}

// TierRate returns the tier rate for the product's category keyword. An
// empty name or an unknown keyword resolves to zero; the return value is
// always a concrete decimal, never absent.
func (r *Resolver) TierRate(productName string) decimal.Decimal {
	fields := strings.Fields(strings.ToLower(productName))
	if len(fields) == 0 {
		return decimal.Zero
	}
	if rate, ok := tierRates[fields[0]]; ok {
		return rate
	}
	return decimal.Zero
}

// LoyaltyAdjustment returns the flat loyalty bonus when the order id was
// seen earlier in this run, and zero otherwise. It must be consulted before
// the current order is recorded, so an order never bonuses itself.
func (r *Resolver) LoyaltyAdjustment(orderID string) decimal.Decimal {
	if r.ledger.Seen(orderID) {
		return loyaltyBonus
	}
	return decimal.Zero
}

// Compose combines the seasonal base rate, the tier rate and the loyalty
// adjustment, caps the result at the rate ceiling, and applies it to the
// subtotal. The computed amount is then recorded in the ledger. Compose
// never fails for a subtotal >= 0.
func (r *Resolver) Compose(subtotal decimal.Decimal, orderID, productName string) Outcome {
	rate := baseRate.Add(r.TierRate(productName)).Add(r.LoyaltyAdjustment(orderID))
	rate = decimal.Min(rate, maxRate)

	amount := subtotal.Mul(rate)
	out := Outcome{
		Rate:            rate,
		Amount:          amount,
		DiscountedTotal: subtotal.Sub(amount),
	}

	r.ledger.Record(orderID, amount)

	return out
}
