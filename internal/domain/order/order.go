package order

import (
	"github.com/shopspring/decimal"
)

// Field names recognized in a raw order record. They mirror the header row
// of the orders feed.
const (
	FieldOrderID      = "order_id"
	FieldProductID    = "product_id"
	FieldProductName  = "product_name"
	FieldCustomerName = "customer_name"
	FieldQuantity     = "quantity"
	FieldUnitPrice    = "unit_price"
)

// RawOrder is one input row keyed by header field name, exactly as the feed
// produced it. It is never mutated by the pipeline.
type RawOrder map[string]string

// Field returns the named field, or def when the field is absent or empty.
func (r RawOrder) Field(name, def string) string {
	if v, ok := r[name]; ok && v != "" {
		return v
	}
	return def
}

// Order is a fully validated order. It is constructed only after every
// parsing and business-rule check has passed; there is no partially valid
// state.
type Order struct {
	OrderID      string
	ProductID    string
	ProductName  string
	CustomerName string
	Quantity     int
	UnitPrice    decimal.Decimal
}

// PricingResult holds the derived totals for one successfully priced order.
type PricingResult struct {
	Subtotal        decimal.Decimal
	DiscountedTotal decimal.Decimal
	Tax             decimal.Decimal
	Shipping        decimal.Decimal
	FinalTotal      decimal.Decimal
}

// FailureKind classifies why an order was rejected.
type FailureKind string

const (
	// FailureInvalidQuantity marks a quantity field that does not parse as
	// an integer.
	FailureInvalidQuantity FailureKind = "invalid_quantity"
	// FailureInvalidPrice marks a unit price field that does not parse as a
	// decimal.
	FailureInvalidPrice FailureKind = "invalid_price"
	// FailureNegativeQuantity marks a quantity that parsed but is below zero.
	FailureNegativeQuantity FailureKind = "negative_quantity"
	// FailureNegativePrice marks a unit price that parsed but is below zero.
	FailureNegativePrice FailureKind = "negative_price"
	// FailureMissingCategoryRate classifies records from processors that let
	// an unknown product category reach the discount arithmetic without a
	// rate. TierRate always returns a concrete rate here, so no current code
	// path produces this kind; it exists so outcome streams from older
	// processors remain classifiable.
	FailureMissingCategoryRate FailureKind = "missing_category_rate"
	// FailureUnexpected wraps any fault outside the anticipated taxonomy.
	FailureUnexpected FailureKind = "unexpected_error"
)

// Failure describes why one order was rejected. All failures are recoverable
// at batch scope: the order is skipped and the run continues.
type Failure struct {
	Kind    FailureKind
	Message string
}

func (f *Failure) Error() string {
	return string(f.Kind) + ": " + f.Message
}

// Outcome is the tagged result of processing one raw order: either Pricing
// or Failure is set, never both. FlaggedForReview marks a zero-quantity
// order that still priced successfully.
type Outcome struct {
	OrderID          string
	ProductName      string
	CustomerName     string
	Pricing          *PricingResult
	Failure          *Failure
	FlaggedForReview bool
}

// Success reports whether the order priced without a failure.
func (o Outcome) Success() bool {
	return o.Failure == nil
}
