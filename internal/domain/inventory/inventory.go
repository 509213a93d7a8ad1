// Package inventory defines the stock availability check the pipeline runs
// before pricing an order.
package inventory

import "context"

// Checker reports whether a product can be fulfilled from stock.
type Checker interface {
	Check(ctx context.Context, productID string) error
}

// StubChecker approves every product. There is no inventory backend yet;
// the pipeline keeps the check as an explicit step so a real backend can
// slot in without reshaping the flow.
type StubChecker struct{}

// Check always succeeds.
func (StubChecker) Check(context.Context, string) error { return nil }
