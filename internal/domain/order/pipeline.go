package order

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/toyland-batch/internal/domain/discount"
	"github.com/xenking/toyland-batch/internal/domain/inventory"
)

var (
	taxRate         = decimal.RequireFromString("0.08")
	shippingBase    = decimal.RequireFromString("5.99")
	shippingPerItem = decimal.RequireFromString("1.50")
)

// Pipeline validates and prices one raw order at a time: quantity parse,
// price parse, business rules, inventory check, subtotal, discount, tax,
// shipping, final total. Each step is a potential exit to a Failure outcome;
// the flow is linear and never branches back.
type Pipeline struct {
	discounts *discount.Resolver
	inventory inventory.Checker
}

// NewPipeline creates a Pipeline with the required collaborators.
func NewPipeline(discounts *discount.Resolver, inv inventory.Checker) *Pipeline {
	return &Pipeline{
		discounts: discounts,
		inventory: inv,
	}
}

// Process runs one raw order through the full pipeline and returns its
// outcome. It never panics outward: any fault outside the anticipated
// taxonomy is recovered at this boundary and reported as FailureUnexpected,
// so the batch driver can always keep going.
func (p *Pipeline) Process(ctx context.Context, raw RawOrder) (out Outcome) {
	out = Outcome{
		OrderID:      raw.Field(FieldOrderID, "UNKNOWN"),
		ProductName:  raw.Field(FieldProductName, ""),
		CustomerName: raw.Field(FieldCustomerName, ""),
	}
	lg := zctx.From(ctx).With(zap.String("order_id", out.OrderID))

	defer func() {
		if r := recover(); r != nil {
			lg.Error("Unexpected fault while processing order", zap.Any("panic", r))
			out.Pricing = nil
			out.Failure = &Failure{
				Kind:    FailureUnexpected,
				Message: fmt.Sprintf("unexpected error: %v", r),
			}
		}
	}()

	lg.Info("Processing order", zap.String("product", out.ProductName))

	// Fields absent from the feed default to "0"; a zero quantity is then
	// handled by the review flag below.
	qtyStr := raw.Field(FieldQuantity, "0")
	priceStr := raw.Field(FieldUnitPrice, "0")

	lg.Debug("Parsing quantity", zap.String("value", qtyStr))
	qty, err := strconv.Atoi(qtyStr)
	if err != nil {
		lg.Error("Invalid quantity", zap.String("value", qtyStr))
		out.Failure = &Failure{
			Kind:    FailureInvalidQuantity,
			Message: fmt.Sprintf("invalid quantity %q: must be a number", qtyStr),
		}
		return out
	}

	lg.Debug("Parsing unit price", zap.String("value", priceStr))
	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		lg.Error("Invalid unit price", zap.String("value", priceStr))
		out.Failure = &Failure{
			Kind:    FailureInvalidPrice,
			Message: fmt.Sprintf("invalid price %q: must be a number", priceStr),
		}
		return out
	}

	if qty < 0 {
		lg.Error("Negative quantity", zap.Int("quantity", qty))
		out.Failure = &Failure{
			Kind:    FailureNegativeQuantity,
			Message: fmt.Sprintf("quantity cannot be negative (%d)", qty),
		}
		return out
	}
	if qty == 0 {
		lg.Warn("Zero quantity, flagging order for review")
		out.FlaggedForReview = true
	}
	if price.IsNegative() {
		lg.Error("Negative unit price", zap.String("price", price.String()))
		out.Failure = &Failure{
			Kind:    FailureNegativePrice,
			Message: fmt.Sprintf("price cannot be negative (%s)", price.StringFixed(2)),
		}
		return out
	}

	o := Order{
		OrderID:      out.OrderID,
		ProductID:    raw.Field(FieldProductID, "UNKNOWN"),
		ProductName:  out.ProductName,
		CustomerName: out.CustomerName,
		Quantity:     qty,
		UnitPrice:    price,
	}

	lg.Debug("Checking inventory", zap.String("product_id", o.ProductID))
	if err := p.inventory.Check(ctx, o.ProductID); err != nil {
		// Reserved path: the stub checker never fails.
		out.Failure = &Failure{
			Kind:    FailureUnexpected,
			Message: fmt.Sprintf("inventory check failed: %v", err),
		}
		return out
	}

	subtotal := o.UnitPrice.Mul(decimal.NewFromInt(int64(o.Quantity)))
	lg.Debug("Subtotal computed",
		zap.Int("quantity", o.Quantity),
		zap.String("unit_price", o.UnitPrice.StringFixed(2)),
		zap.String("subtotal", subtotal.StringFixed(2)),
	)

	if o.ProductName == "" {
		lg.Warn("Empty product name, using default discount tier")
	}
	d := p.discounts.Compose(subtotal, o.OrderID, o.ProductName)
	lg.Debug("Discount applied",
		zap.String("rate", d.Rate.String()),
		zap.String("amount", d.Amount.StringFixed(2)),
		zap.String("discounted_total", d.DiscountedTotal.StringFixed(2)),
	)

	tax := d.DiscountedTotal.Mul(taxRate)
	lg.Debug("Tax computed", zap.String("tax", tax.StringFixed(2)))

	// The flat shipping base is charged even at zero quantity. Intentional.
	shipping := shippingBase.Add(shippingPerItem.Mul(decimal.NewFromInt(int64(o.Quantity))))
	lg.Debug("Shipping computed", zap.String("shipping", shipping.StringFixed(2)))

	out.Pricing = &PricingResult{
		Subtotal:        subtotal,
		DiscountedTotal: d.DiscountedTotal,
		Tax:             tax,
		Shipping:        shipping,
		FinalTotal:      d.DiscountedTotal.Add(tax).Add(shipping),
	}

	return out
}
