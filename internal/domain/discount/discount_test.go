package discount

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestTierRate(t *testing.T) {
	r := NewResolver(NewLedger())

	tests := []struct {
		name    string
		product string
		want    decimal.Decimal
	}{
		{"toy keyword", "Toy Robot", d("0.10")},
		{"case insensitive, later tokens ignored", "TOY Soldier Deluxe", d("0.10")},
		{"game", "Game Console", d("0.15")},
		{"puzzle", "Puzzle Map", d("0.12")},
		{"numeric keyword", "1000 Piece Puzzle", d("0.10")},
		{"board", "Board Game", d("0.15")},
		{"soccer", "Soccer Ball", d("0.05")},
		{"unknown category", "Unicycle", decimal.Zero},
		{"empty name", "", decimal.Zero},
		{"whitespace only name", "   ", decimal.Zero},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.TierRate(tt.product)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestTierRate_SameFirstTokenSameRate(t *testing.T) {
	r := NewResolver(NewLedger())

	first := r.TierRate("toy robot")
	for _, name := range []string{"Toy Robot", "TOY soldier", "toy"} {
		assert.True(t, first.Equal(r.TierRate(name)), "rate differs for %q", name)
	}
}

func TestCompose_WorkedExample(t *testing.T) {
	r := NewResolver(NewLedger())

	out := r.Compose(d("20.00"), "O1", "Toy Robot")

	// base 0.15 + toy tier 0.10, no loyalty on first sight.
	assert.True(t, d("0.25").Equal(out.Rate), "rate %s", out.Rate)
	assert.True(t, d("5.00").Equal(out.Amount.Round(2)), "amount %s", out.Amount)
	assert.True(t, d("15.00").Equal(out.DiscountedTotal.Round(2)), "total %s", out.DiscountedTotal)
}

func TestCompose_LoyaltyBonusOnRepeat(t *testing.T) {
	r := NewResolver(NewLedger())

	first := r.Compose(d("20.00"), "O1", "Toy Robot")
	second := r.Compose(d("20.00"), "O1", "Toy Robot")

	assert.True(t, d("0.25").Equal(first.Rate))
	assert.True(t, d("0.27").Equal(second.Rate))
	assert.True(t, d("0.02").Equal(second.Rate.Sub(first.Rate)))
}

func TestCompose_FirstSightNeverBonusesItself(t *testing.T) {
	ledger := NewLedger()
	r := NewResolver(ledger)

	// The ledger write happens inside Compose; the read must come first.
	out := r.Compose(d("100"), "fresh", "Game Console")

	assert.True(t, d("0.30").Equal(out.Rate), "rate %s", out.Rate)
	assert.True(t, ledger.Seen("fresh"))
}

func TestCompose_RateStaysWithinCeiling(t *testing.T) {
	r := NewResolver(NewLedger())

	products := []string{"Toy Robot", "Game Console", "Board Game", "", "Unicycle", "Robot Dog"}
	subtotals := []decimal.Decimal{decimal.Zero, d("0.01"), d("20.00"), d("99999.99")}

	for _, product := range products {
		for _, subtotal := range subtotals {
			// Run each combination twice so the loyalty bonus is in play.
			for range 2 {
				out := r.Compose(subtotal, product, product)

				require.True(t, out.Rate.GreaterThanOrEqual(decimal.Zero))
				require.True(t, out.Rate.LessThanOrEqual(d("0.50")),
					"rate %s above ceiling for %q", out.Rate, product)
				require.True(t, out.DiscountedTotal.GreaterThanOrEqual(subtotal.Mul(d("0.50"))),
					"discounted total %s below half of subtotal %s", out.DiscountedTotal, subtotal)
			}
		}
	}
}

func TestCompose_ZeroSubtotal(t *testing.T) {
	r := NewResolver(NewLedger())

	out := r.Compose(decimal.Zero, "O9", "Mystery Box")

	assert.True(t, decimal.Zero.Equal(out.Amount))
	assert.True(t, decimal.Zero.Equal(out.DiscountedTotal))
}

func TestLedger_RecordOverwrites(t *testing.T) {
	l := NewLedger()

	l.Record("O1", d("5.00"))
	l.Record("O1", d("5.40"))

	assert.True(t, l.Seen("O1"))
	assert.False(t, l.Seen("O2"))
	assert.Equal(t, 1, l.Len())
}
