// Package pricing implements quantity-tiered discounts.
//
// A tier set is a list of (minimum quantity, rate) breakpoints. Tiers are
// mutually exclusive: for a given quantity exactly one tier applies, the
// qualifying tier with the largest minimum quantity. When two tiers share a
// minimum quantity the higher rate wins, regardless of input order.
package pricing

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/surtidora/api/internal/apperr"
)

// Errors returned by the pricing package.
var (
	ErrInvalidTier = fmt.Errorf("%w: invalid discount tier", apperr.ErrValidation)
)

var one = decimal.NewFromInt(1)

// Tier is a pricing breakpoint.
type Tier struct {
	MinQuantity int             `json:"min_quantity" yaml:"min_quantity"`
	Rate        decimal.Decimal `json:"rate" yaml:"rate"`
}

// BestDiscount returns the tier that applies to quantity. ok is false when
// quantity is not positive or no tier qualifies.
func BestDiscount(quantity int, tiers []Tier) (best Tier, ok bool) {
	if quantity <= 0 {
		return Tier{}, false
	}
	for _, t := range tiers {
		if quantity < t.MinQuantity {
			continue
		}
		if !ok || t.MinQuantity > best.MinQuantity ||
			(t.MinQuantity == best.MinQuantity && t.Rate.GreaterThan(best.Rate)) {
			best, ok = t, true
		}
	}
	return best, ok
}

// UnitPrice applies the tier for quantity to basePrice, rounding half-up to
// two decimal places. A non-positive base price is treated as unpriced and
// yields zero.
func UnitPrice(basePrice decimal.Decimal, quantity int, tiers []Tier) decimal.Decimal {
	if !basePrice.IsPositive() {
		return decimal.Zero
	}
	tier, ok := BestDiscount(quantity, tiers)
	if !ok {
		return basePrice
	}
	return basePrice.Mul(one.Sub(tier.Rate)).Round(2)
}

// NormalizeToStep rounds quantity to the nearest multiple of step (halves
// round up). The result is never below step. A non-positive step disables
// normalization.
func NormalizeToStep(quantity, step int) int {
	if step <= 0 {
		if quantity < 1 {
			return 1
		}
		return quantity
	}
	if quantity <= 0 {
		return step
	}
	n := (2*quantity + step) / (2 * step)
	if n < 1 {
		n = 1
	}
	return n * step
}

// CartDiscount computes the automatic cart-level discount: the tier is chosen
// by the total item count and its rate applies to the whole subtotal.
func CartDiscount(subtotal decimal.Decimal, totalItems int, tiers []Tier) (decimal.Decimal, Tier, bool) {
	tier, ok := BestDiscount(totalItems, tiers)
	if !ok || !subtotal.IsPositive() {
		return decimal.Zero, Tier{}, false
	}
	return subtotal.Mul(tier.Rate).Round(2), tier, true
}

// ValidateTiers checks that every tier has a positive minimum quantity and a
// rate within [0, 1].
func ValidateTiers(tiers []Tier) error {
	for i, t := range tiers {
		if t.MinQuantity < 1 {
			return fmt.Errorf("tier[%d]: min quantity must be >= 1: %w", i, ErrInvalidTier)
		}
		if t.Rate.IsNegative() || t.Rate.GreaterThan(one) {
			return fmt.Errorf("tier[%d]: rate must be between 0 and 1: %w", i, ErrInvalidTier)
		}
	}
	return nil
}

// SortTiers orders tiers ascending by minimum quantity, then by rate.
func SortTiers(tiers []Tier) {
	sort.SliceStable(tiers, func(i, j int) bool {
		if tiers[i].MinQuantity != tiers[j].MinQuantity {
			return tiers[i].MinQuantity < tiers[j].MinQuantity
		}
		return tiers[i].Rate.LessThan(tiers[j].Rate)
	})
}

// ParseTiers parses "min:rate" pairs separated by commas, e.g. "6:0.05,12:0.10".
// The result is validated and sorted.
func ParseTiers(s string) ([]Tier, error) {
	var tiers []Tier
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		minStr, rateStr, found := strings.Cut(part, ":")
		if !found {
			return nil, fmt.Errorf("%q: expected min:rate: %w", part, ErrInvalidTier)
		}
		minQty, err := strconv.Atoi(strings.TrimSpace(minStr))
		if err != nil {
			return nil, fmt.Errorf("%q: %w", part, ErrInvalidTier)
		}
		rate, err := decimal.NewFromString(strings.TrimSpace(rateStr))
		if err != nil {
			return nil, fmt.Errorf("%q: %w", part, ErrInvalidTier)
		}
		tiers = append(tiers, Tier{MinQuantity: minQty, Rate: rate})
	}
	if err := ValidateTiers(tiers); err != nil {
		return nil, err
	}
	SortTiers(tiers)
	return tiers, nil
}
