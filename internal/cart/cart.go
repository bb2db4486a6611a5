// Package cart holds the shopping cart: line items, derived totals and the
// write-through store that keeps a cart alive across restarts.
package cart

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/surtidora/api/internal/apperr"
	"github.com/surtidora/api/internal/catalog"
	"github.com/surtidora/api/internal/pricing"
)

// Errors returned by the cart.
var (
	ErrInvalidQuantity    = fmt.Errorf("%w: quantity must be > 0", apperr.ErrValidation)
	ErrProductUnavailable = fmt.Errorf("%w: product is not available", apperr.ErrValidation)
	ErrUnknownCode        = fmt.Errorf("%w: unknown discount code", apperr.ErrValidation)
	ErrItemNotInCart      = fmt.Errorf("%w: product is not in the cart", apperr.ErrNotFound)
)

// Discount sources reported in Totals.
const (
	DiscountNone = ""
	DiscountTier = "tier"
	DiscountCode = "code"
)

// Line is a product and how many units of it the cart holds. Quantity is
// always >= 1 while the line exists.
type Line struct {
	Product  catalog.Product `json:"product"`
	Quantity int             `json:"quantity"`
}

// UnitPrice is the price the line is charged at for the given price list.
func (l Line) UnitPrice(wholesale bool) decimal.Decimal {
	return l.Product.PriceFor(wholesale)
}

// Total is unit price times quantity.
func (l Line) Total(wholesale bool) decimal.Decimal {
	return l.UnitPrice(wholesale).Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Policy is the pricing configuration a cart is evaluated against.
type Policy struct {
	Tiers   []pricing.Tier
	Minimum decimal.Decimal
	// Codes maps an upper-case discount code to its rate.
	Codes map[string]decimal.Decimal
}

// Totals are the values derived from the cart lines. They are recomputed on
// every read.
type Totals struct {
	Subtotal       decimal.Decimal
	Discount       decimal.Decimal
	Total          decimal.Decimal
	TotalItems     int
	MinimumMet     bool
	DiscountSource string
	Tier           *pricing.Tier
	Code           string
}

// Cart is the in-memory cart state. The zero value is an empty retail cart.
type Cart struct {
	Lines        []Line
	DiscountCode string
	Wholesale    bool
}

func (c *Cart) indexOf(productID uuid.UUID) int {
	for i, l := range c.Lines {
		if l.Product.ID == productID {
			return i
		}
	}
	return -1
}

func (c *Cart) normalize(p catalog.Product, qty int) int {
	if step := p.Step(c.Wholesale); step > 0 {
		return pricing.NormalizeToStep(qty, step)
	}
	return qty
}

// AddItem merges quantity into the product's line, or appends a new line.
// On wholesale lines the added quantity is normalized before it is summed,
// so every add raises the line by at least one case.
func (c *Cart) AddItem(p catalog.Product, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if !p.Available {
		return ErrProductUnavailable
	}
	if i := c.indexOf(p.ID); i >= 0 {
		c.Lines[i].Quantity += c.normalize(p, quantity)
		c.Lines[i].Product = p
		return nil
	}
	c.Lines = append(c.Lines, Line{Product: p, Quantity: c.normalize(p, quantity)})
	return nil
}

// RemoveItem drops the product's line. It reports whether a line was removed;
// removing an absent product is not an error.
func (c *Cart) RemoveItem(productID uuid.UUID) bool {
	i := c.indexOf(productID)
	if i < 0 {
		return false
	}
	c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
	return true
}

// UpdateQuantity replaces the line quantity. A quantity <= 0 removes the line.
func (c *Cart) UpdateQuantity(productID uuid.UUID, quantity int) (bool, error) {
	if quantity <= 0 {
		return c.RemoveItem(productID), nil
	}
	i := c.indexOf(productID)
	if i < 0 {
		return false, ErrItemNotInCart
	}
	q := c.normalize(c.Lines[i].Product, quantity)
	if q == c.Lines[i].Quantity {
		return false, nil
	}
	c.Lines[i].Quantity = q
	return true, nil
}

// Clear empties the cart and drops any pending discount code.
func (c *Cart) Clear() {
	c.Lines = nil
	c.DiscountCode = ""
}

// ApplyCode stores a discount code after checking it against the policy.
func (c *Cart) ApplyCode(code string, policy Policy) error {
	code = strings.ToUpper(strings.TrimSpace(code))
	if _, ok := policy.Codes[code]; !ok || code == "" {
		return ErrUnknownCode
	}
	c.DiscountCode = code
	return nil
}

// TotalItems is the sum of all line quantities.
func (c *Cart) TotalItems() int {
	n := 0
	for _, l := range c.Lines {
		n += l.Quantity
	}
	return n
}

// Totals derives subtotal, discount, total and the minimum-order check.
// The automatic tier discount and a discount code do not stack; the larger
// of the two applies.
func (c *Cart) Totals(policy Policy) Totals {
	t := Totals{
		Subtotal:   decimal.Zero,
		Discount:   decimal.Zero,
		TotalItems: c.TotalItems(),
	}
	for _, l := range c.Lines {
		t.Subtotal = t.Subtotal.Add(l.Total(c.Wholesale))
	}

	if amount, tier, ok := pricing.CartDiscount(t.Subtotal, t.TotalItems, policy.Tiers); ok {
		t.Discount = amount
		t.DiscountSource = DiscountTier
		t.Tier = &tier
	}

	if rate, ok := policy.Codes[c.DiscountCode]; ok && c.DiscountCode != "" && t.Subtotal.IsPositive() {
		if amount := t.Subtotal.Mul(rate).Round(2); amount.GreaterThan(t.Discount) {
			t.Discount = amount
			t.DiscountSource = DiscountCode
			t.Tier = nil
		}
		t.Code = c.DiscountCode
	}

	if t.Discount.IsNegative() {
		t.Discount = decimal.Zero
	}
	if t.Discount.GreaterThan(t.Subtotal) {
		t.Discount = t.Subtotal
	}
	t.Total = t.Subtotal.Sub(t.Discount)
	t.MinimumMet = t.Total.GreaterThanOrEqual(policy.Minimum)
	return t
}

func (c *Cart) clone() Cart {
	out := Cart{DiscountCode: c.DiscountCode, Wholesale: c.Wholesale}
	if c.Lines != nil {
		out.Lines = make([]Line, len(c.Lines))
		copy(out.Lines, c.Lines)
	}
	return out
}

// ParseCodes parses "CODE:rate" pairs separated by commas. Codes are stored
// upper-case.
func ParseCodes(s string) (map[string]decimal.Decimal, error) {
	codes := make(map[string]decimal.Decimal)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		code, rateStr, found := strings.Cut(part, ":")
		code = strings.ToUpper(strings.TrimSpace(code))
		if !found || code == "" {
			return nil, fmt.Errorf("%q: expected CODE:rate: %w", part, pricing.ErrInvalidTier)
		}
		rate, err := decimal.NewFromString(strings.TrimSpace(rateStr))
		if err != nil || rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
			return nil, fmt.Errorf("%q: rate must be between 0 and 1: %w", part, pricing.ErrInvalidTier)
		}
		codes[code] = rate
	}
	return codes, nil
}
