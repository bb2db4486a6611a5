package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/surtidora/api/internal/apperr"
	"github.com/surtidora/api/internal/cart"
	"github.com/surtidora/api/internal/lifecycle"
)

// Errors returned by the checkout service.
var (
	ErrEmptyCart       = fmt.Errorf("%w: cart is empty", apperr.ErrValidation)
	ErrMinimumNotMet   = fmt.Errorf("%w: order minimum not met", apperr.ErrValidation)
	ErrMissingCustomer = fmt.Errorf("%w: customer and address are required", apperr.ErrValidation)
	ErrMissingEmail    = fmt.Errorf("%w: customer email is required", apperr.ErrValidation)
)

// Cart is the part of *cart.Store the checkout reads and clears.
type Cart interface {
	Lines() []cart.Line
	Totals() cart.Totals
	Wholesale() bool
	Clear(ctx context.Context) error
}

// OrderCreator creates order records. Satisfied by *lifecycle.Service.
type OrderCreator interface {
	Create(ctx context.Context, actor lifecycle.Actor, req lifecycle.CreateRequest) (lifecycle.Record, error)
}

// CheckoutRequest is the validated delivery data for an order.
type CheckoutRequest struct {
	Email    string
	Customer string
	Address  string
	Phone    string
	Notes    string
}

// CheckoutService turns a cart into an order record.
type CheckoutService struct {
	orders OrderCreator
}

// NewCheckoutService creates a new CheckoutService.
func NewCheckoutService(orders OrderCreator) *CheckoutService {
	return &CheckoutService{orders: orders}
}

// Checkout creates a pending order from the cart contents and then clears the
// cart. The order is the source of truth: if clearing the cart fails after
// the order is stored, the failure is logged and the order is still returned.
func (s *CheckoutService) Checkout(ctx context.Context, c Cart, req CheckoutRequest) (lifecycle.Record, error) {
	email := strings.TrimSpace(req.Email)
	if email == "" {
		return lifecycle.Record{}, ErrMissingEmail
	}
	customer := strings.TrimSpace(req.Customer)
	address := strings.TrimSpace(req.Address)
	if customer == "" || address == "" {
		return lifecycle.Record{}, ErrMissingCustomer
	}

	lines := c.Lines()
	if len(lines) == 0 {
		return lifecycle.Record{}, ErrEmptyCart
	}
	totals := c.Totals()
	if !totals.MinimumMet {
		return lifecycle.Record{}, ErrMinimumNotMet
	}

	wholesale := c.Wholesale()
	fields := map[string]any{
		"email":      email,
		"customer":   customer,
		"address":    address,
		"price_list": priceList(wholesale),
		"items":      lineSnapshot(lines, wholesale),
		"item_count": totals.TotalItems,
		"subtotal":   totals.Subtotal.StringFixed(2),
		"discount":   totals.Discount.StringFixed(2),
		"total":      totals.Total.StringFixed(2),
	}
	if phone := strings.TrimSpace(req.Phone); phone != "" {
		fields["phone"] = phone
	}
	if notes := strings.TrimSpace(req.Notes); notes != "" {
		fields["notes"] = notes
	}
	if totals.DiscountSource != cart.DiscountNone {
		fields["discount_source"] = totals.DiscountSource
	}
	if totals.Code != "" {
		fields["discount_code"] = totals.Code
	}

	order, err := s.orders.Create(ctx, lifecycle.Actor{Email: email}, lifecycle.CreateRequest{Fields: fields})
	if err != nil {
		return lifecycle.Record{}, fmt.Errorf("create order: %w", err)
	}

	if err := c.Clear(ctx); err != nil {
		log.Printf("ERROR: clear cart after order %s: %v", order.ID, err)
	}
	return order, nil
}

// --- Helpers ---

func priceList(wholesale bool) string {
	if wholesale {
		return "wholesale"
	}
	return "retail"
}

func lineSnapshot(lines []cart.Line, wholesale bool) []any {
	items := make([]any, 0, len(lines))
	for _, l := range lines {
		items = append(items, map[string]any{
			"product_id": l.Product.ID.String(),
			"name":       l.Product.Name,
			"quantity":   l.Quantity,
			"unit_price": l.UnitPrice(wholesale).StringFixed(2),
			"total":      l.Total(wholesale).StringFixed(2),
		})
	}
	return items
}
