// Package catalog holds the product model as seen by the cart and the
// keyword search used by the storefront.
package catalog

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is an immutable catalog entry from the cart's point of view.
type Product struct {
	ID             uuid.UUID        `json:"id"`
	Name           string           `json:"name"`
	Category       string           `json:"category"`
	Price          decimal.Decimal  `json:"price"`
	WholesalePrice *decimal.Decimal `json:"wholesale_price,omitempty"`
	Available      bool             `json:"available"`
	// CasePack is the wholesale ordering multiple; 0 or 1 means loose units.
	CasePack int    `json:"case_pack,omitempty"`
	Keywords string `json:"keywords,omitempty"` // CSV like "arroz,costeño,5kg"
}

// PriceFor returns the wholesale price for wholesale buyers when the product
// has one, and the retail price otherwise.
func (p Product) PriceFor(wholesale bool) decimal.Decimal {
	if wholesale && p.WholesalePrice != nil && p.WholesalePrice.IsPositive() {
		return *p.WholesalePrice
	}
	return p.Price
}

// Step returns the quantity multiple enforced for wholesale buyers.
func (p Product) Step(wholesale bool) int {
	if wholesale && p.CasePack > 1 {
		return p.CasePack
	}
	return 0
}
