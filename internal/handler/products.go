package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/surtidora/api/internal/catalog"
	"github.com/surtidora/api/internal/enum"
	"github.com/surtidora/api/internal/middleware"
	"github.com/surtidora/api/internal/pricing"
)

// ProductCatalog defines the catalog reads needed by the storefront.
// Satisfied by *catalog.Repository; narrow interface for testability.
type ProductCatalog interface {
	List(ctx context.Context) ([]catalog.Product, error)
	Get(ctx context.Context, id uuid.UUID) (catalog.Product, error)
}

// ProductHandler serves catalog browsing and price quotes.
type ProductHandler struct {
	products ProductCatalog
	tiers    []pricing.Tier
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(products ProductCatalog, tiers []pricing.Tier) *ProductHandler {
	return &ProductHandler{products: products, tiers: tiers}
}

// RegisterRoutes registers catalog endpoints on the given Chi router.
// Expected to be mounted at /products behind the public route class.
func (h *ProductHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}/quote", h.Quote)
}

// --- Response types ---

type productResponse struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Category       string    `json:"category"`
	Price          string    `json:"price"`
	WholesalePrice *string   `json:"wholesale_price,omitempty"`
	CasePack       int       `json:"case_pack,omitempty"`
	Available      bool      `json:"available"`
}

type searchResponse struct {
	Status   string            `json:"status"`
	Products []productResponse `json:"products"`
}

type quoteResponse struct {
	ProductID         uuid.UUID     `json:"product_id"`
	RequestedQuantity int           `json:"requested_quantity"`
	Quantity          int           `json:"quantity"`
	PriceList         string        `json:"price_list"`
	BasePrice         string        `json:"base_price"`
	UnitPrice         string        `json:"unit_price"`
	Total             string        `json:"total"`
	Tier              *pricing.Tier `json:"tier,omitempty"`
}

func toProductResponse(p catalog.Product, showWholesale bool) productResponse {
	resp := productResponse{
		ID:        p.ID,
		Name:      p.Name,
		Category:  p.Category,
		Price:     p.Price.StringFixed(2),
		Available: p.Available,
	}
	if showWholesale {
		resp.CasePack = p.CasePack
		if p.WholesalePrice != nil {
			s := p.WholesalePrice.StringFixed(2)
			resp.WholesalePrice = &s
		}
	}
	return resp
}

// --- Handlers ---

// List handles GET /products?q=. Without a query every product is returned;
// with one, the keyword search decides between a single match, a set of
// candidates or nothing. Wholesale prices are shown to wholesale buyers and
// admins only.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		writeError(w, "list products", err)
		return
	}

	showWholesale := seesWholesale(r)
	q := r.URL.Query().Get("q")

	var found []catalog.Product
	status := catalog.Matched.String()
	if q == "" {
		found = products
	} else {
		result := catalog.NewIndex(products).Search(q)
		status = result.Status.String()
		switch result.Status {
		case catalog.Matched:
			found = []catalog.Product{*result.Product}
		case catalog.Ambiguous:
			found = result.Candidates
		}
	}

	resp := searchResponse{Status: status, Products: make([]productResponse, 0, len(found))}
	for _, p := range found {
		resp.Products = append(resp.Products, toProductResponse(p, showWholesale))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Quote handles GET /products/{id}/quote?quantity=. Wholesale buyers get
// their price list and a quantity rounded to the product's case pack.
func (h *ProductHandler) Quote(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product ID"})
		return
	}

	requested := 1
	if qs := r.URL.Query().Get("quantity"); qs != "" {
		requested, err = strconv.Atoi(qs)
		if err != nil || requested <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "quantity must be a positive integer"})
			return
		}
	}

	p, err := h.products.Get(r.Context(), id)
	if err != nil {
		writeError(w, "get product", err)
		return
	}

	wholesale := middleware.ProfileFromContext(r.Context()) == enum.ProfileWholesale
	quantity := requested
	if step := p.Step(wholesale); step > 0 {
		quantity = pricing.NormalizeToStep(requested, step)
	}

	base := p.PriceFor(wholesale)
	unit := pricing.UnitPrice(base, quantity, h.tiers)
	resp := quoteResponse{
		ProductID:         p.ID,
		RequestedQuantity: requested,
		Quantity:          quantity,
		PriceList:         priceListName(wholesale),
		BasePrice:         base.StringFixed(2),
		UnitPrice:         unit.StringFixed(2),
		Total:             unit.Mul(decimal.NewFromInt(int64(quantity))).StringFixed(2),
	}
	if tier, ok := pricing.BestDiscount(quantity, h.tiers); ok && base.IsPositive() {
		resp.Tier = &tier
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- Helpers ---

func seesWholesale(r *http.Request) bool {
	switch middleware.ProfileFromContext(r.Context()) {
	case enum.ProfileWholesale, enum.ProfileAdmin:
		return true
	}
	return false
}

func priceListName(wholesale bool) string {
	if wholesale {
		return "wholesale"
	}
	return "retail"
}
