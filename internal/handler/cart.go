package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/surtidora/api/internal/cart"
	"github.com/surtidora/api/internal/catalog"
	"github.com/surtidora/api/internal/enum"
	"github.com/surtidora/api/internal/lifecycle"
	"github.com/surtidora/api/internal/middleware"
	"github.com/surtidora/api/internal/pricing"
	"github.com/surtidora/api/internal/quickorder"
	"github.com/surtidora/api/internal/service"
)

// Checkouter turns a cart into an order. Satisfied by *service.CheckoutService.
type Checkouter interface {
	Checkout(ctx context.Context, c service.Cart, req service.CheckoutRequest) (lifecycle.Record, error)
}

// CartHandler serves the signed-in caller's cart. Carts are keyed by the
// caller's email and priced on the wholesale list for wholesale buyers.
type CartHandler struct {
	storage  cart.Storage
	products ProductCatalog
	policy   cart.Policy
	checkout Checkouter
}

// NewCartHandler creates a new CartHandler.
func NewCartHandler(storage cart.Storage, products ProductCatalog, policy cart.Policy, checkout Checkouter) *CartHandler {
	return &CartHandler{storage: storage, products: products, policy: policy, checkout: checkout}
}

// RegisterRoutes registers cart endpoints on the given Chi router.
// Expected to be mounted at /cart behind the shop route class. Checkout is
// mounted separately behind the checkout route class.
func (h *CartHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Get)
	r.Delete("/", h.Clear)
	r.Post("/items", h.AddItem)
	r.Put("/items/{pid}", h.UpdateQuantity)
	r.Delete("/items/{pid}", h.RemoveItem)
	r.Post("/code", h.ApplyCode)
	r.Post("/import", h.Import)
}

// --- Request / Response types ---

type addItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"gt=0"`
}

type updateQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}

type applyCodeRequest struct {
	Code string `json:"code" validate:"required"`
}

type importRequest struct {
	Text string `json:"text" validate:"required"`
}

type checkoutRequest struct {
	Customer string `json:"customer" validate:"required"`
	Address  string `json:"address" validate:"required"`
	Phone    string `json:"phone"`
	Notes    string `json:"notes"`
}

type cartLineResponse struct {
	ProductID uuid.UUID `json:"product_id"`
	Name      string    `json:"name"`
	Quantity  int       `json:"quantity"`
	CasePack  int       `json:"case_pack,omitempty"`
	UnitPrice string    `json:"unit_price"`
	Total     string    `json:"total"`
}

type cartResponse struct {
	PriceList      string             `json:"price_list"`
	Items          []cartLineResponse `json:"items"`
	TotalItems     int                `json:"total_items"`
	Subtotal       string             `json:"subtotal"`
	Discount       string             `json:"discount"`
	Total          string             `json:"total"`
	DiscountSource string             `json:"discount_source,omitempty"`
	Tier           *pricing.Tier      `json:"tier,omitempty"`
	DiscountCode   string             `json:"discount_code,omitempty"`
	Minimum        string             `json:"minimum"`
	MinimumMet     bool               `json:"minimum_met"`
}

func (h *CartHandler) toCartResponse(s *cart.Store) cartResponse {
	wholesale := s.Wholesale()
	t := s.Totals()
	resp := cartResponse{
		PriceList:      priceListName(wholesale),
		Items:          make([]cartLineResponse, 0),
		TotalItems:     t.TotalItems,
		Subtotal:       t.Subtotal.StringFixed(2),
		Discount:       t.Discount.StringFixed(2),
		Total:          t.Total.StringFixed(2),
		DiscountSource: t.DiscountSource,
		Tier:           t.Tier,
		DiscountCode:   t.Code,
		Minimum:        h.policy.Minimum.StringFixed(2),
		MinimumMet:     t.MinimumMet,
	}
	for _, l := range s.Lines() {
		resp.Items = append(resp.Items, cartLineResponse{
			ProductID: l.Product.ID,
			Name:      l.Product.Name,
			Quantity:  l.Quantity,
			CasePack:  l.Product.Step(wholesale),
			UnitPrice: l.UnitPrice(wholesale).StringFixed(2),
			Total:     l.Total(wholesale).StringFixed(2),
		})
	}
	return resp
}

type importIssue struct {
	Line       string            `json:"line"`
	Reason     string            `json:"reason"`
	Candidates []productResponse `json:"candidates,omitempty"`
}

type importResponse struct {
	Cart       cartResponse  `json:"cart"`
	Added      int           `json:"added"`
	Unresolved []importIssue `json:"unresolved"`
	Warnings   []string      `json:"warnings,omitempty"`
}

// --- Helpers ---

// open loads the caller's cart. It writes the error response itself and
// returns nil when the cart cannot be opened.
func (h *CartHandler) open(w http.ResponseWriter, r *http.Request) *cart.Store {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return nil
	}
	wholesale := middleware.ProfileFromContext(r.Context()) == enum.ProfileWholesale

	s, err := cart.Open(r.Context(), h.storage, cart.Key(claims.Email), h.policy, wholesale)
	if err != nil {
		writeError(w, "open cart", err)
		return nil
	}
	return s
}

func productIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "pid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product ID"})
		return uuid.Nil, false
	}
	return id, true
}

// --- Handlers ---

// Get handles GET /cart.
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	s := h.open(w, r)
	if s == nil {
		return
	}
	writeJSON(w, http.StatusOK, h.toCartResponse(s))
}

// AddItem handles POST /cart/items.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, "add item", err)
		return
	}
	productID := uuid.MustParse(req.ProductID)

	s := h.open(w, r)
	if s == nil {
		return
	}

	p, err := h.products.Get(r.Context(), productID)
	if err != nil {
		writeError(w, "get product", err)
		return
	}
	if err := s.AddItem(r.Context(), p, req.Quantity); err != nil {
		writeError(w, "add item", err)
		return
	}
	writeJSON(w, http.StatusOK, h.toCartResponse(s))
}

// UpdateQuantity handles PUT /cart/items/{pid}. A quantity of zero or less
// removes the line.
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}
	var req updateQuantityRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, "update quantity", err)
		return
	}

	s := h.open(w, r)
	if s == nil {
		return
	}
	if err := s.UpdateQuantity(r.Context(), productID, *req.Quantity); err != nil {
		writeError(w, "update quantity", err)
		return
	}
	writeJSON(w, http.StatusOK, h.toCartResponse(s))
}

// RemoveItem handles DELETE /cart/items/{pid}. Removing a product that is
// not in the cart succeeds.
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}

	s := h.open(w, r)
	if s == nil {
		return
	}
	if err := s.RemoveItem(r.Context(), productID); err != nil {
		writeError(w, "remove item", err)
		return
	}
	writeJSON(w, http.StatusOK, h.toCartResponse(s))
}

// Clear handles DELETE /cart.
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	s := h.open(w, r)
	if s == nil {
		return
	}
	if err := s.Clear(r.Context()); err != nil {
		writeError(w, "clear cart", err)
		return
	}
	writeJSON(w, http.StatusOK, h.toCartResponse(s))
}

// ApplyCode handles POST /cart/code.
func (h *CartHandler) ApplyCode(w http.ResponseWriter, r *http.Request) {
	var req applyCodeRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, "apply code", err)
		return
	}

	s := h.open(w, r)
	if s == nil {
		return
	}
	if err := s.ApplyCode(r.Context(), req.Code); err != nil {
		writeError(w, "apply code", err)
		return
	}
	writeJSON(w, http.StatusOK, h.toCartResponse(s))
}

// Checkout handles POST /cart/checkout.
func (h *CartHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, "checkout", err)
		return
	}

	s := h.open(w, r)
	if s == nil {
		return
	}
	claims := middleware.ClaimsFromContext(r.Context())

	order, err := h.checkout.Checkout(r.Context(), s, service.CheckoutRequest{
		Email:    claims.Email,
		Customer: req.Customer,
		Address:  req.Address,
		Phone:    req.Phone,
		Notes:    req.Notes,
	})
	if err != nil {
		writeError(w, "checkout", err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

// Import handles POST /cart/import. Each line of the pasted list is searched
// in the catalog; lines with a single available match are added in one write
// and the rest are reported back for the shopper to pick.
func (h *CartHandler) Import(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, "import list", err)
		return
	}
	list, err := quickorder.Parse(req.Text)
	if err != nil {
		writeError(w, "import list", err)
		return
	}

	s := h.open(w, r)
	if s == nil {
		return
	}
	products, err := h.products.List(r.Context())
	if err != nil {
		writeError(w, "list products", err)
		return
	}

	wholesale := s.Wholesale()
	idx := catalog.NewIndex(products)
	resp := importResponse{Unresolved: make([]importIssue, 0), Warnings: list.Warnings}
	var lines []cart.Line

	for _, item := range list.Items {
		result := idx.Search(item.Query)
		switch {
		case result.Status == catalog.Ambiguous:
			issue := importIssue{Line: item.Raw, Reason: "ambiguous"}
			for _, p := range result.Candidates {
				issue.Candidates = append(issue.Candidates, toProductResponse(p, wholesale))
			}
			resp.Unresolved = append(resp.Unresolved, issue)
		case result.Status != catalog.Matched:
			resp.Unresolved = append(resp.Unresolved, importIssue{Line: item.Raw, Reason: "not found"})
		case !result.Product.Available:
			resp.Unresolved = append(resp.Unresolved, importIssue{Line: item.Raw, Reason: "unavailable"})
		default:
			qty := item.Quantity
			if item.Cases && result.Product.CasePack > 1 {
				qty *= result.Product.CasePack
			}
			lines = append(lines, cart.Line{Product: *result.Product, Quantity: qty})
		}
	}

	if err := s.AddItems(r.Context(), lines); err != nil {
		writeError(w, "import list", err)
		return
	}
	resp.Added = len(lines)
	resp.Cart = h.toCartResponse(s)
	writeJSON(w, http.StatusOK, resp)
}
