package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/surtidora/api/internal/apperr"
	"github.com/surtidora/api/internal/database"
)

// Errors returned by the repository.
var (
	ErrProductNotFound = fmt.Errorf("%w: product not found", apperr.ErrNotFound)
)

// ProductQuerier defines the DB methods needed to read the catalog.
// Satisfied by *database.Queries; narrow interface for testability.
type ProductQuerier interface {
	GetProduct(ctx context.Context, id uuid.UUID) (database.Product, error)
	ListProducts(ctx context.Context) ([]database.Product, error)
}

// Repository reads products from the external catalog store.
type Repository struct {
	q ProductQuerier
}

func NewRepository(q ProductQuerier) *Repository {
	return &Repository{q: q}
}

// Get returns one product, or ErrProductNotFound.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Product, error) {
	row, err := r.q.GetProduct(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrProductNotFound
		}
		return Product{}, apperr.Persistence("get product", err)
	}
	return fromRow(row), nil
}

// List returns the whole catalog ordered by category and name.
func (r *Repository) List(ctx context.Context) ([]Product, error) {
	rows, err := r.q.ListProducts(ctx)
	if err != nil {
		return nil, apperr.Persistence("list products", err)
	}
	out := make([]Product, len(rows))
	for i, row := range rows {
		out[i] = fromRow(row)
	}
	return out, nil
}

func fromRow(row database.Product) Product {
	p := Product{
		ID:        row.ID,
		Name:      row.Name,
		Category:  row.Category,
		Price:     numericToDecimal(row.Price),
		Available: row.IsAvailable,
		CasePack:  int(row.CasePack),
		Keywords:  row.Keywords,
	}
	if row.WholesalePrice.Valid {
		wp := numericToDecimal(row.WholesalePrice)
		p.WholesalePrice = &wp
	}
	return p
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}
