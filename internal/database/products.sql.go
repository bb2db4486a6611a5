package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const getProduct = `-- name: GetProduct :one
SELECT id, name, category, price, wholesale_price, case_pack, keywords, is_available, created_at
FROM products
WHERE id = $1
`

func (q *Queries) GetProduct(ctx context.Context, id uuid.UUID) (Product, error) {
	row := q.db.QueryRow(ctx, getProduct, id)
	var i Product
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Category,
		&i.Price,
		&i.WholesalePrice,
		&i.CasePack,
		&i.Keywords,
		&i.IsAvailable,
		&i.CreatedAt,
	)
	return i, err
}

const listProducts = `-- name: ListProducts :many
SELECT id, name, category, price, wholesale_price, case_pack, keywords, is_available, created_at
FROM products
ORDER BY category, name
`

func (q *Queries) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := q.db.Query(ctx, listProducts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Product{}
	for rows.Next() {
		var i Product
		if err := rows.Scan(
			&i.ID,
			&i.Name,
			&i.Category,
			&i.Price,
			&i.WholesalePrice,
			&i.CasePack,
			&i.Keywords,
			&i.IsAvailable,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const upsertProduct = `-- name: UpsertProduct :one
INSERT INTO products (id, name, category, price, wholesale_price, case_pack, keywords, is_available)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (id) DO UPDATE SET
    name = EXCLUDED.name,
    category = EXCLUDED.category,
    price = EXCLUDED.price,
    wholesale_price = EXCLUDED.wholesale_price,
    case_pack = EXCLUDED.case_pack,
    keywords = EXCLUDED.keywords,
    is_available = EXCLUDED.is_available
RETURNING id, name, category, price, wholesale_price, case_pack, keywords, is_available, created_at
`

type UpsertProductParams struct {
	ID             uuid.UUID      `json:"id"`
	Name           string         `json:"name"`
	Category       string         `json:"category"`
	Price          pgtype.Numeric `json:"price"`
	WholesalePrice pgtype.Numeric `json:"wholesale_price"`
	CasePack       int32          `json:"case_pack"`
	Keywords       string         `json:"keywords"`
	IsAvailable    bool           `json:"is_available"`
}

func (q *Queries) UpsertProduct(ctx context.Context, arg UpsertProductParams) (Product, error) {
	row := q.db.QueryRow(ctx, upsertProduct,
		arg.ID,
		arg.Name,
		arg.Category,
		arg.Price,
		arg.WholesalePrice,
		arg.CasePack,
		arg.Keywords,
		arg.IsAvailable,
	)
	var i Product
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Category,
		&i.Price,
		&i.WholesalePrice,
		&i.CasePack,
		&i.Keywords,
		&i.IsAvailable,
		&i.CreatedAt,
	)
	return i, err
}
