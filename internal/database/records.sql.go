package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const upsertRecord = `-- name: UpsertRecord :one
INSERT INTO records (id, kind, status, fields, assigned_to, deadline, is_deleted, delete_reason, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (id) DO UPDATE SET
    status = EXCLUDED.status,
    fields = EXCLUDED.fields,
    assigned_to = EXCLUDED.assigned_to,
    deadline = EXCLUDED.deadline,
    is_deleted = EXCLUDED.is_deleted,
    delete_reason = EXCLUDED.delete_reason,
    updated_at = EXCLUDED.updated_at
WHERE records.kind = EXCLUDED.kind
RETURNING id, kind, status, fields, assigned_to, deadline, is_deleted, delete_reason, created_at, updated_at
`

type UpsertRecordParams struct {
	ID           uuid.UUID          `json:"id"`
	Kind         string             `json:"kind"`
	Status       string             `json:"status"`
	Fields       []byte             `json:"fields"`
	AssignedTo   pgtype.Text        `json:"assigned_to"`
	Deadline     pgtype.Timestamptz `json:"deadline"`
	IsDeleted    bool               `json:"is_deleted"`
	DeleteReason pgtype.Text        `json:"delete_reason"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

func (q *Queries) UpsertRecord(ctx context.Context, arg UpsertRecordParams) (Record, error) {
	row := q.db.QueryRow(ctx, upsertRecord,
		arg.ID,
		arg.Kind,
		arg.Status,
		arg.Fields,
		arg.AssignedTo,
		arg.Deadline,
		arg.IsDeleted,
		arg.DeleteReason,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	var i Record
	err := row.Scan(
		&i.ID,
		&i.Kind,
		&i.Status,
		&i.Fields,
		&i.AssignedTo,
		&i.Deadline,
		&i.IsDeleted,
		&i.DeleteReason,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const listRecordsByKind = `-- name: ListRecordsByKind :many
SELECT id, kind, status, fields, assigned_to, deadline, is_deleted, delete_reason, created_at, updated_at
FROM records
WHERE kind = $1
ORDER BY created_at
`

func (q *Queries) ListRecordsByKind(ctx context.Context, kind string) ([]Record, error) {
	rows, err := q.db.Query(ctx, listRecordsByKind, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Record{}
	for rows.Next() {
		var i Record
		if err := rows.Scan(
			&i.ID,
			&i.Kind,
			&i.Status,
			&i.Fields,
			&i.AssignedTo,
			&i.Deadline,
			&i.IsDeleted,
			&i.DeleteReason,
			&i.CreatedAt,
			&i.UpdatedAt,
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
