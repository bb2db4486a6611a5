package database

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const insertHistoryEntry = `-- name: InsertHistoryEntry :one
INSERT INTO history_entries (id, subject_id, kind, action, performed_by, details, old_value, new_value, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING id, subject_id, kind, action, performed_by, details, old_value, new_value, created_at
`

type InsertHistoryEntryParams struct {
	ID          uuid.UUID `json:"id"`
	SubjectID   uuid.UUID `json:"subject_id"`
	Kind        string    `json:"kind"`
	Action      string    `json:"action"`
	PerformedBy string    `json:"performed_by"`
	Details     string    `json:"details"`
	OldValue    []byte    `json:"old_value"`
	NewValue    []byte    `json:"new_value"`
	CreatedAt   time.Time `json:"created_at"`
}

func (q *Queries) InsertHistoryEntry(ctx context.Context, arg InsertHistoryEntryParams) (HistoryEntry, error) {
	row := q.db.QueryRow(ctx, insertHistoryEntry,
		arg.ID,
		arg.SubjectID,
		arg.Kind,
		arg.Action,
		arg.PerformedBy,
		arg.Details,
		arg.OldValue,
		arg.NewValue,
		arg.CreatedAt,
	)
	var i HistoryEntry
	err := row.Scan(
		&i.ID,
		&i.SubjectID,
		&i.Kind,
		&i.Action,
		&i.PerformedBy,
		&i.Details,
		&i.OldValue,
		&i.NewValue,
		&i.CreatedAt,
	)
	return i, err
}

const listHistoryByKind = `-- name: ListHistoryByKind :many
SELECT id, subject_id, kind, action, performed_by, details, old_value, new_value, created_at
FROM history_entries
WHERE kind = $1
ORDER BY created_at
`

func (q *Queries) ListHistoryByKind(ctx context.Context, kind string) ([]HistoryEntry, error) {
	rows, err := q.db.Query(ctx, listHistoryByKind, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []HistoryEntry{}
	for rows.Next() {
		var i HistoryEntry
		if err := rows.Scan(
			&i.ID,
			&i.SubjectID,
			&i.Kind,
			&i.Action,
			&i.PerformedBy,
			&i.Details,
			&i.OldValue,
			&i.NewValue,
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
