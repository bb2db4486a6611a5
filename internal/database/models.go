package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type Product struct {
	ID             uuid.UUID      `json:"id"`
	Name           string         `json:"name"`
	Category       string         `json:"category"`
	Price          pgtype.Numeric `json:"price"`
	WholesalePrice pgtype.Numeric `json:"wholesale_price"`
	CasePack       int32          `json:"case_pack"`
	Keywords       string         `json:"keywords"`
	IsAvailable    bool           `json:"is_available"`
	CreatedAt      time.Time      `json:"created_at"`
}

type Record struct {
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

type HistoryEntry struct {
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
