// Package lifecycle manages order, delivery and production records: their
// status progression, soft deletion and the audit trail of every admin action.
package lifecycle

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/surtidora/api/internal/apperr"
	"github.com/surtidora/api/internal/audit"
	"github.com/surtidora/api/internal/database"
	"github.com/surtidora/api/internal/enum"
)

// Errors returned by the lifecycle service.
var (
	ErrRecordNotFound       = fmt.Errorf("%w: record not found", apperr.ErrNotFound)
	ErrNotInTrash           = fmt.Errorf("%w: record is not in the trash", apperr.ErrNotFound)
	ErrReasonRequired       = fmt.Errorf("%w: a deletion reason is required", apperr.ErrValidation)
	ErrInvalidStatus        = fmt.Errorf("%w: invalid status", apperr.ErrValidation)
	ErrStatusUnchanged      = fmt.Errorf("%w: record already has that status", apperr.ErrValidation)
	ErrMessageRequired      = fmt.Errorf("%w: message is required", apperr.ErrValidation)
	ErrActorRequired        = fmt.Errorf("%w: performed_by is required", apperr.ErrValidation)
	ErrAlreadyDeleted       = fmt.Errorf("%w: record is already in the trash", apperr.ErrConflict)
	ErrTransitionNotAllowed = fmt.Errorf("%w: status transition not allowed", apperr.ErrConflict)
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// RecordStore defines the DB methods needed to persist a mutation.
// Satisfied by *database.Queries (and its WithTx variant).
type RecordStore interface {
	UpsertRecord(ctx context.Context, arg database.UpsertRecordParams) (database.Record, error)
	InsertHistoryEntry(ctx context.Context, arg database.InsertHistoryEntryParams) (database.HistoryEntry, error)
}

// NewRecordStore creates a RecordStore from a DBTX (pool or tx).
type NewRecordStore func(db database.DBTX) RecordStore

// RecordReader loads persisted records and history at startup.
type RecordReader interface {
	ListRecordsByKind(ctx context.Context, kind string) ([]database.Record, error)
	ListHistoryByKind(ctx context.Context, kind string) ([]database.HistoryEntry, error)
}

// Notifier receives an event after every committed mutation. The topic is
// the record kind.
type Notifier interface {
	Publish(topic, eventType string, payload any)
}

// Actor is the caller performing an operation.
type Actor struct {
	Email string
	Admin bool
}

// Record is one order, delivery or production entry.
type Record struct {
	ID           uuid.UUID      `json:"id"`
	Kind         string         `json:"kind"`
	Status       string         `json:"status"`
	Fields       map[string]any `json:"fields"`
	AssignedTo   string         `json:"assigned_to,omitempty"`
	Deadline     *time.Time     `json:"deadline,omitempty"`
	Deleted      bool           `json:"is_deleted"`
	DeleteReason string         `json:"delete_reason,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

func (r Record) clone() Record {
	c := r
	c.Fields = maps.Clone(r.Fields)
	if c.Fields == nil {
		c.Fields = map[string]any{}
	}
	if r.Deadline != nil {
		d := *r.Deadline
		c.Deadline = &d
	}
	return c
}

// CreateRequest is the input for a new record. Status defaults to the kind's
// initial status.
type CreateRequest struct {
	Status     string
	Fields     map[string]any
	AssignedTo string
	Deadline   *time.Time
}

// Service owns the authoritative copy of one kind's records. Every mutation
// is written to Postgres (record row and history row in one transaction)
// before the in-memory copy, the audit log and the notifier see it.
type Service struct {
	kind     Kind
	pool     TxBeginner
	newStore NewRecordStore
	log      *audit.Log
	notifier Notifier

	mu      sync.RWMutex
	records map[uuid.UUID]Record
}

// NewService creates a Service for kind. notifier may be nil.
func NewService(kind Kind, pool TxBeginner, newStore NewRecordStore, log *audit.Log, notifier Notifier) *Service {
	return &Service{
		kind:     kind,
		pool:     pool,
		newStore: newStore,
		log:      log,
		notifier: notifier,
		records:  make(map[uuid.UUID]Record),
	}
}

func (s *Service) Kind() Kind { return s.kind }

// Load replaces the in-memory records with the persisted ones and feeds their
// history into the audit log.
func (s *Service) Load(ctx context.Context, reader RecordReader) error {
	rows, err := reader.ListRecordsByKind(ctx, s.kind.Name)
	if err != nil {
		return apperr.Persistence("list records", err)
	}
	history, err := reader.ListHistoryByKind(ctx, s.kind.Name)
	if err != nil {
		return apperr.Persistence("list history", err)
	}

	records := make(map[uuid.UUID]Record, len(rows))
	for _, row := range rows {
		rec, err := recordFromRow(row)
		if err != nil {
			return fmt.Errorf("decode record %s: %w", row.ID, err)
		}
		records[rec.ID] = rec
	}
	entries := make([]audit.Entry, 0, len(history))
	for _, h := range history {
		entries = append(entries, entryFromRow(h))
	}

	s.mu.Lock()
	s.records = records
	s.mu.Unlock()
	s.log.Load(entries)
	return nil
}

// Get returns the record with id, whether active or in the trash.
func (s *Service) Get(id uuid.UUID) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return Record{}, ErrRecordNotFound
	}
	return rec.clone(), nil
}

// List returns the active records, or the trashed ones when trash is set,
// newest first.
func (s *Service) List(trash bool) []Record {
	s.mu.RLock()
	out := make([]Record, 0, len(s.records))
	for _, rec := range s.records {
		if rec.Deleted == trash {
			out = append(out, rec.clone())
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// History returns the record's entries newest-first; empty when there are none.
func (s *Service) History(id uuid.UUID) []audit.Entry {
	return s.log.History(id)
}

// Overdue returns active, non-terminal records whose deadline is before now,
// earliest deadline first.
func (s *Service) Overdue(now time.Time) []Record {
	s.mu.RLock()
	var out []Record
	for _, rec := range s.records {
		if rec.Deleted || rec.Deadline == nil || s.kind.IsTerminal(rec.Status) {
			continue
		}
		if rec.Deadline.Before(now) {
			out = append(out, rec.clone())
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].Deadline.Before(*out[j].Deadline)
	})
	return out
}

// Create stores a new record and appends a create entry.
func (s *Service) Create(ctx context.Context, actor Actor, req CreateRequest) (Record, error) {
	if err := validateActor(actor); err != nil {
		return Record{}, err
	}
	status := req.Status
	if status == "" {
		status = s.kind.Initial
	}
	if !s.kind.HasStatus(status) {
		return Record{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	now := time.Now().UTC()
	rec := Record{
		ID:         uuid.New(),
		Kind:       s.kind.Name,
		Status:     status,
		Fields:     req.Fields,
		AssignedTo: strings.TrimSpace(req.AssignedTo),
		Deadline:   req.Deadline,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	rec = rec.clone()

	entry := audit.NewEntry(rec.ID, s.kind.Name, enum.ActionCreate, actor.Email, "", nil, rec.Fields)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.commit(ctx, &rec, entry); err != nil {
		return Record{}, err
	}
	s.apply(rec, entry, enum.EventRecordCreated, rec)
	return rec.clone(), nil
}

// Edit applies a partial update to the record's fields. A nil value removes
// the field. When nothing differs the record is returned unchanged and no
// history is written.
func (s *Service) Edit(ctx context.Context, actor Actor, id uuid.UUID, changes map[string]any) (Record, error) {
	if err := validateActor(actor); err != nil {
		return Record{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.records[id]
	if !ok {
		return Record{}, ErrRecordNotFound
	}

	effective := make(map[string]any, len(changes))
	for k, v := range changes {
		if _, existed := current.Fields[k]; v == nil && !existed {
			continue
		}
		effective[k] = v
	}
	oldValues, newValues := audit.Diff(current.Fields, effective)
	if len(newValues) == 0 {
		return current.clone(), nil
	}

	next := current.clone()
	for k, v := range newValues {
		if v == nil {
			delete(next.Fields, k)
			continue
		}
		next.Fields[k] = v
	}
	next.UpdatedAt = time.Now().UTC()

	entry := audit.NewEntry(id, s.kind.Name, enum.ActionEdit, actor.Email, changedKeys(newValues), oldValues, newValues)
	if err := s.commit(ctx, &next, entry); err != nil {
		return Record{}, err
	}
	s.apply(next, entry, enum.EventRecordUpdated, next)
	return next.clone(), nil
}

// ChangeStatus moves the record to status. Admins may pick any status of the
// kind, including moving backward; other callers are held to the forward
// progression.
func (s *Service) ChangeStatus(ctx context.Context, actor Actor, id uuid.UUID, status string) (Record, error) {
	if err := validateActor(actor); err != nil {
		return Record{}, err
	}
	if !s.kind.HasStatus(status) {
		return Record{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.records[id]
	if !ok {
		return Record{}, ErrRecordNotFound
	}
	if current.Status == status {
		return Record{}, ErrStatusUnchanged
	}
	if !actor.Admin {
		if err := s.kind.validateTransition(current.Status, status); err != nil {
			return Record{}, err
		}
	}

	next := current.clone()
	next.Status = status
	next.UpdatedAt = time.Now().UTC()

	entry := audit.NewEntry(id, s.kind.Name, enum.ActionStatusChange, actor.Email,
		fmt.Sprintf("%s -> %s", current.Status, status), current.Status, status)
	if err := s.commit(ctx, &next, entry); err != nil {
		return Record{}, err
	}
	s.apply(next, entry, enum.EventRecordStatusChanged, next)
	return next.clone(), nil
}

// SoftDelete moves the record to the trash. The reason is mandatory.
func (s *Service) SoftDelete(ctx context.Context, actor Actor, id uuid.UUID, reason string) (Record, error) {
	if err := validateActor(actor); err != nil {
		return Record{}, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return Record{}, ErrReasonRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.records[id]
	if !ok {
		return Record{}, ErrRecordNotFound
	}
	if current.Deleted {
		return Record{}, ErrAlreadyDeleted
	}

	next := current.clone()
	next.Deleted = true
	next.DeleteReason = reason
	next.UpdatedAt = time.Now().UTC()

	entry := audit.NewEntry(id, s.kind.Name, enum.ActionDelete, actor.Email, reason, false, true)
	if err := s.commit(ctx, &next, entry); err != nil {
		return Record{}, err
	}
	s.apply(next, entry, enum.EventRecordDeleted, next)
	return next.clone(), nil
}

// Restore moves a trashed record back to the active set with its fields and
// status as they were before deletion.
func (s *Service) Restore(ctx context.Context, actor Actor, id uuid.UUID) (Record, error) {
	if err := validateActor(actor); err != nil {
		return Record{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.records[id]
	if !ok || !current.Deleted {
		return Record{}, ErrNotInTrash
	}

	next := current.clone()
	next.Deleted = false
	next.DeleteReason = ""
	next.UpdatedAt = time.Now().UTC()

	entry := audit.NewEntry(id, s.kind.Name, enum.ActionRestore, actor.Email, current.DeleteReason, true, false)
	if err := s.commit(ctx, &next, entry); err != nil {
		return Record{}, err
	}
	s.apply(next, entry, enum.EventRecordRestored, next)
	return next.clone(), nil
}

// Assign sets the person responsible for the record. An empty assignee
// clears the assignment.
func (s *Service) Assign(ctx context.Context, actor Actor, id uuid.UUID, assignee string) (Record, error) {
	if err := validateActor(actor); err != nil {
		return Record{}, err
	}
	assignee = strings.TrimSpace(assignee)

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.records[id]
	if !ok {
		return Record{}, ErrRecordNotFound
	}
	if current.AssignedTo == assignee {
		return current.clone(), nil
	}

	next := current.clone()
	next.AssignedTo = assignee
	next.UpdatedAt = time.Now().UTC()

	entry := audit.NewEntry(id, s.kind.Name, enum.ActionAssign, actor.Email, assignee, current.AssignedTo, assignee)
	if err := s.commit(ctx, &next, entry); err != nil {
		return Record{}, err
	}
	s.apply(next, entry, enum.EventRecordAssigned, next)
	return next.clone(), nil
}

// MessageEvent is the payload published when a message is sent on a record.
type MessageEvent struct {
	RecordID uuid.UUID `json:"record_id"`
	From     string    `json:"from"`
	Message  string    `json:"message"`
}

// SendMessage records a message to the customer or assignee of the record.
// The record itself is not modified.
func (s *Service) SendMessage(ctx context.Context, actor Actor, id uuid.UUID, message string) (audit.Entry, error) {
	if err := validateActor(actor); err != nil {
		return audit.Entry{}, err
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return audit.Entry{}, ErrMessageRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.records[id]
	if !ok {
		return audit.Entry{}, ErrRecordNotFound
	}

	entry := audit.NewEntry(id, s.kind.Name, enum.ActionSendMessage, actor.Email, message, nil, nil)
	if err := s.commit(ctx, nil, entry); err != nil {
		return audit.Entry{}, err
	}
	s.apply(current, entry, enum.EventRecordMessage, MessageEvent{RecordID: id, From: actor.Email, Message: message})
	return entry, nil
}

// commit writes the record (when non-nil) and its history entry in one
// transaction. Callers hold s.mu.
func (s *Service) commit(ctx context.Context, rec *Record, entry audit.Entry) error {
	var recParams database.UpsertRecordParams
	if rec != nil {
		p, err := recordParams(*rec)
		if err != nil {
			return err
		}
		recParams = p
	}
	histParams, err := historyParams(entry)
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return apperr.Persistence("begin tx", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	if rec != nil {
		if _, err := store.UpsertRecord(ctx, recParams); err != nil {
			return apperr.Persistence("upsert record", err)
		}
	}
	if _, err := store.InsertHistoryEntry(ctx, histParams); err != nil {
		return apperr.Persistence("insert history entry", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return apperr.Persistence("commit tx", err)
	}
	return nil
}

// apply publishes a committed mutation to memory, the audit log and the
// notifier. Callers hold s.mu.
func (s *Service) apply(rec Record, entry audit.Entry, eventType string, payload any) {
	s.records[rec.ID] = rec.clone()
	s.log.Append(entry)
	if s.notifier != nil {
		s.notifier.Publish(s.kind.Name, eventType, payload)
	}
}

// --- Helpers ---

func validateActor(a Actor) error {
	if strings.TrimSpace(a.Email) == "" {
		return ErrActorRequired
	}
	return nil
}

func changedKeys(values map[string]any) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return strings.Join(keys, ", ")
}

func recordParams(r Record) (database.UpsertRecordParams, error) {
	fields, err := json.Marshal(r.Fields)
	if err != nil {
		return database.UpsertRecordParams{}, fmt.Errorf("%w: fields: %v", apperr.ErrValidation, err)
	}
	p := database.UpsertRecordParams{
		ID:         r.ID,
		Kind:       r.Kind,
		Status:     r.Status,
		Fields:     fields,
		AssignedTo: pgtype.Text{String: r.AssignedTo, Valid: r.AssignedTo != ""},
		IsDeleted:  r.Deleted,
		DeleteReason: pgtype.Text{
			String: r.DeleteReason,
			Valid:  r.DeleteReason != "",
		},
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.Deadline != nil {
		p.Deadline = pgtype.Timestamptz{Time: *r.Deadline, Valid: true}
	}
	return p, nil
}

func historyParams(e audit.Entry) (database.InsertHistoryEntryParams, error) {
	oldValue, err := marshalValue(e.OldValue)
	if err != nil {
		return database.InsertHistoryEntryParams{}, err
	}
	newValue, err := marshalValue(e.NewValue)
	if err != nil {
		return database.InsertHistoryEntryParams{}, err
	}
	return database.InsertHistoryEntryParams{
		ID:          e.ID,
		SubjectID:   e.SubjectID,
		Kind:        e.Kind,
		Action:      e.Action,
		PerformedBy: e.PerformedBy,
		Details:     e.Details,
		OldValue:    oldValue,
		NewValue:    newValue,
		CreatedAt:   e.Timestamp,
	}, nil
}

func marshalValue(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: history value: %v", apperr.ErrValidation, err)
	}
	return b, nil
}

func recordFromRow(row database.Record) (Record, error) {
	fields := map[string]any{}
	if len(row.Fields) > 0 {
		if err := json.Unmarshal(row.Fields, &fields); err != nil {
			return Record{}, err
		}
	}
	rec := Record{
		ID:           row.ID,
		Kind:         row.Kind,
		Status:       row.Status,
		Fields:       fields,
		AssignedTo:   row.AssignedTo.String,
		Deleted:      row.IsDeleted,
		DeleteReason: row.DeleteReason.String,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
	if row.Deadline.Valid {
		d := row.Deadline.Time
		rec.Deadline = &d
	}
	return rec, nil
}

func entryFromRow(row database.HistoryEntry) audit.Entry {
	return audit.Entry{
		ID:          row.ID,
		SubjectID:   row.SubjectID,
		Kind:        row.Kind,
		Action:      row.Action,
		PerformedBy: row.PerformedBy,
		Timestamp:   row.CreatedAt,
		Details:     row.Details,
		OldValue:    unmarshalValue(row.OldValue),
		NewValue:    unmarshalValue(row.NewValue),
	}
}

func unmarshalValue(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return string(b)
	}
	return v
}
