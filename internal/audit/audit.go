// Package audit keeps the append-only history of state-changing admin
// actions. Entries are never mutated or removed once appended.
package audit

import (
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Entry is one recorded action against a subject (an order, delivery or
// production record).
type Entry struct {
	ID          uuid.UUID `json:"id"`
	SubjectID   uuid.UUID `json:"subject_id"`
	Kind        string    `json:"kind"`
	Action      string    `json:"action"`
	PerformedBy string    `json:"performed_by"`
	Timestamp   time.Time `json:"timestamp"`
	Details     string    `json:"details"`
	OldValue    any       `json:"old_value,omitempty"`
	NewValue    any       `json:"new_value,omitempty"`
}

// NewEntry stamps a fresh id and the current UTC time.
func NewEntry(subjectID uuid.UUID, kind, action, performedBy, details string, oldValue, newValue any) Entry {
	return Entry{
		ID:          uuid.New(),
		SubjectID:   subjectID,
		Kind:        kind,
		Action:      action,
		PerformedBy: performedBy,
		Timestamp:   time.Now().UTC(),
		Details:     details,
		OldValue:    oldValue,
		NewValue:    newValue,
	}
}

// Log indexes entries by subject. Safe for concurrent use.
type Log struct {
	mu        sync.RWMutex
	bySubject map[uuid.UUID][]Entry
	count     int
}

func NewLog() *Log {
	return &Log{bySubject: make(map[uuid.UUID][]Entry)}
}

// Append records e. Callers append only after the mutation e describes has
// been committed.
func (l *Log) Append(e Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.bySubject[e.SubjectID] = append(l.bySubject[e.SubjectID], e)
	l.count++
}

// Load appends previously persisted entries in chronological order, e.g.
// when rehydrating at startup.
func (l *Log) Load(entries []Entry) {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})
	for _, e := range sorted {
		l.Append(e)
	}
}

// History returns the subject's entries newest-first. The result is a copy
// and never nil.
func (l *Log) History(subjectID uuid.UUID) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	entries := l.bySubject[subjectID]
	out := make([]Entry, len(entries))
	for i, e := range entries {
		out[len(entries)-1-i] = e
	}
	return out
}

// Len is the total number of entries across all subjects.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.count
}

// Diff returns the keys of next whose values differ from prev, with their old
// and new values. Keys absent from prev are reported with a nil old value.
func Diff(prev, next map[string]any) (oldValues, newValues map[string]any) {
	oldValues = make(map[string]any)
	newValues = make(map[string]any)
	for k, nv := range next {
		ov, existed := prev[k]
		if existed && reflect.DeepEqual(ov, nv) {
			continue
		}
		oldValues[k] = ov
		newValues[k] = nv
	}
	return oldValues, newValues
}
