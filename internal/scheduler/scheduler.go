// Package scheduler runs the periodic background jobs. Jobs are advisory: a
// missed tick is simply picked up by the next one.
package scheduler

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/surtidora/api/internal/enum"
	"github.com/surtidora/api/internal/lifecycle"
)

// OverdueSource lists records past their deadline. Satisfied by
// *lifecycle.Service.
type OverdueSource interface {
	Kind() lifecycle.Kind
	Overdue(now time.Time) []lifecycle.Record
}

// OverdueEvent is the payload of a delivery.overdue event.
type OverdueEvent struct {
	RecordID   uuid.UUID `json:"record_id"`
	Status     string    `json:"status"`
	AssignedTo string    `json:"assigned_to,omitempty"`
	Deadline   time.Time `json:"deadline"`
	// LateBySeconds is how far past the deadline the record was at sweep time.
	LateBySeconds int64 `json:"late_by_seconds"`
}

// OverdueSweep publishes one event per overdue delivery on every run.
type OverdueSweep struct {
	source   OverdueSource
	notifier lifecycle.Notifier
	now      func() time.Time
}

func NewOverdueSweep(source OverdueSource, notifier lifecycle.Notifier) *OverdueSweep {
	return &OverdueSweep{source: source, notifier: notifier, now: time.Now}
}

// Run implements cron.Job.
func (s *OverdueSweep) Run() {
	now := s.now().UTC()
	topic := s.source.Kind().Name
	overdue := s.source.Overdue(now)
	for _, rec := range overdue {
		s.notifier.Publish(topic, enum.EventDeliveryOverdue, OverdueEvent{
			RecordID:      rec.ID,
			Status:        rec.Status,
			AssignedTo:    rec.AssignedTo,
			Deadline:      *rec.Deadline,
			LateBySeconds: int64(now.Sub(*rec.Deadline) / time.Second),
		})
	}
	if len(overdue) > 0 {
		log.Printf("overdue sweep: %d %s past deadline", len(overdue), topic)
	}
}

// Start registers job on spec (standard cron syntax or descriptors such as
// "@every 1m") and starts the scheduler. Stop the returned cron on shutdown.
func Start(spec string, job cron.Job) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger)))
	if _, err := c.AddJob(spec, job); err != nil {
		return nil, fmt.Errorf("schedule %q: %w", spec, err)
	}
	c.Start()
	return c, nil
}
