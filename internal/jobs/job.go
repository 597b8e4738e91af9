// Package jobs provides a durable, at-least-once delayed job queue.
//
// Every piece of delayed lifecycle work (quote expiry, trip
// auto-complete, driver cooldown, assignment retries, the pending-quote
// sweep) goes through this queue rather than in-process timers, so it
// survives restarts. Delivery is at-least-once: a handler may run more
// than once for the same job and must be idempotent.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Kind identifies a class of delayed work.
type Kind string

const (
	KindQuoteExpiry          Kind = "quote-expiry"
	KindTripAutoComplete     Kind = "trip-auto-complete"
	KindDriverCooldown       Kind = "driver-cooldown"
	KindAssignDriver         Kind = "assign-driver"
	KindProcessPendingQuotes Kind = "process-pending-quotes"
)

// GlobalCorrelationID is the correlation id for singleton jobs that
// are not tied to any entity, such as the pending-quote sweep.
const GlobalCorrelationID = "global"

// Kinds lists every job kind, in no particular order.
var Kinds = []Kind{
	KindQuoteExpiry,
	KindTripAutoComplete,
	KindDriverCooldown,
	KindAssignDriver,
	KindProcessPendingQuotes,
}

// Status is the lifecycle state of a job.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusRunning   Status = "RUNNING"
	StatusDone      Status = "DONE"
	StatusCancelled Status = "CANCELLED"
	StatusFailed    Status = "FAILED"
)

// Live reports whether a job in this status still counts against the
// one-live-job-per-(kind, correlation id) rule.
func (s Status) Live() bool {
	return s == StatusPending || s == StatusRunning
}

// Payload carries the entity references a handler needs. Unused fields
// stay empty.
type Payload struct {
	QuoteID       string `json:"quote_id,omitempty"`
	ReservationID string `json:"reservation_id,omitempty"`
	DriverID      string `json:"driver_id,omitempty"`
}

// Job is one unit of delayed work.
type Job struct {
	ID            string
	Kind          Kind
	CorrelationID string
	FireAt        time.Time
	Payload       []byte
	Status        Status
	Attempts      int
	LockedUntil   time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// DecodePayload unmarshals the job payload.
func (j *Job) DecodePayload() (Payload, error) {
	var p Payload
	if len(j.Payload) == 0 {
		return p, nil
	}
	err := json.Unmarshal(j.Payload, &p)
	return p, err
}

var (
	// ErrDuplicateJob is returned when a live job already exists for
	// the same (kind, correlation id). Callers that need to reschedule
	// cancel first, then enqueue.
	ErrDuplicateJob = errors.New("live job already exists for kind and correlation id")

	// ErrNoJob is returned by Claim when no due job is available.
	ErrNoJob = errors.New("no due job")
)

// Queue is the enqueue/cancel surface used by the lifecycle services.
type Queue interface {
	// Enqueue schedules a job. Returns ErrDuplicateJob if a live job
	// with the same (kind, correlationID) already exists.
	Enqueue(ctx context.Context, kind Kind, correlationID string, fireAt time.Time, payload Payload) (*Job, error)

	// Cancel removes a pending job matching (kind, correlationID).
	// Best-effort: a job that already began executing is not
	// interrupted; the handler's own idempotent guard is the safety
	// net. Cancelling a job that does not exist is not an error.
	Cancel(ctx context.Context, kind Kind, correlationID string) error

	// HasLive reports whether a live job exists for (kind, correlationID).
	HasLive(ctx context.Context, kind Kind, correlationID string) (bool, error)
}

// Store is the full persistence surface, consumed by the worker.
type Store interface {
	Queue

	// Claim leases the next due job of the given kind, marking it
	// RUNNING until lockedUntil. Returns ErrNoJob when nothing is due.
	// A RUNNING job whose lease expired is claimable again; that is
	// where at-least-once delivery comes from.
	Claim(ctx context.Context, kind Kind, now time.Time, lockedUntil time.Time) (*Job, error)

	// MarkDone finishes a job successfully.
	MarkDone(ctx context.Context, jobID string) error

	// MarkRetry reschedules a failed job to fire again at retryAt.
	MarkRetry(ctx context.Context, jobID string, retryAt time.Time) error

	// MarkFailed terminates a job that exhausted its retries.
	MarkFailed(ctx context.Context, jobID string) error
}
