// Package queue schedules lifecycle stages as delayed jobs. Delivery is
// at-least-once: a claimed job that is never acknowledged becomes due
// again once its visibility timeout passes (Redis backend only).
package queue

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Job types understood by the lifecycle.
const (
	JobPrepare = "prepare"
	JobSubmit  = "submit"
	JobConfirm = "confirm"
)

// Job is one scheduled stage of a transaction.
type Job struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	TransactionID uint      `json:"transaction_id"`
	Attempt       int       `json:"attempt"`
	RunAt         time.Time `json:"run_at"`
}

// NewJob creates a job with a fresh id.
func NewJob(jobType string, txID uint, attempt int) *Job {
	return &Job{
		ID:            uuid.NewString(),
		Type:          jobType,
		TransactionID: txID,
		Attempt:       attempt,
	}
}

// Queue is a delayed job queue.
type Queue interface {
	// Enqueue schedules job to run after delay. RunAt is set by the queue.
	Enqueue(ctx context.Context, job *Job, delay time.Duration) error

	// Dequeue blocks until a job is due or ctx is done.
	Dequeue(ctx context.Context) (*Job, error)

	// Ack marks a dequeued job as handled.
	Ack(ctx context.Context, job *Job) error

	// Len returns the number of jobs waiting, due or not.
	Len(ctx context.Context) (int64, error)
}
