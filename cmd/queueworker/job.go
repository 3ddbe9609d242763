package main

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/datatrails/go-datatrails-typedredis/logger"
	"github.com/datatrails/go-datatrails-typedredis/tracing"
)

const (
	jobKind = "Job"
)

// Job is one unit of work taken from the queue. Attributes carries the span
// context of the producer so the worker span joins the same trace.
type Job struct {
	ID          string            `json:"id"`
	Payload     string            `json:"payload"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	SubmittedAt time.Time         `json:"submitted_at"`
	ProcessedAt *time.Time        `json:"processed_at,omitempty"`
}

func (j Job) GetID() string {
	return j.ID
}

// NewJob returns a job with a fresh id that carries the span in ctx, if any.
func NewJob(ctx context.Context, log logger.Logger, payload string) Job {
	span, _ := tracing.StartSpanFromContext(ctx, log, "queueworker.submit")
	defer span.Close()

	return Job{
		ID:          uuid.NewString(),
		Payload:     payload,
		Attributes:  span.Attributes(),
		SubmittedAt: time.Now().UTC(),
	}
}
