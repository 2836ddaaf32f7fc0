// Package audit records prediction decisions to outbound sinks. Sinks are
// write-only; nothing in the dashboard reads them back.
package audit

import (
	"context"
	"errors"
	"time"

	"github.com/refset/churn-insight-dashboard/internal/churnapi"
)

// PredictionEvent is one successful prediction submit.
type PredictionEvent struct {
	ID          string                      `json:"id"`
	SubmittedAt time.Time                   `json:"submitted_at"`
	Customer    map[string]string           `json:"customer"`
	Predictions []churnapi.PredictionResult `json:"predictions"`
}

// Recorder stores prediction events.
type Recorder interface {
	RecordPrediction(ctx context.Context, ev PredictionEvent) error
	Close() error
}

// Nop discards every event.
type Nop struct{}

func (Nop) RecordPrediction(context.Context, PredictionEvent) error { return nil }
func (Nop) Close() error                                             { return nil }

// Multi fans an event out to several recorders. Every recorder is tried;
// the errors are joined.
type Multi []Recorder

func (m Multi) RecordPrediction(ctx context.Context, ev PredictionEvent) error {
	var errs []error
	for _, r := range m {
		if err := r.RecordPrediction(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, r := range m {
		if err := r.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
