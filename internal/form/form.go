// Package form holds the state of the prediction form: the draft being
// edited, the last prediction response and the last submit error.
package form

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/refset/churn-insight-dashboard/internal/audit"
	"github.com/refset/churn-insight-dashboard/internal/churnapi"
	"github.com/refset/churn-insight-dashboard/internal/customer"
)

// ErrSuperseded is returned by Submit when the form was reset, or submitted
// again, before the backend answered. The answer is dropped.
var ErrSuperseded = errors.New("form changed before the prediction arrived")

// Predictor submits validated records to the backend.
type Predictor interface {
	Predict(ctx context.Context, rec customer.Record) (churnapi.PredictionResponse, error)
}

// View is a snapshot of the form for rendering.
type View struct {
	Draft    customer.Draft
	Response *churnapi.PredictionResponse
	Err      error
}

// Form is the prediction form. Each submit issues at most one request.
type Form struct {
	predictor Predictor
	recorder  audit.Recorder

	mu       sync.Mutex
	draft    customer.Draft
	response *churnapi.PredictionResponse
	err      error
	token    uuid.UUID
}

// New creates an empty form. A nil recorder disables auditing.
func New(p Predictor, recorder audit.Recorder) *Form {
	if recorder == nil {
		recorder = audit.Nop{}
	}
	return &Form{predictor: p, recorder: recorder, draft: customer.Draft{}}
}

// Reset empties the form, as on mount.
func (f *Form) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draft = customer.Draft{}
	f.response = nil
	f.err = nil
	f.token = uuid.New()
}

// Set updates one field of the draft.
func (f *Form) Set(name customer.FieldName, value string) error {
	if _, ok := customer.Lookup(name); !ok {
		return fmt.Errorf("unknown field %q", name)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draft[name] = value
	return nil
}

// Fill replaces every schema field of the draft with the values in d.
func (f *Form) Fill(d customer.Draft) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draft = customer.Draft{}
	for _, field := range customer.Schema {
		if v, ok := d[field.Name]; ok {
			f.draft[field.Name] = v
		}
	}
}

// View returns a snapshot of the form.
func (f *Form) View() View {
	f.mu.Lock()
	defer f.mu.Unlock()
	return View{Draft: f.draft.Clone(), Response: f.response, Err: f.err}
}

// Submit validates the draft and, if complete, sends it for prediction. An
// incomplete draft never reaches the backend. On failure the draft and the
// previous response are kept so the user can resubmit. Only the latest
// submit since the last Reset may update the form.
func (f *Form) Submit(ctx context.Context) (churnapi.PredictionResponse, error) {
	f.mu.Lock()
	draft := f.draft.Clone()
	token := uuid.New()
	f.token = token
	f.mu.Unlock()

	rec, err := customer.Validate(draft)
	if err != nil {
		if !f.settle(token, nil, err) {
			return churnapi.PredictionResponse{}, ErrSuperseded
		}
		return churnapi.PredictionResponse{}, err
	}

	resp, err := f.predictor.Predict(ctx, rec)
	if err != nil {
		log.Warn().Err(err).Str("kind", string(churnapi.KindOf(err))).Msg("prediction request failed")
		if !f.settle(token, nil, err) {
			return churnapi.PredictionResponse{}, ErrSuperseded
		}
		return churnapi.PredictionResponse{}, err
	}

	if !f.settle(token, &resp, nil) {
		log.Debug().Str("token", token.String()).Msg("discarding stale prediction response")
		return churnapi.PredictionResponse{}, ErrSuperseded
	}
	log.Info().Int("predictions", len(resp.Predictions)).Msg("prediction received")

	event := audit.PredictionEvent{
		ID:          uuid.NewString(),
		SubmittedAt: time.Now().UTC(),
		Customer:    rec.Values(),
		Predictions: resp.Predictions,
	}
	if err := f.recorder.RecordPrediction(ctx, event); err != nil {
		log.Error().Err(err).Str("event_id", event.ID).Msg("failed to record prediction")
	}
	return resp, nil
}

// settle stores the outcome of the submit identified by token. A non-nil
// resp replaces the response; err alone leaves the previous response in
// place. It reports false if a newer submit or a Reset came in between.
func (f *Form) settle(token uuid.UUID, resp *churnapi.PredictionResponse, err error) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.token != token {
		return false
	}
	if resp != nil {
		f.response = resp
	}
	f.err = err
	return true
}
