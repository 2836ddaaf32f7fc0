package audit

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/refset/churn-insight-dashboard/internal/churnapi"
)

func init() {
	zerolog.SetGlobalLevel(zerolog.ErrorLevel)
}

func sampleEvent() PredictionEvent {
	return PredictionEvent{
		ID:          "3f1c2a9e-1111-4d2b-8c55-6d0f8a7e0b21",
		SubmittedAt: time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC),
		Customer:    map[string]string{"geography": "France", "creditScore": "650"},
		Predictions: []churnapi.PredictionResult{
			{Model: "DecisionTree", Prediction: "Churn"},
			{Model: "XGBoost", Prediction: "No Churn"},
		},
	}
}

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaRecorder_WritesOneKeyedMessage(t *testing.T) {
	w := &fakeWriter{}
	k := &KafkaRecorder{writer: w, topic: "predictions"}

	require.NoError(t, k.RecordPrediction(context.Background(), sampleEvent()))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, sampleEvent().ID, string(w.msgs[0].Key))

	var got PredictionEvent
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &got))
	assert.Equal(t, sampleEvent(), got)

	require.NoError(t, k.Close())
	assert.True(t, w.closed)
}

func TestKafkaRecorder_WriteError(t *testing.T) {
	k := &KafkaRecorder{writer: &fakeWriter{err: errors.New("broker down")}, topic: "predictions"}
	err := k.RecordPrediction(context.Background(), sampleEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "predictions")
	assert.Contains(t, err.Error(), "broker down")
}

type fakeExec struct {
	sql []string
	err error
}

func (f *fakeExec) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	f.sql = append(f.sql, sql)
	return pgconn.CommandTag{}, f.err
}

func TestXTDBRecorder_InsertsRecordPerPrediction(t *testing.T) {
	db := &fakeExec{}
	x := &XTDBRecorder{db: db, table: DefaultTable}

	require.NoError(t, x.RecordPrediction(context.Background(), sampleEvent()))
	require.Len(t, db.sql, 2)

	first := db.sql[0]
	assert.True(t, strings.HasPrefix(first, "INSERT INTO dashboard_predictions RECORDS {"))
	assert.Contains(t, first, "_id: '3f1c2a9e-1111-4d2b-8c55-6d0f8a7e0b21:0'")
	assert.Contains(t, first, "model: 'DecisionTree'")
	assert.Contains(t, first, "prediction: 'Churn'")
	assert.Contains(t, first, "creditscore: '650'")
	assert.Contains(t, first, "submitted_at: TIMESTAMP '2026-10-01T12:00:00Z'")
	assert.Less(t, strings.Index(first, "creditscore"), strings.Index(first, "geography"))

	assert.Contains(t, db.sql[1], "model: 'XGBoost'")
	assert.Contains(t, db.sql[1], "prediction: 'No Churn'")
}

func TestXTDBRecorder_Errors(t *testing.T) {
	x := &XTDBRecorder{db: &fakeExec{}, table: DefaultTable}
	ev := sampleEvent()
	ev.ID = ""
	assert.Error(t, x.RecordPrediction(context.Background(), ev))

	x = &XTDBRecorder{db: &fakeExec{err: errors.New("conn reset")}, table: DefaultTable}
	err := x.RecordPrediction(context.Background(), sampleEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "conn reset")
}

func TestQuote(t *testing.T) {
	assert.Equal(t, "'O''Brien'", quote("O'Brien"))
	assert.Equal(t, "'France'", formatValue("France"))
	assert.Equal(t, "TIMESTAMP '2026-10-01T12:00:00.5Z'",
		formatValue(time.Date(2026, 10, 1, 12, 0, 0, 500_000_000, time.UTC)))
}

type countingRecorder struct {
	calls int
	err   error
}

func (c *countingRecorder) RecordPrediction(context.Context, PredictionEvent) error {
	c.calls++
	return c.err
}

func (c *countingRecorder) Close() error { return c.err }

func TestMulti_TriesEveryRecorder(t *testing.T) {
	a := &countingRecorder{err: errors.New("a failed")}
	b := &countingRecorder{}
	m := Multi{a, b}

	err := m.RecordPrediction(context.Background(), sampleEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a failed")
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, b.calls)
	assert.Error(t, m.Close())

	assert.NoError(t, Nop{}.RecordPrediction(context.Background(), sampleEvent()))
	assert.NoError(t, Multi{}.Close())
}
