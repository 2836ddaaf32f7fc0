package audit

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// DefaultTable is the XTDB table predictions are inserted into.
const DefaultTable = "dashboard_predictions"

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// XTDBRecorder inserts one record per model prediction over the XTDB
// Postgres wire protocol.
type XTDBRecorder struct {
	db    execer
	table string
	close func()
}

// NewXTDBRecorder connects to XTDB.
func NewXTDBRecorder(ctx context.Context, connString, table string) (*XTDBRecorder, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("connect to XTDB: %w", err)
	}
	if table == "" {
		table = DefaultTable
	}
	return &XTDBRecorder{db: pool, table: table, close: pool.Close}, nil
}

func (x *XTDBRecorder) RecordPrediction(ctx context.Context, ev PredictionEvent) error {
	if ev.ID == "" {
		return fmt.Errorf("event ID required")
	}
	submitted := ev.SubmittedAt
	if submitted.IsZero() {
		submitted = time.Now()
	}

	for i, p := range ev.Predictions {
		fields := []string{
			fmt.Sprintf("_id: %s", quote(fmt.Sprintf("%s:%d", ev.ID, i))),
			fmt.Sprintf("_valid_from: TIMESTAMP %s", quote(submitted.Format(time.RFC3339Nano))),
			fmt.Sprintf("event_id: %s", quote(ev.ID)),
			fmt.Sprintf("submitted_at: %s", formatValue(submitted)),
			fmt.Sprintf("model: %s", quote(p.Model)),
			fmt.Sprintf("prediction: %s", quote(p.Prediction)),
		}
		keys := make([]string, 0, len(ev.Customer))
		for k := range ev.Customer {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fields = append(fields, fmt.Sprintf("%s: %s", strings.ToLower(k), formatValue(ev.Customer[k])))
		}

		sql := fmt.Sprintf("INSERT INTO %s RECORDS {%s}", x.table, strings.Join(fields, ", "))
		if _, err := x.db.Exec(ctx, sql); err != nil {
			return fmt.Errorf("save prediction to XTDB: %w", err)
		}
	}

	log.Debug().Str("table", x.table).Str("event_id", ev.ID).Int("records", len(ev.Predictions)).Msg("saved prediction to XTDB")
	return nil
}

func (x *XTDBRecorder) Close() error {
	if x.close != nil {
		x.close()
	}
	return nil
}

func quote(s string) string {
	escaped := strings.ReplaceAll(s, "'", "''")
	return "'" + escaped + "'"
}

func formatValue(v any) string {
	if t, ok := v.(time.Time); ok {
		return fmt.Sprintf("TIMESTAMP %s", quote(t.Format(time.RFC3339Nano)))
	}
	return quote(fmt.Sprint(v))
}
