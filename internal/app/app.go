package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/refset/churn-insight-dashboard/internal/audit"
	"github.com/refset/churn-insight-dashboard/internal/churnapi"
	"github.com/refset/churn-insight-dashboard/internal/config"
	"github.com/refset/churn-insight-dashboard/internal/dashboard"
	"github.com/refset/churn-insight-dashboard/internal/form"
	"github.com/refset/churn-insight-dashboard/internal/panel"
)

// App wires the backend client, the form, the panels and the audit sinks
// behind the dashboard server.
type App struct {
	cfg      *config.Config
	client   *churnapi.Client
	board    *panel.Board
	recorder audit.Recorder
	server   *dashboard.Server
}

// New creates the application. Audit sinks are enabled only when configured.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	client := churnapi.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout)

	recorder, err := newRecorder(ctx, cfg.Audit)
	if err != nil {
		return nil, err
	}

	board := panel.NewBoard(client)
	server, err := dashboard.New(dashboard.Options{
		Addr:       cfg.Server.Addr(),
		Mode:       cfg.Server.Mode,
		BackendURL: client.BaseURL(),
	}, form.New(client, recorder), board, client)
	if err != nil {
		recorder.Close()
		return nil, err
	}

	return &App{
		cfg:      cfg,
		client:   client,
		board:    board,
		recorder: recorder,
		server:   server,
	}, nil
}

func newRecorder(ctx context.Context, cfg config.AuditConfig) (audit.Recorder, error) {
	var sinks audit.Multi
	if len(cfg.Kafka.Brokers) > 0 {
		sinks = append(sinks, audit.NewKafkaRecorder(cfg.Kafka.Brokers, cfg.Kafka.Topic))
	}
	if cfg.XTDB.ConnString != "" {
		x, err := audit.NewXTDBRecorder(ctx, cfg.XTDB.ConnString, cfg.XTDB.Table)
		if err != nil {
			sinks.Close()
			return nil, err
		}
		sinks = append(sinks, x)
	}
	if len(sinks) == 0 {
		return audit.Nop{}, nil
	}
	return sinks, nil
}

// Run serves the dashboard until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	log.Info().
		Str("backend", a.client.BaseURL()).
		Dur("timeout", a.cfg.Backend.Timeout).
		Strs("kafka", a.cfg.Audit.Kafka.Brokers).
		Bool("xtdb", a.cfg.Audit.XTDB.ConnString != "").
		Msg("starting churn insight dashboard")

	// An unreachable backend is reported but not fatal; panels surface it.
	if err := a.client.Ping(ctx); err != nil {
		log.Warn().Err(err).Msg("churn backend not reachable")
	} else {
		log.Info().Msg("connected to churn backend")
	}

	err := a.server.Run(ctx)

	a.board.Close()
	if cerr := a.recorder.Close(); cerr != nil {
		log.Error().Err(cerr).Msg("failed to close audit sinks")
	}
	if err != nil {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}
