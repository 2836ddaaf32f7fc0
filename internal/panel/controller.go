// Package panel drives the Idle → Loading → Ready|Failed lifecycle of the
// dashboard's result panels.
package panel

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/refset/churn-insight-dashboard/internal/churnapi"
	"github.com/refset/churn-insight-dashboard/internal/normalize"
)

// Fetcher fetches raw evaluation bundles.
type Fetcher interface {
	FetchBundle(ctx context.Context, endpoint churnapi.Endpoint) (churnapi.EvaluationBundle, error)
}

// Controller owns the state of one mounted panel. A controller is mounted
// at most once; remounting a panel means building a new controller.
type Controller struct {
	id       uuid.UUID
	endpoint churnapi.Endpoint
	fetcher  Fetcher

	mu          sync.Mutex
	state       State
	token       uuid.UUID
	cancel      context.CancelFunc
	unmounted   bool
	transitions []Phase

	// afterLoad runs when a load goroutine finishes, stale or not.
	afterLoad func()
}

// NewController creates an Idle controller for endpoint.
func NewController(endpoint churnapi.Endpoint, fetcher Fetcher) *Controller {
	now := time.Now()
	return &Controller{
		id:          uuid.New(),
		endpoint:    endpoint,
		fetcher:     fetcher,
		state:       State{Phase: Idle, Since: now},
		transitions: []Phase{Idle},
	}
}

// ID identifies this controller instance.
func (c *Controller) ID() string { return c.id.String() }

// Endpoint returns the endpoint the panel displays.
func (c *Controller) Endpoint() churnapi.Endpoint { return c.endpoint }

// Mount moves an Idle panel to Loading and starts its single fetch. It
// returns false if the panel was already mounted or has been unmounted.
func (c *Controller) Mount() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.unmounted || c.state.Phase != Idle {
		return false
	}
	c.startLocked()
	return true
}

// Refresh starts a new fetch from Ready or Failed. It is a no-op while a
// fetch is in flight, before mount and after unmount.
func (c *Controller) Refresh() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.unmounted || !c.state.Phase.Settled() {
		return false
	}
	c.startLocked()
	return true
}

// Unmount cancels any in-flight fetch. Results that arrive afterwards are
// dropped and the state stays as it was.
func (c *Controller) Unmount() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.unmounted {
		return
	}
	c.unmounted = true
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	log.Debug().Str("panel", string(c.endpoint)).Msg("panel unmounted")
}

// Unmounted reports whether Unmount was called.
func (c *Controller) Unmounted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.unmounted
}

// State returns a snapshot of the panel state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Transitions returns every phase the panel has entered, in order.
func (c *Controller) Transitions() []Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Phase(nil), c.transitions...)
}

func (c *Controller) startLocked() {
	ctx, cancel := context.WithCancel(context.Background())
	token := uuid.New()
	c.token = token
	c.cancel = cancel
	c.setLocked(State{Phase: Loading})

	log.Debug().Str("panel", string(c.endpoint)).Str("token", token.String()).Msg("panel loading")
	go c.load(ctx, token)
}

func (c *Controller) load(ctx context.Context, token uuid.UUID) {
	if c.afterLoad != nil {
		defer c.afterLoad()
	}

	bundle, err := c.fetcher.FetchBundle(ctx, c.endpoint)
	var display normalize.DisplayBundle
	if err == nil {
		display, err = normalize.Normalize(bundle, c.endpoint.Kind())
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.unmounted || c.token != token {
		log.Debug().Str("panel", string(c.endpoint)).Str("token", token.String()).Msg("discarding stale panel response")
		return
	}
	c.cancel()
	c.cancel = nil

	if err != nil {
		log.Warn().Err(err).Str("panel", string(c.endpoint)).Msg("panel failed")
		c.setLocked(State{Phase: Failed, Reason: err.Error(), ErrorKind: churnapi.KindOf(err)})
		return
	}
	log.Info().Str("panel", string(c.endpoint)).Int("entries", display.Len()).Msg("panel ready")
	c.setLocked(State{Phase: Ready, Bundle: display})
}

func (c *Controller) setLocked(s State) {
	s.Since = time.Now()
	c.state = s
	c.transitions = append(c.transitions, s.Phase)
}
