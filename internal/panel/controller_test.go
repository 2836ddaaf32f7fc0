package panel

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/refset/churn-insight-dashboard/internal/churnapi"
)

func init() {
	zerolog.SetGlobalLevel(zerolog.ErrorLevel)
}

type fetchResult struct {
	fields map[string]json.RawMessage
	err    error
}

// gatedFetcher blocks every call until a result is released. It ignores
// context cancellation so late responses can be simulated.
type gatedFetcher struct {
	calls    atomic.Int32
	inFlight atomic.Int32
	overlap  atomic.Bool
	release  chan fetchResult
}

func newGatedFetcher() *gatedFetcher {
	return &gatedFetcher{release: make(chan fetchResult)}
}

func (f *gatedFetcher) FetchBundle(_ context.Context, e churnapi.Endpoint) (churnapi.EvaluationBundle, error) {
	f.calls.Add(1)
	if f.inFlight.Add(1) > 1 {
		f.overlap.Store(true)
	}
	defer f.inFlight.Add(-1)

	r := <-f.release
	if r.err != nil {
		return churnapi.EvaluationBundle{}, r.err
	}
	return churnapi.EvaluationBundle{Endpoint: e, Fields: r.fields}, nil
}

func svmFields() map[string]json.RawMessage {
	return map[string]json.RawMessage{
		"accuracy_plot":         json.RawMessage(`"QQ=="`),
		"classification_report": json.RawMessage(`"Qg=="`),
		"confusion_matrix":      json.RawMessage(`"Qw=="`),
	}
}

// track installs a load-finished counter on c.
func track(c *Controller) *sync.WaitGroup {
	var wg sync.WaitGroup
	c.afterLoad = wg.Done
	return &wg
}

const (
	timeout = 2 * time.Second
	tick    = 5 * time.Millisecond
)

func waitPhase(t *testing.T, c *Controller, want Phase) {
	t.Helper()
	require.Eventually(t, func() bool { return c.State().Phase == want }, timeout, tick,
		"panel never reached %s", want)
}

func TestController_MountToReady(t *testing.T) {
	f := newGatedFetcher()
	c := NewController(churnapi.SVM, f)
	assert.Equal(t, Idle, c.State().Phase)

	require.True(t, c.Mount())
	assert.Equal(t, Loading, c.State().Phase)

	f.release <- fetchResult{fields: svmFields()}
	waitPhase(t, c, Ready)

	s := c.State()
	require.Equal(t, 3, s.Bundle.Len())
	for _, e := range s.Bundle.Entries {
		assert.Equal(t, "image", string(e.Kind))
	}
	assert.Empty(t, s.Reason)
	assert.Equal(t, []Phase{Idle, Loading, Ready}, c.Transitions())
	assert.Equal(t, int32(1), f.calls.Load())
}

func TestController_FetchFailure(t *testing.T) {
	f := newGatedFetcher()
	c := NewController(churnapi.EDA, f)
	c.Mount()

	f.release <- fetchResult{err: &churnapi.RequestFailedError{Method: "GET", URL: "/run-eda", Status: 500}}
	waitPhase(t, c, Failed)

	s := c.State()
	assert.Equal(t, churnapi.KindRequestFailed, s.ErrorKind)
	assert.Contains(t, s.Reason, "status 500")
	assert.Zero(t, s.Bundle.Len())
	assert.Equal(t, []Phase{Idle, Loading, Failed}, c.Transitions())
}

func TestController_MalformedBundleFailsWholePanel(t *testing.T) {
	f := newGatedFetcher()
	c := NewController(churnapi.SVM, f)
	c.Mount()

	f.release <- fetchResult{fields: map[string]json.RawMessage{"accuracy_plot": json.RawMessage(`"QQ=="`)}}
	waitPhase(t, c, Failed)
	assert.Equal(t, churnapi.KindMalformedResponse, c.State().ErrorKind)
	assert.Zero(t, c.State().Bundle.Len())
}

func TestController_SecondTriggerWhileLoadingIsNoop(t *testing.T) {
	f := newGatedFetcher()
	c := NewController(churnapi.XGBoost, f)
	require.True(t, c.Mount())

	assert.False(t, c.Mount())
	assert.False(t, c.Refresh())
	assert.Equal(t, []Phase{Idle, Loading}, c.Transitions())

	f.release <- fetchResult{fields: svmFields()}
	waitPhase(t, c, Ready)
	assert.Equal(t, int32(1), f.calls.Load())
	assert.False(t, f.overlap.Load())
}

func TestController_FailedNeedsLoadingBeforeReady(t *testing.T) {
	f := newGatedFetcher()
	c := NewController(churnapi.SVM, f)
	c.Mount()
	f.release <- fetchResult{err: errors.New("dial tcp: connection refused")}
	waitPhase(t, c, Failed)

	// nothing but an explicit refresh leaves Failed
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, Failed, c.State().Phase)

	require.True(t, c.Refresh())
	assert.Equal(t, Loading, c.State().Phase)
	f.release <- fetchResult{fields: svmFields()}
	waitPhase(t, c, Ready)

	assert.Equal(t, []Phase{Idle, Loading, Failed, Loading, Ready}, c.Transitions())
	assert.Equal(t, int32(2), f.calls.Load())
}

func TestController_RefreshDiscardsPreviousBundle(t *testing.T) {
	f := newGatedFetcher()
	c := NewController(churnapi.SVM, f)
	c.Mount()
	f.release <- fetchResult{fields: svmFields()}
	waitPhase(t, c, Ready)

	require.True(t, c.Refresh())
	assert.Zero(t, c.State().Bundle.Len())
	f.release <- fetchResult{err: errors.New("boom")}
	waitPhase(t, c, Failed)
	assert.Zero(t, c.State().Bundle.Len(), "last good bundle is not kept")
}

func TestController_UnmountDuringLoadingDiscardsLateResponse(t *testing.T) {
	f := newGatedFetcher()
	c := NewController(churnapi.RandomForest, f)
	wg := track(c)
	wg.Add(1)
	c.Mount()
	before := c.State()

	c.Unmount()
	f.release <- fetchResult{fields: svmFields()}
	wg.Wait()

	assert.Equal(t, before, c.State())
	assert.Equal(t, []Phase{Idle, Loading}, c.Transitions())
	assert.True(t, c.Unmounted())
	assert.False(t, c.Refresh())
	assert.False(t, c.Mount())
}

func TestController_UnmountCancelsContext(t *testing.T) {
	cancelled := make(chan struct{})
	fetcher := fetcherFunc(func(ctx context.Context, e churnapi.Endpoint) (churnapi.EvaluationBundle, error) {
		<-ctx.Done()
		close(cancelled)
		return churnapi.EvaluationBundle{}, ctx.Err()
	})
	c := NewController(churnapi.DecisionTree, fetcher)
	wg := track(c)
	wg.Add(1)
	c.Mount()
	c.Unmount()

	select {
	case <-cancelled:
	case <-time.After(timeout):
		t.Fatal("fetch context was not cancelled")
	}
	wg.Wait()
	assert.Equal(t, Loading, c.State().Phase)
}

type fetcherFunc func(ctx context.Context, e churnapi.Endpoint) (churnapi.EvaluationBundle, error)

func (f fetcherFunc) FetchBundle(ctx context.Context, e churnapi.Endpoint) (churnapi.EvaluationBundle, error) {
	return f(ctx, e)
}

func TestPhase_Text(t *testing.T) {
	b, err := json.Marshal(State{Phase: Ready})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"phase":"ready"`)
	assert.Equal(t, "unknown", Phase(9).String())
	assert.True(t, Failed.Settled())
	assert.False(t, Loading.Settled())
}
