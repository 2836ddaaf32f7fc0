package panel

import (
	"sync"

	"github.com/refset/churn-insight-dashboard/internal/churnapi"
)

// Board holds the currently mounted controller of each panel.
type Board struct {
	fetcher Fetcher

	mu     sync.Mutex
	panels map[churnapi.Endpoint]*Controller
}

// NewBoard creates an empty board.
func NewBoard(fetcher Fetcher) *Board {
	return &Board{
		fetcher: fetcher,
		panels:  make(map[churnapi.Endpoint]*Controller),
	}
}

// Mount replaces the panel's controller with a fresh, mounted one. The
// previous controller, if any, is unmounted first.
func (b *Board) Mount(endpoint churnapi.Endpoint) *Controller {
	b.mu.Lock()
	defer b.mu.Unlock()
	if old, ok := b.panels[endpoint]; ok {
		old.Unmount()
	}
	c := NewController(endpoint, b.fetcher)
	b.panels[endpoint] = c
	c.Mount()
	return c
}

// Panel returns the mounted controller of endpoint.
func (b *Board) Panel(endpoint churnapi.Endpoint) (*Controller, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.panels[endpoint]
	return c, ok
}

// Unmount unmounts and forgets the panel's controller.
func (b *Board) Unmount(endpoint churnapi.Endpoint) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.panels[endpoint]
	if !ok {
		return false
	}
	c.Unmount()
	delete(b.panels, endpoint)
	return true
}

// UnmountID is Unmount restricted to the controller with the given id. A
// request aimed at an older mount leaves the current one alone.
func (b *Board) UnmountID(endpoint churnapi.Endpoint, id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.panels[endpoint]
	if !ok || c.ID() != id {
		return false
	}
	c.Unmount()
	delete(b.panels, endpoint)
	return true
}

// Close unmounts every panel.
func (b *Board) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for e, c := range b.panels {
		c.Unmount()
		delete(b.panels, e)
	}
}
