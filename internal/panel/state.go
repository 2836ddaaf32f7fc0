package panel

import (
	"time"

	"github.com/refset/churn-insight-dashboard/internal/churnapi"
	"github.com/refset/churn-insight-dashboard/internal/normalize"
)

// Phase is the lifecycle position of a panel.
type Phase int

const (
	Idle Phase = iota
	Loading
	Ready
	Failed
)

var phaseNames = [...]string{"idle", "loading", "ready", "failed"}

func (p Phase) String() string {
	if p < Idle || p > Failed {
		return "unknown"
	}
	return phaseNames[p]
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Settled reports whether the phase is terminal for the current load.
func (p Phase) Settled() bool {
	return p == Ready || p == Failed
}

// State is a snapshot of one panel. Bundle is set only when Ready; Reason
// and ErrorKind only when Failed.
type State struct {
	Phase     Phase                   `json:"phase"`
	Bundle    normalize.DisplayBundle `json:"bundle"`
	Reason    string                  `json:"reason,omitempty"`
	ErrorKind churnapi.ErrorKind      `json:"error_kind,omitempty"`
	Since     time.Time               `json:"since"`
}
