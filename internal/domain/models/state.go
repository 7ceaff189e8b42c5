package models

import "time"

// Phase is a scenario's lifecycle state.
//
//	NotRequested --start--> Loading --success--> Ready
//	                  |                 |
//	                  |                 +--failure--> Failed --retry--> Loading
//	                  +--cancel------------------------------> NotRequested
type Phase string

const (
	PhaseNotRequested Phase = "not_requested"
	PhaseLoading      Phase = "loading"
	PhaseReady        Phase = "ready"
	PhaseFailed       Phase = "failed"
)

// StateSnapshot is an immutable copy of a scenario's state at query time.
// Series is non-nil if and only if Phase is Ready; Err is non-nil if and
// only if Phase is Failed.
type StateSnapshot struct {
	Scenario  Scenario  `json:"scenario"`
	Phase     Phase     `json:"phase"`
	Series    *Series   `json:"-"`
	Err       *Error    `json:"-"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Ready is a convenience check for the presentation layer's guard: render
// only when the snapshot is Ready.
func (s StateSnapshot) Ready() bool { return s.Phase == PhaseReady }
