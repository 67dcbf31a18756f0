package pipeline

// State is the position of a run in its lifecycle.
//
//	NotStarted -> Authenticating -> Syncing(stage)... -> Done | Failed
type State int

// Run states. Done and Failed are terminal.
const (
	StateNotStarted State = iota
	StateAuthenticating
	StateSyncing
	StateDone
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateAuthenticating:
		return "authenticating"
	case StateSyncing:
		return "syncing"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether no further transitions follow s.
func (s State) IsTerminal() bool {
	return s == StateDone || s == StateFailed
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Transition is reported to the OnState hook on every state change.
type Transition struct {
	From  State
	To    State
	Stage string // set while syncing and on failure
	Err   error  // set on failure
}
