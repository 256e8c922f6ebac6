package collector

// State is a worker's position in its per-round state machine:
//
//	Idle -> Fetching -> Parsing -> Emitting -> Done
//	Fetching -> Retrying -> Fetching
//	Fetching | Retrying | Parsing -> Failed
type State int

const (
	StateIdle State = iota
	StateFetching
	StateRetrying
	StateParsing
	StateEmitting
	StateDone
	StateFailed
	// StateSkipped marks a source whose previous worker was still running.
	StateSkipped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateRetrying:
		return "retrying"
	case StateParsing:
		return "parsing"
	case StateEmitting:
		return "emitting"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	case StateSkipped:
		return "skipped"
	}
	return "unknown"
}

// Terminal reports whether the worker has finished its round.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed || s == StateSkipped
}
