package measure

// State is the coordinator's position in a run.
type State int

const (
	StateInit State = iota
	StateReachability
	StateAborted
	StateBaseline
	StateConcurrent
	StatePost
	StateDone
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateReachability:
		return "reachability"
	case StateAborted:
		return "aborted"
	case StateBaseline:
		return "baseline"
	case StateConcurrent:
		return "concurrent"
	case StatePost:
		return "post"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further phase follows s.
func (s State) Terminal() bool {
	return s == StateAborted || s == StateDone
}
