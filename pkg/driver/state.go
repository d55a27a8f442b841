package driver

// State is a phase of a run.
type State int

// Run states. A run moves from StateInit through StateResuming or
// StateStarting into StateProcessing, then StateFinalizing and StateDone.
// StateInterrupted is terminal and leaves the run resumable.
const (
	StateInit State = iota
	StateResuming
	StateStarting
	StateProcessing
	StateFinalizing
	StateDone
	StateInterrupted
)

var stateNames = [...]string{
	StateInit:        "init",
	StateResuming:    "resuming",
	StateStarting:    "starting",
	StateProcessing:  "processing",
	StateFinalizing:  "finalizing",
	StateDone:        "done",
	StateInterrupted: "interrupted",
}

// String returns the lower-case state name.
func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}

	return stateNames[s]
}

// Terminal reports whether no further transitions follow.
func (s State) Terminal() bool {
	return s == StateDone || s == StateInterrupted
}
