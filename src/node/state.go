package node

import (
	"sync/atomic"
)

// State captures the lifecycle of a node: Initialising, Running or Stopped.
type State uint32

const (
	// Initialising is the state before init_ok has been written.
	Initialising State = iota
	// Running is the dispatch loop.
	Running
	// Stopped is reached when the input is exhausted or the loop fails.
	Stopped
)

// String ...
func (s State) String() string {
	switch s {
	case Initialising:
		return "Initialising"
	case Running:
		return "Running"
	case Stopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

type state struct {
	state State
}

func (b *state) getState() State {
	stateAddr := (*uint32)(&b.state)
	return State(atomic.LoadUint32(stateAddr))
}

func (b *state) setState(s State) {
	stateAddr := (*uint32)(&b.state)
	atomic.StoreUint32(stateAddr, uint32(s))
}
