package wave

import "sync/atomic"

// State captures the lifecycle of a node during a wave: New, Waiting, Active,
// Relaying, or Done.
type State uint32

const (
	//New is the state of a node between construction and the start of a wave.
	New State = iota
	//Waiting is a participant that has not yet received its first broadcast.
	Waiting
	//Active is the initiator after it has sent its broadcasts.
	Active
	//Relaying is a participant that has relayed the broadcast and is waiting
	//for acknowledgements from its children.
	Relaying
	//Done is a node whose subtree is fully acknowledged.
	Done
)

// String ...
func (s State) String() string {
	switch s {
	case New:
		return "New"
	case Waiting:
		return "Waiting"
	case Active:
		return "Active"
	case Relaying:
		return "Relaying"
	case Done:
		return "Done"
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
