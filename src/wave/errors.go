package wave

import "fmt"

// UnknownRecipientError is returned when a message is scheduled for a node
// that does not exist in the network. It indicates a construction bug and
// aborts the wave.
type UnknownRecipientError struct {
	Recipient string
}

func (e UnknownRecipientError) Error() string {
	return fmt.Sprintf("unknown recipient %s", e.Recipient)
}

// UnexpectedBroadcastError is returned when a node receives a Broadcast it
// cannot account for: from a non-neighbour, before the wave started, or over
// an edge that was already settled. It indicates a transport or algorithm
// defect and aborts the wave.
type UnexpectedBroadcastError struct {
	Node string
	From string
}

func (e UnexpectedBroadcastError) Error() string {
	return fmt.Sprintf("node %s: unexpected broadcast from %s", e.Node, e.From)
}

// ViolationKind enumerates the protocol violations that are reported without
// aborting the wave.
type ViolationKind int

const (
	// DuplicateAck means a node's ack count exceeded its expected count, or
	// an ack arrived after the node was already done.
	DuplicateAck ViolationKind = iota
	// AckFromParent means a node received an acknowledgement from its own
	// parent. Acknowledgements only flow from children to parents.
	AckFromParent
)

// String ...
func (k ViolationKind) String() string {
	switch k {
	case DuplicateAck:
		return "DuplicateAck"
	case AckFromParent:
		return "AckFromParent"
	default:
		return "Unknown"
	}
}

// Violation records a non-fatal protocol violation observed at a node. The
// wave keeps running for other nodes, but the violation is surfaced in the
// Report so it is never silently swallowed.
type Violation struct {
	Kind    ViolationKind `json:"kind"`
	Node    string        `json:"node"`
	From    string        `json:"from"`
	Details string        `json:"details"`
}

// String ...
func (v Violation) String() string {
	return fmt.Sprintf("%s at node %s (from %s): %s", v.Kind, v.Node, v.From, v.Details)
}
