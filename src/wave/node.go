package wave

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/treewave/treewave/src/topology"
)

// Node is one participant of the wave, or its initiator. It owns its local
// state and a handler that reacts to delivered messages, producing zero or
// more outgoing messages. State fields mutate only through Start and
// HandleMessage, which must be invoked from a single goroutine at a time.
type Node struct {
	state

	name       string
	role       topology.Role
	neighbours []string
	logger     *logrus.Entry
	observer   Observer

	receivedBroadcast bool
	parent            string
	children          []string
	acked             map[string]bool
	started           bool
}

// NewNode builds a Node from its topology Vertex. The neighbour list is fixed
// for the lifetime of the Node.
func NewNode(v *topology.Vertex, logger *logrus.Entry, observer Observer) *Node {
	if observer == nil {
		observer = NopObserver{}
	}

	n := &Node{
		name:       v.Name,
		role:       v.Role,
		neighbours: append([]string{}, v.Neighbours...),
		logger:     logger.WithField("node", v.Name),
		observer:   observer,
	}

	n.Reset()

	return n
}

// Name returns the node's identity.
func (n *Node) Name() string {
	return n.name
}

// Role returns the node's fixed role.
func (n *Node) Role() topology.Role {
	return n.role
}

// Parent returns the name of the node's parent in the spanning tree, or the
// empty string for the initiator and for participants the wave has not
// reached yet.
func (n *Node) Parent() string {
	return n.parent
}

// AckCount returns the number of non-parent neighbours whose edge is
// complete, by acknowledgement or by redundant broadcast.
func (n *Node) AckCount() int {
	return len(n.acked)
}

// Reset returns all mutable fields to their initial values so the wave can be
// replayed on the same network.
func (n *Node) Reset() {
	n.receivedBroadcast = false
	n.parent = ""
	n.children = nil
	n.acked = make(map[string]bool)
	n.started = false

	if n.role == topology.Initiator {
		n.setState(New)
	} else {
		n.setState(Waiting)
	}
}

// Start triggers the wave. Only the initiator may be started, and only once
// per run. It returns the broadcasts to schedule for every neighbour.
func (n *Node) Start() ([]Message, error) {
	if n.role != topology.Initiator {
		return nil, fmt.Errorf("node %s is not the initiator", n.name)
	}
	if n.started {
		return nil, fmt.Errorf("node %s was already started", n.name)
	}

	n.started = true
	n.setState(Active)

	// Single-node network: nothing to broadcast, terminal immediately.
	if len(n.neighbours) == 0 {
		n.finish()
		return nil, nil
	}

	out := make([]Message, 0, len(n.neighbours))
	for _, neighbour := range n.neighbours {
		out = append(out, NewMessage(Broadcast, n.name, neighbour))
	}

	n.logger.WithField("neighbours", len(out)).Debug("Starting wave")

	return out, nil
}

// HandleMessage reacts to a delivered message. It returns the messages to
// schedule in turn, a protocol violation if one was detected (the wave keeps
// running), or an error for violations that abort the wave.
func (n *Node) HandleMessage(m Message) ([]Message, *Violation, error) {
	n.logger.WithFields(logrus.Fields{
		"kind": m.Kind.String(),
		"from": m.Sender,
	}).Debug("Received message")

	switch m.Kind {
	case Broadcast:
		return n.handleBroadcast(m)
	case Ack:
		return n.handleAck(m)
	default:
		return nil, nil, fmt.Errorf("node %s: unknown message kind %d", n.name, m.Kind)
	}
}

func (n *Node) handleBroadcast(m Message) ([]Message, *Violation, error) {
	if !n.hasNeighbour(m.Sender) {
		return nil, nil, UnexpectedBroadcastError{Node: n.name, From: m.Sender}
	}

	if n.role == topology.Initiator {
		// A neighbour that adopted another parent relays its broadcast
		// back to us. That broadcast is the closing token for the shared
		// non-tree edge and counts like an ack; the sender will never
		// acknowledge us directly. Anything else is a defect.
		if !n.started || n.acked[m.Sender] {
			return nil, nil, UnexpectedBroadcastError{Node: n.name, From: m.Sender}
		}

		n.logger.WithField("from", m.Sender).Debug("Counting relayed broadcast from neighbour")
		return n.completeEdge(m.Sender)
	}

	if n.receivedBroadcast {
		if m.Sender == n.parent || n.acked[m.Sender] {
			// Re-delivery of an already-processed broadcast: no state
			// change, nothing scheduled.
			n.logger.WithField("from", m.Sender).Debug("Ignoring duplicate broadcast")
			return nil, nil, nil
		}

		// Redundant broadcast from a non-parent neighbour. Only the first
		// broadcast shapes the tree, so there is no re-relay and no parent
		// change, but it completes the sender's edge just like an ack: the
		// sender adopted another parent and will never acknowledge us.
		n.logger.WithField("from", m.Sender).Debug("Redundant broadcast")
		return n.completeEdge(m.Sender)
	}

	n.receivedBroadcast = true
	n.parent = m.Sender

	// children = neighbours \ {parent}, computed once and cached.
	for _, neighbour := range n.neighbours {
		if neighbour != n.parent {
			n.children = append(n.children, neighbour)
		}
	}

	if len(n.children) == 0 {
		// Leaf: zero expected acknowledgements, acknowledge the parent
		// immediately.
		return n.finish(), nil, nil
	}

	out := make([]Message, 0, len(n.children))
	for _, child := range n.children {
		out = append(out, NewMessage(Broadcast, n.name, child))
	}

	n.setState(Relaying)

	return out, nil, nil
}

func (n *Node) handleAck(m Message) ([]Message, *Violation, error) {
	if n.role == topology.Participant {
		if !n.receivedBroadcast {
			return nil, &Violation{
				Kind:    DuplicateAck,
				Node:    n.name,
				From:    m.Sender,
				Details: "ack received before any broadcast",
			}, nil
		}
		if m.Sender == n.parent {
			return nil, &Violation{
				Kind:    AckFromParent,
				Node:    n.name,
				From:    m.Sender,
				Details: "acknowledgements only flow from children to parents",
			}, nil
		}
	}

	if !n.hasNeighbour(m.Sender) {
		return nil, &Violation{
			Kind:    DuplicateAck,
			Node:    n.name,
			From:    m.Sender,
			Details: "ack from a node that is not a neighbour",
		}, nil
	}

	if n.acked[m.Sender] {
		return nil, &Violation{
			Kind:    DuplicateAck,
			Node:    n.name,
			From:    m.Sender,
			Details: fmt.Sprintf("edge already complete, count %d of %d", len(n.acked), n.expectedAcks()),
		}, nil
	}

	return n.completeEdge(m.Sender)
}

// completeEdge records that the edge to a non-parent neighbour is settled.
// When every such edge is settled the node's subtree is fully acknowledged
// and the node becomes terminal.
func (n *Node) completeEdge(sender string) ([]Message, *Violation, error) {
	n.acked[sender] = true

	if len(n.acked) == n.expectedAcks() {
		return n.finish(), nil, nil
	}

	return nil, nil, nil
}

// expectedAcks is the number of settled edges that makes this node terminal:
// one per neighbour for the initiator, one per non-parent neighbour for a
// participant.
func (n *Node) expectedAcks() int {
	if n.role == topology.Initiator {
		return len(n.neighbours)
	}
	return len(n.children)
}

func (n *Node) hasNeighbour(name string) bool {
	for _, neighbour := range n.neighbours {
		if neighbour == name {
			return true
		}
	}
	return false
}

// finish marks the node terminal, emits its completion events, and returns
// the acknowledgement for the parent if there is one.
func (n *Node) finish() []Message {
	n.setState(Done)

	n.observer.Notify(Event{Node: n.name, Kind: EchoComplete})

	var out []Message
	if n.parent != "" {
		out = []Message{NewMessage(Ack, n.name, n.parent)}
	}

	n.observer.Notify(Event{Node: n.name, Kind: AlgorithmFinished})

	n.logger.WithField("acks", len(n.acked)).Debug("Echo complete")

	return out
}
