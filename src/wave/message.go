package wave

import (
	"fmt"

	"github.com/google/uuid"
)

// Kind is the closed set of message types exchanged during a wave.
type Kind int

const (
	// Broadcast propagates the wave outwards, away from the initiator.
	Broadcast Kind = iota
	// Ack flows back up the spanning tree, from child to parent.
	Ack
)

// String ...
func (k Kind) String() string {
	switch k {
	case Broadcast:
		return "BROADCAST"
	case Ack:
		return "ACK"
	default:
		return "Unknown"
	}
}

// Message is the immutable envelope exchanged between nodes. It is created by
// a Node and consumed exactly once when the delivery substrate hands it to the
// recipient's handler.
type Message struct {
	ID        string `json:"id"`
	Kind      Kind   `json:"kind"`
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
}

// NewMessage returns a Message with a fresh unique ID.
func NewMessage(kind Kind, sender, recipient string) Message {
	return Message{
		ID:        uuid.NewString(),
		Kind:      kind,
		Sender:    sender,
		Recipient: recipient,
	}
}

// String ...
func (m Message) String() string {
	return fmt.Sprintf("%s %s->%s", m.Kind, m.Sender, m.Recipient)
}
