package wave

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// EventKind enumerates the observable events a wave emits.
type EventKind int

const (
	// EchoComplete is emitted when a node's ack count reaches its expected
	// count.
	EchoComplete EventKind = iota
	// AlgorithmFinished is emitted once a node reaches its terminal state.
	AlgorithmFinished
)

// String ...
func (k EventKind) String() string {
	switch k {
	case EchoComplete:
		return "EchoComplete"
	case AlgorithmFinished:
		return "AlgorithmFinished"
	default:
		return "Unknown"
	}
}

// Event is a notification emitted by the core. Index is a monotonically
// increasing order index assigned at emission time.
type Event struct {
	Node  string    `json:"node"`
	Kind  EventKind `json:"kind"`
	Index int       `json:"index"`
	Time  time.Time `json:"time"`
}

// Observer receives Events. Implementations must not block; the core neither
// retries nor waits for a notification to be consumed.
type Observer interface {
	Notify(Event)
}

// NopObserver discards all events.
type NopObserver struct{}

// Notify implements the Observer interface.
func (NopObserver) Notify(Event) {}

// LogObserver writes events to a logrus Entry.
type LogObserver struct {
	Logger *logrus.Entry
}

// Notify implements the Observer interface.
func (o LogObserver) Notify(e Event) {
	o.Logger.WithFields(logrus.Fields{
		"node":  e.Node,
		"index": e.Index,
	}).Debugf("%s", e.Kind)
}

// indexingObserver decorates another Observer, stamping each event with an
// emission order index. Safe for concurrent use.
type indexingObserver struct {
	sync.Mutex
	next   int
	target Observer
	events []Event
}

func newIndexingObserver(target Observer) *indexingObserver {
	if target == nil {
		target = NopObserver{}
	}
	return &indexingObserver{target: target}
}

func (o *indexingObserver) Notify(e Event) {
	o.Lock()
	e.Index = o.next
	e.Time = time.Now()
	o.next++
	o.events = append(o.events, e)
	o.Unlock()

	o.target.Notify(e)
}

func (o *indexingObserver) reset() {
	o.Lock()
	o.next = 0
	o.events = nil
	o.Unlock()
}

func (o *indexingObserver) Events() []Event {
	o.Lock()
	defer o.Unlock()
	res := make([]Event, len(o.events))
	copy(res, o.events)
	return res
}
