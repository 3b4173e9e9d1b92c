package wave

import (
	"math/rand"

	"github.com/sirupsen/logrus"
)

// link is a directed sender->recipient pair. Delivery order is FIFO within a
// link; across links any fair order is acceptable.
type link struct {
	sender    string
	recipient string
}

// Scheduler is the in-process delivery substrate for a wave. It holds the
// pending messages in one FIFO queue per directed link and hands them out in
// a random fair order across links, seeded for reproducibility. It never
// inspects message contents.
type Scheduler struct {
	recipients map[string]bool
	queues     map[link][]Message
	pending    []link
	rng        *rand.Rand
	logger     *logrus.Entry

	broadcasts int
	acks       int
}

// NewScheduler creates a Scheduler that accepts messages for the given
// recipients only. The seed fixes the cross-link delivery order, which makes
// runs reproducible in tests.
func NewScheduler(recipients []string, seed int64, logger *logrus.Entry) *Scheduler {
	s := &Scheduler{
		recipients: make(map[string]bool),
		queues:     make(map[link][]Message),
		rng:        rand.New(rand.NewSource(seed)),
		logger:     logger.WithField("component", "scheduler"),
	}

	for _, r := range recipients {
		s.recipients[r] = true
	}

	return s
}

// Schedule enqueues a message for eventual delivery to its recipient.
// Scheduling a message for an unknown recipient is an error, never a silent
// drop.
func (s *Scheduler) Schedule(m Message) error {
	if !s.recipients[m.Recipient] {
		return UnknownRecipientError{Recipient: m.Recipient}
	}

	l := link{sender: m.Sender, recipient: m.Recipient}

	if len(s.queues[l]) == 0 {
		s.pending = append(s.pending, l)
	}
	s.queues[l] = append(s.queues[l], m)

	switch m.Kind {
	case Broadcast:
		s.broadcasts++
	case Ack:
		s.acks++
	}

	s.logger.WithFields(logrus.Fields{
		"kind": m.Kind.String(),
		"from": m.Sender,
		"to":   m.Recipient,
	}).Debug("Scheduled message")

	return nil
}

// Next pops the next message to deliver: the head of a randomly chosen
// non-empty link queue. It returns false when no messages are pending.
func (s *Scheduler) Next() (Message, bool) {
	if len(s.pending) == 0 {
		return Message{}, false
	}

	i := s.rng.Intn(len(s.pending))
	l := s.pending[i]

	q := s.queues[l]
	m := q[0]

	if len(q) == 1 {
		delete(s.queues, l)
		s.pending[i] = s.pending[len(s.pending)-1]
		s.pending = s.pending[:len(s.pending)-1]
	} else {
		s.queues[l] = q[1:]
	}

	return m, true
}

// Idle reports whether no messages are pending.
func (s *Scheduler) Idle() bool {
	return len(s.pending) == 0
}

// Broadcasts returns the total number of broadcasts scheduled so far.
func (s *Scheduler) Broadcasts() int {
	return s.broadcasts
}

// Acks returns the total number of acknowledgements scheduled so far.
func (s *Scheduler) Acks() int {
	return s.acks
}

// Total returns the total number of messages scheduled so far.
func (s *Scheduler) Total() int {
	return s.broadcasts + s.acks
}
