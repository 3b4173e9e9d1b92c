package wave

import (
	"testing"

	"github.com/treewave/treewave/src/common"
)

func newTestScheduler(t *testing.T, recipients ...string) *Scheduler {
	logger := common.NewTestLogger(t, common.TestLogLevel)

	return NewScheduler(recipients, 42, logger.WithField("prefix", "test"))
}

func TestSchedulerFIFOPerLink(t *testing.T) {
	sched := newTestScheduler(t, "a", "b")

	// Three messages on the a->b link, interleaved with traffic on other
	// links.
	onLink := []Message{
		NewMessage(Broadcast, "a", "b"),
		NewMessage(Ack, "a", "b"),
		NewMessage(Broadcast, "a", "b"),
	}

	for _, m := range onLink {
		if err := sched.Schedule(m); err != nil {
			t.Fatalf("err: %v", err)
		}
		if err := sched.Schedule(NewMessage(Broadcast, "b", "a")); err != nil {
			t.Fatalf("err: %v", err)
		}
	}

	delivered := []Message{}
	for {
		m, ok := sched.Next()
		if !ok {
			break
		}
		if m.Sender == "a" && m.Recipient == "b" {
			delivered = append(delivered, m)
		}
	}

	if len(delivered) != len(onLink) {
		t.Fatalf("should deliver %d messages on the link, not %d", len(onLink), len(delivered))
	}
	for i := range onLink {
		if delivered[i].ID != onLink[i].ID {
			t.Fatalf("out of order delivery at %d: %v", i, delivered[i])
		}
	}
}

func TestSchedulerUnknownRecipient(t *testing.T) {
	sched := newTestScheduler(t, "a")

	err := sched.Schedule(NewMessage(Broadcast, "a", "z"))
	if _, ok := err.(UnknownRecipientError); !ok {
		t.Fatalf("expected UnknownRecipientError, got %v", err)
	}
}

func TestSchedulerCounters(t *testing.T) {
	sched := newTestScheduler(t, "a", "b")

	sched.Schedule(NewMessage(Broadcast, "a", "b"))
	sched.Schedule(NewMessage(Broadcast, "b", "a"))
	sched.Schedule(NewMessage(Ack, "a", "b"))

	if sched.Broadcasts() != 2 || sched.Acks() != 1 || sched.Total() != 3 {
		t.Fatalf("counts %d/%d/%d", sched.Broadcasts(), sched.Acks(), sched.Total())
	}

	// Counters survive delivery.
	for !sched.Idle() {
		sched.Next()
	}
	if sched.Total() != 3 {
		t.Fatalf("total should still be 3, not %d", sched.Total())
	}
}

func TestSchedulerIdle(t *testing.T) {
	sched := newTestScheduler(t, "a", "b")

	if !sched.Idle() {
		t.Fatal("new scheduler should be idle")
	}

	sched.Schedule(NewMessage(Broadcast, "a", "b"))

	if sched.Idle() {
		t.Fatal("scheduler should not be idle")
	}

	if _, ok := sched.Next(); !ok {
		t.Fatal("Next should return the pending message")
	}
	if _, ok := sched.Next(); ok {
		t.Fatal("Next should report no pending messages")
	}
	if !sched.Idle() {
		t.Fatal("drained scheduler should be idle")
	}
}
