package net

import (
	"testing"
	"time"

	"github.com/treewave/treewave/src/common"
	"github.com/treewave/treewave/src/wave"
)

func TestInmemTransportSend(t *testing.T) {
	addr1, trans1 := NewInmemTransport("")
	defer trans1.Close()
	addr2, trans2 := NewInmemTransport("")
	defer trans2.Close()

	trans1.Connect(addr2, trans2)
	trans2.Connect(addr1, trans1)

	sent := wave.NewMessage(wave.Broadcast, "1", "2")
	if err := trans1.Send(addr2, sent); err != nil {
		t.Fatalf("err: %v", err)
	}

	select {
	case got := <-trans2.Consumer():
		if got.ID != sent.ID || got.Kind != wave.Broadcast {
			t.Fatalf("unexpected message %v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestInmemTransportDisconnect(t *testing.T) {
	_, trans1 := NewInmemTransport("")
	defer trans1.Close()
	addr2, trans2 := NewInmemTransport("")
	defer trans2.Close()

	trans1.Connect(addr2, trans2)
	trans1.Disconnect(addr2)

	if err := trans1.Send(addr2, wave.NewMessage(wave.Ack, "2", "1")); err == nil {
		t.Fatal("sending after disconnect should fail")
	}
}

func TestTCPTransportFIFO(t *testing.T) {
	logger := common.NewTestEntry(t, common.TestLogLevel)

	recv, err := NewTCPTransport("127.0.0.1:0", time.Second, logger)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	defer recv.Close()
	go recv.Listen()

	send, err := NewTCPTransport("127.0.0.1:0", time.Second, logger)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	defer send.Close()

	sent := []wave.Message{}
	for i := 0; i < 10; i++ {
		kind := wave.Broadcast
		if i%2 == 1 {
			kind = wave.Ack
		}
		m := wave.NewMessage(kind, "1", "2")
		sent = append(sent, m)

		if err := send.Send(recv.LocalAddr(), m); err != nil {
			t.Fatalf("err: %v", err)
		}
	}

	for i, expected := range sent {
		select {
		case got := <-recv.Consumer():
			if got.ID != expected.ID {
				t.Fatalf("out of order delivery at %d: %v", i, got)
			}
			if got.Kind != expected.Kind || got.Sender != expected.Sender {
				t.Fatalf("message %d corrupted in transit: %v", i, got)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for message %d", i)
		}
	}
}
