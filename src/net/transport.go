// Package net carries wave messages between processes. The in-process
// Scheduler in the wave package remains the reference delivery substrate; the
// transports here let a single wave span multiple hosts while preserving the
// per-directed-link FIFO ordering the algorithm depends on.
package net

import "github.com/treewave/treewave/src/wave"

// Transport moves wave messages between hosts. Implementations must deliver
// messages sent to the same target in the order they were sent.
type Transport interface {

	// Starts the transport listening
	Listen()

	// Consumer returns a channel from which inbound messages are consumed.
	Consumer() <-chan wave.Message

	// LocalAddr is used to return our local address
	LocalAddr() string

	// Send transmits a message to the host at the target address.
	Send(target string, m wave.Message) error

	// Close permanently closes the transport, stopping any associated
	// goroutines and freeing other resources.
	Close() error
}
