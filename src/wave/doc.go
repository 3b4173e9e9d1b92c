/*
Package wave implements the Echo wave algorithm over a fixed network topology.

One designated initiator broadcasts to all its neighbours. Every participant
adopts the sender of the first broadcast it receives as its parent, relays the
broadcast to its remaining neighbours, and acknowledges its parent once all of
those neighbours have acknowledged it in turn. The initiator detects global
termination when it holds an acknowledgement from every one of its neighbours.
The parent pointers induced by first receipt form a spanning tree of the
network rooted at the initiator.

The package contains the per-node state machine (Node), the in-process
delivery substrate (Scheduler), and two drivers: RunWave, which drains the
scheduler on a single goroutine, and RunWaveConcurrent, which runs every node
as its own goroutine with a private inbound channel.
*/
package wave
