package wave

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/treewave/treewave/src/topology"
)

// router forwards messages to per-node inbound channels. Each inbox is
// buffered to hold every message its node can ever receive (at most one
// broadcast and one ack per directed link), so a send never blocks and no
// pair of nodes can deadlock on full inboxes.
type router struct {
	inboxes map[string]chan Message

	sync.Mutex
	broadcasts  int
	acks        int
	violations  []Violation
	err         error
	idle        chan struct{}
	outstanding int
}

func newRouter(net *Network) *router {
	r := &router{
		inboxes: make(map[string]chan Message),
		idle:    make(chan struct{}),
	}

	for _, v := range net.top.Vertices {
		r.inboxes[v.Name] = make(chan Message, 2*len(v.Neighbours))
	}

	return r
}

// dispatch routes a batch of messages produced by one handler invocation.
// Because a node's messages are dispatched sequentially by its own goroutine,
// FIFO order per directed link is preserved by the channel send order.
func (r *router) dispatch(out []Message) {
	for _, m := range out {
		inbox, ok := r.inboxes[m.Recipient]

		r.Lock()
		if !ok {
			if r.err == nil {
				r.err = UnknownRecipientError{Recipient: m.Recipient}
			}
			r.Unlock()
			continue
		}

		switch m.Kind {
		case Broadcast:
			r.broadcasts++
		case Ack:
			r.acks++
		}
		r.outstanding++
		r.Unlock()

		inbox <- m
	}
}

// settle marks one message as fully processed. When no messages remain in
// flight the network is quiescent and the idle channel is closed.
func (r *router) settle() {
	r.Lock()
	r.outstanding--
	if r.outstanding == 0 {
		close(r.idle)
	}
	r.Unlock()
}

func (r *router) recordViolation(v Violation) {
	r.Lock()
	r.violations = append(r.violations, v)
	r.Unlock()
}

func (r *router) recordError(err error) {
	r.Lock()
	if r.err == nil {
		r.err = err
	}
	r.Unlock()
}

// RunConcurrent executes one wave with every node running as an independent
// goroutine receiving messages over a private inbound channel. Each node's
// state is touched only by its own goroutine; message passing is the only
// cross-node interaction. A node's receive is the only suspension point, and
// it never times out: the transport is assumed reliable.
func (net *Network) RunConcurrent() (*Report, error) {
	start := time.Now()

	net.reset()

	r := newRouter(net)

	report := &Report{
		RunID:     uuid.NewString(),
		Initiator: net.initiator.Name(),
		Tree:      make(map[string]string),
	}

	var wg sync.WaitGroup
	for _, node := range net.nodes {
		wg.Add(1)
		go func(n *Node) {
			defer wg.Done()
			for m := range r.inboxes[n.Name()] {
				out, violation, err := n.HandleMessage(m)
				if err != nil {
					r.recordError(err)
				}
				if violation != nil {
					r.recordViolation(*violation)
				}
				r.dispatch(out)
				r.settle()
			}
		}(node)
	}

	out, err := net.initiator.Start()
	if err != nil {
		return nil, err
	}

	if len(out) == 0 {
		// Single-node network: terminal before any message flows.
		close(r.idle)
	} else {
		r.dispatch(out)
	}

	<-r.idle

	for _, inbox := range r.inboxes {
		close(inbox)
	}
	wg.Wait()

	if r.err != nil {
		return nil, r.err
	}

	report.Violations = r.violations
	net.fillReport(report, r.broadcasts, r.acks, start)

	return report, nil
}

// RunWaveConcurrent builds a Network from the topology and executes one wave
// under the goroutine-per-node model.
func RunWaveConcurrent(top *topology.Topology, conf *Config) (*Report, error) {
	net, err := NewNetwork(top, conf)
	if err != nil {
		return nil, err
	}

	return net.RunConcurrent()
}
