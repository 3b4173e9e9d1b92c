package net

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/treewave/treewave/src/topology"
	"github.com/treewave/treewave/src/wave"
)

// Host runs a subset of a network's nodes inside one process and forwards
// messages addressed to the others through a Transport, so a single wave can
// span several processes. Every host of a wave shares the same validated
// topology; the placement map tells each host which transport address serves
// each non-local node.
type Host struct {
	top       *topology.Topology
	local     map[string]*wave.Node
	placement map[string]string
	trans     Transport
	logger    *logrus.Entry

	initiator *wave.Node
	doneCh    chan struct{}
	doneOnce  sync.Once

	shutdownCh   chan struct{}
	shutdownOnce sync.Once

	// deliverLock serialises message handling so local nodes never see
	// concurrent HandleMessage calls.
	deliverLock sync.Mutex

	sync.Mutex
	violations []wave.Violation
	err        error
}

// hostObserver closes the host's done channel when the local initiator
// reaches its terminal state.
type hostObserver struct {
	h *Host
}

func (o hostObserver) Notify(e wave.Event) {
	if e.Kind == wave.AlgorithmFinished && o.h.initiator != nil && e.Node == o.h.initiator.Name() {
		o.h.doneOnce.Do(func() { close(o.h.doneCh) })
	}
}

// NewHost builds the local nodes for localNames and wires everything else
// through the placement map (node name to transport address). The topology
// must already have been validated.
func NewHost(
	top *topology.Topology,
	localNames []string,
	placement map[string]string,
	trans Transport,
	logger *logrus.Entry,
) (*Host, error) {
	h := &Host{
		top:        top,
		local:      make(map[string]*wave.Node),
		placement:  placement,
		trans:      trans,
		logger:     logger.WithField("component", "host"),
		doneCh:     make(chan struct{}),
		shutdownCh: make(chan struct{}),
	}

	for _, name := range localNames {
		v, ok := top.ByName[name]
		if !ok {
			return nil, fmt.Errorf("local node %s not in topology", name)
		}

		node := wave.NewNode(v, logger, hostObserver{h: h})
		h.local[name] = node

		if v.Role == topology.Initiator {
			h.initiator = node
		}
	}

	return h, nil
}

// Serve starts consuming inbound messages. It returns immediately.
func (h *Host) Serve() {
	go h.trans.Listen()

	go func() {
		for {
			select {
			case m := <-h.trans.Consumer():
				h.deliver(m)
			case <-h.shutdownCh:
				return
			}
		}
	}()
}

// Start triggers the wave. It fails on hosts that do not own the initiator.
func (h *Host) Start() error {
	if h.initiator == nil {
		return fmt.Errorf("host does not own the initiator")
	}

	out, err := h.initiator.Start()
	if err != nil {
		return err
	}

	h.dispatch(out)

	return nil
}

// Done returns a channel that is closed when the local initiator has received
// an acknowledgement from every neighbour. On hosts without the initiator it
// never closes; the driver is expected to stop those hosts once the
// initiator's host reports completion, at which point any message still in
// flight is a redundant broadcast with no effect on node state.
func (h *Host) Done() <-chan struct{} {
	return h.doneCh
}

// deliver processes one inbound message and everything it causes locally.
func (h *Host) deliver(m wave.Message) {
	h.deliverLock.Lock()
	defer h.deliverLock.Unlock()

	queue := []wave.Message{m}

	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]

		node, ok := h.local[next.Recipient]
		if !ok {
			h.recordError(wave.UnknownRecipientError{Recipient: next.Recipient})
			continue
		}

		out, violation, err := node.HandleMessage(next)
		if err != nil {
			h.recordError(err)
			continue
		}
		if violation != nil {
			h.logger.WithField("node", violation.Node).Warnf("%s", violation)
			h.Lock()
			h.violations = append(h.violations, *violation)
			h.Unlock()
		}

		for _, o := range out {
			if _, local := h.local[o.Recipient]; local {
				queue = append(queue, o)
			} else {
				h.send(o)
			}
		}
	}
}

// dispatch routes a batch of freshly produced messages.
func (h *Host) dispatch(out []wave.Message) {
	for _, m := range out {
		if _, local := h.local[m.Recipient]; local {
			h.deliver(m)
		} else {
			h.send(m)
		}
	}
}

func (h *Host) send(m wave.Message) {
	addr, ok := h.placement[m.Recipient]
	if !ok {
		h.recordError(wave.UnknownRecipientError{Recipient: m.Recipient})
		return
	}

	if err := h.trans.Send(addr, m); err != nil {
		h.recordError(err)
	}
}

func (h *Host) recordError(err error) {
	h.logger.WithError(err).Error("Host error")
	h.Lock()
	if h.err == nil {
		h.err = err
	}
	h.Unlock()
}

// Err returns the first fatal error the host observed, if any.
func (h *Host) Err() error {
	h.Lock()
	defer h.Unlock()
	return h.err
}

// Violations returns the protocol violations observed at local nodes.
func (h *Host) Violations() []wave.Violation {
	h.Lock()
	defer h.Unlock()
	res := make([]wave.Violation, len(h.violations))
	copy(res, h.violations)
	return res
}

// Parents returns the parent of every local node that has one.
func (h *Host) Parents() map[string]string {
	res := make(map[string]string)
	for name, node := range h.local {
		if parent := node.Parent(); parent != "" {
			res[name] = parent
		}
	}
	return res
}

// Node returns the local node with the given name, or nil.
func (h *Host) Node(name string) *wave.Node {
	return h.local[name]
}

// Shutdown stops the consumer loop and closes the transport.
func (h *Host) Shutdown() error {
	h.shutdownOnce.Do(func() { close(h.shutdownCh) })
	return h.trans.Close()
}
