package wave

import (
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/treewave/treewave/src/topology"
)

// Config holds the knobs of a wave run.
type Config struct {
	// Seed fixes the scheduler's cross-link delivery order. Runs with the
	// same topology and seed are fully deterministic.
	Seed int64

	// Logger receives the per-node debug output.
	Logger *logrus.Entry

	// Observer receives EchoComplete and AlgorithmFinished events. May be
	// nil.
	Observer Observer
}

// NewDefaultConfig returns a Config with a time-based seed and a standard
// logger.
func NewDefaultConfig() *Config {
	logger := logrus.New()
	logger.Level = logrus.InfoLevel

	return &Config{
		Seed:   time.Now().UnixNano(),
		Logger: logger.WithField("prefix", "wave"),
	}
}

// Report is the outcome of one wave run.
type Report struct {
	// RunID uniquely identifies the run.
	RunID string `json:"run_id"`

	// Initiator is the name of the node that triggered the wave.
	Initiator string `json:"initiator"`

	// Tree maps each participant to its parent in the induced spanning
	// tree. The initiator has no entry.
	Tree map[string]string `json:"tree"`

	// Broadcasts, Acks and Messages count everything that was scheduled.
	Broadcasts int `json:"broadcasts"`
	Acks       int `json:"acks"`
	Messages   int `json:"messages"`

	// Violations lists the non-fatal protocol violations observed during
	// the run.
	Violations []Violation `json:"violations,omitempty"`

	// Events is the ordered sequence of completion events.
	Events []Event `json:"events"`

	// Finished reports whether the initiator reached its terminal state.
	Finished bool `json:"finished"`

	Duration time.Duration `json:"duration"`
}

// Network is the runtime counterpart of a Topology: the fixed set of Nodes
// and their neighbour relation. The set is created once and lives for the
// duration of the Network; replaying a wave resets node state rather than
// rebuilding nodes.
type Network struct {
	top       *topology.Topology
	conf      *Config
	nodes     map[string]*Node
	initiator *Node
	observer  *indexingObserver
	logger    *logrus.Entry
}

// NewNetwork validates the topology and builds a Node for every vertex. It
// fails with InvalidTopologyError before any wave logic runs.
func NewNetwork(top *topology.Topology, conf *Config) (*Network, error) {
	if conf == nil {
		conf = NewDefaultConfig()
	}

	if err := top.Validate(); err != nil {
		return nil, err
	}

	net := &Network{
		top:      top,
		conf:     conf,
		nodes:    make(map[string]*Node),
		observer: newIndexingObserver(conf.Observer),
		logger:   conf.Logger,
	}

	for _, v := range top.Vertices {
		node := NewNode(v, conf.Logger, net.observer)
		net.nodes[v.Name] = node

		if v.Role == topology.Initiator {
			net.initiator = node
		}
	}

	return net, nil
}

// Node returns the Node with the given name, or nil.
func (net *Network) Node(name string) *Node {
	return net.nodes[name]
}

// Initiator returns the initiator Node.
func (net *Network) Initiator() *Node {
	return net.initiator
}

// reset returns every node and the observer to their initial state.
func (net *Network) reset() {
	for _, n := range net.nodes {
		n.Reset()
	}
	net.observer.reset()
}

// Run executes one wave to completion on a single goroutine: it starts the
// initiator, then drains the scheduler, delivering one message at a time to
// completion before dequeuing the next. Fatal protocol violations abort the
// run; non-fatal ones are recorded in the Report.
func (net *Network) Run() (*Report, error) {
	start := time.Now()

	net.reset()

	sched := NewScheduler(net.top.Names(), net.conf.Seed, net.logger)

	report := &Report{
		RunID:     uuid.NewString(),
		Initiator: net.initiator.Name(),
		Tree:      make(map[string]string),
	}

	out, err := net.initiator.Start()
	if err != nil {
		return nil, err
	}
	for _, m := range out {
		if err := sched.Schedule(m); err != nil {
			return nil, err
		}
	}

	for {
		m, ok := sched.Next()
		if !ok {
			break
		}

		node := net.nodes[m.Recipient]

		out, violation, err := node.HandleMessage(m)
		if err != nil {
			return nil, err
		}

		if violation != nil {
			net.logger.WithField("node", violation.Node).Warnf("%s", violation)
			report.Violations = append(report.Violations, *violation)
		}

		for _, o := range out {
			if err := sched.Schedule(o); err != nil {
				return nil, err
			}
		}
	}

	net.fillReport(report, sched.Broadcasts(), sched.Acks(), start)

	return report, nil
}

func (net *Network) fillReport(report *Report, broadcasts, acks int, start time.Time) {
	for name, node := range net.nodes {
		if parent := node.Parent(); parent != "" {
			report.Tree[name] = parent
		}
	}

	report.Broadcasts = broadcasts
	report.Acks = acks
	report.Messages = broadcasts + acks
	report.Events = net.observer.Events()
	report.Finished = net.initiator.getState() == Done
	report.Duration = time.Since(start)

	net.logger.WithFields(logrus.Fields{
		"run_id":   report.RunID,
		"messages": report.Messages,
		"finished": report.Finished,
	}).Info("Wave complete")
}

// RunWave builds a Network from the topology and executes one wave on a
// single goroutine. This is the main entry point of the package.
func RunWave(top *topology.Topology, conf *Config) (*Report, error) {
	net, err := NewNetwork(top, conf)
	if err != nil {
		return nil, err
	}

	return net.Run()
}
