// Package treewave ties the configuration, topology, store, service and wave
// runner together into one engine.
package treewave

import (
	"fmt"

	"github.com/treewave/treewave/src/config"
	"github.com/treewave/treewave/src/service"
	"github.com/treewave/treewave/src/store"
	"github.com/treewave/treewave/src/topology"
	"github.com/treewave/treewave/src/wave"
)

// Treewave is the top-level engine: it loads and validates the topology,
// opens the store, runs waves, and serves the results.
type Treewave struct {
	Config   *config.Config
	Topology *topology.Topology
	Network  *wave.Network
	Store    store.Store
	Service  *service.Service
}

// NewTreewave ...
func NewTreewave(conf *config.Config) *Treewave {
	engine := &Treewave{
		Config: conf,
	}

	return engine
}

// Init reads the graph file, validates the topology, and initialises the
// store and the optional HTTP service.
func (t *Treewave) Init() error {
	if err := t.initTopology(); err != nil {
		return err
	}

	if err := t.initNetwork(); err != nil {
		return err
	}

	if err := t.initStore(); err != nil {
		return err
	}

	t.initService()

	return nil
}

func (t *Treewave) initTopology() error {
	if t.Topology != nil {
		return nil
	}

	graphStore := topology.NewJSONTopology(t.Config.DataDir)

	top, err := graphStore.Topology()
	if err != nil {
		return err
	}

	if t.Config.Initiator != "" {
		if err := designateInitiator(top, t.Config.Initiator); err != nil {
			return err
		}
	}

	t.Topology = top

	return nil
}

// designateInitiator overrides the roles in the graph file, making name the
// single initiator.
func designateInitiator(top *topology.Topology, name string) error {
	if _, ok := top.ByName[name]; !ok {
		return fmt.Errorf("initiator %s not in topology", name)
	}

	for _, v := range top.Vertices {
		if v.Name == name {
			v.Role = topology.Initiator
		} else {
			v.Role = topology.Participant
		}
	}

	return nil
}

func (t *Treewave) initNetwork() error {
	waveConf := wave.NewDefaultConfig()
	waveConf.Logger = t.Config.Logger()
	waveConf.Observer = wave.LogObserver{Logger: t.Config.Logger()}
	if t.Config.Seed != 0 {
		waveConf.Seed = t.Config.Seed
	}

	net, err := wave.NewNetwork(t.Topology, waveConf)
	if err != nil {
		return err
	}

	t.Network = net

	return nil
}

func (t *Treewave) initStore() error {
	if !t.Config.Store {
		t.Store = store.NewInmemStore()
		return nil
	}

	t.Config.Logger().WithField("path", t.Config.DatabaseDir).Debug("Opening badger store")

	badgerStore, err := store.NewBadgerStore(t.Config.DatabaseDir)
	if err != nil {
		return err
	}

	t.Store = badgerStore

	return nil
}

func (t *Treewave) initService() {
	if t.Config.NoService {
		return
	}

	t.Service = service.NewService(t.Config.ServiceAddr, t.Topology, t.Store, t.Config.Logger())
}

// RunWave executes one wave and records its report in the store.
func (t *Treewave) RunWave() (*wave.Report, error) {
	var report *wave.Report
	var err error

	if t.Config.Concurrent {
		report, err = t.Network.RunConcurrent()
	} else {
		report, err = t.Network.Run()
	}
	if err != nil {
		return nil, err
	}

	if err := t.Store.SetReport(report); err != nil {
		return nil, err
	}

	return report, nil
}

// Serve blocks serving the HTTP API, when it is enabled.
func (t *Treewave) Serve() {
	if t.Service != nil {
		t.Service.Serve()
	}
}

// Shutdown releases the engine's resources.
func (t *Treewave) Shutdown() error {
	if t.Store != nil {
		return t.Store.Close()
	}
	return nil
}
