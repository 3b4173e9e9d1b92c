// Package service exposes wave run results over a small HTTP API.
package service

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/treewave/treewave/src/store"
	"github.com/treewave/treewave/src/topology"
)

// Service serves the topology and recorded run reports over HTTP.
type Service struct {
	sync.Mutex

	bindAddress string
	top         *topology.Topology
	store       store.Store
	logger      *logrus.Entry
}

// NewService ...
func NewService(bindAddress string, top *topology.Topology, s store.Store, logger *logrus.Entry) *Service {
	service := Service{
		bindAddress: bindAddress,
		top:         top,
		store:       s,
		logger:      logger,
	}

	service.registerHandlers()

	return &service
}

// registerHandlers registers the API handlers with the DefaultServerMux of
// the http package. It is possible that another server in the same process is
// simultaneously using the DefaultServerMux. In which case, the handlers will
// be accessible from both servers.
func (s *Service) registerHandlers() {
	s.logger.Debug("Registering API handlers")
	http.HandleFunc("/stats", s.makeHandler(s.GetStats))
	http.HandleFunc("/report", s.makeHandler(s.GetLastReport))
	http.HandleFunc("/report/", s.makeHandler(s.GetReport))
	http.HandleFunc("/runs", s.makeHandler(s.GetRuns))
	http.HandleFunc("/topology", s.makeHandler(s.GetTopology))
}

func (s *Service) makeHandler(fn func(http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.Lock()
		defer s.Unlock()

		// enable CORS
		w.Header().Set("Access-Control-Allow-Origin", "*")

		fn(w, r)
	}
}

// Serve calls ListenAndServe. This is a blocking call. It is not necessary to
// call Serve when another server has already been started with the
// DefaultServerMux and the same address:port combination.
func (s *Service) Serve() {
	s.logger.WithField("bind_address", s.bindAddress).Debug("Serving API")

	err := http.ListenAndServe(s.bindAddress, nil)
	if err != nil {
		s.logger.Error(err)
	}
}

// GetStats returns aggregate information about the recorded runs.
func (s *Service) GetStats(w http.ResponseWriter, r *http.Request) {
	runs, err := s.store.Runs()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	stats := map[string]interface{}{
		"num_runs":  len(runs),
		"num_nodes": s.top.Len(),
		"num_edges": s.top.EdgeCount(),
		"initiator": s.top.Initiator(),
	}

	s.writeJSON(w, stats)
}

// GetLastReport returns the most recent run report.
func (s *Service) GetLastReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.store.LastReport()
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	s.writeJSON(w, report)
}

// GetReport returns the report of the run whose ID follows /report/.
func (s *Service) GetReport(w http.ResponseWriter, r *http.Request) {
	runID := strings.TrimPrefix(r.URL.Path, "/report/")

	report, err := s.store.GetReport(runID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	s.writeJSON(w, report)
}

// GetRuns returns all recorded run IDs, oldest first.
func (s *Service) GetRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.store.Runs()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	s.writeJSON(w, runs)
}

// GetTopology returns the network graph.
func (s *Service) GetTopology(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.top.Vertices)
}

func (s *Service) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")

	enc := json.NewEncoder(w)
	if err := enc.Encode(v); err != nil {
		s.logger.WithError(err).Error("Failed to encode response")
	}
}
