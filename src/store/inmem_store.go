package store

import (
	"sync"

	"github.com/treewave/treewave/src/wave"
)

// InmemStore keeps run reports in memory. It implements the Store interface
// and is the default when persistence is not enabled.
type InmemStore struct {
	sync.RWMutex
	reports map[string]*wave.Report
	runs    []string
}

// NewInmemStore ...
func NewInmemStore() *InmemStore {
	return &InmemStore{
		reports: make(map[string]*wave.Report),
	}
}

// SetReport implements the Store interface.
func (s *InmemStore) SetReport(report *wave.Report) error {
	s.Lock()
	defer s.Unlock()

	if _, ok := s.reports[report.RunID]; !ok {
		s.runs = append(s.runs, report.RunID)
	}
	s.reports[report.RunID] = report

	return nil
}

// GetReport implements the Store interface.
func (s *InmemStore) GetReport(runID string) (*wave.Report, error) {
	s.RLock()
	defer s.RUnlock()

	report, ok := s.reports[runID]
	if !ok {
		return nil, KeyNotFoundError{RunID: runID}
	}

	return report, nil
}

// Runs implements the Store interface.
func (s *InmemStore) Runs() ([]string, error) {
	s.RLock()
	defer s.RUnlock()

	res := make([]string, len(s.runs))
	copy(res, s.runs)

	return res, nil
}

// LastReport implements the Store interface.
func (s *InmemStore) LastReport() (*wave.Report, error) {
	s.RLock()
	defer s.RUnlock()

	if len(s.runs) == 0 {
		return nil, KeyNotFoundError{RunID: ""}
	}

	return s.reports[s.runs[len(s.runs)-1]], nil
}

// Close implements the Store interface.
func (s *InmemStore) Close() error {
	return nil
}
