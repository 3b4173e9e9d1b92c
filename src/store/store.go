// Package store persists wave run reports, either in memory or on disk in a
// Badger database.
package store

import (
	"fmt"

	"github.com/treewave/treewave/src/wave"
)

// Store records the outcome of wave runs.
type Store interface {
	//SetReport records a run report.
	SetReport(report *wave.Report) error

	//GetReport retrieves the report of a given run.
	GetReport(runID string) (*wave.Report, error)

	//Runs returns all recorded run IDs, oldest first.
	Runs() ([]string, error)

	//LastReport returns the most recently recorded report.
	LastReport() (*wave.Report, error)

	//Close releases the underlying resources.
	Close() error
}

// KeyNotFoundError is returned when a run ID is not present in the store.
type KeyNotFoundError struct {
	RunID string
}

func (e KeyNotFoundError) Error() string {
	return fmt.Sprintf("no report for run %s", e.RunID)
}
