package store

import (
	"fmt"

	"github.com/dgraph-io/badger"
	"github.com/treewave/treewave/src/wave"
)

const (
	reportPrefix = "report_"
	runPrefix    = "run_"
)

// BadgerStore persists run reports in a Badger database, writing through an
// InmemStore. Reports are encoded with the canonical json codec so values are
// byte-stable across runs.
type BadgerStore struct {
	inmemStore *InmemStore
	db         *badger.DB
	path       string
	seq        int
}

// NewBadgerStore opens (or creates) a Badger database at path and loads any
// previously recorded reports into the in-memory write-through cache.
func NewBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	opts.SyncWrites = false
	opts.Logger = nil

	handle, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	store := &BadgerStore{
		inmemStore: NewInmemStore(),
		db:         handle,
		path:       path,
	}

	if err := store.loadRuns(); err != nil {
		store.db.Close()
		return nil, err
	}

	return store, nil
}

// Path returns the database directory.
func (s *BadgerStore) Path() string {
	return s.path
}

// loadRuns replays the run index from disk into the InmemStore.
func (s *BadgerStore) loadRuns() error {
	return s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(runPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			runID, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}

			report, err := s.dbGetReport(txn, string(runID))
			if err != nil {
				return err
			}

			if err := s.inmemStore.SetReport(report); err != nil {
				return err
			}

			s.seq++
		}

		return nil
	})
}

func (s *BadgerStore) dbGetReport(txn *badger.Txn, runID string) (*wave.Report, error) {
	item, err := txn.Get(reportKey(runID))
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, KeyNotFoundError{RunID: runID}
		}
		return nil, err
	}

	val, err := item.ValueCopy(nil)
	if err != nil {
		return nil, err
	}

	report := new(wave.Report)
	if err := report.Unmarshal(val); err != nil {
		return nil, err
	}

	return report, nil
}

// SetReport implements the Store interface.
func (s *BadgerStore) SetReport(report *wave.Report) error {
	val, err := report.Marshal()
	if err != nil {
		return err
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(reportKey(report.RunID), val); err != nil {
			return err
		}
		return txn.Set(runKey(s.seq), []byte(report.RunID))
	})
	if err != nil {
		return err
	}

	s.seq++

	return s.inmemStore.SetReport(report)
}

// GetReport implements the Store interface.
func (s *BadgerStore) GetReport(runID string) (*wave.Report, error) {
	report, err := s.inmemStore.GetReport(runID)
	if err == nil {
		return report, nil
	}

	err = s.db.View(func(txn *badger.Txn) error {
		report, err = s.dbGetReport(txn, runID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return report, nil
}

// Runs implements the Store interface.
func (s *BadgerStore) Runs() ([]string, error) {
	return s.inmemStore.Runs()
}

// LastReport implements the Store interface.
func (s *BadgerStore) LastReport() (*wave.Report, error) {
	return s.inmemStore.LastReport()
}

// Close implements the Store interface.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func reportKey(runID string) []byte {
	return []byte(reportPrefix + runID)
}

func runKey(seq int) []byte {
	return []byte(fmt.Sprintf("%s%020d", runPrefix, seq))
}
