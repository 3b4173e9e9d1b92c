package store

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/treewave/treewave/src/wave"
)

func testReport(runID string) *wave.Report {
	return &wave.Report{
		RunID:     runID,
		Initiator: "1",
		Tree: map[string]string{
			"2": "1",
			"3": "2",
		},
		Broadcasts: 2,
		Acks:       2,
		Messages:   4,
		Finished:   true,
		Duration:   5 * time.Millisecond,
	}
}

func checkStoredReport(t *testing.T, s Store, runID string) {
	report, err := s.GetReport(runID)
	if err != nil {
		t.Fatalf("err: %v", err)
	}

	if report.RunID != runID {
		t.Fatalf("run id should be %s, not %s", runID, report.RunID)
	}
	if !report.Finished || report.Messages != 4 {
		t.Fatalf("unexpected report %+v", report)
	}
	if report.Tree["3"] != "2" {
		t.Fatalf("unexpected tree %v", report.Tree)
	}
}

func testStore(t *testing.T, s Store) {
	if _, err := s.LastReport(); err == nil {
		t.Fatal("LastReport on an empty store should fail")
	}

	_, err := s.GetReport("nope")
	if _, ok := err.(KeyNotFoundError); !ok {
		t.Fatalf("expected KeyNotFoundError, got %v", err)
	}

	if err := s.SetReport(testReport("run-a")); err != nil {
		t.Fatalf("err: %v", err)
	}
	if err := s.SetReport(testReport("run-b")); err != nil {
		t.Fatalf("err: %v", err)
	}

	checkStoredReport(t, s, "run-a")
	checkStoredReport(t, s, "run-b")

	runs, err := s.Runs()
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(runs) != 2 || runs[0] != "run-a" || runs[1] != "run-b" {
		t.Fatalf("unexpected runs %v", runs)
	}

	last, err := s.LastReport()
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if last.RunID != "run-b" {
		t.Fatalf("last run should be run-b, not %s", last.RunID)
	}
}

func TestInmemStore(t *testing.T) {
	testStore(t, NewInmemStore())
}

func TestBadgerStore(t *testing.T) {
	dir, err := ioutil.TempDir("", "badger")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	defer os.RemoveAll(dir)

	s, err := NewBadgerStore(filepath.Join(dir, "db"))
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	defer s.Close()

	testStore(t, s)
}

func TestBadgerStoreReopen(t *testing.T) {
	dir, err := ioutil.TempDir("", "badger")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "db")

	s, err := NewBadgerStore(path)
	if err != nil {
		t.Fatalf("err: %v", err)
	}

	if err := s.SetReport(testReport("run-a")); err != nil {
		t.Fatalf("err: %v", err)
	}
	if err := s.SetReport(testReport("run-b")); err != nil {
		t.Fatalf("err: %v", err)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("err: %v", err)
	}

	// Reopen from disk and check everything survived, run order included.
	s, err = NewBadgerStore(path)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	defer s.Close()

	checkStoredReport(t, s, "run-a")
	checkStoredReport(t, s, "run-b")

	runs, err := s.Runs()
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(runs) != 2 || runs[0] != "run-a" || runs[1] != "run-b" {
		t.Fatalf("unexpected runs %v", runs)
	}
}
