package net

import (
	"testing"
	"time"

	"github.com/treewave/treewave/src/common"
	"github.com/treewave/treewave/src/topology"
)

// 1 - 2 - 3 - 4
func lineTopology(t *testing.T) *topology.Topology {
	one := topology.NewVertex("1", []string{"2"})
	one.Role = topology.Initiator

	top := topology.New([]*topology.Vertex{
		one,
		topology.NewVertex("2", []string{"1", "3"}),
		topology.NewVertex("3", []string{"2", "4"}),
		topology.NewVertex("4", []string{"3"}),
	})

	if err := top.Validate(); err != nil {
		t.Fatalf("invalid test topology: %v", err)
	}

	return top
}

func TestHostsSpanWave(t *testing.T) {
	logger := common.NewTestEntry(t, common.TestLogLevel)

	top := lineTopology(t)

	addrA, transA := NewInmemTransport("")
	addrB, transB := NewInmemTransport("")

	transA.Connect(addrB, transB)
	transB.Connect(addrA, transA)

	placement := map[string]string{
		"1": addrA,
		"2": addrA,
		"3": addrB,
		"4": addrB,
	}

	hostA, err := NewHost(top, []string{"1", "2"}, placement, transA, logger)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	hostB, err := NewHost(top, []string{"3", "4"}, placement, transB, logger)
	if err != nil {
		t.Fatalf("err: %v", err)
	}

	hostA.Serve()
	hostB.Serve()

	defer hostA.Shutdown()
	defer hostB.Shutdown()

	if err := hostB.Start(); err == nil {
		t.Fatal("starting a host without the initiator should fail")
	}

	if err := hostA.Start(); err != nil {
		t.Fatalf("err: %v", err)
	}

	select {
	case <-hostA.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the wave to finish")
	}

	if err := hostA.Err(); err != nil {
		t.Fatalf("host A err: %v", err)
	}
	if err := hostB.Err(); err != nil {
		t.Fatalf("host B err: %v", err)
	}
	if v := hostA.Violations(); len(v) != 0 {
		t.Fatalf("host A violations: %v", v)
	}
	if v := hostB.Violations(); len(v) != 0 {
		t.Fatalf("host B violations: %v", v)
	}

	// On a line there is only one possible tree.
	parentsA := hostA.Parents()
	parentsB := hostB.Parents()

	if parentsA["2"] != "1" {
		t.Fatalf("2's parent should be 1, got %v", parentsA)
	}
	if parentsB["3"] != "2" || parentsB["4"] != "3" {
		t.Fatalf("unexpected parents on host B: %v", parentsB)
	}
}

func TestHostOverTCP(t *testing.T) {
	logger := common.NewTestEntry(t, common.TestLogLevel)

	top := lineTopology(t)

	transA, err := NewTCPTransport("127.0.0.1:0", time.Second, logger)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	transB, err := NewTCPTransport("127.0.0.1:0", time.Second, logger)
	if err != nil {
		t.Fatalf("err: %v", err)
	}

	placement := map[string]string{
		"1": transA.LocalAddr(),
		"2": transA.LocalAddr(),
		"3": transB.LocalAddr(),
		"4": transB.LocalAddr(),
	}

	hostA, err := NewHost(top, []string{"1", "2"}, placement, transA, logger)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	hostB, err := NewHost(top, []string{"3", "4"}, placement, transB, logger)
	if err != nil {
		t.Fatalf("err: %v", err)
	}

	hostA.Serve()
	hostB.Serve()

	defer hostA.Shutdown()
	defer hostB.Shutdown()

	if err := hostA.Start(); err != nil {
		t.Fatalf("err: %v", err)
	}

	select {
	case <-hostA.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the wave to finish")
	}

	if err := hostA.Err(); err != nil {
		t.Fatalf("host A err: %v", err)
	}
	if err := hostB.Err(); err != nil {
		t.Fatalf("host B err: %v", err)
	}

	if node := hostB.Node("4"); node.Parent() != "3" {
		t.Fatalf("4's parent should be 3, not %s", node.Parent())
	}
}
