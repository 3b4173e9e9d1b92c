package topology

import (
	"io/ioutil"
	"os"
	"testing"
)

func triangle() *Topology {
	one := NewVertex("1", []string{"2", "3"})
	one.Role = Initiator

	return New([]*Vertex{
		one,
		NewVertex("2", []string{"1", "3"}),
		NewVertex("3", []string{"1", "2"}),
	})
}

func TestValidate(t *testing.T) {
	if err := triangle().Validate(); err != nil {
		t.Fatalf("err: %v", err)
	}
}

func TestValidateEmpty(t *testing.T) {
	if err := New([]*Vertex{}).Validate(); err == nil {
		t.Fatal("empty topology should be rejected")
	}
}

func TestValidateSingleVertex(t *testing.T) {
	v := NewVertex("1", nil)
	v.Role = Initiator

	if err := New([]*Vertex{v}).Validate(); err != nil {
		t.Fatalf("a single isolated initiator is valid: %v", err)
	}
}

func TestValidateIsolatedVertex(t *testing.T) {
	one := NewVertex("1", []string{"2"})
	one.Role = Initiator

	top := New([]*Vertex{
		one,
		NewVertex("2", []string{"1"}),
		NewVertex("3", nil),
	})

	if err := top.Validate(); err == nil {
		t.Fatal("isolated vertex should be rejected")
	}
}

func TestValidateSelfLoop(t *testing.T) {
	one := NewVertex("1", []string{"1", "2"})
	one.Role = Initiator

	top := New([]*Vertex{
		one,
		NewVertex("2", []string{"1"}),
	})

	if err := top.Validate(); err == nil {
		t.Fatal("self loop should be rejected")
	}
}

func TestValidateUnknownNeighbour(t *testing.T) {
	one := NewVertex("1", []string{"2", "9"})
	one.Role = Initiator

	top := New([]*Vertex{
		one,
		NewVertex("2", []string{"1"}),
	})

	if err := top.Validate(); err == nil {
		t.Fatal("unknown neighbour should be rejected")
	}
}

func TestValidateAsymmetricEdge(t *testing.T) {
	one := NewVertex("1", []string{"2"})
	one.Role = Initiator

	// 2 lists 3 but 3 does not list 2.
	top := New([]*Vertex{
		one,
		NewVertex("2", []string{"1", "3"}),
		NewVertex("3", []string{"1"}),
	})

	if err := top.Validate(); err == nil {
		t.Fatal("asymmetric edge should be rejected")
	}
}

func TestValidateNoInitiator(t *testing.T) {
	top := New([]*Vertex{
		NewVertex("1", []string{"2"}),
		NewVertex("2", []string{"1"}),
	})

	if err := top.Validate(); err == nil {
		t.Fatal("missing initiator should be rejected")
	}
}

func TestValidateTwoInitiators(t *testing.T) {
	one := NewVertex("1", []string{"2"})
	one.Role = Initiator
	two := NewVertex("2", []string{"1"})
	two.Role = Initiator

	if err := New([]*Vertex{one, two}).Validate(); err == nil {
		t.Fatal("two initiators should be rejected")
	}
}

func TestValidateDisconnected(t *testing.T) {
	one := NewVertex("1", []string{"2"})
	one.Role = Initiator

	top := New([]*Vertex{
		one,
		NewVertex("2", []string{"1"}),
		NewVertex("3", []string{"4"}),
		NewVertex("4", []string{"3"}),
	})

	if err := top.Validate(); err == nil {
		t.Fatal("disconnected graph should be rejected")
	}
}

func TestEdgeCount(t *testing.T) {
	if e := triangle().EdgeCount(); e != 3 {
		t.Fatalf("triangle should have 3 edges, not %d", e)
	}
}

func TestNamesSorted(t *testing.T) {
	top := New([]*Vertex{
		NewVertex("c", nil),
		NewVertex("a", nil),
		NewVertex("b", nil),
	})

	names := top.Names()
	if len(names) != 3 || names[0] != "a" || names[1] != "b" || names[2] != "c" {
		t.Fatalf("names should be sorted, got %v", names)
	}
}

func TestInitiator(t *testing.T) {
	if i := triangle().Initiator(); i != "1" {
		t.Fatalf("initiator should be 1, not %s", i)
	}
}

func TestJSONTopology(t *testing.T) {
	dir, err := ioutil.TempDir("", "topology")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	defer os.RemoveAll(dir)

	store := NewJSONTopology(dir)

	if err := store.Write(triangle()); err != nil {
		t.Fatalf("err: %v", err)
	}

	top, err := store.Topology()
	if err != nil {
		t.Fatalf("err: %v", err)
	}

	if err := top.Validate(); err != nil {
		t.Fatalf("err: %v", err)
	}
	if top.Len() != 3 {
		t.Fatalf("topology should have 3 vertices, not %d", top.Len())
	}
	if top.Initiator() != "1" {
		t.Fatalf("initiator should be 1, not %s", top.Initiator())
	}
	if !top.ByName["2"].HasNeighbour("3") {
		t.Fatal("edge 2-3 should survive the roundtrip")
	}
	if top.ByName["2"].Role != Participant {
		t.Fatal("2 should be a participant")
	}
}

func TestJSONTopologyFormat(t *testing.T) {
	dir, err := ioutil.TempDir("", "topology")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	defer os.RemoveAll(dir)

	content := `{
  "1": {"role": "initiator", "neighbors": ["2", "3"]},
  "2": {"neighbors": ["1"]},
  "3": {"neighbors": ["1"]}
}`

	store := NewJSONTopology(dir)
	if err := ioutil.WriteFile(store.Path(), []byte(content), 0755); err != nil {
		t.Fatalf("err: %v", err)
	}

	top, err := store.Topology()
	if err != nil {
		t.Fatalf("err: %v", err)
	}

	if err := top.Validate(); err != nil {
		t.Fatalf("err: %v", err)
	}
	if top.Initiator() != "1" {
		t.Fatalf("initiator should be 1, not %s", top.Initiator())
	}
}
