package topology

import (
	"fmt"
	"sort"
)

// Role determines whether a vertex starts the wave or reacts to it.
type Role int

const (
	// Participant reacts to incoming broadcasts.
	Participant Role = iota
	// Initiator triggers the wave and detects global termination.
	Initiator
)

// String ...
func (r Role) String() string {
	switch r {
	case Participant:
		return "participant"
	case Initiator:
		return "initiator"
	default:
		return "unknown"
	}
}

// InvalidTopologyError is returned when the neighbour relation is asymmetric
// or disconnected, or when the graph does not designate exactly one initiator.
type InvalidTopologyError struct {
	Reason string
}

func (e InvalidTopologyError) Error() string {
	return fmt.Sprintf("invalid topology: %s", e.Reason)
}

// Vertex is one node of the network graph. The neighbour list is fixed at
// construction and read-only afterwards.
type Vertex struct {
	Name       string   `json:"name"`
	Neighbours []string `json:"neighbours"`
	Role       Role     `json:"role"`
}

// NewVertex returns a participant Vertex with a copy of the neighbour list.
func NewVertex(name string, neighbours []string) *Vertex {
	v := &Vertex{
		Name:       name,
		Neighbours: append([]string{}, neighbours...),
	}
	return v
}

// HasNeighbour reports whether name is in the Vertex's neighbour list.
func (v *Vertex) HasNeighbour(name string) bool {
	for _, n := range v.Neighbours {
		if n == name {
			return true
		}
	}
	return false
}

// Topology is a set of Vertices forming an undirected network graph. It is
// read-only after construction and may be shared freely across goroutines.
type Topology struct {
	Vertices []*Vertex          `json:"vertices"`
	ByName   map[string]*Vertex `json:"-"`

	//cached values
	initiator string
	edges     *int
}

// New creates a Topology from a list of Vertices. The Vertices are sorted by
// name so that derived orderings are stable regardless of input order.
func New(vertices []*Vertex) *Topology {
	sorted := append([]*Vertex{}, vertices...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	t := &Topology{
		Vertices: sorted,
		ByName:   make(map[string]*Vertex),
	}

	for _, v := range sorted {
		t.ByName[v.Name] = v
	}

	return t
}

// Len returns the number of Vertices.
func (t *Topology) Len() int {
	return len(t.Vertices)
}

// Names returns the sorted vertex names.
func (t *Topology) Names() []string {
	res := make([]string, 0, len(t.Vertices))
	for _, v := range t.Vertices {
		res = append(res, v.Name)
	}
	return res
}

// Initiator returns the name of the designated initiator. It is only
// meaningful after a successful Validate.
func (t *Topology) Initiator() string {
	if t.initiator == "" {
		for _, v := range t.Vertices {
			if v.Role == Initiator {
				t.initiator = v.Name
				break
			}
		}
	}
	return t.initiator
}

// EdgeCount returns the number of undirected edges.
func (t *Topology) EdgeCount() int {
	if t.edges == nil {
		degrees := 0
		for _, v := range t.Vertices {
			degrees += len(v.Neighbours)
		}
		e := degrees / 2
		t.edges = &e
	}
	return *t.edges
}

// Validate checks that the neighbour relation is symmetric and references only
// known vertices, that the graph is connected, and that exactly one vertex is
// designated initiator. It must pass before a wave is run.
func (t *Topology) Validate() error {
	if t.Len() == 0 {
		return InvalidTopologyError{Reason: "no vertices"}
	}

	initiators := 0
	for _, v := range t.Vertices {
		if v.Role == Initiator {
			initiators++
		}

		if t.Len() > 1 && len(v.Neighbours) == 0 {
			return InvalidTopologyError{Reason: fmt.Sprintf("vertex %s has no neighbours", v.Name)}
		}

		for _, n := range v.Neighbours {
			if n == v.Name {
				return InvalidTopologyError{Reason: fmt.Sprintf("vertex %s lists itself as neighbour", v.Name)}
			}

			other, ok := t.ByName[n]
			if !ok {
				return InvalidTopologyError{Reason: fmt.Sprintf("vertex %s lists unknown neighbour %s", v.Name, n)}
			}

			if !other.HasNeighbour(v.Name) {
				return InvalidTopologyError{Reason: fmt.Sprintf("asymmetric edge %s->%s", v.Name, n)}
			}
		}
	}

	if initiators != 1 {
		return InvalidTopologyError{Reason: fmt.Sprintf("expected exactly one initiator, got %d", initiators)}
	}

	if !t.connected() {
		return InvalidTopologyError{Reason: "graph is not connected"}
	}

	return nil
}

// connected runs a BFS from the first vertex and checks that every vertex is
// reachable.
func (t *Topology) connected() bool {
	if t.Len() == 0 {
		return false
	}

	visited := map[string]bool{t.Vertices[0].Name: true}
	frontier := []string{t.Vertices[0].Name}

	for len(frontier) > 0 {
		name := frontier[0]
		frontier = frontier[1:]

		for _, n := range t.ByName[name].Neighbours {
			if !visited[n] {
				visited[n] = true
				frontier = append(frontier, n)
			}
		}
	}

	return len(visited) == t.Len()
}
