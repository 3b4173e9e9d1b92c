package topology

import (
	"bytes"
	"encoding/json"
	"io/ioutil"
	"path/filepath"
	"sort"
	"sync"
)

const jsonTopologyPath = "graph.json"

// JSONTopology provides topology persistence on disk in the form of a JSON
// file mapping vertex names to their role and neighbour list:
//
//	{
//	  "1": {"role": "initiator", "neighbors": ["2", "3"]},
//	  "2": {"neighbors": ["1"]},
//	  "3": {"neighbors": ["1"]}
//	}
type JSONTopology struct {
	l    sync.Mutex
	path string
}

type jsonVertex struct {
	Role       string   `json:"role,omitempty"`
	Neighbours []string `json:"neighbors"`
}

// NewJSONTopology creates a JSONTopology with reference to a base directory
// where the graph file resides.
func NewJSONTopology(base string) *JSONTopology {
	return &JSONTopology{
		path: filepath.Join(base, jsonTopologyPath),
	}
}

// Path returns the full path of the underlying file.
func (j *JSONTopology) Path() string {
	return j.path
}

// Topology parses the underlying JSON file and returns the corresponding
// Topology. The result is not validated; callers run Validate before using it.
func (j *JSONTopology) Topology() (*Topology, error) {
	j.l.Lock()
	defer j.l.Unlock()

	buf, err := ioutil.ReadFile(j.path)
	if err != nil {
		return nil, err
	}

	raw := map[string]jsonVertex{}
	dec := json.NewDecoder(bytes.NewReader(buf))
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}

	vertices := make([]*Vertex, 0, len(raw))
	for name, jv := range raw {
		v := NewVertex(name, jv.Neighbours)
		if jv.Role == "initiator" {
			v.Role = Initiator
		}
		vertices = append(vertices, v)
	}

	return New(vertices), nil
}

// Write persists a Topology to the JSON file.
func (j *JSONTopology) Write(t *Topology) error {
	j.l.Lock()
	defer j.l.Unlock()

	raw := map[string]jsonVertex{}
	for _, v := range t.Vertices {
		jv := jsonVertex{Neighbours: append([]string{}, v.Neighbours...)}
		sort.Strings(jv.Neighbours)
		if v.Role == Initiator {
			jv.Role = "initiator"
		}
		raw[v.Name] = jv
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(raw); err != nil {
		return err
	}

	return ioutil.WriteFile(j.path, buf.Bytes(), 0755)
}
