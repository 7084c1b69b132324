package topology

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// document is the on-disk form shared by the JSON and TOML codecs.
type document struct {
	Nodes []nodeRecord `json:"nodes" toml:"node"`
	Links []linkRecord `json:"links" toml:"link"`
}

type nodeRecord struct {
	Name      string   `json:"name" toml:"name"`
	Type      NodeType `json:"type" toml:"type"`
	Label     string   `json:"label,omitempty" toml:"label,omitempty"`
	Protocols string   `json:"protocols,omitempty" toml:"protocols,omitempty"`
}

type linkRecord struct {
	A         string  `json:"a" toml:"a"`
	B         string  `json:"b" toml:"b"`
	Bandwidth float64 `json:"bw,omitempty" toml:"bw,omitempty"`
	IPA       string  `json:"ip_a,omitempty" toml:"ip_a,omitempty"`
	IPB       string  `json:"ip_b,omitempty" toml:"ip_b,omitempty"`
}

func toDocument(t *Topology) document {
	doc := document{
		Nodes: make([]nodeRecord, 0, len(t.nodes)),
		Links: make([]linkRecord, 0, len(t.links)),
	}
	for _, n := range t.nodes {
		doc.Nodes = append(doc.Nodes, nodeRecord{Name: n.Name, Type: n.Type, Label: n.Label, Protocols: n.Protocols})
	}
	for _, l := range t.links {
		doc.Links = append(doc.Links, linkRecord{A: l.NodeA, B: l.NodeB, Bandwidth: l.Bandwidth, IPA: l.IPA, IPB: l.IPB})
	}
	return doc
}

func fromDocument(doc document) (*Topology, error) {
	t := NewTopology()
	seen := make(map[string]bool, len(doc.Nodes))
	for _, n := range doc.Nodes {
		if seen[n.Name] {
			return nil, fmt.Errorf("node %q: %w", n.Name, ErrDuplicateNode)
		}
		seen[n.Name] = true
		opts := []NodeOption{WithLabel(n.Label), WithProtocols(n.Protocols)}
		switch n.Type {
		case NodeSwitch:
			t.AddSwitch(n.Name, opts...)
		case NodeHost:
			t.AddHost(n.Name, opts...)
		default:
			return nil, fmt.Errorf("node %q: unknown node type: %q", n.Name, n.Type)
		}
	}
	for _, l := range doc.Links {
		t.AddLink(l.A, l.B, WithBandwidth(l.Bandwidth), WithIPs(l.IPA, l.IPB))
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// WriteJSON encodes t as indented JSON.
func WriteJSON(w io.Writer, t *Topology) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(toDocument(t)); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ReadJSON decodes and validates a topology written by WriteJSON.
func ReadJSON(r io.Reader) (*Topology, error) {
	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return fromDocument(doc)
}

// WriteTOML encodes t as [[node]] and [[link]] tables.
func WriteTOML(w io.Writer, t *Topology) error {
	if err := toml.NewEncoder(w).Encode(toDocument(t)); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ReadTOML decodes and validates a topology written by WriteTOML.
func ReadTOML(r io.Reader) (*Topology, error) {
	var doc document
	if _, err := toml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return fromDocument(doc)
}

// LoadFile reads a topology from a .toml or .json file.
func LoadFile(path string) (*Topology, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var t *Topology
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		t, err = ReadTOML(f)
	case ".json":
		t, err = ReadJSON(f)
	default:
		return nil, fmt.Errorf("load %s: unsupported extension %q", path, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return t, nil
}
