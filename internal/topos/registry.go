// Package topos holds the catalogue of named topologies.
package topos

import (
	"errors"
	"fmt"
	"slices"

	"topozoo/internal/topology"
)

// ErrUnknownTopology is returned by New for names missing from the registry.
var ErrUnknownTopology = errors.New("unknown topology")

// Factory builds a fresh topology on every call.
type Factory func() *topology.Topology

var registry = map[string]Factory{
	"att":    NewGeantMpls,
	"single": NewSingle,
}

// Names returns the registered topology names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Lookup returns the factory registered under name.
func Lookup(name string) (Factory, bool) {
	f, ok := registry[name]
	return f, ok
}

// New builds the topology registered under name.
func New(name string) (*topology.Topology, error) {
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTopology, name)
	}
	return f(), nil
}
