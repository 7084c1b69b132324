package domain

import (
	"fmt"
	"os"
	"os/exec"
	"time"
)

type Kind string

const (
	KindHost   Kind = "host"
	KindSwitch Kind = "switch"
)

// Container groups the network resources created for one topology node.
type Container struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Kind      Kind       `json:"kind"`
	CreatedAt string     `json:"created_at"`
	Namespace *Namespace `json:"namespace,omitempty"`
	Bridges   []Bridge   `json:"bridges,omitempty"`
	Veths     []Veth     `json:"veths,omitempty"`
}

func (c *Container) RecordID() string      { return c.ID }
func (c *Container) SetRecordID(id string) { c.ID = id }
func (c *Container) RecordName() string    { return c.Name }

// NewContainer returns an unsaved container around ns.
func NewContainer(name string, kind Kind, ns *Namespace) *Container {
	return &Container{
		Name:      name,
		Kind:      kind,
		CreatedAt: time.Now().Format(time.RFC3339),
		Namespace: ns,
		Bridges:   []Bridge{},
		Veths:     []Veth{},
	}
}

// ShortID is the first 12 characters of the ID, as shown by the CLI.
func (c *Container) ShortID() string {
	if len(c.ID) > 12 {
		return c.ID[:12]
	}
	return c.ID
}

// AddBridge creates a bridge in the container's namespace.
func (c *Container) AddBridge(name, protocols string) (*Bridge, error) {
	if c.Namespace == nil {
		return nil, fmt.Errorf("container does not have a namespace")
	}

	bridge, err := CreateBridge(name, protocols, c.Namespace)
	if err != nil {
		return nil, fmt.Errorf("create bridge: %w", err)
	}

	c.Bridges = append(c.Bridges, *bridge)
	return &c.Bridges[len(c.Bridges)-1], nil
}

// Bridge returns the container's first bridge, if any.
func (c *Container) Bridge() (*Bridge, bool) {
	if len(c.Bridges) == 0 {
		return nil, false
	}
	return &c.Bridges[0], true
}

// Exec runs cmd inside the container's namespace with the caller's stdio.
func (c *Container) Exec(cmd []string) error {
	if c.Namespace == nil {
		return fmt.Errorf("container does not have a namespace")
	}
	if len(cmd) == 0 {
		return fmt.Errorf("empty command")
	}

	// The child inherits the namespace of the locked thread that forks it.
	return c.Namespace.Do(func() error {
		execution := exec.Command(cmd[0], cmd[1:]...)
		execution.Stdout = os.Stdout
		execution.Stderr = os.Stderr
		execution.Stdin = os.Stdin
		return execution.Run()
	})
}
