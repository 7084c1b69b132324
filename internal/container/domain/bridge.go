package domain

import (
	"fmt"
	"time"

	"github.com/vishvananda/netlink"
)

// Bridge is the forwarding plane of a switch. Protocols records the
// OpenFlow versions the switch was declared with.
type Bridge struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Namespace *Namespace `json:"namespace,omitempty"`
	Protocols string     `json:"protocols,omitempty"`
	CreatedAt string     `json:"created_at"`
	Ports     []string   `json:"ports,omitempty"`
}

func (b *Bridge) RecordID() string      { return b.ID }
func (b *Bridge) SetRecordID(id string) { b.ID = id }
func (b *Bridge) RecordName() string    { return b.Name }

// CreateBridge adds a bridge inside namespace and brings it up.
func CreateBridge(name, protocols string, namespace *Namespace) (*Bridge, error) {
	err := namespace.Do(func() error {
		br := &netlink.Bridge{
			LinkAttrs: netlink.LinkAttrs{
				Name: name,
			},
		}
		if err := netlink.LinkAdd(br); err != nil {
			return fmt.Errorf("bridge add: %w", err)
		}

		// Look up the bridge we just created to get a fresh handle
		link, err := netlink.LinkByName(name)
		if err != nil {
			return fmt.Errorf("lookup bridge: %w", err)
		}
		if err := netlink.LinkSetUp(link); err != nil {
			return fmt.Errorf("bridge up: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &Bridge{
		Name:      name,
		Namespace: namespace,
		Protocols: protocols,
		CreatedAt: time.Now().Format(time.RFC3339),
		Ports:     []string{},
	}, nil
}

// AttachInterface enslaves ifName, which must already live in the bridge's
// namespace, and brings it up.
func (b *Bridge) AttachInterface(ifName string) error {
	err := b.Namespace.Do(func() error {
		brLink, err := netlink.LinkByName(b.Name)
		if err != nil {
			return fmt.Errorf("lookup bridge %s: %w", b.Name, err)
		}
		ifLink, err := netlink.LinkByName(ifName)
		if err != nil {
			return fmt.Errorf("lookup interface %s: %w", ifName, err)
		}
		if err := netlink.LinkSetMaster(ifLink, brLink); err != nil {
			return fmt.Errorf("set master: %w", err)
		}
		if err := netlink.LinkSetUp(ifLink); err != nil {
			return fmt.Errorf("set up: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	b.Ports = append(b.Ports, ifName)
	return nil
}

// Delete removes the bridge. A namespace that is already gone took the
// bridge with it, so that is not an error.
func (b *Bridge) Delete() error {
	err := b.Namespace.Do(func() error {
		br, err := netlink.LinkByName(b.Name)
		if err != nil {
			return nil
		}
		return netlink.LinkDel(br)
	})
	if err != nil && !namespaceGone(b.Namespace) {
		return fmt.Errorf("delete bridge %s: %w", b.Name, err)
	}
	return nil
}
