package domain

import (
	"fmt"
	"time"

	"github.com/vishvananda/netlink"
	"github.com/vishvananda/netns"
)

const (
	initNetns = "/proc/1/ns/net"

	// maxIfNameLen is IFNAMSIZ minus the terminating NUL.
	maxIfNameLen = 15
)

// Veth is a virtual ethernet pair. Name ends up in NamespaceA and PeerName
// in NamespaceB. Bandwidth is in Mbit/s, zero when unshaped.
type Veth struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	PeerName   string     `json:"peer_name"`
	NamespaceA *Namespace `json:"namespace_a,omitempty"`
	NamespaceB *Namespace `json:"namespace_b,omitempty"`
	Bandwidth  float64    `json:"bandwidth,omitempty"`
	CreatedAt  string     `json:"created_at"`
}

func (v *Veth) RecordID() string      { return v.ID }
func (v *Veth) SetRecordID(id string) { v.ID = id }
func (v *Veth) RecordName() string    { return v.Name }

// CreateVeth creates the pair nameA<->nameB in the init namespace.
// Move the ends with MoveEndToNamespace afterwards.
func CreateVeth(nsA, nsB *Namespace, nameA, nameB string) (*Veth, error) {
	for _, name := range []string{nameA, nameB} {
		if name == "" || len(name) > maxIfNameLen {
			return nil, fmt.Errorf("invalid interface name %q", name)
		}
	}

	err := doInPath(initNetns, func() error {
		v := &netlink.Veth{
			LinkAttrs: netlink.LinkAttrs{
				Name: nameA,
			},
			PeerName: nameB,
		}
		if err := netlink.LinkAdd(v); err != nil {
			return fmt.Errorf("create veth %s<->%s: %w", nameA, nameB, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &Veth{
		Name:       nameA,
		PeerName:   nameB,
		NamespaceA: nsA,
		NamespaceB: nsB,
		CreatedAt:  time.Now().Format(time.RFC3339),
	}, nil
}

// MoveEndToNamespace moves one end of the veth from the init namespace into namespace.
func (v *Veth) MoveEndToNamespace(ifname string, namespace *Namespace) error {
	return doInPath(initNetns, func() error {
		link, err := netlink.LinkByName(ifname)
		if err != nil {
			return fmt.Errorf("find interface %s: %w", ifname, err)
		}

		nsHandle, err := netns.GetFromPath(namespace.Path)
		if err != nil {
			return fmt.Errorf("open namespace %s: %w", namespace.Name, err)
		}
		defer nsHandle.Close()

		if err := netlink.LinkSetNsFd(link, int(nsHandle)); err != nil {
			return fmt.Errorf("set netns for %s: %w", ifname, err)
		}
		return nil
	})
}

// Up brings ifname up inside namespace.
func (v *Veth) Up(ifname string, namespace *Namespace) error {
	return namespace.Do(func() error {
		link, err := netlink.LinkByName(ifname)
		if err != nil {
			return fmt.Errorf("get link: %w", err)
		}
		return netlink.LinkSetUp(link)
	})
}

// AssignIP assigns an address to ifname inside namespace and brings it up.
func (v *Veth) AssignIP(ifname, ipCIDR string, namespace *Namespace) error {
	addr, err := netlink.ParseAddr(ipCIDR)
	if err != nil {
		return fmt.Errorf("parse addr: %w", err)
	}

	return namespace.Do(func() error {
		link, err := netlink.LinkByName(ifname)
		if err != nil {
			return fmt.Errorf("get link: %w", err)
		}
		if err := netlink.AddrAdd(link, addr); err != nil {
			return fmt.Errorf("add addr: %w", err)
		}
		if err := netlink.LinkSetUp(link); err != nil {
			return fmt.Errorf("set up: %w", err)
		}
		return nil
	})
}

// Shape installs a token bucket filter limiting egress of ifname to mbit Mbit/s.
func (v *Veth) Shape(ifname string, mbit float64, namespace *Namespace) error {
	if mbit <= 0 {
		return nil
	}

	err := namespace.Do(func() error {
		link, err := netlink.LinkByName(ifname)
		if err != nil {
			return fmt.Errorf("get link: %w", err)
		}
		if err := netlink.QdiscReplace(NewTbf(link.Attrs().Index, mbit)); err != nil {
			return fmt.Errorf("replace qdisc: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	v.Bandwidth = mbit
	return nil
}

// NewTbf builds the root tbf qdisc for a link limited to mbit Mbit/s. The
// bucket holds 10ms of traffic and never less than two full frames.
func NewTbf(linkIndex int, mbit float64) *netlink.Tbf {
	rate := uint64(mbit * 1e6 / 8)
	burst := max(uint32(rate/100), 2*1514)
	return &netlink.Tbf{
		QdiscAttrs: netlink.QdiscAttrs{
			LinkIndex: linkIndex,
			Handle:    netlink.MakeHandle(1, 0),
			Parent:    netlink.HANDLE_ROOT,
		},
		Rate:   rate,
		Limit:  burst * 4,
		Buffer: netlink.Xmittime(rate, burst),
	}
}

// Delete removes the pair by deleting the A end. A missing namespace means
// the kernel already removed it.
func (v *Veth) Delete() error {
	path := initNetns
	if v.NamespaceA != nil {
		if namespaceGone(v.NamespaceA) {
			return nil
		}
		path = v.NamespaceA.Path
	}

	return doInPath(path, func() error {
		link, err := netlink.LinkByName(v.Name)
		if err != nil {
			return nil
		}
		return netlink.LinkDel(link)
	})
}
