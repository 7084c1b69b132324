package domain

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/vishvananda/netlink"
	"github.com/vishvananda/netns"
	"golang.org/x/sys/unix"
)

const (
	BackendNetns  = "netns"
	BackendDocker = "docker"
)

// Namespace represents a network namespace. Path is what setns opens: a bind
// mount for netns namespaces, /proc/<pid>/ns/net for Docker ones.
type Namespace struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	CreatedAt   string `json:"created_at"`
	Path        string `json:"path"`
	Backend     string `json:"backend"`
	ContainerID string `json:"container_id,omitempty"`
}

func (ns *Namespace) RecordID() string      { return ns.ID }
func (ns *Namespace) SetRecordID(id string) { ns.ID = id }
func (ns *Namespace) RecordName() string    { return ns.Name }

// CreateNamespace creates a network namespace bind mounted at dir/name with
// its loopback interface up. The calling thread's namespace is restored.
func CreateNamespace(dir, name string) (*Namespace, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}

	nsPath := filepath.Join(dir, name)
	f, err := os.OpenFile(nsPath, os.O_RDONLY|os.O_CREATE|os.O_EXCL, 0o444)
	if err != nil {
		return nil, fmt.Errorf("create mount point: %w", err)
	}
	f.Close()

	if err := unshareInto(nsPath); err != nil {
		os.Remove(nsPath)
		return nil, err
	}

	ns := &Namespace{
		Name:      name,
		CreatedAt: time.Now().Format(time.RFC3339),
		Path:      nsPath,
		Backend:   BackendNetns,
	}

	if err := ns.Do(func() error {
		lo, err := netlink.LinkByName("lo")
		if err != nil {
			return fmt.Errorf("lookup lo: %w", err)
		}
		return netlink.LinkSetUp(lo)
	}); err != nil {
		ns.Delete()
		return nil, fmt.Errorf("loopback up: %w", err)
	}

	return ns, nil
}

// Replaced in tests.
var (
	setNetns     = netns.Set
	unlockThread = runtime.UnlockOSThread
)

// threadLock pins the calling goroutine to its OS thread. A thread marked
// stuck is left in a foreign namespace and stays locked, so the runtime
// retires it when the goroutine exits.
type threadLock struct {
	stuck bool
}

func lockThread() *threadLock {
	runtime.LockOSThread()
	return &threadLock{}
}

func (l *threadLock) release() {
	if !l.stuck {
		unlockThread()
	}
}

func unshareInto(nsPath string) error {
	lock := lockThread()
	defer lock.release()

	origNS, err := netns.Get()
	if err != nil {
		return fmt.Errorf("get current netns: %w", err)
	}
	defer origNS.Close()

	newNS, err := netns.New()
	if err != nil {
		return fmt.Errorf("unshare: %w", err)
	}
	defer newNS.Close()

	self := fmt.Sprintf("/proc/self/task/%d/ns/net", unix.Gettid())
	mountErr := unix.Mount(self, nsPath, "bind", unix.MS_BIND, "")

	if err := setNetns(origNS); err != nil {
		lock.stuck = true
		return fmt.Errorf("setns back: %w", err)
	}
	if mountErr != nil {
		return fmt.Errorf("bind mount: %w", mountErr)
	}
	return nil
}

// Delete unmounts and removes a netns namespace. Docker namespaces are owned
// by their container and are removed through the Docker runtime instead.
func (ns *Namespace) Delete() error {
	if ns.Backend == BackendDocker {
		return fmt.Errorf("namespace %s belongs to container %s", ns.Name, ns.ContainerID)
	}
	if err := unix.Unmount(ns.Path, unix.MNT_DETACH); err != nil && !errors.Is(err, unix.EINVAL) && !errors.Is(err, unix.ENOENT) {
		return fmt.Errorf("umount: %w", err)
	}
	if err := os.Remove(ns.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("rm: %w", err)
	}
	return nil
}

// Do runs fn on a locked OS thread switched into the namespace, then switches back.
func (ns *Namespace) Do(fn func() error) error {
	return doInPath(ns.Path, fn)
}

func doInPath(path string, fn func() error) error {
	lock := lockThread()
	defer lock.release()

	origNS, err := netns.Get()
	if err != nil {
		return fmt.Errorf("get current netns: %w", err)
	}
	defer origNS.Close()

	targetNS, err := netns.GetFromPath(path)
	if err != nil {
		return fmt.Errorf("open netns %s: %w", path, err)
	}
	defer targetNS.Close()

	if err := setNetns(targetNS); err != nil {
		return fmt.Errorf("setns: %w", err)
	}

	fnErr := fn()

	if err := setNetns(origNS); err != nil {
		lock.stuck = true
		return fmt.Errorf("setns back: %w", err)
	}
	return fnErr
}

func namespaceGone(ns *Namespace) bool {
	if ns == nil {
		return true
	}
	_, err := os.Stat(ns.Path)
	return errors.Is(err, fs.ErrNotExist)
}
