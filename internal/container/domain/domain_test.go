package domain

import (
	"errors"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vishvananda/netlink"
	"github.com/vishvananda/netns"
)

func TestNewTbf(t *testing.T) {
	tbf := NewTbf(7, 10)

	assert.Equal(t, 7, tbf.LinkIndex)
	assert.Equal(t, uint32(netlink.HANDLE_ROOT), tbf.Parent)
	assert.Equal(t, uint64(1_250_000), tbf.Rate)
	assert.Equal(t, uint32(12_500*4), tbf.Limit)
	assert.NotZero(t, tbf.Buffer)
}

func TestNewTbfMinimumBurst(t *testing.T) {
	// 1 Mbit/s gives 1250 bytes per 10ms, less than two frames.
	tbf := NewTbf(1, 1)
	assert.Equal(t, uint32(2*1514*4), tbf.Limit)
}

func TestCreateVethRejectsLongNames(t *testing.T) {
	_, err := CreateVeth(nil, nil, "a-very-long-interface", "s1-eth1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid interface name")

	_, err = CreateVeth(nil, nil, "s1-eth1", "")
	assert.Error(t, err)
}

func TestContainer(t *testing.T) {
	c := NewContainer("s9", KindSwitch, nil)
	assert.Equal(t, KindSwitch, c.Kind)
	assert.Empty(t, c.ShortID())

	c.SetRecordID("0123456789abcdef")
	assert.Equal(t, "0123456789ab", c.ShortID())
	assert.Equal(t, "s9", c.RecordName())

	_, ok := c.Bridge()
	assert.False(t, ok)

	_, err := c.AddBridge("br0", "")
	assert.Error(t, err)
	assert.Error(t, c.Exec([]string{"true"}))
}

func TestDockerNamespaceDeleteRefused(t *testing.T) {
	ns := &Namespace{Name: "h1", Backend: BackendDocker, ContainerID: "abc"}
	assert.Error(t, ns.Delete())
}

func TestNamespaceGone(t *testing.T) {
	assert.True(t, namespaceGone(nil))
	assert.True(t, namespaceGone(&Namespace{Path: filepath.Join(t.TempDir(), "missing")}))
	assert.False(t, namespaceGone(&Namespace{Path: t.TempDir()}))
}

// fakeSetns makes the n-th namespace switch fail and counts thread unlocks.
func fakeSetns(t *testing.T, failOn int) *int {
	t.Helper()
	calls, unlocks := 0, 0
	setNetns = func(netns.NsHandle) error {
		calls++
		if calls == failOn {
			return errors.New("operation not permitted")
		}
		return nil
	}
	unlockThread = func() { unlocks++ }
	t.Cleanup(func() {
		setNetns = netns.Set
		unlockThread = runtime.UnlockOSThread
	})
	return &unlocks
}

// runDo calls doInPath on its own goroutine so a thread left locked dies with it.
func runDo(fn func() error) error {
	errc := make(chan error, 1)
	go func() { errc <- doInPath("/proc/self/ns/net", fn) }()
	return <-errc
}

func TestDoUnlocksAfterRestore(t *testing.T) {
	unlocks := fakeSetns(t, 0)

	ran := false
	err := runDo(func() error { ran = true; return nil })
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, 1, *unlocks)
}

func TestDoKeepsThreadLockedWhenRestoreFails(t *testing.T) {
	unlocks := fakeSetns(t, 2)

	err := runDo(func() error { return nil })
	assert.ErrorContains(t, err, "setns back")
	assert.Equal(t, 0, *unlocks)
}

func TestDoUnlocksWhenEnterFails(t *testing.T) {
	unlocks := fakeSetns(t, 1)

	ran := false
	err := runDo(func() error { ran = true; return nil })
	assert.ErrorContains(t, err, "setns:")
	assert.False(t, ran)
	assert.Equal(t, 1, *unlocks)
}
