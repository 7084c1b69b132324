package cli

import (
	"fmt"
	"os"
	"runtime"
	"syscall"

	"github.com/moby/sys/reexec"
	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"
)

// nsenterInit is the name the attach child is re-executed under.
const nsenterInit = "topozoo-nsenter"

func init() {
	reexec.Register(nsenterInit, nsenterMain)
}

func (c *CLI) attachCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "attach <container>",
		Short: "Open a shell inside a node's namespace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := c.newEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			container, err := e.cm.FindContainer(args[0])
			if err != nil {
				return err
			}
			if container.Namespace == nil {
				return fmt.Errorf("container %s has no namespace", container.Name)
			}

			c.Logger.Debug("attaching", "name", container.Name, "netns", container.Namespace.Path)

			child := reexec.Command(nsenterInit, container.Namespace.Path, container.Name)
			child.Stdin = os.Stdin
			child.Stdout = os.Stdout
			child.Stderr = os.Stderr
			if child.SysProcAttr == nil {
				child.SysProcAttr = &syscall.SysProcAttr{}
			}
			// own UTS namespace so the shell can carry the node's hostname
			child.SysProcAttr.Cloneflags |= unix.CLONE_NEWUTS

			if err := child.Run(); err != nil {
				return fmt.Errorf("attach %s: %w", container.Name, err)
			}
			return nil
		},
	}
}

// nsenterMain runs in the re-executed child: os.Args is
// [topozoo-nsenter, <netns path>, <node name>].
func nsenterMain() {
	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "nsenter: missing namespace path or node name")
		os.Exit(1)
	}
	nsPath, name := os.Args[1], os.Args[2]

	runtime.LockOSThread()

	f, err := os.Open(nsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "nsenter: open namespace: %v\n", err)
		os.Exit(1)
	}
	if err := unix.Setns(int(f.Fd()), unix.CLONE_NEWNET); err != nil {
		fmt.Fprintf(os.Stderr, "nsenter: setns: %v\n", err)
		os.Exit(1)
	}
	f.Close()

	if err := unix.Sethostname([]byte(name)); err != nil {
		fmt.Fprintf(os.Stderr, "nsenter: sethostname: %v\n", err)
	}

	os.Setenv("PS1", fmt.Sprintf("topozoo@%s:\\w $ ", name))

	bash := []string{"bash", "--noprofile", "--norc"}
	if err := syscall.Exec("/bin/bash", bash, os.Environ()); err != nil {
		fmt.Fprintf(os.Stderr, "nsenter: exec bash: %v\n", err)
		os.Exit(1)
	}
}
