// Package docker backs topology hosts with Docker containers. Each container
// runs with networking disabled and the emulator plugs veths into its
// network namespace.
package docker

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/errdefs"

	"topozoo/internal/container/domain"
)

const (
	// LabelNode marks containers created for a topology node.
	LabelNode = "topozoo.node"

	namePrefix = "topozoo-"
)

// Runtime creates and removes host containers through the Docker API.
type Runtime struct {
	cli    *client.Client
	image  string
	logger *log.Logger
}

// New connects to the daemon configured in the environment (DOCKER_HOST etc.).
func New(img string, logger *log.Logger) (*Runtime, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("docker client: %w", err)
	}
	return &Runtime{cli: cli, image: img, logger: logger}, nil
}

// Close releases the Docker client.
func (r *Runtime) Close() error {
	return r.cli.Close()
}

// ContainerName is the Docker name used for node.
func ContainerName(node string) string {
	return namePrefix + node
}

// Create starts an idle container for node and returns its network namespace.
func (r *Runtime) Create(ctx context.Context, node string) (*domain.Namespace, error) {
	if err := r.pull(ctx); err != nil {
		return nil, err
	}

	resp, err := r.cli.ContainerCreate(ctx,
		&container.Config{
			Image:    r.image,
			Hostname: node,
			Cmd:      []string{"sleep", "infinity"},
			Labels:   map[string]string{LabelNode: node},
		},
		&container.HostConfig{
			NetworkMode: "none",
			Privileged:  true,
		},
		nil, nil, ContainerName(node))
	if err != nil {
		return nil, fmt.Errorf("create container: %w", err)
	}

	if err := r.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		r.remove(ctx, resp.ID)
		return nil, fmt.Errorf("start container: %w", err)
	}

	info, err := r.cli.ContainerInspect(ctx, resp.ID)
	if err != nil {
		r.remove(ctx, resp.ID)
		return nil, fmt.Errorf("inspect container: %w", err)
	}
	if info.State == nil || info.State.Pid == 0 {
		r.remove(ctx, resp.ID)
		return nil, fmt.Errorf("container %s is not running", resp.ID)
	}

	r.logger.Debug("docker host started", "node", node, "id", resp.ID[:12], "pid", info.State.Pid)
	return &domain.Namespace{
		Name:        node,
		CreatedAt:   time.Now().Format(time.RFC3339),
		Path:        fmt.Sprintf("/proc/%d/ns/net", info.State.Pid),
		Backend:     domain.BackendDocker,
		ContainerID: resp.ID,
	}, nil
}

func (r *Runtime) pull(ctx context.Context) error {
	rc, err := r.cli.ImagePull(ctx, r.image, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("pull %s: %w", r.image, err)
	}
	defer rc.Close()

	if _, err := io.Copy(io.Discard, rc); err != nil {
		return fmt.Errorf("pull %s: %w", r.image, err)
	}
	return nil
}

// Delete removes the container owning ns. A container that no longer exists is not an error.
func (r *Runtime) Delete(ctx context.Context, ns *domain.Namespace) error {
	if ns.ContainerID == "" {
		return fmt.Errorf("namespace %s has no container", ns.Name)
	}
	return r.remove(ctx, ns.ContainerID)
}

func (r *Runtime) remove(ctx context.Context, id string) error {
	err := r.cli.ContainerRemove(ctx, id, container.RemoveOptions{Force: true})
	if err != nil && !errdefs.IsNotFound(err) {
		return fmt.Errorf("remove container %s: %w", id, err)
	}
	return nil
}

// Orphans lists node containers that carry LabelNode, running or not.
func (r *Runtime) Orphans(ctx context.Context) ([]string, error) {
	list, err := r.cli.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filters.NewArgs(filters.Arg("label", LabelNode)),
	})
	if err != nil {
		return nil, fmt.Errorf("list containers: %w", err)
	}

	ids := make([]string, 0, len(list))
	for _, c := range list {
		ids = append(ids, c.ID)
	}
	return ids, nil
}

// RemoveOrphans force-removes every container returned by Orphans.
func (r *Runtime) RemoveOrphans(ctx context.Context) (int, error) {
	ids, err := r.Orphans(ctx)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		if err := r.remove(ctx, id); err != nil {
			return 0, err
		}
	}
	return len(ids), nil
}
