package docker

import (
	"context"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"topozoo/internal/container/domain"
)

func TestContainerName(t *testing.T) {
	assert.Equal(t, "topozoo-h9", ContainerName("h9"))
}

func TestDeleteWithoutContainer(t *testing.T) {
	// Client construction does not dial the daemon.
	r, err := New("alpine:3.20", log.Default())
	require.NoError(t, err)
	defer r.Close()

	err = r.Delete(context.Background(), &domain.Namespace{Name: "h1", Backend: domain.BackendDocker})
	assert.ErrorContains(t, err, "has no container")
}
