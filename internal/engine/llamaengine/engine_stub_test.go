//go:build !llama

package llamaengine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"scriptd/internal/engine"
	"scriptd/internal/manager"
)

func TestStubRefusesToStart(t *testing.T) {
	e := New(Options{Dir: t.TempDir()})
	assert.ErrorIs(t, e.Start(context.Background()), engine.ErrUnavailable)

	s := manager.New(manager.Config{Engine: Factory(Options{})})
	_, err := s.Acquire(context.Background())
	assert.True(t, manager.IsDependencyUnavailable(err), "got %v", err)
	assert.Equal(t, manager.StateFailed, s.State())
}
