package realtime

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestRegistryRegisterAndLookup(t *testing.T) {
	registry := NewRegistry()
	userID := uuid.New()
	s := newFakeSession(userID, "alice")

	prev := registry.Register(s)
	assert.Nil(t, prev)
	assert.Equal(t, 1, registry.Len())

	found, ok := registry.Lookup(userID)
	assert.True(t, ok)
	assert.Equal(t, s.ID(), found.ID())

	_, ok = registry.Lookup(uuid.New())
	assert.False(t, ok)
}

func TestRegistryRegisterReplacesExisting(t *testing.T) {
	registry := NewRegistry()
	userID := uuid.New()
	first := newFakeSession(userID, "alice")
	second := newFakeSession(userID, "alice")

	registry.Register(first)
	prev := registry.Register(second)

	assert.NotNil(t, prev)
	assert.Equal(t, first.ID(), prev.ID())
	assert.Equal(t, 1, registry.Len())

	found, _ := registry.Lookup(userID)
	assert.Equal(t, second.ID(), found.ID())
}

func TestRegistryUnregisterIsIdempotent(t *testing.T) {
	registry := NewRegistry()
	userID := uuid.New()
	s := newFakeSession(userID, "alice")

	registry.Register(s)
	assert.True(t, registry.Unregister(userID, s.ID()))
	assert.False(t, registry.Unregister(userID, s.ID()))
	assert.Equal(t, 0, registry.Len())
}

func TestRegistryStaleUnregisterKeepsReplacement(t *testing.T) {
	registry := NewRegistry()
	userID := uuid.New()
	old := newFakeSession(userID, "alice")
	replacement := newFakeSession(userID, "alice")

	registry.Register(old)
	registry.Register(replacement)

	// The old connection's delayed teardown must not evict the new one.
	assert.False(t, registry.Unregister(userID, old.ID()))

	found, ok := registry.Lookup(userID)
	assert.True(t, ok)
	assert.Equal(t, replacement.ID(), found.ID())
}
