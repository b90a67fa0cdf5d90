package room

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_OpenGetRemove(t *testing.T) {
	h := newHarness(t, []string{"alice"})

	r, ok := h.manager.Get("ROOM1")
	require.True(t, ok)
	assert.Same(t, h.room, r)
	assert.Same(t, h.room, h.manager.Open("ROOM1", "someone"), "open is idempotent")
	assert.Equal(t, 1, h.manager.Count())

	r.Stop("test")
	<-r.Done()

	_, ok = h.manager.Get("ROOM1")
	assert.False(t, ok)
	assert.Equal(t, 0, h.manager.Count())
}

func TestManager_EvictInactive(t *testing.T) {
	h := newHarness(t, []string{"alice"})

	assert.Equal(t, 0, h.manager.evictInactive(time.Now()))
	assert.Equal(t, 1, h.manager.evictInactive(time.Now().Add(2*time.Hour)))

	select {
	case <-h.room.Done():
	case <-time.After(time.Second):
		t.Fatal("inactive room should be stopped")
	}
}

func TestManager_Shutdown(t *testing.T) {
	h := newHarness(t, []string{"alice"})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, h.manager.Shutdown(ctx))

	select {
	case <-h.room.Done():
	default:
		t.Fatal("room should be stopped on shutdown")
	}
	// 重复关闭安全
	require.NoError(t, h.manager.Shutdown(ctx))
}
