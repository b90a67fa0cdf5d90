package workerpool

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPool_ExecutesTasks(t *testing.T) {
	p := New(4, 100, nil)

	var count atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		assert.True(t, p.TrySubmit(func() {
			defer wg.Done()
			count.Add(1)
		}))
	}
	wg.Wait()
	p.Shutdown()

	assert.Equal(t, int32(50), count.Load())
}

func TestPool_TrySubmitFullQueue(t *testing.T) {
	p := New(1, 1, nil)

	block := make(chan struct{})
	started := make(chan struct{})
	assert.True(t, p.TrySubmit(func() {
		close(started)
		<-block
	}))
	<-started

	assert.True(t, p.TrySubmit(func() {}), "one slot in queue")
	assert.False(t, p.TrySubmit(func() {}), "queue full")

	close(block)
	p.Shutdown()
}

func TestPool_ShutdownDrainsQueue(t *testing.T) {
	p := New(1, 10, nil)

	var count atomic.Int32
	for i := 0; i < 10; i++ {
		p.TrySubmit(func() {
			time.Sleep(time.Millisecond)
			count.Add(1)
		})
	}
	p.Shutdown()

	assert.Equal(t, int32(10), count.Load())
	assert.False(t, p.TrySubmit(func() {}), "closed pool rejects tasks")
	p.Shutdown()
}

func TestPool_RecoversPanic(t *testing.T) {
	p := New(1, 10, nil)

	done := make(chan struct{})
	p.TrySubmit(func() { panic("boom") })
	p.TrySubmit(func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker should survive a panicking task")
	}
	p.Shutdown()
}
