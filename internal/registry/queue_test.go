package registry_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dishankoza/svcsync/internal/registry"
)

func TestQueueFIFO(t *testing.T) {
	q := registry.NewQueue(4)
	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, q.TrySubmit(registry.Service{Name: name}))
	}
	assert.Equal(t, 3, q.Len())

	for _, want := range []string{"a", "b", "c"} {
		svc, err := q.TryReceive()
		require.NoError(t, err)
		assert.Equal(t, want, svc.Name)
	}
	_, err := q.TryReceive()
	assert.ErrorIs(t, err, registry.ErrQueueEmpty)
}

func TestQueueFullDrops(t *testing.T) {
	q := registry.NewQueue(2)
	require.NoError(t, q.TrySubmit(registry.Service{Name: "a"}))
	require.NoError(t, q.TrySubmit(registry.Service{Name: "b"}))

	err := q.TrySubmit(registry.Service{Name: "c"})
	assert.ErrorIs(t, err, registry.ErrQueueFull)
	assert.Equal(t, 2, q.Len())
}

func TestQueueDefaultCapacity(t *testing.T) {
	assert.Equal(t, registry.DefaultQueueCapacity, registry.NewQueue(0).Cap())
}

func TestQueueCloseDrainsThenReports(t *testing.T) {
	q := registry.NewQueue(2)
	require.NoError(t, q.TrySubmit(registry.Service{Name: "a"}))
	q.Close()
	q.Close()

	assert.ErrorIs(t, q.TrySubmit(registry.Service{Name: "b"}), registry.ErrQueueClosed)

	svc, ok := q.Receive()
	require.True(t, ok)
	assert.Equal(t, "a", svc.Name)

	_, ok = q.Receive()
	assert.False(t, ok)
	_, err := q.TryReceive()
	assert.ErrorIs(t, err, registry.ErrQueueClosed)
}

func TestQueueReceiveWakesOnSubmit(t *testing.T) {
	q := registry.NewQueue(1)
	got := make(chan registry.Service, 1)
	go func() {
		svc, _ := q.Receive()
		got <- svc
	}()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, q.TrySubmit(registry.Service{Name: "late"}))

	select {
	case svc := <-got:
		assert.Equal(t, "late", svc.Name)
	case <-time.After(2 * time.Second):
		t.Fatal("receiver was not woken")
	}
}

func TestQueueReceiveWakesOnClose(t *testing.T) {
	q := registry.NewQueue(1)
	done := make(chan bool, 1)
	go func() {
		_, ok := q.Receive()
		done <- ok
	}()

	time.Sleep(10 * time.Millisecond)
	q.Close()

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("receiver was not woken by close")
	}
}

func TestQueueConcurrentProducers(t *testing.T) {
	q := registry.NewQueue(1000)
	var wg sync.WaitGroup
	for w := 0; w < 10; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				_ = q.TrySubmit(registry.Service{Name: "svc"})
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1000, q.Len())
}

func TestQueueStoresCopies(t *testing.T) {
	q := registry.NewQueue(1)
	svc := registry.NewService("svc-a", []string{"10.0.0.1"})
	require.NoError(t, q.TrySubmit(svc))
	svc.Backends[0].IP = "mutated"

	got, err := q.TryReceive()
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1", got.Backends[0].IP)
}
