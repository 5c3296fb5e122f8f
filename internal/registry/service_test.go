package registry_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dishankoza/svcsync/internal/registry"
)

func TestBackendObserveRunningMean(t *testing.T) {
	b := registry.NewBackend("10.0.0.1")
	b.Begin()
	b.Begin()

	b.Observe(10 * time.Millisecond)
	assert.Equal(t, uint64(1), b.Outstanding)
	assert.Equal(t, uint64(1), b.Total)
	assert.Equal(t, 10*time.Millisecond, b.MeanRTT, "first sample becomes the mean")

	b.Observe(30 * time.Millisecond)
	assert.Equal(t, uint64(0), b.Outstanding)
	assert.Equal(t, 30*time.Millisecond, b.LastRTT)
	assert.Equal(t, 20*time.Millisecond, b.MeanRTT)

	b.Observe(20 * time.Millisecond)
	assert.Equal(t, uint64(0), b.Outstanding, "outstanding never underflows")
	assert.Equal(t, 20*time.Millisecond, b.MeanRTT)
}

func TestNewService(t *testing.T) {
	svc := registry.NewService("svc-a", []string{"10.0.0.1", "10.0.0.2"})

	assert.Equal(t, "svc-a", svc.Name)
	assert.True(t, svc.Version.IsZero())
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, svc.IPs())
	assert.False(t, svc.IsSentinel())
	assert.True(t, registry.Service{}.IsSentinel())
}

func TestServiceCloneIsDeep(t *testing.T) {
	svc := registry.NewService("svc-a", []string{"10.0.0.1"})
	c := svc.Clone()
	c.Backends[0].IP = "10.9.9.9"

	assert.Equal(t, "10.0.0.1", svc.Backends[0].IP)
}
