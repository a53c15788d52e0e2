package resource_test

import (
	"io"
	"testing"

	"github.com/arcana-engine/sierra/resource"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestReleaseWaitsForLastUsedEpoch(t *testing.T) {
	registry := resource.NewRegistry(testLogger(), true)

	destroyed := false
	handle := registry.Register(resource.KindBuffer, 0, func() {
		destroyed = true
	})

	registry.MarkUsed(handle, 3)
	registry.Release(handle)

	require.False(t, destroyed)
	require.Equal(t, resource.StatePendingFree, registry.State(handle))

	// Completing an earlier epoch is not enough
	registry.OnEpochComplete(2)
	require.False(t, destroyed)

	registry.OnEpochComplete(3)
	require.True(t, destroyed)
	require.Equal(t, resource.StateFreed, registry.State(handle))
}

func TestDestructorsRunInAscendingEpochOrder(t *testing.T) {
	registry := resource.NewRegistry(testLogger(), true)

	var order []int
	late := registry.Register(resource.KindBuffer, 0, func() {
		order = append(order, 2)
	})
	early := registry.Register(resource.KindImage, 0, func() {
		order = append(order, 1)
	})

	registry.MarkUsed(late, 5)
	registry.MarkUsed(early, 2)

	// Released in the opposite order of their epochs
	registry.Release(late)
	registry.Release(early)

	registry.OnEpochComplete(10)
	require.Equal(t, []int{1, 2}, order)
}

func TestRetainDefersReclamation(t *testing.T) {
	registry := resource.NewRegistry(testLogger(), true)

	destroyed := false
	handle := registry.Register(resource.KindBuffer, 0, func() {
		destroyed = true
	})

	registry.Retain(handle)
	registry.Release(handle)
	registry.OnEpochComplete(100)
	require.False(t, destroyed)
	require.Equal(t, resource.StateLive, registry.State(handle))

	registry.Release(handle)
	require.True(t, destroyed)
}

func TestReleaseAfterEpochAlreadyComplete(t *testing.T) {
	registry := resource.NewRegistry(testLogger(), true)

	registry.OnEpochComplete(7)

	destroyed := false
	handle := registry.Register(resource.KindBuffer, 0, func() {
		destroyed = true
	})
	registry.MarkUsed(handle, 5)

	// The last-used epoch is already confirmed, so the release reclaims
	// without waiting for another completion report
	registry.Release(handle)
	require.True(t, destroyed)
}

func TestMarkUsedIsMonotonic(t *testing.T) {
	registry := resource.NewRegistry(testLogger(), true)

	destroyed := false
	handle := registry.Register(resource.KindBuffer, 0, func() {
		destroyed = true
	})

	registry.MarkUsed(handle, 8)
	registry.MarkUsed(handle, 3)
	registry.Release(handle)

	registry.OnEpochComplete(3)
	require.False(t, destroyed)

	registry.OnEpochComplete(8)
	require.True(t, destroyed)
}

func TestUseAfterFreeIsIgnoredInRelease(t *testing.T) {
	registry := resource.NewRegistry(testLogger(), true)

	handle := registry.Register(resource.KindBuffer, 0, func() {})
	registry.Release(handle)
	registry.OnEpochComplete(1)
	require.Equal(t, resource.StateFreed, registry.State(handle))

	// Operations on the dead handle log and do nothing
	registry.Retain(handle)
	registry.MarkUsed(handle, 5)
	registry.Release(handle)
	require.Equal(t, resource.StateFreed, registry.State(handle))
}

func TestForceReclaimAll(t *testing.T) {
	registry := resource.NewRegistry(testLogger(), true)

	var order []int
	for i := 1; i <= 3; i++ {
		epoch := resource.Epoch(i * 10)
		index := i
		handle := registry.Register(resource.KindBuffer, 0, func() {
			order = append(order, index)
		})
		registry.MarkUsed(handle, epoch)
		registry.Release(handle)
	}

	require.Equal(t, 3, registry.LiveCount(resource.KindBuffer))
	registry.ForceReclaimAll()
	require.Equal(t, []int{1, 2, 3}, order)
	require.Equal(t, 0, registry.LiveCount(resource.KindBuffer))
}

func TestSameEpochReclaimsInReleaseOrder(t *testing.T) {
	registry := resource.NewRegistry(testLogger(), true)

	var order []int
	for i := 1; i <= 3; i++ {
		index := i
		handle := registry.Register(resource.KindBuffer, 0, func() {
			order = append(order, index)
		})
		registry.MarkUsed(handle, 4)
		registry.Release(handle)
	}

	registry.OnEpochComplete(4)
	require.Equal(t, []int{1, 2, 3}, order)
}
