package descriptor_test

import (
	"io"
	"testing"

	"github.com/arcana-engine/sierra/descriptor"
	"github.com/arcana-engine/sierra/driver"
	"github.com/arcana-engine/sierra/driver/drivertest"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func materialSignature() descriptor.LayoutSignature {
	var builder descriptor.SignatureBuilder
	builder.AddBinding(driver.DescriptorUniformBuffer, 1)
	builder.AddBinding(driver.DescriptorCombinedImageSampler, 4)
	return builder.Build()
}

func TestIdenticalSignaturesShareOnePool(t *testing.T) {
	device := drivertest.NewFakeDevice()
	allocator, err := descriptor.New(testLogger(), device, descriptor.CreateOptions{
		MaxSetsPerPool: 16,
	})
	require.NoError(t, err)

	sig := materialSignature()

	var sets []descriptor.SetHandle
	for i := 0; i < 16; i++ {
		set, err := allocator.AllocateSet(sig)
		require.NoError(t, err)
		sets = append(sets, set)
	}

	// Sixteen sets of the same signature come from a single pool
	require.Equal(t, 1, device.PoolsCreated)

	for _, set := range sets {
		require.NoError(t, allocator.FreeSet(set))
	}
	require.NoError(t, allocator.Destroy())
	require.Equal(t, 0, device.LivePoolCount())
}

func TestPoolGrowthFactor(t *testing.T) {
	device := drivertest.NewFakeDevice()
	allocator, err := descriptor.New(testLogger(), device, descriptor.CreateOptions{
		MaxSetsPerPool:   2,
		PoolGrowthFactor: 2.0,
	})
	require.NoError(t, err)

	sig := materialSignature()

	for i := 0; i < 3; i++ {
		_, err := allocator.AllocateSet(sig)
		require.NoError(t, err)
	}

	// Two sets fill the first pool; the third forces a pool twice the size
	require.Equal(t, 2, device.PoolsCreated)

	var stats descriptor.Statistics
	allocator.CalculateStatistics(&stats)
	require.Equal(t, descriptor.Statistics{
		PoolCount:      2,
		LiveSetCount:   3,
		FreeSetCount:   3,
		SignatureCount: 1,
	}, stats)
}

func TestAllocFreeRestoresCapacityExactly(t *testing.T) {
	device := drivertest.NewFakeDevice()
	allocator, err := descriptor.New(testLogger(), device, descriptor.CreateOptions{
		MaxSetsPerPool: 2,
	})
	require.NoError(t, err)

	sig := materialSignature()

	first, err := allocator.AllocateSet(sig)
	require.NoError(t, err)
	second, err := allocator.AllocateSet(sig)
	require.NoError(t, err)

	// The pool is full; freeing one set makes room for exactly one more
	require.NoError(t, allocator.FreeSet(first))

	third, err := allocator.AllocateSet(sig)
	require.NoError(t, err)
	require.Equal(t, 1, device.PoolsCreated)

	require.NoError(t, allocator.FreeSet(second))
	require.NoError(t, allocator.FreeSet(third))
	require.NoError(t, allocator.Destroy())
}

func TestDistinctSignaturesGetDistinctPools(t *testing.T) {
	device := drivertest.NewFakeDevice()
	allocator, err := descriptor.New(testLogger(), device, descriptor.CreateOptions{})
	require.NoError(t, err)

	material := materialSignature()

	var builder descriptor.SignatureBuilder
	builder.AddBinding(driver.DescriptorStorageBuffer, 2)
	compute := builder.Build()

	_, err = allocator.AllocateSet(material)
	require.NoError(t, err)
	_, err = allocator.AllocateSet(compute)
	require.NoError(t, err)

	require.Equal(t, 2, device.PoolsCreated)
}

func TestVariableLengthBindingCapacity(t *testing.T) {
	device := drivertest.NewFakeDevice()
	allocator, err := descriptor.New(testLogger(), device, descriptor.CreateOptions{
		MaxSetsPerPool: 4,
	})
	require.NoError(t, err)

	var builder descriptor.SignatureBuilder
	builder.AddBinding(driver.DescriptorUniformBuffer, 1)
	builder.SetVariableBinding(driver.DescriptorSampledImage, 128)
	sig := builder.Build()

	variableType, maxCount, hasVariable := sig.VariableBinding()
	require.True(t, hasVariable)
	require.Equal(t, driver.DescriptorSampledImage, variableType)
	require.Equal(t, uint32(128), maxCount)

	set, err := allocator.AllocateSet(sig)
	require.NoError(t, err)

	// The device pool was sized for the variable dimension's declared maximum
	pool := set.Pool().(*drivertest.FakePool)
	require.Equal(t, uint32(4), pool.Capacities[driver.DescriptorUniformBuffer])
	require.Equal(t, uint32(4*128), pool.Capacities[driver.DescriptorSampledImage])

	require.NoError(t, allocator.FreeSet(set))
	require.NoError(t, allocator.Destroy())
}

func TestEmptyPoolRetiresAfterGracePeriod(t *testing.T) {
	device := drivertest.NewFakeDevice()
	allocator, err := descriptor.New(testLogger(), device, descriptor.CreateOptions{
		RetirementGraceEpochs: 2,
	})
	require.NoError(t, err)

	set, err := allocator.AllocateSet(materialSignature())
	require.NoError(t, err)
	require.NoError(t, allocator.FreeSet(set))

	allocator.AdvanceReclamationPass()
	require.Equal(t, 0, device.PoolsDestroyed)

	allocator.AdvanceReclamationPass()
	require.Equal(t, 1, device.PoolsReset)
	require.Equal(t, 1, device.PoolsDestroyed)
	require.Equal(t, 0, device.LivePoolCount())

	require.NoError(t, allocator.Destroy())
}

func TestDeviceRefusalIsPoolExhausted(t *testing.T) {
	device := drivertest.NewFakeDevice()
	device.PoolError = errors.New("too many pools")
	allocator, err := descriptor.New(testLogger(), device, descriptor.CreateOptions{})
	require.NoError(t, err)

	_, err = allocator.AllocateSet(materialSignature())
	require.ErrorIs(t, err, descriptor.ErrPoolExhausted)
}

func TestEmptySignatureRejected(t *testing.T) {
	device := drivertest.NewFakeDevice()
	allocator, err := descriptor.New(testLogger(), device, descriptor.CreateOptions{})
	require.NoError(t, err)

	_, err = allocator.AllocateSet(descriptor.LayoutSignature{})
	require.Error(t, err)
}

func TestDestroyReportsLiveSets(t *testing.T) {
	device := drivertest.NewFakeDevice()
	allocator, err := descriptor.New(testLogger(), device, descriptor.CreateOptions{})
	require.NoError(t, err)

	_, err = allocator.AllocateSet(materialSignature())
	require.NoError(t, err)

	require.Error(t, allocator.Destroy())
}

func TestBuildStatsString(t *testing.T) {
	device := drivertest.NewFakeDevice()
	allocator, err := descriptor.New(testLogger(), device, descriptor.CreateOptions{})
	require.NoError(t, err)

	set, err := allocator.AllocateSet(materialSignature())
	require.NoError(t, err)

	stats := allocator.BuildStatsString(true)
	require.Contains(t, stats, `"Total"`)
	require.Contains(t, stats, `"LiveSetCount":1`)
	require.Contains(t, stats, `"Signatures"`)

	require.NoError(t, allocator.FreeSet(set))
	require.NoError(t, allocator.Destroy())
}
