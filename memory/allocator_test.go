package memory_test

import (
	"io"
	"testing"

	"github.com/arcana-engine/sierra/driver"
	"github.com/arcana-engine/sierra/driver/drivertest"
	"github.com/arcana-engine/sierra/memory"
	"github.com/arcana-engine/sierra/memutils"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestAllocateSharesOneBlock(t *testing.T) {
	device := drivertest.NewFakeDevice()
	allocator, err := memory.New(testLogger(), device, memory.CreateOptions{
		GrowthChunkSize: 4096,
	})
	require.NoError(t, err)

	alloc1, err := allocator.Allocate(memory.Request{Size: 1000, Usage: memory.UsageFastDeviceAccess})
	require.NoError(t, err)
	alloc2, err := allocator.Allocate(memory.Request{Size: 1000, Usage: memory.UsageFastDeviceAccess})
	require.NoError(t, err)

	// Both fit in the 4096-byte growth chunk
	require.Equal(t, 1, device.AllocationCount)
	require.Equal(t, alloc1.Memory(), alloc2.Memory())
	require.NotEqual(t, alloc1.Offset(), alloc2.Offset())

	var stats memutils.Statistics
	allocator.CalculateStatistics(&stats)
	require.Equal(t, memutils.Statistics{
		BlockCount:      1,
		AllocationCount: 2,
		BlockBytes:      4096,
		AllocationBytes: 2000,
	}, stats)

	allocator.Free(alloc1)
	allocator.Free(alloc2)
	require.NoError(t, allocator.Destroy())
	require.Equal(t, 0, device.LiveMemoryCount())
}

func TestAllocateGrowsByRequestSize(t *testing.T) {
	device := drivertest.NewFakeDevice()
	allocator, err := memory.New(testLogger(), device, memory.CreateOptions{
		GrowthChunkSize: 4096,
	})
	require.NoError(t, err)

	// Requests larger than the growth chunk get a block of their own size,
	// rounded to the device page
	alloc, err := allocator.Allocate(memory.Request{Size: 10000, Usage: memory.UsageFastDeviceAccess})
	require.NoError(t, err)
	require.Equal(t, 1, device.AllocationCount)

	var stats memutils.Statistics
	allocator.CalculateStatistics(&stats)
	require.Equal(t, 10240, stats.BlockBytes)

	allocator.Free(alloc)
	require.NoError(t, allocator.Destroy())
}

func TestReuseAfterFreeWithoutGrowth(t *testing.T) {
	device := drivertest.NewFakeDevice()
	allocator, err := memory.New(testLogger(), device, memory.CreateOptions{
		GrowthChunkSize: 4096,
	})
	require.NoError(t, err)

	alloc1, err := allocator.Allocate(memory.Request{Size: 2048, Usage: memory.UsageFastDeviceAccess})
	require.NoError(t, err)
	alloc2, err := allocator.Allocate(memory.Request{Size: 2048, Usage: memory.UsageFastDeviceAccess})
	require.NoError(t, err)

	allocator.Free(alloc1)

	alloc3, err := allocator.Allocate(memory.Request{Size: 2048, Usage: memory.UsageFastDeviceAccess})
	require.NoError(t, err)
	require.Equal(t, 1, device.AllocationCount)

	allocator.Free(alloc2)
	allocator.Free(alloc3)
	require.NoError(t, allocator.Destroy())
}

func TestEmptyBlockRetiresAfterGracePeriod(t *testing.T) {
	device := drivertest.NewFakeDevice()
	allocator, err := memory.New(testLogger(), device, memory.CreateOptions{
		GrowthChunkSize:       4096,
		RetirementGraceEpochs: 3,
	})
	require.NoError(t, err)

	alloc, err := allocator.Allocate(memory.Request{Size: 1000, Usage: memory.UsageFastDeviceAccess})
	require.NoError(t, err)
	allocator.Free(alloc)

	// The empty block survives the grace period
	allocator.AdvanceReclamationPass()
	allocator.AdvanceReclamationPass()
	require.Equal(t, 0, device.FreeCount)

	allocator.AdvanceReclamationPass()
	require.Equal(t, 1, device.FreeCount)
	require.Equal(t, 0, device.LiveMemoryCount())

	require.NoError(t, allocator.Destroy())
}

func TestBlockGraceResetsOnReuse(t *testing.T) {
	device := drivertest.NewFakeDevice()
	allocator, err := memory.New(testLogger(), device, memory.CreateOptions{
		GrowthChunkSize:       4096,
		RetirementGraceEpochs: 3,
	})
	require.NoError(t, err)

	alloc, err := allocator.Allocate(memory.Request{Size: 1000, Usage: memory.UsageFastDeviceAccess})
	require.NoError(t, err)
	allocator.Free(alloc)

	allocator.AdvanceReclamationPass()
	allocator.AdvanceReclamationPass()

	// Reusing the block mid-grace keeps it alive
	alloc, err = allocator.Allocate(memory.Request{Size: 1000, Usage: memory.UsageFastDeviceAccess})
	require.NoError(t, err)
	require.Equal(t, 1, device.AllocationCount)
	allocator.Free(alloc)

	allocator.AdvanceReclamationPass()
	require.Equal(t, 0, device.FreeCount)

	allocator.AdvanceReclamationPass()
	allocator.AdvanceReclamationPass()
	require.Equal(t, 1, device.FreeCount)

	require.NoError(t, allocator.Destroy())
}

func TestMemoryKindSelection(t *testing.T) {
	device := drivertest.NewFakeDevice()
	device.Kinds = []driver.MemoryKindProperties{
		{
			Flags:    driver.MemoryKindDeviceLocal,
			HeapSize: 1024 * 1024 * 1024,
		},
		{
			Flags:    driver.MemoryKindHostVisible | driver.MemoryKindHostCoherent,
			HeapSize: 1024 * 1024 * 1024,
		},
		{
			Flags:    driver.MemoryKindHostVisible | driver.MemoryKindHostCached,
			HeapSize: 1024 * 1024 * 1024,
		},
	}
	allocator, err := memory.New(testLogger(), device, memory.CreateOptions{
		GrowthChunkSize: 4096,
	})
	require.NoError(t, err)

	fast, err := allocator.Allocate(memory.Request{Size: 100, Usage: memory.UsageFastDeviceAccess})
	require.NoError(t, err)
	require.Equal(t, 0, fast.MemoryKindIndex())

	download, err := allocator.Allocate(memory.Request{Size: 100, Usage: memory.UsageDownloadFromDevice})
	require.NoError(t, err)
	require.Equal(t, 2, download.MemoryKindIndex())

	upload, err := allocator.Allocate(memory.Request{Size: 100, Usage: memory.UsageUploadToDevice})
	require.NoError(t, err)
	require.NotEqual(t, 0, upload.MemoryKindIndex())

	allocator.Free(fast)
	allocator.Free(download)
	allocator.Free(upload)
	require.NoError(t, allocator.Destroy())
}

func TestNoCompatibleMemoryType(t *testing.T) {
	device := drivertest.NewFakeDevice()
	device.Kinds = []driver.MemoryKindProperties{
		{
			Flags:    driver.MemoryKindDeviceLocal,
			HeapSize: 1024 * 1024 * 1024,
		},
	}
	allocator, err := memory.New(testLogger(), device, memory.CreateOptions{})
	require.NoError(t, err)

	// Upload requires host-visible memory, which this device does not expose
	_, err = allocator.Allocate(memory.Request{Size: 100, Usage: memory.UsageUploadToDevice})
	require.ErrorIs(t, err, memory.ErrNoCompatibleMemoryType)

	require.NoError(t, allocator.Destroy())
}

func TestOutOfDeviceMemory(t *testing.T) {
	device := drivertest.NewFakeDevice()
	allocator, err := memory.New(testLogger(), device, memory.CreateOptions{})
	require.NoError(t, err)

	device.AllocationError = errors.New("device out of memory")

	_, err = allocator.Allocate(memory.Request{Size: 100, Usage: memory.UsageFastDeviceAccess})
	require.ErrorIs(t, err, memory.ErrOutOfDeviceMemory)

	require.NoError(t, allocator.Destroy())
}

func TestDestroyReportsUnreleasedAllocations(t *testing.T) {
	device := drivertest.NewFakeDevice()
	allocator, err := memory.New(testLogger(), device, memory.CreateOptions{})
	require.NoError(t, err)

	_, err = allocator.Allocate(memory.Request{Size: 100, Usage: memory.UsageFastDeviceAccess})
	require.NoError(t, err)

	require.Error(t, allocator.Destroy())
}

func TestBuildStatsString(t *testing.T) {
	device := drivertest.NewFakeDevice()
	allocator, err := memory.New(testLogger(), device, memory.CreateOptions{
		GrowthChunkSize: 4096,
	})
	require.NoError(t, err)

	alloc, err := allocator.Allocate(memory.Request{Size: 1000, Usage: memory.UsageFastDeviceAccess})
	require.NoError(t, err)

	stats := allocator.BuildStatsString(true)
	require.Contains(t, stats, `"Total"`)
	require.Contains(t, stats, `"AllocationCount":1`)
	require.Contains(t, stats, `"MemoryKinds"`)

	allocator.Free(alloc)
	require.NoError(t, allocator.Destroy())
}
