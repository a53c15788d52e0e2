package memory_test

import (
	"testing"

	"github.com/arcana-engine/sierra/driver"
	mock_driver "github.com/arcana-engine/sierra/driver/mocks"
	"github.com/arcana-engine/sierra/memory"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestAllocatorDeviceCalls(t *testing.T) {
	ctrl := gomock.NewController(t)
	device := mock_driver.NewMockDevice(ctrl)

	device.EXPECT().PageAlignment().Return(uint(256)).AnyTimes()
	device.EXPECT().MemoryKindCount().Return(1).AnyTimes()
	device.EXPECT().MemoryKindProperties(0).Return(driver.MemoryKindProperties{
		Flags:    driver.MemoryKindDeviceLocal,
		HeapSize: 1024 * 1024 * 1024,
	}).AnyTimes()

	allocator, err := memory.New(testLogger(), device, memory.CreateOptions{
		GrowthChunkSize: 4096,
	})
	require.NoError(t, err)

	// Two allocations fit one growth chunk, so the device sees one call
	device.EXPECT().AllocateMemory(4096, 0).Return(driver.MemoryHandle("block-0"), nil)

	alloc1, err := allocator.Allocate(memory.Request{Size: 1000, Usage: memory.UsageFastDeviceAccess})
	require.NoError(t, err)
	alloc2, err := allocator.Allocate(memory.Request{Size: 1000, Usage: memory.UsageFastDeviceAccess})
	require.NoError(t, err)
	require.Equal(t, driver.MemoryHandle("block-0"), alloc1.Memory())

	allocator.Free(alloc1)
	allocator.Free(alloc2)

	device.EXPECT().FreeMemory(driver.MemoryHandle("block-0")).Return(nil)
	require.NoError(t, allocator.Destroy())
}
