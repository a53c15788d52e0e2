package memutils_test

import (
	"testing"

	"github.com/arcana-engine/sierra/memutils"
	"github.com/stretchr/testify/require"
)

func TestAlignUp(t *testing.T) {
	require.Equal(t, 0, memutils.AlignUp(0, 256))
	require.Equal(t, 256, memutils.AlignUp(1, 256))
	require.Equal(t, 256, memutils.AlignUp(256, 256))
	require.Equal(t, 512, memutils.AlignUp(257, 256))
	require.Equal(t, 7, memutils.AlignUp(7, 1))
}

func TestAlignDown(t *testing.T) {
	require.Equal(t, 0, memutils.AlignDown(255, 256))
	require.Equal(t, 256, memutils.AlignDown(256, 256))
	require.Equal(t, 256, memutils.AlignDown(511, 256))
}

func TestCheckPow2(t *testing.T) {
	require.NoError(t, memutils.CheckPow2(1, "value"))
	require.NoError(t, memutils.CheckPow2(64, "value"))

	err := memutils.CheckPow2(48, "value")
	require.ErrorIs(t, err, memutils.PowerOfTwoError)
}

func TestStatisticsAccumulation(t *testing.T) {
	var stats memutils.DetailedStatistics
	stats.Clear()

	stats.AddAllocation(100)
	stats.AddAllocation(300)
	stats.AddUnusedRange(50)

	require.Equal(t, 2, stats.AllocationCount)
	require.Equal(t, 400, stats.AllocationBytes)
	require.Equal(t, 100, stats.AllocationSizeMin)
	require.Equal(t, 300, stats.AllocationSizeMax)
	require.Equal(t, 1, stats.UnusedRangeCount)
	require.Equal(t, 50, stats.UnusedRangeSizeMin)
}
