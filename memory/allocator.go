package memory

import (
	"context"
	"fmt"
	"math/bits"

	"github.com/arcana-engine/sierra/driver"
	"github.com/arcana-engine/sierra/memutils"
	cerrors "github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"golang.org/x/exp/slices"
	"golang.org/x/exp/slog"
)

// Allocator sub-allocates device memory blocks to individual resource
// requests. One Allocator serves one device context; blocks are grouped into
// per-memory-kind lists, each independently locked.
type Allocator struct {
	useMutex bool
	logger   *slog.Logger
	device   driver.Device

	kindLists []*kindBlockList
}

// Allocate obtains a sub-range of device memory satisfying the request. It
// returns ErrNoCompatibleMemoryType when no memory kind on the device matches
// the request's constraints, and ErrOutOfDeviceMemory when every compatible
// kind refused the request.
//
// This call is synchronous and may block on the underlying device allocation
// when a new block is needed.
func (a *Allocator) Allocate(req Request) (*Allocation, error) {
	if req.Size < 1 {
		panic(fmt.Sprintf("attempted to allocate a non-positive size %d", req.Size))
	}
	if req.Alignment > 0 {
		err := memutils.CheckPow2(req.Alignment, "request alignment")
		if err != nil {
			return nil, err
		}
	}

	candidates := a.rankMemoryKinds(&req)
	if len(candidates) == 0 {
		return nil, cerrors.Wrapf(ErrNoCompatibleMemoryType,
			"no memory kind matches usage %s with required flags %s", req.Usage.String(), req.RequiredKinds.String())
	}

	alloc := &Allocation{}
	var lastErr error
	for _, kindIndex := range candidates {
		lastErr = a.kindLists[kindIndex].Allocate(req.Size, req.Alignment, nil, alloc)
		if lastErr == nil {
			a.logger.LogAttrs(context.Background(), slog.LevelDebug, "Allocator::Allocate succeeded",
				slog.Int("size", req.Size),
				slog.Int("kindIndex", kindIndex))
			return alloc, nil
		}
	}

	return nil, lastErr
}

// rankMemoryKinds returns the indices of all compatible memory kinds, best
// match first.
func (a *Allocator) rankMemoryKinds(req *Request) []int {
	required, preferred, avoided := kindPreferences(req)

	type rankedKind struct {
		index int
		score int
	}

	ranked := make([]rankedKind, 0, len(a.kindLists))
	for kindIndex := range a.kindLists {
		flags := a.device.MemoryKindProperties(kindIndex).Flags
		if flags&required != required {
			continue
		}

		score := bits.OnesCount32(uint32(flags&preferred))*2 - bits.OnesCount32(uint32(flags&avoided))
		ranked = append(ranked, rankedKind{index: kindIndex, score: score})
	}

	slices.SortStableFunc(ranked, func(x, y rankedKind) bool {
		return x.score > y.score
	})

	out := make([]int, len(ranked))
	for i, r := range ranked {
		out[i] = r.index
	}
	return out
}

// Free returns the allocation's range to its block's free list, coalescing
// adjacent free ranges. Freeing an allocation twice is a contract violation
// and panics.
func (a *Allocator) Free(alloc *Allocation) {
	if alloc == nil {
		panic("attempted to free a nil allocation")
	}

	a.kindLists[alloc.kindIndex].Free(alloc)
}

// AdvanceReclamationPass moves the empty-block retirement clock forward one
// pass for every memory kind. The owning context calls this once per completed
// epoch; blocks that have been fully empty for the configured grace period are
// released back to the device.
func (a *Allocator) AdvanceReclamationPass() {
	for _, list := range a.kindLists {
		list.AdvancePass()
	}
}

// CalculateStatistics sums basic allocation totals across all memory kinds.
func (a *Allocator) CalculateStatistics(stats *memutils.Statistics) {
	stats.Clear()
	for _, list := range a.kindLists {
		list.AddStatistics(stats)
	}
}

// CalculateDetailedStatistics sums detailed allocation and free-range totals
// across all memory kinds. This is more expensive than CalculateStatistics.
func (a *Allocator) CalculateDetailedStatistics(stats *memutils.DetailedStatistics) {
	stats.Clear()
	for _, list := range a.kindLists {
		list.AddDetailedStatistics(stats)
	}
}

// BuildStatsString writes a JSON dump of allocator state, optionally including
// a block-by-block map of every suballocation and free range.
func (a *Allocator) BuildStatsString(detailed bool) string {
	writer := jwriter.NewWriter()
	rootObj := writer.Object()

	var stats memutils.DetailedStatistics
	a.CalculateDetailedStatistics(&stats)

	totalObj := rootObj.Name("Total").Object()
	totalObj.Name("BlockCount").Int(stats.BlockCount)
	totalObj.Name("BlockBytes").Int(stats.BlockBytes)
	totalObj.Name("AllocationCount").Int(stats.AllocationCount)
	totalObj.Name("AllocationBytes").Int(stats.AllocationBytes)
	totalObj.Name("UnusedRangeCount").Int(stats.UnusedRangeCount)
	totalObj.End()

	if detailed {
		kindsObj := rootObj.Name("MemoryKinds").Object()
		for kindIndex, list := range a.kindLists {
			kindObj := kindsObj.Name(fmt.Sprintf("Kind %d", kindIndex)).Object()
			kindObj.Name("Flags").String(a.device.MemoryKindProperties(kindIndex).Flags.String())

			blocksObj := kindObj.Name("Blocks").Object()
			list.PrintDetailedMap(blocksObj)
			blocksObj.End()

			kindObj.End()
		}
		kindsObj.End()
	}

	rootObj.End()
	return string(writer.Bytes())
}

// Destroy tears the allocator down, returning every block to the device. Any
// live allocation is logged as unreleased memory and turns the teardown into
// an error; callers must drain the reclamation queue behind a device-idle
// barrier first.
func (a *Allocator) Destroy() error {
	a.logger.Debug("Allocator::Destroy")

	for _, list := range a.kindLists {
		err := list.Destroy()
		if err != nil {
			return err
		}
	}
	return nil
}
