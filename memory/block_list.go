package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/arcana-engine/sierra/driver"
	"github.com/arcana-engine/sierra/internal/utils"
	"github.com/arcana-engine/sierra/memutils"
	cerrors "github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"golang.org/x/exp/slog"
)

var blockPool = sync.Pool{
	New: func() any {
		return &memoryBlock{}
	},
}

// kindBlockList owns every memory block of one memory kind. Each list carries
// its own mutex so that allocations in unrelated memory kinds do not serialize
// each other.
type kindBlockList struct {
	device driver.Device
	logger *slog.Logger

	kindIndex     int
	growthChunk   int
	pageAlignment uint
	graceEpochs   uint64

	mutex       utils.OptionalRWMutex
	blocks      []*memoryBlock
	nextBlockID int

	// currentPass advances once per completed reclamation pass and drives
	// empty-block retirement
	currentPass uint64
}

func (l *kindBlockList) Init(
	useMutex bool,
	logger *slog.Logger,
	device driver.Device,
	kindIndex int,
	growthChunk int,
	pageAlignment uint,
	graceEpochs uint64,
) {
	l.device = device
	l.logger = logger
	l.kindIndex = kindIndex
	l.growthChunk = growthChunk
	l.pageAlignment = pageAlignment
	l.graceEpochs = graceEpochs
	l.mutex = utils.OptionalRWMutex{
		UseMutex: useMutex,
		Mutex:    sync.RWMutex{},
	}
}

func (l *kindBlockList) BlockCount() int {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	return len(l.blocks)
}

func (l *kindBlockList) HasNoAllocations() bool {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	for blockIndex := 0; blockIndex < len(l.blocks); blockIndex++ {
		if !l.blocks[blockIndex].metadata.IsEmpty() {
			return false
		}
	}

	return true
}

// Allocate places a new suballocation into an existing block of this kind, or
// grows the list by one block when no existing block can satisfy the request.
func (l *kindBlockList) Allocate(size int, alignment uint, userData any, outAlloc *Allocation) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	// Prefer blocks with the smallest amount of free space by iterating forward
	for blockIndex := 0; blockIndex < len(l.blocks); blockIndex++ {
		currentBlock := l.blocks[blockIndex]
		if currentBlock == nil {
			panic(fmt.Sprintf("a memory block at index %d is unexpectedly nil", blockIndex))
		}

		if l.allocFromBlock(currentBlock, size, alignment, userData, outAlloc) {
			l.logger.LogAttrs(context.Background(), slog.LevelDebug, "    Returned from existing block",
				slog.Int("block.id", currentBlock.id))
			l.incrementallySortBlocks()
			return nil
		}
	}

	// No existing block can hold the request
	block, err := l.createBlock(size)
	if err != nil {
		return err
	}

	if !l.allocFromBlock(block, size, alignment, userData, outAlloc) {
		panic(fmt.Sprintf("created a new block of size %d to hold an allocation of size %d but the allocation still failed", block.metadata.Size(), size))
	}

	l.logger.LogAttrs(context.Background(), slog.LevelDebug, "    Returned from new block",
		slog.Int("block.id", block.id))
	return nil
}

func (l *kindBlockList) allocFromBlock(block *memoryBlock, size int, alignment uint, userData any, outAlloc *Allocation) bool {
	if !block.metadata.MayFit(size, alignment) {
		return false
	}

	handle, offset, ok := block.metadata.Allocate(size, alignment, outAlloc)
	if !ok {
		return false
	}

	block.emptySincePass = neverEmpty
	outAlloc.init(block, handle, offset, size, alignment, l.kindIndex)
	outAlloc.SetUserData(userData)
	return true
}

// createBlock allocates new device memory sized to max(request, growth chunk)
// rounded up to the device page alignment.
func (l *kindBlockList) createBlock(requestSize int) (*memoryBlock, error) {
	blockSize := requestSize
	if blockSize < l.growthChunk {
		blockSize = l.growthChunk
	}
	blockSize = memutils.AlignUp(blockSize, l.pageAlignment)

	memory, err := l.device.AllocateMemory(blockSize, l.kindIndex)
	if err != nil {
		return nil, cerrors.Wrapf(ErrOutOfDeviceMemory, "device refused a block of %d bytes in memory kind %d: %v", blockSize, l.kindIndex, err)
	}

	block := blockPool.Get().(*memoryBlock)
	block.Init(l.logger, l.kindIndex, memory, blockSize, l.nextBlockID, l.currentPass)
	l.nextBlockID++

	l.blocks = append(l.blocks, block)
	return block, nil
}

// Free returns an allocation's range to its block. Fully empty blocks are kept
// for the retirement grace period rather than released eagerly.
func (l *kindBlockList) Free(alloc *Allocation) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	block := alloc.block
	if block == nil {
		panic("attempted to free an allocation that was already freed")
	}

	err := block.metadata.Free(alloc.handle)
	if err != nil {
		panic(fmt.Sprintf("unexpected error when freeing allocation with handle %+v in metadata: %+v", alloc.handle, err))
	}
	memutils.DebugValidate(block)

	if block.metadata.IsEmpty() {
		block.emptySincePass = l.currentPass
	}

	alloc.block = nil
	alloc.handle = nilRangeHandle

	l.logger.LogAttrs(context.Background(), slog.LevelDebug, "    Freed from block",
		slog.Int("MemoryKindIndex", l.kindIndex))

	l.incrementallySortBlocks()
}

// AdvancePass moves the retirement clock forward and releases blocks that have
// sat fully empty for the grace period.
func (l *kindBlockList) AdvancePass() {
	var retired []*memoryBlock

	l.mutex.Lock()
	l.currentPass++

	for blockIndex := len(l.blocks) - 1; blockIndex >= 0; blockIndex-- {
		block := l.blocks[blockIndex]
		if block.emptySincePass == neverEmpty {
			continue
		}
		if l.currentPass-block.emptySincePass < l.graceEpochs {
			continue
		}

		retired = append(retired, block)
		l.blocks = append(l.blocks[:blockIndex], l.blocks[blockIndex+1:]...)
	}
	l.mutex.Unlock()

	for _, block := range retired {
		l.logger.LogAttrs(context.Background(), slog.LevelDebug, "    Retired empty block",
			slog.Int("block.id", block.id),
			slog.Int("MemoryKindIndex", l.kindIndex))
		err := block.Destroy(l.device)
		if err != nil {
			panic(fmt.Sprintf("unexpected failure when destroying an empty memory block: %+v", err))
		}
		blockPool.Put(block)
	}
}

func (l *kindBlockList) incrementallySortBlocks() {
	// Bubble one step toward ascending free size
	for blockIndex := 1; blockIndex < len(l.blocks); blockIndex++ {
		if l.blocks[blockIndex-1].metadata.SumFreeSize() > l.blocks[blockIndex].metadata.SumFreeSize() {
			l.blocks[blockIndex-1], l.blocks[blockIndex] = l.blocks[blockIndex], l.blocks[blockIndex-1]
			return
		}
	}
}

func (l *kindBlockList) AddStatistics(stats *memutils.Statistics) {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	for blockIndex := 0; blockIndex < len(l.blocks); blockIndex++ {
		block := l.blocks[blockIndex]
		if block == nil {
			panic(fmt.Sprintf("failed to take statistics of nil block at index %d", blockIndex))
		}
		block.metadata.AddStatistics(stats)
	}
}

func (l *kindBlockList) AddDetailedStatistics(stats *memutils.DetailedStatistics) {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	for blockIndex := 0; blockIndex < len(l.blocks); blockIndex++ {
		block := l.blocks[blockIndex]
		if block == nil {
			panic(fmt.Sprintf("failed to take statistics of nil block at index %d", blockIndex))
		}
		block.metadata.AddDetailedStatistics(stats)
	}
}

func (l *kindBlockList) PrintDetailedMap(json jwriter.ObjectState) {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	for i := 0; i < len(l.blocks); i++ {
		block := l.blocks[i]

		blockObj := json.Name(fmt.Sprintf("%d", block.id)).Object()
		blockObj.Name("TotalBytes").Int(block.metadata.Size())
		blockObj.Name("UnusedBytes").Int(block.metadata.SumFreeSize())
		blockObj.Name("Allocations").Int(block.metadata.AllocationCount())
		blockObj.Name("UnusedRanges").Int(block.metadata.FreeRegionsCount())

		l.printDetailedMapRegions(&block.metadata, blockObj)

		blockObj.End()
	}
}

func (l *kindBlockList) printDetailedMapRegions(md *blockMetadata, json jwriter.ObjectState) {
	arrayState := json.Name("Suballocations").Array()
	defer arrayState.End()

	_ = md.VisitAllRegions(
		func(handle rangeHandle, offset int, size int, userData any, free bool) error {
			obj := arrayState.Object()
			defer obj.End()

			if free {
				obj.Name("Offset").Int(offset)
				obj.Name("Type").String("Free")
				obj.Name("Size").Int(size)
				return nil
			}

			var alloc *Allocation
			var isAllocation bool
			if userData != nil {
				alloc, isAllocation = userData.(*Allocation)
			}

			if isAllocation && alloc != nil {
				alloc.printParameters(&obj)
			} else {
				obj.Name("Offset").Int(offset)
				obj.Name("Size").Int(size)
				if userData != nil {
					obj.Name("CustomData").String(fmt.Sprintf("%+v", userData))
				}
			}

			return nil
		})
}

// Destroy frees every block of this kind back to the device. It fails if any
// block still has live allocations, after logging them.
func (l *kindBlockList) Destroy() error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	for _, block := range l.blocks {
		err := block.Destroy(l.device)
		if err != nil {
			return err
		}
		blockPool.Put(block)
	}
	l.blocks = nil
	return nil
}
