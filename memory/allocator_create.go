package memory

import (
	"github.com/arcana-engine/sierra/driver"
	"github.com/arcana-engine/sierra/memutils"
	"github.com/cockroachdb/errors"
	"golang.org/x/exp/slog"
)

// CreateFlags indicate specific allocator behaviors to activate or deactivate
type CreateFlags int32

const (
	// AllocatorCreateExternallySynchronized ensures that this allocator and all
	// objects created from it will not be synchronized internally. The consumer
	// must guarantee they are used from only one thread at a time or are
	// synchronized by some other mechanism, but performance may improve because
	// internal mutexes are not used.
	AllocatorCreateExternallySynchronized CreateFlags = 1 << iota
)

const (
	// defaultGrowthChunkSize is the value used as the GrowthChunkSize when none
	// is provided via CreateOptions. It is equal to 64Mb.
	defaultGrowthChunkSize int = 64 * 1024 * 1024

	// smallHeapMaxSize is the heap size under which the growth chunk is derived
	// from the heap size instead of the configured chunk. It is equal to 1Gb.
	smallHeapMaxSize int = 1024 * 1024 * 1024

	// defaultRetirementGraceEpochs is the number of reclamation passes an empty
	// block survives before being released back to the device
	defaultRetirementGraceEpochs uint64 = 8
)

// CreateOptions contains optional settings when creating an Allocator
type CreateOptions struct {
	// Flags indicates specific allocator behaviors to activate or deactivate
	Flags CreateFlags

	// GrowthChunkSize is the block size used when growing a memory kind's block
	// list. Requests larger than this get a block of their own size. Leaving it
	// 0 applies the default of 64Mb, reduced for small heaps.
	GrowthChunkSize int

	// RetirementGraceEpochs is the number of reclamation passes a fully empty
	// block is retained before being released back to the device. Leaving it 0
	// applies the default of 8.
	RetirementGraceEpochs uint64
}

// New creates a new Allocator serving the provided device.
//
// options - Optional parameters: it is valid to leave all the fields blank
func New(logger *slog.Logger, device driver.Device, options CreateOptions) (*Allocator, error) {
	if device == nil {
		return nil, errors.New("attempted to create an allocator with a nil device")
	}

	pageAlignment := device.PageAlignment()
	if pageAlignment < 1 {
		pageAlignment = 1
	}
	err := memutils.CheckPow2(pageAlignment, "device pageAlignment")
	if err != nil {
		return nil, err
	}

	useMutex := options.Flags&AllocatorCreateExternallySynchronized == 0

	growthChunk := options.GrowthChunkSize
	if growthChunk == 0 {
		growthChunk = defaultGrowthChunkSize
	}

	graceEpochs := options.RetirementGraceEpochs
	if graceEpochs == 0 {
		graceEpochs = defaultRetirementGraceEpochs
	}

	allocator := &Allocator{
		useMutex: useMutex,
		logger:   logger,
		device:   device,
	}

	kindCount := device.MemoryKindCount()
	if kindCount < 1 {
		return nil, errors.New("the provided device exposes no memory kinds")
	}

	allocator.kindLists = make([]*kindBlockList, kindCount)
	for kindIndex := 0; kindIndex < kindCount; kindIndex++ {
		chunk := growthChunk

		// Small heaps get proportionally smaller blocks
		heapSize := device.MemoryKindProperties(kindIndex).HeapSize
		if heapSize > 0 && heapSize <= smallHeapMaxSize && chunk > heapSize/8 {
			chunk = memutils.AlignUp(heapSize/8, pageAlignment)
		}

		allocator.kindLists[kindIndex] = &kindBlockList{}
		allocator.kindLists[kindIndex].Init(
			useMutex,
			logger,
			device,
			kindIndex,
			chunk,
			pageAlignment,
			graceEpochs,
		)
	}

	return allocator, nil
}
