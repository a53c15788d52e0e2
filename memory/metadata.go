package memory

import (
	"sort"

	"github.com/arcana-engine/sierra/memutils"
	"github.com/dolthub/swiss"
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
)

// rangeHandle maps to one live suballocation within a block's metadata.
type rangeHandle uint64

const nilRangeHandle rangeHandle = 0

type freeRange struct {
	offset int
	size   int
}

type usedRange struct {
	offset   int
	size     int
	userData any
}

// blockMetadata tracks the suballocations carved out of one memory block. Free
// space is kept as an offset-sorted range list; adjacent free ranges are always
// coalesced, so a freed range of size S can satisfy a later request of size
// <= S without growing the block.
type blockMetadata struct {
	size           int
	allocatedBytes int

	// freeRanges is sorted by offset and never contains adjacent entries
	freeRanges []freeRange
	used       *swiss.Map[rangeHandle, usedRange]
	nextHandle rangeHandle
}

func (m *blockMetadata) Init(size int) {
	if size < 1 {
		panic("attempted to initialize block metadata with a non-positive size")
	}

	m.size = size
	m.allocatedBytes = 0
	m.freeRanges = append(m.freeRanges[:0], freeRange{offset: 0, size: size})
	m.used = swiss.NewMap[rangeHandle, usedRange](42)
	m.nextHandle = nilRangeHandle
}

func (m *blockMetadata) Size() int             { return m.size }
func (m *blockMetadata) SumFreeSize() int      { return m.size - m.allocatedBytes }
func (m *blockMetadata) FreeRegionsCount() int { return len(m.freeRanges) }
func (m *blockMetadata) AllocationCount() int  { return m.used.Count() }
func (m *blockMetadata) IsEmpty() bool         { return m.used.Count() == 0 }

// MayFit is a fast check for whether an allocation of the given size and
// alignment could possibly succeed. False positives are acceptable.
func (m *blockMetadata) MayFit(size int, alignment uint) bool {
	if alignment < 1 {
		alignment = 1
	}

	for i := 0; i < len(m.freeRanges); i++ {
		r := m.freeRanges[i]
		alignedOffset := memutils.AlignUp(r.offset, alignment)
		if alignedOffset+size <= r.offset+r.size {
			return true
		}
	}
	return false
}

// Allocate carves a range of the given size and alignment out of the first free
// range that fits. It returns the handle and offset of the new range, or false
// if no free range can satisfy the request.
func (m *blockMetadata) Allocate(size int, alignment uint, userData any) (rangeHandle, int, bool) {
	if size < 1 {
		panic("attempted to allocate a non-positive size from block metadata")
	}
	if alignment < 1 {
		alignment = 1
	}
	memutils.DebugCheckPow2(alignment, "allocation alignment")

	for i := 0; i < len(m.freeRanges); i++ {
		r := m.freeRanges[i]
		alignedOffset := memutils.AlignUp(r.offset, alignment)
		padding := alignedOffset - r.offset
		if padding+size > r.size {
			continue
		}

		m.carve(i, padding, size)

		m.nextHandle++
		handle := m.nextHandle
		m.used.Put(handle, usedRange{
			offset:   alignedOffset,
			size:     size,
			userData: userData,
		})
		m.allocatedBytes += size

		memutils.DebugValidate(m)
		return handle, alignedOffset, true
	}

	return nilRangeHandle, 0, false
}

// carve removes [padding, padding+size) from the free range at index i,
// leaving the leading padding and any trailing remainder free.
func (m *blockMetadata) carve(i, padding, size int) {
	r := m.freeRanges[i]
	trailing := r.size - padding - size

	switch {
	case padding == 0 && trailing == 0:
		m.freeRanges = append(m.freeRanges[:i], m.freeRanges[i+1:]...)
	case padding == 0:
		m.freeRanges[i] = freeRange{offset: r.offset + size, size: trailing}
	case trailing == 0:
		m.freeRanges[i] = freeRange{offset: r.offset, size: padding}
	default:
		m.freeRanges[i] = freeRange{offset: r.offset, size: padding}
		rest := freeRange{offset: r.offset + padding + size, size: trailing}
		m.freeRanges = append(m.freeRanges, freeRange{})
		copy(m.freeRanges[i+2:], m.freeRanges[i+1:])
		m.freeRanges[i+1] = rest
	}
}

// Free returns the range mapped to handle to the free list, coalescing with
// adjacent free ranges.
func (m *blockMetadata) Free(handle rangeHandle) error {
	r, ok := m.used.Get(handle)
	if !ok {
		return errors.Errorf("received a handle %d that was incompatible with this metadata", handle)
	}
	m.used.Delete(handle)
	m.allocatedBytes -= r.size

	m.insertFree(freeRange{offset: r.offset, size: r.size})

	memutils.DebugValidate(m)
	return nil
}

func (m *blockMetadata) insertFree(f freeRange) {
	i := sort.Search(len(m.freeRanges), func(i int) bool {
		return m.freeRanges[i].offset > f.offset
	})

	mergePrev := i > 0 && m.freeRanges[i-1].offset+m.freeRanges[i-1].size == f.offset
	mergeNext := i < len(m.freeRanges) && f.offset+f.size == m.freeRanges[i].offset

	switch {
	case mergePrev && mergeNext:
		m.freeRanges[i-1].size += f.size + m.freeRanges[i].size
		m.freeRanges = append(m.freeRanges[:i], m.freeRanges[i+1:]...)
	case mergePrev:
		m.freeRanges[i-1].size += f.size
	case mergeNext:
		m.freeRanges[i].offset = f.offset
		m.freeRanges[i].size += f.size
	default:
		m.freeRanges = append(m.freeRanges, freeRange{})
		copy(m.freeRanges[i+1:], m.freeRanges[i:])
		m.freeRanges[i] = f
	}
}

// UserData retrieves the userdata stored for a live range.
func (m *blockMetadata) UserData(handle rangeHandle) (any, error) {
	r, ok := m.used.Get(handle)
	if !ok {
		return nil, errors.Errorf("received a handle %d that was incompatible with this metadata", handle)
	}
	return r.userData, nil
}

// Offset retrieves the offset of a live range.
func (m *blockMetadata) Offset(handle rangeHandle) (int, error) {
	r, ok := m.used.Get(handle)
	if !ok {
		return 0, errors.Errorf("received a handle %d that was incompatible with this metadata", handle)
	}
	return r.offset, nil
}

// VisitAllRegions calls the provided callback once for each allocated and free
// region in the block, in ascending offset order.
func (m *blockMetadata) VisitAllRegions(visit func(handle rangeHandle, offset, size int, userData any, free bool) error) error {
	type region struct {
		handle   rangeHandle
		offset   int
		size     int
		userData any
		free     bool
	}

	regions := make([]region, 0, len(m.freeRanges)+m.used.Count())
	for _, f := range m.freeRanges {
		regions = append(regions, region{offset: f.offset, size: f.size, free: true})
	}
	m.used.Iter(func(handle rangeHandle, r usedRange) bool {
		regions = append(regions, region{
			handle:   handle,
			offset:   r.offset,
			size:     r.size,
			userData: r.userData,
		})
		return false
	})

	slices.SortFunc(regions, func(a, b region) bool {
		return a.offset < b.offset
	})

	for _, r := range regions {
		err := visit(r.handle, r.offset, r.size, r.userData, r.free)
		if err != nil {
			return err
		}
	}
	return nil
}

func (m *blockMetadata) AddDetailedStatistics(stats *memutils.DetailedStatistics) {
	stats.BlockCount++
	stats.BlockBytes += m.size

	m.used.Iter(func(_ rangeHandle, r usedRange) bool {
		stats.AddAllocation(r.size)
		return false
	})
	for _, f := range m.freeRanges {
		stats.AddUnusedRange(f.size)
	}
}

func (m *blockMetadata) AddStatistics(stats *memutils.Statistics) {
	stats.BlockCount++
	stats.BlockBytes += m.size
	stats.AllocationCount += m.used.Count()
	stats.AllocationBytes += m.allocatedBytes
}

func (m *blockMetadata) Validate() error {
	coveredFree := 0
	lastEnd := -1
	for _, f := range m.freeRanges {
		if f.size < 1 {
			return errors.Errorf("free range at offset %d has invalid size %d", f.offset, f.size)
		}
		if f.offset <= lastEnd {
			return errors.Errorf("free range at offset %d overlaps or is out of order", f.offset)
		}
		coveredFree += f.size
		lastEnd = f.offset + f.size - 1
	}

	for i := 1; i < len(m.freeRanges); i++ {
		prev := m.freeRanges[i-1]
		if prev.offset+prev.size == m.freeRanges[i].offset {
			return errors.Errorf("free ranges at offsets %d and %d are adjacent but not coalesced", prev.offset, m.freeRanges[i].offset)
		}
	}

	if coveredFree != m.SumFreeSize() {
		return errors.Errorf("free ranges cover %d bytes but %d bytes should be free", coveredFree, m.SumFreeSize())
	}

	usedBytes := 0
	var usedErr error
	m.used.Iter(func(handle rangeHandle, r usedRange) bool {
		if r.size < 1 || r.offset < 0 || r.offset+r.size > m.size {
			usedErr = errors.Errorf("allocation %d at offset %d size %d lies outside the block", handle, r.offset, r.size)
			return true
		}
		usedBytes += r.size
		return false
	})
	if usedErr != nil {
		return usedErr
	}

	if usedBytes != m.allocatedBytes {
		return errors.Errorf("allocations cover %d bytes but %d bytes are recorded as allocated", usedBytes, m.allocatedBytes)
	}
	if m.allocatedBytes > m.size {
		return errors.Errorf("allocated bytes %d exceed block size %d", m.allocatedBytes, m.size)
	}

	return nil
}
