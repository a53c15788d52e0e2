package memory

import (
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
)

// Allocation is a sub-range of one memory block, exclusively owned by the
// resource it was allocated for until freed. Allocations are created by
// Allocator.Allocate and returned with Allocator.Free; they are never shared
// between two live resources.
type Allocation struct {
	block  *memoryBlock
	handle rangeHandle

	offset    int
	size      int
	alignment uint
	kindIndex int

	name     string
	userData any
}

func (a *Allocation) init(block *memoryBlock, handle rangeHandle, offset, size int, alignment uint, kindIndex int) {
	if a.block != nil {
		panic("attempting to initialize an allocation that is already live")
	}

	a.block = block
	a.handle = handle
	a.offset = offset
	a.size = size
	a.alignment = alignment
	a.kindIndex = kindIndex
	a.name = ""
	a.userData = nil
}

// Offset returns the byte offset of this allocation within its block's memory.
func (a *Allocation) Offset() int { return a.offset }

// Size returns the size in bytes of this allocation.
func (a *Allocation) Size() int { return a.size }

// Alignment returns the alignment this allocation was made with.
func (a *Allocation) Alignment() uint { return a.alignment }

// MemoryKindIndex returns the index of the memory kind this allocation was
// placed in.
func (a *Allocation) MemoryKindIndex() int { return a.kindIndex }

// Memory returns the opaque native handle of the block backing this
// allocation. Consumers bind resources against it at Offset().
func (a *Allocation) Memory() any {
	if a.block == nil {
		panic("attempting to retrieve backing memory of a freed allocation")
	}
	return a.block.memory
}

// SetName attaches a diagnostic name that will appear in stats dumps and
// unfreed-allocation reports.
func (a *Allocation) SetName(name string) { a.name = name }

func (a *Allocation) Name() string { return a.name }

// SetUserData attaches an arbitrary value to this allocation.
func (a *Allocation) SetUserData(userData any) { a.userData = userData }

func (a *Allocation) UserData() any { return a.userData }

func (a *Allocation) printParameters(json *jwriter.ObjectState) {
	json.Name("Offset").Int(a.offset)
	json.Name("Size").Int(a.size)
	json.Name("MemoryKindIndex").Int(a.kindIndex)
	if a.name != "" {
		json.Name("Name").String(a.name)
	}
}
