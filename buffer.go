package sierra

import (
	"github.com/arcana-engine/sierra/memory"
	"github.com/arcana-engine/sierra/resource"
)

// BufferUsage flags declare how a buffer may be used by recorded commands.
type BufferUsage uint32

const (
	BufferUsageTransferSrc BufferUsage = 1 << iota
	BufferUsageTransferDst
	BufferUsageUniformTexel
	BufferUsageStorageTexel
	BufferUsageUniform
	BufferUsageStorage
	BufferUsageIndex
	BufferUsageVertex
	BufferUsageIndirect
)

// BufferInfo describes a buffer to create.
type BufferInfo struct {
	// Size of the content the buffer can hold, in bytes.
	Size int

	// Align is the alignment required for the buffer's memory. Must be a
	// power of two; 0 means no requirement beyond 1.
	Align uint

	// Usage types supported by the buffer.
	Usage BufferUsage

	// Memory selects how the backing memory is accessed. The zero value
	// requests fast device access only.
	Memory memory.UsageFlags
}

// Buffer is a registered device buffer. Its backing memory returns to the
// allocator only after every epoch that used the buffer has completed.
type Buffer struct {
	info   BufferInfo
	handle resource.Handle
	alloc  *memory.Allocation
}

// Info returns the description the buffer was created from.
func (b *Buffer) Info() BufferInfo { return b.info }

// Handle returns the buffer's registry handle, used to record usage and to
// release the creation reference.
func (b *Buffer) Handle() resource.Handle { return b.handle }

// Allocation exposes the buffer's backing memory placement.
func (b *Buffer) Allocation() *memory.Allocation { return b.alloc }
