// Package driver defines the capability interface this module requires from the
// device layer beneath it. The interface is deliberately opaque: the core tracks
// lifetimes and carves up storage, while the device layer owns the actual native
// objects. driver/vkdriver implements it on a Vulkan device; tests implement it
// with in-memory fakes.
package driver

// MemoryHandle is an opaque native device memory handle. The core never
// inspects it; it is stored on allocated blocks and handed back to FreeMemory.
type MemoryHandle any

// DescriptorPoolHandle is an opaque native descriptor pool handle.
type DescriptorPoolHandle any

// CompletionToken is an opaque device-queryable value (a fence or a timeline
// value) indicating that submitted work has finished.
type CompletionToken any

// Device is the set of device capabilities the core consumes. Implementations
// must be safe for concurrent use: allocators and the submission tracker may
// call in from multiple goroutines.
//
// AllocateMemory and FreeMemory are synchronous and may block on the
// underlying device call. Latency-sensitive callers should keep them off the
// per-frame hot path.
type Device interface {
	// MemoryKindCount returns the number of memory kinds the device exposes.
	// Kind indices passed to AllocateMemory are in [0, MemoryKindCount).
	MemoryKindCount() int
	// MemoryKindProperties describes the memory kind at the given index.
	MemoryKindProperties(kindIndex int) MemoryKindProperties
	// PageAlignment returns the device page size that block allocations are
	// rounded to. Must be a power of two.
	PageAlignment() uint

	AllocateMemory(size int, kindIndex int) (MemoryHandle, error)
	FreeMemory(handle MemoryHandle) error

	CreateDescriptorPool(capacities TypeCapacities, maxSets int) (DescriptorPoolHandle, error)
	ResetDescriptorPool(handle DescriptorPoolHandle) error
	DestroyDescriptorPool(handle DescriptorPoolHandle) error

	// QueryCompletion reports whether the work guarded by token has completed.
	// A false result is not an error. Implementations may be flaky across
	// tokens; callers are responsible for applying results in order.
	QueryCompletion(token CompletionToken) (bool, error)

	// WaitIdle blocks until the device has finished all outstanding work. Used
	// as the shutdown barrier before force-reclaiming pending frees.
	WaitIdle() error
}
