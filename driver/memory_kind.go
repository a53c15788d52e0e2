package driver

import "strings"

// MemoryKindFlags describe the properties of one device memory kind.
type MemoryKindFlags uint32

const (
	// MemoryKindDeviceLocal memory is the fastest for device access and may
	// not be host-accessible at all
	MemoryKindDeviceLocal MemoryKindFlags = 1 << iota
	// MemoryKindHostVisible memory can be mapped into the host address space
	MemoryKindHostVisible
	// MemoryKindHostCoherent memory does not require explicit flush/invalidate
	// around host access
	MemoryKindHostCoherent
	// MemoryKindHostCached memory is cached on the host, making host reads fast
	MemoryKindHostCached
	// MemoryKindLazilyAllocated memory is backed on demand and is only usable
	// for transient attachments
	MemoryKindLazilyAllocated
)

var memoryKindFlagNames = map[MemoryKindFlags]string{
	MemoryKindDeviceLocal:     "MemoryKindDeviceLocal",
	MemoryKindHostVisible:     "MemoryKindHostVisible",
	MemoryKindHostCoherent:    "MemoryKindHostCoherent",
	MemoryKindHostCached:      "MemoryKindHostCached",
	MemoryKindLazilyAllocated: "MemoryKindLazilyAllocated",
}

func (f MemoryKindFlags) String() string {
	if f == 0 {
		return "0"
	}

	var sb strings.Builder
	for bit := MemoryKindDeviceLocal; bit <= MemoryKindLazilyAllocated; bit <<= 1 {
		if f&bit == 0 {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("|")
		}
		sb.WriteString(memoryKindFlagNames[bit])
	}
	return sb.String()
}

// MemoryKindProperties describes one memory kind exposed by a Device.
type MemoryKindProperties struct {
	Flags MemoryKindFlags
	// HeapSize is the total size in bytes of the heap backing this kind
	HeapSize int
}
