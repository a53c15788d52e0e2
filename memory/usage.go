package memory

import (
	"strings"

	"github.com/arcana-engine/sierra/driver"
)

// UsageFlags describe how an allocation will be accessed, driving memory kind
// selection when the request does not pin kinds explicitly.
type UsageFlags uint32

const (
	// UsageFastDeviceAccess prefers device-local memory
	UsageFastDeviceAccess UsageFlags = 1 << iota
	// UsageUploadToDevice requires host-visible memory for writing from the host
	UsageUploadToDevice
	// UsageDownloadFromDevice requires host-visible memory and prefers
	// host-cached memory for reading back to the host
	UsageDownloadFromDevice
	// UsageTransient prefers lazily allocated memory; suitable only for
	// attachments that never leave the device
	UsageTransient
)

var usageFlagNames = map[UsageFlags]string{
	UsageFastDeviceAccess:   "UsageFastDeviceAccess",
	UsageUploadToDevice:     "UsageUploadToDevice",
	UsageDownloadFromDevice: "UsageDownloadFromDevice",
	UsageTransient:          "UsageTransient",
}

func (f UsageFlags) String() string {
	if f == 0 {
		return "0"
	}

	var sb strings.Builder
	for bit := UsageFastDeviceAccess; bit <= UsageTransient; bit <<= 1 {
		if f&bit == 0 {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("|")
		}
		sb.WriteString(usageFlagNames[bit])
	}
	return sb.String()
}

// Request describes one allocation request.
type Request struct {
	// Size is the requested size in bytes. Must be positive.
	Size int
	// Alignment is the minimum alignment of the returned range. Zero means no
	// alignment requirement. Must be a power of two.
	Alignment uint
	// Usage drives memory kind selection
	Usage UsageFlags

	// RequiredKinds, when nonzero, restricts the allocation to memory kinds
	// carrying all of these flags in addition to those implied by Usage
	RequiredKinds driver.MemoryKindFlags
	// PreferredKinds, when nonzero, biases kind selection toward kinds carrying
	// these flags without excluding kinds that lack them
	PreferredKinds driver.MemoryKindFlags
}

// kindPreferences translates a request's usage flags into required, preferred,
// and avoided kind flags.
func kindPreferences(req *Request) (required, preferred, avoided driver.MemoryKindFlags) {
	required = req.RequiredKinds
	preferred = req.PreferredKinds

	if req.Usage&(UsageUploadToDevice|UsageDownloadFromDevice) != 0 {
		required |= driver.MemoryKindHostVisible
	}
	if req.Usage&UsageDownloadFromDevice != 0 {
		preferred |= driver.MemoryKindHostCached
	}
	if req.Usage&UsageFastDeviceAccess != 0 {
		preferred |= driver.MemoryKindDeviceLocal
	}
	if req.Usage&UsageTransient != 0 {
		preferred |= driver.MemoryKindLazilyAllocated
	} else {
		avoided |= driver.MemoryKindLazilyAllocated
	}

	return required, preferred, avoided
}
