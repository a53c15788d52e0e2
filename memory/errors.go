package memory

import "github.com/pkg/errors"

// ErrOutOfDeviceMemory is returned from Allocator.Allocate when no compatible
// memory kind can supply the requested bytes. It is recoverable: the caller may
// force a reclamation pass and retry, or fail resource creation.
var ErrOutOfDeviceMemory error = errors.New("out of device memory")

// ErrNoCompatibleMemoryType is returned from Allocator.Allocate when no memory
// kind on the device satisfies the request's kind constraints. This indicates a
// configuration mismatch rather than a transient condition.
var ErrNoCompatibleMemoryType error = errors.New("no compatible memory type")
