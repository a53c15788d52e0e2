package descriptor

import "github.com/pkg/errors"

// ErrPoolExhausted is returned from Allocator.AllocateSet when descriptor
// storage could not be obtained, including when the device refuses to create a
// new pool. It is recoverable: the caller may retry after capacity is
// reclaimed.
var ErrPoolExhausted error = errors.New("descriptor pool exhausted")
