//go:build debug_sierra

package resource

import "fmt"

// invalidUse handles an operation on a handle that is freed or was never
// registered. Debug builds treat it as a fatal caller bug.
func (r *Registry) invalidUse(operation string, h Handle) {
	panic(fmt.Sprintf("%s on a %s handle that is not live", operation, h.kind.String()))
}
