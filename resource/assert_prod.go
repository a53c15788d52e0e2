//go:build !debug_sierra

package resource

import (
	"context"

	"golang.org/x/exp/slog"
)

// invalidUse handles an operation on a handle that is freed or was never
// registered. Release builds log and carry on so one stale handle cannot take
// down the process.
func (r *Registry) invalidUse(operation string, h Handle) {
	r.logger.LogAttrs(context.Background(), slog.LevelError, "operation on a handle that is not live",
		slog.String("operation", operation),
		slog.String("kind", h.kind.String()))
}
