package registry

import (
	"context"
	"log/slog"
)

// undoLog collects compensating writes for a multi-record change
type undoLog []func(ctx context.Context) error

func (u *undoLog) add(fn func(ctx context.Context) error) {
	*u = append(*u, fn)
}

// rollback applies compensations newest first. Failures are logged: the
// live cache is left untouched so the next load re-derives from storage.
func (u undoLog) rollback(ctx context.Context, logger *slog.Logger) {
	for i := len(u) - 1; i >= 0; i-- {
		if err := u[i](ctx); err != nil {
			logger.Error("compensating write failed", slog.Any("error", err))
		}
	}
}
