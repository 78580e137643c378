package cache

import (
	"context"
	"time"

	"go-space/internal/logging"
	"go-space/internal/metrics"
)

// PersistTimeout bounds a single best-effort write
const PersistTimeout = 5 * time.Second

// Persist runs a best-effort write to the persistent store.
// Failures are logged and counted, never returned.
func Persist(ctx context.Context, table, naturalKey string, write func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), PersistTimeout)
	defer cancel()

	if err := write(ctx); err != nil {
		metrics.PersistFailures.WithLabelValues(table).Inc()
		logging.Ctx(ctx).Error().Err(err).Str("table", table).Str("key", naturalKey).Msg("persist failed, continuing")
		return
	}
	logging.Ctx(ctx).Debug().Str("table", table).Str("key", naturalKey).Msg("persisted")
}
