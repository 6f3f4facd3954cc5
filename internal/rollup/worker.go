package rollup

import (
	"context"
	"log/slog"
	"time"
)

// StartWorker runs a background goroutine that summarizes the current day
// every interval until ctx ends. The returned channel closes once the
// worker has stopped.
func StartWorker(ctx context.Context, svc *Service, interval time.Duration) <-chan struct{} {
	done := make(chan struct{})
	ticker := time.NewTicker(interval)
	go func() {
		defer close(done)
		defer ticker.Stop()
		slog.Info("Rollup worker started", "interval", interval)

		for {
			select {
			case <-ticker.C:
				runScheduled(ctx, svc)
			case <-ctx.Done():
				slog.Info("Rollup worker shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
	return done
}

func runScheduled(ctx context.Context, svc *Service) {
	day := svc.Today()
	summary, err := svc.Run(ctx, day)
	if err != nil {
		if ctx.Err() != nil {
			slog.Debug("Rollup worker: context canceled during rollup", "day", day, "error", err)
			return
		}
		slog.Error("Rollup worker failed", "day", day, "error", err)
		return
	}
	slog.Info("Rollup worker stored summary",
		"day", day,
		"total_ms", summary.TotalTimeMs,
		"productivity_score", summary.ProductivityScore)
}
