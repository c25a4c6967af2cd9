package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/cobranca/billing-backoffice/internal/telemetry"
)

// RunExpirySweeper periodically moves pending charges past their due date
// to expired. It returns when ctx is cancelled. A failed sweep is logged
// and retried on the next tick.
func RunExpirySweeper(ctx context.Context, engine *ChargeService, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	telemetry.Logger.Info("Expiry sweeper started", zap.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			telemetry.Logger.Info("Expiry sweeper stopped")
			return
		case <-ticker.C:
			if _, err := engine.ExpireOverdue(ctx); err != nil {
				telemetry.Logger.Error("Expiry sweep failed", zap.Error(err))
			}
		}
	}
}
