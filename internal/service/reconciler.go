package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/cobranca/billing-backoffice/internal/domainerr"
	"github.com/cobranca/billing-backoffice/internal/interfaces"
	"github.com/cobranca/billing-backoffice/internal/models"
	"github.com/cobranca/billing-backoffice/internal/telemetry"
)

// defaultBackoff mirrors the gateway's settlement cadence: most charges
// settle within minutes, stragglers within a quarter hour.
var defaultBackoff = []time.Duration{time.Minute, 5 * time.Minute, 15 * time.Minute}

// Reconciler drives asynchronous gateway synchronization. It fetches the
// remote status outside any transaction and hands it to the lifecycle
// engine, which applies it idempotently. Transient gateway failures retry
// with increasing backoff; definitive ones do not.
type Reconciler struct {
	engine      *ChargeService
	gateway     interfaces.GatewayClient
	redisClient *redis.Client

	backoff []time.Duration
	sleep   func(ctx context.Context, d time.Duration) error

	rootCtx context.Context
	stop    context.CancelFunc
}

func NewReconciler(engine *ChargeService, gw interfaces.GatewayClient, redisClient *redis.Client) *Reconciler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Reconciler{
		engine:      engine,
		gateway:     gw,
		redisClient: redisClient,
		backoff:     defaultBackoff,
		sleep:       sleepCtx,
		rootCtx:     ctx,
		stop:        cancel,
	}
}

// Stop cancels every dispatched sync. In-flight backoff sleeps return
// promptly; the next sweep or manual sync picks the charges up again.
func (r *Reconciler) Stop() {
	r.stop()
}

// Dispatch queues a reconciliation without blocking the caller. Failures
// are logged; the charge simply stays in its last known local state until
// the next sync.
func (r *Reconciler) Dispatch(chargeID int64) {
	go func() {
		if err := r.Sync(r.rootCtx, chargeID); err != nil && !errors.Is(err, context.Canceled) {
			telemetry.Logger.Error("Charge sync failed",
				zap.Int64("charge_id", chargeID),
				zap.Error(err),
			)
		}
	}()
}

// Sync reconciles one charge against the gateway. A charge without a
// gateway reference is silently skipped: there is nothing to reconcile
// against. Concurrent syncs of the same charge are collapsed via a redis
// lock.
func (r *Reconciler) Sync(ctx context.Context, chargeID int64) error {
	ctx, span := telemetry.Tracer.Start(ctx, "reconciler.sync")
	defer span.End()

	charge, err := r.engine.Get(ctx, chargeID)
	if err != nil {
		return err
	}
	if charge.GatewayChargeID == nil {
		return nil
	}

	if r.redisClient != nil {
		lockKey := fmt.Sprintf("charge_sync_lock:%d", chargeID)
		locked, err := r.redisClient.SetNX(ctx, lockKey, "1", 30*time.Minute).Result()
		if err != nil {
			telemetry.Logger.Warn("Sync lock unavailable, proceeding without it",
				zap.Int64("charge_id", chargeID), zap.Error(err))
		} else if !locked {
			telemetry.Logger.Info("Charge sync already in progress",
				zap.Int64("charge_id", chargeID))
			return nil
		} else {
			defer r.redisClient.Del(context.WithoutCancel(ctx), lockKey)
		}
	}

	var lastErr error
	for attempt := 0; attempt < len(r.backoff); attempt++ {
		status, err := r.gateway.FetchStatus(ctx, *charge.GatewayChargeID)
		if err == nil {
			_, err = r.engine.ReconcileFromGateway(ctx, chargeID, status, models.Metadata{
				"synced_at": time.Now().Format(time.RFC3339),
			})
			return err
		}

		if domainerr.KindOf(err) != domainerr.KindTransientIntegration {
			return err
		}

		lastErr = err
		if attempt == len(r.backoff)-1 {
			break
		}
		telemetry.Logger.Warn("Transient gateway failure, will retry",
			zap.Int64("charge_id", chargeID),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", r.backoff[attempt]),
			zap.Error(err),
		)
		if err := r.sleep(ctx, r.backoff[attempt]); err != nil {
			return err
		}
	}

	telemetry.Logger.Error("Charge sync retries exhausted",
		zap.Int64("charge_id", chargeID),
		zap.Error(lastErr),
	)
	return lastErr
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
