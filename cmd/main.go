package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/cobranca/billing-backoffice/internal/api"
	"github.com/cobranca/billing-backoffice/internal/config"
	"github.com/cobranca/billing-backoffice/internal/events"
	"github.com/cobranca/billing-backoffice/internal/gateway"
	"github.com/cobranca/billing-backoffice/internal/handlers"
	"github.com/cobranca/billing-backoffice/internal/repository"
	"github.com/cobranca/billing-backoffice/internal/service"
	"github.com/cobranca/billing-backoffice/internal/telemetry"
)

func main() {
	cfg := config.Load()

	if err := telemetry.Init("billing-backoffice"); err != nil {
		panic(fmt.Sprintf("Failed to initialize telemetry: %v", err))
	}
	defer telemetry.Shutdown(context.Background())

	telemetry.Logger.Info("Starting Billing Backoffice")

	// Connect to PostgreSQL
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		telemetry.Logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	customerRepo := repository.NewCustomerRepository(db)
	if err := customerRepo.InitDB(); err != nil {
		telemetry.Logger.Fatal("Failed to initialize customers schema", zap.Error(err))
	}
	chargeRepo := repository.NewChargeRepository(db)
	if err := chargeRepo.InitDB(); err != nil {
		telemetry.Logger.Fatal("Failed to initialize charges schema", zap.Error(err))
	}

	// Connect to Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.RedisURL,
	})
	defer redisClient.Close()

	// Connect to NATS
	nc, err := nats.Connect(cfg.NatsURL)
	if err != nil {
		telemetry.Logger.Fatal("Failed to connect to NATS", zap.Error(err))
	}
	defer nc.Close()

	// Connect to Kafka
	kafkaWriter := &kafka.Writer{
		Addr:     kafka.TCP(cfg.KafkaBrokers),
		Topic:    "billing.charge.events",
		Balancer: &kafka.LeastBytes{},
	}
	defer kafkaWriter.Close()

	// Event bus: one publisher per process, observers registered up front.
	publisher := events.NewPublisher()
	publisher.RegisterChargeObserver(events.LogObserver{})
	publisher.RegisterChargeObserver(events.MetricsObserver{})
	publisher.RegisterChargeObserver(events.NewKafkaObserver(kafkaWriter))
	notifier := events.NewNotificationObserver(nc)
	publisher.RegisterChargeObserver(notifier)
	publisher.RegisterCustomerObserver(notifier)
	publisher.RegisterCustomerObserver(events.LogObserver{})

	// Services
	chargeService := service.NewChargeService(chargeRepo, customerRepo, publisher)
	customerService := service.NewCustomerService(customerRepo, publisher)

	gatewayClient := gateway.NewClient(cfg.GatewayBaseURL, cfg.GatewayTimeout)
	reconciler := service.NewReconciler(chargeService, gatewayClient, redisClient)

	sweeperCtx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()
	go service.RunExpirySweeper(sweeperCtx, chargeService, cfg.ExpiryInterval)

	// Handlers and router
	chargeHandler := handlers.NewChargeHandler(chargeService, reconciler)
	customerHandler := handlers.NewCustomerHandler(customerService)
	r := api.NewRouter(chargeHandler, customerHandler)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		telemetry.Logger.Info("Billing Backoffice listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			telemetry.Logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	telemetry.Logger.Info("Shutting down server...")
	stopSweeper()
	reconciler.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		telemetry.Logger.Error("Server forced to shutdown", zap.Error(err))
	}

	telemetry.Logger.Info("Server exited")
}
