package events

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/cobranca/billing-backoffice/internal/models"
	"github.com/cobranca/billing-backoffice/internal/telemetry"
)

var chargeEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "charge_events_total",
		Help: "Total number of charge domain events published.",
	},
	[]string{"event"},
)

// LogObserver writes one structured line per event.
type LogObserver struct{}

func (LogObserver) Name() string { return "log" }

func (LogObserver) HandleChargeEvent(_ context.Context, event models.ChargeEvent) error {
	telemetry.Logger.Info("Charge event",
		zap.String("event", string(event.Name)),
		zap.Int64("charge_id", event.Charge.ID),
		zap.String("status", string(event.Charge.Status)),
	)
	return nil
}

func (LogObserver) HandleCustomerEvent(_ context.Context, event models.CustomerEvent) error {
	telemetry.Logger.Info("Customer event",
		zap.String("event", string(event.Name)),
		zap.Int64("customer_id", event.Customer.ID),
	)
	return nil
}

// MetricsObserver feeds the charge_events_total counter.
type MetricsObserver struct{}

func (MetricsObserver) Name() string { return "metrics" }

func (MetricsObserver) HandleChargeEvent(_ context.Context, event models.ChargeEvent) error {
	chargeEventsTotal.WithLabelValues(string(event.Name)).Inc()
	return nil
}

// KafkaObserver mirrors every charge event onto the billing.charge.events
// topic, keyed by charge id so per-charge ordering is preserved.
type KafkaObserver struct {
	writer *kafka.Writer
}

func NewKafkaObserver(writer *kafka.Writer) *KafkaObserver {
	return &KafkaObserver{writer: writer}
}

func (o *KafkaObserver) Name() string { return "kafka" }

func (o *KafkaObserver) HandleChargeEvent(ctx context.Context, event models.ChargeEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return o.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatInt(event.Charge.ID, 10)),
		Value: value,
	})
}

// NotificationObserver publishes events to NATS subjects
// (billing.charge.paid, billing.customer.created, ...) where the
// notification service picks them up. Delivery of the actual email is that
// service's problem.
type NotificationObserver struct {
	nc *nats.Conn
}

func NewNotificationObserver(nc *nats.Conn) *NotificationObserver {
	return &NotificationObserver{nc: nc}
}

func (o *NotificationObserver) Name() string { return "notification" }

func (o *NotificationObserver) HandleChargeEvent(_ context.Context, event models.ChargeEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return o.nc.Publish("billing."+string(event.Name), payload)
}

func (o *NotificationObserver) HandleCustomerEvent(_ context.Context, event models.CustomerEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return o.nc.Publish("billing."+string(event.Name), payload)
}
