package order

import (
	"context"
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/orderview/orderview/internal/cache"
	"github.com/orderview/orderview/internal/config"
	"github.com/orderview/orderview/internal/messaging"
	ordersvc "github.com/orderview/orderview/internal/service/order"
	"github.com/orderview/orderview/internal/worker"
)

var workerTracer = otel.Tracer("github.com/orderview/orderview/worker/order")

// Module registers order-related worker handlers.
var Module = fx.Module("worker_order",
	fx.Provide(
		fx.Annotate(
			NewOrderEventHandler,
			fx.ResultTags(`group:"worker.handlers"`),
		),
	),
)

// NewOrderEventHandler sets up a worker handler that reacts to order events:
// the cached view of the affected order is evicted so readers on other
// processes never serve a stale status.
func NewOrderEventHandler(logger *zap.Logger, cfg config.Config, store cache.Store) worker.HandlerRegistration {
	handler := func(ctx context.Context, msg messaging.Message) error {
		ctx, span := workerTracer.Start(ctx, "worker.orders.process", trace.WithAttributes(
			attribute.String("messaging.topic", msg.Topic),
		))
		defer span.End()

		var event ordersvc.OrderEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			logger.Error("failed to decode order event", zap.Error(err))

			span.RecordError(err)
			span.SetStatus(codes.Error, "decode error")
			return err
		}

		if store != nil {
			key := fmt.Sprintf("orders:%d", event.OrderID)
			if err := store.Delete(ctx, key); err != nil {
				logger.Warn("failed to evict order view", zap.String("key", key), zap.Error(err))
			}
		}

		logger.Info("order event processed",
			zap.String("type", event.Type),
			zap.Int64("order_id", event.OrderID),
			zap.String("status", event.Status),
			zap.Int64("total_price", event.TotalPrice),
		)

		return nil
	}

	return worker.HandlerRegistration{
		Topic:   cfg.Messaging.Kafka.Topic,
		Handler: handler,
	}
}
