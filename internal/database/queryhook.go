package database

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

var (
	queryCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "db_queries_total",
		Help: "SQL statements executed, by operation.",
	}, []string{"operation"})

	queryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "db_query_duration_seconds",
		Help:    "SQL statement latency, by operation.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
)

// queryHook counts and logs every SQL statement bun issues. The per-request
// statement count is the whole point of comparing fetch strategies, so it has
// to be observable.
type queryHook struct {
	logger *zap.Logger
}

func newQueryHook(logger *zap.Logger) *queryHook {
	return &queryHook{logger: logger}
}

// BeforeQuery implements bun.QueryHook.
func (h *queryHook) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

// AfterQuery implements bun.QueryHook.
func (h *queryHook) AfterQuery(_ context.Context, event *bun.QueryEvent) {
	if event == nil {
		return
	}
	operation := event.Operation()
	elapsed := time.Since(event.StartTime)

	queryCounter.WithLabelValues(operation).Inc()
	queryDuration.WithLabelValues(operation).Observe(elapsed.Seconds())

	if h.logger == nil {
		return
	}
	if event.Err != nil {
		h.logger.Warn("query failed",
			zap.String("operation", operation),
			zap.Duration("elapsed", elapsed),
			zap.String("query", event.Query),
			zap.Error(event.Err),
		)
		return
	}
	h.logger.Debug("query executed",
		zap.String("operation", operation),
		zap.Duration("elapsed", elapsed),
		zap.String("query", event.Query),
	)
}
