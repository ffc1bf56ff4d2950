package stock

import (
	"context"
	"time"

	"github.com/oakline-labs/orderproc/internal/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("orderproc/stock")

// TelemetryMiddleware wraps a Store with tracing spans and reserve-duration
// metrics, generalizing the teacher's span-per-call wrapper to also record
// conflict and insufficient-stock outcomes.
type TelemetryMiddleware struct {
	next    Store
	metrics *telemetry.StockMetrics
}

func NewTelemetryMiddleware(next Store, metrics *telemetry.StockMetrics) *TelemetryMiddleware {
	return &TelemetryMiddleware{next: next, metrics: metrics}
}

func (s *TelemetryMiddleware) ReadStock(ctx context.Context, id string) (Stock, error) {
	ctx, span := tracer.Start(ctx, "stock.ReadStock")
	defer span.End()
	span.SetAttributes(attribute.String("stock.id", id))

	st, err := s.next.ReadStock(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return st, err
}

func (s *TelemetryMiddleware) Reserve(ctx context.Context, id string, n int64) (Stock, error) {
	ctx, span := tracer.Start(ctx, "stock.Reserve")
	defer span.End()
	span.SetAttributes(attribute.String("stock.id", id), attribute.Int64("stock.amount", n))

	start := time.Now()
	st, err := s.next.Reserve(ctx, id, n)
	s.metrics.RecordReserve(time.Since(start))

	switch err {
	case nil:
	case ErrVersionConflict:
		s.metrics.ReserveConflicts.Inc()
		span.RecordError(err)
	case ErrInsufficient:
		s.metrics.ReserveInsufficient.Inc()
		span.RecordError(err)
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return st, err
}

func (s *TelemetryMiddleware) Release(ctx context.Context, id string, n int64) (Stock, error) {
	ctx, span := tracer.Start(ctx, "stock.Release")
	defer span.End()
	span.SetAttributes(attribute.String("stock.id", id), attribute.Int64("stock.amount", n))

	st, err := s.next.Release(ctx, id, n)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return st, err
}

var _ Store = (*TelemetryMiddleware)(nil)
