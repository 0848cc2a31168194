// Package instrumented decorates a store.Store with metrics, spans and logs
// without changing its behavior.
package instrumented

import (
	"context"
	"time"

	"publication-backend/infrastructure/persistence/store"
	pkgerrors "publication-backend/pkg/errors"
	"publication-backend/pkg/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Store wraps another store
type Store struct {
	inner   store.Store
	metrics *observability.Collector
	tracer  trace.Tracer
	logger  *zap.Logger
}

// NewStore decorates inner. A nil tracer disables spans.
func NewStore(inner store.Store, metrics *observability.Collector, tracer trace.Tracer, logger *zap.Logger) *Store {
	if tracer == nil {
		tracer = observability.NoopTracer()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		inner:   inner,
		metrics: metrics,
		tracer:  tracer,
		logger:  logger,
	}
}

// TransactWrite implements store.Store
func (s *Store) TransactWrite(ctx context.Context, ops []store.WriteOp) error {
	ctx, span := s.tracer.Start(ctx, "store.TransactWrite",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.Int("store.items", len(ops))))
	defer span.End()

	start := time.Now()
	err := s.inner.TransactWrite(ctx, ops)
	s.observe("transact_write", store.IndexPrimary, start, err, span)

	if s.metrics != nil {
		s.metrics.TransactionItems.Observe(float64(len(ops)))
		if pkgerrors.IsConflict(err) || pkgerrors.IsNotFound(err) {
			s.metrics.ConditionFailures.WithLabelValues(string(pkgerrors.GetAppError(err).Type)).Inc()
		}
	}
	return err
}

// Get implements store.Store
func (s *Store) Get(ctx context.Context, key store.Key) (store.Record, bool, error) {
	ctx, span := s.tracer.Start(ctx, "store.Get",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("store.sort_key", key.SortKey)))
	defer span.End()

	start := time.Now()
	record, ok, err := s.inner.Get(ctx, key)
	span.SetAttributes(attribute.Bool("store.found", ok))
	s.observe("get", store.IndexPrimary, start, err, span)
	return record, ok, err
}

// Query implements store.Store
func (s *Store) Query(ctx context.Context, q store.Query) ([]store.Record, error) {
	ctx, span := s.tracer.Start(ctx, "store.Query",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("store.index", indexLabel(q.Index)),
			attribute.String("store.partition", q.PartitionKey)))
	defer span.End()

	start := time.Now()
	records, err := s.inner.Query(ctx, q)
	span.SetAttributes(attribute.Int("store.records", len(records)))
	s.observe("query", q.Index, start, err, span)
	return records, err
}

func (s *Store) observe(operation string, index store.IndexName, start time.Time, err error, span trace.Span) {
	duration := time.Since(start)
	status := outcome(err)

	if s.metrics != nil {
		s.metrics.RecordStoreOperation(operation, indexLabel(index), status, duration)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, status)
	}

	switch status {
	case "ok", "conflict", "not_found":
		s.logger.Debug("Store operation",
			zap.String("operation", operation),
			zap.String("status", status),
			zap.Duration("duration", duration))
	default:
		s.logger.Error("Store operation failed",
			zap.String("operation", operation),
			zap.String("status", status),
			zap.Duration("duration", duration),
			zap.Error(err))
	}
}

// outcome is the metric status label of err
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case pkgerrors.IsConflict(err):
		return "conflict"
	case pkgerrors.IsNotFound(err):
		return "not_found"
	case pkgerrors.IsValidation(err):
		return "invalid"
	case pkgerrors.IsTransactionTooLarge(err):
		return "too_large"
	case pkgerrors.IsType(err, pkgerrors.ErrorTypeUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}

func indexLabel(index store.IndexName) string {
	if index == store.IndexPrimary {
		return "primary"
	}
	return string(index)
}
