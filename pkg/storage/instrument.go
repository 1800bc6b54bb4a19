package storage

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/rhuss/keygate/pkg/debug"
	"github.com/rhuss/keygate/pkg/observability"
)

const tracerName = "keygate/storage"

// instrumented decorates a Store with tracing spans and Prometheus metrics.
type instrumented struct {
	next    Store
	backend string
}

// Instrument wraps s so every operation records a span and the
// keygate_store_* metrics under the given backend label.
func Instrument(s Store, backend string) Store {
	return &instrumented{next: s, backend: backend}
}

func (s *instrumented) Get(ctx context.Context, key string) ([]byte, error) {
	var val []byte
	err := s.observe(ctx, "get", key, func(ctx context.Context) error {
		var err error
		val, err = s.next.Get(ctx, key)
		return err
	})
	return val, err
}

func (s *instrumented) Put(ctx context.Context, key string, value []byte) error {
	return s.observe(ctx, "put", key, func(ctx context.Context) error {
		return s.next.Put(ctx, key, value)
	})
}

func (s *instrumented) Delete(ctx context.Context, key string) error {
	return s.observe(ctx, "delete", key, func(ctx context.Context) error {
		return s.next.Delete(ctx, key)
	})
}

func (s *instrumented) Close() error {
	return s.next.Close()
}

func (s *instrumented) observe(ctx context.Context, op, key string, fn func(context.Context) error) error {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "store."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("store.backend", s.backend),
			attribute.String("store.key", key),
		),
	)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	observability.StoreOperationDuration.WithLabelValues(s.backend, op).Observe(time.Since(start).Seconds())

	result := "ok"
	switch {
	case errors.Is(err, ErrNotFound):
		result = "miss"
	case err != nil:
		result = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	observability.StoreOperationsTotal.WithLabelValues(s.backend, op, result).Inc()
	span.SetAttributes(attribute.String("store.result", result))
	debug.Log("storage", "store operation",
		"backend", s.backend, "op", op, "key", key, "result", result, "duration", time.Since(start))

	return err
}
