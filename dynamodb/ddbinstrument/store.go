// Package ddbinstrument decorates a ddbiface.Store with logging, metrics and
// tracing without changing its behavior.
package ddbinstrument

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/e-lopezc/serverless-product-catalog-api/dynamodb/ddbiface"
	"github.com/e-lopezc/serverless-product-catalog-api/dynamodb/table"
)

const instrumentationName = "github.com/e-lopezc/serverless-product-catalog-api/dynamodb"

// Metrics holds the collectors recorded per storage call.
type Metrics struct {
	Operations *prometheus.CounterVec
	Duration   *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg when it is
// not nil.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "catalog",
				Subsystem: "storage",
				Name:      "operations_total",
				Help:      "Storage calls by operation and outcome.",
			},
			[]string{"operation", "outcome"},
		),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "catalog",
				Subsystem: "storage",
				Name:      "operation_duration_seconds",
				Help:      "Storage call latency by operation.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
	if reg != nil {
		for _, c := range []prometheus.Collector{m.Operations, m.Duration} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

type Store struct {
	inner   ddbiface.Store
	logger  *zap.Logger
	metrics *Metrics
	tracer  trace.Tracer
	timeout time.Duration
}

var _ ddbiface.Store = &Store{}

type Option func(*Store)

func WithLogger(l *zap.Logger) Option { return func(s *Store) { s.logger = l } }
func WithMetrics(m *Metrics) Option { return func(s *Store) { s.metrics = m } }
func WithTracer(t trace.Tracer) Option { return func(s *Store) { s.tracer = t } }
// WithTimeout bounds each call by d unless ctx already carries a deadline.
func WithTimeout(d time.Duration) Option { return func(s *Store) { s.timeout = d } }

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Store) { s.tracer = tp.Tracer(instrumentationName) }
}

// Wrap decorates inner. Without options it traces through the global
// tracer provider, records no metrics and logs nothing.
func Wrap(inner ddbiface.Store, opts ...Option) *Store {
	s := &Store{
		inner:  inner,
		logger: zap.NewNop(),
		tracer: otel.Tracer(instrumentationName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Table() table.TableDefinition {
	return s.inner.Table()
}

func (s *Store) GetItem(ctx context.Context, key table.PrimaryKey) (ddbiface.Item, error) {
	ctx, done := s.start(ctx, "GetItem", attribute.String("db.key", key.String()))
	item, err := s.inner.GetItem(ctx, key)
	done(err)
	return item, err
}

func (s *Store) PutItem(ctx context.Context, item ddbiface.Item, cond ddbiface.Condition) error {
	ctx, done := s.start(ctx, "PutItem", attribute.Bool("db.conditional", cond != nil))
	err := s.inner.PutItem(ctx, item, cond)
	done(err)
	return err
}

func (s *Store) UpdateItem(ctx context.Context, key table.PrimaryKey, upd ddbiface.Update, cond ddbiface.Condition) (ddbiface.Item, error) {
	ctx, done := s.start(ctx, "UpdateItem",
		attribute.String("db.key", key.String()),
		attribute.Bool("db.conditional", cond != nil))
	item, err := s.inner.UpdateItem(ctx, key, upd, cond)
	done(err)
	return item, err
}

func (s *Store) DeleteItem(ctx context.Context, key table.PrimaryKey, cond ddbiface.Condition) (ddbiface.Item, error) {
	ctx, done := s.start(ctx, "DeleteItem",
		attribute.String("db.key", key.String()),
		attribute.Bool("db.conditional", cond != nil))
	item, err := s.inner.DeleteItem(ctx, key, cond)
	done(err)
	return item, err
}

func (s *Store) Query(ctx context.Context, q ddbiface.Query) (ddbiface.Page, error) {
	ctx, done := s.start(ctx, "Query",
		attribute.String("db.index", q.Index),
		attribute.Int("db.limit", int(q.Limit)))
	page, err := s.inner.Query(ctx, q)
	done(err)
	return page, err
}

// start opens a span for op and returns the function that closes it and
// records the outcome.
func (s *Store) start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	cancel := context.CancelFunc(func() {})
	if _, ok := ctx.Deadline(); !ok && s.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
	}
	attrs = append(attrs, attribute.String("db.table", s.inner.Table().Name))
	ctx, span := s.tracer.Start(ctx, "dynamodb."+op, trace.WithAttributes(attrs...))
	began := time.Now()

	return ctx, func(err error) {
		defer cancel()
		elapsed := time.Since(began)
		outcome := Outcome(err)
		if s.metrics != nil {
			s.metrics.Operations.WithLabelValues(op, outcome).Inc()
			s.metrics.Duration.WithLabelValues(op).Observe(elapsed.Seconds())
		}

		switch outcome {
		case OutcomeOK, OutcomeNotFound, OutcomeConditionFailed:
			span.SetAttributes(attribute.String("db.outcome", outcome))
			s.logger.Debug("storage call",
				zap.String("operation", op),
				zap.String("outcome", outcome),
				zap.Duration("elapsed", elapsed))
		default:
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
			s.logger.Warn("storage call failed",
				zap.String("operation", op),
				zap.String("outcome", outcome),
				zap.Duration("elapsed", elapsed),
				zap.Error(err))
		}
		span.End()
	}
}

const (
	OutcomeOK              = "ok"
	OutcomeNotFound        = "not_found"
	OutcomeConditionFailed = "condition_failed"
	OutcomeContention      = "contention"
	OutcomeTimeout         = "timeout"
	OutcomeUnavailable     = "unavailable"
	OutcomeError           = "error"
)

// Outcome labels err for metrics.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ddbiface.ErrItemNotFound):
		return OutcomeNotFound
	case errors.Is(err, ddbiface.ErrConditionFailed):
		return OutcomeConditionFailed
	case errors.Is(err, ddbiface.ErrContention):
		return OutcomeContention
	case errors.Is(err, ddbiface.ErrTimeout),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return OutcomeTimeout
	case errors.Is(err, ddbiface.ErrUnavailable):
		return OutcomeUnavailable
	default:
		return OutcomeError
	}
}
