// Package ddbsdk implements ddbiface.Store on top of the AWS SDK v2 DynamoDB
// client. It works against AWS DynamoDB and DynamoDB Local alike.
package ddbsdk

import (
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/e-lopezc/serverless-product-catalog-api/dynamodb/ddbiface"
	"github.com/e-lopezc/serverless-product-catalog-api/dynamodb/table"
)

type Client struct {
	awsddb  ddbiface.AWSDynamoClientV2
	table   table.TableDefinition
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

var _ ddbiface.Store = &Client{}

// BreakerSettings configures the circuit breaker guarding calls to DynamoDB.
type BreakerSettings struct {
	MaxRequests uint32
	Interval    time.Duration
	Timeout     time.Duration
	// The breaker trips once at least MinRequests were seen in the interval
	// and the share of transient failures reached FailureThreshold.
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultBreakerSettings returns the settings used when none are given.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		MaxRequests:      5,
		Interval:         30 * time.Second,
		Timeout:          60 * time.Second,
		FailureThreshold: 0.8,
		MinRequests:      5,
	}
}

type Option func(*options)

type options struct {
	breaker  *BreakerSettings
	disabled bool
	logger   *zap.Logger
}

// WithBreaker overrides the circuit breaker settings.
func WithBreaker(s BreakerSettings) Option {
	return func(o *options) { o.breaker = &s }
}

// WithoutBreaker sends every call straight to DynamoDB.
func WithoutBreaker() Option {
	return func(o *options) { o.disabled = true }
}

func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// New wraps an AWS DynamoDB client serving the table def.
func New(awsddb ddbiface.AWSDynamoClientV2, def table.TableDefinition, opts ...Option) *Client {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	c := &Client{
		awsddb: awsddb,
		table:  def,
		logger: o.logger,
	}
	if !o.disabled {
		s := DefaultBreakerSettings()
		if o.breaker != nil {
			s = *o.breaker
		}
		c.breaker = newBreaker(def.Name, s, o.logger)
	}
	return c
}

func (c *Client) Table() table.TableDefinition {
	return c.table
}

func newBreaker(name string, s BreakerSettings, logger *zap.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < s.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= s.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("dynamodb circuit breaker state changed",
				zap.String("table", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
		// Only transient backend failures count against the breaker; failed
		// conditions and rejected requests are answers, not outages.
		IsSuccessful: func(err error) bool {
			return err == nil || !isTransient(err)
		},
	})
}

// call runs fn through the circuit breaker, classifying its error.
func call[T any](c *Client, fn func() (T, error)) (T, error) {
	if c.breaker == nil {
		out, err := fn()
		return out, classify(err)
	}
	res, err := c.breaker.Execute(func() (interface{}, error) {
		out, err := fn()
		return out, classify(err)
	})
	if err != nil {
		var zero T
		return zero, breakerError(err)
	}
	return res.(T), nil
}

func ptr[T any](v T) *T {
	return &v
}
