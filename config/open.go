package config

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/e-lopezc/serverless-product-catalog-api/catalog"
	"github.com/e-lopezc/serverless-product-catalog-api/dynamodb/ddbiface"
	"github.com/e-lopezc/serverless-product-catalog-api/dynamodb/ddbinstrument"
	"github.com/e-lopezc/serverless-product-catalog-api/dynamodb/ddbsdk"
	"github.com/e-lopezc/serverless-product-catalog-api/dynamodb/ddbstore"
	"github.com/e-lopezc/serverless-product-catalog-api/logging"
)

// Backend is an opened storage backend for the catalog table.
type Backend struct {
	Store ddbiface.Store

	cfg    Config
	logger *zap.Logger
	close  func() error
}

// Open builds the configured store and wraps it with logging, metrics and
// tracing. Metrics are registered with reg when it is not nil.
func Open(ctx context.Context, cfg Config, logger *zap.Logger, reg prometheus.Registerer) (*Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	def := catalog.TableDefinition(cfg.TableName)

	var (
		inner   ddbiface.Store
		closeFn = func() error { return nil }
	)
	switch cfg.Backend {
	case BackendDynamoDB:
		opts := []ddbsdk.Option{ddbsdk.WithLogger(logger.Named("dynamodb"))}
		if cfg.Breaker.Disabled {
			opts = append(opts, ddbsdk.WithoutBreaker())
		} else {
			opts = append(opts, ddbsdk.WithBreaker(cfg.Breaker.settings()))
		}
		client, err := ddbsdk.NewFromConfig(ctx, ddbsdk.AWSOptions{
			Region:      cfg.Region,
			Endpoint:    cfg.Endpoint,
			MaxAttempts: cfg.MaxAttempts,
		}, def, opts...)
		if err != nil {
			return nil, err
		}
		inner = client
	case BackendBadger:
		store, err := ddbstore.New(ddbstore.StoreOptions{
			Path:     cfg.DataDir,
			InMemory: cfg.DataDir == "",
			Logger:   logging.Badger(logger),
		}, def)
		if err != nil {
			return nil, fmt.Errorf("failed to open badger store: %w", err)
		}
		inner, closeFn = store, store.Close
	}

	metrics, err := ddbinstrument.NewMetrics(reg)
	if err != nil {
		_ = closeFn()
		return nil, fmt.Errorf("failed to register storage metrics: %w", err)
	}

	logger.Info("storage opened",
		zap.String("backend", cfg.Backend),
		zap.String("table", cfg.TableName))

	return &Backend{
		Store: ddbinstrument.Wrap(inner,
			ddbinstrument.WithLogger(logger.Named("storage")),
			ddbinstrument.WithMetrics(metrics),
			ddbinstrument.WithTimeout(cfg.RequestTimeout)),
		cfg:    cfg,
		logger: logger,
		close:  closeFn,
	}, nil
}

// Catalog builds a catalog on the backend's store.
func (b *Backend) Catalog(opts ...catalog.Option) (*catalog.Catalog, error) {
	return catalog.New(b.Store, append(CatalogOptions(b.cfg, b.logger), opts...)...)
}

// Close releases the underlying store.
func (b *Backend) Close() error {
	return b.close()
}

// CatalogOptions translates cfg into catalog options.
func CatalogOptions(cfg Config, logger *zap.Logger) []catalog.Option {
	opts := []catalog.Option{
		catalog.WithStockRetries(cfg.StockRetries),
		catalog.WithPageSizes(cfg.DefaultPageSize, cfg.MaxPageSize),
	}
	if logger != nil {
		opts = append(opts, catalog.WithLogger(logger.Named("catalog")))
	}
	if cfg.TokenSecret != "" {
		opts = append(opts, catalog.WithTokenSecret([]byte(cfg.TokenSecret)))
	}
	return opts
}
