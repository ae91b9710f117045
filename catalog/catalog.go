// Package catalog stores brands, categories and products in one DynamoDB
// table and serves their access patterns: by id, list by kind, products by
// brand and products by category.
//
// All operations return *Error values; classify them with errors.Is against
// the Err* sentinels or with KindOf.
package catalog

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/e-lopezc/serverless-product-catalog-api/catalog/pagination"
	"github.com/e-lopezc/serverless-product-catalog-api/dynamodb/ddbiface"
)

const (
	entityBrand    = "brand"
	entityCategory = "category"
	entityProduct  = "product"

	DefaultStockRetries = 5
)

// Catalog bundles the repositories and the components they share.
type Catalog struct {
	Brands     *BrandRepository
	Categories *CategoryRepository
	Products   *ProductRepository
	Stock      *StockAdjuster
	References *ReferenceChecker
	Names      *UniquenessGuard
}

type options struct {
	logger       *zap.Logger
	clock        func() time.Time
	newID        func() string
	tokenSecret  []byte
	stockRetries int
	defaultPage  int
	maxPage      int
}

type Option func(*options)

func WithLogger(l *zap.Logger) Option { return func(o *options) { o.logger = l } }

// WithClock sets the source of created_at and updated_at.
func WithClock(now func() time.Time) Option { return func(o *options) { o.clock = now } }

// WithIDGenerator sets how new entity ids are made. Ids must not contain '#'.
func WithIDGenerator(newID func() string) Option { return func(o *options) { o.newID = newID } }

// WithTokenSecret sets the key continuation tokens are signed with. Without
// it tokens are signed with a random per-process key.
func WithTokenSecret(secret []byte) Option { return func(o *options) { o.tokenSecret = secret } }

// WithStockRetries bounds the read-modify-write attempts of AdjustStock.
func WithStockRetries(n int) Option { return func(o *options) { o.stockRetries = n } }

func WithPageSizes(defaultSize, maxSize int) Option {
	return func(o *options) { o.defaultPage, o.maxPage = defaultSize, maxSize }
}

// deps is what every repository needs.
type deps struct {
	store    ddbiface.Store
	logger   *zap.Logger
	now      func() time.Time
	newID    func() string
	validate *validator.Validate
	pager    *pager
	guard    *UniquenessGuard
	refs     *ReferenceChecker
}

func (d *deps) timestamp() time.Time {
	return d.now().UTC()
}

// New wires a catalog over store, whose table must be laid out as
// TableDefinition describes.
func New(store ddbiface.Store, opts ...Option) (*Catalog, error) {
	o := options{
		logger:       zap.NewNop(),
		clock:        time.Now,
		newID:        uuid.NewString,
		stockRetries: DefaultStockRetries,
		defaultPage:  DefaultPageSize,
		maxPage:      MaxPageSize,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.stockRetries < 1 {
		return nil, fmt.Errorf("stock retries must be positive, got %d", o.stockRetries)
	}
	if o.defaultPage < 1 || o.maxPage < o.defaultPage {
		return nil, fmt.Errorf("invalid page sizes: default %d, max %d", o.defaultPage, o.maxPage)
	}
	for _, idx := range []string{IndexByKind, IndexByBrand, IndexByCategory} {
		if _, ok := store.Table().GSI(idx); !ok {
			return nil, fmt.Errorf("table %s has no index %s", store.Table().Name, idx)
		}
	}

	var codec *pagination.Codec
	var err error
	if o.tokenSecret != nil {
		codec, err = pagination.NewCodec(o.tokenSecret)
	} else {
		codec, err = pagination.NewRandomCodec()
	}
	if err != nil {
		return nil, err
	}

	d := &deps{
		store:    store,
		logger:   o.logger,
		now:      o.clock,
		newID:    o.newID,
		validate: newValidator(),
		pager:    &pager{store: store, codec: codec, defaultSize: o.defaultPage, maxSize: o.maxPage},
		guard:    NewUniquenessGuard(store, o.logger),
		refs:     NewReferenceChecker(store),
	}
	c := &Catalog{
		Brands:     &BrandRepository{d},
		Categories: &CategoryRepository{d},
		Products:   &ProductRepository{d},
		Stock:      &StockAdjuster{deps: d, retries: o.stockRetries},
		References: d.refs,
		Names:      d.guard,
	}
	return c, nil
}
