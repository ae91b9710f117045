package catalog

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/e-lopezc/serverless-product-catalog-api/dynamodb/ddbiface"
	"github.com/e-lopezc/serverless-product-catalog-api/dynamodb/table"
)

// faultyStore fails selected calls of the wrapped store.
type faultyStore struct {
	ddbiface.Store
	updateErr error
	getErr    error
	queryErr  error
}

func (s *faultyStore) UpdateItem(ctx context.Context, key table.PrimaryKey, upd ddbiface.Update, cond ddbiface.Condition) (ddbiface.Item, error) {
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	return s.Store.UpdateItem(ctx, key, upd, cond)
}

func (s *faultyStore) GetItem(ctx context.Context, key table.PrimaryKey) (ddbiface.Item, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.Store.GetItem(ctx, key)
}

func (s *faultyStore) Query(ctx context.Context, q ddbiface.Query) (ddbiface.Page, error) {
	if s.queryErr != nil {
		return ddbiface.Page{}, s.queryErr
	}
	return s.Store.Query(ctx, q)
}

func TestSetStock(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()
	b, cat := seed(t, c)
	p, err := c.Products.Create(ctx, newProduct(b, cat, "Air Max"))
	require.NoError(t, err)

	require.NoError(t, c.Stock.SetStock(ctx, p.ID, 7))
	got, err := c.Products.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 7, got.StockQuantity)
	assert.Equal(t, p.Version+1, got.Version)

	assert.ErrorIs(t, c.Stock.SetStock(ctx, p.ID, -1), ErrInvalidArgument)
	assert.ErrorIs(t, c.Stock.SetStock(ctx, p.ID, MaxStock+1), ErrInvalidArgument)
	assert.ErrorIs(t, c.Stock.SetStock(ctx, "ghost", 1), ErrNotFound)
	assert.ErrorIs(t, c.Stock.SetStock(ctx, "", 1), ErrInvalidArgument)

	_, err = c.Products.GetByID(ctx, "ghost")
	assert.ErrorIs(t, err, ErrNotFound, "SetStock must not create items")
}

func TestAdjustStock_Bounds(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()
	b, cat := seed(t, c)
	p, err := c.Products.Create(ctx, newProduct(b, cat, "Air Max"))
	require.NoError(t, err)

	n, err := c.Stock.AdjustStock(ctx, p.ID, -100)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n, "draining to exactly zero is allowed")

	_, err = c.Stock.AdjustStock(ctx, p.ID, -1)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	_, err = c.Stock.AdjustStock(ctx, p.ID, MaxStock+1)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	n, err = c.Stock.AdjustStock(ctx, p.ID, 5)
	require.NoError(t, err)
	assert.EqualValues(t, 5, n)

	_, err = c.Stock.AdjustStock(ctx, "ghost", 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAdjustStock_ConcurrentNeverNegative(t *testing.T) {
	c := newTestCatalog(t, WithStockRetries(50))
	ctx := context.Background()
	b, cat := seed(t, c)
	in := newProduct(b, cat, "Air Max")
	in.StockQuantity = 50
	p, err := c.Products.Create(ctx, in)
	require.NoError(t, err)

	const workers = 12
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.Stock.AdjustStock(ctx, p.ID, -10)
		}(i)
	}
	wg.Wait()

	ok, insufficient := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case KindOf(err) == KindInsufficientStock:
			insufficient++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 5, ok)
	assert.Equal(t, workers-5, insufficient)

	got, err := c.Products.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, got.StockQuantity)
	assert.Equal(t, p.Version+5, got.Version)
}

func TestAdjustStock_RetriesExhausted(t *testing.T) {
	store := newTestStore(t)
	core, logs := observer.New(zapcore.DebugLevel)
	c := newTestCatalogOn(t, store, WithStockRetries(3), WithLogger(zap.New(core)))
	ctx := context.Background()
	b, cat := seed(t, c)
	p, err := c.Products.Create(ctx, newProduct(b, cat, "Air Max"))
	require.NoError(t, err)

	racing := newTestCatalogOn(t, &faultyStore{Store: store, updateErr: ddbiface.ErrConditionFailed},
		WithStockRetries(3), WithLogger(zap.New(core)))
	_, err = racing.Stock.AdjustStock(ctx, p.ID, -1)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, 3, logs.FilterMessage("stock adjustment lost race").Len())
	assert.Equal(t, 1, logs.FilterMessage("stock adjustment retries exhausted").Len())

	got, err := c.Products.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 100, got.StockQuantity)
}

func TestAdjustStock_ContentionExhausted(t *testing.T) {
	store := newTestStore(t)
	core, logs := observer.New(zapcore.DebugLevel)
	c := newTestCatalogOn(t, store)
	ctx := context.Background()
	b, cat := seed(t, c)
	p, err := c.Products.Create(ctx, newProduct(b, cat, "Air Max"))
	require.NoError(t, err)

	contended := &faultyStore{Store: store, updateErr: fmt.Errorf("%w: 16 conflicting transactions", ddbiface.ErrContention)}
	busy := newTestCatalogOn(t, contended, WithStockRetries(4), WithLogger(zap.New(core)))
	_, err = busy.Stock.AdjustStock(ctx, p.ID, -1)
	assert.ErrorIs(t, err, ErrConflict)
	assert.NotErrorIs(t, err, ErrStorageUnavailable)
	assert.Equal(t, 4, logs.FilterMessage("stock adjustment lost race").Len())

	err = busy.Stock.SetStock(ctx, p.ID, 3)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestAdjustStock_StorageFailure(t *testing.T) {
	store := newTestStore(t)
	c := newTestCatalogOn(t, store)
	ctx := context.Background()
	b, cat := seed(t, c)
	p, err := c.Products.Create(ctx, newProduct(b, cat, "Air Max"))
	require.NoError(t, err)

	broken := newTestCatalogOn(t, &faultyStore{Store: store, updateErr: ddbiface.ErrUnavailable})
	_, err = broken.Stock.AdjustStock(ctx, p.ID, -1)
	assert.ErrorIs(t, err, ErrStorageUnavailable)
	assert.ErrorIs(t, err, ddbiface.ErrUnavailable)

	slow := newTestCatalogOn(t, &faultyStore{Store: store, getErr: ddbiface.ErrTimeout})
	_, err = slow.Stock.AdjustStock(ctx, p.ID, -1)
	assert.ErrorIs(t, err, ErrTimeout)
}
