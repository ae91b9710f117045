package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/e-lopezc/serverless-product-catalog-api/catalog/keys"
	"github.com/e-lopezc/serverless-product-catalog-api/dynamodb/ddbiface"
)

// MaxStock is the largest stock quantity a product may hold.
const MaxStock = 999999

// StockAdjuster mutates product stock. Writes are single-item conditional
// updates, so concurrent adjustments of one product serialize in the store.
type StockAdjuster struct {
	*deps
	retries int
}

// SetStock sets the stock of the product to quantity.
func (s *StockAdjuster) SetStock(ctx context.Context, productID string, quantity int64) error {
	if quantity < 0 || quantity > MaxStock {
		return invalidArgument(entityProduct, AttrStock, fmt.Sprintf("must be between 0 and %d", MaxStock))
	}
	key, err := s.key(keys.KindProduct, entityProduct, productID)
	if err != nil {
		return err
	}
	_, err = s.store.UpdateItem(ctx, key, s.stockUpdate(quantity), ddbiface.ItemExists())
	if errors.Is(err, ddbiface.ErrConditionFailed) {
		return notFound(entityProduct, productID)
	}
	return storageError(entityProduct, productID, err)
}

// AdjustStock adds delta to the stock of the product and returns the new
// quantity. An adjustment that would leave the stock negative fails with
// InsufficientStock and changes nothing.
//
// Each attempt reads the product and writes the new quantity on condition
// that the version is unchanged. Losing that race, or the store reporting
// write contention, restarts the attempt; once the retry budget is spent the
// call fails with Conflict.
func (s *StockAdjuster) AdjustStock(ctx context.Context, productID string, delta int64) (int64, error) {
	key, err := s.key(keys.KindProduct, entityProduct, productID)
	if err != nil {
		return 0, err
	}
	for attempt := 1; attempt <= s.retries; attempt++ {
		item, err := s.get(ctx, keys.KindProduct, entityProduct, productID)
		if err != nil {
			return 0, err
		}
		stock, version, err := stockAndVersion(item)
		if err != nil {
			return 0, &Error{Kind: KindInternal, Entity: entityProduct, ID: productID, Err: err}
		}

		next := stock + delta
		if next < 0 {
			return 0, &Error{
				Kind: KindInsufficientStock, Entity: entityProduct, ID: productID, Field: AttrStock,
				Message: fmt.Sprintf("have %d, adjustment %d", stock, delta),
			}
		}
		if next > MaxStock {
			return 0, invalidArgument(entityProduct, AttrStock, fmt.Sprintf("would exceed %d", MaxStock))
		}

		_, err = s.store.UpdateItem(ctx, key, s.stockUpdate(next), ddbiface.AttributeEquals(AttrVersion, version))
		if errors.Is(err, ddbiface.ErrConditionFailed) || errors.Is(err, ddbiface.ErrContention) {
			s.logger.Debug("stock adjustment lost race",
				zap.String("id", productID), zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return 0, storageError(entityProduct, productID, err)
		}
		return next, nil
	}
	s.logger.Warn("stock adjustment retries exhausted",
		zap.String("id", productID), zap.Int("retries", s.retries))
	return 0, conflict(entityProduct, productID, "stock adjustment retries exhausted")
}

func (s *StockAdjuster) stockUpdate(quantity int64) ddbiface.Update {
	return ddbiface.Update{
		ddbiface.SetFieldOp(AttrStock, quantity),
		ddbiface.SetFieldOp(AttrUpdatedAt, s.timestamp()),
		ddbiface.AddNumberOp(AttrVersion, 1),
	}
}

func stockAndVersion(item ddbiface.Item) (stock, version int64, err error) {
	var rec struct {
		Stock   int64 `dynamodbav:"stock_quantity"`
		Version int64 `dynamodbav:"version"`
	}
	if err := decodeItem(keys.KindProduct, item, &rec); err != nil {
		return 0, 0, err
	}
	if _, ok := item[AttrVersion].(*types.AttributeValueMemberN); !ok {
		return 0, 0, errors.New("product has no version")
	}
	return rec.Stock, rec.Version, nil
}
