package ddbstore

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/dgraph-io/badger/v4"

	"github.com/e-lopezc/serverless-product-catalog-api/dynamodb/ddbiface"
)

// PutItem creates or replaces an item.
func (s *Store) PutItem(ctx context.Context, item ddbiface.Item, cond ddbiface.Condition) error {
	if item == nil {
		return fmt.Errorf("item is required")
	}
	key, _, err := s.main.encodeItemKey(item)
	if err != nil {
		return err
	}

	return s.update(ctx, func(txn *badger.Txn) error {
		oldItem, err := getItem(txn, key)
		if err != nil {
			return err
		}
		if err := checkCondition(cond, oldItem); err != nil {
			return err
		}
		return s.writeItem(txn, key, oldItem, item)
	})
}

func checkCondition(cond ddbiface.Condition, item ddbiface.Item) error {
	ok, err := evalCondition(cond, item)
	if err != nil {
		return fmt.Errorf("evaluate condition: %w", err)
	}
	if !ok {
		return conditionFailed()
	}
	return nil
}

func conditionFailed() error {
	msg := "The conditional request failed"
	return fmt.Errorf("%w: %w", ddbiface.ErrConditionFailed, &types.ConditionalCheckFailedException{Message: &msg})
}
