package ddbstore

import (
	"context"

	"github.com/dgraph-io/badger/v4"

	"github.com/e-lopezc/serverless-product-catalog-api/dynamodb/ddbiface"
	"github.com/e-lopezc/serverless-product-catalog-api/dynamodb/table"
)

// DeleteItem removes an item and its GSI entries by primary key.
func (s *Store) DeleteItem(ctx context.Context, pk table.PrimaryKey, cond ddbiface.Condition) (ddbiface.Item, error) {
	key, err := s.encodeKey(pk)
	if err != nil {
		return nil, err
	}

	var oldItem ddbiface.Item
	err = s.update(ctx, func(txn *badger.Txn) error {
		var err error
		oldItem, err = getItem(txn, key)
		if err != nil {
			return err
		}
		if err := checkCondition(cond, oldItem); err != nil {
			return err
		}
		if oldItem == nil {
			return nil // Nothing to delete
		}
		return s.writeItem(txn, key, oldItem, nil)
	})
	if err != nil {
		return nil, err
	}
	return oldItem, nil
}
