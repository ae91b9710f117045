package ddbstore

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/e-lopezc/serverless-product-catalog-api/dynamodb/ddbiface"
	"github.com/e-lopezc/serverless-product-catalog-api/dynamodb/table"
)

// UpdateItem modifies an existing item's attributes, or creates a new item
// if it doesn't exist and the condition allows it. It returns the item as it
// is after the update.
func (s *Store) UpdateItem(ctx context.Context, pk table.PrimaryKey, upd ddbiface.Update, cond ddbiface.Condition) (ddbiface.Item, error) {
	if len(upd) == 0 {
		return nil, fmt.Errorf("update requires at least one clause")
	}
	keyAttrs, err := table.PrimaryKey{Definition: s.definition.KeyDefinitions, Values: pk.Values}.Marshal()
	if err != nil {
		return nil, fmt.Errorf("invalid key %s: %w", pk, err)
	}
	key, err := s.encodeKey(pk)
	if err != nil {
		return nil, err
	}

	var newItem ddbiface.Item
	err = s.update(ctx, func(txn *badger.Txn) error {
		oldItem, err := getItem(txn, key)
		if err != nil {
			return err
		}
		if err := checkCondition(cond, oldItem); err != nil {
			return err
		}
		newItem, err = applyUpdate(keyAttrs, oldItem, upd, s.definition.KeyDefinitions)
		if err != nil {
			return err
		}
		return s.writeItem(txn, key, oldItem, newItem)
	})
	if err != nil {
		return nil, err
	}
	return newItem, nil
}
