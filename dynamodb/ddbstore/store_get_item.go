package ddbstore

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/e-lopezc/serverless-product-catalog-api/dynamodb/ddbiface"
	"github.com/e-lopezc/serverless-product-catalog-api/dynamodb/table"
)

// GetItem retrieves a single item by its primary key.
func (s *Store) GetItem(ctx context.Context, pk table.PrimaryKey) (ddbiface.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key, err := s.encodeKey(pk)
	if err != nil {
		return nil, err
	}

	var item ddbiface.Item
	err = s.db.View(func(txn *badger.Txn) error {
		var err error
		item, err = getItem(txn, key)
		return err
	})
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ddbiface.ErrItemNotFound
	}
	return item, nil
}

// encodeKey validates pk against the table schema and encodes it.
func (s *Store) encodeKey(pk table.PrimaryKey) ([]byte, error) {
	attrs, err := table.PrimaryKey{Definition: s.definition.KeyDefinitions, Values: pk.Values}.Marshal()
	if err != nil {
		return nil, fmt.Errorf("invalid key %s: %w", pk, err)
	}
	key, _, err := s.main.encodeItemKey(attrs)
	if err != nil {
		return nil, fmt.Errorf("encode key: %w", err)
	}
	return key, nil
}
