package ddbstore

import (
	"bytes"
	"context"
	"fmt"
	"maps"

	"github.com/dgraph-io/badger/v4"

	"github.com/e-lopezc/serverless-product-catalog-api/dynamodb/ddbiface"
)

// Query retrieves one page of items sharing a partition key value, in sort
// key order. When the limit is reached LastKey is set, matching DynamoDB,
// even if no further items exist.
func (s *Store) Query(ctx context.Context, q ddbiface.Query) (ddbiface.Page, error) {
	if err := ctx.Err(); err != nil {
		return ddbiface.Page{}, err
	}
	if q.Partition == nil {
		return ddbiface.Page{}, fmt.Errorf("partition key value is required")
	}
	enc, err := s.encoderFor(q.Index)
	if err != nil {
		return ddbiface.Page{}, err
	}
	prefix, err := enc.partitionPrefix(q.Partition)
	if err != nil {
		return ddbiface.Page{}, fmt.Errorf("encode partition key prefix: %w", err)
	}

	var startKey []byte
	if q.StartKey != nil {
		var ok bool
		startKey, ok, err = enc.encodeItemKey(q.StartKey)
		if err != nil {
			return ddbiface.Page{}, fmt.Errorf("encode start key: %w", err)
		}
		if !ok || !bytes.HasPrefix(startKey, prefix) {
			return ddbiface.Page{}, fmt.Errorf("exclusive start key is outside the queried partition")
		}
	}

	var page ddbiface.Page
	err = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = q.Descending
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		switch {
		case startKey != nil:
			it.Seek(startKey)
			if it.Valid() && bytes.Equal(it.Item().Key(), startKey) {
				it.Next()
			}
		case q.Descending:
			// Reverse seek lands on the last key at or before the target.
			end := incrementBytes(prefix)
			if end == nil {
				it.Rewind()
			} else {
				it.Seek(end)
			}
		default:
			it.Seek(prefix)
		}

		for ; it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var item ddbiface.Item
			if err := it.Item().Value(func(val []byte) error {
				var err error
				item, err = deserializeItem(val)
				return err
			}); err != nil {
				return err
			}

			page.Items = append(page.Items, item)

			if q.Limit > 0 && int32(len(page.Items)) >= q.Limit {
				page.LastKey = s.lastEvaluatedKey(enc, item)
				break
			}
		}
		return nil
	})
	if err != nil {
		return ddbiface.Page{}, err
	}
	return page, nil
}

// lastEvaluatedKey returns the key attributes DynamoDB would return for item:
// the index key plus the table key for index queries.
func (s *Store) lastEvaluatedKey(enc *keyEncoder, item ddbiface.Item) ddbiface.Item {
	out := extractKeyAttributes(item, s.definition.KeyDefinitions)
	if enc.gsiName != "" {
		maps.Copy(out, extractKeyAttributes(item, enc.keyDef))
	}
	return out
}
