// Package ddbiface provides the storage seam of the catalog.
// Store is satisfied by both ddbsdk.Client (AWS DynamoDB or DynamoDB Local)
// and ddbstore.Store (local BadgerDB-backed storage), allowing code to work
// with either without change.
package ddbiface

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/e-lopezc/serverless-product-catalog-api/dynamodb/table"
)

// Item represents a raw DynamoDB item.
// Callers should use attributevalue.UnmarshalMap to convert to their struct.
type Item = map[string]types.AttributeValue

// Store is a single-table, single-item-atomic key/value store with
// secondary indexes.
//
// Every call honors the deadline and cancellation of ctx. Failures are
// reported with the sentinels in this package where they apply, so callers
// can classify them with errors.Is regardless of backend.
type Store interface {
	// Table returns the definition of the table the store serves.
	Table() table.TableDefinition

	// GetItem is a strongly consistent point read. It returns ErrItemNotFound
	// when no item has the key.
	GetItem(ctx context.Context, key table.PrimaryKey) (Item, error)

	// PutItem creates or replaces an item. A nil cond writes unconditionally.
	PutItem(ctx context.Context, item Item, cond Condition) error

	// UpdateItem applies upd to the item with the given key and returns the
	// item as it is after the update.
	UpdateItem(ctx context.Context, key table.PrimaryKey, upd Update, cond Condition) (Item, error)

	// DeleteItem removes the item and returns it as it was. Deleting an
	// absent item without a condition succeeds with a nil item.
	DeleteItem(ctx context.Context, key table.PrimaryKey, cond Condition) (Item, error)

	// Query reads one page of items sharing a partition key value, from the
	// table or from one of its indexes.
	Query(ctx context.Context, q Query) (Page, error)
}

// Query selects items whose partition key (of the table or of Index)
// equals Partition, in sort key order.
type Query struct {
	// Index is the GSI name, or empty for the table itself.
	Index     string
	Partition any
	// Limit caps the number of returned items. Zero means no limit.
	Limit int32
	// StartKey is the exclusive start key returned by a previous page.
	StartKey   Item
	Descending bool
}

// Page is one page of query results. LastKey is nil on the last page.
//
// For an index query LastKey carries the index key attributes together with
// the table key attributes, as DynamoDB's LastEvaluatedKey does.
type Page struct {
	Items   []Item
	LastKey Item
}

// AWSDynamoClientV2 is the subset of the AWS SDK v2 *dynamodb.Client used by
// ddbsdk. It mirrors the method signatures of the SDK.
type AWSDynamoClientV2 interface {
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}
