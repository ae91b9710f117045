package ddbsdk

import (
	"context"
	"fmt"

	dynamodbv2 "github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/e-lopezc/serverless-product-catalog-api/dynamodb/ddbiface"
	"github.com/e-lopezc/serverless-product-catalog-api/dynamodb/table"
)

// GetItem is a strongly consistent read by primary key.
func (c *Client) GetItem(ctx context.Context, pk table.PrimaryKey) (ddbiface.Item, error) {
	key, err := c.key(pk)
	if err != nil {
		return nil, fmt.Errorf("invalid key %s: %w", pk, err)
	}
	out, err := call(c, func() (*dynamodbv2.GetItemOutput, error) {
		return c.awsddb.GetItem(ctx, &dynamodbv2.GetItemInput{
			TableName:      &c.table.Name,
			Key:            key,
			ConsistentRead: ptr(true),
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	if out.Item == nil {
		return nil, ddbiface.ErrItemNotFound
	}
	return out.Item, nil
}
