package ddbsdk

import (
	"context"
	"fmt"

	dynamodbv2 "github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/e-lopezc/serverless-product-catalog-api/dynamodb/ddbiface"
)

func (c *Client) PutItem(ctx context.Context, item ddbiface.Item, cond ddbiface.Condition) error {
	in, err := c.toPutItem(item, cond)
	if err != nil {
		return fmt.Errorf("failed to convert put to put item: %w", err)
	}
	var optFns []func(*dynamodbv2.Options)
	if isCreate(cond) {
		// A create retried after a lost response would fail its own
		// condition and look like a duplicate, so it is sent once.
		optFns = append(optFns, func(o *dynamodbv2.Options) { o.RetryMaxAttempts = 1 })
	}
	_, err = call(c, func() (*dynamodbv2.PutItemOutput, error) {
		return c.awsddb.PutItem(ctx, in, optFns...)
	})
	if err != nil {
		return fmt.Errorf("failed to put item: %w", err)
	}
	return nil
}

func (c *Client) toPutItem(item ddbiface.Item, cond ddbiface.Condition) (*dynamodbv2.PutItemInput, error) {
	if item == nil {
		return nil, fmt.Errorf("item is required")
	}
	if _, err := c.table.ExtractPrimaryKey(item); err != nil {
		return nil, err
	}
	expr, err := c.build(cond, nil)
	if err != nil {
		return nil, err
	}
	in := &dynamodbv2.PutItemInput{
		TableName: &c.table.Name,
		Item:      item,
	}
	if expr != nil {
		in.ConditionExpression = expr.Condition()
		in.ExpressionAttributeNames = expr.Names()
		in.ExpressionAttributeValues = expr.Values()
	}
	return in, nil
}

// isCreate reports whether cond requires the item to be absent.
func isCreate(cond ddbiface.Condition) bool {
	ic, ok := cond.(ddbiface.ItemCondition)
	return ok && !ic.Exists
}
