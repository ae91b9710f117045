package ddbsdk

import (
	"context"
	"fmt"

	dynamodbv2 "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/e-lopezc/serverless-product-catalog-api/dynamodb/ddbiface"
	"github.com/e-lopezc/serverless-product-catalog-api/dynamodb/table"
)

func (c *Client) UpdateItem(ctx context.Context, pk table.PrimaryKey, upd ddbiface.Update, cond ddbiface.Condition) (ddbiface.Item, error) {
	in, err := c.toUpdateItem(pk, upd, cond)
	if err != nil {
		return nil, fmt.Errorf("failed to convert update to update item: %w", err)
	}
	out, err := call(c, func() (*dynamodbv2.UpdateItemOutput, error) {
		return c.awsddb.UpdateItem(ctx, in, c.retryPolicy(upd, cond)...)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update item: %w", err)
	}
	return out.Attributes, nil
}

func (c *Client) toUpdateItem(pk table.PrimaryKey, upd ddbiface.Update, cond ddbiface.Condition) (*dynamodbv2.UpdateItemInput, error) {
	if len(upd) == 0 {
		return nil, fmt.Errorf("update requires at least one clause")
	}
	key, err := c.key(pk)
	if err != nil {
		return nil, err
	}
	expr, err := c.build(cond, upd)
	if err != nil {
		return nil, err
	}
	return &dynamodbv2.UpdateItemInput{
		TableName:                 &c.table.Name,
		Key:                       key,
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              types.ReturnValueAllNew,
	}, nil
}

// retryPolicy keeps SDK retries only for updates that are safe to repeat:
// idempotent clauses, or a condition that a repeated write would fail.
func (c *Client) retryPolicy(upd ddbiface.Update, cond ddbiface.Condition) []func(*dynamodbv2.Options) {
	if upd.IsIdempotent() || cond != nil {
		return nil
	}
	return []func(*dynamodbv2.Options){func(o *dynamodbv2.Options) { o.RetryMaxAttempts = 1 }}
}

// key marshals pk using the table's key schema.
func (c *Client) key(pk table.PrimaryKey) (map[string]types.AttributeValue, error) {
	return table.PrimaryKey{Definition: c.table.KeyDefinitions, Values: pk.Values}.Marshal()
}
