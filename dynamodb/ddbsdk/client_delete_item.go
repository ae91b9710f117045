package ddbsdk

import (
	"context"
	"fmt"

	dynamodbv2 "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/e-lopezc/serverless-product-catalog-api/dynamodb/ddbiface"
	"github.com/e-lopezc/serverless-product-catalog-api/dynamodb/table"
)

func (c *Client) DeleteItem(ctx context.Context, pk table.PrimaryKey, cond ddbiface.Condition) (ddbiface.Item, error) {
	key, err := c.key(pk)
	if err != nil {
		return nil, fmt.Errorf("failed to convert delete to delete item: %w", err)
	}
	expr, err := c.build(cond, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to convert delete to delete item: %w", err)
	}
	in := &dynamodbv2.DeleteItemInput{
		TableName:    &c.table.Name,
		Key:          key,
		ReturnValues: types.ReturnValueAllOld,
	}
	if expr != nil {
		in.ConditionExpression = expr.Condition()
		in.ExpressionAttributeNames = expr.Names()
		in.ExpressionAttributeValues = expr.Values()
	}

	out, err := call(c, func() (*dynamodbv2.DeleteItemOutput, error) {
		return c.awsddb.DeleteItem(ctx, in)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to delete item: %w", err)
	}
	if len(out.Attributes) == 0 {
		return nil, nil
	}
	return out.Attributes, nil
}
