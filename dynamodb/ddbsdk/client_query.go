package ddbsdk

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	dynamodbv2 "github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/e-lopezc/serverless-product-catalog-api/dynamodb/ddbiface"
)

// Query reads one page. Table queries are strongly consistent; GSI queries
// are eventually consistent because DynamoDB offers nothing else on them.
func (c *Client) Query(ctx context.Context, q ddbiface.Query) (ddbiface.Page, error) {
	in, err := c.toQuery(q)
	if err != nil {
		return ddbiface.Page{}, fmt.Errorf("failed to build query expression: %w", err)
	}
	out, err := call(c, func() (*dynamodbv2.QueryOutput, error) {
		return c.awsddb.Query(ctx, in)
	})
	if err != nil {
		return ddbiface.Page{}, fmt.Errorf("query failed: %w", err)
	}
	page := ddbiface.Page{Items: out.Items}
	if len(out.LastEvaluatedKey) > 0 {
		page.LastKey = out.LastEvaluatedKey
	}
	return page, nil
}

func (c *Client) toQuery(q ddbiface.Query) (*dynamodbv2.QueryInput, error) {
	if q.Partition == nil {
		return nil, fmt.Errorf("partition key value is required")
	}
	keyDefs, err := c.table.KeyDefinitionsFor(q.Index)
	if err != nil {
		return nil, err
	}
	key := expression.KeyEqual(expression.Key(keyDefs.PartitionKey.Name), expression.Value(q.Partition))
	expr, err := expression.NewBuilder().WithKeyCondition(key).Build()
	if err != nil {
		return nil, err
	}

	in := &dynamodbv2.QueryInput{
		TableName:                 &c.table.Name,
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          ptr(!q.Descending),
		ExclusiveStartKey:         q.StartKey,
	}
	if q.Index != "" {
		in.IndexName = ptr(q.Index)
	} else {
		in.ConsistentRead = ptr(true)
	}
	if q.Limit > 0 {
		in.Limit = ptr(q.Limit)
	}
	return in, nil
}
