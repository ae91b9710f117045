package catalog

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/e-lopezc/serverless-product-catalog-api/catalog/pagination"
	"github.com/e-lopezc/serverless-product-catalog-api/dynamodb/ddbiface"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 100
)

// pager reads one caller-visible page from an index partition.
type pager struct {
	store       ddbiface.Store
	codec       *pagination.Codec
	defaultSize int
	maxSize     int
}

func (p *pager) size(entity string, requested int) (int, error) {
	switch {
	case requested < 0:
		return 0, invalidArgument(entity, "page_size", "must not be negative")
	case requested == 0:
		return p.defaultSize, nil
	case requested > p.maxSize:
		return p.maxSize, nil
	}
	return requested, nil
}

// page returns at most size items of the partition after token, and the
// token of the next page. One item beyond the page is read so that the
// last page carries no token.
func (p *pager) page(ctx context.Context, entity, index, partition string, size int, token string) ([]ddbiface.Item, string, error) {
	size, err := p.size(entity, size)
	if err != nil {
		return nil, "", err
	}
	attrs, ok := indexKeyAttrs[index]
	if !ok {
		return nil, "", fmt.Errorf("no pagination key for index %s", index)
	}
	start, err := p.codec.Decode(token, attrs)
	if err != nil {
		return nil, "", storageError(entity, "", err)
	}
	if start != nil && !partitionMatches(start, attrs[0], partition) {
		return nil, "", &Error{Kind: KindInvalidToken, Entity: entity, Message: "token belongs to another listing"}
	}

	var items []ddbiface.Item
	for len(items) <= size {
		if err := ctx.Err(); err != nil {
			return nil, "", storageError(entity, "", err)
		}
		res, err := p.store.Query(ctx, ddbiface.Query{
			Index:     index,
			Partition: partition,
			Limit:     int32(size + 1 - len(items)),
			StartKey:  start,
		})
		if err != nil {
			return nil, "", storageError(entity, "", err)
		}
		items = append(items, res.Items...)
		if res.LastKey == nil {
			break
		}
		start = res.LastKey
	}

	if len(items) <= size {
		return items, "", nil
	}
	items = items[:size]
	next, err := p.codec.Encode(pick(items[size-1], attrs))
	if err != nil {
		return nil, "", &Error{Kind: KindInternal, Entity: entity, Err: err}
	}
	return items, next, nil
}

func partitionMatches(key ddbiface.Item, attr, partition string) bool {
	v, ok := key[attr].(*types.AttributeValueMemberS)
	return ok && v.Value == partition
}

// pick returns the subset of item named by attrs.
func pick(item ddbiface.Item, attrs []string) ddbiface.Item {
	key := make(ddbiface.Item, len(attrs))
	for _, a := range attrs {
		if av, ok := item[a]; ok {
			key[a] = av
		}
	}
	return key
}
