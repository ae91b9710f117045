package ddbstore

import (
	"bytes"
	"fmt"
	"maps"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shopspring/decimal"

	"github.com/e-lopezc/serverless-product-catalog-api/dynamodb/ddbiface"
	"github.com/e-lopezc/serverless-product-catalog-api/dynamodb/table"
)

// attributeValuesEqual compares scalar attribute values. Numbers compare by
// value, so "1" equals "1.0".
func attributeValuesEqual(a, b types.AttributeValue) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}

	switch av := a.(type) {
	case *types.AttributeValueMemberS:
		if bv, ok := b.(*types.AttributeValueMemberS); ok {
			return av.Value == bv.Value
		}
	case *types.AttributeValueMemberN:
		if bv, ok := b.(*types.AttributeValueMemberN); ok {
			x, err1 := decimal.NewFromString(av.Value)
			y, err2 := decimal.NewFromString(bv.Value)
			if err1 != nil || err2 != nil {
				return av.Value == bv.Value
			}
			return x.Equal(y)
		}
	case *types.AttributeValueMemberB:
		if bv, ok := b.(*types.AttributeValueMemberB); ok {
			return bytes.Equal(av.Value, bv.Value)
		}
	case *types.AttributeValueMemberBOOL:
		if bv, ok := b.(*types.AttributeValueMemberBOOL); ok {
			return av.Value == bv.Value
		}
	case *types.AttributeValueMemberNULL:
		_, ok := b.(*types.AttributeValueMemberNULL)
		return ok
	}
	return false
}

// evalCondition evaluates cond against the current item. A nil item means
// the item does not exist. A nil cond always holds.
func evalCondition(cond ddbiface.Condition, item ddbiface.Item) (bool, error) {
	if cond == nil {
		return true, nil
	}
	switch c := cond.(type) {
	case ddbiface.ItemCondition:
		return (item != nil) == c.Exists, nil
	case ddbiface.ExistsCondition:
		_, ok := item[c.Attr]
		return ok != c.Negate, nil
	case ddbiface.EqualsCondition:
		want, err := attributevalue.Marshal(c.Value)
		if err != nil {
			return false, fmt.Errorf("marshal condition value for %q: %w", c.Attr, err)
		}
		got, ok := item[c.Attr]
		return ok && attributeValuesEqual(got, want), nil
	case ddbiface.LogicalCondition:
		switch c.Op {
		case ddbiface.OpAnd:
			for _, sub := range c.Conds {
				ok, err := evalCondition(sub, item)
				if err != nil || !ok {
					return false, err
				}
			}
			return true, nil
		case ddbiface.OpOr:
			for _, sub := range c.Conds {
				ok, err := evalCondition(sub, item)
				if err != nil {
					return false, err
				}
				if ok {
					return true, nil
				}
			}
			return false, nil
		default:
			return false, fmt.Errorf("unsupported logical operator %q", c.Op)
		}
	default:
		return false, fmt.Errorf("unsupported condition %T", cond)
	}
}

// applyUpdate returns a copy of item with upd applied. A nil item starts
// from the key attributes alone, as UpdateItem creates missing items.
func applyUpdate(key ddbiface.Item, item ddbiface.Item, upd ddbiface.Update, keyDef table.PrimaryKeyDefinition) (ddbiface.Item, error) {
	out := make(ddbiface.Item, len(item)+len(upd))
	if item == nil {
		maps.Copy(out, key)
	} else {
		maps.Copy(out, item)
	}

	keyAttrs := keyDef.Names()
	seen := make(map[string]bool, len(upd))
	for _, op := range upd {
		name := op.Field()
		for _, k := range keyAttrs {
			if name == k {
				return nil, fmt.Errorf("cannot update key attribute %q", name)
			}
		}
		if seen[name] {
			return nil, fmt.Errorf("two update clauses target %q", name)
		}
		seen[name] = true

		switch o := op.(type) {
		case ddbiface.SetOp:
			av, err := attributevalue.Marshal(o.Value)
			if err != nil {
				return nil, fmt.Errorf("marshal value for %q: %w", name, err)
			}
			out[name] = av
		case ddbiface.RemoveOp:
			delete(out, name)
		case ddbiface.AddOp:
			sum, err := addNumber(out[name], o.Value)
			if err != nil {
				return nil, fmt.Errorf("add to %q: %w", name, err)
			}
			out[name] = sum
		default:
			return nil, fmt.Errorf("unsupported update op %T", op)
		}
	}
	return out, nil
}

func addNumber(current types.AttributeValue, delta any) (types.AttributeValue, error) {
	dav, err := attributevalue.Marshal(delta)
	if err != nil {
		return nil, err
	}
	dn, ok := dav.(*types.AttributeValueMemberN)
	if !ok {
		return nil, fmt.Errorf("operand must be a number, got %T", delta)
	}
	d, err := decimal.NewFromString(dn.Value)
	if err != nil {
		return nil, err
	}
	base := decimal.Zero
	if current != nil {
		cn, ok := current.(*types.AttributeValueMemberN)
		if !ok {
			return nil, fmt.Errorf("existing value is %T, not a number", current)
		}
		base, err = decimal.NewFromString(cn.Value)
		if err != nil {
			return nil, err
		}
	}
	return &types.AttributeValueMemberN{Value: base.Add(d).String()}, nil
}

func extractKeyAttributes(item ddbiface.Item, keyDef table.PrimaryKeyDefinition) ddbiface.Item {
	result := make(ddbiface.Item, 2)
	for _, name := range keyDef.Names() {
		if v, ok := item[name]; ok {
			result[name] = v
		}
	}
	return result
}

func incrementBytes(b []byte) []byte {
	result := make([]byte, len(b))
	copy(result, b)
	for i := len(result) - 1; i >= 0; i-- {
		if result[i] < 0xFF {
			result[i]++
			return result[:i+1]
		}
	}
	// All bytes are 0xFF; nothing sorts after b with b as prefix.
	return nil
}
