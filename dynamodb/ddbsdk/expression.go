package ddbsdk

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"

	"github.com/e-lopezc/serverless-product-catalog-api/dynamodb/ddbiface"
)

// conditionBuilder translates a condition tree into an expression builder.
// ok is false when the condition places no constraint.
func (c *Client) conditionBuilder(cond ddbiface.Condition) (b expression.ConditionBuilder, ok bool, err error) {
	if cond == nil {
		return b, false, nil
	}
	pkName := expression.Name(c.table.KeyDefinitions.PartitionKey.Name)

	switch v := cond.(type) {
	case ddbiface.ItemCondition:
		if v.Exists {
			return expression.AttributeExists(pkName), true, nil
		}
		return expression.AttributeNotExists(pkName), true, nil
	case ddbiface.ExistsCondition:
		if v.Negate {
			return expression.AttributeNotExists(expression.Name(v.Attr)), true, nil
		}
		return expression.AttributeExists(expression.Name(v.Attr)), true, nil
	case ddbiface.EqualsCondition:
		return expression.Equal(expression.Name(v.Attr), expression.Value(v.Value)), true, nil
	case ddbiface.LogicalCondition:
		var subs []expression.ConditionBuilder
		for _, sub := range v.Conds {
			sb, ok, err := c.conditionBuilder(sub)
			if err != nil {
				return b, false, err
			}
			if ok {
				subs = append(subs, sb)
			} else if v.Op == ddbiface.OpOr {
				// One operand always holds, so the whole disjunction does.
				return b, false, nil
			}
		}
		switch {
		case len(subs) == 0 && v.Op == ddbiface.OpOr:
			return b, false, fmt.Errorf("empty OR condition can never hold")
		case len(subs) == 0:
			return b, false, nil
		case len(subs) == 1:
			return subs[0], true, nil
		case v.Op == ddbiface.OpAnd:
			return expression.And(subs[0], subs[1], subs[2:]...), true, nil
		case v.Op == ddbiface.OpOr:
			return expression.Or(subs[0], subs[1], subs[2:]...), true, nil
		default:
			return b, false, fmt.Errorf("unsupported logical operator %q", v.Op)
		}
	default:
		return b, false, fmt.Errorf("unsupported condition %T", cond)
	}
}

func updateBuilder(upd ddbiface.Update) (expression.UpdateBuilder, error) {
	var b expression.UpdateBuilder
	for _, op := range upd {
		switch o := op.(type) {
		case ddbiface.SetOp:
			b = b.Set(expression.Name(o.Name), expression.Value(o.Value))
		case ddbiface.RemoveOp:
			b = b.Remove(expression.Name(o.Name))
		case ddbiface.AddOp:
			b = b.Add(expression.Name(o.Name), expression.Value(o.Value))
		default:
			return b, fmt.Errorf("unsupported update op %T", op)
		}
	}
	return b, nil
}

// build assembles the expression for a write, with or without an update.
func (c *Client) build(cond ddbiface.Condition, upd ddbiface.Update) (*expression.Expression, error) {
	cb, hasCond, err := c.conditionBuilder(cond)
	if err != nil {
		return nil, err
	}
	if !hasCond && len(upd) == 0 {
		return nil, nil
	}
	b := expression.NewBuilder()
	if hasCond {
		b = b.WithCondition(cb)
	}
	if len(upd) > 0 {
		ub, err := updateBuilder(upd)
		if err != nil {
			return nil, err
		}
		b = b.WithUpdate(ub)
	}
	expr, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}
	return &expr, nil
}
