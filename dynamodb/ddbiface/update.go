package ddbiface

import "golang.org/x/exp/constraints"

type number interface {
	constraints.Integer | constraints.Float
}

// UpdateOp is one clause of an update. The concrete types are SetOp,
// RemoveOp and AddOp.
type UpdateOp interface {
	Field() string
	IsIdempotent() bool
}

// Update is an ordered list of update clauses. Each field may appear at most
// once.
type Update []UpdateOp

// SetOp sets a field regardless of any existing value.
type SetOp struct {
	Name  string
	Value any
}

func SetFieldOp[T any](field string, value T) SetOp {
	return SetOp{Name: field, Value: value}
}

func (o SetOp) Field() string      { return o.Name }
func (o SetOp) IsIdempotent() bool { return true }

// RemoveOp deletes a field from the item.
type RemoveOp struct {
	Name string
}

func RemoveFieldOp(field string) RemoveOp {
	return RemoveOp{Name: field}
}

func (o RemoveOp) Field() string      { return o.Name }
func (o RemoveOp) IsIdempotent() bool { return true }

// AddOp adds a number to a numeric field. A missing field counts as zero.
type AddOp struct {
	Name  string
	Value any
}

func AddNumberOp[T number](field string, value T) AddOp {
	return AddOp{Name: field, Value: value}
}

func (o AddOp) Field() string      { return o.Name }
func (o AddOp) IsIdempotent() bool { return false }

// IsIdempotent reports whether applying u twice has the same effect as
// applying it once.
func (u Update) IsIdempotent() bool {
	for _, op := range u {
		if !op.IsIdempotent() {
			return false
		}
	}
	return true
}
