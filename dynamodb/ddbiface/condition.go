package ddbiface

// Condition is a precondition on the current state of the item a write
// targets. Backends evaluate it atomically with the write.
//
// The concrete types are ItemCondition, ExistsCondition, EqualsCondition and
// LogicalCondition; build them with the constructors below.
type Condition interface {
	condition()
}

// ItemCondition holds when the target item exists (Exists) or does not.
type ItemCondition struct {
	Exists bool
}

// ExistsCondition holds when the attribute is present on the target item,
// or absent when Negate is set. An absent item has no attributes.
type ExistsCondition struct {
	Attr   string
	Negate bool
}

// EqualsCondition holds when the attribute is present and equal to Value.
// Value is marshaled with attributevalue.Marshal.
type EqualsCondition struct {
	Attr  string
	Value any
}

type LogicalOp string

const (
	OpAnd LogicalOp = "AND"
	OpOr  LogicalOp = "OR"
)

// LogicalCondition combines conditions. An empty And holds; an empty Or
// does not.
type LogicalCondition struct {
	Op    LogicalOp
	Conds []Condition
}

func (ItemCondition) condition()    {}
func (ExistsCondition) condition()  {}
func (EqualsCondition) condition()  {}
func (LogicalCondition) condition() {}

func ItemExists() Condition    { return ItemCondition{Exists: true} }
func ItemNotExists() Condition { return ItemCondition{Exists: false} }

func AttributeExists(attr string) Condition    { return ExistsCondition{Attr: attr} }
func AttributeNotExists(attr string) Condition { return ExistsCondition{Attr: attr, Negate: true} }

func AttributeEquals(attr string, value any) Condition {
	return EqualsCondition{Attr: attr, Value: value}
}

func And(conds ...Condition) Condition { return LogicalCondition{Op: OpAnd, Conds: conds} }
func Or(conds ...Condition) Condition  { return LogicalCondition{Op: OpOr, Conds: conds} }
