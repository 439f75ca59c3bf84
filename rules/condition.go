package rules

import "fmt"

// Operator is a relational operator between two comparisons.
type Operator string

const (
	GreaterThan        Operator = "greater_than"
	LessThan           Operator = "less_than"
	EqualTo            Operator = "equal_to"
	NotEqualTo         Operator = "not_equal_to"
	GreaterThanOrEqual Operator = "greater_than_or_equal_to"
	LessThanOrEqual    Operator = "less_than_or_equal_to"
	InRange            Operator = "in_range"
	NotInRange         Operator = "not_in_range"
)

func (o Operator) valid() bool {
	switch o {
	case GreaterThan, LessThan, EqualTo, NotEqualTo,
		GreaterThanOrEqual, LessThanOrEqual, InRange, NotInRange:
		return true
	}
	return false
}

// Condition evaluates left <op> right. It holds no state.
type Condition struct {
	Left  Comparison
	Right Comparison
	Op    Operator
}

// NewCondition validates the operator. A literal right-hand side is
// checked for range operators up front; other sources are checked when
// evaluated.
func NewCondition(left, right Comparison, op Operator) (Condition, error) {
	if !op.valid() {
		return Condition{}, fmt.Errorf("%w: unknown condition operator %q", ErrInvalidConfig, op)
	}
	if left.field == nil || right.field == nil {
		return Condition{}, fmt.Errorf("%w: condition needs two comparisons", ErrInvalidConfig)
	}
	if lit, ok := right.field.(LiteralField); ok && (op == InRange || op == NotInRange) {
		if err := checkRange(lit.Value); err != nil {
			return Condition{}, err
		}
	}
	return Condition{Left: left, Right: right, Op: op}, nil
}

func checkRange(v Value) error {
	if v.Kind() != KindList || len(v.Items()) < 2 {
		return fmt.Errorf("%w: range operand must be a list of at least two values, got %s", ErrInvalidConfig, v)
	}
	return nil
}

// Evaluate compares the two sides under ctx.
func (c Condition) Evaluate(ctx Context) (bool, error) {
	a, err := c.Left.Value(ctx)
	if err != nil {
		return false, err
	}
	b, err := c.Right.Value(ctx)
	if err != nil {
		return false, err
	}

	switch c.Op {
	case EqualTo:
		return equal(a, b), nil
	case NotEqualTo:
		return !equal(a, b), nil
	case InRange, NotInRange:
		if err := checkRange(b); err != nil {
			return false, err
		}
		in := false
		for _, item := range b.Items() {
			if equal(a, item) {
				in = true
				break
			}
		}
		return in == (c.Op == InRange), nil
	}

	cmp, err := compare(a, b)
	if err != nil {
		return false, err
	}
	switch c.Op {
	case GreaterThan:
		return cmp > 0, nil
	case LessThan:
		return cmp < 0, nil
	case GreaterThanOrEqual:
		return cmp >= 0, nil
	case LessThanOrEqual:
		return cmp <= 0, nil
	}
	return false, fmt.Errorf("%w: unknown condition operator %q", ErrInvalidConfig, c.Op)
}
