package rules

import (
	"fmt"
	"strings"
	"time"

	"github.com/rustyeddy/rulesim/calendar"
)

// Kind tags the scalar held by a Value.
type Kind int

const (
	KindNone Kind = iota
	KindNumber
	KindDate
	KindBool
	KindString
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindDate:
		return "date"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindList:
		return "list"
	}
	return "none"
}

// Value is what a comparison field produces.
type Value struct {
	kind Kind
	num  float64
	date time.Time
	b    bool
	str  string
	list []Value
}

func Number(f float64) Value { return Value{kind: KindNumber, num: f} }
func Date(t time.Time) Value { return Value{kind: KindDate, date: calendar.Truncate(t)} }
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }
func String(s string) Value { return Value{kind: KindString, str: s} }
func List(items ...Value) Value { return Value{kind: KindList, list: items} }
func (v Value) Kind() Kind { return v.kind }
func (v Value) Time() time.Time { return v.date }
func (v Value) Items() []Value { return v.list }

// Float returns the numeric view of a number or bool.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case KindNumber:
		return v.num, true
	case KindBool:
		if v.b {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return fmt.Sprintf("%g", v.num)
	case KindDate:
		return calendar.Format(v.date)
	case KindBool:
		return fmt.Sprintf("%t", v.b)
	case KindString:
		return fmt.Sprintf("%q", v.str)
	case KindList:
		parts := make([]string, len(v.list))
		for i, it := range v.list {
			parts[i] = it.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return "<none>"
}

// valueOf converts a trade attribute into a Value.
func valueOf(x any) (Value, error) {
	switch t := x.(type) {
	case float64:
		return Number(t), nil
	case int:
		return Number(float64(t)), nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case time.Time:
		return Date(t), nil
	case Value:
		return t, nil
	}
	return Value{}, fmt.Errorf("%w: unsupported attribute type %T", ErrInvalidConfig, x)
}

// equal follows loose equality: numbers and bools compare as 1/0, other
// kinds only equal their own kind.
func equal(a, b Value) bool {
	if fa, ok := a.Float(); ok {
		if fb, ok := b.Float(); ok {
			return fa == fb
		}
		return false
	}
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindDate:
		return a.date.Equal(b.date)
	case KindString:
		return a.str == b.str
	case KindList:
		if len(a.list) != len(b.list) {
			return false
		}
		for i := range a.list {
			if !equal(a.list[i], b.list[i]) {
				return false
			}
		}
		return true
	}
	return true
}

// compare orders two values: numbers (and bools) against each other,
// dates against dates, strings against strings.
func compare(a, b Value) (int, error) {
	if fa, ok := a.Float(); ok {
		if fb, ok := b.Float(); ok {
			switch {
			case fa < fb:
				return -1, nil
			case fa > fb:
				return 1, nil
			}
			return 0, nil
		}
	}
	if a.kind == KindDate && b.kind == KindDate {
		return a.date.Compare(b.date), nil
	}
	if a.kind == KindString && b.kind == KindString {
		return strings.Compare(a.str, b.str), nil
	}
	return 0, fmt.Errorf("%w: cannot order %s against %s", ErrInvalidConfig, a.kind, b.kind)
}
