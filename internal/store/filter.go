package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aquagest/apiserver/types"
)

// Op is a comparison operator usable in a Condition.
type Op string

const (
	OpEq  Op = "="
	OpNe  Op = "<>"
	OpGte Op = ">="
	OpLt  Op = "<"
)

// Condition compares one column against a value.
type Condition struct {
	Column string
	Op     Op
	Value  any
}

// Filter is a conjunction of conditions. A nil Filter matches every row.
type Filter []Condition

func Eq(column string, value any) Condition  { return Condition{Column: column, Op: OpEq, Value: value} }
func Ne(column string, value any) Condition  { return Condition{Column: column, Op: OpNe, Value: value} }
func Gte(column string, value any) Condition { return Condition{Column: column, Op: OpGte, Value: value} }
func Lt(column string, value any) Condition  { return Condition{Column: column, Op: OpLt, Value: value} }

// Where builds a Filter from conditions.
func Where(conds ...Condition) Filter {
	return Filter(conds)
}

// ErrUnknownColumn is returned when a filter names a column the table does
// not expose.
type ErrUnknownColumn struct {
	Table  string
	Column string
}

func (e ErrUnknownColumn) Error() string {
	return fmt.Sprintf("unknown column %q for %s", e.Column, e.Table)
}

// Table describes the filterable columns of a relation.
type Table struct {
	Name    string
	Columns []string
}

func (t Table) has(column string) bool {
	for _, c := range t.Columns {
		if c == column {
			return true
		}
	}
	return false
}

// Validate checks that every condition names a known column and a known
// operator.
func (t Table) Validate(f Filter) error {
	for _, cond := range f {
		if !t.has(cond.Column) {
			return ErrUnknownColumn{Table: t.Name, Column: cond.Column}
		}
		switch cond.Op {
		case OpEq, OpNe, OpGte, OpLt:
		default:
			return fmt.Errorf("unsupported operator %q", cond.Op)
		}
	}
	return nil
}

// where renders the filter as a SQL WHERE clause with positional arguments.
func (t Table) where(f Filter) (string, []any, error) {
	if err := t.Validate(f); err != nil {
		return "", nil, err
	}
	if len(f) == 0 {
		return "", nil, nil
	}
	parts := make([]string, 0, len(f))
	args := make([]any, 0, len(f))
	for i, cond := range f {
		parts = append(parts, fmt.Sprintf("%s %s $%d", cond.Column, cond.Op, i+1))
		args = append(args, sqlValue(cond.Value))
	}
	return " WHERE " + strings.Join(parts, " AND "), args, nil
}

func sqlValue(v any) any {
	if role, ok := v.(types.Role); ok {
		return string(role)
	}
	return v
}

func (t Table) count(ctx context.Context, db *sql.DB, f Filter) (int, error) {
	clause, args, err := t.where(f)
	if err != nil {
		return 0, err
	}
	var total int
	query := "SELECT COUNT(1) FROM " + t.Name + clause
	if err := db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// Matches reports whether value satisfies the condition. It is used by
// collaborators that evaluate filters outside SQL.
func (c Condition) Matches(value any) bool {
	cmp, ok := compare(normalize(value), normalize(c.Value))
	if !ok {
		return false
	}
	switch c.Op {
	case OpEq:
		return cmp == 0
	case OpNe:
		return cmp != 0
	case OpGte:
		return cmp >= 0
	case OpLt:
		return cmp < 0
	default:
		return false
	}
}

func normalize(v any) any {
	switch x := v.(type) {
	case types.Role:
		return string(x)
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case *int:
		if x == nil {
			return nil
		}
		return int64(*x)
	case *string:
		if x == nil {
			return nil
		}
		return *x
	default:
		return v
	}
}

func compare(a, b any) (int, bool) {
	switch x := a.(type) {
	case int64:
		y, ok := b.(int64)
		if !ok {
			return 0, false
		}
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	case string:
		y, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(x, y), true
	case time.Time:
		y, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return x.Compare(y), true
	case decimal.Decimal:
		y, ok := b.(decimal.Decimal)
		if !ok {
			return 0, false
		}
		return x.Cmp(y), true
	case nil:
		if b == nil {
			return 0, true
		}
		return 0, false
	default:
		return 0, false
	}
}
