package filter

import (
	"fmt"
	"strconv"

	"github.com/mj3cheun/kruda/schema"
	"github.com/mj3cheun/kruda/table"
)

// CompileTester turns an expression into a zero-argument predicate bound to
// the row cursor. Column accessors and comparands are captured once at
// compile time, the scan loop only moves the cursor and calls the result.
func CompileTester(expr Expression, row *table.Row) (func() bool, error) {

	if len(expr.Clauses) == 0 {
		return func() bool { return true }, nil
	}

	clauses := make([]func() bool, len(expr.Clauses))

	for ci, clause := range expr.Clauses {

		rules := make([]func() bool, len(clause))
		for ri, rule := range clause {

			compiled, ruleErr := compileRule(rule, row)
			if ruleErr != nil {
				return nil, ruleErr
			}
			rules[ri] = compiled
		}

		// aggregation direction flips between the clause and the
		// expression level so DNF reads OR-of-AND and CNF AND-of-OR
		if expr.Mode == DNF {
			clauses[ci] = allOf(rules)
		} else {
			clauses[ci] = anyOf(rules)
		}
	}

	if expr.Mode == DNF {
		return anyOf(clauses), nil
	}
	return allOf(clauses), nil
}

func allOf(preds []func() bool) func() bool {
	return func() bool {
		for _, p := range preds {
			if !p() {
				return false
			}
		}
		return true
	}
}

func anyOf(preds []func() bool) func() bool {
	return func() bool {
		for _, p := range preds {
			if p() {
				return true
			}
		}
		return false
	}
}

func compileRule(rule Rule, row *table.Row) (func() bool, error) {

	col := row.ColumnIndex(rule.Field)
	if col < 0 {
		return nil, fmt.Errorf("%w: `%s`", schema.ErrColumnNotFound, rule.Field)
	}

	if row.ColumnType(col) == schema.ByteStringFieldType {
		return compileTextRule(rule, row, col)
	}

	return compileNumericRule(rule, row, col)
}

func compileTextRule(rule Rule, row *table.Row, col int) (func() bool, error) {

	switch rule.Operation {

	case OpEqual:
		needle := schema.LowerASCII(rule.Value.Single())
		return func() bool { return row.Bytes(col).EqualsFold(needle) }, nil

	case OpNotEqual:
		needle := schema.LowerASCII(rule.Value.Single())
		return func() bool { return !row.Bytes(col).EqualsFold(needle) }, nil

	case OpContains:
		needle := schema.LowerASCII(rule.Value.Single())
		return func() bool { return row.Bytes(col).ContainsFold(needle) }, nil

	case OpNotContains:
		needle := schema.LowerASCII(rule.Value.Single())
		return func() bool { return !row.Bytes(col).ContainsFold(needle) }, nil

	case OpIn, OpNotIn:

		needles := make([][]byte, len(rule.Value.List()))
		for i, s := range rule.Value.List() {
			needles[i] = schema.LowerASCII(s)
		}

		member := func() bool {
			bs := row.Bytes(col)
			for _, n := range needles {
				if bs.EqualsFold(n) {
					return true
				}
			}
			return false
		}

		if rule.Operation == OpIn {
			return member, nil
		}
		return func() bool { return !member() }, nil

	default:
		return nil, fmt.Errorf("operation %s is not defined for text column `%s`", rule.Operation.String(), rule.Field)
	}
}

func compileNumericRule(rule Rule, row *table.Row, col int) (func() bool, error) {

	parse := func(s string) (float64, error) {
		v, parseErr := strconv.ParseFloat(s, 64)
		if parseErr != nil {
			return 0, fmt.Errorf("rule on column `%s`: cannot parse `%s` as a number: %s", rule.Field, s, parseErr.Error())
		}
		return v, nil
	}

	switch rule.Operation {

	case OpIn, OpNotIn:

		comparands := make([]float64, len(rule.Value.List()))
		for i, s := range rule.Value.List() {
			v, parseErr := parse(s)
			if parseErr != nil {
				return nil, parseErr
			}
			comparands[i] = v
		}

		member := func() bool {
			v := row.Float(col)
			for _, c := range comparands {
				if v == c {
					return true
				}
			}
			return false
		}

		if rule.Operation == OpIn {
			return member, nil
		}
		return func() bool { return !member() }, nil

	case OpEqual, OpNotEqual, OpGreaterThan, OpGreaterThanOrEqual, OpLessThan, OpLessThanOrEqual:

		comparand, parseErr := parse(rule.Value.Single())
		if parseErr != nil {
			return nil, parseErr
		}

		switch rule.Operation {
		case OpEqual:
			return func() bool { return row.Float(col) == comparand }, nil
		case OpNotEqual:
			return func() bool { return row.Float(col) != comparand }, nil
		case OpGreaterThan:
			return func() bool { return row.Float(col) > comparand }, nil
		case OpGreaterThanOrEqual:
			return func() bool { return row.Float(col) >= comparand }, nil
		case OpLessThan:
			return func() bool { return row.Float(col) < comparand }, nil
		default:
			return func() bool { return row.Float(col) <= comparand }, nil
		}

	default:
		return nil, fmt.Errorf("operation %s is not defined for numeric column `%s`", rule.Operation.String(), rule.Field)
	}
}
