package filter

import (
	"encoding/json"
	"fmt"
)

type Op uint8

const (
	OpEqual Op = iota
	OpNotEqual
	OpContains
	OpNotContains
	OpIn
	OpNotIn
	OpGreaterThan
	OpGreaterThanOrEqual
	OpLessThan
	OpLessThanOrEqual
)

var opNames = map[Op]string{
	OpEqual:              "equal",
	OpNotEqual:           "notEqual",
	OpContains:           "contains",
	OpNotContains:        "notContains",
	OpIn:                 "in",
	OpNotIn:              "notIn",
	OpGreaterThan:        "greaterThan",
	OpGreaterThanOrEqual: "greaterThanOrEqual",
	OpLessThan:           "lessThan",
	OpLessThanOrEqual:    "lessThanOrEqual",
}

func (o Op) String() string {
	name, ok := opNames[o]
	if !ok {
		panic(fmt.Sprintf("unknown operation %d", uint8(o)))
	}
	return name
}

func ParseOp(name string) (Op, error) {
	for op, n := range opNames {
		if n == name {
			return op, nil
		}
	}
	return 0, fmt.Errorf("unknown operation `%s`", name)
}

func (o Op) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.String())
}

func (o *Op) UnmarshalJSON(data []byte) error {

	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}

	parsed, parseErr := ParseOp(name)
	if parseErr != nil {
		return parseErr
	}

	*o = parsed
	return nil
}

// Value is a rule comparand: one string, or an array of strings for
// in/notIn. Numeric rules reparse the strings at compile time.
type Value struct {
	items []string
	list  bool
}

func NewValue(s string) Value {
	return Value{items: []string{s}}
}

func NewValueList(items ...string) Value {
	return Value{items: items, list: true}
}

func (v Value) IsList() bool {
	return v.list
}

func (v Value) Single() string {
	if len(v.items) == 0 {
		return ""
	}
	return v.items[0]
}

func (v Value) List() []string {
	return v.items
}

func (v Value) MarshalJSON() ([]byte, error) {
	if v.list {
		return json.Marshal(v.items)
	}
	return json.Marshal(v.Single())
}

func (v *Value) UnmarshalJSON(data []byte) error {

	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*v = NewValue(single)
		return nil
	}

	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("rule value must be a string or an array of strings: %s", err.Error())
	}

	*v = NewValueList(many...)
	return nil
}

type Rule struct {
	Field     string `json:"field"`
	Operation Op     `json:"operation"`
	Value     Value  `json:"value"`
}

// Clause is an ordered run of rules. Under DNF its rules are ANDed, under
// CNF they are ORed.
type Clause []Rule

type Mode uint8

const (
	DNF Mode = iota
	CNF
)

func (m Mode) String() string {
	switch m {
	case DNF:
		return "DNF"
	case CNF:
		return "CNF"
	default:
		panic(fmt.Sprintf("unknown filter mode %d", uint8(m)))
	}
}

func (m Mode) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

func (m *Mode) UnmarshalJSON(data []byte) error {

	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}

	switch name {
	case "DNF":
		*m = DNF
	case "CNF":
		*m = CNF
	default:
		return fmt.Errorf("unknown filter mode `%s`", name)
	}

	return nil
}

// Expression is the full filter: DNF is an OR of AND-clauses, CNF an AND of
// OR-clauses. An empty expression matches every row.
type Expression struct {
	Mode    Mode     `json:"mode"`
	Clauses []Clause `json:"clauses"`
}
