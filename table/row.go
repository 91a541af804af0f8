package table

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/mj3cheun/kruda/schema"
)

// BoundsChecks toggles the debug-only row index assertion in Row/BinaryRow.
var BoundsChecks = true

// Accessor addresses a single field within a row: a column offset and type
// captured once when the row is built. Moving the row index is the only
// mutation needed to walk the table.
type Accessor struct {
	Offset uint32
	Size   uint32
	Type   schema.FieldType
}

// Row is a movable cursor over the table's rows with one accessor per
// column in memory order.
type Row struct {
	table *Table
	Index uint32

	accessors []Accessor
	binary    bool
}

func newRow(t *Table, index uint32, binary, checked bool) *Row {

	if checked && BoundsChecks && index >= t.RowCount() {
		panic(fmt.Sprintf("row index %d out of bounds, row count %d", index, t.RowCount()))
	}

	columns := t.header.Columns()
	accessors := make([]Accessor, len(columns))

	for i, c := range columns {
		accessors[i] = Accessor{
			Offset: c.Offset,
			Size:   c.Size,
			Type:   c.Type,
		}
	}

	return &Row{
		table:     t,
		Index:     index,
		accessors: accessors,
		binary:    binary,
	}
}

func (r *Row) Table() *Table {
	return r.table
}

// Seek moves the cursor. Accessors observe the new row immediately.
func (r *Row) Seek(index uint32) {
	r.Index = index
}

// ColumnIndex resolves a column name to its memory-order index, -1 when
// missing.
func (r *Row) ColumnIndex(name string) int {
	return r.table.header.ColumnIndex(name)
}

// Names maps every column name to its memory-order index.
func (r *Row) Names() map[string]int {
	columns := r.table.header.Columns()
	names := make(map[string]int, len(columns))
	for i, c := range columns {
		names[c.Name] = i
	}
	return names
}

func (r *Row) ColumnType(col int) schema.FieldType {
	return r.accessors[col].Type
}

func (r *Row) slot(col int) []byte {

	a := r.accessors[col]
	h := r.table.header

	start := h.DataLength + r.Index*h.RowLength + a.Offset
	return r.table.region.Bytes()[start : start+a.Size]
}

// Float reads a numeric column as float64. All numeric field widths fit
// float64 exactly.
func (r *Row) Float(col int) float64 {

	slot := r.slot(col)

	switch r.accessors[col].Type {
	case schema.Int8FieldType:
		return float64(int8(slot[0]))
	case schema.Uint8FieldType:
		return float64(slot[0])
	case schema.Int16FieldType:
		return float64(int16(binary.LittleEndian.Uint16(slot)))
	case schema.Uint16FieldType:
		return float64(binary.LittleEndian.Uint16(slot))
	case schema.Int32FieldType:
		return float64(int32(binary.LittleEndian.Uint32(slot)))
	case schema.Uint32FieldType:
		return float64(binary.LittleEndian.Uint32(slot))
	case schema.Float32FieldType:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(slot)))
	default:
		panic(fmt.Sprintf("float access to non numeric column of type %s", r.accessors[col].Type.String()))
	}
}

func (r *Row) SetFloat(col int, v float64) {

	slot := r.slot(col)

	switch r.accessors[col].Type {
	case schema.Int8FieldType:
		slot[0] = uint8(int8(v))
	case schema.Uint8FieldType:
		slot[0] = uint8(v)
	case schema.Int16FieldType:
		binary.LittleEndian.PutUint16(slot, uint16(int16(v)))
	case schema.Uint16FieldType:
		binary.LittleEndian.PutUint16(slot, uint16(v))
	case schema.Int32FieldType:
		binary.LittleEndian.PutUint32(slot, uint32(int32(v)))
	case schema.Uint32FieldType:
		binary.LittleEndian.PutUint32(slot, uint32(v))
	case schema.Float32FieldType:
		binary.LittleEndian.PutUint32(slot, math.Float32bits(float32(v)))
	default:
		panic(fmt.Sprintf("float write to non numeric column of type %s", r.accessors[col].Type.String()))
	}
}

// Bytes returns the zero-copy ByteString view of a text column.
func (r *Row) Bytes(col int) schema.ByteString {

	if r.accessors[col].Type != schema.ByteStringFieldType {
		panic(fmt.Sprintf("byte string access to column of type %s", r.accessors[col].Type.String()))
	}

	return schema.NewByteString(r.slot(col))
}

func (r *Row) SetBytes(col int, v []byte) {

	if r.accessors[col].Type != schema.ByteStringFieldType {
		panic(fmt.Sprintf("byte string write to column of type %s", r.accessors[col].Type.String()))
	}

	schema.WriteByteString(r.slot(col), v)
}

// Value reads a column as a natural Go value: float64 for numerics, a
// decoded string for text on a string row, a ByteString view on a binary
// row.
func (r *Row) Value(col int) any {

	if r.accessors[col].Type == schema.ByteStringFieldType {
		bs := r.Bytes(col)
		if r.binary {
			return bs
		}
		return bs.String()
	}

	return r.Float(col)
}

func (r *Row) SetValue(col int, v any) error {

	if r.accessors[col].Type == schema.ByteStringFieldType {
		switch tv := v.(type) {
		case string:
			r.SetBytes(col, []byte(tv))
		case []byte:
			r.SetBytes(col, tv)
		case schema.ByteString:
			r.SetBytes(col, tv.Bytes())
		default:
			return fmt.Errorf("cannot write %T into a byte string column", v)
		}
		return nil
	}

	f, convErr := toFloat(v)
	if convErr != nil {
		return convErr
	}

	r.SetFloat(col, f)
	return nil
}

func toFloat(v any) (float64, error) {
	switch tv := v.(type) {
	case float64:
		return tv, nil
	case float32:
		return float64(tv), nil
	case int:
		return float64(tv), nil
	case int8:
		return float64(tv), nil
	case int16:
		return float64(tv), nil
	case int32:
		return float64(tv), nil
	case int64:
		return float64(tv), nil
	case uint8:
		return float64(tv), nil
	case uint16:
		return float64(tv), nil
	case uint32:
		return float64(tv), nil
	case uint64:
		return float64(tv), nil
	default:
		return 0, fmt.Errorf("value of type %T is not numeric", v)
	}
}
