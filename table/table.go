package table

import (
	"github.com/mj3cheun/kruda/mem"
	"github.com/mj3cheun/kruda/schema"
)

// Table composes a header with the byte region holding its rows. The
// region's bytes are the single source of truth, a table value is just a
// view and any number of them may alias one region.
type Table struct {
	region mem.Region
	header *schema.Header
}

// New interprets an existing header at the start of the region.
func New(region mem.Region) (*Table, error) {

	header, readErr := schema.ReadHeader(region)
	if readErr != nil {
		return nil, readErr
	}

	return &Table{region: region, header: header}, nil
}

// EmptyFromColumns stamps a fresh zero-row table onto the region.
func EmptyFromColumns(descriptors []schema.ColumnDescriptor, region mem.Region) (*Table, error) {

	header, buildErr := schema.EmptyFromColumns(descriptors, region)
	if buildErr != nil {
		return nil, buildErr
	}

	return &Table{region: region, header: header}, nil
}

// EmptyFromHeader stamps a table built from an already-laid-out header
// descriptor onto the region.
func EmptyFromHeader(desc schema.HeaderDescriptor, region mem.Region) (*Table, error) {

	header, buildErr := schema.EmptyFromHeader(desc, region)
	if buildErr != nil {
		return nil, buildErr
	}

	return &Table{region: region, header: header}, nil
}

// EmptyFromBinaryHeader stamps a prebuilt header image onto the region with
// a zero row count.
func EmptyFromBinaryHeader(image []byte, region mem.Region) (*Table, error) {

	header, stampErr := schema.EmptyFromBinaryHeader(image, region)
	if stampErr != nil {
		return nil, stampErr
	}

	return &Table{region: region, header: header}, nil
}

func (t *Table) Header() *schema.Header {
	return t.header
}

func (t *Table) Region() mem.Region {
	return t.region
}

func (t *Table) RowCount() uint32 {
	return t.header.RowCount()
}

// AddRows grows the row count atomically, returning the previous count.
// The caller owns rows [old, old+n).
func (t *Table) AddRows(n uint32) uint32 {
	return t.header.AddRows(n)
}

// Row returns a cursor positioned at index whose text columns decode to
// strings.
func (t *Table) Row(index uint32) *Row {
	return newRow(t, index, false, true)
}

// BinaryRow returns a cursor positioned at index whose text columns stay
// zero-copy ByteString views.
func (t *Table) BinaryRow(index uint32) *Row {
	return newRow(t, index, true, true)
}

// Cursor returns an unpositioned binary row for writers that Seek before
// every access. No bounds assertion, the table may still be empty.
func (t *Table) Cursor() *Row {
	return newRow(t, 0, true, false)
}

// ForEach walks rows in ascending order reusing a single cursor. The row
// passed to fn is mutated in place between calls, it must not be retained.
func (t *Table) ForEach(fn func(r *Row)) {

	count := t.RowCount()
	if count == 0 {
		return
	}

	row := t.Row(0)
	for i := uint32(0); i < count; i++ {
		row.Seek(i)
		fn(row)
	}
}

// Destroy releases the backing buffer. Terminal: rows of this table panic
// on their next field access. ByteString views taken before Destroy are not
// invalidated; they keep referring to the released bytes.
func (t *Table) Destroy() error {

	freeErr := t.region.Free()

	t.header = nil
	t.region = mem.Region{}

	return freeErr
}
