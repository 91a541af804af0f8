package schema

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/mj3cheun/kruda/bits"
	"github.com/mj3cheun/kruda/mem"
)

const (
	HeaderMagic   uint32 = 0x6b725444
	HeaderVersion uint32 = 1

	// preamble field offsets
	magicOffset       = 0
	versionOffset     = 4
	rowCountOffset    = 8
	rowLengthOffset   = 12
	dataLengthOffset  = 16
	columnCountOffset = 20

	preambleSize     = 24
	columnRecordSize = 4 + 1 + 4 + 4 + 4
)

var (
	ErrColumnNotFound = fmt.Errorf("column not found")
	ErrColumnExists   = fmt.Errorf("duplicate column name")
	ErrRegionTooSmall = fmt.Errorf("region too small for header")
	ErrBadMagic       = fmt.Errorf("bad header magic")
	ErrBadVersion     = fmt.Errorf("unsupported header version")
)

// Header describes the layout of a table region and owns the single mutable
// field of that layout, the atomic row count at a fixed offset into the
// region. Everything else is immutable after construction.
type Header struct {
	region mem.Region

	RowLength  uint32
	DataLength uint32

	columns []Column
	byName  map[string]int
}

func alignUp(v, align uint32) uint32 {
	rem := v % align
	if rem != 0 {
		v += align - rem
	}
	return v
}

// HeaderDescriptor is an already-laid-out header: columns in memory order
// with their row offsets assigned.
type HeaderDescriptor struct {
	RowLength uint32
	Columns   []Column
}

// BuildBinaryHeader encodes a laid-out descriptor into a header image with
// a zero row count.
func BuildBinaryHeader(desc HeaderDescriptor) ([]byte, error) {

	seen := map[string]bool{}
	namesSize := 0
	for _, c := range desc.Columns {
		if seen[c.Name] {
			return nil, fmt.Errorf("%w: `%s`", ErrColumnExists, c.Name)
		}
		seen[c.Name] = true
		namesSize += 2 + len(c.Name)
	}

	headSize := preambleSize + len(desc.Columns)*columnRecordSize + namesSize
	dataLength := alignUp(uint32(headSize), 8)

	image := make([]byte, dataLength)
	bw := bits.NewEncodeBuffer(image, binary.LittleEndian)

	bw.PutUint32(HeaderMagic)
	bw.PutUint32(HeaderVersion)
	bw.PutUint32(0) // rowCount
	bw.PutUint32(desc.RowLength)
	bw.PutUint32(dataLength)
	bw.PutUint32(uint32(len(desc.Columns)))

	nameOffset := uint32(0)
	for _, c := range desc.Columns {
		bw.PutUint32(nameOffset)
		bw.WriteByte(uint8(c.Type))
		bw.PutUint32(c.Size)
		bw.PutUint32(c.Offset)
		bw.PutUint32(c.OriginalIndex)

		nameOffset += 2 + uint32(len(c.Name))
	}

	for _, c := range desc.Columns {
		bw.PutUint16(uint16(len(c.Name)))
		bw.Write([]byte(c.Name))
	}

	return image, nil
}

// Layout orders the descriptor list for memory and assigns row offsets.
// Columns sort by descending alignment (stable on the caller's order) so
// every field lands naturally aligned without per-field padding. The
// caller's order is recorded in OriginalIndex.
func Layout(descriptors []ColumnDescriptor) (HeaderDescriptor, error) {

	columns := make([]Column, len(descriptors))
	for idx, d := range descriptors {

		size := d.Size
		if d.Type.Numeric() {
			if size == 0 {
				size = d.Type.Size()
			} else if size != d.Type.Size() {
				return HeaderDescriptor{}, fmt.Errorf("column `%s`: size %d does not match type %s", d.Name, size, d.Type.String())
			}
		} else if size < 2 {
			return HeaderDescriptor{}, fmt.Errorf("column `%s`: byte string slot needs a length byte and capacity, got size %d", d.Name, size)
		}

		columns[idx] = Column{
			Name:          d.Name,
			Type:          d.Type,
			Size:          size,
			OriginalIndex: uint32(idx),
		}
	}

	// memory order: descending alignment, stable
	sort.SliceStable(columns, func(i, j int) bool {
		return columns[i].Type.Align() > columns[j].Type.Align()
	})

	offset := uint32(0)
	for i := range columns {
		offset = alignUp(offset, columns[i].Type.Align())
		columns[i].Offset = offset
		offset += columns[i].Size
	}

	return HeaderDescriptor{
		RowLength: alignUp(offset, 4),
		Columns:   columns,
	}, nil
}

// BinaryFromColumns lays out the descriptor list and encodes it into a
// standalone header image.
func BinaryFromColumns(descriptors []ColumnDescriptor) ([]byte, error) {

	laidOut, layoutErr := Layout(descriptors)
	if layoutErr != nil {
		return nil, layoutErr
	}

	return BuildBinaryHeader(laidOut)
}

// EmptyFromBinaryHeader stamps a header image onto the start of the region
// and resets the row count.
func EmptyFromBinaryHeader(image []byte, region mem.Region) (*Header, error) {

	if uint32(len(image)) > region.Size() {
		return nil, ErrRegionTooSmall
	}

	copy(region.Bytes(), image)
	region.PutU32(rowCountOffset, 0)

	return ReadHeader(region)
}

// EmptyFromColumns lays out the columns and stamps the resulting header
// onto the region in one step.
func EmptyFromColumns(descriptors []ColumnDescriptor, region mem.Region) (*Header, error) {

	image, buildErr := BinaryFromColumns(descriptors)
	if buildErr != nil {
		return nil, buildErr
	}

	return EmptyFromBinaryHeader(image, region)
}

// EmptyFromHeader encodes an already-laid-out descriptor and stamps it onto
// the region.
func EmptyFromHeader(desc HeaderDescriptor, region mem.Region) (*Header, error) {

	image, buildErr := BuildBinaryHeader(desc)
	if buildErr != nil {
		return nil, buildErr
	}

	return EmptyFromBinaryHeader(image, region)
}

// ReadHeader interprets an existing header at the start of the region.
func ReadHeader(region mem.Region) (*Header, error) {

	if region.Size() < preambleSize {
		return nil, ErrRegionTooSmall
	}

	reader := bits.NewBinReader(region.Bytes(), binary.LittleEndian)

	magic := reader.MustReadU32()
	if magic != HeaderMagic {
		return nil, fmt.Errorf("%w: %#x", ErrBadMagic, magic)
	}

	version := reader.MustReadU32()
	if version != HeaderVersion {
		return nil, fmt.Errorf("%w: %d", ErrBadVersion, version)
	}

	reader.MustReadU32() // rowCount, read atomically elsewhere

	header := &Header{
		region: region,
	}

	header.RowLength = reader.MustReadU32()
	header.DataLength = reader.MustReadU32()
	columnCount := reader.MustReadU32()

	header.columns = make([]Column, columnCount)
	header.byName = make(map[string]int, columnCount)

	namesStart := preambleSize + int(columnCount)*columnRecordSize

	for i := range header.columns {
		c := &header.columns[i]

		nameOffset := reader.MustReadU32()
		c.Type = FieldType(reader.MustReadU8())
		c.Size = reader.MustReadU32()
		c.Offset = reader.MustReadU32()
		c.OriginalIndex = reader.MustReadU32()

		pos := reader.Position()

		reader.Seek(namesStart + int(nameOffset))
		nameLen := reader.MustReadU16()
		nameBytes, nameErr := reader.ReadBytesView(int(nameLen))
		if nameErr != nil {
			return nil, fmt.Errorf("unable to decode column name: %s", nameErr.Error())
		}
		c.Name = string(nameBytes)

		reader.Seek(pos)

		header.byName[c.Name] = i
	}

	return header, nil
}

// Columns returns the column list in memory order.
func (h *Header) Columns() []Column {
	return h.columns
}

func (h *Header) ColumnByName(name string) (*Column, bool) {
	idx, ok := h.byName[name]
	if !ok {
		return nil, false
	}
	return &h.columns[idx], true
}

// ColumnIndex returns the memory-order index of a named column, -1 if the
// column does not exist.
func (h *Header) ColumnIndex(name string) int {
	idx, ok := h.byName[name]
	if !ok {
		return -1
	}
	return idx
}

func (h *Header) RowCount() uint32 {
	return h.region.AtomicLoadU32(rowCountOffset)
}

// RowCapacity is how many rows fit between the end of the header and the
// end of the region.
func (h *Header) RowCapacity() uint32 {
	return (h.region.Size() - h.DataLength) / h.RowLength
}

// AddRows atomically grows the row count by n and returns the previous
// count, the caller owns rows [old, old+n). Region sizing is the
// coordinator's contract, exceeding it is fatal.
func (h *Header) AddRows(n uint32) uint32 {

	old := h.region.AtomicAddU32(rowCountOffset, n)

	if old+n > h.RowCapacity() {
		panic(fmt.Sprintf("table overflow: %d rows over capacity %d", old+n, h.RowCapacity()))
	}

	return old
}
