package bits

import (
	"encoding/binary"
	"errors"
	"math"
)

var (
	ErrOutOfData = errors.New("not enough data left in buffer")
)

// BinReader decodes fixed-width values from a byte slice without copying it.
// Used for header images which live directly inside a shared region.
type BinReader struct {
	data  []byte
	pos   int
	order binary.ByteOrder
}

func NewBinReader(data []byte, order binary.ByteOrder) *BinReader {
	return &BinReader{data: data, order: order}
}

func (r *BinReader) Position() int {
	return r.pos
}

func (r *BinReader) Seek(pos int) {
	r.pos = pos
}

func (r *BinReader) left() int {
	return len(r.data) - r.pos
}

func (r *BinReader) ReadU8() (uint8, error) {
	if r.left() < 1 {
		return 0, ErrOutOfData
	}

	v := r.data[r.pos]
	r.pos += 1

	return v, nil
}

func (r *BinReader) ReadU16() (uint16, error) {
	if r.left() < 2 {
		return 0, ErrOutOfData
	}

	v := r.order.Uint16(r.data[r.pos:])
	r.pos += 2

	return v, nil
}

func (r *BinReader) ReadU32() (uint32, error) {
	if r.left() < 4 {
		return 0, ErrOutOfData
	}

	v := r.order.Uint32(r.data[r.pos:])
	r.pos += 4

	return v, nil
}

func (r *BinReader) ReadF32() (float32, error) {
	u, err := r.ReadU32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(u), nil
}

func (r *BinReader) MustReadU8() uint8 {
	u, er := r.ReadU8()
	if er != nil {
		panic(er)
	}
	return u
}

func (r *BinReader) MustReadU16() uint16 {
	u, er := r.ReadU16()
	if er != nil {
		panic(er)
	}
	return u
}

func (r *BinReader) MustReadU32() uint32 {
	u, er := r.ReadU32()
	if er != nil {
		panic(er)
	}
	return u
}

// ReadBytesView returns a subslice of the underlying buffer. No copy is made,
// the view stays valid as long as the buffer does.
func (r *BinReader) ReadBytesView(n int) ([]byte, error) {
	if r.left() < n {
		return nil, ErrOutOfData
	}

	v := r.data[r.pos : r.pos+n]
	r.pos += n

	return v, nil
}

func (r *BinReader) Skip(n int) error {
	if r.left() < n {
		return ErrOutOfData
	}

	r.pos += n
	return nil
}
