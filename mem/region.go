package mem

import (
	"fmt"
	"sync/atomic"
	"unsafe"

	"github.com/mj3cheun/kruda/bits"
)

// Region is a byte range inside a buffer. Two regions may overlap the same
// buffer, subregions share the backing bytes. The zero Region is invalid.
type Region struct {
	buffer  *Buffer
	address uint32
	size    uint32
}

func (r Region) Buffer() *Buffer {
	return r.buffer
}

func (r Region) Address() uint32 {
	return r.address
}

func (r Region) Size() uint32 {
	return r.size
}

func (r Region) Valid() bool {
	return r.buffer != nil && r.buffer.data != nil
}

// Bytes returns the u8 view of the region. The slice aliases the buffer.
func (r Region) Bytes() []byte {
	return r.buffer.data[r.address : r.address+r.size]
}

// U32 returns the region as a little-endian u32 array view.
func (r Region) U32() []uint32 {
	if r.address%4 != 0 {
		panic(fmt.Sprintf("u32 view of unaligned region @ %d", r.address))
	}
	return bits.MapBytesToArray[uint32](r.Bytes(), int(r.size/4))
}

func (r Region) SubRegion(offset, size uint32) (Region, error) {
	if uint64(offset)+uint64(size) > uint64(r.size) {
		return Region{}, fmt.Errorf("subregion [%d:%d] outside of region of size %d", offset, offset+size, r.size)
	}

	return Region{buffer: r.buffer, address: r.address + offset, size: size}, nil
}

func (r Region) atomicU32(offset uint32) *uint32 {

	abs := r.address + offset
	if abs%4 != 0 {
		panic(fmt.Sprintf("atomic access to unaligned offset %d", abs))
	}

	return (*uint32)(unsafe.Pointer(&r.buffer.data[abs]))
}

func (r Region) AtomicLoadU32(offset uint32) uint32 {
	return atomic.LoadUint32(r.atomicU32(offset))
}

// AtomicAddU32 returns the value before the add, so the caller owns the
// claimed range [old, old+n).
func (r Region) AtomicAddU32(offset uint32, n uint32) uint32 {
	return atomic.AddUint32(r.atomicU32(offset), n) - n
}

func (r Region) PutU32(offset uint32, v uint32) {
	atomic.StoreUint32(r.atomicU32(offset), v)
}

// Free releases the whole backing buffer. Terminal, see Buffer.Release.
func (r Region) Free() error {
	return r.buffer.Release()
}
