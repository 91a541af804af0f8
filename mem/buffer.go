package mem

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"
)

var (
	ErrOutOfSpace     = errors.New("buffer has no room left")
	ErrBufferReleased = errors.New("buffer already released")
	ErrUnknownBuffer  = errors.New("buffer not registered")
)

const allocAlign = 8

// Buffer is a process-visible slab of bytes that regions are carved from.
// A buffer may be heap backed or backed by an anonymous shared mapping so
// its pages can be handed to forked workers. Buffers are identified by uuid
// and resolvable through the process-wide registry, which is how table
// descriptors locate data without copying it.
type Buffer struct {
	id     uuid.UUID
	data   []byte
	shared bool

	allocOffset uint32
	allocLock   sync.Mutex
}

var (
	registry       = map[uuid.UUID]*Buffer{}
	registryLocker sync.RWMutex
)

func register(b *Buffer) {
	registryLocker.Lock()
	defer registryLocker.Unlock()

	registry[b.id] = b
}

func Lookup(id uuid.UUID) (*Buffer, error) {
	registryLocker.RLock()
	defer registryLocker.RUnlock()

	b, ok := registry[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBuffer, id.String())
	}

	return b, nil
}

func NewBuffer(size uint32) *Buffer {

	b := &Buffer{
		id:   uuid.New(),
		data: make([]byte, size),
	}

	register(b)
	return b
}

// NewSharedBuffer maps size bytes of anonymous shared memory. The mapping
// survives into forked processes, which is what the worker transfer model
// assumes.
func NewSharedBuffer(size uint32) (*Buffer, error) {

	data, mapErr := unix.Mmap(-1, 0, int(size),
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_SHARED|unix.MAP_ANONYMOUS)

	if mapErr != nil {
		return nil, fmt.Errorf("unable to map shared buffer: %s", mapErr.Error())
	}

	b := &Buffer{
		id:     uuid.New(),
		data:   data,
		shared: true,
	}

	register(b)
	return b, nil
}

func (b *Buffer) Id() uuid.UUID {
	return b.id
}

func (b *Buffer) Size() uint32 {
	return uint32(len(b.data))
}

func (b *Buffer) Shared() bool {
	return b.shared
}

// Alloc claims size bytes from the buffer and returns them as a region.
// Addresses are 8 aligned so atomic u32 fields inside headers land on
// natural boundaries.
func (b *Buffer) Alloc(size uint32) (Region, error) {
	b.allocLock.Lock()
	defer b.allocLock.Unlock()

	start := b.allocOffset
	if rem := start % allocAlign; rem != 0 {
		start += allocAlign - rem
	}

	if uint64(start)+uint64(size) > uint64(len(b.data)) {
		return Region{}, fmt.Errorf("%w: need %d bytes at %d, buffer size %d", ErrOutOfSpace, size, start, len(b.data))
	}

	b.allocOffset = start + size

	return Region{buffer: b, address: start, size: size}, nil
}

// Region returns a view over an arbitrary byte range of the buffer, used
// when resolving a descriptor received from the coordinator.
func (b *Buffer) Region(address, size uint32) (Region, error) {
	if b.data == nil {
		return Region{}, ErrBufferReleased
	}

	if uint64(address)+uint64(size) > uint64(len(b.data)) {
		return Region{}, fmt.Errorf("region [%d:%d] outside of buffer of size %d", address, address+size, len(b.data))
	}

	return Region{buffer: b, address: address, size: size}, nil
}

// Release unregisters the buffer and drops its backing memory. Any region
// or row still holding the buffer becomes visibly empty.
func (b *Buffer) Release() error {

	registryLocker.Lock()
	delete(registry, b.id)
	registryLocker.Unlock()

	data := b.data
	b.data = nil

	if data == nil {
		return ErrBufferReleased
	}

	if b.shared {
		return unix.Munmap(data)
	}

	return nil
}
