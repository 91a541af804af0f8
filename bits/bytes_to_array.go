package bits

import (
	"unsafe"

	"golang.org/x/exp/constraints"
)

// MapBytesToArray reinterprets a byte slice as a typed slice of count
// elements. The caller is responsible for alignment of the first byte.
func MapBytesToArray[T constraints.Integer | constraints.Float](data []byte, count int) []T {

	var sample T
	valueSize := int(unsafe.Sizeof(sample))

	if len(data) < count*valueSize {
		panic("not enough data")
	}

	return unsafe.Slice((*T)(unsafe.Pointer(&data[0])), count)
}
