package schema

// ByteString is a zero-copy view into a fixed-size column slot: one length
// byte followed by capacity content bytes. Bytes past the recorded length
// are never read.
type ByteString struct {
	slot []byte
}

func NewByteString(slot []byte) ByteString {
	return ByteString{slot: slot}
}

func (bs ByteString) Len() int {
	return int(bs.slot[0])
}

func (bs ByteString) Capacity() int {
	return len(bs.slot) - 1
}

// Bytes returns the content view, aliasing the slot.
func (bs ByteString) Bytes() []byte {
	return bs.slot[1 : 1+bs.Len()]
}

func (bs ByteString) String() string {
	return string(bs.Bytes())
}

func foldASCII(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}

// LowerASCII returns s with ASCII uppercase folded, the form comparands
// are preconverted to at filter compile time.
func LowerASCII(s string) []byte {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		out[i] = foldASCII(s[i])
	}
	return out
}

// EqualsFold reports case-insensitive equality against an already lowered
// needle.
func (bs ByteString) EqualsFold(lowered []byte) bool {

	n := bs.Len()
	if n != len(lowered) {
		return false
	}

	content := bs.slot[1 : 1+n]
	for i := 0; i < n; i++ {
		if foldASCII(content[i]) != lowered[i] {
			return false
		}
	}

	return true
}

// ContainsFold reports case-insensitive substring containment of an already
// lowered needle.
func (bs ByteString) ContainsFold(lowered []byte) bool {

	n := bs.Len()
	m := len(lowered)

	if m == 0 {
		return true
	}
	if m > n {
		return false
	}

	content := bs.slot[1 : 1+n]

	for start := 0; start+m <= n; start++ {

		matched := true
		for i := 0; i < m; i++ {
			if foldASCII(content[start+i]) != lowered[i] {
				matched = false
				break
			}
		}

		if matched {
			return true
		}
	}

	return false
}

// WriteByteString copies v into the slot, truncating to capacity and
// zeroing the leftover bytes.
func WriteByteString(slot []byte, v []byte) {

	capacity := len(slot) - 1
	n := len(v)
	if n > capacity {
		n = capacity
	}

	slot[0] = uint8(n)
	copy(slot[1:1+n], v[:n])

	for i := 1 + n; i < len(slot); i++ {
		slot[i] = 0
	}
}
