package schema

type FieldType uint8

const (
	Int8FieldType FieldType = iota
	Uint8FieldType
	Int16FieldType
	Uint16FieldType
	Int32FieldType
	Uint32FieldType
	Float32FieldType
	ByteStringFieldType
)

func (f FieldType) String() string {
	switch f {
	case Int8FieldType:
		return "Int8"
	case Uint8FieldType:
		return "Uint8"
	case Int16FieldType:
		return "Int16"
	case Uint16FieldType:
		return "Uint16"
	case Int32FieldType:
		return "Int32"
	case Uint32FieldType:
		return "Uint32"
	case Float32FieldType:
		return "Float32"
	case ByteStringFieldType:
		return "ByteString"
	default:
		return ""
	}
}

// Size is the fixed byte width of a numeric field. ByteString widths come
// from the column descriptor, not the type.
func (f FieldType) Size() uint32 {
	switch f {
	case Int8FieldType, Uint8FieldType:
		return 1
	case Int16FieldType, Uint16FieldType:
		return 2
	case Int32FieldType, Uint32FieldType, Float32FieldType:
		return 4
	case ByteStringFieldType:
		return 0
	default:
		panic("unknown field type " + f.String())
	}
}

func (f FieldType) Align() uint32 {
	switch f {
	case Int8FieldType, Uint8FieldType, ByteStringFieldType:
		return 1
	case Int16FieldType, Uint16FieldType:
		return 2
	case Int32FieldType, Uint32FieldType, Float32FieldType:
		return 4
	default:
		panic("unknown field type " + f.String())
	}
}

func (f FieldType) Numeric() bool {
	return f != ByteStringFieldType
}
