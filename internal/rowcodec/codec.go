package rowcodec

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Encode serializes r using the deterministic layout from spec §4.2:
//
//	row_id:u64 | deleted:u8 | n_fields:u32 | (name_len:u16, name:utf8, type_tag:u8, value:...)*
//
// Multi-byte integers use little-endian, matching the page header's byte
// order per spec §6 ("little-endian for page header").
func Encode(r Row) []byte {
	buf := make([]byte, 0, 64+16*len(r.Order))
	var tmp [8]byte

	binary.LittleEndian.PutUint64(tmp[:8], r.RowID)
	buf = append(buf, tmp[:8]...)

	if r.Deleted {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}

	binary.LittleEndian.PutUint32(tmp[:4], uint32(len(r.Order)))
	buf = append(buf, tmp[:4]...)

	for _, name := range r.Order {
		v := r.Values[name]
		binary.LittleEndian.PutUint16(tmp[:2], uint16(len(name)))
		buf = append(buf, tmp[:2]...)
		buf = append(buf, name...)
		buf = append(buf, encodeValue(v)...)
	}
	return buf
}

// encodeValue appends a tag byte followed by the value payload. Any Value
// whose Tag falls outside the representable set is written as TagString of
// its Text() form, the §9 "coerced to String on serialization" policy.
func encodeValue(v Value) []byte {
	switch v.Tag {
	case TagNull:
		return []byte{byte(TagNull)}
	case TagInt32:
		b := make([]byte, 5)
		b[0] = byte(TagInt32)
		binary.LittleEndian.PutUint32(b[1:], uint32(v.I32))
		return b
	case TagInt64:
		b := make([]byte, 9)
		b[0] = byte(TagInt64)
		binary.LittleEndian.PutUint64(b[1:], uint64(v.I64))
		return b
	case TagFloat:
		b := make([]byte, 9)
		b[0] = byte(TagFloat)
		binary.LittleEndian.PutUint64(b[1:], math.Float64bits(v.F64))
		return b
	case TagBool:
		b := byte(0)
		if v.B {
			b = 1
		}
		return []byte{byte(TagBool), b}
	default:
		s := v.Text()
		b := make([]byte, 5+len(s))
		b[0] = byte(TagString)
		binary.LittleEndian.PutUint32(b[1:5], uint32(len(s)))
		copy(b[5:], s)
		return b
	}
}

// Decode parses bytes produced by Encode back into a Row. Decode(Encode(r))
// reproduces r exactly for the representable subset (spec §8 round-trip
// property).
func Decode(data []byte) (Row, error) {
	if len(data) < 8+1+4 {
		return Row{}, fmt.Errorf("rowcodec: truncated row header (%d bytes)", len(data))
	}
	pos := 0
	rowID := binary.LittleEndian.Uint64(data[pos:])
	pos += 8
	deleted := data[pos] != 0
	pos++
	nFields := int(binary.LittleEndian.Uint32(data[pos:]))
	pos += 4

	order := make([]string, 0, nFields)
	values := make(map[string]Value, nFields)

	for i := 0; i < nFields; i++ {
		if pos+2 > len(data) {
			return Row{}, fmt.Errorf("rowcodec: truncated field name length at field %d", i)
		}
		nameLen := int(binary.LittleEndian.Uint16(data[pos:]))
		pos += 2
		if pos+nameLen > len(data) {
			return Row{}, fmt.Errorf("rowcodec: truncated field name at field %d", i)
		}
		name := string(data[pos : pos+nameLen])
		pos += nameLen

		if pos >= len(data) {
			return Row{}, fmt.Errorf("rowcodec: missing type tag for field %q", name)
		}
		tag := Tag(data[pos])
		pos++

		val, n, err := decodeValue(tag, data[pos:])
		if err != nil {
			return Row{}, fmt.Errorf("rowcodec: field %q: %w", name, err)
		}
		pos += n

		order = append(order, name)
		values[name] = val
	}

	return Row{RowID: rowID, Deleted: deleted, Order: order, Values: values}, nil
}

// decodeValue reads a value payload (not including the tag byte, which the
// caller already consumed) and returns the value plus bytes consumed.
func decodeValue(tag Tag, data []byte) (Value, int, error) {
	switch tag {
	case TagNull:
		return Null, 0, nil
	case TagInt32:
		if len(data) < 4 {
			return Value{}, 0, fmt.Errorf("truncated int32")
		}
		return Int32(int32(binary.LittleEndian.Uint32(data))), 4, nil
	case TagInt64:
		if len(data) < 8 {
			return Value{}, 0, fmt.Errorf("truncated int64")
		}
		return Int64(int64(binary.LittleEndian.Uint64(data))), 8, nil
	case TagFloat:
		if len(data) < 8 {
			return Value{}, 0, fmt.Errorf("truncated float64")
		}
		return Float64(math.Float64frombits(binary.LittleEndian.Uint64(data))), 8, nil
	case TagBool:
		if len(data) < 1 {
			return Value{}, 0, fmt.Errorf("truncated bool")
		}
		return Bool(data[0] != 0), 1, nil
	case TagString:
		if len(data) < 4 {
			return Value{}, 0, fmt.Errorf("truncated string length")
		}
		n := int(binary.LittleEndian.Uint32(data))
		if len(data) < 4+n {
			return Value{}, 0, fmt.Errorf("truncated string body")
		}
		return String(string(data[4 : 4+n])), 4 + n, nil
	default:
		// Unknown tags are an error, not silently dropped, per §9:
		// "a trailing-type policy means unknown tags are an error".
		return Value{}, 0, fmt.Errorf("unknown type tag %d", tag)
	}
}
