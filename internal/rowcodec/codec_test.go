package rowcodec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	cases := []Row{
		NewRow(1, []string{"id", "name"}, map[string]Value{
			"id": Int32(7), "name": String("ada"),
		}),
		NewRow(2, nil, map[string]Value{}),
		NewRow(3, []string{"n", "flag", "score"}, map[string]Value{
			"n": Null, "flag": Bool(true), "score": Float64(3.5),
		}),
		NewRow(4, []string{"big"}, map[string]Value{"big": Int64(1 << 40)}),
	}

	for _, r := range cases {
		encoded := Encode(r)
		decoded, err := Decode(encoded)
		require.NoError(t, err)
		assert.Equal(t, r.RowID, decoded.RowID)
		assert.Equal(t, r.Deleted, decoded.Deleted)
		assert.Equal(t, r.Order, decoded.Order)
		for _, name := range r.Order {
			assert.True(t, r.Values[name].Equal(decoded.Values[name]), "column %s mismatch", name)
		}
	}
}

func TestDecode_TruncatedHeader(t *testing.T) {
	_, err := Decode([]byte{1, 2, 3})
	require.Error(t, err)
}

func TestDecode_UnknownTagIsError(t *testing.T) {
	r := NewRow(1, []string{"x"}, map[string]Value{"x": Int32(1)})
	encoded := Encode(r)
	// Corrupt the type tag byte (row_id(8) + deleted(1) + nfields(4) + namelen(2) + name(1) = tag at 16)
	encoded[16] = 0xFF
	_, err := Decode(encoded)
	require.Error(t, err)
}

func TestValueEqual_NullsAndNumericCoercion(t *testing.T) {
	assert.True(t, Null.Equal(Null))
	assert.False(t, Null.Equal(Int32(0)))
	assert.True(t, Int32(5).Equal(Int64(5)))
	assert.True(t, Int32(5).Equal(Float64(5)))
	assert.False(t, String("5").Equal(Int32(6)))
}
