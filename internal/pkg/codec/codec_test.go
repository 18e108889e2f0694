package codec

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	tests := map[string]struct {
		token string
		want  any
	}{
		"u8":            {token: "u8_0A", want: int64(10)},
		"u3":            {token: "u3_0000FFFF", want: int64(65535)},
		"i3 negative":   {token: "i3_FFFFFE0C", want: int64(-500)},
		"i1 positive":   {token: "i1_01F4", want: int64(500)},
		"string":        {token: "st_hello", want: "hello"},
		"plain":         {token: "plainstring", want: "plainstring"},
		"unknown type":  {token: "xx_1234", want: "xx_1234"},
		"string suffix": {token: "st_a_b", want: "a_b"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := Decode(tt.token)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecode_Float(t *testing.T) {
	got, err := Decode("fl_4362C375")
	require.NoError(t, err)
	assert.InDelta(t, 226.7635, got, 0.0001)

	got, err = Decode("fl_43E26188")
	require.NoError(t, err)
	assert.InDelta(t, 452.762, got, 0.001)
}

func TestDecode_Malformed(t *testing.T) {
	_, err := Decode("u8_ZZ")
	assert.ErrorIs(t, err, ErrMalformedToken)

	_, err = Decode("fl_12")
	assert.ErrorIs(t, err, ErrMalformedToken)
}

func TestEncode_RoundTrip(t *testing.T) {
	tokens := map[string]int{
		"u8_0A":       2,
		"u1_0102":     4,
		"u3_0000FFFF": 8,
		"i3_FFFFFE0C": 8,
		"i1_01F4":     4,
		"fl_43E26188": 8,
		"fl_C1200000": 8,
	}
	for token, length := range tokens {
		t.Run(token, func(t *testing.T) {
			v, err := Decode(token)
			require.NoError(t, err)
			typ := token[:2]
			assert.Equal(t, token, Encode(typ, v, length))
		})
	}
}

func TestEncode(t *testing.T) {
	assert.Equal(t, "u8_01", Encode(TypeU8, true, 2))
	assert.Equal(t, "u8_00", Encode(TypeU8, 0, 2))
	assert.Equal(t, "fl_41000000", Encode(TypeFloat, 8.0, 8))
	assert.Equal(t, "st_abc", Encode(TypeString, "abc", 0))
}

func TestDecodeTree(t *testing.T) {
	raw := map[string]any{}
	require.NoError(t, json.Unmarshal([]byte(`{
		"ENERGY": {"GUI_BAT_DATA_POWER": "fl_43FA0000", "STAT_STATE": "u8_0E"},
		"WALLBOX": {"PROHIBIT_USAGE": ["u8_00", "u8_01", "u8_00", "u8_00"], "MIXED": [1, "u8_02"]},
		"BROKEN": "not a section"
	}`), &raw))

	tree, err := DecodeTree(raw)
	require.NoError(t, err)

	assert.Equal(t, 500.0, tree["ENERGY"]["GUI_BAT_DATA_POWER"])
	assert.Equal(t, int64(14), tree["ENERGY"]["STAT_STATE"])
	assert.Equal(t, []any{int64(0), int64(1), int64(0), int64(0)}, tree["WALLBOX"]["PROHIBIT_USAGE"])
	assert.Equal(t, []any{float64(1), int64(2)}, tree["WALLBOX"]["MIXED"])
	assert.NotContains(t, tree, "BROKEN")
}

func TestDecodeTree_MalformedFailsWhole(t *testing.T) {
	_, err := DecodeTree(map[string]any{
		"ENERGY": map[string]any{"A": "u8_01", "B": "u8_QQ"},
	})
	assert.ErrorIs(t, err, ErrMalformedToken)
}
