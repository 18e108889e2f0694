package codec

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/anicoll/senec-integration/internal/pkg/model"
)

// Type prefixes used by the lala.cgi wire format.
const (
	TypeU1     = "u1"
	TypeU3     = "u3"
	TypeU6     = "u6"
	TypeU8     = "u8"
	TypeI1     = "i1"
	TypeI3     = "i3"
	TypeI8     = "i8"
	TypeFloat  = "fl"
	TypeString = "st"
)

var ErrMalformedToken = errors.New("malformed token")

// Decode converts a single `<type>_<hex>` token into a native value.
// Tokens without a known prefix are returned unchanged.
func Decode(token string) (any, error) {
	typ, payload, found := strings.Cut(token, "_")
	if !found {
		return token, nil
	}

	switch {
	case typ == TypeFloat:
		return decodeFloat(payload)
	case typ == TypeString:
		return payload, nil
	case strings.HasPrefix(typ, "u"):
		v, err := strconv.ParseUint(payload, 16, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrMalformedToken, token, err)
		}
		return int64(v), nil
	case strings.HasPrefix(typ, "i"):
		return decodeSigned(token, payload)
	}
	return token, nil
}

func decodeFloat(payload string) (any, error) {
	raw, err := hex.DecodeString(payload)
	if err != nil || len(raw) != 4 {
		return nil, fmt.Errorf("%w: fl_%s", ErrMalformedToken, payload)
	}
	f := math.Float32frombits(binary.BigEndian.Uint32(raw))
	return float64(f), nil
}

func decodeSigned(token, payload string) (any, error) {
	v, err := strconv.ParseUint(payload, 16, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformedToken, token, err)
	}
	bits := uint(len(payload) * 4)
	if bits >= 64 {
		return int64(v), nil
	}
	// sign extend from the payload width
	if v&(1<<(bits-1)) != 0 {
		v |= ^uint64(0) << bits
	}
	return int64(v), nil
}

// DecodeTree decodes a lala.cgi response document section by section.
// Any malformed token fails the whole tree so callers can keep their previous state.
func DecodeTree(raw map[string]any) (model.Tree, error) {
	tree := make(model.Tree, len(raw))
	for section, fields := range raw {
		m, ok := fields.(map[string]any)
		if !ok {
			continue
		}
		decoded, err := decodeMap(m)
		if err != nil {
			return nil, fmt.Errorf("section %s: %w", section, err)
		}
		tree[section] = decoded
	}
	return tree, nil
}

func decodeMap(m map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(m))
	for k, v := range m {
		d, err := decodeValue(v)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", k, err)
		}
		out[k] = d
	}
	return out, nil
}

func decodeValue(v any) (any, error) {
	switch t := v.(type) {
	case string:
		return Decode(t)
	case map[string]any:
		return decodeMap(t)
	case []any:
		list := make([]any, len(t))
		for i, e := range t {
			s, ok := e.(string)
			if !ok {
				list[i] = e
				continue
			}
			d, err := Decode(s)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			list[i] = d
		}
		return list, nil
	}
	return v, nil
}

// Encode is the inverse of Decode. length is the number of hex digits for integer types.
func Encode(typ string, value any, length int) string {
	switch {
	case typ == TypeFloat:
		f, _ := toFloat(value)
		return fmt.Sprintf("%s_%08X", TypeFloat, math.Float32bits(float32(f)))
	case typ == TypeString:
		return fmt.Sprintf("%s_%v", TypeString, value)
	case strings.HasPrefix(typ, "u"), strings.HasPrefix(typ, "i"):
		n := toInt(value)
		u := uint64(n)
		if length > 0 && length < 16 {
			u &= (uint64(1) << (uint(length) * 4)) - 1
		}
		return fmt.Sprintf("%s_%0*X", typ, length, u)
	}
	return fmt.Sprintf("%s_%v", typ, value)
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func toInt(v any) int64 {
	switch t := v.(type) {
	case int:
		return int64(t)
	case int64:
		return t
	case uint8:
		return int64(t)
	case float64:
		return int64(math.Round(t))
	case float32:
		return int64(math.Round(float64(t)))
	case bool:
		if t {
			return 1
		}
	}
	return 0
}
