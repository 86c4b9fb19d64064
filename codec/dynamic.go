package codec

import (
	"fmt"
	"math"
	"math/big"
	"unicode/utf8"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/unkn0wn-root/horse"
)

// Transcode decodes one horse value without a schema and re-encodes it with
// to. The tree is passed through Normalize first.
func Transcode(data []byte, to Codec[any]) ([]byte, error) {
	v, err := horse.DecodeAny(data)
	if err != nil {
		return nil, err
	}
	return to.Encode(Normalize(v))
}

// Normalize rewrites a tree produced by horse.DecodeAny into the shapes
// common to JSON, CBOR, msgpack and structpb:
//
//	signed/unsigned ints     int64 / uint64
//	f32                      float64
//	i128/u128                int64/uint64 when in range, else decimal string
//	char                     string
//	bin                      string when valid UTF-8, else []byte
//	dict                     map[string]any (non-string keys via fmt)
//	pair                     []any{a, b}
func Normalize(v any) any {
	switch x := v.(type) {
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint8:
		return uint64(x)
	case uint16:
		return uint64(x)
	case uint32:
		return uint64(x)
	case float32:
		return float64(x)
	case horse.Int128:
		if (x.Hi == 0 && x.Lo <= math.MaxInt64) || (x.Hi == -1 && x.Lo > math.MaxInt64) {
			return int64(x.Lo)
		}
		return x.String()
	case horse.Uint128:
		if x.Hi == 0 {
			return x.Lo
		}
		return x.String()
	case horse.Char:
		return string(rune(x))
	case []byte:
		if utf8.Valid(x) {
			return string(x)
		}
		return x
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = Normalize(e)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[keyString(Normalize(k))] = Normalize(e)
		}
		return out
	case horse.Pair:
		return []any{Normalize(x.A), Normalize(x.B)}
	}
	return v
}

func keyString(k any) string {
	if s, ok := k.(string); ok {
		return s
	}
	return fmt.Sprint(k)
}

// Import rewrites a tree decoded by a foreign codec so that horse can encode
// it: integral float64 values become int64 (JSON has no integer type),
// big.Int becomes Int128 or Uint128, and map[string]any and map[any]any are
// walked. Anything that fits neither 128-bit type is an error.
func Import(v any) (any, error) {
	switch x := v.(type) {
	case float64:
		if x == math.Trunc(x) && x >= math.MinInt64 && x < math.MaxInt64 {
			return int64(x), nil
		}
		return x, nil
	case big.Int:
		return importBig(&x)
	case *big.Int:
		return importBig(x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			var err error
			if out[i], err = Import(e); err != nil {
				return nil, err
			}
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			var err error
			if out[k], err = Import(e); err != nil {
				return nil, err
			}
		}
		return out, nil
	case map[any]any:
		out := make(map[any]any, len(x))
		for k, e := range x {
			ik, err := Import(k)
			if err != nil {
				return nil, err
			}
			if out[ik], err = Import(e); err != nil {
				return nil, err
			}
		}
		return out, nil
	}
	return v, nil
}

var (
	minInt128  = new(big.Int).Lsh(big.NewInt(-1), 127)
	maxUint128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))
	mask64     = new(big.Int).SetUint64(math.MaxUint64)
)

func importBig(b *big.Int) (any, error) {
	if b.Cmp(minInt128) < 0 || b.Cmp(maxUint128) > 0 {
		return nil, fmt.Errorf("codec: integer %s does not fit 128 bits", b)
	}
	if b.Sign() >= 0 {
		hi := new(big.Int).Rsh(b, 64)
		lo := new(big.Int).And(b, mask64)
		return horse.Uint128{Hi: hi.Uint64(), Lo: lo.Uint64()}, nil
	}
	// two's complement of a negative value in 128 bits
	u := new(big.Int).Add(b, new(big.Int).Lsh(big.NewInt(1), 128))
	hi := new(big.Int).Rsh(u, 64)
	lo := new(big.Int).And(u, mask64)
	return horse.Int128{Hi: int64(hi.Uint64()), Lo: lo.Uint64()}, nil
}

// ToStruct converts a horse dynamic tree to a protobuf Value, for transport
// over APIs that speak google.protobuf.Struct.
func ToStruct(v any) (*structpb.Value, error) {
	return structpb.NewValue(Normalize(v))
}
