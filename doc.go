// Package horse implements a self-describing binary value codec with
// schema evolution.
//
// Every value starts with a one-byte type tag (null, bools, 8..128-bit
// integers, floats, char, bin, optional, list, dict, pair). Integers carry
// their declared width in the tag and store the value in the fewest bytes of
// the narrowest width class that holds it.
//
// Components:
//   - Writer / Marshal: reflection-driven encoder, Compact or Expressive style.
//   - Deserializer: cursor over the flat pre-order token sequence produced by
//     the reader. Typed decoding (Unmarshal) and dynamic decoding (Visit,
//     DecodeAny) both drive it.
//   - Shape[T]: a version chain. Bytes written at an older version are
//     decoded as the shape of that era and migrated forward.
//
// Go mapping:
//
//	bool                  false / true
//	int8..int64, int      i8..i64 (int as i64)
//	uint8..uint64, uint   u8..u64 (uint as u64)
//	Int128, Uint128       i128, u128
//	float32, float64      f32, f64
//	Char                  char
//	string, []byte        bin
//	*T                    some(T) / none
//	slice, array          list
//	map                   dict (keys sorted by encoded bytes)
//	struct                record: list (Compact) or dict (Expressive)
//	Enum                  discriminant: u32 index or bin name
//	registered union      discriminant, or pair(discriminant, payload)
//	Pair                  pair
//
// Versions are metadata supplied by the caller; nothing in the byte stream
// records them. The frame package offers one envelope that does.
//
// Usage:
//
//	v1 := horse.Origin[ConfigV1](horse.MustParseVersion("1.0.0"))
//	v2 := horse.Evolve(v1, horse.MustParseVersion("1.1.0"), func(o ConfigV1) ConfigV2 { ... })
//	cfg, err := v2.Unmarshal(data, writtenAt)
package horse
