package codec

import (
	"errors"
	"math"
	"math/big"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/unkn0wn-root/horse"
	"github.com/unkn0wn-root/horse/frame"
)

type profileV1 struct {
	ID   uint32
	Name string
}

type profileV2 struct {
	ID    uint32
	Names []string
	Admin bool
}

var (
	profileShapeV1 = horse.Origin[profileV1](horse.V(1, 0, 0))
	profileShapeV2 = horse.Evolve(profileShapeV1, horse.V(2, 0, 0), func(o profileV1) profileV2 {
		return profileV2{ID: o.ID, Names: []string{o.Name}}
	})
)

func TestHorseCodecRoundTrip(t *testing.T) {
	for _, s := range []horse.Style{horse.Compact, horse.Expressive} {
		c := Horse[profileV2]{Style: s}
		in := profileV2{ID: 1, Names: []string{"a", "b"}, Admin: true}
		b, err := c.Encode(in)
		if err != nil {
			t.Fatalf("%s Encode: %v", s, err)
		}
		out, err := c.Decode(b)
		if err != nil {
			t.Fatalf("%s Decode: %v", s, err)
		}
		if diff := cmp.Diff(in, out); diff != "" {
			t.Fatalf("%s (-want +got):\n%s", s, diff)
		}
	}
}

func TestVersionedMigratesOnDecode(t *testing.T) {
	old := NewVersioned(profileShapeV1, VersionedOptions{Style: horse.Expressive})
	cur := NewVersioned(profileShapeV2, VersionedOptions{})

	b, err := old.Encode(profileV1{ID: 4, Name: "ann"})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, at, err := cur.DecodeVersion(b)
	if err != nil {
		t.Fatalf("DecodeVersion: %v", err)
	}
	if at != horse.V(1, 0, 0) {
		t.Fatalf("written at %s", at)
	}
	want := profileV2{ID: 4, Names: []string{"ann"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}

	// the old reader cannot read what the new writer wrote
	b, err = cur.Encode(want)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := old.Decode(b); !errors.Is(err, horse.ErrVersionInTheFuture) {
		t.Fatalf("expected ErrVersionInTheFuture, got %v", err)
	}
}

func TestVersionedCompressionAndCorruption(t *testing.T) {
	c := NewVersioned(profileShapeV2, VersionedOptions{
		Frame: frame.Options{Compression: frame.Zstd, MinCompressSize: 16},
	})
	in := profileV2{ID: 9, Names: []string{strings.Repeat("x", 500), strings.Repeat("y", 500)}}
	b, err := c.Encode(in)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	h, err := frame.Peek(b)
	if err != nil || h.Compression != frame.Zstd {
		t.Fatalf("Peek: %+v %v", h, err)
	}
	out, err := c.Decode(b)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if diff := cmp.Diff(in, out); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}

	// offsets follow the frame header layout: magic(4) ver comp version(6) rawLen(4) sum(8)
	regions := []struct {
		name string
		at   int
	}{
		{"magic", 0},
		{"raw len", 15},
		{"checksum", 16},
		{"checksum tail", 23},
		{"payload tail", len(b) - 1},
	}
	for _, r := range regions {
		bad := append([]byte(nil), b...)
		bad[r.at] ^= 0x55
		if _, err := c.Decode(bad); !errors.Is(err, frame.ErrCorrupt) {
			t.Fatalf("%s: expected frame.ErrCorrupt, got %v", r.name, err)
		}
	}
}

func mustHorse(t *testing.T, v any, s horse.Style) []byte {
	t.Helper()
	b, err := horse.MarshalStyle(v, s)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	return b
}

func TestTranscodeJSON(t *testing.T) {
	type doc struct {
		Title string
		Tags  []string
		Score float32
		Pos   horse.Pair
		Big   horse.Uint128
		Raw   []byte
	}
	in := doc{
		Title: "t",
		Tags:  []string{"a"},
		Score: 0.5,
		Pos:   horse.Pair{A: int8(1), B: horse.Char('z')},
		Big:   horse.Uint128{Hi: 1},
		Raw:   []byte{0xff, 0x00},
	}
	out, err := Transcode(mustHorse(t, in, horse.Expressive), JSONCodec[any]{})
	if err != nil {
		t.Fatalf("Transcode: %v", err)
	}
	want := `{"Big":"18446744073709551616","Pos":[1,"z"],"Raw":"/wA=","Score":0.5,"Tags":["a"],"Title":"t"}`
	if string(out) != want {
		t.Fatalf("got  %s\nwant %s", out, want)
	}
}

func TestForeignRoundTrips(t *testing.T) {
	in := map[string]any{
		"n":    int64(-7),
		"u":    uint64(math.MaxUint64),
		"f":    1.25,
		"s":    "str",
		"list": []any{true, nil, "x"},
		"nest": map[string]any{"k": int64(1)},
	}
	data := mustHorse(t, in, horse.Compact)

	codecs := map[string]Codec[any]{
		"cbor":    MustCBOR[any](true),
		"msgpack": Msgpack[any]{},
		"json":    JSONCodec[any]{},
	}
	for name, c := range codecs {
		foreign, err := Transcode(data, c)
		if err != nil {
			t.Fatalf("%s Transcode: %v", name, err)
		}
		back, err := c.Decode(foreign)
		if err != nil {
			t.Fatalf("%s Decode: %v", name, err)
		}
		imported, err := Import(back)
		if err != nil {
			t.Fatalf("%s Import: %v", name, err)
		}
		again, err := horse.Marshal(imported)
		if err != nil {
			t.Fatalf("%s Marshal: %v", name, err)
		}
		tree, err := horse.DecodeAny(again)
		if err != nil {
			t.Fatalf("%s DecodeAny: %v", name, err)
		}
		got := Normalize(tree).(map[string]any)
		if got["s"] != "str" || got["f"] != 1.25 {
			t.Fatalf("%s: got %#v", name, got)
		}
		if n, ok := got["n"].(int64); !ok || n != -7 {
			t.Fatalf("%s: n = %#v", name, got["n"])
		}
		if diff := cmp.Diff([]any{true, nil, "x"}, got["list"]); diff != "" {
			t.Fatalf("%s list (-want +got):\n%s", name, diff)
		}
	}
}

func TestNormalizeWideIntegers(t *testing.T) {
	cases := []struct {
		in   any
		want any
	}{
		{horse.Int128From64(-5), int64(-5)},
		{horse.Int128From64(math.MaxInt64), int64(math.MaxInt64)},
		{horse.Int128From64(math.MinInt64), int64(math.MinInt64)},
		{horse.Int128{Hi: 1}, "18446744073709551616"},
		{horse.Int128{Hi: -2, Lo: math.MaxUint64}, "-18446744073709551617"},
		{horse.Uint128From64(3), uint64(3)},
		{uint16(7), uint64(7)},
		{map[any]any{int32(1): "a"}, map[string]any{"1": "a"}},
	}
	for _, tc := range cases {
		if diff := cmp.Diff(tc.want, Normalize(tc.in)); diff != "" {
			t.Fatalf("Normalize(%#v) (-want +got):\n%s", tc.in, diff)
		}
	}
}

func TestImportBigIntegers(t *testing.T) {
	two64 := new(big.Int).Lsh(big.NewInt(1), 64)
	neg := new(big.Int).Neg(new(big.Int).Add(two64, big.NewInt(1)))

	got, err := Import(two64)
	if err != nil || got != (horse.Uint128{Hi: 1}) {
		t.Fatalf("2^64: %#v %v", got, err)
	}
	got, err = Import(neg)
	if err != nil || got != (horse.Int128{Hi: -2, Lo: math.MaxUint64}) {
		t.Fatalf("-(2^64+1): %#v %v", got, err)
	}
	if _, err := Import(new(big.Int).Lsh(big.NewInt(1), 128)); err == nil {
		t.Fatalf("2^128: expected error")
	}
	if got, _ := Import(3.0); got != int64(3) {
		t.Fatalf("3.0 = %#v", got)
	}
	if got, _ := Import(3.5); got != 3.5 {
		t.Fatalf("3.5 = %#v", got)
	}
}

func TestProtobufStruct(t *testing.T) {
	tree, err := horse.DecodeAny(mustHorse(t, map[string]any{"a": []any{int8(1), "b"}}, horse.Compact))
	if err != nil {
		t.Fatalf("DecodeAny: %v", err)
	}
	v, err := ToStruct(tree)
	if err != nil {
		t.Fatalf("ToStruct: %v", err)
	}
	pc := NewProtobuf(func() *structpb.Value { return &structpb.Value{} })
	b, err := pc.Encode(v)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	back, err := pc.Decode(b)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !proto.Equal(v, back) {
		t.Fatalf("proto mismatch: %v vs %v", v, back)
	}
	list := back.GetStructValue().GetFields()["a"].GetListValue().GetValues()
	if len(list) != 2 || list[0].GetNumberValue() != 1 || list[1].GetStringValue() != "b" {
		t.Fatalf("got %v", back)
	}
}

func TestLimitCodec(t *testing.T) {
	c := LimitCodec[profileV1]{Inner: Horse[profileV1]{}, MaxDecode: 8}
	b, err := c.Encode(profileV1{ID: 1, Name: "a long name"})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := c.Decode(b); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge for %d bytes, got %v", len(b), err)
	}
	c.MaxDecode = 0
	if _, err := c.Decode(b); err != nil {
		t.Fatalf("unlimited: %v", err)
	}
}
