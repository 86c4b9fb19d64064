// Package codec adapts values to and from byte slices. Horse and Versioned
// use the horse format; CBOR, Msgpack, JSONCodec and Protobuf exist for
// interop, usually fed by Transcode.
package codec

// Codec encodes/decodes values V to []byte.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
