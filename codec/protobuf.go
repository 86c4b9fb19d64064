package codec

import "google.golang.org/protobuf/proto"

// Protobuf serializes generated messages. Pair it with ToStruct to ship a
// horse value as a google.protobuf.Value.
type Protobuf[T proto.Message] struct {
	new func() T // constructor for a concrete message (e.g., func() *structpb.Value { return &structpb.Value{} })
}

func NewProtobuf[T proto.Message](ctor func() T) Protobuf[T] {
	return Protobuf[T]{new: ctor}
}

func (c Protobuf[T]) Encode(v T) ([]byte, error) {
	return proto.MarshalOptions{Deterministic: true}.Marshal(v)
}

func (c Protobuf[T]) Decode(b []byte) (T, error) {
	m := c.new()
	err := proto.Unmarshal(b, m)
	return m, err
}
