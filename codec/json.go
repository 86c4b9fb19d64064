package codec

import "encoding/json"

// JSONCodec uses encoding/json. Decoding into V = any yields float64
// numbers, which horse then writes as f64.
type JSONCodec[V any] struct {
	// Indent, when non-empty, pretty-prints Encode output.
	Indent string
}

func (c JSONCodec[V]) Encode(v V) ([]byte, error) {
	if c.Indent != "" {
		return json.MarshalIndent(v, "", c.Indent)
	}
	return json.Marshal(v)
}

func (JSONCodec[V]) Decode(b []byte) (V, error) {
	var v V
	err := json.Unmarshal(b, &v)
	return v, err
}
