package frame

import (
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

var errIncompressible = errors.New("horse/frame: payload does not compress")

// zstd encoders and decoders are safe for concurrent use.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("horse/frame: zstd encoder: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("horse/frame: zstd decoder: " + err.Error())
	}
}

func compress(c Compression, p []byte) ([]byte, error) {
	switch c {
	case LZ4:
		dst := make([]byte, lz4.CompressBlockBound(len(p)))
		n, err := lz4.CompressBlock(p, dst, nil)
		if err != nil {
			return nil, fmt.Errorf("horse/frame: lz4: %w", err)
		}
		if n == 0 || n >= len(p) {
			return nil, errIncompressible
		}
		return dst[:n], nil
	case Zstd:
		out := zstdEncoder.EncodeAll(p, nil)
		if len(out) >= len(p) {
			return nil, errIncompressible
		}
		return out, nil
	}
	return nil, fmt.Errorf("horse/frame: unsupported compression %s", c)
}

func decompress(c Compression, p []byte, rawLen int) ([]byte, error) {
	switch c {
	case None:
		return p, nil
	case LZ4:
		dst := make([]byte, rawLen)
		n, err := lz4.UncompressBlock(p, dst)
		if err != nil {
			return nil, fmt.Errorf("lz4: %w", err)
		}
		if n != rawLen {
			return nil, fmt.Errorf("lz4: got %d bytes, expected %d", n, rawLen)
		}
		return dst, nil
	case Zstd:
		out, err := zstdDecoder.DecodeAll(p, make([]byte, 0, rawLen))
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
		if len(out) != rawLen {
			return nil, fmt.Errorf("zstd: got %d bytes, expected %d", len(out), rawLen)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported compression %s", c)
}
