package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/unkn0wn-root/horse"
	"github.com/unkn0wn-root/horse/codec"
	"github.com/unkn0wn-root/horse/frame"
)

type encodeOptions struct {
	from        string
	style       string
	version     string
	compression string
}

func newEncodeCommand(g *globalOptions) *cobra.Command {
	var opts encodeOptions
	cmd := &cobra.Command{
		Use:   "encode [FILE]",
		Short: "Encode JSON, CBOR or msgpack input as horse",
		Long: "Encode JSON, CBOR or msgpack input as horse. With --version the " +
			"value is wrapped in a frame carrying that schema version.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := g.readInput(cmd, args)
			if err != nil {
				return err
			}
			out, err := runEncode(in, opts, g.maxSize)
			if err != nil {
				return err
			}
			g.log.Debug("encoded", zap.String("from", opts.from), zap.Int("bytes", len(out)))
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&opts.from, "from", "json", "Input format: json, cbor or msgpack")
	flags.StringVar(&opts.style, "style", "compact", "Record style: compact or expressive")
	flags.StringVar(&opts.version, "version", "", "Wrap the value in a frame at this schema version (e.g. 1.2.0)")
	flags.StringVar(&opts.compression, "compress", "none", "Frame compression: none, lz4 or zstd")
	return cmd
}

func runEncode(in []byte, opts encodeOptions, maxSize int) ([]byte, error) {
	style, err := horse.ParseStyle(opts.style)
	if err != nil {
		return nil, err
	}
	foreign, err := foreignCodec(opts.from, "")
	if err != nil {
		return nil, err
	}
	src := codec.LimitCodec[any]{Inner: foreign, MaxDecode: maxSize}
	tree, err := src.Decode(in)
	if err != nil {
		return nil, err
	}
	tree, err = codec.Import(tree)
	if err != nil {
		return nil, err
	}
	payload, err := horse.MarshalStyle(tree, style)
	if err != nil {
		return nil, err
	}
	if opts.version == "" {
		return payload, nil
	}

	v, err := horse.ParseVersion(opts.version)
	if err != nil {
		return nil, err
	}
	comp, err := frame.ParseCompression(opts.compression)
	if err != nil {
		return nil, err
	}
	return frame.Encode(v, payload, frame.Options{Compression: comp})
}
