package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/unkn0wn-root/horse/codec"
)

type convertOptions struct {
	to     string
	indent string
}

func newConvertCommand(g *globalOptions) *cobra.Command {
	var opts convertOptions
	cmd := &cobra.Command{
		Use:   "convert [FILE]",
		Short: "Convert horse input to JSON, CBOR, msgpack or a protobuf Value",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, _, err := g.readHorse(cmd, args)
			if err != nil {
				return err
			}
			d, err := g.decodeOptions().NewDeserializer(payload)
			if err != nil {
				return err
			}
			tree, err := d.Any()
			if err != nil {
				return err
			}
			out, err := runConvert(tree, opts)
			if err != nil {
				return err
			}
			g.log.Debug("converted", zap.String("to", opts.to), zap.Int("bytes", len(out)))
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&opts.to, "to", "json", "Output format: json, cbor, msgpack or protobuf")
	flags.StringVar(&opts.indent, "indent", "", "Indent JSON output with this string")
	return cmd
}

func runConvert(tree any, opts convertOptions) ([]byte, error) {
	if opts.to == "protobuf" {
		v, err := codec.ToStruct(tree)
		if err != nil {
			return nil, err
		}
		return codec.NewProtobuf(func() *structpb.Value { return &structpb.Value{} }).Encode(v)
	}
	c, err := foreignCodec(opts.to, opts.indent)
	if err != nil {
		return nil, err
	}
	out, err := c.Encode(codec.Normalize(tree))
	if err != nil {
		return nil, err
	}
	if opts.to == "json" {
		out = append(out, '\n')
	}
	return out, nil
}

func foreignCodec(name, indent string) (codec.Codec[any], error) {
	switch name {
	case "json":
		return codec.JSONCodec[any]{Indent: indent}, nil
	case "cbor":
		c, err := codec.NewCBOR[any](true)
		if err != nil {
			return nil, err
		}
		return c, nil
	case "msgpack":
		return codec.Msgpack[any]{}, nil
	}
	return nil, fmt.Errorf("unknown format %q", name)
}
