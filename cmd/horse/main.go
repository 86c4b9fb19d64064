// Command horse inspects and converts horse-encoded values.
//
//	horse dump [FILE]                         print the value tree
//	horse convert --to json|cbor|msgpack|protobuf [FILE]
//	horse encode --from json|cbor|msgpack [--style expressive] [--version 1.2.0] [FILE]
//
// FILE defaults to stdin. Framed input (see package frame) is detected and
// unwrapped automatically.
package main

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/unkn0wn-root/horse"
	"github.com/unkn0wn-root/horse/frame"
	hzap "github.com/unkn0wn-root/horse/log/zap"
)

type globalOptions struct {
	debug    bool
	maxDepth int
	maxSize  int
	log      *zap.Logger
}

func main() {
	if err := newRootCommand(os.Stdin, os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand(in io.Reader, out, errOut io.Writer) *cobra.Command {
	g := &globalOptions{log: zap.NewNop()}
	cmd := &cobra.Command{
		Use:          "horse",
		Short:        "Inspect and convert horse-encoded values",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !g.debug {
				return nil
			}
			l, err := zap.NewDevelopment()
			if err != nil {
				return err
			}
			g.log = l
			return nil
		},
	}
	cmd.SetIn(in)
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	flags := cmd.PersistentFlags()
	flags.BoolVar(&g.debug, "debug", false, "Log decode events to stderr")
	flags.IntVar(&g.maxDepth, "max-depth", 0, "Maximum container nesting (0 = library default)")
	flags.IntVar(&g.maxSize, "max-size", 0, "Reject inputs larger than this many bytes (0 = unlimited)")

	cmd.AddCommand(
		newDumpCommand(g),
		newConvertCommand(g),
		newEncodeCommand(g),
	)
	return cmd
}

func (g *globalOptions) decodeOptions() horse.DecodeOptions {
	return horse.DecodeOptions{
		MaxDepth:         g.maxDepth,
		DisallowTrailing: true,
		Logger:           hzap.ZapLogger{L: g.log},
	}
}

// readInput reads FILE, or the command's stdin when args is empty or "-".
func (g *globalOptions) readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	var r io.Reader = cmd.InOrStdin()
	name := "stdin"
	if len(args) > 0 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r, name = f, args[0]
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	g.log.Debug("read input", zap.String("from", name), zap.Int("bytes", len(b)))
	return b, nil
}

// readHorse reads horse input and unwraps a frame when the input starts
// with the frame magic. --max-size applies to the input as read.
func (g *globalOptions) readHorse(cmd *cobra.Command, args []string) ([]byte, *frame.Header, error) {
	b, err := g.readInput(cmd, args)
	if err != nil {
		return nil, nil, err
	}
	if g.maxSize > 0 && len(b) > g.maxSize {
		return nil, nil, fmt.Errorf("input too large: %d > %d", len(b), g.maxSize)
	}
	return g.unframe(b)
}

// unframe returns the horse payload of b, unwrapping a frame when b starts
// with the frame magic.
func (g *globalOptions) unframe(b []byte) ([]byte, *frame.Header, error) {
	if !bytes.HasPrefix(b, []byte("HRSE")) {
		return b, nil, nil
	}
	h, payload, err := frame.Decode(b)
	if err != nil {
		return nil, nil, err
	}
	g.log.Debug("unwrapped frame",
		zap.Stringer("version", h.Version),
		zap.Stringer("compression", h.Compression),
		zap.Int("raw_len", h.RawLen))
	return payload, &h, nil
}
