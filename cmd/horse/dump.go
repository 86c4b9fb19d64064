package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/unkn0wn-root/horse"
)

func newDumpCommand(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "dump [FILE]",
		Short: "Print the value tree of horse input, one tag per line",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, h, err := g.readHorse(cmd, args)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if h != nil {
				fmt.Fprintf(out, "# frame version=%s compression=%s raw_len=%d\n", h.Version, h.Compression, h.RawLen)
			}
			d, err := g.decodeOptions().NewDeserializer(payload)
			if err != nil {
				return err
			}
			return d.Visit(&dumper{w: out})
		},
	}
}

// dumper prints one line per value, children indented under their container.
type dumper struct {
	w     io.Writer
	depth int
	err   error
}

func (p *dumper) line(format string, args ...any) error {
	if p.err != nil {
		return p.err
	}
	_, p.err = fmt.Fprintf(p.w, strings.Repeat("  ", p.depth)+format+"\n", args...)
	return p.err
}

// nested visits n values at the next indentation level. next, when set,
// is called before each one.
func (p *dumper) nested(d *horse.Deserializer, n int, next func() bool) error {
	p.depth++
	defer func() { p.depth-- }()
	for i := 0; i < n; i++ {
		if next != nil && !next() {
			break
		}
		if err := d.Visit(p); err != nil {
			return err
		}
	}
	return nil
}

func (p *dumper) VisitNull() error { return p.line("null") }
func (p *dumper) VisitBool(v bool) error {
	return p.line("%t", v)
}
func (p *dumper) VisitInt(t horse.Type, v int64) error   { return p.line("%s %d", t, v) }
func (p *dumper) VisitUint(t horse.Type, v uint64) error { return p.line("%s %d", t, v) }
func (p *dumper) VisitInt128(v horse.Int128) error       { return p.line("i128 %s", v) }
func (p *dumper) VisitUint128(v horse.Uint128) error     { return p.line("u128 %s", v) }
func (p *dumper) VisitFloat32(v float32) error {
	return p.line("f32 %s", strconv.FormatFloat(float64(v), 'g', -1, 32))
}
func (p *dumper) VisitFloat64(v float64) error {
	return p.line("f64 %s", strconv.FormatFloat(v, 'g', -1, 64))
}
func (p *dumper) VisitChar(r rune) error     { return p.line("char %q", r) }
func (p *dumper) VisitBytes(b []byte) error { return p.line("bin(%d) %q", len(b), b) }
func (p *dumper) VisitNone() error          { return p.line("none") }

func (p *dumper) VisitSome(d *horse.Deserializer) error {
	if err := p.line("some"); err != nil {
		return err
	}
	return p.nested(d, 1, nil)
}

func (p *dumper) VisitSeq(s *horse.SeqAccess) error {
	if err := p.line("list(%d)", s.Len()); err != nil {
		return err
	}
	return p.nested(s.Deserializer(), s.Len(), s.Next)
}

func (p *dumper) VisitMap(m *horse.MapAccess) error {
	if err := p.line("dict(%d)", m.Len()); err != nil {
		return err
	}
	d := m.Deserializer()
	p.depth++
	defer func() { p.depth-- }()
	for m.Next() {
		if err := d.Visit(p); err != nil {
			return err
		}
		if err := p.nested(d, 1, nil); err != nil {
			return err
		}
	}
	return nil
}

func (p *dumper) VisitPair(d *horse.Deserializer) error {
	if err := p.line("pair"); err != nil {
		return err
	}
	return p.nested(d, 2, nil)
}

var _ horse.Visitor = (*dumper)(nil)
