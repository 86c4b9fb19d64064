//go:build go1.21

// Package slog adapts a *log/slog.Logger to horse.Logger. Fields are emitted
// in key order so that self-heal and migration lines diff cleanly.
package slog

import (
	"context"
	stdslog "log/slog"
	"sort"

	"github.com/unkn0wn-root/horse"
)

var _ horse.Logger = Logger{}

// Logger writes through L, or through slog.Default when L is nil.
type Logger struct{ L *stdslog.Logger }

func (s Logger) Debug(msg string, f horse.Fields) { s.log(stdslog.LevelDebug, msg, f) }
func (s Logger) Info(msg string, f horse.Fields)  { s.log(stdslog.LevelInfo, msg, f) }
func (s Logger) Warn(msg string, f horse.Fields)  { s.log(stdslog.LevelWarn, msg, f) }
func (s Logger) Error(msg string, f horse.Fields) { s.log(stdslog.LevelError, msg, f) }

func (s Logger) log(lvl stdslog.Level, msg string, f horse.Fields) {
	l := s.L
	if l == nil {
		l = stdslog.Default()
	}
	ctx := context.Background()
	if !l.Enabled(ctx, lvl) {
		return
	}
	l.LogAttrs(ctx, lvl, msg, attrs(f)...)
}

func attrs(f horse.Fields) []stdslog.Attr {
	if len(f) == 0 {
		return nil
	}
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]stdslog.Attr, 0, len(keys))
	for _, k := range keys {
		out = append(out, stdslog.Any(k, f[k]))
	}
	return out
}
