package horse

import "github.com/unkn0wn-root/horse/internal/wire"

// DefaultMaxDepth bounds container nesting on both encode and decode.
const DefaultMaxDepth = wire.DefaultMaxDepth

// coalesce returns def when v is the zero value of T - otherwise v.
func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}

// EncodeOptions configures Marshal. The zero value writes Compact.
type EncodeOptions struct {
	Style Style
	// MaxDepth bounds nesting (and so breaks pointer cycles); 0 => DefaultMaxDepth.
	MaxDepth int
}

// DecodeOptions configures Unmarshal and Decoder. The zero value is strict.
type DecodeOptions struct {
	// MaxDepth bounds container nesting; 0 => DefaultMaxDepth.
	MaxDepth int
	// IgnoreUnknownFields skips dict fields with unknown names and surplus
	// list elements of a record instead of failing.
	IgnoreUnknownFields bool
	// DisallowTrailing rejects input that continues after the top-level value.
	DisallowTrailing bool
	// Logger receives debug events (skipped fields, migrations). nil => NopLogger.
	Logger Logger
}

func (o DecodeOptions) withDefaults() DecodeOptions {
	o.MaxDepth = coalesce(o.MaxDepth, DefaultMaxDepth)
	o.Logger = coalesce[Logger](o.Logger, NopLogger{})
	return o
}

func (o EncodeOptions) withDefaults() EncodeOptions {
	o.MaxDepth = coalesce(o.MaxDepth, DefaultMaxDepth)
	return o
}
