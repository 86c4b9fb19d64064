package slog

import (
	"bytes"
	stdslog "log/slog"
	"strings"
	"testing"

	"github.com/unkn0wn-root/horse"
)

func TestSlogLogger(t *testing.T) {
	var buf bytes.Buffer
	l := Logger{L: stdslog.New(stdslog.NewTextHandler(&buf, &stdslog.HandlerOptions{Level: stdslog.LevelInfo}))}

	l.Debug("hidden", horse.Fields{"a": 1})
	l.Info("shown", horse.Fields{"version": "1.1.0"})

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug leaked: %s", out)
	}
	if !strings.Contains(out, "msg=shown") || !strings.Contains(out, "version=1.1.0") {
		t.Fatalf("got %s", out)
	}
}

func TestSlogFieldsInKeyOrder(t *testing.T) {
	var buf bytes.Buffer
	l := Logger{L: stdslog.New(stdslog.NewTextHandler(&buf, nil))}

	l.Warn("migrated", horse.Fields{"to": "2.0.0", "key": "horse:user:1", "from": "1.0.0"})

	out := buf.String()
	from, key, to := strings.Index(out, "from="), strings.Index(out, "key="), strings.Index(out, "to=")
	if from < 0 || !(from < key && key < to) {
		t.Fatalf("fields out of order: %s", out)
	}
}
