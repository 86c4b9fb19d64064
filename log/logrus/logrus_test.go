package logrus

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/unkn0wn-root/horse"
)

func TestLogrusLogger(t *testing.T) {
	base, hook := test.NewNullLogger()
	base.SetLevel(logrus.DebugLevel)
	l := LogrusLogger{E: logrus.NewEntry(base)}

	l.Debug("skipped unknown field", horse.Fields{"field": "extra"})
	l.Error("upgrade write-back failed", horse.Fields{"key": "horse:user:1"})

	if len(hook.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(hook.Entries))
	}
	if e := hook.Entries[0]; e.Level != logrus.DebugLevel || e.Data["field"] != "extra" {
		t.Fatalf("got %+v", e)
	}
	if e := hook.LastEntry(); e.Level != logrus.ErrorLevel || e.Message != "upgrade write-back failed" {
		t.Fatalf("got %+v", e)
	}
}
