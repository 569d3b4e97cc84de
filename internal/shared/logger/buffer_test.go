package logger

import (
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestLogBuffer_RingOrder(t *testing.T) {
	b := NewLogBuffer(3)
	for _, msg := range []string{"a", "b", "c", "d", "e"} {
		b.Add(LogEntry{Timestamp: time.Unix(0, 0), Level: "info", Message: msg})
	}

	got := b.GetRecent(0)
	if len(got) != 3 {
		t.Fatalf("len got=%d want=3", len(got))
	}
	for i, want := range []string{"c", "d", "e"} {
		if got[i].Message != want {
			t.Fatalf("entry %d got=%q want=%q", i, got[i].Message, want)
		}
	}

	last := b.GetRecent(1)
	if len(last) != 1 || last[0].Message != "e" {
		t.Fatalf("GetRecent(1) got=%+v", last)
	}

	b.Clear()
	if got := b.GetRecent(0); len(got) != 0 {
		t.Fatalf("after Clear got=%d entries", len(got))
	}
}

func TestBufferCore_CapturesFields(t *testing.T) {
	b := NewLogBuffer(10)
	l := zap.New(newBufferCore(zapcore.InfoLevel, b)).With(zap.String("component", "calendar"))

	l.Debug("hidden")
	l.Info("Present opened", zap.String("present_id", "day1"))

	got := b.GetRecent(0)
	if len(got) != 1 {
		t.Fatalf("len got=%d want=1", len(got))
	}
	e := got[0]
	if e.Message != "Present opened" || e.Level != "info" {
		t.Fatalf("entry got=%+v", e)
	}
	if e.Fields["present_id"] != "day1" || e.Fields["component"] != "calendar" {
		t.Fatalf("fields got=%v", e.Fields)
	}

	text := b.ToText()
	if !strings.Contains(text, "[INFO] Present opened") {
		t.Fatalf("text got=%q", text)
	}
}

func TestBroadcastCallback(t *testing.T) {
	var seen []string
	SetBroadcastCallback(func(e LogEntry) { seen = append(seen, e.Message) })
	t.Cleanup(func() { SetBroadcastCallback(nil) })

	b := NewLogBuffer(2)
	b.Add(LogEntry{Message: "x"})
	if len(seen) != 1 || seen[0] != "x" {
		t.Fatalf("callback got=%v", seen)
	}
}
