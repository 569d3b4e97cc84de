package logger

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap/zapcore"
)

const defaultBufferSize = 1000

// LogEntry は /api/logs で返すログ1件分
type LogEntry struct {
	Timestamp time.Time              `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// LogBuffer は直近のログを保持するリングバッファ
type LogBuffer struct {
	mu      sync.RWMutex
	entries []LogEntry
	next    int
	full    bool
}

var (
	logBuffer = NewLogBuffer(defaultBufferSize)

	callbackMu        sync.RWMutex
	broadcastCallback func(LogEntry)
)

func NewLogBuffer(size int) *LogBuffer {
	if size <= 0 {
		size = defaultBufferSize
	}
	return &LogBuffer{entries: make([]LogEntry, size)}
}

// GetLogBuffer returns the process-wide log buffer.
func GetLogBuffer() *LogBuffer {
	return logBuffer
}

// SetBroadcastCallback はログ追加時に呼ばれるコールバックを登録する
func SetBroadcastCallback(cb func(LogEntry)) {
	callbackMu.Lock()
	defer callbackMu.Unlock()
	broadcastCallback = cb
}

func (b *LogBuffer) Add(entry LogEntry) {
	b.mu.Lock()
	b.entries[b.next] = entry
	b.next = (b.next + 1) % len(b.entries)
	if b.next == 0 {
		b.full = true
	}
	b.mu.Unlock()

	callbackMu.RLock()
	cb := broadcastCallback
	callbackMu.RUnlock()
	if cb != nil {
		cb(entry)
	}
}

// GetRecent returns up to limit entries, oldest first.
func (b *LogBuffer) GetRecent(limit int) []LogEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	size := b.next
	if b.full {
		size = len(b.entries)
	}
	if limit <= 0 || limit > size {
		limit = size
	}

	out := make([]LogEntry, 0, limit)
	for i := size - limit; i < size; i++ {
		idx := i
		if b.full {
			idx = (b.next + i) % len(b.entries)
		}
		out = append(out, b.entries[idx])
	}
	return out
}

func (b *LogBuffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = make([]LogEntry, len(b.entries))
	b.next = 0
	b.full = false
}

func (b *LogBuffer) ToJSON() ([]byte, error) {
	return json.MarshalIndent(b.GetRecent(0), "", "  ")
}

func (b *LogBuffer) ToText() string {
	var sb strings.Builder
	for _, e := range b.GetRecent(0) {
		fmt.Fprintf(&sb, "%s [%s] %s", e.Timestamp.Format(time.RFC3339), strings.ToUpper(e.Level), e.Message)
		for k, v := range e.Fields {
			fmt.Fprintf(&sb, " %s=%v", k, v)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// bufferCore は zapcore.Core として LogBuffer に書き込む
type bufferCore struct {
	zapcore.LevelEnabler
	buffer *LogBuffer
	fields []zapcore.Field
}

func newBufferCore(level zapcore.LevelEnabler, buffer *LogBuffer) zapcore.Core {
	return &bufferCore{LevelEnabler: level, buffer: buffer}
}

func (c *bufferCore) With(fields []zapcore.Field) zapcore.Core {
	merged := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	merged = append(merged, c.fields...)
	merged = append(merged, fields...)
	return &bufferCore{LevelEnabler: c.LevelEnabler, buffer: c.buffer, fields: merged}
}

func (c *bufferCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *bufferCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range c.fields {
		f.AddTo(enc)
	}
	for _, f := range fields {
		f.AddTo(enc)
	}

	c.buffer.Add(LogEntry{
		Timestamp: ent.Time,
		Level:     ent.Level.String(),
		Message:   ent.Message,
		Fields:    enc.Fields,
	})
	return nil
}

func (c *bufferCore) Sync() error { return nil }
