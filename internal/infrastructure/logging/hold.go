package logging

import (
	"context"
	"sync"

	"github.com/alexisbeaulieu97/reshelf/internal/ports"
)

// DefaultHoldLimit bounds how many records an EventBuffer keeps while the
// interactive display owns the terminal.
const DefaultHoldLimit = 1000

type heldLevel uint8

const (
	heldDebug heldLevel = iota
	heldInfo
	heldWarn
	heldError
)

// heldRecord keeps the execution id rather than the context: the run
// context is usually cancelled by the time records are replayed.
type heldRecord struct {
	level       heldLevel
	executionID string
	msg         string
	fields      []interface{}
}

// EventBuffer is a fixed-size ring of log records. When full, the oldest
// record is overwritten and counted as dropped.
type EventBuffer struct {
	mu      sync.Mutex
	ring    []heldRecord
	start   int
	count   int
	dropped int
}

// NewEventBuffer creates a buffer holding up to limit records. A
// non-positive limit selects DefaultHoldLimit.
func NewEventBuffer(limit int) *EventBuffer {
	if limit <= 0 {
		limit = DefaultHoldLimit
	}
	return &EventBuffer{ring: make([]heldRecord, limit)}
}

func (b *EventBuffer) push(rec heldRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()

	size := len(b.ring)
	if b.count < size {
		b.ring[(b.start+b.count)%size] = rec
		b.count++
		return
	}
	b.ring[b.start] = rec
	b.start = (b.start + 1) % size
	b.dropped++
}

// Len reports how many records are held.
func (b *EventBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Dropped reports how many records were overwritten since the last Flush.
func (b *EventBuffer) Dropped() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

func (b *EventBuffer) drain() ([]heldRecord, int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]heldRecord, b.count)
	for i := range out {
		out[i] = b.ring[(b.start+i)%len(b.ring)]
		b.ring[(b.start+i)%len(b.ring)] = heldRecord{}
	}
	dropped := b.dropped
	b.start, b.count, b.dropped = 0, 0, 0
	return out, dropped
}

// Flush replays held records into target in arrival order and empties the
// buffer. Overwritten records are summarised by one trailing warning.
func (b *EventBuffer) Flush(target ports.Logger) {
	if target == nil {
		return
	}
	records, dropped := b.drain()
	for _, rec := range records {
		ctx := context.Background()
		if rec.executionID != "" {
			ctx = ports.WithExecutionID(ctx, rec.executionID)
		}
		switch rec.level {
		case heldDebug:
			target.Debug(ctx, rec.msg, rec.fields...)
		case heldWarn:
			target.Warn(ctx, rec.msg, rec.fields...)
		case heldError:
			target.Error(ctx, rec.msg, rec.fields...)
		default:
			target.Info(ctx, rec.msg, rec.fields...)
		}
	}
	if dropped > 0 {
		target.Warn(context.Background(), "log records dropped while the display was active", "dropped", dropped)
	}
}

// BufferedLogger is the ports.Logger handed to collaborators while the
// interactive display runs. Everything it receives lands in an EventBuffer.
type BufferedLogger struct {
	buffer *EventBuffer
	fields []interface{}
}

// NewBufferedLogger returns a logger that holds records in buffer.
func NewBufferedLogger(buffer *EventBuffer) *BufferedLogger {
	return &BufferedLogger{buffer: buffer}
}

func (l *BufferedLogger) Debug(ctx context.Context, msg string, fields ...interface{}) {
	l.hold(ctx, heldDebug, msg, fields)
}

func (l *BufferedLogger) Info(ctx context.Context, msg string, fields ...interface{}) {
	l.hold(ctx, heldInfo, msg, fields)
}

func (l *BufferedLogger) Warn(ctx context.Context, msg string, fields ...interface{}) {
	l.hold(ctx, heldWarn, msg, fields)
}

func (l *BufferedLogger) Error(ctx context.Context, msg string, fields ...interface{}) {
	l.hold(ctx, heldError, msg, fields)
}

// With returns a child sharing the same buffer.
func (l *BufferedLogger) With(fields ...interface{}) ports.Logger {
	merged := make([]interface{}, 0, len(l.fields)+len(fields))
	merged = append(merged, l.fields...)
	merged = append(merged, fields...)
	return &BufferedLogger{buffer: l.buffer, fields: merged}
}

func (l *BufferedLogger) hold(ctx context.Context, level heldLevel, msg string, fields []interface{}) {
	if l == nil || l.buffer == nil {
		return
	}
	rec := heldRecord{level: level, msg: msg, executionID: ports.ExecutionID(ctx)}
	if len(l.fields)+len(fields) > 0 {
		rec.fields = make([]interface{}, 0, len(l.fields)+len(fields))
		rec.fields = append(rec.fields, l.fields...)
		rec.fields = append(rec.fields, fields...)
	}
	l.buffer.push(rec)
}

var _ ports.Logger = (*BufferedLogger)(nil)
