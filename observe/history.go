package observe

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ChangeRecord is one hook call seen by a History.
type ChangeRecord struct {
	ID    uuid.UUID `json:"id"`
	Time  time.Time `json:"timestamp"`
	Op    Op        `json:"operation"`
	Func  string    `json:"fn_name"`
	Ident string    `json:"ident_name"`
	Value string    `json:"ident_value"`
	Type  string    `json:"type_name,omitempty"`
}

func (r ChangeRecord) String() string {
	typeName := ""
	if r.Type != "" {
		typeName = "(" + r.Type + ")"
	}
	return fmt.Sprintf("%s|%s|‹%s›%s=%s", r.Time.Format(time.RFC3339Nano), r.Op, Path(r.Func, r.Ident), typeName, r.Value)
}

// Sink persists change records outside the process.
type Sink interface {
	Append(ctx context.Context, rec ChangeRecord) error
}

// History is an append-only log of every hook call.
type History struct {
	mu      sync.RWMutex
	records []ChangeRecord

	sink   Sink
	logger *zap.Logger
	now    func() time.Time
}

// HistoryOption configures a History.
type HistoryOption func(*History)

// WithSink copies every record to s. Sink errors are logged, not returned.
func WithSink(s Sink) HistoryOption {
	return func(h *History) { h.sink = s }
}

// WithLogger sets the logger used for sink failures.
func WithLogger(l *zap.Logger) HistoryOption {
	return func(h *History) { h.logger = l }
}

// WithClock sets the clock used for record timestamps.
func WithClock(now func() time.Time) HistoryOption {
	return func(h *History) { h.now = now }
}

func NewHistory(opts ...HistoryOption) *History {
	h := &History{
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *History) Register(value any, fn, ident, typeName string) any {
	h.append(OpRegister, fn, ident, value, typeName)
	return value
}

// Propose records the value without a type name.
func (h *History) Propose(value any, fn, ident string) any {
	h.append(OpPropose, fn, ident, value, "")
	return value
}

func (h *History) Request(value any, fn, ident string) any {
	h.append(OpRequest, fn, ident, value, fmt.Sprintf("%T", value))
	return value
}

func (h *History) append(op Op, fn, ident string, value any, typeName string) {
	rec := ChangeRecord{
		ID:    uuid.New(),
		Time:  h.now(),
		Op:    op,
		Func:  fn,
		Ident: ident,
		Value: fmt.Sprint(value),
		Type:  typeName,
	}

	h.mu.Lock()
	h.records = append(h.records, rec)
	h.mu.Unlock()

	if h.sink == nil {
		return
	}
	if err := h.sink.Append(context.Background(), rec); err != nil {
		h.logger.Error("failed to persist change record",
			zap.Stringer("id", rec.ID),
			zap.String("path", Path(fn, ident)),
			zap.Error(err),
		)
	}
}

// Records returns a copy of the log.
func (h *History) Records() []ChangeRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]ChangeRecord, len(h.records))
	copy(out, h.records)
	return out
}

// All iterates over a snapshot of the log in insertion order.
func (h *History) All() iter.Seq[ChangeRecord] {
	records := h.Records()
	return func(yield func(ChangeRecord) bool) {
		for _, rec := range records {
			if !yield(rec) {
				return
			}
		}
	}
}

// Report renders every record with ChangeRecord.String.
func (h *History) Report() []string {
	records := h.Records()
	lines := make([]string, 0, len(records))
	for _, rec := range records {
		lines = append(lines, rec.String())
	}
	return lines
}

// ReportJSON renders every record as a JSON object.
func (h *History) ReportJSON() ([]string, error) {
	records := h.Records()
	lines := make([]string, 0, len(records))
	for _, rec := range records {
		b, err := json.Marshal(rec)
		if err != nil {
			return nil, fmt.Errorf("marshal record %s: %w", rec.ID, err)
		}
		lines = append(lines, string(b))
	}
	return lines, nil
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.records)
}

// Clear empties the in-memory log. Records already handed to the sink stay
// there.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = nil
}
