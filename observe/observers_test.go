package observe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func fixedClock() func() time.Time {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return ts }
}

func TestBaseRecords(t *testing.T) {
	t.Parallel()
	core, logs := observer.New(zapcore.InfoLevel)
	b := Base{Logger: zap.New(core), Now: fixedClock()}
	nanos := strconv.FormatInt(fixedClock()().UnixNano(), 10)

	assert.Equal(t, 1, b.Register(1, "compute", "k", "int"))
	assert.Equal(t, "s", b.Propose("s", "compute", "name"))
	assert.Equal(t, 2.5, b.Request(2.5, "compute", "q"))

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, nanos+"|Registering|‹compute/k›(int)=1", entries[0].Message)
	assert.Equal(t, nanos+"|Proposing|‹compute/name›(string): s", entries[1].Message)
	assert.Equal(t, nanos+"|Requesting|‹compute/q›(float64) (old value 2.5)", entries[2].Message)
	assert.Equal(t, "proposing", entries[1].ContextMap()["op"])
	assert.Equal(t, "q", entries[2].ContextMap()["ident"])
}

func TestSnapshot(t *testing.T) {
	t.Parallel()
	core, logs := observer.New(zapcore.InfoLevel)
	s := NewSnapshot(NewBase(zap.New(core)))

	s.Register(1, "example", "k", "int")
	s.Propose(6, "example", "_index")
	s.Register("hello", "example", "ss", "string")
	s.Register(2, "example", "k", "int")
	assert.Equal(t, 3, s.Request(3, "example", "q"))

	assert.Equal(t, []string{
		"example/_index(int): 6",
		"example/k(int): 2",
		"example/ss(string): hello",
	}, s.Report())
	assert.Equal(t, 3, s.Len())

	v, ok := s.Get("example/k(int)")
	require.True(t, ok)
	assert.Equal(t, "2", v)

	// requests fall through to Base
	assert.Equal(t, 1, logs.Len())

	// an interface variable keeps one row under its static type
	var shape fmt.Stringer = celsius(20)
	s.Register(shape, "example", "shape", "fmt.Stringer")
	s.Propose(celsius(25), "example", "shape")
	v, ok = s.Get("example/shape(fmt.Stringer)")
	require.True(t, ok)
	assert.Equal(t, "25", v)
	assert.Equal(t, 4, s.Len())

	s.Clear()
	assert.Empty(t, s.Report())
}

type memorySink struct {
	mu      sync.Mutex
	records []ChangeRecord
	err     error
}

func (m *memorySink) Append(_ context.Context, rec ChangeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, rec)
	return nil
}

func TestHistory(t *testing.T) {
	t.Parallel()
	sink := &memorySink{}
	h := NewHistory(WithSink(sink), WithClock(fixedClock()))

	h.Register(1, "history", "k", "int")
	h.Propose(6, "history", "_index")
	h.Request("x", "history", "q")

	require.Equal(t, 3, h.Len())
	assert.Equal(t, []string{
		"2024-05-01T12:00:00Z|registering|‹history/k›(int)=1",
		"2024-05-01T12:00:00Z|proposing|‹history/_index›=6",
		"2024-05-01T12:00:00Z|requesting|‹history/q›(string)=x",
	}, h.Report())

	records := h.Records()
	assert.Equal(t, records, sink.records)
	assert.NotEqual(t, records[0].ID, records[1].ID)

	var ops []Op
	for rec := range h.All() {
		ops = append(ops, rec.Op)
	}
	assert.Equal(t, []Op{OpRegister, OpPropose, OpRequest}, ops)

	lines, err := h.ReportJSON()
	require.NoError(t, err)
	require.Len(t, lines, 3)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &decoded))
	assert.Equal(t, "proposing", decoded["operation"])
	assert.Equal(t, "_index", decoded["ident_name"])
	assert.Equal(t, "6", decoded["ident_value"])
	assert.NotContains(t, decoded, "type_name")

	h.Clear()
	assert.Zero(t, h.Len())
	assert.Len(t, sink.records, 3)
}

func TestHistorySinkFailureIsLogged(t *testing.T) {
	t.Parallel()
	core, logs := observer.New(zapcore.ErrorLevel)
	sink := &memorySink{err: errors.New("disk full")}
	h := NewHistory(WithSink(sink), WithLogger(zap.New(core)))

	assert.Equal(t, 1, h.Register(1, "f", "k", "int"))
	assert.Equal(t, 1, h.Len())
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "f/k", logs.All()[0].ContextMap()["path"])
}

func TestFormula(t *testing.T) {
	t.Parallel()
	f, err := NewFormula(map[string]string{
		"a": "=(b+c)*s",
		"s": "=SUM({b, c, 1})",
	}, nil)
	require.NoError(t, err)

	// the instrumented function: b := 4; c := 11; a := 0; w := a
	b := Propose(f, 4, "xlformulas", "b")
	c := Propose(f, 11, "xlformulas", "c")
	a := 0
	w := Request(f, a, "xlformulas", "a")

	assert.Equal(t, 4, b)
	assert.Equal(t, 11, c)
	assert.Equal(t, 240, w)

	// names without a formula pass through
	assert.Equal(t, 7, Request(f, 7, "xlformulas", "b"))
	assert.Equal(t, []string{"b: 4", "c: 11"}, f.Report())

	// results are float64; integral ones of any size reach int variables
	require.NoError(t, f.Set("total", "=price * qty"))
	Propose(f, 1500, "order", "price")
	Propose(f, 1000, "order", "qty")
	assert.Equal(t, 1500000, Request(f, 0, "order", "total"))
}

func TestFormulaErrors(t *testing.T) {
	t.Parallel()

	_, err := NewFormula(map[string]string{"a": "=b +"}, nil)
	require.Error(t, err)

	core, logs := observer.New(zapcore.WarnLevel)
	f, err := NewFormula(map[string]string{
		"x": "=y + 1",
		"y": "=x * 2",
		"z": "=missing",
	}, zap.New(core))
	require.NoError(t, err)

	_, err = f.Eval("x")
	assert.ErrorIs(t, err, ErrCircular)

	assert.Equal(t, 5, Request(f, 5, "f", "x"))
	assert.Equal(t, 6, Request(f, 6, "f", "z"))
	assert.Equal(t, 2, logs.Len())

	f.Register([]int{1}, "f", "missing", "[]int")
	_, err = f.Eval("z")
	assert.Error(t, err)

	require.NoError(t, f.Set("z", `="text"`))
	assert.Equal(t, "text", Request(f, "old", "f", "z"))

	f.Clear()
	assert.Empty(t, f.Report())
}

func TestMulti(t *testing.T) {
	t.Parallel()
	snap := NewSnapshot(Base{Logger: zap.NewNop()})
	hist := NewHistory()
	f, err := NewFormula(map[string]string{"total": "=price * 2"}, nil)
	require.NoError(t, err)

	m := Multi{snap, hist, f}
	price := Register(m, 21, "order", "price", TypeOf(21))
	total := Request(m, 0, "order", "total")

	assert.Equal(t, 21, price)
	assert.Equal(t, 42, total)
	assert.Equal(t, 2, hist.Len())
	assert.Equal(t, []string{"order/price(int): 21"}, snap.Report())

	assert.Equal(t, 9, RequestArg(m, 9))
}
