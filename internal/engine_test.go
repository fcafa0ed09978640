package internal

import (
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/gnolang/rxobs/directive"
	"github.com/gnolang/rxobs/internal/rewriter"
)

// assertValidGo checks that src parses as a Go file.
func assertValidGo(t *testing.T, src []byte) {
	t.Helper()
	_, err := parser.ParseFile(token.NewFileSet(), "out.go", src, parser.ParseComments)
	require.NoError(t, err, "output:\n%s", src)
}

const scenarioSrc = `package p

// compute adds two numbers.
//
//rxobs:decorate context = obs, propose = [k], register = [], request = [q]
func compute(obs Observer) int {
	k := 1
	q := 2
	s := k + q
	return s
}

func untouched() int {
	k := 1
	return k
}
`

func TestEngineRunSource(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		src       string
		opts      []EngineOption
		contains  []string
		absent    []string
		functions []string
		hooks     int
	}{
		{
			name: "doc comment directive",
			src:  scenarioSrc,
			contains: []string{
				`import "github.com/gnolang/rxobs/observe"`,
				`observe.Propose(obs, k, "compute", "k")`,
				`s := k + observe.Request(obs, q, "compute", "q")`,
				"//rxobs:decorate context = obs",
				"func untouched() int {\n\tk := 1\n\treturn k\n}",
			},
			functions: []string{"compute"},
			hooks:     2,
		},
		{
			name: "configured method",
			src: `package p

func (s *Sheet) Total(n int) int {
	t := n * 2
	return t
}
`,
			opts: []EngineOption{WithFunctions(map[string]directive.Directive{
				"Sheet.Total": {Context: "s.obs", Propose: []string{"t"}, Request: []string{"n"}},
			})},
			contains: []string{
				`t := observe.Request(s.obs, n, "Sheet.Total", "n") * 2`,
				`observe.Propose(s.obs, t, "Sheet.Total", "t")`,
			},
			functions: []string{"Sheet.Total"},
			hooks:     2,
		},
		{
			name: "existing import keeps its name",
			src: `package p

import rx "github.com/gnolang/rxobs/observe"

//rxobs:decorate context = obs, propose = [], register = [n], request = []
func double(obs rx.Observer, n int) int {
	return n * 2
}
`,
			contains: []string{
				`return rx.Register(obs, n, "double", "n", rx.TypeOf(n)) * 2`,
			},
			absent:    []string{"\t\"github.com/gnolang/rxobs/observe\""},
			functions: []string{"double"},
			hooks:     1,
		},
		{
			name: "custom runtime",
			src: `package p

import "fmt"

//rxobs:decorate context = hooks.Default, propose = [msg], register = [], request = []
func greet() {
	msg := "hi"
	fmt.Println(msg)
}
`,
			opts: []EngineOption{WithRuntime("example.com/tracing/hooks", "hk")},
			contains: []string{
				`hk "example.com/tracing/hooks"`,
				`hk.Propose(hooks.Default, msg, "greet", "msg")`,
			},
			functions: []string{"greet"},
			hooks:     1,
		},
		{
			name: "directive with inert names only",
			src: `package p

//rxobs:decorate context = obs, propose = [ghost], register = [], request = []
func f(obs any) int { return 1 }
`,
			absent: []string{"import"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			engine := NewEngine(tt.opts...)
			res, err := engine.RunSource("p.go", []byte(tt.src))
			require.NoError(t, err)

			out := string(res.Output)
			assertValidGo(t, res.Output)
			for _, s := range tt.contains {
				assert.Contains(t, out, s)
			}
			for _, s := range tt.absent {
				assert.NotContains(t, out, s)
			}
			assert.Equal(t, tt.functions, res.Functions)
			assert.Equal(t, tt.hooks, res.Hooks)
			assert.Equal(t, tt.hooks > 0, res.Changed())
			if !res.Changed() {
				assert.Equal(t, tt.src, out)
			}
		})
	}
}

func TestEngineRejectsInvalidDirectives(t *testing.T) {
	t.Parallel()
	src := `package p

//rxobs:decorate context = obs, propose = [a register = [], request = []
func f(obs any) {
	a := 1
	_ = a
}

//rxobs:decorate context = obs, propose = [b], register = [], request = []
func g(obs any) {
	b := 1
	_ = b
}
`
	_, err := NewEngine().RunSource("p.go", []byte(src))
	require.Error(t, err)
	assert.ErrorIs(t, err, directive.ErrMalformedList)
	assert.True(t, strings.HasPrefix(err.Error(), "p.go:3:"), err.Error())
}

func TestEngineParseFailure(t *testing.T) {
	t.Parallel()
	_, err := NewEngine().RunSource("p.go", []byte("package p\nfunc {"))
	assert.ErrorIs(t, err, rewriter.ErrParseFailure)
}

func TestEngineRunUsesCache(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	filename := filepath.Join(dir, "p.go")
	require.NoError(t, os.WriteFile(filename, []byte(scenarioSrc), 0o644))

	cache, err := NewCache(filepath.Join(dir, ".rxobs"), "salt")
	require.NoError(t, err)

	core, logs := observer.New(zapcore.DebugLevel)
	engine := NewEngine(WithCache(cache), WithLogger(zap.New(core)))

	first, err := engine.Run(filename)
	require.NoError(t, err)
	assert.Zero(t, logs.FilterMessage("cache hit").Len())

	second, err := engine.Run(filename)
	require.NoError(t, err)
	assert.Equal(t, 1, logs.FilterMessage("cache hit").Len())
	assert.Equal(t, first.Output, second.Output)

	_, err = engine.Run(filepath.Join(dir, "missing.go"))
	assert.Error(t, err)
}

func TestEngineCheck(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	filename := filepath.Join(dir, "p.go")
	require.NoError(t, os.WriteFile(filename, []byte(scenarioSrc), 0o644))

	issues, names, err := NewEngine().Check(filename)
	require.NoError(t, err)
	assert.Empty(t, issues)
	assert.Equal(t, []string{"compute", "untouched"}, names)
}
