package directive

import (
	"go/ast"
	goparser "go/parser"
	"go/token"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func firstFunc(t *testing.T, src string) (*ast.FuncDecl, *token.FileSet) {
	t.Helper()
	fset := token.NewFileSet()
	f, err := goparser.ParseFile(fset, "test.go", src, goparser.ParseComments)
	require.NoError(t, err)
	for _, decl := range f.Decls {
		if fn, ok := decl.(*ast.FuncDecl); ok {
			return fn, fset
		}
	}
	t.Fatal("no function in source")
	return nil, nil
}

func TestFind(t *testing.T) {
	t.Parallel()
	src := `package main

// compute adds things.
//
//rxobs:decorate context = obs, propose = [k], register = [], request = [q]
func compute() {}
`
	fn, _ := firstFunc(t, src)
	ds, ok := Find(fn.Doc)
	require.True(t, ok)
	assert.Equal(t, " context = obs, propose = [k], register = [], request = [q]", ds.Text)

	d, err := ds.Parse()
	require.NoError(t, err)
	assert.Equal(t, Directive{Context: "obs", Propose: []string{"k"}, Request: []string{"q"}}, d)
}

func TestFindContinuation(t *testing.T) {
	t.Parallel()
	src := `package main

//rxobs:decorate context = obs,
//   propose = [k],
//   register = [l],
//   request = [q 1]
// trailing prose is not part of the directive
func compute() {}
`
	fn, fset := firstFunc(t, src)
	ds, ok := Find(fn.Doc)
	require.True(t, ok)

	_, err := ds.Parse()
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, MalformedList, cfgErr.Kind)
	assert.Equal(t, 4, cfgErr.Line)

	pos := fset.Position(ds.Pos(cfgErr.Line, cfgErr.Col))
	assert.Equal(t, 6, pos.Line)
	assert.Equal(t, 19, pos.Column)
	assert.Equal(t, 3, fset.Position(ds.Start()).Line)
}

func TestFindIgnoresOtherComments(t *testing.T) {
	t.Parallel()
	src := `package main

// rxobs:decorate is mentioned here but this is prose.
//rxobs:decorated context = obs
func compute() {}
`
	fn, _ := firstFunc(t, src)
	_, ok := Find(fn.Doc)
	assert.False(t, ok)
	assert.False(t, IsDirective(fn.Doc.List[0]))
	assert.False(t, IsDirective(fn.Doc.List[1]))

	_, ok = Find(nil)
	assert.False(t, ok)
}
