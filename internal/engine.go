package internal

import (
	"bytes"
	"errors"
	"fmt"
	"go/ast"
	"go/format"
	"go/parser"
	"go/token"
	"os"
	"path"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/tools/go/ast/astutil"

	"github.com/gnolang/rxobs/directive"
	"github.com/gnolang/rxobs/internal/check"
	"github.com/gnolang/rxobs/internal/rewriter"
	tt "github.com/gnolang/rxobs/internal/types"
)

// DefaultRuntimePath is the import path of the package generated code
// calls into.
const DefaultRuntimePath = "github.com/gnolang/rxobs/observe"

// Engine rewrites annotated functions of Go source files.
type Engine struct {
	runtimePath  string
	runtimeAlias string
	functions    map[string]directive.Directive
	cache        *Cache
	logger       *zap.Logger
}

type EngineOption func(*Engine)

// WithFunctions annotates functions by name in addition to directive
// comments.
func WithFunctions(functions map[string]directive.Directive) EngineOption {
	return func(e *Engine) {
		e.functions = functions
	}
}

// WithRuntime sets the import path and the package name generated calls use.
// An empty alias means the last element of importPath.
func WithRuntime(importPath, alias string) EngineOption {
	return func(e *Engine) {
		if importPath != "" {
			e.runtimePath = importPath
		}
		e.runtimeAlias = alias
	}
}

func WithCache(c *Cache) EngineOption {
	return func(e *Engine) {
		e.cache = c
	}
}

func WithLogger(logger *zap.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine creates a new rewrite engine.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		runtimePath: DefaultRuntimePath,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.runtimeAlias == "" {
		e.runtimeAlias = path.Base(e.runtimePath)
	}
	return e
}

// Result is the outcome of rewriting one file.
type Result struct {
	Filename string
	Source   []byte
	Output   []byte

	// Functions lists the instrumented functions in source order.
	Functions []string
	Hooks     int
}

// Changed reports whether any hook was inserted.
func (r *Result) Changed() bool {
	return r.Hooks > 0
}

// Run rewrites the named file.
func (e *Engine) Run(filename string) (*Result, error) {
	src, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", filename, err)
	}

	if e.cache != nil {
		if res, ok := e.cache.Get(filename, src); ok {
			e.logger.Debug("cache hit", zap.String("file", filename))
			return res, nil
		}
	}

	res, err := e.RunSource(filename, src)
	if err != nil {
		return nil, err
	}

	if e.cache != nil {
		if err := e.cache.Set(filename, res); err != nil {
			e.logger.Warn("failed to cache result", zap.String("file", filename), zap.Error(err))
		}
	}
	return res, nil
}

// RunSource rewrites src. filename is used for positions only.
// No output is produced when any directive is invalid.
func (e *Engine) RunSource(filename string, src []byte) (*Result, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, filename, src, parser.ParseComments)
	if err != nil {
		return nil, &rewriter.TransformError{Err: err}
	}

	res := &Result{Filename: filename, Source: src, Output: src}

	targets := rewriter.Targets(file, e.functions)
	if len(targets) == 0 {
		return res, nil
	}

	var errs []error
	for _, t := range targets {
		if t.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %s: %w", fset.Position(directivePos(t)), t.Name, t.Err))
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	qualifier, needImport := e.qualifier(file)
	for _, t := range targets {
		hooks, err := rewriter.RewriteFunc(t.Directive, t.Func, rewriter.WithRuntime(qualifier))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", fset.Position(t.Func.Pos()), err)
		}
		if hooks == 0 {
			continue
		}
		res.Functions = append(res.Functions, t.Name)
		res.Hooks += hooks
		e.logger.Debug("instrumented function",
			zap.String("file", filename),
			zap.String("func", t.Name),
			zap.Int("hooks", hooks),
		)
	}

	if res.Hooks == 0 {
		return res, nil
	}
	if needImport {
		name := qualifier
		if name == path.Base(e.runtimePath) {
			name = ""
		}
		astutil.AddNamedImport(fset, file, name, e.runtimePath)
	}

	var buf bytes.Buffer
	if err := format.Node(&buf, fset, file); err != nil {
		return nil, fmt.Errorf("error formatting %s: %w", filename, err)
	}
	res.Output = buf.Bytes()
	return res, nil
}

// qualifier returns the package name generated calls use, and whether
// the runtime import still has to be added.
func (e *Engine) qualifier(file *ast.File) (string, bool) {
	for _, imp := range file.Imports {
		p, err := strconv.Unquote(imp.Path.Value)
		if err != nil || p != e.runtimePath {
			continue
		}
		if imp.Name == nil {
			return path.Base(p), false
		}
		if imp.Name.Name != "_" && imp.Name.Name != "." {
			return imp.Name.Name, false
		}
	}
	return e.runtimeAlias, true
}

// Check reports directive problems in the named file. It also returns the
// names of the functions the file declares, for UnknownFunctions.
func (e *Engine) Check(filename string) ([]tt.Issue, []string, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, filename, nil, parser.ParseComments)
	if err != nil {
		return nil, nil, fmt.Errorf("error parsing file: %w", err)
	}

	var names []string
	for _, decl := range file.Decls {
		if fn, ok := decl.(*ast.FuncDecl); ok {
			names = append(names, rewriter.FuncName(fn))
		}
	}
	return check.File(fset, file, e.functions), names, nil
}

// Functions returns the configured functions.
func (e *Engine) Functions() map[string]directive.Directive {
	return e.functions
}

func directivePos(t rewriter.Target) token.Pos {
	var ce *directive.ConfigError
	if t.Source != nil && errors.As(t.Err, &ce) {
		return t.Source.Pos(ce.Line, ce.Col)
	}
	return t.Func.Pos()
}
