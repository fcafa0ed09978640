package rewriter

import (
	"go/ast"

	"github.com/gnolang/rxobs/directive"
)

// Target is a function selected for instrumentation.
type Target struct {
	Func      *ast.FuncDecl
	Name      string
	Directive directive.Directive

	// Source is nil when the directive comes from the configuration file.
	Source *directive.Source

	// Err is the parse error of the directive comment, if any.
	Err error
}

// Lookup reports whether fn is annotated, either by a directive comment
// or by an entry in functions keyed by FuncName(fn).
// A directive comment takes precedence over a configuration entry.
func Lookup(fn *ast.FuncDecl, functions map[string]directive.Directive) (Target, bool) {
	if fn.Body == nil {
		return Target{}, false
	}

	t := Target{Func: fn, Name: FuncName(fn)}
	if src, ok := directive.Find(fn.Doc); ok {
		t.Source = src
		t.Directive, t.Err = src.Parse()
		return t, true
	}

	d, ok := functions[t.Name]
	if !ok {
		return Target{}, false
	}
	t.Directive = d
	return t, true
}

// Targets returns the annotated functions of file in source order.
func Targets(file *ast.File, functions map[string]directive.Directive) []Target {
	var targets []Target
	for _, decl := range file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok {
			continue
		}
		if t, ok := Lookup(fn, functions); ok {
			targets = append(targets, t)
		}
	}
	return targets
}
