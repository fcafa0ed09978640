// Package rewriter inserts observer calls into a function body.
//
// The rewrite is a single post-order pass over the body (astutil.Apply):
// children are rewritten before the node that holds them, left to right, so
// generated hooks run in the order the original expressions were evaluated.
// A small set of node kinds carry rules (identifiers, calls, assignments,
// declarations and the statements that can hold them in an init slot); every
// other kind is rebuilt from its rewritten children.
//
// Names are matched lexically. There is no symbol table: a listed name is
// rewritten at every eligible occurrence in the body, whichever declaration
// it refers to.
package rewriter

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"

	"golang.org/x/tools/go/ast/astutil"

	"github.com/gnolang/rxobs/directive"
)

// DefaultRuntime is the package name generated calls are qualified with.
const DefaultRuntime = "observe"

// Option configures a Rewriter.
type Option func(*Rewriter)

// WithRuntime sets the qualifier of the runtime helpers
// (the name the observe package is imported under).
func WithRuntime(name string) Option {
	return func(r *Rewriter) {
		if name != "" {
			r.runtime = name
		}
	}
}

// Rewriter rewrites the bodies of functions carrying one directive.
type Rewriter struct {
	d       directive.Directive
	fn      string
	runtime string
	context []string

	skip    map[ast.Node]bool
	argReq  map[*ast.CallExpr][]int
	pending map[ast.Stmt][]ast.Stmt
	hoisted map[*ast.BlockStmt]ast.Stmt

	hooks int
}

// New prepares a rewrite of the function named funcName.
// It fails with a TransformError when the observer reference is not a
// valid Go expression.
func New(d directive.Directive, funcName string, opts ...Option) (*Rewriter, error) {
	r := &Rewriter{
		d:       d,
		fn:      funcName,
		runtime: DefaultRuntime,
	}
	for _, opt := range opts {
		opt(r)
	}

	expr, err := parser.ParseExpr(d.Context)
	if err != nil {
		return nil, &TransformError{Func: funcName, Err: fmt.Errorf("observer reference %q: %w", d.Context, err)}
	}
	r.context = referenceNames(expr)
	if r.context == nil {
		return nil, &TransformError{Func: funcName, Err: fmt.Errorf("observer reference %q is not an identifier or selector", d.Context)}
	}
	return r, nil
}

// referenceNames flattens a.b.c into its names, or returns nil for any
// other expression.
func referenceNames(e ast.Expr) []string {
	switch e := e.(type) {
	case *ast.Ident:
		return []string{e.Name}
	case *ast.SelectorExpr:
		head := referenceNames(e.X)
		if head == nil {
			return nil
		}
		return append(head, e.Sel.Name)
	default:
		return nil
	}
}

// Hooks returns how many observer calls the last Rewrite inserted.
func (r *Rewriter) Hooks() int {
	return r.hooks
}

// Rewrite instruments body and returns it.
// The body is rewritten in place; callers that need the original must
// parse it again.
func (r *Rewriter) Rewrite(body *ast.BlockStmt) *ast.BlockStmt {
	r.skip = make(map[ast.Node]bool)
	r.argReq = make(map[*ast.CallExpr][]int)
	r.pending = make(map[ast.Stmt][]ast.Stmt)
	r.hoisted = make(map[*ast.BlockStmt]ast.Stmt)
	r.hooks = 0

	if body == nil || r.d.IsEmpty() {
		return body
	}

	out := astutil.Apply(body, r.pre, r.post)
	return out.(*ast.BlockStmt)
}

// RewriteFunc rewrites fn.Body using the name FuncName(fn).
func RewriteFunc(d directive.Directive, fn *ast.FuncDecl, opts ...Option) (int, error) {
	r, err := New(d, FuncName(fn), opts...)
	if err != nil {
		return 0, err
	}
	fn.Body = r.Rewrite(fn.Body)
	return r.Hooks(), nil
}

// FuncName is the name generated calls report for fn.
// Methods are reported as Recv.Method.
func FuncName(fn *ast.FuncDecl) string {
	if fn.Recv == nil || len(fn.Recv.List) == 0 {
		return fn.Name.Name
	}
	if recv := receiverName(fn.Recv.List[0].Type); recv != "" {
		return recv + "." + fn.Name.Name
	}
	return fn.Name.Name
}

func receiverName(e ast.Expr) string {
	switch e := e.(type) {
	case *ast.StarExpr:
		return receiverName(e.X)
	case *ast.ParenExpr:
		return receiverName(e.X)
	case *ast.IndexExpr:
		return receiverName(e.X)
	case *ast.IndexListExpr:
		return receiverName(e.X)
	case *ast.Ident:
		return e.Name
	default:
		return ""
	}
}

// ParseBody parses a sequence of statements as a function body.
func ParseBody(src string) (*ast.BlockStmt, *token.FileSet, error) {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "body.go", "package p\nfunc _() {\n"+src+"\n}\n", parser.ParseComments)
	if err != nil {
		return nil, nil, &TransformError{Err: err}
	}
	return f.Decls[0].(*ast.FuncDecl).Body, fset, nil
}
