package rewriter

import (
	"go/ast"
	"go/token"
	"strconv"
)

// Names of the runtime helpers generated code calls.
const (
	helperRegister   = "Register"
	helperPropose    = "Propose"
	helperRequest    = "Request"
	helperRequestArg = "RequestArg"
	helperTypeOf     = "TypeOf"
)

// observer builds a fresh copy of the observer reference.
func (r *Rewriter) observer() ast.Expr {
	var e ast.Expr = ast.NewIdent(r.context[0])
	for _, name := range r.context[1:] {
		e = &ast.SelectorExpr{X: e, Sel: ast.NewIdent(name)}
	}
	return e
}

func (r *Rewriter) helper(name string, args ...ast.Expr) *ast.CallExpr {
	return &ast.CallExpr{
		Fun:  &ast.SelectorExpr{X: ast.NewIdent(r.runtime), Sel: ast.NewIdent(name)},
		Args: args,
	}
}

// hook builds a call to an observer helper:
//
//	observe.Name(ctx, value, "fn", "ident", extra...)
func (r *Rewriter) hook(name string, value ast.Expr, ident string, extra ...ast.Expr) *ast.CallExpr {
	r.hooks++
	args := []ast.Expr{r.observer(), value, str(r.fn), str(ident)}
	return r.helper(name, append(args, extra...)...)
}

// register: observe.Register(ctx, x, "fn", "x", observe.TypeOf(x))
func (r *Rewriter) register(id *ast.Ident) ast.Expr {
	typ := r.helper(helperTypeOf, ast.NewIdent(id.Name))
	return r.hook(helperRegister, id, id.Name, typ)
}

// request: observe.Request(ctx, x, "fn", "x")
func (r *Rewriter) request(id *ast.Ident) ast.Expr {
	return r.hook(helperRequest, id, id.Name)
}

// requestArg: observe.RequestArg(ctx, arg)
func (r *Rewriter) requestArg(arg ast.Expr) ast.Expr {
	r.hooks++
	return r.helper(helperRequestArg, r.observer(), arg)
}

// propose: observe.Propose(ctx, E, "fn", "x"), which yields E.
func (r *Rewriter) propose(value ast.Expr, name string) ast.Expr {
	return r.hook(helperPropose, value, name)
}

// proposals builds one propose statement per name.
func (r *Rewriter) proposals(names []string) []ast.Stmt {
	if len(names) == 0 {
		return nil
	}
	stmts := make([]ast.Stmt, 0, len(names))
	for _, name := range names {
		stmts = append(stmts, &ast.ExprStmt{X: r.propose(ast.NewIdent(name), name)})
	}
	return stmts
}

// closure wraps stmts into func() { stmts }(), a simple statement.
func closure(stmts []ast.Stmt) ast.Stmt {
	return &ast.ExprStmt{X: &ast.CallExpr{
		Fun: &ast.FuncLit{
			Type: &ast.FuncType{Params: &ast.FieldList{}},
			Body: &ast.BlockStmt{List: stmts},
		},
	}}
}

func str(s string) *ast.BasicLit {
	return &ast.BasicLit{Kind: token.STRING, Value: strconv.Quote(s)}
}
