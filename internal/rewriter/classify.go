package rewriter

import (
	"go/ast"
	"go/token"

	"golang.org/x/tools/go/ast/astutil"
)

// pre runs before a node's children are visited. It marks the occurrences
// that must not be treated as reads and records which call arguments get the
// call-argument request form. Returning false leaves a subtree untouched.
func (r *Rewriter) pre(c *astutil.Cursor) bool {
	n := c.Node()
	if n == nil {
		return true
	}
	if r.skip[n] {
		return false
	}

	switch n := n.(type) {
	case *ast.FuncType, *ast.FieldList, *ast.Field,
		*ast.ArrayType, *ast.MapType, *ast.ChanType,
		*ast.StructType, *ast.InterfaceType,
		*ast.TypeSpec, *ast.BranchStmt:
		return false

	case *ast.GenDecl:
		return n.Tok == token.VAR

	case *ast.ValueSpec:
		for _, name := range n.Names {
			r.skip[name] = true
		}
		if n.Type != nil {
			r.skip[n.Type] = true
		}

	case *ast.AssignStmt:
		for _, lhs := range n.Lhs {
			r.target(lhs)
		}

	case *ast.IncDecStmt:
		r.target(n.X)

	case *ast.RangeStmt:
		if n.Key != nil {
			r.target(n.Key)
		}
		if n.Value != nil {
			r.target(n.Value)
		}

	case *ast.UnaryExpr:
		if n.Op == token.AND {
			if _, lit := n.X.(*ast.CompositeLit); !lit {
				r.target(n.X)
			}
		}

	case *ast.SliceExpr:
		// Slicing an array needs an addressable operand.
		r.target(n.X)

	case *ast.SelectorExpr:
		// The operand may be a method value on a pointer receiver, which
		// needs an addressable operand. Package qualifiers are skipped too.
		r.skip[n.Sel] = true
		r.target(n.X)

	case *ast.CompositeLit:
		if n.Type != nil {
			r.skip[n.Type] = true
		}
		if _, isMap := n.Type.(*ast.MapType); !isMap {
			for _, elt := range n.Elts {
				if kv, ok := elt.(*ast.KeyValueExpr); ok {
					if key, ok := kv.Key.(*ast.Ident); ok {
						r.skip[key] = true
					}
				}
			}
		}

	case *ast.TypeAssertExpr:
		if n.Type != nil {
			r.skip[n.Type] = true
		}

	case *ast.TypeSwitchStmt:
		for _, stmt := range n.Body.List {
			if cc, ok := stmt.(*ast.CaseClause); ok {
				for _, typ := range cc.List {
					r.skip[typ] = true
				}
			}
		}

	case *ast.LabeledStmt:
		r.skip[n.Label] = true

	case *ast.CallExpr:
		r.classifyCall(n)
	}
	return true
}

// target marks the variable an assignment, increment or address-of operates
// on. Only the root name of a selector or index chain is marked; indices stay
// reads.
func (r *Rewriter) target(e ast.Expr) {
	for {
		switch x := e.(type) {
		case *ast.Ident:
			r.skip[x] = true
			return
		case *ast.SelectorExpr:
			e = x.X
		case *ast.IndexExpr:
			e = x.X
		case *ast.ParenExpr:
			e = x.X
		default:
			return
		}
	}
}

func (r *Rewriter) classifyCall(call *ast.CallExpr) {
	switch fun := call.Fun.(type) {
	case *ast.SelectorExpr:
		// Pointer-receiver methods need an addressable receiver.
		r.target(fun.X)
	case *ast.Ident:
		if (fun.Name == "new" || fun.Name == "make") && len(call.Args) > 0 {
			r.skip[call.Args[0]] = true
		}
	}

	var idx []int
	for i, arg := range call.Args {
		id, ok := arg.(*ast.Ident)
		if !ok || id.Name == "_" || r.skip[id] {
			continue
		}
		if r.d.Requests(id.Name) && !r.d.Registers(id.Name) {
			idx = append(idx, i)
		}
	}
	if idx != nil {
		r.argReq[call] = idx
	}
}

// proposedTargets returns the bare names among lhs that are in the propose
// list, in order.
func (r *Rewriter) proposedTargets(lhs ...ast.Expr) []string {
	var names []string
	for _, e := range lhs {
		id, ok := e.(*ast.Ident)
		if !ok || id.Name == "_" {
			continue
		}
		if r.d.Proposes(id.Name) {
			names = append(names, id.Name)
		}
	}
	return names
}
