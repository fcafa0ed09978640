package rewriter

import (
	"go/ast"
	"go/token"

	"golang.org/x/tools/go/ast/astutil"
)

// post runs after a node's children have been rewritten.
func (r *Rewriter) post(c *astutil.Cursor) bool {
	switch n := c.Node().(type) {
	case *ast.Ident:
		r.rewriteRead(c, n)
	case *ast.CallExpr:
		for _, i := range r.argReq[n] {
			n.Args[i] = r.requestArg(n.Args[i])
		}
	case *ast.AssignStmt:
		r.rewriteAssign(c, n)
	case *ast.IncDecStmt:
		if names := r.proposedTargets(n.X); names != nil {
			r.wrapAssign(c, n, names)
		}
	case *ast.DeclStmt:
		r.rewriteDecl(c, n)
	case *ast.RangeStmt:
		if n.Tok != token.ILLEGAL {
			names := r.proposedTargets(n.Key, n.Value)
			n.Body.List = append(r.proposals(names), n.Body.List...)
		}
	case *ast.CommClause:
		if as, ok := n.Comm.(*ast.AssignStmt); ok {
			n.Body = append(r.proposals(r.proposedTargets(as.Lhs...)), n.Body...)
		}
	case *ast.TypeSwitchStmt:
		r.rewriteTypeSwitch(n)
		r.hoist(c, n, n.Init, func() { n.Init = nil })
	case *ast.IfStmt:
		r.hoist(c, n, n.Init, func() { n.Init = nil })
	case *ast.SwitchStmt:
		r.hoist(c, n, n.Init, func() { n.Init = nil })
	case *ast.ForStmt:
		r.hoist(c, n, n.Init, func() { n.Init = nil })
	case *ast.LabeledStmt:
		r.rewriteLabeled(c, n)
	}
	return true
}

// rewriteRead applies the register and request rules to a bare read.
// Register wins when a name is in both lists.
func (r *Rewriter) rewriteRead(c *astutil.Cursor, id *ast.Ident) {
	if id.Name == "_" {
		return
	}
	switch {
	case r.d.Registers(id.Name):
		c.Replace(r.register(id))
	case r.d.Requests(id.Name):
		c.Replace(r.request(id))
	}
}

func (r *Rewriter) rewriteAssign(c *astutil.Cursor, as *ast.AssignStmt) {
	// select and type switch clauses place their own proposals.
	if name := c.Name(); name == "Comm" || name == "Assign" {
		return
	}
	names := r.proposedTargets(as.Lhs...)
	if names == nil {
		return
	}
	if as.Tok != token.DEFINE {
		r.wrapAssign(c, as, names)
		return
	}

	switch {
	case c.Index() >= 0:
		r.insertAfter(c, r.proposals(names))
	case len(as.Lhs) == len(as.Rhs):
		for i, lhs := range as.Lhs {
			if id, ok := lhs.(*ast.Ident); ok && id.Name != "_" && r.d.Proposes(id.Name) {
				as.Rhs[i] = r.propose(as.Rhs[i], id.Name)
			}
		}
	default:
		r.pending[as] = r.proposals(names)
	}
}

// wrapAssign turns an assignment into a block or, where only a simple
// statement is allowed, an immediately invoked closure that assigns and then
// proposes.
func (r *Rewriter) wrapAssign(c *astutil.Cursor, stmt ast.Stmt, names []string) {
	list := append([]ast.Stmt{stmt}, r.proposals(names)...)
	if _, labeled := c.Parent().(*ast.LabeledStmt); labeled || c.Index() >= 0 {
		c.Replace(&ast.BlockStmt{List: list})
		return
	}
	c.Replace(closure(list))
}

func (r *Rewriter) rewriteDecl(c *astutil.Cursor, decl *ast.DeclStmt) {
	gd, ok := decl.Decl.(*ast.GenDecl)
	if !ok || gd.Tok != token.VAR {
		return
	}
	var names []string
	for _, spec := range gd.Specs {
		vs, ok := spec.(*ast.ValueSpec)
		if !ok || len(vs.Values) == 0 {
			continue
		}
		for _, name := range vs.Names {
			names = append(names, r.proposedTargets(name)...)
		}
	}
	if names == nil {
		return
	}
	if c.Index() >= 0 {
		r.insertAfter(c, r.proposals(names))
		return
	}
	r.pending[decl] = r.proposals(names)
}

// rewriteTypeSwitch proposes the bound variable at the top of every clause,
// where it has the clause's type.
func (r *Rewriter) rewriteTypeSwitch(ts *ast.TypeSwitchStmt) {
	as, ok := ts.Assign.(*ast.AssignStmt)
	if !ok || as.Tok != token.DEFINE {
		return
	}
	names := r.proposedTargets(as.Lhs...)
	if names == nil {
		return
	}
	for _, stmt := range ts.Body.List {
		if cc, ok := stmt.(*ast.CaseClause); ok {
			cc.Body = append(r.proposals(names), cc.Body...)
		}
	}
}

// hoist moves an init statement whose proposals could not be placed inline
// into a block around stmt:
//
//	{ a, b := f(); observe.Propose(...); if cond { ... } }
func (r *Rewriter) hoist(c *astutil.Cursor, stmt, init ast.Stmt, clear func()) {
	if init == nil {
		return
	}
	extra, ok := r.pending[init]
	if !ok {
		return
	}
	delete(r.pending, init)
	clear()

	list := make([]ast.Stmt, 0, len(extra)+2)
	list = append(list, init)
	list = append(list, extra...)
	list = append(list, stmt)
	block := &ast.BlockStmt{List: list}
	r.hoisted[block] = stmt
	c.Replace(block)
}

func (r *Rewriter) rewriteLabeled(c *astutil.Cursor, ls *ast.LabeledStmt) {
	// The label follows a hoisted statement into its block so that break
	// and continue still find it.
	if block, ok := ls.Stmt.(*ast.BlockStmt); ok {
		if inner, ok := r.hoisted[block]; ok {
			labeled := &ast.LabeledStmt{Label: ls.Label, Stmt: inner}
			block.List[len(block.List)-1] = labeled
			r.hoisted[block] = labeled
			c.Replace(block)
			return
		}
	}

	extra, ok := r.pending[ls.Stmt]
	if !ok {
		return
	}
	delete(r.pending, ls.Stmt)
	if c.Index() >= 0 {
		r.insertAfter(c, extra)
		return
	}
	r.pending[ls] = extra
}

func (r *Rewriter) insertAfter(c *astutil.Cursor, stmts []ast.Stmt) {
	for i := len(stmts) - 1; i >= 0; i-- {
		c.InsertAfter(stmts[i])
	}
}
