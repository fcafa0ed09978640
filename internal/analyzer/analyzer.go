// Package analyzer exposes the directive checks as a go/analysis pass, so
// they can run under go vet or any analysis driver.
package analyzer

import (
	"go/ast"
	"go/token"
	"sync"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"

	"github.com/gnolang/rxobs/directive"
	"github.com/gnolang/rxobs/internal/check"
	"github.com/gnolang/rxobs/internal/rewriter"
	tt "github.com/gnolang/rxobs/internal/types"
	"github.com/gnolang/rxobs/transform"
)

const doc = `rxobs reports malformed and ineffective rewrite directives

Functions are selected by a //rxobs: doc comment or, with -config, by the
functions section of the configuration file.`

// Analyzer checks the rewrite directives of every function in a package.
var Analyzer = New(nil)

// New returns an analyzer that also checks the configured functions.
// A -config flag, when set, replaces functions.
func New(functions map[string]directive.Directive) *analysis.Analyzer {
	r := &runner{functions: functions}
	a := &analysis.Analyzer{
		Name:     "rxobs",
		Doc:      doc,
		Requires: []*analysis.Analyzer{inspect.Analyzer},
		Run:      r.run,
	}
	a.Flags.StringVar(&r.config, "config", "", "configuration file listing annotated functions")
	return a
}

type runner struct {
	config    string
	functions map[string]directive.Directive

	once sync.Once
	err  error
}

func (r *runner) load() error {
	r.once.Do(func() {
		if r.config == "" {
			return
		}
		cfg, err := transform.LoadConfig(r.config)
		if err != nil {
			r.err = err
			return
		}
		r.functions = cfg.Directives()
	})
	return r.err
}

func (r *runner) run(pass *analysis.Pass) (any, error) {
	if err := r.load(); err != nil {
		return nil, err
	}
	insp := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)

	nodeFilter := []ast.Node{
		(*ast.FuncDecl)(nil),
	}
	insp.Preorder(nodeFilter, func(node ast.Node) {
		fn := node.(*ast.FuncDecl)
		target, ok := rewriter.Lookup(fn, r.functions)
		if !ok {
			return
		}
		tf := pass.Fset.File(fn.Pos())
		for _, issue := range check.Target(pass.Fset, target) {
			pass.Report(diagnostic(tf, issue))
		}
	})
	return nil, nil
}

func diagnostic(tf *token.File, issue tt.Issue) analysis.Diagnostic {
	pos := tf.Pos(issue.Start.Offset)
	end := pos
	if issue.End.Line == issue.Start.Line && issue.End.Column >= issue.Start.Column {
		end = pos + token.Pos(issue.End.Column-issue.Start.Column+1)
	}

	d := analysis.Diagnostic{
		Pos:      pos,
		End:      end,
		Category: issue.Rule,
		Message:  issue.Message,
	}
	if issue.Suggestion != "" {
		d.Message += " (" + issue.Suggestion + ")"
	}
	return d
}
