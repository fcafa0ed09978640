// Package check reports problems with rewrite directives before any code is
// rewritten.
package check

import (
	"errors"
	"fmt"
	"go/ast"
	"go/token"
	"sort"

	"github.com/gnolang/rxobs/directive"
	"github.com/gnolang/rxobs/internal/rewriter"
	tt "github.com/gnolang/rxobs/internal/types"
)

// Rule names.
const (
	RuleDirectiveSyntax = "directive-syntax"
	RuleInertName       = "inert-name"
	RuleShadowedRequest = "register-shadows-request"
	RuleUnknownFunction = "unknown-function"
)

const (
	categoryDirective     = "directive"
	categoryConfiguration = "configuration"
)

// File checks every annotated function of file.
func File(fset *token.FileSet, file *ast.File, functions map[string]directive.Directive) []tt.Issue {
	var issues []tt.Issue
	for _, t := range rewriter.Targets(file, functions) {
		issues = append(issues, Target(fset, t)...)
	}
	return issues
}

// Target checks a single annotated function.
func Target(fset *token.FileSet, t rewriter.Target) []tt.Issue {
	if t.Err != nil {
		return []tt.Issue{syntaxIssue(fset, t)}
	}
	if _, err := rewriter.New(t.Directive, t.Name); err != nil {
		pos := fset.Position(anchor(t))
		return []tt.Issue{{
			Rule:     RuleDirectiveSyntax,
			Category: categoryDirective,
			Filename: pos.Filename,
			Message:  err.Error(),
			Severity: tt.SeverityError,
			Start:    pos,
			End:      pos,
		}}
	}

	var issues []tt.Issue
	for _, name := range t.Directive.Register {
		if !t.Directive.Requests(name) {
			continue
		}
		issues = append(issues, nameIssue(fset, t, name, tt.Issue{
			Rule:     RuleShadowedRequest,
			Severity: tt.SeverityInfo,
			Message:  fmt.Sprintf("%q is both registered and requested; reads are registered only", name),
		}))
	}

	used := identifiers(t.Func.Body)
	for _, name := range t.Directive.Names() {
		if used[name] {
			continue
		}
		issues = append(issues, nameIssue(fset, t, name, tt.Issue{
			Rule:       RuleInertName,
			Severity:   tt.SeverityWarning,
			Message:    fmt.Sprintf("%q does not occur in %s", name, t.Name),
			Suggestion: "remove the name from the directive",
		}))
	}
	return issues
}

// UnknownFunctions reports configuration entries that name no function in
// seen. positions locates each entry in the configuration file.
func UnknownFunctions(
	functions map[string]directive.Directive,
	positions map[string]token.Position,
	seen map[string]bool,
) []tt.Issue {
	names := make([]string, 0, len(functions))
	for name := range functions {
		if !seen[name] {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	issues := make([]tt.Issue, 0, len(names))
	for _, name := range names {
		pos := positions[name]
		end := pos
		end.Column += len(name)
		issues = append(issues, tt.Issue{
			Rule:     RuleUnknownFunction,
			Category: categoryConfiguration,
			Filename: pos.Filename,
			Message:  fmt.Sprintf("no function named %s", name),
			Note:     "methods are configured as Recv.Method",
			Severity: tt.SeverityWarning,
			Start:    pos,
			End:      end,
		})
	}
	return issues
}

func syntaxIssue(fset *token.FileSet, t rewriter.Target) tt.Issue {
	pos := anchor(t)
	width := 0

	var ce *directive.ConfigError
	if errors.As(t.Err, &ce) && t.Source != nil {
		pos = t.Source.Pos(ce.Line, ce.Col)
		width = len(ce.Token)
	}

	start := fset.Position(pos)
	end := start
	if width > 0 {
		end.Column += width - 1
	}
	return tt.Issue{
		Rule:     RuleDirectiveSyntax,
		Category: categoryDirective,
		Filename: start.Filename,
		Message:  t.Err.Error(),
		Note:     "expected: " + directive.Prefix + " context = obs, propose = [...], register = [...], request = [...]",
		Severity: tt.SeverityError,
		Start:    start,
		End:      end,
	}
}

// nameIssue places issue on the first occurrence of name in the directive,
// or on the function name for configured functions.
func nameIssue(fset *token.FileSet, t rewriter.Target, name string, issue tt.Issue) tt.Issue {
	pos := anchor(t)
	width := len(t.Func.Name.Name)
	if t.Source != nil {
		if tok, ok := listToken(t.Source.Text, name); ok {
			pos = t.Source.Pos(tok.Line, tok.Col)
			width = len(name)
		}
	}

	issue.Category = categoryDirective
	issue.Start = fset.Position(pos)
	issue.End = issue.Start
	issue.End.Column += width - 1
	issue.Filename = issue.Start.Filename
	return issue
}

// listToken finds name inside one of the bracketed lists.
func listToken(text, name string) (directive.Token, bool) {
	inList := false
	for _, tok := range directive.Lex(text) {
		switch tok.Type {
		case directive.TokenLBracket:
			inList = true
		case directive.TokenRBracket:
			inList = false
		case directive.TokenIdent:
			if inList && tok.Value == name {
				return tok, true
			}
		}
	}
	return directive.Token{}, false
}

func anchor(t rewriter.Target) token.Pos {
	if t.Source != nil {
		return t.Source.Start()
	}
	return t.Func.Name.Pos()
}

// identifiers collects every identifier name in body.
func identifiers(body *ast.BlockStmt) map[string]bool {
	names := make(map[string]bool)
	ast.Inspect(body, func(n ast.Node) bool {
		if id, ok := n.(*ast.Ident); ok {
			names[id.Name] = true
		}
		return true
	})
	return names
}
