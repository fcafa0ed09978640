package types

import (
	"go/ast"
	"go/parser"
	"go/token"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"
)

// RunAnalyzer runs analyzer over a single file of source code and returns
// its diagnostics as issues. Only the inspect pass is available to it;
// analyzers needing type information cannot be run this way.
func RunAnalyzer(filename, code string, analyzer *analysis.Analyzer) ([]Issue, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, filename, code, parser.ParseComments)
	if err != nil {
		return nil, err
	}
	files := []*ast.File{file}

	var issues []Issue
	pass := &analysis.Pass{
		Analyzer: analyzer,
		Fset:     fset,
		Files:    files,
		ResultOf: map[*analysis.Analyzer]any{
			inspect.Analyzer: inspector.New(files),
		},
		Report: func(d analysis.Diagnostic) {
			start := fset.Position(d.Pos)
			end := start
			if d.End.IsValid() {
				end = fset.Position(d.End)
			}
			issues = append(issues, Issue{
				Rule:     d.Category,
				Category: analyzer.Name,
				Filename: start.Filename,
				Message:  d.Message,
				Start:    start,
				End:      end,
			})
		},
	}

	if _, err := analyzer.Run(pass); err != nil {
		return nil, err
	}
	return issues, nil
}
