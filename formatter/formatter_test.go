package formatter

import (
	"go/token"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"github.com/gnolang/rxobs/internal"
	"github.com/gnolang/rxobs/internal/check"
	tt "github.com/gnolang/rxobs/internal/types"
)

func init() {
	color.NoColor = true
}

var sheetSource = &internal.SourceCode{
	Lines: []string{
		"package sheet",
		"",
		"//rxobs:decorate context = obs, propose = [total, ghost], register = [], request = []",
		"func Total(obs observe.Observer, xs []int) int {",
		"\ttotal := 0",
		"\tfor _, x := range xs {",
		"\t\ttotal += x",
		"\t}",
		"\treturn total",
		"}",
	},
}

func TestGenerateFormattedIssue(t *testing.T) {
	t.Parallel()
	issues := []tt.Issue{
		{
			Rule:       check.RuleInertName,
			Severity:   tt.SeverityWarning,
			Filename:   "sheet.go",
			Start:      token.Position{Line: 3, Column: 51},
			End:        token.Position{Line: 3, Column: 55},
			Message:    `"ghost" does not occur in Total`,
			Suggestion: "remove the name from the directive",
		},
		{
			Rule:     check.RuleDirectiveSyntax,
			Severity: tt.SeverityError,
			Filename: "sheet.go",
			Start:    token.Position{Line: 7, Column: 3},
			End:      token.Position{Line: 7, Column: 7},
			Message:  "example error",
			Note:     "a note",
		},
	}

	expected := "warning: inert-name\n" +
		" --> sheet.go:3:51\n" +
		"  |\n" +
		"3 | " + sheetSource.Lines[2] + "\n" +
		"  | " + strings.Repeat(" ", 50) + "~~~~~\n" +
		"  = \"ghost\" does not occur in Total\n" +
		"\n" +
		"Suggestion:\n" +
		"  |\n" +
		"3 | remove the name from the directive\n" +
		"  |\n" +
		"\n" + `error: directive-syntax
 --> sheet.go:7:3
  |
7 | total += x
  | ~~~~~
  = example error

Note: a note

`

	assert.Equal(t, expected, GenerateFormattedIssue(issues, sheetSource))
}

func TestFormatMultipleDigitLineNumbers(t *testing.T) {
	t.Parallel()
	lines := make([]string, 12)
	lines[11] = "    x := y"
	issue := tt.Issue{
		Rule:     check.RuleShadowedRequest,
		Severity: tt.SeverityInfo,
		Filename: "p.go",
		Start:    token.Position{Line: 12, Column: 10},
		End:      token.Position{Line: 12, Column: 10},
		Message:  "shadowed",
	}

	expected := `info: register-shadows-request
  --> p.go:12:10
   |
12 | x := y
   |      ~
   = shadowed

`
	assert.Equal(t, expected, GenerateFormattedIssue([]tt.Issue{issue}, &internal.SourceCode{Lines: lines}))
}

func TestFormatConfigurationIssue(t *testing.T) {
	t.Parallel()
	issue := tt.Issue{
		Rule:     check.RuleUnknownFunction,
		Severity: tt.SeverityWarning,
		Filename: ".rxobs.yaml",
		Start:    token.Position{Line: 5, Column: 3},
		End:      token.Position{Line: 5, Column: 14},
		Message:  "no function named Sheet.Total",
		Note:     "methods are configured as Recv.Method",
	}

	expected := `warning: unknown-function
 --> .rxobs.yaml:5:3
no function named Sheet.Total
Note: methods are configured as Recv.Method

`
	assert.Equal(t, expected, GenerateFormattedIssue([]tt.Issue{issue}, &internal.SourceCode{}))
}

func TestFormatOutOfRangeIssue(t *testing.T) {
	t.Parallel()
	issue := tt.Issue{
		Rule:     check.RuleDirectiveSyntax,
		Filename: "p.go",
		Start:    token.Position{Line: 40, Column: 1},
		End:      token.Position{Line: 40, Column: 1},
		Message:  "beyond the end",
	}

	expected := `error: directive-syntax
  --> p.go:40:1
   |
   | beyond the end

`
	assert.Equal(t, expected, GenerateFormattedIssue([]tt.Issue{issue}, sheetSource))
}

func TestVisualColumn(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		line     string
		column   int
		expected int
	}{
		{name: "spaces", line: "    x", column: 5, expected: 4},
		{name: "tab", line: "\tx", column: 2, expected: 8},
		{name: "tab after text", line: "ab\tx", column: 4, expected: 8},
		{name: "negative", line: "x", column: -1, expected: 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.expected, visualColumn(tc.line, tc.column))
		})
	}
}

func TestFindCommonIndent(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "\t", findCommonIndent([]string{"\t\ta", "", "\tb"}))
	assert.Equal(t, "", findCommonIndent([]string{"a", "\tb"}))
	assert.Equal(t, "", findCommonIndent(nil))
}
