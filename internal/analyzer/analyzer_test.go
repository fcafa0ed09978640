package analyzer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/tools/go/analysis/analysistest"

	"github.com/gnolang/rxobs/directive"
	"github.com/gnolang/rxobs/internal/check"
	tt "github.com/gnolang/rxobs/internal/types"
)

const src = `package p

//rxobs:decorate context = obs, propose = [x, ghost], register = [], request = []
func f(obs any) int {
	x := 1
	return x
}

//rxobs:decorate context = obs, propose = [x register = [], request = []
func g(obs any) {}

func h(obs any) {}
`

type position struct {
	rule string
	line int
	col  int
}

func positions(issues []tt.Issue) []position {
	out := make([]position, 0, len(issues))
	for _, issue := range issues {
		out = append(out, position{issue.Rule, issue.Start.Line, issue.Start.Column})
	}
	return out
}

func TestAnalyzer(t *testing.T) {
	t.Parallel()
	issues, err := tt.RunAnalyzer("p.go", src, New(nil))
	require.NoError(t, err)

	assert.Equal(t, []position{
		{check.RuleInertName, 3, 47},
		{check.RuleDirectiveSyntax, 9, 46},
	}, positions(issues))

	ghost := issues[0]
	assert.Equal(t, "rxobs", ghost.Category)
	assert.Equal(t, 52, ghost.End.Column)
	assert.Equal(t, `"ghost" does not occur in f (remove the name from the directive)`, ghost.Message)
	assert.Contains(t, issues[1].Message, "malformed list")
}

func TestAnalyzerConfiguredFunctions(t *testing.T) {
	t.Parallel()
	a := New(map[string]directive.Directive{
		"h": {Context: "obs", Propose: []string{"y"}},
		// a doc directive takes precedence
		"f": {Context: "obs", Propose: []string{"unused"}},
	})
	issues, err := tt.RunAnalyzer("p.go", src, a)
	require.NoError(t, err)

	assert.Equal(t, []position{
		{check.RuleInertName, 3, 47},
		{check.RuleDirectiveSyntax, 9, 46},
		{check.RuleInertName, 11, 6},
	}, positions(issues))
	assert.Equal(t, 7, issues[2].End.Column)
}

func TestAnalyzerConfigFlag(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "rxobs.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`functions:
  h: "context = obs, propose = [z], register = [], request = []"
`), 0o644))

	a := New(nil)
	require.NoError(t, a.Flags.Set("config", path))

	issues, err := tt.RunAnalyzer("p.go", src, a)
	require.NoError(t, err)
	require.Len(t, issues, 3)
	assert.Equal(t, `"z" does not occur in h (remove the name from the directive)`, issues[2].Message)
}

func TestAnalyzerBadConfig(t *testing.T) {
	t.Parallel()
	a := New(nil)
	require.NoError(t, a.Flags.Set("config", filepath.Join(t.TempDir(), "missing.yaml")))

	_, err := tt.RunAnalyzer("p.go", src, a)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestAnalyzerPackage(t *testing.T) {
	t.Parallel()
	a := New(map[string]directive.Directive{
		"h": {Context: "obs", Propose: []string{"z"}},
	})
	analysistest.Run(t, analysistest.TestData(), a, "a")
}
