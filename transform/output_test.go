package transform

import (
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnolang/rxobs/internal"
)

const (
	originalSrc  = "package calc\n\nfunc f(a int) int {\n\treturn a\n}\n"
	rewrittenSrc = "package calc\n\nfunc f(a int) int {\n\treturn observe.Request(obs, \"a\", a)\n}\n"
)

func TestWriteOverlay(t *testing.T) {
	t.Parallel()
	src := t.TempDir()
	changed := filepath.Join(src, "calc.go")
	same := filepath.Join(src, "plain.go")
	require.NoError(t, os.WriteFile(changed, []byte(originalSrc), 0o600))
	require.NoError(t, os.WriteFile(same, []byte(originalSrc), 0o644))

	results := []*internal.Result{
		{Filename: changed, Source: []byte(originalSrc), Output: []byte(rewrittenSrc), Hooks: 1},
		{Filename: same, Source: []byte(originalSrc), Output: []byte(originalSrc)},
	}

	dir := filepath.Join(t.TempDir(), "overlay")
	path, err := WriteOverlay(dir, results)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, OverlayFile), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var overlay Overlay
	require.NoError(t, json.Unmarshal(data, &overlay))
	require.Len(t, overlay.Replace, 1)

	target, ok := overlay.Replace[changed]
	require.True(t, ok, "overlay does not replace %s", changed)
	assert.True(t, filepath.IsAbs(target))
	assert.Equal(t, "calc.go", filepath.Base(target))

	got, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, rewrittenSrc, string(got))

	info, err := os.Stat(target)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	// the original is untouched
	orig, err := os.ReadFile(changed)
	require.NoError(t, err)
	assert.Equal(t, originalSrc, string(orig))
}

func TestWriteOverlayNothingChanged(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path, err := WriteOverlay(dir, nil)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"Replace": {}}`, string(data))
}

func TestDiff(t *testing.T) {
	t.Parallel()
	res := &internal.Result{
		Filename: "calc.go",
		Source:   []byte(originalSrc),
		Output:   []byte(rewrittenSrc),
		Hooks:    1,
	}
	diff := Diff(res)
	assert.Contains(t, diff, "--- calc.go")
	assert.Contains(t, diff, "+++ calc.go (rewritten)")
	assert.Contains(t, diff, "-\treturn a\n")
	assert.Contains(t, diff, "+\treturn observe.Request(obs, \"a\", a)\n")

	res.Hooks = 0
	assert.Empty(t, Diff(res))
}

func TestOverlayRunsInstrumentedCode(t *testing.T) {
	if testing.Short() {
		t.Skip("builds and runs a program")
	}
	gobin, err := exec.LookPath("go")
	if err != nil {
		t.Skip("go command not available")
	}
	t.Parallel()

	res, err := internal.NewEngine().Run(filepath.Join("testdata", "scenario", "main.go"))
	require.NoError(t, err)
	require.True(t, res.Changed())
	assert.Equal(t, []string{"compute"}, res.Functions)
	assert.Equal(t, 2, res.Hooks)

	overlay, err := WriteOverlay(t.TempDir(), []*internal.Result{res})
	require.NoError(t, err)

	cmd := exec.Command(gobin, "run", "-overlay="+overlay, "./testdata/scenario")
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "%s\nrewritten source:\n%s", out, res.Output)
	assert.Equal(t, `s = 3
counter = 1
proposing compute/k=1
requesting compute/q=2
`, string(out))
}
