package transform

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnolang/rxobs/directive"
	"github.com/gnolang/rxobs/internal"
)

const sampleConfig = `name: sheets
runtime:
  import_path: example.com/sheets/observe
  alias: obs
output:
  cache_dir: build/rxobs
functions:
  Sheet.Total:
    context: s.obs
    propose: [total]
    register: [rate]
    request: [qty]
  compute: "context = obs, propose = [k], register = [], request = [q]"
`

func TestParseConfig(t *testing.T) {
	t.Parallel()
	cfg, err := ParseConfig("conf/.rxobs.yaml", []byte(sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "sheets", cfg.Name)
	assert.Equal(t, "example.com/sheets/observe", cfg.Runtime.ImportPath)
	assert.Equal(t, "obs", cfg.Runtime.Alias)
	assert.Equal(t, "build/rxobs", cfg.Output.CacheDir)
	assert.Equal(t, "conf/.rxobs.yaml", cfg.Path())

	assert.Equal(t, map[string]directive.Directive{
		"Sheet.Total": {Context: "s.obs", Propose: []string{"total"}, Register: []string{"rate"}, Request: []string{"qty"}},
		"compute":     {Context: "obs", Propose: []string{"k"}, Register: nil, Request: []string{"q"}},
	}, cfg.Directives())

	pos := cfg.Positions()
	assert.Equal(t, 8, pos["Sheet.Total"].Line)
	assert.Equal(t, 13, pos["compute"].Line)
	assert.Equal(t, 3, pos["compute"].Column)
	assert.Equal(t, "conf/.rxobs.yaml", pos["compute"].Filename)
}

func TestParseConfigDefaults(t *testing.T) {
	t.Parallel()
	cfg, err := ParseConfig(".rxobs.yaml", []byte("name: partial\n"))
	require.NoError(t, err)
	assert.Equal(t, internal.DefaultRuntimePath, cfg.Runtime.ImportPath)
	assert.Equal(t, ".rxobs", cfg.Output.CacheDir)
	assert.Empty(t, cfg.Directives())

	empty, err := ParseConfig(".rxobs.yaml", nil)
	require.NoError(t, err)
	assert.Equal(t, internal.DefaultRuntimePath, empty.Runtime.ImportPath)
}

func TestParseConfigErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		data   string
		target error
	}{
		{
			name:   "directive text",
			data:   "functions:\n  f: \"context = obs, propose = [a register = [], request = []\"\n",
			target: directive.ErrMalformedList,
		},
		{
			name:   "missing context",
			data:   "functions:\n  f:\n    propose: [a]\n",
			target: directive.ErrMissingField,
		},
		{
			name: "not yaml",
			data: "functions: [",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseConfig("bad.yaml", []byte(tt.data))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "bad.yaml")
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "go.mod"), []byte("module example.com/ledger\n\ngo 1.25\n"), 0o644))

	cfg, err := LoadConfig(filepath.Join(dir, DefaultConfigFile))
	require.NoError(t, err)
	assert.Equal(t, "example.com/ledger", cfg.Name)

	_, err = LoadConfig(filepath.Join(dir, "custom.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestConfigWriteRoundTrip(t *testing.T) {
	t.Parallel()
	cfg, err := ParseConfig(".rxobs.yaml", []byte(sampleConfig))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), DefaultConfigFile)
	require.NoError(t, cfg.Write(path))

	back, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Name, back.Name)
	assert.Equal(t, cfg.Runtime, back.Runtime)
	assert.Equal(t, cfg.Directives(), back.Directives())
	assert.Equal(t, cfg.Key(), back.Key())
}

func TestConfigKey(t *testing.T) {
	t.Parallel()
	a, err := ParseConfig(".rxobs.yaml", []byte(sampleConfig))
	require.NoError(t, err)
	b, err := ParseConfig(".rxobs.yaml", []byte(sampleConfig))
	require.NoError(t, err)
	assert.Equal(t, a.Key(), b.Key())

	b.Runtime.Alias = "other"
	assert.NotEqual(t, a.Key(), b.Key())

	// the name and cache location do not affect output
	b.Runtime.Alias = a.Runtime.Alias
	b.Name = "renamed"
	b.Output.CacheDir = "elsewhere"
	assert.Equal(t, a.Key(), b.Key())
}
