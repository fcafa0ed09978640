package transform

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"go/token"
	"os"
	"path/filepath"

	"golang.org/x/mod/modfile"
	"gopkg.in/yaml.v3"

	"github.com/gnolang/rxobs/directive"
	"github.com/gnolang/rxobs/internal"
)

// DefaultConfigFile is the configuration file looked up when none is given.
const DefaultConfigFile = ".rxobs.yaml"

// Config is the project configuration.
type Config struct {
	Name      string                    `yaml:"name"`
	Runtime   RuntimeConfig             `yaml:"runtime"`
	Output    OutputConfig              `yaml:"output"`
	Functions map[string]FunctionConfig `yaml:"functions,omitempty"`

	path      string
	positions map[string]token.Position
}

// RuntimeConfig names the package generated calls use.
type RuntimeConfig struct {
	ImportPath string `yaml:"import_path"`
	Alias      string `yaml:"alias,omitempty"`
}

type OutputConfig struct {
	CacheDir string `yaml:"cache_dir"`
}

// FunctionConfig annotates a function from the configuration file. It is
// written either as a mapping or as directive text:
//
//	functions:
//	  Sheet.Total:
//	    context: s.obs
//	    propose: [total]
//	  compute: "context = obs, propose = [k], register = [], request = [q]"
type FunctionConfig struct {
	Context  string   `yaml:"context"`
	Propose  []string `yaml:"propose,flow,omitempty"`
	Register []string `yaml:"register,flow,omitempty"`
	Request  []string `yaml:"request,flow,omitempty"`
}

func (f *FunctionConfig) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		d, err := directive.Parse(node.Value)
		if err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		*f = FunctionConfig{
			Context:  d.Context,
			Propose:  d.Propose,
			Register: d.Register,
			Request:  d.Request,
		}
		return nil
	}

	type plain FunctionConfig
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	if p.Context == "" {
		return fmt.Errorf("line %d: %w: `context` is required", node.Line, directive.ErrMissingField)
	}
	*f = FunctionConfig(p)
	return nil
}

func (f FunctionConfig) Directive() directive.Directive {
	return directive.Directive{
		Context:  f.Context,
		Propose:  f.Propose,
		Register: f.Register,
		Request:  f.Request,
	}
}

// DefaultConfig returns the configuration used when no file exists. The
// name is the module path of the go.mod in dir, if there is one.
func DefaultConfig(dir string) *Config {
	cfg := &Config{
		Name:    "rxobs",
		Runtime: RuntimeConfig{ImportPath: internal.DefaultRuntimePath},
		Output:  OutputConfig{CacheDir: ".rxobs"},
	}
	if data, err := os.ReadFile(filepath.Join(dir, "go.mod")); err == nil {
		if mod := modfile.ModulePath(data); mod != "" {
			cfg.Name = mod
		}
	}
	return cfg
}

// LoadConfig reads the configuration file at path. A missing
// DefaultConfigFile yields DefaultConfig.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) && filepath.Base(path) == DefaultConfigFile {
		return DefaultConfig(filepath.Dir(path)), nil
	}
	if err != nil {
		return nil, err
	}
	return ParseConfig(path, data)
}

// ParseConfig decodes configuration data read from path.
func ParseConfig(path string, data []byte) (*Config, error) {
	cfg := DefaultConfig(filepath.Dir(path))
	cfg.path = path

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(root.Content) == 0 {
		return cfg, nil
	}
	if err := root.Decode(cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.positions = functionPositions(path, root.Content[0])
	return cfg, nil
}

// functionPositions locates the keys of the functions mapping.
func functionPositions(path string, doc *yaml.Node) map[string]token.Position {
	positions := make(map[string]token.Position)
	if doc.Kind != yaml.MappingNode {
		return positions
	}
	for i := 0; i+1 < len(doc.Content); i += 2 {
		if doc.Content[i].Value != "functions" || doc.Content[i+1].Kind != yaml.MappingNode {
			continue
		}
		fns := doc.Content[i+1].Content
		for j := 0; j+1 < len(fns); j += 2 {
			key := fns[j]
			positions[key.Value] = token.Position{Filename: path, Line: key.Line, Column: key.Column}
		}
	}
	return positions
}

// Path is the file the configuration was read from, if any.
func (c *Config) Path() string {
	return c.path
}

// Directives returns the configured functions keyed by name.
func (c *Config) Directives() map[string]directive.Directive {
	out := make(map[string]directive.Directive, len(c.Functions))
	for name, f := range c.Functions {
		out[name] = f.Directive()
	}
	return out
}

// Positions locates each configured function in the configuration file.
func (c *Config) Positions() map[string]token.Position {
	return c.positions
}

// Key identifies the settings that affect rewrite output.
func (c *Config) Key() string {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	_ = enc.Encode(struct {
		Runtime   RuntimeConfig
		Functions map[string]FunctionConfig
	}{c.Runtime, c.Functions})
	_ = enc.Close()

	sum := sha256.Sum256(buf.Bytes())
	return hex.EncodeToString(sum[:])
}

// Write stores the configuration at path.
func (c *Config) Write(path string) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
