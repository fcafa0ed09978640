package observe

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/gnolang/rxobs/internal/formula"
)

// ErrCircular is returned when formulas refer to each other in a cycle.
var ErrCircular = errors.New("circular formula reference")

// Formula computes requested variables from spreadsheet-like formulas.
//
// Registered and proposed values become variables the formulas can refer
// to by identifier name. A request for a name that has a formula returns the
// formula's result instead of the current value; names without a formula
// pass through.
type Formula struct {
	logger *zap.Logger

	mu       sync.RWMutex
	vars     map[string]any
	formulas map[string]*formula.Expr
}

// NewFormula compiles formulas, keyed by identifier name.
func NewFormula(formulas map[string]string, logger *zap.Logger) (*Formula, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	f := &Formula{
		logger:   logger,
		vars:     make(map[string]any),
		formulas: make(map[string]*formula.Expr, len(formulas)),
	}
	for name, src := range formulas {
		if err := f.Set(name, src); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// Set adds or replaces the formula for name.
func (f *Formula) Set(name, src string) error {
	expr, err := formula.Parse(src)
	if err != nil {
		return fmt.Errorf("formula for %s: %w", name, err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.formulas[name] = expr
	return nil
}

func (f *Formula) Register(value any, fn, ident, typeName string) any {
	f.setVar(ident, value)
	return value
}

func (f *Formula) Propose(value any, fn, ident string) any {
	f.setVar(ident, value)
	return value
}

// Request returns the formula result for ident as a float64 or string.
// Evaluation errors are logged and leave value unchanged.
func (f *Formula) Request(value any, fn, ident string) any {
	f.mu.RLock()
	_, ok := f.formulas[ident]
	f.mu.RUnlock()
	if !ok {
		return value
	}

	result, err := f.Eval(ident)
	if err != nil {
		f.logger.Warn("formula evaluation failed",
			zap.String("path", Path(fn, ident)),
			zap.Error(err),
		)
		return value
	}
	return result.Any()
}

// Eval evaluates the formula for name.
func (f *Formula) Eval(name string) (formula.Value, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.resolve(name, make(map[string]bool))
}

// resolve looks name up among formulas first, then among recorded values.
// Callers hold f.mu.
func (f *Formula) resolve(name string, visiting map[string]bool) (formula.Value, error) {
	if expr, ok := f.formulas[name]; ok {
		if visiting[name] {
			return formula.Value{}, fmt.Errorf("%w: %s", ErrCircular, name)
		}
		visiting[name] = true
		defer delete(visiting, name)
		return expr.Eval(func(dep string) (formula.Value, error) {
			return f.resolve(dep, visiting)
		})
	}

	v, ok := f.vars[name]
	if !ok {
		return formula.Value{}, fmt.Errorf("%w: %s", formula.ErrName, name)
	}
	return toValue(name, v)
}

func toValue(name string, v any) (formula.Value, error) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return formula.Number(float64(rv.Int())), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return formula.Number(float64(rv.Uint())), nil
	case reflect.Float32, reflect.Float64:
		return formula.Number(rv.Float()), nil
	case reflect.String:
		return formula.Text(rv.String()), nil
	default:
		return formula.Value{}, fmt.Errorf("%w: %s has type %T", formula.ErrValue, name, v)
	}
}

func (f *Formula) setVar(ident string, value any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vars[ident] = value
}

// Report returns the recorded variables as "name: value" lines.
func (f *Formula) Report() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	lines := make([]string, 0, len(f.vars))
	for name, v := range f.vars {
		lines = append(lines, fmt.Sprintf("%s: %v", name, v))
	}
	sort.Strings(lines)
	return lines
}

// Clear forgets recorded values. Formulas are kept.
func (f *Formula) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	clear(f.vars)
}
