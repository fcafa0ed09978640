// Package formula evaluates spreadsheet-style formulas such as
//
//	=(b + c) * s
//	=SUM({b, c, 1})
//
// Formulas are arithmetic over numbers, quoted text and variable names with
// + - * / and parentheses, plus the aggregate functions SUM, MIN, MAX and
// AVG (AVERAGE). Array braces inside a call are flattened into its
// arguments. Variables are looked up through a Resolver at evaluation time.
package formula

import (
	"errors"
	"fmt"
	"go/ast"
	"go/constant"
	"go/parser"
	"go/token"
	"strconv"
	"strings"
)

var (
	ErrSyntax  = errors.New("#SYNTAX!")
	ErrDivZero = errors.New("#DIV/0!")
	ErrValue   = errors.New("#VALUE!")
	ErrName    = errors.New("#NAME?")
)

// Kind tells numbers from text.
type Kind int

const (
	KindNumber Kind = iota
	KindText
)

// Value is the result of an evaluation.
type Value struct {
	Kind Kind
	Num  float64
	Text string
}

func Number(f float64) Value { return Value{Kind: KindNumber, Num: f} }

func Text(s string) Value { return Value{Kind: KindText, Text: s} }

func (v Value) String() string {
	if v.Kind == KindText {
		return v.Text
	}
	return strconv.FormatFloat(v.Num, 'f', -1, 64)
}

// Any returns the value as a float64 or a string.
func (v Value) Any() any {
	if v.Kind == KindText {
		return v.Text
	}
	return v.Num
}

// number coerces text that spells a number, as spreadsheets do.
func (v Value) number() (float64, error) {
	if v.Kind == KindNumber {
		return v.Num, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v.Text), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrValue, v.Text)
	}
	return f, nil
}

// Resolver returns the value of a variable.
type Resolver func(name string) (Value, error)

// Expr is a parsed formula.
type Expr struct {
	src  string
	root ast.Expr
}

// Parse parses a formula. A leading '=' is optional.
func Parse(src string) (*Expr, error) {
	body := strings.TrimSpace(src)
	body = strings.TrimPrefix(body, "=")

	root, err := parser.ParseExpr(flattenArrays(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrSyntax, src, err)
	}
	if err := validate(root); err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrSyntax, src, err)
	}
	return &Expr{src: src, root: root}, nil
}

func (e *Expr) String() string { return e.src }

// flattenArrays drops array braces outside of string literals, so that
// SUM({a, b}, c) reads as SUM(a, b, c).
func flattenArrays(s string) string {
	var sb strings.Builder
	inString := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case inString && ch == '\\' && i+1 < len(s):
			sb.WriteByte(ch)
			i++
			sb.WriteByte(s[i])
			continue
		case ch == '"':
			inString = !inString
		case !inString && (ch == '{' || ch == '}'):
			continue
		}
		sb.WriteByte(ch)
	}
	return sb.String()
}

// validate rejects syntax that parses as Go but is not a formula.
func validate(root ast.Expr) error {
	var err error
	ast.Inspect(root, func(n ast.Node) bool {
		if err != nil || n == nil {
			return false
		}
		switch n := n.(type) {
		case *ast.Ident, *ast.ParenExpr:
		case *ast.BasicLit:
			if n.Kind == token.CHAR || n.Kind == token.IMAG {
				err = fmt.Errorf("unsupported literal %s", n.Value)
			}
		case *ast.UnaryExpr:
			if n.Op != token.ADD && n.Op != token.SUB {
				err = fmt.Errorf("unsupported operator %s", n.Op)
			}
		case *ast.BinaryExpr:
			switch n.Op {
			case token.ADD, token.SUB, token.MUL, token.QUO:
			default:
				err = fmt.Errorf("unsupported operator %s", n.Op)
			}
		case *ast.CallExpr:
			fn, ok := n.Fun.(*ast.Ident)
			if !ok {
				err = errors.New("only named functions can be called")
				return false
			}
			if _, ok := functions[strings.ToUpper(fn.Name)]; !ok {
				err = fmt.Errorf("unknown function %s", fn.Name)
				return false
			}
			if n.Ellipsis.IsValid() {
				err = errors.New("unexpected ...")
			}
		default:
			err = fmt.Errorf("unexpected %T", n)
		}
		return err == nil
	})
	return err
}

// Vars returns the variable names the formula references, in first-use
// order.
func (e *Expr) Vars() []string {
	var names []string
	seen := make(map[string]bool)
	var walk func(n ast.Expr)
	walk = func(n ast.Expr) {
		switch n := n.(type) {
		case *ast.Ident:
			if !seen[n.Name] {
				seen[n.Name] = true
				names = append(names, n.Name)
			}
		case *ast.ParenExpr:
			walk(n.X)
		case *ast.UnaryExpr:
			walk(n.X)
		case *ast.BinaryExpr:
			walk(n.X)
			walk(n.Y)
		case *ast.CallExpr:
			for _, arg := range n.Args {
				walk(arg)
			}
		}
	}
	walk(e.root)
	return names
}

// Eval evaluates the formula. resolve may be nil when the formula has no
// variables.
func (e *Expr) Eval(resolve Resolver) (Value, error) {
	return eval(e.root, resolve)
}

// Eval parses and evaluates src.
func Eval(src string, resolve Resolver) (Value, error) {
	e, err := Parse(src)
	if err != nil {
		return Value{}, err
	}
	return e.Eval(resolve)
}

func eval(n ast.Expr, resolve Resolver) (Value, error) {
	switch n := n.(type) {
	case *ast.ParenExpr:
		return eval(n.X, resolve)

	case *ast.BasicLit:
		c := constant.MakeFromLiteral(n.Value, n.Kind, 0)
		if n.Kind == token.STRING {
			return Text(constant.StringVal(c)), nil
		}
		f, _ := constant.Float64Val(constant.ToFloat(c))
		return Number(f), nil

	case *ast.Ident:
		if resolve == nil {
			return Value{}, fmt.Errorf("%w: %s", ErrName, n.Name)
		}
		return resolve(n.Name)

	case *ast.UnaryExpr:
		v, err := eval(n.X, resolve)
		if err != nil {
			return Value{}, err
		}
		f, err := v.number()
		if err != nil {
			return Value{}, err
		}
		if n.Op == token.SUB {
			f = -f
		}
		return Number(f), nil

	case *ast.BinaryExpr:
		return binary(n, resolve)

	case *ast.CallExpr:
		name := strings.ToUpper(n.Fun.(*ast.Ident).Name)
		args := make([]float64, 0, len(n.Args))
		for _, arg := range n.Args {
			v, err := eval(arg, resolve)
			if err != nil {
				return Value{}, err
			}
			f, err := v.number()
			if err != nil {
				return Value{}, err
			}
			args = append(args, f)
		}
		return functions[name](args)

	default:
		return Value{}, fmt.Errorf("%w: unexpected %T", ErrSyntax, n)
	}
}

func binary(n *ast.BinaryExpr, resolve Resolver) (Value, error) {
	lv, err := eval(n.X, resolve)
	if err != nil {
		return Value{}, err
	}
	rv, err := eval(n.Y, resolve)
	if err != nil {
		return Value{}, err
	}
	l, err := lv.number()
	if err != nil {
		return Value{}, err
	}
	r, err := rv.number()
	if err != nil {
		return Value{}, err
	}

	switch n.Op {
	case token.ADD:
		return Number(l + r), nil
	case token.SUB:
		return Number(l - r), nil
	case token.MUL:
		return Number(l * r), nil
	case token.QUO:
		if r == 0 {
			return Value{}, ErrDivZero
		}
		return Number(l / r), nil
	default:
		return Value{}, fmt.Errorf("%w: unsupported operator %s", ErrSyntax, n.Op)
	}
}
