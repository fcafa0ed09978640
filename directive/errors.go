package directive

import (
	"errors"
	"fmt"
)

var (
	ErrUnexpectedLabel = errors.New("unexpected label")
	ErrMalformedList   = errors.New("malformed list")
	ErrMissingField    = errors.New("missing field")
	ErrUnexpectedToken = errors.New("unexpected token")
)

// ErrorKind classifies a ConfigError.
type ErrorKind int

const (
	UnexpectedLabel ErrorKind = iota
	MalformedList
	MissingField
	UnexpectedToken
)

func (k ErrorKind) String() string {
	switch k {
	case UnexpectedLabel:
		return "unexpected-label"
	case MalformedList:
		return "malformed-list"
	case MissingField:
		return "missing-field"
	case UnexpectedToken:
		return "unexpected-token"
	default:
		return "unknown"
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case UnexpectedLabel:
		return ErrUnexpectedLabel
	case MalformedList:
		return ErrMalformedList
	case MissingField:
		return ErrMissingField
	default:
		return ErrUnexpectedToken
	}
}

// ConfigError reports a directive that does not follow the grammar.
// Line and Col locate the offending token inside the directive text.
type ConfigError struct {
	Kind  ErrorKind
	Line  int
	Col   int
	Token string
	Msg   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("line %d col %d: %s: %s", e.Line, e.Col, e.Kind.sentinel(), e.Msg)
}

func (e *ConfigError) Unwrap() error {
	return e.Kind.sentinel()
}

func newConfigError(kind ErrorKind, tok Token, format string, args ...any) *ConfigError {
	return &ConfigError{
		Kind:  kind,
		Line:  tok.Line,
		Col:   tok.Col,
		Token: tok.Value,
		Msg:   fmt.Sprintf(format, args...),
	}
}
