// Package observe is the runtime instrumented functions call into.
//
// The rewriter turns reads, declarations and assignments of listed variables
// into calls to the generic helpers of this package (Register, Propose,
// Request, RequestArg). The helpers forward to an Observer and convert its
// result back to the variable's type, so an observer may record a value,
// pass it through, or substitute another one.
package observe

import "fmt"

// Observer receives the values of instrumented variables.
//
// Every method returns the value the instrumented code continues with.
// Returning the argument unchanged keeps the program's behavior.
// Implementations must be safe for concurrent use.
type Observer interface {
	// Register is called for every read of a name in the register list.
	// typeName is the static type of the variable.
	Register(value any, fn, ident, typeName string) any
	// Propose is called after a name in the propose list is bound or
	// assigned.
	Propose(value any, fn, ident string) any
	// Request is called for every read of a name in the request list.
	// The observer may ignore value and return a recomputed one.
	Request(value any, fn, ident string) any
}

// ArgRequester is implemented by observers that handle the call-argument
// form of a request, which carries only the value. Observers without it get
// Request(value, "", "").
type ArgRequester interface {
	RequestArg(value any) any
}

// Op is the kind of hook that produced an event.
type Op int

const (
	OpRegister Op = iota
	OpPropose
	OpRequest
)

func (op Op) String() string {
	switch op {
	case OpRegister:
		return "registering"
	case OpPropose:
		return "proposing"
	case OpRequest:
		return "requesting"
	default:
		return fmt.Sprintf("Op(%d)", int(op))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (op Op) MarshalText() ([]byte, error) {
	return []byte(op.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (op *Op) UnmarshalText(text []byte) error {
	switch string(text) {
	case "registering":
		*op = OpRegister
	case "proposing":
		*op = OpPropose
	case "requesting":
		*op = OpRequest
	default:
		return fmt.Errorf("unknown operation %q", text)
	}
	return nil
}

// Path identifies an instrumented variable as fn/ident.
func Path(fn, ident string) string {
	return fn + "/" + ident
}
