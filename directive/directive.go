// Package directive parses rxobs rewrite directives.
//
// A directive names the observer that instrumented code calls into and three
// lists of local identifiers:
//
//	context = obs, propose = [total], register = [price, qty], request = [rate]
//
// Names are matched lexically by the rewriter; nothing here checks that they
// exist in the annotated function.
package directive

import (
	"slices"
	"strings"
)

// Field labels, in the order the grammar requires them.
const (
	LabelContext  = "context"
	LabelPropose  = "propose"
	LabelRegister = "register"
	LabelRequest  = "request"
)

// Directive is a parsed rewrite plan for one function.
type Directive struct {
	// Context is the observer reference, an identifier or a dotted selector.
	Context  string
	Propose  []string
	Register []string
	Request  []string
}

func (d Directive) Proposes(name string) bool  { return slices.Contains(d.Propose, name) }
func (d Directive) Registers(name string) bool { return slices.Contains(d.Register, name) }
func (d Directive) Requests(name string) bool  { return slices.Contains(d.Request, name) }

// IsEmpty reports whether the directive observes nothing.
func (d Directive) IsEmpty() bool {
	return len(d.Propose) == 0 && len(d.Register) == 0 && len(d.Request) == 0
}

// Names returns every listed name once, in first-listed order.
func (d Directive) Names() []string {
	seen := make(map[string]bool)
	var names []string
	for _, list := range [][]string{d.Propose, d.Register, d.Request} {
		for _, name := range list {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	return names
}

// String renders the directive in canonical form.
// Parsing the result yields a Directive equal to d.
func (d Directive) String() string {
	var sb strings.Builder
	sb.WriteString(LabelContext)
	sb.WriteString(" = ")
	sb.WriteString(d.Context)
	writeList(&sb, LabelPropose, d.Propose)
	writeList(&sb, LabelRegister, d.Register)
	writeList(&sb, LabelRequest, d.Request)
	return sb.String()
}

func writeList(sb *strings.Builder, label string, names []string) {
	sb.WriteString(", ")
	sb.WriteString(label)
	sb.WriteString(" = [")
	sb.WriteString(strings.Join(names, ", "))
	sb.WriteString("]")
}
