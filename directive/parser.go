package directive

// Parse parses directive text into a Directive.
//
// The grammar is positional: the context, propose, register and request
// fields must all appear, in that order, separated by commas. Lists may be
// empty and may end with a trailing comma.
func Parse(input string) (Directive, error) {
	p := &parser{tokens: Lex(input)}
	return p.parse()
}

type parser struct {
	tokens []Token
	pos    int
}

func (p *parser) peek() Token {
	return p.tokens[p.pos]
}

func (p *parser) next() Token {
	tok := p.tokens[p.pos]
	if tok.Type != TokenEOF {
		p.pos++
	}
	return tok
}

func (p *parser) parse() (Directive, error) {
	var d Directive

	if err := p.label(LabelContext); err != nil {
		return Directive{}, err
	}
	ctx, err := p.reference()
	if err != nil {
		return Directive{}, err
	}
	d.Context = ctx

	lists := []struct {
		label string
		dst   *[]string
	}{
		{LabelPropose, &d.Propose},
		{LabelRegister, &d.Register},
		{LabelRequest, &d.Request},
	}
	for _, l := range lists {
		if err := p.separator(l.label); err != nil {
			return Directive{}, err
		}
		if err := p.label(l.label); err != nil {
			return Directive{}, err
		}
		names, err := p.list(l.label)
		if err != nil {
			return Directive{}, err
		}
		*l.dst = names
	}

	if tok := p.peek(); tok.Type != TokenEOF {
		return Directive{}, newConfigError(UnexpectedToken, tok, "unexpected %s after %s list", tok, LabelRequest)
	}
	return d, nil
}

// label consumes `<want> =`.
func (p *parser) label(want string) error {
	tok := p.next()
	switch {
	case tok.Type == TokenEOF:
		return newConfigError(MissingField, tok, "expected `%s` field", want)
	case tok.Type != TokenIdent || tok.Value != want:
		return newConfigError(UnexpectedLabel, tok, "expected `%s` keyword, found %s", want, tok)
	}

	eq := p.next()
	switch eq.Type {
	case TokenAssign:
		return nil
	case TokenEOF:
		return newConfigError(MissingField, eq, "expected '=' and a value for `%s`", want)
	default:
		return newConfigError(UnexpectedToken, eq, "expected '=' after `%s`, found %s", want, eq)
	}
}

// separator consumes the comma that precedes the field named next.
func (p *parser) separator(next string) error {
	tok := p.next()
	switch tok.Type {
	case TokenComma:
		return nil
	case TokenEOF:
		return newConfigError(MissingField, tok, "expected `%s` field", next)
	default:
		return newConfigError(UnexpectedToken, tok, "expected ',' before `%s`, found %s", next, tok)
	}
}

// reference parses an identifier or a dotted selector such as pkg.Var.
func (p *parser) reference() (string, error) {
	tok := p.next()
	switch tok.Type {
	case TokenIdent:
	case TokenEOF:
		return "", newConfigError(MissingField, tok, "expected observer reference for `%s`", LabelContext)
	default:
		return "", newConfigError(UnexpectedToken, tok, "expected observer identifier, found %s", tok)
	}

	ref := tok.Value
	for p.peek().Type == TokenDot {
		p.next()
		sel := p.next()
		if sel.Type != TokenIdent {
			return "", newConfigError(UnexpectedToken, sel, "expected identifier after '.', found %s", sel)
		}
		ref += "." + sel.Value
	}
	return ref, nil
}

// list parses `[name, name, ...]`.
func (p *parser) list(label string) ([]string, error) {
	open := p.next()
	if open.Type != TokenLBracket {
		return nil, newConfigError(MalformedList, open, "`%s` expects a bracketed list, found %s", label, open)
	}

	var names []string
	for {
		tok := p.next()
		switch tok.Type {
		case TokenRBracket:
			return names, nil
		case TokenIdent:
			names = append(names, tok.Value)
		case TokenEOF:
			return nil, newConfigError(MalformedList, tok, "`%s` list is not terminated", label)
		default:
			return nil, newConfigError(MalformedList, tok, "`%s` list expects bare identifiers, found %s", label, tok)
		}

		sep := p.next()
		switch sep.Type {
		case TokenComma:
		case TokenRBracket:
			return names, nil
		case TokenEOF:
			return nil, newConfigError(MalformedList, sep, "`%s` list is not terminated", label)
		default:
			return nil, newConfigError(MalformedList, sep, "expected ',' or ']' in `%s` list, found %s", label, sep)
		}
	}
}
