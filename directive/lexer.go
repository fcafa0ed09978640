package directive

import (
	"fmt"
	"unicode"
	"unicode/utf8"
)

// TokenType defines the type of a directive token
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenIdent
	TokenAssign
	TokenComma
	TokenDot
	TokenLBracket
	TokenRBracket
	TokenIllegal
)

func (t TokenType) String() string {
	switch t {
	case TokenEOF:
		return "EOF"
	case TokenIdent:
		return "Ident"
	case TokenAssign:
		return "'='"
	case TokenComma:
		return "','"
	case TokenDot:
		return "'.'"
	case TokenLBracket:
		return "'['"
	case TokenRBracket:
		return "']'"
	case TokenIllegal:
		return "Illegal"
	default:
		return "Unknown"
	}
}

// Token represents a lexical token of a directive.
// Line and Col are 1-based; Col is a byte offset like token.Position.Column.
type Token struct {
	Type  TokenType
	Value string
	Line  int
	Col   int
}

func (t Token) String() string {
	if t.Type == TokenEOF {
		return "end of directive"
	}
	return fmt.Sprintf("%q", t.Value)
}

// Lex splits directive text into tokens.
// Unknown characters become TokenIllegal tokens instead of failing here,
// so that the parser can report them with the field they belong to.
func Lex(input string) []Token {
	var tokens []Token

	line, col := 1, 1
	i := 0

	for i < len(input) {
		r, size := utf8.DecodeRuneInString(input[i:])

		if r == '\n' {
			line++
			col = 1
			i += size
			continue
		}
		if unicode.IsSpace(r) {
			col += size
			i += size
			continue
		}

		if isIdentifierStart(r) {
			start, startCol := i, col
			for i < len(input) {
				r, size = utf8.DecodeRuneInString(input[i:])
				if !isIdentifierChar(r) {
					break
				}
				i += size
				col += size
			}
			tokens = append(tokens, Token{Type: TokenIdent, Value: input[start:i], Line: line, Col: startCol})
			continue
		}

		typ := TokenIllegal
		switch r {
		case '=':
			typ = TokenAssign
		case ',':
			typ = TokenComma
		case '.':
			typ = TokenDot
		case '[':
			typ = TokenLBracket
		case ']':
			typ = TokenRBracket
		}
		tokens = append(tokens, Token{Type: typ, Value: string(r), Line: line, Col: col})
		col += size
		i += size
	}

	tokens = append(tokens, Token{Type: TokenEOF, Line: line, Col: col})
	return tokens
}

func isIdentifierStart(r rune) bool {
	return unicode.IsLetter(r) || r == '_'
}

func isIdentifierChar(r rune) bool {
	return isIdentifierStart(r) || unicode.IsDigit(r)
}
