package directive

import (
	"go/ast"
	"go/token"
	"strings"
)

// Prefix marks a directive comment in a function's doc comment.
const Prefix = "//rxobs:decorate"

// Source is directive text taken from a comment group, together with the
// file position where each of its lines starts.
type Source struct {
	Text  string
	lines []token.Pos
}

// Find extracts the directive from a doc comment group.
// A directive line ending with ',' continues on the next comment line.
func Find(doc *ast.CommentGroup) (*Source, bool) {
	if doc == nil {
		return nil, false
	}

	for i, c := range doc.List {
		rest, ok := strings.CutPrefix(c.Text, Prefix)
		if !ok {
			continue
		}
		if rest != "" && rest[0] != ' ' && rest[0] != '\t' {
			continue
		}

		src := &Source{}
		src.add(rest, c.Slash+token.Pos(len(Prefix)))
		for j := i + 1; j < len(doc.List) && strings.HasSuffix(strings.TrimSpace(rest), ","); j++ {
			next := doc.List[j]
			body, isLine := strings.CutPrefix(next.Text, "//")
			if !isLine {
				break
			}
			src.add(body, next.Slash+2)
			rest = body
		}
		return src, true
	}
	return nil, false
}

// IsDirective reports whether the comment is a directive line.
func IsDirective(c *ast.Comment) bool {
	rest, ok := strings.CutPrefix(c.Text, Prefix)
	return ok && (rest == "" || rest[0] == ' ' || rest[0] == '\t')
}

func (s *Source) add(line string, start token.Pos) {
	if len(s.lines) > 0 {
		s.Text += "\n"
	}
	s.Text += line
	s.lines = append(s.lines, start)
}

// Parse parses the directive text.
func (s *Source) Parse() (Directive, error) {
	return Parse(s.Text)
}

// Pos maps a line/column inside the directive text to a file position.
func (s *Source) Pos(line, col int) token.Pos {
	if len(s.lines) == 0 {
		return token.NoPos
	}
	if line < 1 {
		line = 1
	}
	if line > len(s.lines) {
		line = len(s.lines)
	}
	return s.lines[line-1] + token.Pos(col-1)
}

// Start is the position of the directive comment.
func (s *Source) Start() token.Pos {
	if len(s.lines) == 0 {
		return token.NoPos
	}
	return s.lines[0] - token.Pos(len(Prefix))
}
