package formatter

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"unicode"

	"github.com/fatih/color"

	"github.com/gnolang/rxobs/internal"
	"github.com/gnolang/rxobs/internal/check"
	tt "github.com/gnolang/rxobs/internal/types"
)

const tabWidth = 8

var (
	errorStyle      = color.New(color.FgRed, color.Bold)
	warningStyle    = color.New(color.FgHiYellow, color.Bold)
	infoStyle       = color.New(color.FgHiCyan, color.Bold)
	ruleStyle       = color.New(color.FgYellow, color.Bold)
	fileStyle       = color.New(color.FgCyan, color.Bold)
	lineStyle       = color.New(color.FgHiBlue, color.Bold)
	messageStyle    = color.New(color.FgRed, color.Bold)
	suggestionStyle = color.New(color.FgGreen, color.Bold)
)

// issueFormatter provides the text template an issue is rendered with.
type issueFormatter interface {
	IssueTemplate() string
}

func getIssueFormatter(rule string) issueFormatter {
	switch rule {
	case check.RuleUnknownFunction:
		return &ConfigurationIssueFormatter{}
	default:
		return &GeneralIssueFormatter{}
	}
}

// GenerateFormattedIssue renders issues of a single file in rustc style:
// a header, the offending source lines with an underline, and the
// optional suggestion and note.
func GenerateFormattedIssue(issues []tt.Issue, snippet *internal.SourceCode) string {
	var builder strings.Builder
	for _, issue := range issues {
		builder.WriteString(buildIssue(issue, snippet, getIssueFormatter(issue.Rule)))
	}
	return builder.String()
}

type IssueData struct {
	Severity        string
	Rule            string
	Filename        string
	Padding         string
	StartLine       int
	StartColumn     int
	EndLine         int
	EndColumn       int
	MaxLineNumWidth int
	Message         string
	Suggestion      string
	Note            string
	SnippetLines    []string
	CommonIndent    string
}

var funcMap = template.FuncMap{
	"header":              header,
	"suggestion":          suggestion,
	"note":                note,
	"snippet":             codeSnippet,
	"underlineAndMessage": underlineAndMessage,
	"message":             message,
}

func buildIssue(issue tt.Issue, snippet *internal.SourceCode, formatter issueFormatter) string {
	width := len(fmt.Sprint(issue.End.Line))

	var indent string
	if isValidLineRange(issue.Start.Line, issue.End.Line, snippet.Lines) {
		indent = findCommonIndent(snippet.Lines[issue.Start.Line-1 : issue.End.Line])
	}

	data := IssueData{
		Severity:        issue.Severity.String(),
		Rule:            issue.Rule,
		Filename:        issue.Filename,
		StartLine:       issue.Start.Line,
		StartColumn:     issue.Start.Column,
		EndLine:         issue.End.Line,
		EndColumn:       issue.End.Column,
		Message:         issue.Message,
		Suggestion:      issue.Suggestion,
		Note:            issue.Note,
		MaxLineNumWidth: width,
		Padding:         strings.Repeat(" ", width+1),
		CommonIndent:    indent,
		SnippetLines:    snippet.Lines,
	}

	tmpl := template.Must(template.New("issue").Funcs(funcMap).Parse(formatter.IssueTemplate()))

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Sprintf("Error formatting issue: %v", err)
	}
	return buf.String()
}

// template helpers

func header(rule, severity string, maxLineNumWidth int, filename string, line, column int) string {
	var sb strings.Builder
	switch severity {
	case "ERROR":
		sb.WriteString(errorStyle.Sprint("error: "))
	case "WARNING":
		sb.WriteString(warningStyle.Sprint("warning: "))
	case "INFO":
		sb.WriteString(infoStyle.Sprint("info: "))
	}
	sb.WriteString(ruleStyle.Sprintf("%s\n", rule))
	sb.WriteString(lineStyle.Sprintf("%s--> ", strings.Repeat(" ", maxLineNumWidth)))
	sb.WriteString(fileStyle.Sprintf("%s:%d:%d", filename, line, column))
	return sb.String()
}

func codeSnippet(lines []string, startLine, endLine, maxLineNumWidth int, commonIndent, padding string) string {
	var sb strings.Builder
	sb.WriteString(lineStyle.Sprintf("%s|\n", padding))
	for i := startLine; i <= endLine; i++ {
		if i-1 < 0 || i-1 >= len(lines) {
			continue
		}
		line := strings.TrimPrefix(lines[i-1], commonIndent)
		sb.WriteString(lineStyle.Sprintf("%*d | %s\n", maxLineNumWidth, i, line))
	}
	return sb.String()
}

func underlineAndMessage(msg, padding string, startLine, endLine, startColumn, endColumn int, lines []string, commonIndent string) string {
	var sb strings.Builder
	sb.WriteString(lineStyle.Sprintf("%s| ", padding))

	if !isValidLineRange(startLine, endLine, lines) {
		sb.WriteString(messageStyle.Sprintf("%s\n", msg))
		return sb.String()
	}

	indentWidth := visualColumn(commonIndent, len(commonIndent)+1)
	start := max(visualColumn(lines[startLine-1], startColumn)-indentWidth, 0)
	end := visualColumn(lines[endLine-1], endColumn) - indentWidth

	sb.WriteString(strings.Repeat(" ", start))
	sb.WriteString(messageStyle.Sprintf("%s\n", strings.Repeat("~", max(end-start+1, 1))))
	sb.WriteString(lineStyle.Sprintf("%s= ", padding))
	sb.WriteString(messageStyle.Sprintf("%s\n", msg))
	return sb.String()
}

func suggestion(text, padding string, maxLineNumWidth, startLine int) string {
	if text == "" {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(suggestionStyle.Sprint("Suggestion:\n"))
	sb.WriteString(lineStyle.Sprintf("%s|\n", padding))
	for i, line := range strings.Split(text, "\n") {
		sb.WriteString(lineStyle.Sprintf("%*d | %s\n", maxLineNumWidth, startLine+i, line))
	}
	sb.WriteString(lineStyle.Sprintf("%s|\n", padding))
	return sb.String()
}

func note(text string) string {
	if text == "" {
		return ""
	}
	return suggestionStyle.Sprint("Note: ") + lineStyle.Sprintf("%s\n", text)
}

func message(msg string) string {
	return messageStyle.Sprintf("%s\n", msg)
}

func isValidLineRange(startLine, endLine int, lines []string) bool {
	return startLine > 0 &&
		startLine <= endLine &&
		endLine <= len(lines)
}

// visualColumn converts a 1-based byte column into a display width,
// expanding tabs.
func visualColumn(line string, column int) int {
	if column < 0 {
		return 0
	}
	col := 0
	for i, ch := range line {
		if i+1 == column {
			break
		}
		if ch == '\t' {
			col += tabWidth - (col % tabWidth)
		} else {
			col++
		}
	}
	return col
}

// findCommonIndent returns the leading whitespace shared by all
// non-blank lines.
func findCommonIndent(lines []string) string {
	var common []rune
	first := true
	for _, line := range lines {
		trimmed := strings.TrimLeftFunc(line, unicode.IsSpace)
		if trimmed == "" {
			continue
		}
		indent := []rune(line[:len(line)-len(trimmed)])
		if first {
			common, first = indent, false
			continue
		}
		common = commonPrefix(common, indent)
		if len(common) == 0 {
			break
		}
	}
	return string(common)
}

func commonPrefix(a, b []rune) []rune {
	n := min(len(a), len(b))
	for i := range n {
		if a[i] != b[i] {
			return a[:i]
		}
	}
	return a[:n]
}
