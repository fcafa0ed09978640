package formatter

// GeneralIssueFormatter renders the source lines an issue points at.
type GeneralIssueFormatter struct{}

func (f *GeneralIssueFormatter) IssueTemplate() string {
	return `{{header .Rule .Severity .MaxLineNumWidth .Filename .StartLine .StartColumn}}
{{snippet .SnippetLines .StartLine .EndLine .MaxLineNumWidth .CommonIndent .Padding -}}
{{underlineAndMessage .Message .Padding .StartLine .EndLine .StartColumn .EndColumn .SnippetLines .CommonIndent}}
{{if .Suggestion}}{{suggestion .Suggestion .Padding .MaxLineNumWidth .StartLine}}
{{end}}{{if .Note}}{{note .Note}}
{{end}}`
}

// ConfigurationIssueFormatter renders issues found in the configuration
// file, which has no Go source to show.
type ConfigurationIssueFormatter struct{}

func (f *ConfigurationIssueFormatter) IssueTemplate() string {
	return `{{header .Rule .Severity .MaxLineNumWidth .Filename .StartLine .StartColumn}}
{{message .Message}}{{if .Note}}{{note .Note}}{{end}}
`
}
