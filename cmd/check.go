package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnolang/rxobs/formatter"
	"github.com/gnolang/rxobs/internal"
	tt "github.com/gnolang/rxobs/internal/types"
	"github.com/gnolang/rxobs/transform"
)

var (
	checkJsonOutput bool
	checkOutPath    string
)

var checkCmd = &cobra.Command{
	Use:   "check [paths...]",
	Short: "Report malformed and ineffective directives",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			fmt.Println("error: Please provide file or directory paths")
			os.Exit(1)
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		cfg, engine, err := setup(false)
		if err != nil {
			logger.Fatal("Failed to initialize rewrite engine", zap.Error(err))
		}

		issues, err := runCheck(ctx, logger, engine, cfg, args, cmd.OutOrStdout(), checkJsonOutput, checkOutPath)
		if err != nil {
			logger.Error("Error checking files", zap.Error(err))
			os.Exit(1)
		}
		if hasErrors(issues) {
			os.Exit(1)
		}
	},
}

func init() {
	checkCmd.Flags().BoolVar(&checkJsonOutput, "json", false, "Output issues in JSON format")
	checkCmd.Flags().StringVarP(&checkOutPath, "output", "o", "", "Output path (when using JSON)")
}

func runCheck(
	ctx context.Context,
	logger *zap.Logger,
	engine transform.Engine,
	cfg *transform.Config,
	paths []string,
	w io.Writer,
	isJson bool,
	jsonOutput string,
) ([]tt.Issue, error) {
	issues, err := transform.Check(ctx, logger, engine, cfg, paths, transform.Options{})
	if err != nil {
		return issues, err
	}
	return issues, printIssues(logger, w, issues, isJson, jsonOutput)
}

func printIssues(logger *zap.Logger, w io.Writer, issues []tt.Issue, isJson bool, jsonOutput string) error {
	issuesByFile := make(map[string][]tt.Issue)
	for _, issue := range issues {
		issuesByFile[issue.Filename] = append(issuesByFile[issue.Filename], issue)
	}

	if isJson {
		d, err := json.Marshal(issuesByFile)
		if err != nil {
			return fmt.Errorf("marshalling issues: %w", err)
		}
		if jsonOutput == "" {
			_, err = fmt.Fprintln(w, string(d))
			return err
		}
		return os.WriteFile(jsonOutput, d, 0o644)
	}

	sortedFiles := make([]string, 0, len(issuesByFile))
	for filename := range issuesByFile {
		sortedFiles = append(sortedFiles, filename)
	}
	sort.Strings(sortedFiles)

	for _, filename := range sortedFiles {
		fileIssues := issuesByFile[filename]
		sourceCode, err := internal.ReadSourceCode(filename)
		if err != nil {
			logger.Error("Error reading source file", zap.String("file", filename), zap.Error(err))
			continue
		}
		fmt.Fprintln(w, formatter.GenerateFormattedIssue(fileIssues, sourceCode))
	}
	return nil
}

func hasErrors(issues []tt.Issue) bool {
	for _, issue := range issues {
		if issue.Severity == tt.SeverityError {
			return true
		}
	}
	return false
}
