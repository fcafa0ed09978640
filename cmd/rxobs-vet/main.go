// Command rxobs-vet checks rewrite directives as a go vet tool:
//
//	go vet -vettool=$(which rxobs-vet) ./...
package main

import (
	"golang.org/x/tools/go/analysis/singlechecker"

	"github.com/gnolang/rxobs/internal/analyzer"
)

func main() {
	singlechecker.Main(analyzer.Analyzer)
}
