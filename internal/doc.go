// Package internal drives the rewriter over Go source files.
//
// Key components:
//
// Engine: parses a file, finds the functions annotated with a
// //rxobs:decorate comment or named in the configuration, rewrites their
// bodies and adds the runtime import.
//
// Cache: keeps rewrite results on disk so unchanged files are not
// rewritten again.
//
// Watcher: reruns the engine when Go files change.
//
// Usage:
//
//	engine := internal.NewEngine(internal.WithFunctions(functions))
//	res, err := engine.Run("sheet.go")
//	if err != nil {
//	    // handle error
//	}
//	os.Stdout.Write(res.Output)
package internal
