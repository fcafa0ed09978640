package transform

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hexops/gotextdiff"
	"github.com/hexops/gotextdiff/myers"
	"github.com/hexops/gotextdiff/span"

	"github.com/gnolang/rxobs/internal"
)

// OverlayFile is the name of the file WriteOverlay produces.
const OverlayFile = "overlay.json"

// Overlay is the file format of `go build -overlay`.
type Overlay struct {
	Replace map[string]string `json:"Replace"`
}

// WriteOverlay writes the rewritten files of results into dir and returns
// the path of an overlay file that substitutes them for the originals.
// Unchanged files are left out.
func WriteOverlay(dir string, results []*internal.Result) (string, error) {
	overlay := Overlay{Replace: make(map[string]string)}
	for _, res := range results {
		if !res.Changed() {
			continue
		}
		src, err := filepath.Abs(res.Filename)
		if err != nil {
			return "", err
		}
		sum := sha256.Sum256([]byte(src))
		target := filepath.Join(dir, hex.EncodeToString(sum[:8]), filepath.Base(src))
		if err := WriteResult(target, res); err != nil {
			return "", err
		}
		abs, err := filepath.Abs(target)
		if err != nil {
			return "", err
		}
		overlay.Replace[src] = abs
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(overlay, "", "  ")
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, OverlayFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write overlay: %w", err)
	}
	return path, nil
}

// WriteResult writes the rewritten source of res to path.
func WriteResult(path string, res *internal.Result) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	mode := os.FileMode(0o644)
	if info, err := os.Stat(res.Filename); err == nil {
		mode = info.Mode().Perm()
	}
	return os.WriteFile(path, res.Output, mode)
}

// Diff returns a unified diff from the original to the rewritten source.
// It is empty when nothing changed.
func Diff(res *internal.Result) string {
	if !res.Changed() {
		return ""
	}
	before, after := string(res.Source), string(res.Output)
	edits := myers.ComputeEdits(span.URIFromPath(res.Filename), before, after)
	return fmt.Sprint(gotextdiff.ToUnified(res.Filename, res.Filename+" (rewritten)", before, edits))
}
