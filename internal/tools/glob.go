package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tenx-dev/core/internal/types"
)

// GlobInput is the glob tool's typed parameter shape.
type GlobInput struct {
	Pattern string `json:"pattern" jsonschema:"glob pattern to match files against, e.g. **/*.go"`
	Path    string `json:"path,omitempty" jsonschema:"directory to search from; defaults to the working directory"`
}

type GlobTool struct{ schema json.RawMessage }

func NewGlobTool() *GlobTool { return &GlobTool{schema: schemaFor[GlobInput]()} }

func (t *GlobTool) Name() string            { return "glob" }
func (t *GlobTool) Description() string     { return "Find files matching a glob pattern." }
func (t *GlobTool) Schema() json.RawMessage { return t.schema }

func (t *GlobTool) Execute(ctx context.Context, input map[string]any) (types.Result, error) {
	in, err := decode[GlobInput](input)
	if err != nil {
		return types.Result{}, err
	}
	root := in.Path
	if root == "" {
		root = "."
	}
	ignores := loadIgnores(root)

	var matches []string
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			return nil
		}
		rel, _ := filepath.Rel(root, path)
		if d.IsDir() {
			if ignores.skip(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if ignores.skip(rel) {
			return nil
		}
		if ok, _ := filepath.Match(in.Pattern, filepath.Base(path)); ok || globPathMatch(in.Pattern, rel) {
			matches = append(matches, path)
		}
		return nil
	})
	if err != nil {
		return types.Result{OK: false, Error: err.Error()}, nil
	}
	sort.Strings(matches)
	var sb strings.Builder
	for _, m := range matches {
		sb.WriteString(m)
		sb.WriteByte('\n')
	}
	sb.WriteString(fmt.Sprintf("(%d matches)", len(matches)))
	return types.Result{OK: true, Output: sb.String()}, nil
}

// globPathMatch supports a leading "**/" glob segment against a relative
// path, since filepath.Match alone has no recursive-wildcard concept.
func globPathMatch(pattern, rel string) bool {
	if strings.HasPrefix(pattern, "**/") {
		suffix := strings.TrimPrefix(pattern, "**/")
		if ok, _ := filepath.Match(suffix, filepath.Base(rel)); ok {
			return true
		}
		if ok, _ := filepath.Match(suffix, rel); ok {
			return true
		}
	}
	ok, _ := filepath.Match(pattern, rel)
	return ok
}
