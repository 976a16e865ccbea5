package tools

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/tenx-dev/core/internal/types"
)

// GrepInput is the grep tool's typed parameter shape.
type GrepInput struct {
	Pattern string `json:"pattern" jsonschema:"regular expression to search for"`
	Path    string `json:"path,omitempty" jsonschema:"directory to search from; defaults to the working directory"`
	Glob    string `json:"glob,omitempty" jsonschema:"restrict the search to files matching this glob"`
}

type GrepTool struct{ schema json.RawMessage }

func NewGrepTool() *GrepTool { return &GrepTool{schema: schemaFor[GrepInput]()} }

func (t *GrepTool) Name() string            { return "grep" }
func (t *GrepTool) Description() string     { return "Regex search across files, emitting file:line:content." }
func (t *GrepTool) Schema() json.RawMessage { return t.schema }

func (t *GrepTool) Execute(ctx context.Context, input map[string]any) (types.Result, error) {
	in, err := decode[GrepInput](input)
	if err != nil {
		return types.Result{}, err
	}
	re, err := regexp.Compile(in.Pattern)
	if err != nil {
		return types.Result{OK: false, Error: fmt.Sprintf("invalid pattern: %v", err)}, nil
	}
	root := in.Path
	if root == "" {
		root = "."
	}
	ignores := loadIgnores(root)

	var sb strings.Builder
	count := 0
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
		if in.Glob != "" {
			if ok := globPathMatch(in.Glob, rel); !ok {
				return nil
			}
		}
		grepFile(path, re, &sb, &count)
		return nil
	})
	if err != nil {
		return types.Result{OK: false, Error: err.Error()}, nil
	}
	sb.WriteString(fmt.Sprintf("(%d matches)", count))
	return types.Result{OK: true, Output: sb.String()}, nil
}

func grepFile(path string, re *regexp.Regexp, sb *strings.Builder, count *int) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if re.MatchString(text) {
			*count++
			fmt.Fprintf(sb, "%s:%d:%s\n", path, line, text)
		}
	}
}
