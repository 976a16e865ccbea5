package tools

import (
	"os"
	"path/filepath"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
)

// defaultIgnoredDirs are skipped by glob/grep regardless of .gitignore
// content, per spec §4.3.
var defaultIgnoredDirs = []string{
	"node_modules", ".git", "dist", "build", "target", "vendor", ".next", ".venv",
}

// ignoreSet bundles the mandatory directory ignores with an optional
// .gitignore, borrowed from the ChamsBouzaiene-dodo example's use of
// sabhiram/go-gitignore for filesystem-scoped search.
type ignoreSet struct {
	gi *gitignore.GitIgnore
}

func loadIgnores(root string) *ignoreSet {
	is := &ignoreSet{}
	path := filepath.Join(root, ".gitignore")
	if _, err := os.Stat(path); err == nil {
		if gi, err := gitignore.CompileIgnoreFile(path); err == nil {
			is.gi = gi
		}
	}
	return is
}

func (is *ignoreSet) skip(relPath string) bool {
	for _, part := range strings.Split(relPath, string(filepath.Separator)) {
		for _, d := range defaultIgnoredDirs {
			if part == d {
				return true
			}
		}
	}
	if is.gi != nil && is.gi.MatchesPath(relPath) {
		return true
	}
	return false
}
