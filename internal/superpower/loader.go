package superpower

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/tenx-dev/core/internal/logging"
	"github.com/tenx-dev/core/internal/types"
)

// SuperpowerFileName is the expected filename for superpower definitions,
// analogous to the reference skill loader's SkillFileName.
const SuperpowerFileName = "SUPERPOWER.md"

// Loader loads superpowers from three precedence roots (spec §4.7):
// bundled built-ins, global user directory, project directory, lowest to
// highest precedence. Loading is read-only and idempotent per working
// directory (cached).
type Loader struct {
	mu       sync.RWMutex
	roots    []string // in precedence order, lowest first
	byTrigger map[string]*types.Superpower
	watchers []*fsnotify.Watcher
	cancel   context.CancelFunc
	onChange func([]*types.Superpower)
}

// NewLoader builds a Loader over roots in precedence order (lowest first).
// Missing roots are skipped, not an error.
func NewLoader(roots ...string) *Loader {
	return &Loader{roots: roots, byTrigger: map[string]*types.Superpower{}}
}

// LoadAll (re)loads every root in precedence order; a later root's
// superpower overrides an earlier one with the same trigger.
func (l *Loader) LoadAll() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.byTrigger = map[string]*types.Superpower{}
	for _, root := range l.roots {
		if _, err := os.Stat(root); os.IsNotExist(err) {
			continue
		}
		if err := l.loadRoot(root); err != nil {
			return fmt.Errorf("superpower: loading %s: %w", root, err)
		}
	}
	logging.With("superpower").Debug("loaded superpowers", "count", len(l.byTrigger))
	return nil
}

func (l *Loader) loadRoot(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		if !strings.EqualFold(filepath.Base(path), SuperpowerFileName) {
			return nil
		}
		sp, perr := l.loadFile(path)
		if perr != nil {
			return fmt.Errorf("%s: %w", path, perr)
		}
		l.byTrigger[sp.Trigger] = sp
		return nil
	})
}

func (l *Loader) loadFile(path string) (*types.Superpower, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	fm, body, err := parseFrontmatter(data)
	if err != nil {
		return nil, err
	}
	steps, err := parseSteps(body)
	if err != nil {
		return nil, err
	}
	if fm.Trigger == "" {
		return nil, fmt.Errorf("missing trigger in frontmatter")
	}
	return &types.Superpower{
		Trigger:     fm.Trigger,
		Description: fm.Description,
		Multimodal:  fm.Multimodal,
		Steps:       steps,
		SourcePath:  path,
	}, nil
}

// Get returns a superpower by trigger.
func (l *Loader) Get(trigger string) (*types.Superpower, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	sp, ok := l.byTrigger[trigger]
	return sp, ok
}

// List returns every loaded superpower.
func (l *Loader) List() []*types.Superpower {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*types.Superpower, 0, len(l.byTrigger))
	for _, sp := range l.byTrigger {
		out = append(out, sp)
	}
	return out
}

// Watch hot-reloads all three roots on change, generalizing the reference
// skill loader's single-directory fsnotify watch to the merged,
// precedence-ordered root set.
func (l *Loader) Watch(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel

	for _, root := range l.roots {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			cancel()
			return fmt.Errorf("superpower: watcher: %w", err)
		}
		if err := addRecursive(w, root); err != nil {
			logging.With("superpower").Warn("could not watch root", "root", root, "err", err)
		}
		l.watchers = append(l.watchers, w)
		go l.watchLoop(ctx, w)
	}
	return nil
}

func addRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			_ = w.Add(path)
		}
		return nil
	})
}

func (l *Loader) watchLoop(ctx context.Context, w *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.Events:
			if !ok {
				return
			}
			if !strings.EqualFold(filepath.Base(event.Name), SuperpowerFileName) {
				continue
			}
			if err := l.LoadAll(); err != nil {
				logging.With("superpower").Warn("reload failed", "err", err)
				continue
			}
			if l.onChange != nil {
				l.onChange(l.List())
			}
		case _, ok := <-w.Errors:
			if !ok {
				return
			}
		}
	}
}

// OnChange registers a callback invoked after any successful hot-reload.
func (l *Loader) OnChange(fn func([]*types.Superpower)) {
	l.onChange = fn
}

// Stop tears down every watcher.
func (l *Loader) Stop() {
	if l.cancel != nil {
		l.cancel()
	}
	for _, w := range l.watchers {
		w.Close()
	}
}
