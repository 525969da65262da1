package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
)

// WalkOptions controls which parts of a tree a Walker visits
type WalkOptions struct {
	Exclude []string // directory names skipped at any depth
	Ignore  *IgnoreMatcher
}

// Listing is the snapshot a walk produces. Files and Dirs are in lexical
// walk order; Dirs never contains the root.
type Listing struct {
	Root   string
	Files  []FileInfo
	Dirs   []string
	Errors []error
}

// Walker collects the files below a root in a deterministic order
type Walker struct {
	root    string
	exclude map[string]struct{}
	ignore  *IgnoreMatcher
}

// NewWalker creates a walker for root
func NewWalker(root string, opts WalkOptions) *Walker {
	exclude := make(map[string]struct{}, len(opts.Exclude))
	for _, name := range opts.Exclude {
		if name != "" {
			exclude[name] = struct{}{}
		}
	}
	return &Walker{
		root:    filepath.Clean(root),
		exclude: exclude,
		ignore:  opts.Ignore,
	}
}

// Root returns the walked root
func (w *Walker) Root() string {
	return w.root
}

// Excluded reports whether a directory with this base name is skipped
func (w *Walker) Excluded(name string) bool {
	_, ok := w.exclude[name]
	return ok
}

// Collect walks the tree once. Symlinks and other non-regular files are not
// reported. Unreadable subdirectories are recorded in Errors and skipped;
// only a failure on the root itself or cancellation aborts the walk.
func (w *Walker) Collect(ctx context.Context) (*Listing, error) {
	listing := &Listing{Root: w.root}

	err := filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err != nil {
			if path == w.root {
				return err
			}
			listing.Errors = append(listing.Errors, fmt.Errorf("walk %s: %w", path, err))
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if path == w.root {
			return nil
		}

		rel, relErr := filepath.Rel(w.root, path)
		if relErr != nil {
			listing.Errors = append(listing.Errors, relErr)
			return nil
		}

		if d.IsDir() {
			if w.Excluded(d.Name()) || w.ignore.Match(rel, true) {
				return fs.SkipDir
			}
			listing.Dirs = append(listing.Dirs, path)
			return nil
		}

		if !d.Type().IsRegular() {
			return nil
		}
		if rel == IgnoreFileName || w.ignore.Match(rel, false) {
			return nil
		}

		info, infoErr := d.Info()
		if infoErr != nil {
			listing.Errors = append(listing.Errors, fmt.Errorf("stat %s: %w", path, infoErr))
			return nil
		}

		listing.Files = append(listing.Files, FileInfo{
			Path:    path,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return listing, err
	}

	return listing, nil
}
