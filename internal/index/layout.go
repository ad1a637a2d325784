package index

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"

	"github.com/meera/datashelf/internal/spec"
)

// Logger is the subset of logging used while indexing a layout.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// Layout binds a root directory to the specification describing its
// accepted file shapes. Indexing walks the tree, matches each file's
// relative path against the specification's templates, and persists the
// resulting tag mappings to the store.
type Layout struct {
	root  string
	spec  *spec.Specification
	store *Store
	log   Logger
}

// IndexOptions control a layout indexing pass.
type IndexOptions struct {
	// InvalidToo also indexes files that match no template, using the
	// per-tag extraction patterns instead.
	InvalidToo bool

	// Skip holds regexes; a relative path matching any of them is not
	// indexed (directories are not descended into).
	Skip []string

	// Reset purges previously indexed files under the root first.
	Reset bool
}

// IndexReport summarizes an indexing pass.
type IndexReport struct {
	Indexed int
	Skipped int
}

// NewLayout returns a Layout over root using the given specification
// and store.
func NewLayout(root string, s *spec.Specification, store *Store, log Logger) *Layout {
	return &Layout{root: filepath.Clean(root), spec: s, store: store, log: log}
}

// Root returns the layout's root directory.
func (l *Layout) Root() string {
	return l.root
}

// Index walks the layout and records each file's tags in the store.
// Files whose relative path matches no template are counted as skipped
// unless InvalidToo is set. Walk and store errors abort the pass; a
// non-matching file never does.
func (l *Layout) Index(ctx context.Context, opts IndexOptions) (*IndexReport, error) {
	skips := make([]*regexp.Regexp, len(opts.Skip))
	for i, s := range opts.Skip {
		re, err := regexp.Compile(s)
		if err != nil {
			return nil, &spec.ConfigError{Source: s, Reason: "skip pattern does not compile", Err: err}
		}
		skips[i] = re
	}

	if opts.Reset {
		if err := l.store.Purge(ctx, l.root); err != nil {
			return nil, err
		}
	}

	report := &IndexReport{}
	err := filepath.WalkDir(l.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		rel, err := filepath.Rel(l.root, path)
		if err != nil || rel == "." {
			return err
		}
		rel = filepath.ToSlash(rel)

		for _, re := range skips {
			if re.MatchString(rel) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
		}
		if d.IsDir() {
			return nil
		}

		tags, ok := l.spec.Match(rel)
		if !ok {
			if !opts.InvalidToo {
				l.log.Debugf("%s matches no template, skipping", rel)
				report.Skipped++
				return nil
			}
			tags = l.spec.ExtractTags(rel)
		}

		if err := l.store.Put(ctx, l.root, path, tags); err != nil {
			return err
		}
		l.log.Debugf("indexed %s with %d tags", rel, len(tags))
		report.Indexed++
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("index %s: %w", l.root, err)
	}

	l.log.Infof("indexed %d files under %s (%d skipped)", report.Indexed, l.root, report.Skipped)
	return report, nil
}

// Query returns the layout's indexed files matching the tag filters.
func (l *Layout) Query(ctx context.Context, filters map[string][]string) ([]IndexedFile, error) {
	return l.store.Query(ctx, l.root, filters)
}
