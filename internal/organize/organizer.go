// Package organize implements dataset reorganization: an ordered tag
// inference pipeline derives tag values from raw file paths, and the
// specification's path builder turns them into destination paths. The
// batch driver walks a source tree, relocating one file at a time;
// per-file failures are logged and skipped, never fatal to the batch.
package organize

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"

	"github.com/meera/datashelf/internal/spec"
)

// Logger is the subset of logging used by the organizer.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// Addition is an extra file dropped next to every organized file, either
// inside it when the destination is a directory ("content") or as a
// sibling ("fellow").
type Addition struct {
	Path     string `yaml:"path"`
	Position string `yaml:"position"`
}

// RenameRule retags fellows whose path matches Target with a suffix tag
// before their destination path is built.
type RenameRule struct {
	Target string `yaml:"target"`
	Suffix string `yaml:"suffix"`
}

// Rules is one organization-rules document: where to read, where to
// write, which files are candidates, and how to derive their tags.
type Rules struct {
	Source      string       `yaml:"source"`
	Destination string       `yaml:"destination"`
	Pattern     string       `yaml:"pattern"`
	Overwrite   bool         `yaml:"overwrite"`
	Add         []Addition   `yaml:"add,omitempty"`
	CopyFellows bool         `yaml:"copy_fellows,omitempty"`
	RenameRules []RenameRule `yaml:"rename_rules,omitempty"`
	Skip        []string     `yaml:"skip,omitempty"`
	TagRules    []TagRule    `yaml:"tag_rules"`
	Map         string       `yaml:"map,omitempty"`
}

// Validate checks the document for the mandatory keys and well-formed
// addition positions.
func (r *Rules) Validate() error {
	switch {
	case r.Source == "":
		return &spec.ConfigError{Source: "rules", Reason: "missing source"}
	case r.Destination == "":
		return &spec.ConfigError{Source: "rules", Reason: "missing destination"}
	case r.Pattern == "":
		return &spec.ConfigError{Source: "rules", Reason: "missing pattern"}
	case len(r.TagRules) == 0:
		return &spec.ConfigError{Source: "rules", Reason: "missing tag_rules"}
	}

	for _, a := range r.Add {
		if a.Position != "content" && a.Position != "fellow" {
			return &spec.ConfigError{
				Source: a.Path,
				Reason: fmt.Sprintf("addition position must be content or fellow, got %q", a.Position),
			}
		}
	}

	return nil
}

// Failure records one file that could not be organized and why.
type Failure struct {
	File string
	Err  error
}

// Report summarizes an organization run.
type Report struct {
	RunID     string
	Matched   int
	Organized int
	Failures  []Failure
}

// Organizer runs organization batches against a single specification.
// It is a pure driver around the inference pipeline and path builder;
// all state lives in the per-run Report.
type Organizer struct {
	spec *spec.Specification
	log  Logger
}

// New returns an Organizer bound to a specification and a logger.
func New(s *spec.Specification, log Logger) *Organizer {
	return &Organizer{spec: s, log: log}
}

// Run organizes every candidate under rules.Source into
// rules.Destination. Config problems (bad rules, bad lookup table) abort
// the run with an error; per-file problems are recorded in the report
// and logged, and the batch carries on.
func (o *Organizer) Run(rules Rules) (*Report, error) {
	if err := rules.Validate(); err != nil {
		return nil, err
	}

	report := &Report{RunID: uuid.NewString()}
	o.log.Infof("run %s: organizing %s -> %s", report.RunID, rules.Source, rules.Destination)

	if rules.Overwrite {
		o.log.Warnf("overwrite set: existing files may be overwritten")
	}

	var table *LookupTable
	if rules.Map != "" {
		t, err := LoadLookupTable(rules.Map)
		if err != nil {
			return nil, err
		}
		table = t
	}

	compiled, err := CompileRules(rules.TagRules, table)
	if err != nil {
		return nil, err
	}

	renames := make([]*regexp.Regexp, len(rules.RenameRules))
	for i, rr := range rules.RenameRules {
		re, err := regexp.Compile(rr.Target)
		if err != nil {
			return nil, &spec.ConfigError{Source: rr.Target, Reason: "rename target does not compile", Err: err}
		}
		renames[i] = re
	}

	candidates, err := o.findCandidates(rules)
	if err != nil {
		return nil, err
	}

	for _, file := range candidates {
		report.Matched++
		if err := o.organizeOne(file, rules, compiled, renames); err != nil {
			o.log.Errorf("skipping %s: %v", file, err)
			report.Failures = append(report.Failures, Failure{File: file, Err: err})
			continue
		}
		report.Organized++
	}

	o.log.Infof("run %s: organized %d of %d matched files", report.RunID, report.Organized, report.Matched)
	return report, nil
}

// findCandidates walks the source tree and collects entries matching the
// candidate glob. A pattern without a path separator is matched against
// entry names, a pattern with one against source-relative paths; '**'
// spans directories. A matching directory is taken whole and not
// descended into. Entries whose relative path contains a skip literal
// are excluded.
func (o *Organizer) findCandidates(rules Rules) ([]string, error) {
	if _, err := doublestar.Match(rules.Pattern, ""); err != nil {
		return nil, &spec.ConfigError{Source: rules.Pattern, Reason: "bad candidate glob", Err: err}
	}

	var candidates []string
	err := filepath.WalkDir(rules.Source, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(rules.Source, path)
		if err != nil || rel == "." {
			return err
		}

		for _, s := range rules.Skip {
			if strings.Contains(rel, s) {
				o.log.Debugf("skip list excludes %s", rel)
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
		}

		subject := filepath.ToSlash(rel)
		if !strings.ContainsRune(rules.Pattern, '/') {
			subject = d.Name()
		}
		if ok, _ := doublestar.Match(rules.Pattern, subject); !ok {
			return nil
		}

		o.log.Infof("found match with %s", path)
		candidates = append(candidates, path)
		if d.IsDir() {
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", rules.Source, err)
	}

	return candidates, nil
}

// organizeOne relocates a single candidate: infer tags, build the
// destination path, copy the file, then handle additions and fellows.
func (o *Organizer) organizeOne(file string, rules Rules, compiled []CompiledRule, renames []*regexp.Regexp) error {
	tags, unresolved := InferTags(file, compiled)
	for _, name := range unresolved {
		o.log.Warnf("value for %q tag not found in %s", name, file)
	}
	for name, val := range tags {
		o.log.Debugf("file %s marked with %s:%s", file, name, val)
	}

	rel, ok := o.spec.Build(tags)
	if !ok {
		if len(unresolved) > 0 {
			return &spec.UnresolvedTagError{Tag: unresolved[0], File: file}
		}
		return fmt.Errorf("no valid destination path for tags %v", tags)
	}

	dst := filepath.Join(rules.Destination, filepath.FromSlash(rel))
	o.log.Infof("target destination path is %s", dst)
	if err := copyPath(file, dst, rules.Overwrite, o.log); err != nil {
		return err
	}

	for _, a := range rules.Add {
		var addDst string
		if a.Position == "content" {
			addDst = filepath.Join(dst, filepath.Base(a.Path))
		} else {
			addDst = filepath.Join(filepath.Dir(dst), filepath.Base(a.Path))
		}
		if err := copyPath(a.Path, addDst, rules.Overwrite, o.log); err != nil {
			return fmt.Errorf("addition %s: %w", a.Path, err)
		}
		o.log.Infof("added %s at %s", a.Path, addDst)
	}

	if rules.CopyFellows {
		o.copyFellows(file, tags, rules, renames)
	}

	return nil
}

// copyFellows relocates the sibling files accompanying an organized
// file, retagging each with its own extension and any matching rename
// suffix. A fellow that yields no destination path is logged and
// skipped; it does not fail the file that brought it along.
func (o *Organizer) copyFellows(file string, tags map[string]string, rules Rules, renames []*regexp.Regexp) {
	entries, err := os.ReadDir(filepath.Dir(file))
	if err != nil {
		o.log.Errorf("cannot scan for fellows of %s: %v", file, err)
		return
	}

	for _, e := range entries {
		if e.IsDir() || e.Name() == filepath.Base(file) {
			continue
		}
		fellow := filepath.Join(filepath.Dir(file), e.Name())
		o.log.Infof("copying fellow %s", fellow)

		ftags := make(map[string]string, len(tags)+2)
		for k, v := range tags {
			ftags[k] = v
		}
		ftags["extension"] = filepath.Ext(fellow)
		for i, re := range renames {
			if re.MatchString(fellow) {
				ftags["suffix"] = rules.RenameRules[i].Suffix
				o.log.Debugf("fellow marked with suffix:%s", rules.RenameRules[i].Suffix)
			}
		}

		rel, ok := o.spec.Build(ftags)
		if !ok {
			o.log.Errorf("no valid destination path for fellow %s", fellow)
			continue
		}
		dst := filepath.Join(rules.Destination, filepath.FromSlash(rel))
		if err := copyPath(fellow, dst, rules.Overwrite, o.log); err != nil {
			o.log.Errorf("copy fellow %s: %v", fellow, err)
		}
	}
}

// copyPath copies a file or directory tree to dst, creating parent
// directories. An existing destination is left alone unless overwrite
// is set, in which case it is removed first.
func copyPath(src, dst string, overwrite bool, log Logger) error {
	if _, err := os.Lstat(dst); err == nil {
		if !overwrite {
			log.Errorf("skipping copy of %s: %s exists", src, dst)
			return nil
		}
		log.Warnf("overwriting %s", dst)
		if err := os.RemoveAll(dst); err != nil {
			return fmt.Errorf("remove %s: %w", dst, err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(dst), err)
	}

	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat %s: %w", src, err)
	}
	if info.IsDir() {
		if err := os.CopyFS(dst, os.DirFS(src)); err != nil {
			return fmt.Errorf("copy %s to %s: %w", src, dst, err)
		}
		return nil
	}
	return copyFile(src, dst, info.Mode())
}

func copyFile(src, dst string, mode fs.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode.Perm())
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s to %s: %w", src, dst, err)
	}
	return out.Close()
}
