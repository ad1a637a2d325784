// Package spec implements the path-pattern specification engine: named
// tag extraction patterns, compiled path-pattern templates with optional
// segments and enumerated placeholders, and the bidirectional operations
// of matching tags out of a path and building a path from tags.
//
// A Specification is constructed once from a configuration document and
// is immutable afterwards, so it may be shared freely across goroutines.
package spec

import (
	"slices"
	"strings"
)

// Document is the YAML form of a specification: tag definitions plus an
// ordered list of path-pattern template strings.
type Document struct {
	Name         string   `yaml:"name,omitempty"`
	Tags         []TagDef `yaml:"tags"`
	PathPatterns []string `yaml:"path_patterns"`
}

// Specification is the full set of registered tags plus the ordered list
// of compiled path-pattern templates describing a dataset layout.
type Specification struct {
	name      string
	registry  map[string]*Tag
	tagOrder  []string
	templates []*Template
}

// New compiles a specification document. Any tag or template that fails
// to compile makes the whole specification invalid; the returned error is
// a ConfigError naming the offender.
func New(doc Document) (*Specification, error) {
	s := &Specification{
		name:     doc.Name,
		registry: make(map[string]*Tag, len(doc.Tags)),
	}

	for _, def := range doc.Tags {
		tag, err := NewTag(def.Name, def.Pattern)
		if err != nil {
			return nil, err
		}
		if _, dup := s.registry[def.Name]; dup {
			return nil, &ConfigError{Source: def.Name, Reason: "tag defined more than once"}
		}
		s.registry[def.Name] = tag
		s.tagOrder = append(s.tagOrder, def.Name)
	}

	for _, raw := range doc.PathPatterns {
		t, err := CompileTemplate(raw, s.registry)
		if err != nil {
			return nil, err
		}
		s.templates = append(s.templates, t)
	}

	return s, nil
}

// Name returns the specification's name, usually derived from the
// config file it was loaded from.
func (s *Specification) Name() string {
	return s.name
}

// TagNames returns the names of all registered tags in definition order.
func (s *Specification) TagNames() []string {
	return slices.Clone(s.tagOrder)
}

// Templates returns the compiled templates in declared order.
func (s *Specification) Templates() []*Template {
	return slices.Clone(s.templates)
}

// Match tries each template in declared order against path and returns
// the tag values of the first one that matches in full. The second
// return is false when no template matches; that is an expected outcome,
// not an error.
func (s *Specification) Match(path string) (map[string]string, bool) {
	for _, t := range s.templates {
		if tags, ok := t.Match(path); ok {
			return tags, ok
		}
	}
	return nil, false
}

// ExtractTags applies every registered tag's own pattern to the path and
// collects the values that match. Unlike Match it ignores the templates,
// so it also works on paths that follow no declared shape.
func (s *Specification) ExtractTags(path string) map[string]string {
	tags := make(map[string]string)
	for _, name := range s.tagOrder {
		if v, ok := s.registry[name].Extract(path); ok {
			tags[name] = v
		}
	}
	return tags
}

// Build constructs a path from the tag mapping using the first template
// that fully resolves, in declared order. Tags with empty values are
// dropped before building, and an "extension" value is normalized to
// carry a leading dot. The second return is false when no template can
// be built; callers must treat that as an expected outcome.
func (s *Specification) Build(tags map[string]string) (string, bool) {
	return s.build(tags, false)
}

// BuildStrict behaves like Build but additionally skips any template
// that would leave one of the supplied tags unused.
func (s *Specification) BuildStrict(tags map[string]string) (string, bool) {
	return s.build(tags, true)
}

func (s *Specification) build(tags map[string]string, strict bool) (string, bool) {
	cleaned := make(map[string]string, len(tags))
	for k, v := range tags {
		if v == "" {
			continue
		}
		cleaned[k] = v
	}

	// Accept extension with or without the leading dot.
	if ext, ok := cleaned["extension"]; ok && !strings.HasPrefix(ext, ".") {
		cleaned["extension"] = "." + ext
	}

	for _, t := range s.templates {
		if strict && !coversAll(t, cleaned) {
			continue
		}
		if path, ok := t.Build(cleaned); ok {
			return path, true
		}
	}
	return "", false
}

// coversAll reports whether every supplied tag has a placeholder in t.
func coversAll(t *Template, tags map[string]string) bool {
	for name := range tags {
		if !slices.Contains(t.names, name) {
			return false
		}
	}
	return true
}

// Validate reports whether path conforms to the specification: the tags
// extracted from it rebuild to exactly the same path.
func (s *Specification) Validate(path string) bool {
	built, ok := s.Build(s.ExtractTags(path))
	return ok && built == path
}
