package spec

import (
	"regexp"
	"strings"
)

// TagDef is the YAML form of a tag definition inside a specification
// document: a name and a regex pattern with exactly one capturing group.
type TagDef struct {
	Name    string `yaml:"name"`
	Pattern string `yaml:"pattern"`
}

// Tag is a named, compiled extraction pattern. The pattern must contain
// exactly one capturing group; the group's text becomes the tag value.
// Tags are immutable after construction.
type Tag struct {
	name    string
	pattern *regexp.Regexp
	capture string
}

// NewTag compiles a tag definition. It returns a ConfigError if the
// pattern does not compile or does not contain exactly one capturing group.
func NewTag(name, pattern string) (*Tag, error) {
	if name == "" {
		return nil, &ConfigError{Source: pattern, Reason: "tag name must not be empty"}
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, &ConfigError{Source: name, Reason: "tag pattern does not compile", Err: err}
	}

	if re.NumSubexp() != 1 {
		return nil, &ConfigError{Source: name, Reason: "tag pattern must contain exactly one capturing group"}
	}

	body, ok := captureBody(pattern)
	if !ok {
		// NumSubexp says there is one; a scan failure means the group is
		// hidden behind syntax the scanner does not follow, so fall back
		// to a generic capture when embedding into templates.
		body = ""
	}

	return &Tag{name: name, pattern: re, capture: body}, nil
}

// Name returns the tag's name.
func (t *Tag) Name() string {
	return t.name
}

// Extract applies the tag's pattern to path and returns the first
// captured value. The second return is false when the pattern does not
// match anywhere in the path.
func (t *Tag) Extract(path string) (string, bool) {
	m := t.pattern.FindStringSubmatch(path)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// captureBody returns the text inside the first capturing group of a
// regex pattern, e.g. "day-([0-9]+)" yields "[0-9]+". Non-capturing
// groups and character classes are skipped.
func captureBody(pattern string) (string, bool) {
	depth := 0
	start := -1

	for i := 0; i < len(pattern); i++ {
		switch pattern[i] {
		case '\\':
			i++
		case '[':
			// Skip character class so a literal '(' inside does not count.
			for i++; i < len(pattern) && pattern[i] != ']'; i++ {
				if pattern[i] == '\\' {
					i++
				}
			}
		case '(':
			if start >= 0 {
				depth++
				continue
			}
			if !strings.HasPrefix(pattern[i:], "(?") {
				start = i + 1
				depth = 1
			}
		case ')':
			if start < 0 {
				continue
			}
			depth--
			if depth == 0 {
				return pattern[start:i], true
			}
		}
	}

	return "", false
}
