package spec

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// A template is compiled into a tree of segments. Each segment is either
// literal text, an optional group of nested segments, or a tag placeholder.
type segment interface {
	isSegment()
}

type literal string

type optional []segment

type placeholder struct {
	name       string
	values     []string // enumeration, nil when unconstrained
	def        string
	hasDefault bool
}

func (literal) isSegment()     {}
func (optional) isSegment()    {}
func (placeholder) isSegment() {}

var placeholderName = regexp.MustCompile(`^\w+$`)

// Template is one compiled path-pattern: the segment tree used for
// building plus an anchored regular expression used for matching.
// Templates are immutable once compiled.
type Template struct {
	raw      string
	segments []segment
	re       *regexp.Regexp
	names    []string // placeholder names in order of appearance
}

// CompileTemplate parses a path-pattern string into a Template. The
// registry supplies per-tag capture patterns that sharpen the generated
// match expression; placeholders naming unregistered tags fall back to a
// generic single-path-component capture. Malformed bracket nesting, an
// empty or non-word placeholder name, and a default value outside the
// placeholder's enumeration are all ConfigErrors.
func CompileTemplate(raw string, registry map[string]*Tag) (*Template, error) {
	segs, rest, err := parseSegments(raw, raw, false)
	if err != nil {
		return nil, err
	}
	if rest != "" {
		return nil, &ConfigError{Source: raw, Reason: "unbalanced ']' in template"}
	}

	t := &Template{raw: raw, segments: segs}

	var sb strings.Builder
	sb.WriteString(`\A`)
	if err := writeRegexp(&sb, segs, registry, t); err != nil {
		return nil, err
	}
	sb.WriteString(`\z`)

	re, err := regexp.Compile(sb.String())
	if err != nil {
		return nil, &ConfigError{Source: raw, Reason: "generated match expression does not compile", Err: err}
	}
	t.re = re

	return t, nil
}

// String returns the original template string.
func (t *Template) String() string {
	return t.raw
}

// TagNames returns the names of all placeholders in the template, in
// order of appearance.
func (t *Template) TagNames() []string {
	return slices.Clone(t.names)
}

// parseSegments scans src left to right until it hits an unmatched ']'
// (end of an optional group) or the end of input. It returns the parsed
// segments and the unconsumed remainder starting at the ']'.
func parseSegments(full, src string, inOptional bool) ([]segment, string, error) {
	var segs []segment
	var lit strings.Builder

	flush := func() {
		if lit.Len() > 0 {
			segs = append(segs, literal(lit.String()))
			lit.Reset()
		}
	}

	for len(src) > 0 {
		switch src[0] {
		case '[':
			flush()
			inner, rest, err := parseSegments(full, src[1:], true)
			if err != nil {
				return nil, "", err
			}
			if !strings.HasPrefix(rest, "]") {
				return nil, "", &ConfigError{Source: full, Reason: "unbalanced '[' in template"}
			}
			segs = append(segs, optional(inner))
			src = rest[1:]

		case ']':
			if !inOptional {
				return nil, "", &ConfigError{Source: full, Reason: "unbalanced ']' in template"}
			}
			flush()
			return segs, src, nil

		case '{':
			flush()
			end := strings.IndexByte(src, '}')
			if end < 0 {
				return nil, "", &ConfigError{Source: full, Reason: "unbalanced '{' in template"}
			}
			ph, err := parsePlaceholder(full, src[1:end])
			if err != nil {
				return nil, "", err
			}
			segs = append(segs, ph)
			src = src[end+1:]

		case '}':
			return nil, "", &ConfigError{Source: full, Reason: "unbalanced '}' in template"}

		default:
			lit.WriteByte(src[0])
			src = src[1:]
		}
	}

	if inOptional {
		return nil, "", &ConfigError{Source: full, Reason: "unbalanced '[' in template"}
	}
	flush()
	return segs, "", nil
}

// parsePlaceholder parses the body between '{' and '}':
// name, optional <v1|v2|...> enumeration, optional |default.
func parsePlaceholder(full, body string) (placeholder, error) {
	var ph placeholder

	if i := strings.IndexByte(body, '<'); i >= 0 {
		j := strings.IndexByte(body, '>')
		if j < i {
			return ph, &ConfigError{Source: full, Reason: "unbalanced '<' in placeholder"}
		}
		ph.name = body[:i]
		ph.values = strings.Split(body[i+1:j], "|")
		body = body[j+1:]
	} else if i := strings.IndexByte(body, '|'); i >= 0 {
		ph.name = body[:i]
		body = body[i:]
	} else {
		ph.name = body
		body = ""
	}

	if strings.HasPrefix(body, "|") {
		ph.def = body[1:]
		ph.hasDefault = true
	} else if body != "" {
		return ph, &ConfigError{Source: full, Reason: fmt.Sprintf("malformed placeholder near %q", body)}
	}

	if !placeholderName.MatchString(ph.name) {
		return ph, &ConfigError{Source: full, Reason: fmt.Sprintf("invalid placeholder name %q", ph.name)}
	}

	for _, v := range ph.values {
		if v == "" {
			return ph, &ConfigError{Source: full, Reason: fmt.Sprintf("empty enumeration value for %q", ph.name)}
		}
	}

	// An enumeration is closed; a default outside it could never be
	// matched back, so the pair is rejected outright.
	if ph.hasDefault && ph.values != nil && !slices.Contains(ph.values, ph.def) {
		return ph, &ConfigError{
			Source: full,
			Reason: fmt.Sprintf("default %q for %q lies outside its enumeration", ph.def, ph.name),
		}
	}

	return ph, nil
}

// writeRegexp assembles the anchored match expression for a segment list.
// Optional groups become non-capturing optional subexpressions, so a path
// missing the group still matches and its inner captures stay empty.
func writeRegexp(sb *strings.Builder, segs []segment, registry map[string]*Tag, t *Template) error {
	for _, seg := range segs {
		switch s := seg.(type) {
		case literal:
			sb.WriteString(regexp.QuoteMeta(string(s)))

		case optional:
			sb.WriteString("(?:")
			if err := writeRegexp(sb, s, registry, t); err != nil {
				return err
			}
			sb.WriteString(")?")

		case placeholder:
			if slices.Contains(t.names, s.name) {
				return &ConfigError{
					Source: t.raw,
					Reason: fmt.Sprintf("tag %q appears more than once in template", s.name),
				}
			}
			t.names = append(t.names, s.name)

			fmt.Fprintf(sb, "(?P<%s>", s.name)
			switch {
			case s.values != nil:
				for i, v := range s.values {
					if i > 0 {
						sb.WriteByte('|')
					}
					sb.WriteString(regexp.QuoteMeta(v))
				}
			case registry[s.name] != nil && registry[s.name].capture != "":
				sb.WriteString(registry[s.name].capture)
			default:
				sb.WriteString(`[^/]+`)
			}
			sb.WriteByte(')')
		}
	}
	return nil
}

// Match reports whether path matches the template in full, and if so
// returns the tag values captured by its placeholders. A placeholder
// inside an omitted optional group contributes no entry.
func (t *Template) Match(path string) (map[string]string, bool) {
	m := t.re.FindStringSubmatch(path)
	if m == nil {
		return nil, false
	}

	tags := make(map[string]string)
	for i, name := range t.re.SubexpNames() {
		if i == 0 || name == "" || m[i] == "" {
			continue
		}
		tags[name] = m[i]
	}
	return tags, true
}

// Build result states for a segment walk.
type buildStatus int

const (
	buildOK      buildStatus = iota
	buildMissing             // a mandatory placeholder had no value
	buildInvalid             // a supplied value violated its enumeration
)

// Build constructs a concrete path from the tag mapping. The second
// return is false when the template cannot be fully resolved: a top-level
// mandatory placeholder without a value, or a supplied value outside a
// closed enumeration. Optional groups with unresolvable mandatory
// placeholders are omitted rather than failing the build.
func (t *Template) Build(tags map[string]string) (string, bool) {
	var sb strings.Builder
	if st := buildSegments(&sb, t.segments, tags); st != buildOK {
		return "", false
	}
	return sb.String(), true
}

func buildSegments(sb *strings.Builder, segs []segment, tags map[string]string) buildStatus {
	for _, seg := range segs {
		switch s := seg.(type) {
		case literal:
			sb.WriteString(string(s))

		case optional:
			var inner strings.Builder
			switch buildSegments(&inner, s, tags) {
			case buildOK:
				sb.WriteString(inner.String())
			case buildMissing:
				// Omit the whole group instead of failing the build.
			case buildInvalid:
				return buildInvalid
			}

		case placeholder:
			v, supplied := tags[s.name]
			switch {
			case supplied && s.values != nil && !slices.Contains(s.values, v):
				return buildInvalid
			case supplied:
				sb.WriteString(v)
			case s.hasDefault:
				sb.WriteString(s.def)
			default:
				return buildMissing
			}
		}
	}
	return buildOK
}
