package organize

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/meera/datashelf/internal/spec"
)

// TagRule is one declarative recipe for deriving a tag value from a raw
// file path during reorganization. Exactly one of Value (fixed) or
// Pattern (captured) supplies the base value; the remaining fields are
// repair and transform stages applied in pipeline order.
type TagRule struct {
	// Name is the tag the rule produces.
	Name string `yaml:"name"`

	// Value fixes the tag to a constant, skipping capture entirely.
	Value string `yaml:"value,omitempty"`

	// Pattern captures the base value via its single capturing group.
	// When the pattern matches several times, the last match wins.
	Pattern string `yaml:"pattern,omitempty"`

	// Prepend is glued in front of every captured value.
	Prepend string `yaml:"prepend,omitempty"`

	// Default fills in when neither Value nor Pattern produced anything.
	Default string `yaml:"default,omitempty"`

	// Case folds the value; "lower" or "upper".
	Case string `yaml:"case,omitempty"`

	// Length is the expected value length; a mismatch flags the value
	// for repair by IffyPrefix, and discards it if repair fails.
	Length int `yaml:"length,omitempty"`

	// IffyPrefix is prepended when the captured value fails the length
	// check; the check is then retried once.
	IffyPrefix string `yaml:"iffy_prefix,omitempty"`

	// Pad left- or right-pads the value to a target length.
	Pad *PadRule `yaml:"pad,omitempty"`

	// Replace maps the value through the run's lookup table.
	Replace *ReplaceRule `yaml:"replace,omitempty"`
}

// PadRule pads a value to Length with Char. Direction is "left"
// (default) or "right".
type PadRule struct {
	Length    int    `yaml:"length"`
	Char      string `yaml:"char"`
	Direction string `yaml:"direction,omitempty"`
}

// ReplaceRule substitutes the value through the lookup table loaded from
// the rules document's map file: the current value is looked up in the
// From column and replaced by the To column. When Lenient is set a
// missing key keeps the current value instead of discarding it.
type ReplaceRule struct {
	From    string `yaml:"from"`
	To      string `yaml:"to"`
	Lenient bool   `yaml:"lenient,omitempty"`
}

// CompiledRule is a TagRule with its pattern compiled and its lookup
// mapping materialized, ready for per-file application.
type CompiledRule struct {
	TagRule
	re      *regexp.Regexp
	mapping map[string]string
}

// CompileRules validates an ordered rule list and resolves Replace rules
// against the lookup table. Violations are spec.ConfigErrors: a rule
// carrying both value and pattern, a pattern without exactly one
// capturing group, an unknown case transform, or a replace rule without
// a table to draw from.
func CompileRules(rules []TagRule, table *LookupTable) ([]CompiledRule, error) {
	compiled := make([]CompiledRule, 0, len(rules))

	for _, r := range rules {
		if r.Name == "" {
			return nil, &spec.ConfigError{Source: "tag_rules", Reason: "rule without a name"}
		}
		if r.Value != "" && r.Pattern != "" {
			return nil, &spec.ConfigError{Source: r.Name, Reason: "rule sets both value and pattern"}
		}
		if r.Case != "" && r.Case != "lower" && r.Case != "upper" {
			return nil, &spec.ConfigError{Source: r.Name, Reason: fmt.Sprintf("unknown case transform %q", r.Case)}
		}

		cr := CompiledRule{TagRule: r}

		if r.Pattern != "" {
			re, err := regexp.Compile(r.Pattern)
			if err != nil {
				return nil, &spec.ConfigError{Source: r.Name, Reason: "rule pattern does not compile", Err: err}
			}
			if re.NumSubexp() != 1 {
				return nil, &spec.ConfigError{Source: r.Name, Reason: "rule pattern must contain exactly one capturing group"}
			}
			cr.re = re
		}

		if r.Replace != nil {
			if table == nil {
				return nil, &spec.ConfigError{Source: r.Name, Reason: "replace rule given but no map file configured"}
			}
			m, err := table.Mapping(r.Replace.From, r.Replace.To)
			if err != nil {
				return nil, err
			}
			cr.mapping = m
		}

		compiled = append(compiled, cr)
	}

	return compiled, nil
}

// InferTags runs the rule pipeline against a source path and returns the
// derived tag mapping plus the names of rules whose value was discarded
// along the way. Discarded tags contribute no entry; whether their
// absence is fatal is decided later by the path builder, which knows
// which placeholders are mandatory.
func InferTags(path string, rules []CompiledRule) (map[string]string, []string) {
	tags := make(map[string]string, len(rules))
	var unresolved []string

	for _, r := range rules {
		if v, ok := r.apply(path); ok {
			tags[r.Name] = v
		} else {
			unresolved = append(unresolved, r.Name)
		}
	}

	return tags, unresolved
}

// apply pushes the source path through the rule's stages in order:
// capture, default, case, length check, iffy-prefix/pad, lookup replace.
// Each stage feeds the next; once a value is discarded only the default
// stage could have revived it, and that chance is already past.
func (r *CompiledRule) apply(path string) (string, bool) {
	val := ""
	resolved := false

	// Capture.
	switch {
	case r.Value != "":
		val, resolved = r.Value, true
	case r.re != nil:
		if m := r.re.FindAllStringSubmatch(path, -1); m != nil {
			val, resolved = m[len(m)-1][1], true
			if r.Prepend != "" {
				val = r.Prepend + val
			}
		}
	}

	// Default.
	if !resolved {
		if r.Default == "" {
			return "", false
		}
		val = r.Default
	}

	// Case transform.
	switch r.Case {
	case "lower":
		val = strings.ToLower(val)
	case "upper":
		val = strings.ToUpper(val)
	}

	// Length check, with one shot at repair by prefixing.
	if r.Length > 0 && len(val) != r.Length {
		if r.IffyPrefix != "" {
			val = r.IffyPrefix + val
		}
		if r.Pad == nil && len(val) != r.Length {
			return "", false
		}
	}

	// Pad.
	if r.Pad != nil && len(val) < r.Pad.Length {
		ch := r.Pad.Char
		if ch == "" {
			ch = "0"
		}
		fill := strings.Repeat(ch, r.Pad.Length-len(val))
		if r.Pad.Direction == "right" {
			val += fill
		} else {
			val = fill + val
		}
	}

	// Lookup replace.
	if r.mapping != nil {
		mapped, ok := r.mapping[val]
		switch {
		case ok:
			val = mapped
		case r.Replace.Lenient:
			// Keep the current value.
		default:
			return "", false
		}
	}

	return val, true
}
