package spec

import "fmt"

// ConfigError reports a structural problem in a specification document:
// a malformed template, a tag pattern without exactly one capturing group,
// or an inconsistent enumeration/default pair. Config errors surface at
// load time and indicate a broken specification, not bad input data.
type ConfigError struct {
	// Source identifies the offending tag name or template string.
	Source string

	// Reason describes what is wrong with it.
	Reason string

	// Err holds the underlying error, if any.
	Err error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("specification config %q: %s: %v", e.Source, e.Reason, e.Err)
	}
	return fmt.Sprintf("specification config %q: %s", e.Source, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// UnresolvedTagError reports that a mandatory tag could not be resolved
// for a single file during inference or path building. It is recovered at
// per-file granularity: the file is skipped and the batch continues.
type UnresolvedTagError struct {
	// Tag is the tag name that could not be resolved.
	Tag string

	// File is the source file being processed when resolution failed.
	File string
}

func (e *UnresolvedTagError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("tag %q could not be resolved", e.Tag)
	}
	return fmt.Sprintf("tag %q could not be resolved for %s", e.Tag, e.File)
}
