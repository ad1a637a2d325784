// Package config loads datashelf configuration: the tool's own settings
// plus the YAML specification and organization-rules documents. Files
// may hold multiple documents separated by "---"; each document stands
// on its own.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/meera/datashelf/internal/organize"
	"github.com/meera/datashelf/internal/spec"
)

// Config holds tool-level settings.
type Config struct {
	// LogLevel sets logging verbosity (trace, debug, info, warn, error).
	LogLevel string `yaml:"log_level"`

	// IndexPath is the path to the index database.
	IndexPath string `yaml:"index_path"`
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:  "info",
		IndexPath: filepath.Join(".datashelf", "index.sqlite"),
	}
}

// LoadConfig reads tool settings from path. A missing file yields the
// defaults; a malformed file is an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadSpecifications compiles every specification document in a file.
// A document without a name takes the file's base name (first document)
// or a numbered variant of it. Any invalid document fails the load; a
// broken specification must surface, not be skipped quietly.
func LoadSpecifications(path string) ([]*spec.Specification, error) {
	var docs []spec.Document
	if err := decodeAll(path, &docs); err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, &spec.ConfigError{Source: path, Reason: "no specification documents"}
	}

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	specs := make([]*spec.Specification, 0, len(docs))
	for i, doc := range docs {
		if doc.Name == "" {
			doc.Name = stem
			if i > 0 {
				doc.Name = fmt.Sprintf("%s-%d", stem, i+1)
			}
		}
		s, err := spec.New(doc)
		if err != nil {
			return nil, fmt.Errorf("specification %s: %w", path, err)
		}
		specs = append(specs, s)
	}
	return specs, nil
}

// LoadSpecification compiles the first specification document in a file.
func LoadSpecification(path string) (*spec.Specification, error) {
	specs, err := LoadSpecifications(path)
	if err != nil {
		return nil, err
	}
	return specs[0], nil
}

// LoadRules reads every organization-rules document in a file and
// validates each. Paths inside the documents (source, destination, map,
// additions) are resolved relative to the file's directory.
func LoadRules(path string) ([]organize.Rules, error) {
	var docs []organize.Rules
	if err := decodeAll(path, &docs); err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, &spec.ConfigError{Source: path, Reason: "no rules documents"}
	}

	base := filepath.Dir(path)
	for i := range docs {
		docs[i].Source = resolve(base, docs[i].Source)
		docs[i].Destination = resolve(base, docs[i].Destination)
		docs[i].Map = resolve(base, docs[i].Map)
		for j := range docs[i].Add {
			docs[i].Add[j].Path = resolve(base, docs[i].Add[j].Path)
		}
		if err := docs[i].Validate(); err != nil {
			return nil, fmt.Errorf("rules %s: %w", path, err)
		}
	}
	return docs, nil
}

// decodeAll decodes every YAML document in the file at path into out.
// Unknown keys are rejected so a misspelled rule field fails at load
// instead of silently doing nothing.
func decodeAll[T any](path string, out *[]T) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)

	for {
		var doc T
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		*out = append(*out, doc)
	}
}

// resolve joins a relative document path onto the config file's
// directory, leaving absolute paths and empty values alone.
func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}
