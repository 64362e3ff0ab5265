// Package config defines the immutable run configuration and its sources.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// ResourceType is the CSD resource category a run updates.
type ResourceType string

// Resource type constants
const (
	Facility     ResourceType = "facility"
	Organization ResourceType = "organization"
	Provider     ResourceType = "provider"
	Service      ResourceType = "service"
)

// Defaults used when neither a config file nor a flag supplies a value.
const (
	DefaultBaseURL        = "http://localhost:8984/CSD"
	DefaultCodingSchema   = "urn:uuid:2cec73f2-396f-4772-93e3-b26909387e63"
	DefaultResourceType   = Organization
	DefaultCanonicalIDCol = 0
	DefaultLocalIDCol     = 1
)

// ResourceTypes lists every supported resource type in display order.
var ResourceTypes = []ResourceType{Facility, Organization, Provider, Service}

// ParseResourceType validates a resource type name.
func ParseResourceType(s string) (ResourceType, error) {
	for _, rt := range ResourceTypes {
		if string(rt) == s {
			return rt, nil
		}
	}
	return "", &UsageError{Msg: "Unknown resource type: " + s}
}

// UsageError reports a bad command line or config value. It is raised before any
// file I/O happens.
type UsageError struct {
	Msg string
}

func (e *UsageError) Error() string { return e.Msg }

// Config holds the immutable parameters of one update run.
// Column indices are zero-based.
type Config struct {
	BaseURL         string
	Directory       string
	ResourceType    ResourceType
	CanonicalIDCol  int
	LocalIDCol      int
	CodingSchema    string
	FirstLineIsData bool
	IgnoreProgress  bool
	Timeout         time.Duration // zero means no timeout
	Verbose         bool
}

// Default returns a Config populated with the built-in defaults.
// Directory has no default and must be supplied by the caller.
func Default() Config {
	return Config{
		BaseURL:        DefaultBaseURL,
		ResourceType:   DefaultResourceType,
		CanonicalIDCol: DefaultCanonicalIDCol,
		LocalIDCol:     DefaultLocalIDCol,
		CodingSchema:   DefaultCodingSchema,
	}
}

// MaxColumn returns the highest column index a row must contain.
func (c Config) MaxColumn() int {
	return max(c.CanonicalIDCol, c.LocalIDCol)
}

// Validate checks the config for values that would make a run meaningless.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Directory) == "" {
		return &UsageError{Msg: "a directory name is required"}
	}
	if strings.TrimSpace(c.BaseURL) == "" {
		return &UsageError{Msg: "a base URL is required"}
	}
	if _, err := ParseResourceType(string(c.ResourceType)); err != nil {
		return err
	}
	if c.CanonicalIDCol < 0 {
		return &UsageError{Msg: fmt.Sprintf("invalid PEPFAR ID column %d: columns start at 1", c.CanonicalIDCol+1)}
	}
	if c.LocalIDCol < 0 {
		return &UsageError{Msg: fmt.Sprintf("invalid local ID column %d: columns start at 1", c.LocalIDCol+1)}
	}
	if c.CodingSchema == "" {
		return &UsageError{Msg: "coding schema must not be empty"}
	}
	if rest, ok := strings.CutPrefix(c.CodingSchema, "urn:uuid:"); ok {
		if _, err := uuid.Parse(rest); err != nil {
			return &UsageError{Msg: fmt.Sprintf("invalid coding schema %q: %v", c.CodingSchema, err)}
		}
	}
	if c.Timeout < 0 {
		return &UsageError{Msg: "timeout must not be negative"}
	}
	return nil
}

// File is the on-disk shape of a defaults file. Unset keys leave the
// corresponding Config field untouched. Columns are 1-based, as on the
// command line.
type File struct {
	BaseURL         *string `yaml:"base_url"`
	ResourceType    *string `yaml:"resource_type"`
	PepfarIDColumn  *int    `yaml:"pepfar_id_column"`
	LocalIDColumn   *int    `yaml:"local_id_column"`
	CodingSchema    *string `yaml:"coding_schema"`
	FirstLineIsData *bool   `yaml:"first_line_is_data"`
	IgnoreProgress  *bool   `yaml:"ignore_progress"`
	Timeout         *string `yaml:"timeout"`
}

// LoadFile reads a YAML defaults file.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &f, nil
}

// Apply overlays the values set in f onto cfg and returns the result.
func (f *File) Apply(cfg Config) (Config, error) {
	if f == nil {
		return cfg, nil
	}
	if f.BaseURL != nil {
		cfg.BaseURL = *f.BaseURL
	}
	if f.ResourceType != nil {
		rt, err := ParseResourceType(*f.ResourceType)
		if err != nil {
			return cfg, err
		}
		cfg.ResourceType = rt
	}
	if f.PepfarIDColumn != nil {
		cfg.CanonicalIDCol = *f.PepfarIDColumn - 1
	}
	if f.LocalIDColumn != nil {
		cfg.LocalIDCol = *f.LocalIDColumn - 1
	}
	if f.CodingSchema != nil {
		cfg.CodingSchema = *f.CodingSchema
	}
	if f.FirstLineIsData != nil {
		cfg.FirstLineIsData = *f.FirstLineIsData
	}
	if f.IgnoreProgress != nil {
		cfg.IgnoreProgress = *f.IgnoreProgress
	}
	if f.Timeout != nil {
		d, err := time.ParseDuration(*f.Timeout)
		if err != nil {
			return cfg, &UsageError{Msg: fmt.Sprintf("invalid timeout %q: %v", *f.Timeout, err)}
		}
		cfg.Timeout = d
	}
	return cfg, nil
}
