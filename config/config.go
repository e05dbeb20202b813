// Package config provides configuration loading and validation for cimshacl.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the complete cimshacl configuration
type Config struct {
	Instance  InstanceConfig  `yaml:"instance"`
	Datatypes DatatypesConfig `yaml:"datatypes"`
	Imports   ImportsConfig   `yaml:"imports"`
	Oracle    OracleConfig    `yaml:"oracle"`
	Output    OutputConfig    `yaml:"output"`
	Log       LogConfig       `yaml:"log"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Watch     WatchConfig     `yaml:"watch"`
}

// InstanceConfig configures ingestion of instance data archives
type InstanceConfig struct {
	// BaseIRI resolves rdf:ID and relative references in instance files
	BaseIRI string `yaml:"baseIRI" default:"http://iec.ch/TC57/2013/CIM-schema-cim16#" validate:"required"`
	// Workers is the number of leaves parsed concurrently (0 = one per CPU)
	Workers int `yaml:"workers" default:"0" validate:"gte=0,lte=256"`
	// QueueSize bounds how many expanded leaves wait for a worker
	QueueSize int `yaml:"queueSize" default:"4" validate:"gte=1"`
	// ArchiveExtensions lists container extensions that are expanded
	ArchiveExtensions []string `yaml:"archiveExtensions" default:"[\".zip\",\".cimx\"]" validate:"min=1,dive,startswith=."`
	// MaxArchiveDepth caps archive nesting
	MaxArchiveDepth int `yaml:"maxArchiveDepth" default:"8" validate:"gte=1,lte=64"`
	// MaxEntryBytes caps the inflated size of a single archive member
	MaxEntryBytes int64 `yaml:"maxEntryBytes" default:"1073741824" validate:"gt=0"`
	// MaxTotalBytes caps the inflated size of one top-level input
	MaxTotalBytes int64 `yaml:"maxTotalBytes" default:"8589934592" validate:"gt=0,gtefield=MaxEntryBytes"`
	// MaxTriplesPerLeaf aborts a leaf that yields more triples (0 = unlimited)
	MaxTriplesPerLeaf int64 `yaml:"maxTriplesPerLeaf" default:"0" validate:"gte=0"`
}

// DatatypesConfig configures the datatype table source
type DatatypesConfig struct {
	// Sheet is the spreadsheet tab holding the mapping
	Sheet string `yaml:"sheet" default:"RDFS Datatypes" validate:"required"`
	// PropertyColumn names the predicate IRI column
	PropertyColumn string `yaml:"propertyColumn" default:"Property" validate:"required"`
	// DatatypeColumn names the datatype IRI column
	DatatypeColumn string `yaml:"datatypeColumn" default:"Datatype" validate:"required"`
}

// ImportsConfig configures owl:imports resolution
type ImportsConfig struct {
	// Timeout bounds each remote fetch
	Timeout time.Duration `yaml:"timeout" default:"30s" validate:"gt=0"`
	// Retries is the number of retries after a failed remote fetch
	Retries int `yaml:"retries" default:"2" validate:"gte=0,lte=10"`
	// RatePerSecond limits remote fetches
	RatePerSecond float64 `yaml:"ratePerSecond" default:"10" validate:"gt=0"`
	// Burst is the rate limiter burst
	Burst int `yaml:"burst" default:"4" validate:"gte=1"`
	// Concurrency bounds documents resolved in parallel
	Concurrency int `yaml:"concurrency" default:"4" validate:"gte=1,lte=64"`
	// DefaultFormat is used when neither extension nor content type identify a document
	DefaultFormat string `yaml:"defaultFormat" default:"turtle" validate:"oneof=turtle rdfxml ntriples jsonld"`
	// Ignore lists additional import targets that are never fetched
	Ignore []string `yaml:"ignore"`
	// UserAgent is sent with remote fetches
	UserAgent string `yaml:"userAgent" default:"cimshacl"`
	// CacheEntries bounds the remote document cache (0 disables it)
	CacheEntries int `yaml:"cacheEntries" default:"256" validate:"gte=0"`
}

// OracleConfig configures the external validation engine
type OracleConfig struct {
	// Command is the validator executable
	Command string `yaml:"command" default:"pyshacl" validate:"required"`
	// Args are extra arguments passed before the data file
	Args []string `yaml:"args"`
	// Inference selects the inference regime of the validator
	Inference string `yaml:"inference" default:"none" validate:"oneof=none rdfs owlrl both"`
	// Timeout bounds a single validation
	Timeout time.Duration `yaml:"timeout" default:"30m" validate:"gt=0"`
}

// OutputConfig configures files written by a run
type OutputConfig struct {
	// Diagnostics is where the validation report graph is written
	Diagnostics string `yaml:"diagnostics" default:"results.jsonld"`
	// DataDump optionally receives the merged instance graph
	DataDump string `yaml:"dataDump"`
	// ShapesDump optionally receives the merged constraint graph
	ShapesDump string `yaml:"shapesDump"`
}

// LogConfig configures logging
type LogConfig struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=trace debug info warn error"`
	Format string `yaml:"format" default:"auto" validate:"oneof=auto json console"`
}

// MetricsConfig configures the Prometheus endpoint
type MetricsConfig struct {
	// Listen is the address serving /metrics (empty = disabled)
	Listen string `yaml:"listen" validate:"omitempty,hostname_port"`
}

// WatchConfig configures watch mode
type WatchConfig struct {
	// Debounce delays a rerun until changes settle
	Debounce time.Duration `yaml:"debounce" default:"500ms" validate:"gt=0"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	config := &Config{}
	if err := defaults.Set(config); err != nil {
		panic(fmt.Sprintf("config: invalid default tags: %v", err))
	}
	return config
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "Config.")
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s=%s (got %v)", field, fe.Tag(), fe.Param(), fe.Value()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s (got %v)", field, fe.Tag(), fe.Value()))
		}
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

// LoadFromFile loads configuration from a YAML file on top of the defaults
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
