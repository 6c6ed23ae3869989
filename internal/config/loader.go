package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// LoadOptions controls how configs are loaded
type LoadOptions struct {
	// StrictVersion fails if config version doesn't match current
	StrictVersion bool

	// SkipValidation returns structurally invalid configs instead of failing
	SkipValidation bool
}

// DefaultLoadOptions returns sensible defaults for loading configs
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{}
}

// LoadResult contains the loaded config and metadata about the load
type LoadResult struct {
	Config   *Config
	Version  SchemaVersion
	Warnings []string
}

// LoadFile loads a config file (HCL or JSON) with version handling
func LoadFile(path string) (*Config, error) {
	result, err := LoadFileWithOptions(path, DefaultLoadOptions())
	if err != nil {
		return nil, err
	}
	return result.Config, nil
}

// LoadFileWithOptions loads a config file with explicit options
func LoadFileWithOptions(path string, opts LoadOptions) (*LoadResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".hcl":
		return LoadHCLWithOptions(data, path, opts)
	case ".json":
		return LoadJSONWithOptions(data, opts)
	default:
		// Try HCL first, fall back to JSON
		result, err := LoadHCLWithOptions(data, path, opts)
		if err != nil {
			if jsonResult, jsonErr := LoadJSONWithOptions(data, opts); jsonErr == nil {
				return jsonResult, nil
			}
			return nil, err
		}
		return result, nil
	}
}

// LoadHCL loads config from HCL bytes
func LoadHCL(data []byte, filename string) (*Config, error) {
	result, err := LoadHCLWithOptions(data, filename, DefaultLoadOptions())
	if err != nil {
		return nil, err
	}
	return result.Config, nil
}

// LoadHCLWithOptions loads HCL with explicit options
func LoadHCLWithOptions(data []byte, filename string, opts LoadOptions) (*LoadResult, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("HCL parse error: %s", diags.Error())
	}

	// First, extract just the version to determine which parser to use
	var versionProbe struct {
		SchemaVersion string   `hcl:"schema_version,optional"`
		Remain        hcl.Body `hcl:",remain"`
	}
	_ = gohcl.DecodeBody(file.Body, nil, &versionProbe)

	version, err := checkVersion(versionProbe.SchemaVersion, opts)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if diags := gohcl.DecodeBody(file.Body, nil, &cfg); diags.HasErrors() {
		return nil, fmt.Errorf("HCL decode error: %s", diags.Error())
	}
	return finishLoad(&cfg, version, opts)
}

// LoadJSON loads config from JSON bytes
func LoadJSON(data []byte) (*Config, error) {
	result, err := LoadJSONWithOptions(data, DefaultLoadOptions())
	if err != nil {
		return nil, err
	}
	return result.Config, nil
}

// LoadJSONWithOptions loads JSON with explicit options
func LoadJSONWithOptions(data []byte, opts LoadOptions) (*LoadResult, error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("JSON parse error: %w", err)
	}

	version, err := checkVersion(cfg.SchemaVersion, opts)
	if err != nil {
		return nil, err
	}
	return finishLoad(&cfg, version, opts)
}

func checkVersion(raw string, opts LoadOptions) (SchemaVersion, error) {
	version, err := ParseVersion(raw)
	if err != nil {
		return SchemaVersion{}, fmt.Errorf("invalid schema version: %w", err)
	}
	if !IsSupportedVersion(version) {
		return SchemaVersion{}, fmt.Errorf("unsupported config schema version %s (supported: %v)",
			version, SupportedVersions)
	}
	current, _ := ParseVersion(CurrentSchemaVersion)
	if opts.StrictVersion && version.Compare(current) != 0 {
		return SchemaVersion{}, fmt.Errorf("config version %s does not match current version %s",
			version, current)
	}
	return version, nil
}

func finishLoad(cfg *Config, version SchemaVersion, opts LoadOptions) (*LoadResult, error) {
	if cfg.SchemaVersion == "" {
		cfg.SchemaVersion = CurrentSchemaVersion
	}

	result := &LoadResult{Config: cfg, Version: version}
	errs := cfg.Validate()
	for _, e := range errs {
		if e.Severity == SeverityWarning {
			result.Warnings = append(result.Warnings, e.Error())
		}
	}
	if !opts.SkipValidation && errs.HasErrors() {
		return nil, fmt.Errorf("invalid configuration: %w", errs.Errors())
	}
	return result, nil
}

// SaveFile saves config to a file (format determined by extension)
func SaveFile(cfg *Config, path string) error {
	if cfg.SchemaVersion == "" {
		cfg.SchemaVersion = CurrentSchemaVersion
	}

	var (
		data []byte
		err  error
	)
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		data, err = json.MarshalIndent(cfg, "", "  ")
	} else {
		data, err = Marshal(cfg)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	// Write through a temp file so readers never see a partial config.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace config file: %w", err)
	}
	return nil
}
