package config

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/banshee-data/georef/internal/fsutil"
)

// Accepted values for the enumerated settings.
var (
	OutOfCoveragePolicies = []string{"skip", "passthrough", "stop"}
	NonMonotonicPolicies  = []string{"fail", "skip"}
	OutputModes           = []string{"delta", "absolute", "raw"}
	Compressions          = []string{"none", "zstd", "lz4"}
)

// GeorefConfig holds the settings for a georeferencing run.
// Every field is optional; the Get* methods supply defaults for fields that
// are nil, so partial config files are safe. Command-line flags override the
// file through the Set* helpers.
type GeorefConfig struct {
	// Synchronizer policies
	OutOfCoverage *string `json:"out_of_coverage,omitempty" yaml:"out_of_coverage,omitempty"` // skip | passthrough | stop
	NonMonotonic  *string `json:"non_monotonic,omitempty" yaml:"non_monotonic,omitempty"`     // fail | skip
	OutputMode    *string `json:"output_mode,omitempty" yaml:"output_mode,omitempty"`         // delta | absolute | raw

	// Output
	WriteHeader *bool   `json:"write_header,omitempty" yaml:"write_header,omitempty"`
	Compression *string `json:"compression,omitempty" yaml:"compression,omitempty"` // none | zstd | lz4

	// Inputs
	ProbeCount    *int `json:"probe_count,omitempty" yaml:"probe_count,omitempty"`
	PoseSkipLines *int `json:"pose_skip_lines,omitempty" yaml:"pose_skip_lines,omitempty"`

	// Progress and diagnostics
	ProgressEvery    *int64  `json:"progress_every,omitempty" yaml:"progress_every,omitempty"`
	ProgressInterval *string `json:"progress_interval,omitempty" yaml:"progress_interval,omitempty"` // duration string like "10s"
	SampleEvery      *int64  `json:"sample_every,omitempty" yaml:"sample_every,omitempty"`
	PlotDir          *string `json:"plot_dir,omitempty" yaml:"plot_dir,omitempty"`
	RunDB            *string `json:"run_db,omitempty" yaml:"run_db,omitempty"`
}

func ptrString(v string) *string { return &v }
func ptrBool(v bool) *bool       { return &v }
func ptrInt(v int) *int          { return &v }
func ptrInt64(v int64) *int64    { return &v }

// EmptyConfig returns a GeorefConfig with all fields unset.
func EmptyConfig() *GeorefConfig {
	return &GeorefConfig{}
}

// DefaultConfig returns a GeorefConfig with every field set to its default.
func DefaultConfig() *GeorefConfig {
	return &GeorefConfig{
		OutOfCoverage:    ptrString("skip"),
		NonMonotonic:     ptrString("fail"),
		OutputMode:       ptrString("delta"),
		WriteHeader:      ptrBool(false),
		Compression:      ptrString("none"),
		ProbeCount:       ptrInt(1),
		PoseSkipLines:    ptrInt(2),
		ProgressEvery:    ptrInt64(1_000_000),
		ProgressInterval: ptrString("10s"),
		SampleEvery:      ptrInt64(1000),
		PlotDir:          ptrString(""),
		RunDB:            ptrString(""),
	}
}

// LoadConfig loads a GeorefConfig from a JSON or YAML file.
// The file must have a .json, .yaml or .yml extension and be at most 1MB.
func LoadConfig(fsys fsutil.FileSystem, path string) (*GeorefConfig, error) {
	cleanPath := filepath.Clean(path)
	var unmarshal func([]byte, any) error
	switch ext := filepath.Ext(cleanPath); ext {
	case ".json":
		unmarshal = json.Unmarshal
	case ".yaml", ".yml":
		unmarshal = yaml.Unmarshal
	default:
		return nil, fmt.Errorf("config file must have .json or .yaml extension, got %q", ext)
	}

	info, err := fsys.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := fsys.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyConfig()
	if err := unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", filepath.Base(cleanPath), err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func oneOf(name string, v *string, allowed []string) error {
	if v == nil {
		return nil
	}
	for _, a := range allowed {
		if *v == a {
			return nil
		}
	}
	return fmt.Errorf("%s must be one of %v, got %q", name, allowed, *v)
}

// Validate checks that the configuration values are valid.
func (c *GeorefConfig) Validate() error {
	if err := oneOf("out_of_coverage", c.OutOfCoverage, OutOfCoveragePolicies); err != nil {
		return err
	}
	if err := oneOf("non_monotonic", c.NonMonotonic, NonMonotonicPolicies); err != nil {
		return err
	}
	if err := oneOf("output_mode", c.OutputMode, OutputModes); err != nil {
		return err
	}
	if err := oneOf("compression", c.Compression, Compressions); err != nil {
		return err
	}

	if c.ProbeCount != nil && *c.ProbeCount < 1 {
		return fmt.Errorf("probe_count must be at least 1, got %d", *c.ProbeCount)
	}
	if c.PoseSkipLines != nil && *c.PoseSkipLines < 0 {
		return fmt.Errorf("pose_skip_lines must be non-negative, got %d", *c.PoseSkipLines)
	}
	if c.ProgressEvery != nil && *c.ProgressEvery < 0 {
		return fmt.Errorf("progress_every must be non-negative, got %d", *c.ProgressEvery)
	}
	if c.SampleEvery != nil && *c.SampleEvery < 1 {
		return fmt.Errorf("sample_every must be at least 1, got %d", *c.SampleEvery)
	}
	if c.ProgressInterval != nil && *c.ProgressInterval != "" {
		if _, err := time.ParseDuration(*c.ProgressInterval); err != nil {
			return fmt.Errorf("invalid progress_interval '%s': %w", *c.ProgressInterval, err)
		}
	}

	return nil
}

// GetOutOfCoverage returns the out_of_coverage policy or the default.
func (c *GeorefConfig) GetOutOfCoverage() string {
	if c.OutOfCoverage == nil || *c.OutOfCoverage == "" {
		return "skip"
	}
	return *c.OutOfCoverage
}

// GetNonMonotonic returns the non_monotonic policy or the default.
func (c *GeorefConfig) GetNonMonotonic() string {
	if c.NonMonotonic == nil || *c.NonMonotonic == "" {
		return "fail"
	}
	return *c.NonMonotonic
}

// GetOutputMode returns the output_mode value or the default.
func (c *GeorefConfig) GetOutputMode() string {
	if c.OutputMode == nil || *c.OutputMode == "" {
		return "delta"
	}
	return *c.OutputMode
}

// GetWriteHeader returns the write_header value or the default.
func (c *GeorefConfig) GetWriteHeader() bool {
	if c.WriteHeader == nil {
		return false
	}
	return *c.WriteHeader
}

// GetCompression returns the compression codec or the default.
func (c *GeorefConfig) GetCompression() string {
	if c.Compression == nil || *c.Compression == "" {
		return "none"
	}
	return *c.Compression
}

// GetProbeCount returns the probe_count value or the default.
func (c *GeorefConfig) GetProbeCount() int {
	if c.ProbeCount == nil {
		return 1
	}
	return *c.ProbeCount
}

// GetPoseSkipLines returns the pose_skip_lines value or the default.
func (c *GeorefConfig) GetPoseSkipLines() int {
	if c.PoseSkipLines == nil {
		return 2
	}
	return *c.PoseSkipLines
}

// GetProgressEvery returns the progress_every value or the default.
// Zero disables record-count progress lines.
func (c *GeorefConfig) GetProgressEvery() int64 {
	if c.ProgressEvery == nil {
		return 1_000_000
	}
	return *c.ProgressEvery
}

// GetProgressInterval parses and returns the ProgressInterval as a time.Duration.
func (c *GeorefConfig) GetProgressInterval() time.Duration {
	if c.ProgressInterval == nil || *c.ProgressInterval == "" {
		return 10 * time.Second
	}
	d, err := time.ParseDuration(*c.ProgressInterval)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// GetSampleEvery returns the sample_every value or the default.
func (c *GeorefConfig) GetSampleEvery() int64 {
	if c.SampleEvery == nil {
		return 1000
	}
	return *c.SampleEvery
}

// GetPlotDir returns the plot output directory, empty when plots are disabled.
func (c *GeorefConfig) GetPlotDir() string {
	if c.PlotDir == nil {
		return ""
	}
	return *c.PlotDir
}

// GetRunDB returns the run ledger path, empty when the ledger is disabled.
func (c *GeorefConfig) GetRunDB() string {
	if c.RunDB == nil {
		return ""
	}
	return *c.RunDB
}

// SetString overrides a string field when v is non-empty. It is used to
// layer command-line flags over the loaded file.
func SetString(field **string, v string) {
	if v != "" {
		*field = ptrString(v)
	}
}
