// Package config loads the liquorsales configuration.
//
// Values are layered with koanf. Precedence, highest first:
//
//	flags > LIQUOR_* environment > YAML file > defaults
//
// Environment variables map to keys by stripping the prefix, lowercasing
// and turning the first underscore into the section separator:
// LIQUOR_ANALYSIS_VENDOR_THRESHOLD sets analysis.vendor_threshold.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix is the prefix of environment overrides.
const EnvPrefix = "LIQUOR_"

// ErrMissingInput is returned by Require for unset input paths.
var ErrMissingInput = errors.New("missing input")

// Config is the full runtime configuration.
type Config struct {
	Input    InputConfig    `koanf:"input"`
	Sample   SampleConfig   `koanf:"sample"`
	Analysis AnalysisConfig `koanf:"analysis"`
	Runtime  RuntimeConfig  `koanf:"runtime"`
	Output   OutputConfig   `koanf:"output"`
	Storage  StorageConfig  `koanf:"storage"`
	Metrics  MetricsConfig  `koanf:"metrics"`
}

// InputConfig holds input file paths.
type InputConfig struct {
	Transactions    string `koanf:"transactions"`
	Population      string `koanf:"population"`
	PopulationCache string `koanf:"population_cache"`
	Boundaries      string `koanf:"boundaries"`
	Cities          string `koanf:"cities"`
}

// SampleConfig configures the schema sampler.
type SampleConfig struct {
	Rows int `koanf:"rows" validate:"gte=1"`
}

// AnalysisConfig configures the aggregates and the store map.
type AnalysisConfig struct {
	VendorThreshold float64 `koanf:"vendor_threshold" validate:"gte=0"`
	StoreThreshold  float64 `koanf:"store_threshold" validate:"gte=0"`
	Families        []int   `koanf:"families" validate:"min=1,dive,gte=100,lte=999"`
	Cities          int     `koanf:"cities" validate:"gte=0"`
	BoundaryFeature int     `koanf:"boundary_feature" validate:"gte=0"`
	BoundaryName    string  `koanf:"boundary_name"`
}

// RuntimeConfig tunes the streaming pipeline.
type RuntimeConfig struct {
	ChannelBuffer int `koanf:"channel_buffer" validate:"gte=1"`
}

// OutputConfig selects the artifacts written by analyze.
type OutputConfig struct {
	Dir    string `koanf:"dir" validate:"required"`
	Charts bool   `koanf:"charts"`
	Report bool   `koanf:"report"`
}

// StorageConfig selects the optional results store. An empty Kind or
// "none" disables it.
type StorageConfig struct {
	Kind string `koanf:"kind" validate:"omitempty,oneof=none sqlite postgres mssql"`
	DSN  string `koanf:"dsn" validate:"required_if=Kind postgres,required_if=Kind mssql"`
}

// Enabled reports whether results should be stored.
func (s StorageConfig) Enabled() bool {
	return s.Kind != "" && s.Kind != "none"
}

// MetricsConfig selects the metrics backend.
type MetricsConfig struct {
	Backend        string `koanf:"backend" validate:"omitempty,oneof=none pushgateway datadog"`
	Job            string `koanf:"job"`
	PushgatewayURL string `koanf:"pushgateway_url" validate:"omitempty,url"`
	Tags           string `koanf:"tags"`
}

// Defaults returns the default values keyed by koanf path.
func Defaults() map[string]any {
	return map[string]any{
		"input.transactions":        "Iowa_Liquor_Sales.csv",
		"input.population":          "Pop_by_County.txt",
		"input.population_cache":    "Pop_by_County.cache",
		"input.boundaries":          "gz_2010_us_040_00_500k.json",
		"input.cities":              "iowa_city_coords.txt",
		"sample.rows":               100,
		"analysis.vendor_threshold": 10000.0,
		"analysis.store_threshold":  0.0,
		"analysis.families":         []int{101, 103, 106, 108},
		"analysis.cities":           4,
		"analysis.boundary_feature": 33,
		"analysis.boundary_name":    "",
		"runtime.channel_buffer":    1024,
		"output.dir":                ".",
		"output.charts":             true,
		"output.report":             true,
		"storage.kind":              "none",
		"storage.dsn":               "",
		"metrics.backend":           "none",
		"metrics.job":               "liquorsales",
		"metrics.pushgateway_url":   "http://localhost:9091",
		"metrics.tags":              "",
	}
}

// flagKeys maps CLI flag names to config keys.
var flagKeys = map[string]string{
	"transactions":     "input.transactions",
	"population":       "input.population",
	"population-cache": "input.population_cache",
	"boundaries":       "input.boundaries",
	"cities-file":      "input.cities",
	"rows":             "sample.rows",
	"vendor-threshold": "analysis.vendor_threshold",
	"store-threshold":  "analysis.store_threshold",
	"families":         "analysis.families",
	"cities":           "analysis.cities",
	"boundary-feature": "analysis.boundary_feature",
	"boundary-name":    "analysis.boundary_name",
	"channel-buffer":   "runtime.channel_buffer",
	"output-dir":       "output.dir",
	"charts":           "output.charts",
	"report":           "output.report",
	"storage":          "storage.kind",
	"dsn":              "storage.dsn",
	"metrics-backend":  "metrics.backend",
	"pushgateway-url":  "metrics.pushgateway_url",
	"metrics-tags":     "metrics.tags",
}

// BindFlags defines the persistent configuration flags on fs. Only flags
// the user sets override lower layers.
func BindFlags(fs *pflag.FlagSet) {
	fs.String("transactions", "", "transactions CSV path")
	fs.String("population", "", "population TSV path")
	fs.String("population-cache", "", "population cache path")
	fs.String("boundaries", "", "GeoJSON state boundaries path")
	fs.String("cities-file", "", "city coordinates TSV path")
	fs.Int("rows", 0, "rows sampled by schema")
	fs.Float64("vendor-threshold", 0, "minimum total liters for a vendor to be ranked")
	fs.Float64("store-threshold", 0, "minimum total liters for a store to be ranked")
	fs.IntSlice("families", nil, "family codes compared in the sales chart")
	fs.Int("cities", 0, "number of cities labeled on the store map")
	fs.Int("boundary-feature", 0, "index of the boundary feature to draw")
	fs.String("boundary-name", "", "NAME property of the boundary feature (overrides --boundary-feature)")
	fs.Int("channel-buffer", 0, "row channel capacity")
	fs.String("output-dir", "", "output directory")
	fs.Bool("charts", true, "write charts")
	fs.Bool("report", true, "write summary.xlsx")
	fs.String("storage", "", "results store (none, sqlite, postgres, mssql)")
	fs.String("dsn", "", "results store DSN")
	fs.String("metrics-backend", "", "metrics backend (none, pushgateway, datadog)")
	fs.String("pushgateway-url", "", "Pushgateway base URL")
	fs.String("metrics-tags", "", "extra metric tags, comma separated")
}

// envKey maps LIQUOR_SECTION_SOME_KEY to section.some_key.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.Replace(s, "_", ".", 1)
}

// Load reads the configuration. cfgFile may be empty; flags may be nil.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("config: defaults: %w", err)
	}

	if cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", cfgFile, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("config: env: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("config: flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("config: invalid: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Require checks that the named input paths are set. Names are the keys
// under input (e.g. "transactions").
func (c *Config) Require(inputs ...string) error {
	var missing []string
	for _, in := range inputs {
		var v string
		switch in {
		case "transactions":
			v = c.Input.Transactions
		case "population":
			v = c.Input.Population
		case "population_cache":
			v = c.Input.PopulationCache
		case "boundaries":
			v = c.Input.Boundaries
		case "cities":
			v = c.Input.Cities
		default:
			return fmt.Errorf("config: unknown input %q", in)
		}
		if strings.TrimSpace(v) == "" {
			missing = append(missing, "input."+in)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("config: %w: %s", ErrMissingInput, strings.Join(missing, ", "))
	}
	return nil
}
