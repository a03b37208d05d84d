// Package config defines the data structures related to configuration and
// includes functions for loading and validating the config.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/iwvelando/loan-qualifier/pkg/constants"
	"github.com/iwvelando/loan-qualifier/pkg/validation"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Configuration holds all configuration for loan-qualifier.
type Configuration struct {
	RateSheet string        `yaml:"rateSheet,omitempty"`
	Logging   LoggingConfig `yaml:"logging,omitempty"`
	Output    OutputConfig  `yaml:"output,omitempty"`
	Cache     CacheConfig   `yaml:"cache,omitempty"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty"`      // debug, info, warn, error
	Format     string `yaml:"format,omitempty"`     // json, console
	OutputFile string `yaml:"outputFile,omitempty"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format string `yaml:"format,omitempty"` // pretty, csv
}

// CacheConfig controls the redis-backed qualification result cache.
type CacheConfig struct {
	Enabled  bool   `yaml:"enabled,omitempty"`
	Address  string `yaml:"address,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
	TTL      string `yaml:"ttl,omitempty"` // Go duration, e.g. 10m
}

// TTLDuration parses TTL, falling back to the default when unset.
func (c CacheConfig) TTLDuration() (time.Duration, error) {
	ttl := strings.TrimSpace(c.TTL)
	if ttl == "" {
		ttl = constants.DefaultCacheTTL
	}
	d, err := time.ParseDuration(ttl)
	if err != nil {
		return 0, fmt.Errorf("invalid cache ttl %q: %w", c.TTL, err)
	}
	return d, nil
}

// Defaults returns the configuration used when no file is present.
func Defaults() *Configuration {
	return &Configuration{
		RateSheet: constants.DefaultRateSheetFile,
		Output:    OutputConfig{Format: constants.OutputFormatPretty},
		Cache: CacheConfig{
			Address: constants.DefaultCacheAddress,
			TTL:     constants.DefaultCacheTTL,
		},
	}
}

// LoadEnvFile loads variables from a .env file into the process environment
// when the file exists. Variables already set are left alone.
func LoadEnvFile(path string) error {
	if path == "" {
		path = constants.DefaultEnvFile
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("error loading env file %s: %w", path, err)
	}
	return nil
}

func newViper() *viper.Viper {
	v := viper.New()
	defaults := Defaults()
	// Every key needs a default for AutomaticEnv to reach it during Unmarshal.
	v.SetDefault("rateSheet", defaults.RateSheet)
	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.format", defaults.Logging.Format)
	v.SetDefault("logging.outputFile", defaults.Logging.OutputFile)
	v.SetDefault("output.format", defaults.Output.Format)
	v.SetDefault("cache.enabled", defaults.Cache.Enabled)
	v.SetDefault("cache.address", defaults.Cache.Address)
	v.SetDefault("cache.password", defaults.Cache.Password)
	v.SetDefault("cache.db", defaults.Cache.DB)
	v.SetDefault("cache.ttl", defaults.Cache.TTL)

	v.SetEnvPrefix("LOAN_QUALIFIER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there. A missing file yields the defaults.
func LoadConfiguration(configPath string) (*Configuration, error) {
	if configPath == "" {
		return decode(newViper())
	}

	file, err := os.Open(configPath)
	if errors.Is(err, fs.ErrNotExist) {
		return decode(newViper())
	}
	if err != nil {
		return nil, fmt.Errorf("error reading config file, %s", err)
	}
	defer func() {
		_ = file.Close()
	}()

	return LoadConfigurationFromReader(file)
}

// LoadConfigurationFromReader loads YAML configuration from r.
func LoadConfigurationFromReader(r io.Reader) (*Configuration, error) {
	v := newViper()
	v.SetConfigType("yml")
	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("error reading config data, %s", err)
	}
	return decode(v)
}

func decode(v *viper.Viper) (*Configuration, error) {
	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %s", err)
	}
	return &configuration, nil
}

// ValidateConfiguration checks the configuration for mistakes that would
// stop a run and returns warnings for settings that look wrong but are usable.
func (c *Configuration) ValidateConfiguration() ([]string, error) {
	if err := validation.ValidateOutputFormat(c.Output.Format); err != nil {
		return nil, err
	}
	if _, err := c.Cache.TTLDuration(); err != nil {
		return nil, err
	}

	var warnings []string
	if strings.TrimSpace(c.RateSheet) == "" {
		warnings = append(warnings, "no rate sheet configured; one must be supplied on the command line")
	} else if !strings.HasSuffix(strings.ToLower(c.RateSheet), ".csv") {
		warnings = append(warnings, fmt.Sprintf("rate sheet %s does not have a .csv extension", c.RateSheet))
	}
	if c.Cache.Enabled && strings.TrimSpace(c.Cache.Address) == "" {
		warnings = append(warnings, "cache is enabled but no address is set; caching will be disabled")
	}
	return warnings, nil
}
