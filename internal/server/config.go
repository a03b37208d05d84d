package server

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"strconv"
	"strings"
	"unicode"

	"github.com/iwvelando/loan-qualifier/internal/config"
	"github.com/iwvelando/loan-qualifier/pkg/constants"
	"gopkg.in/yaml.v3"
)

// Config defines runtime parameters for the HTTP server.
type Config struct {
	Address          string               `yaml:"address"`
	RateSheet        string               `yaml:"rateSheet"`
	MaxRequestSize   string               `yaml:"maxRequestSize"`
	Logging          config.LoggingConfig `yaml:"logging"`
	Cache            config.CacheConfig   `yaml:"cache"`
	requestSizeBytes int64
}

// LoadConfig loads the server configuration from YAML. If the file does not exist,
// defaults are returned without error.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{
		Address:          constants.DefaultServerAddress,
		RateSheet:        constants.DefaultRateSheetFile,
		MaxRequestSize:   strconv.FormatInt(constants.DefaultMaxRequestSizeBytes, 10),
		Cache:            config.Defaults().Cache,
		requestSizeBytes: constants.DefaultMaxRequestSizeBytes,
	}

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read server config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse server config: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// RequestSizeBytes returns the configured request body limit in bytes.
func (c *Config) RequestSizeBytes() int64 {
	return c.requestSizeBytes
}

func (c *Config) normalize() error {
	if c.Address == "" {
		c.Address = constants.DefaultServerAddress
	}
	if c.RateSheet == "" {
		c.RateSheet = constants.DefaultRateSheetFile
	}
	if _, err := c.Cache.TTLDuration(); err != nil {
		return err
	}

	bytes, err := ParseSize(c.MaxRequestSize)
	if err != nil {
		return err
	}
	if bytes <= 0 {
		bytes = constants.DefaultMaxRequestSizeBytes
	}
	c.requestSizeBytes = bytes
	return nil
}

// ParseSize converts a human-friendly byte string (e.g., "64K", "1M") into bytes.
func ParseSize(value string) (int64, error) {
	upper := strings.ToUpper(strings.TrimSpace(value))
	if upper == "" {
		return constants.DefaultMaxRequestSizeBytes, nil
	}

	idx := len(upper)
	for idx > 0 && !unicode.IsDigit(rune(upper[idx-1])) {
		idx--
	}
	if idx == 0 {
		return 0, fmt.Errorf("invalid size: %s", value)
	}

	n, err := strconv.ParseInt(strings.TrimSpace(upper[:idx]), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size value %q: %w", value, err)
	}

	var multiplier int64
	switch strings.TrimSpace(upper[idx:]) {
	case "", "B":
		multiplier = 1
	case "K", "KB":
		multiplier = 1024
	case "M", "MB":
		multiplier = 1024 * 1024
	default:
		return 0, fmt.Errorf("unsupported size unit %q", upper[idx:])
	}

	if n < 0 || n > math.MaxInt64/multiplier {
		return 0, fmt.Errorf("size overflow for value %s", value)
	}
	return n * multiplier, nil
}
