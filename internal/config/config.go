// Package config assembles the generator settings. Sources are applied in
// increasing precedence: defaults, an optional YAML file, the environment
// (including a .env file), then command line flags applied by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"suigen/internal/move"
	"suigen/internal/rpc"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "SUIGEN_"

// Config holds the settings of one generation run.
type Config struct {
	Package     string        `yaml:"package"`
	Network     string        `yaml:"network"`
	RPCURL      string        `yaml:"rpc_url"`
	OutDir      string        `yaml:"out"`
	GoPackage   string        `yaml:"go_package"`
	DatabaseURL string        `yaml:"database_url"`
	Reset       bool          `yaml:"reset"`
	Concurrency int           `yaml:"concurrency"`
	MaxNodes    int           `yaml:"max_nodes"`
	Timeout     time.Duration `yaml:"timeout"`
	Strict      bool          `yaml:"strict"`
	Verbose     bool          `yaml:"verbose"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Network:     "mainnet",
		OutDir:      "./generated",
		GoPackage:   "events",
		Concurrency: 8,
		Timeout:     rpc.DefaultTimeout,
	}
}

// LoadOptions names the optional file sources.
type LoadOptions struct {
	// File is a YAML config file; empty for none.
	File string
	// DotEnv is a .env file; a missing file is ignored.
	DotEnv string
}

// Load applies defaults, the YAML file and the environment.
func Load(opts LoadOptions) (Config, error) {
	cfg := Default()

	if opts.File != "" {
		if err := cfg.MergeFile(opts.File); err != nil {
			return Config{}, err
		}
	}

	dotenv, err := readDotEnv(opts.DotEnv)
	if err != nil {
		return Config{}, err
	}

	if err := cfg.MergeEnv(lookupWith(dotenv)); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// MergeFile overrides the fields present in a YAML file.
func (c *Config) MergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return nil
}

// LookupFunc reads one environment variable.
type LookupFunc func(key string) (string, bool)

// MergeEnv overrides the fields whose variables are set.
func (c *Config) MergeEnv(lookup LookupFunc) error {
	str := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v, ok := lookup(k); ok && strings.TrimSpace(v) != "" {
				*dst = strings.TrimSpace(v)
				return
			}
		}
	}

	str(&c.Package, EnvPrefix+"PACKAGE")
	str(&c.Network, EnvPrefix+"NETWORK")
	str(&c.RPCURL, EnvPrefix+"RPC_URL")
	str(&c.OutDir, EnvPrefix+"OUT")
	str(&c.GoPackage, EnvPrefix+"GO_PACKAGE")
	str(&c.DatabaseURL, EnvPrefix+"DATABASE_URL", "DATABASE_URL")

	var errs []error

	boolean := func(dst *bool, key string) {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return
		}

		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return
		}

		*dst = b
	}

	integer := func(dst *int, key string) {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return
		}

		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return
		}

		*dst = n
	}

	boolean(&c.Reset, EnvPrefix+"RESET")
	boolean(&c.Strict, EnvPrefix+"STRICT")
	boolean(&c.Verbose, EnvPrefix+"VERBOSE")
	integer(&c.Concurrency, EnvPrefix+"CONCURRENCY")
	integer(&c.MaxNodes, EnvPrefix+"MAX_NODES")

	if v, ok := lookup(EnvPrefix + "TIMEOUT"); ok && strings.TrimSpace(v) != "" {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%sTIMEOUT: %w", EnvPrefix, err))
		} else {
			c.Timeout = d
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid environment: %w", errors.Join(errs...))
	}

	return nil
}

// Validate checks the settings needed for a run.
func (c Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Package) == "" {
		errs = append(errs, errors.New("package id is required"))
	} else if c.PackageID().IsZero() {
		errs = append(errs, fmt.Errorf("invalid package id %q", c.Package))
	}

	if c.RPCURL == "" {
		if _, err := rpc.ParseNetwork(c.Network); err != nil {
			errs = append(errs, err)
		}
	}

	if c.OutDir == "" {
		errs = append(errs, errors.New("output directory is required"))
	}

	if c.Concurrency <= 0 {
		errs = append(errs, fmt.Errorf("concurrency must be positive, got %d", c.Concurrency))
	}

	if c.MaxNodes < 0 {
		errs = append(errs, fmt.Errorf("max nodes must not be negative, got %d", c.MaxNodes))
	}

	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive, got %s", c.Timeout))
	}

	return errors.Join(errs...)
}

// PackageID returns the canonical root package id.
func (c Config) PackageID() move.PackageID {
	return move.ParsePackageID(c.Package)
}

// Endpoint returns the RPC URL, explicit or derived from the network.
func (c Config) Endpoint() (string, error) {
	if c.RPCURL != "" {
		return c.RPCURL, nil
	}

	return rpc.ParseNetwork(c.Network)
}

// readDotEnv parses a .env file without touching the process environment.
func readDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}

	values, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return values, nil
}

// lookupWith prefers the process environment over .env values.
func lookupWith(dotenv map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}

		v, ok := dotenv[key]

		return v, ok
	}
}
