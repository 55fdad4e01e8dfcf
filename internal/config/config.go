// Package config is used to load msig settings from flags, MSIG_*
// environment variables and an optional msig.yaml file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by msig.
const EnvPrefix = "MSIG"

// Setting keys. Flags with the same names are bound to them.
const (
	KeyDB      = "db"
	KeySigs    = "sigs"
	KeyStrict  = "strict"
	KeyFormat  = "format"
	KeyVerbose = "verbose"
)

// DefaultSigs is the signature file used when none is configured.
const DefaultSigs = "signatures.msig"

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// Config is the resolved configuration.
type Config struct {
	DB      string `mapstructure:"db"`
	Sigs    string `mapstructure:"sigs"`
	Strict  bool   `mapstructure:"strict"`
	Format  string `mapstructure:"format"`
	Verbose bool   `mapstructure:"verbose"`
}

// New returns a viper instance with msig defaults and environment lookup.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	// Unmarshal only sees keys viper knows about, so every key gets a
	// default even when it is empty.
	v.SetDefault(KeyDB, "")
	v.SetDefault(KeySigs, DefaultSigs)
	v.SetDefault(KeyStrict, false)
	v.SetDefault(KeyFormat, "text")
	v.SetDefault(KeyVerbose, false)
	return v
}

// ReadFile reads the config file at path. With an empty path msig.yaml is
// searched in the working directory and in ~/.config/msig, and a missing
// file is not an error.
func ReadFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("msig")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "msig"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("config: failed to read %s: %w", v.ConfigFileUsed(), err)
	}
	return nil
}

func (c *Config) verify() error {
	if !slices.Contains(ValidFormats, c.Format) {
		return fmt.Errorf("invalid format %q: must be one of %v", c.Format, ValidFormats)
	}
	if c.Sigs == "" {
		c.Sigs = DefaultSigs
	}
	return nil
}

// Load resolves the configuration from v.
func Load(v *viper.Viper) (*Config, error) {
	var c Config

	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal: %w", err)
	}

	if err := c.verify(); err != nil {
		return nil, fmt.Errorf("config: failed to verify: %w", err)
	}

	return &c, nil
}
