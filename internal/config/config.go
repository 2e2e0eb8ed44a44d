// Package config loads runtime settings from environment variables
// (AEAT182_*) and an optional aeat182.yaml file in the working directory.
package config

import (
	"errors"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	// DBPath is the SQLite database file.
	DBPath string `mapstructure:"db_path"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetDefault("db_path", "aeat182.db")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")

	v.SetEnvPrefix("AEAT182")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("aeat182")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		// no config file is fine; env and defaults apply
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
