package main

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port   int    `yaml:"port"`
	Origin string `yaml:"origin"`
	// Shared runs the cache in shared mode (s-maxage honored,
	// private responses refused).
	Shared   bool           `yaml:"shared"`
	Provider ProviderConfig `yaml:"provider"`
	// DefaultMaxAge, when set, assigns an expiration to responses
	// without explicit freshness information.
	DefaultMaxAge duration `yaml:"defaultMaxAge"`
}

type ProviderConfig struct {
	// Name selects the storage backend:
	// memory, sqlite, redis, postgres or dynamodb.
	Name string `yaml:"name"`
	// File is the database file for the sqlite provider.
	File string `yaml:"file"`
	// Addr is the server address for the redis provider.
	Addr string `yaml:"addr"`
	// DSN is the connection string for the postgres provider.
	DSN string `yaml:"dsn"`
	// Table is the table name for the dynamodb provider.
	Table string `yaml:"table"`
}

// duration accepts time.ParseDuration syntax ("5m", "1h30m") in yaml.
type duration time.Duration

func (d *duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return err
	}
	*d = duration(parsed)
	return nil
}

func getConfig(filename string) (Config, error) {
	var config Config
	configBytes, err := os.ReadFile(filename)
	if err != nil {
		return config, err
	}
	err = yaml.Unmarshal(configBytes, &config)
	return config, err
}
