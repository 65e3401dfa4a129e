// Package config loads the server configuration from a YAML file. Flags on
// the command line override whatever the file sets.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full configuration of one entgraph server.
type Config struct {
	// Schema is the path to the entity schema SDL file.
	Schema string `yaml:"schema"`

	// Datasets lists YAML files with seed entities, applied in order.
	Datasets []string `yaml:"datasets"`

	Server  Server  `yaml:"server"`
	GraphQL GraphQL `yaml:"graphql"`
	Otel    Otel    `yaml:"otel"`
}

type Server struct {
	Addr         string   `yaml:"addr"`
	Pretty       bool     `yaml:"pretty"`
	Timeout      Duration `yaml:"timeout"`
	MaxBodyBytes int64    `yaml:"maxBodyBytes"`
	CORSOrigins  []string `yaml:"corsOrigins"`
	CacheSize    int      `yaml:"cacheSize"`
	GraphiQL     bool     `yaml:"graphiql"`
}

type GraphQL struct {
	Introspection bool `yaml:"introspection"`
}

type Otel struct {
	Endpoint string `yaml:"endpoint"`
	Service  string `yaml:"service"`
}

// Default returns the configuration used when no file and no flags are
// given.
func Default() Config {
	return Config{
		Server: Server{
			Addr:      ":8080",
			Timeout:   Duration(10 * time.Second),
			CacheSize: 1024,
			GraphiQL:  true,
		},
		GraphQL: GraphQL{Introspection: true},
		Otel:    Otel{Service: "entgraph"},
	}
}

// Load reads the YAML file at path over the defaults. Relative schema and
// dataset paths are resolved against the file's directory. Unknown keys are
// an error.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}

	base := filepath.Dir(path)
	if cfg.Schema != "" && !filepath.IsAbs(cfg.Schema) {
		cfg.Schema = filepath.Join(base, cfg.Schema)
	}
	for i, ds := range cfg.Datasets {
		if !filepath.IsAbs(ds) {
			cfg.Datasets[i] = filepath.Join(base, ds)
		}
	}
	return cfg, nil
}

// Validate checks that the configuration can start a server.
func (c Config) Validate() error {
	if c.Schema == "" {
		return fmt.Errorf("config: schema file is required")
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("config: server.addr is required")
	}
	return nil
}

// Duration is a time.Duration that unmarshals from YAML strings like "10s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}
