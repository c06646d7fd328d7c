package config

import (
	"fmt"
	"net/url"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

// ErrMissingSection reports a config file without a required section.
var ErrMissingSection = errors.New("required section missing")

// Config is the full, typed pipeline configuration. Sections mirror the
// YAML file: a database connection block, the API endpoint and its initial
// filter parameters, the date-typed column list, and output locations.
type Config struct {
	Database    DatabaseConfig    `yaml:"database"`
	API         APIConfig         `yaml:"api"`
	TableValues TableValuesConfig `yaml:"table_values"`
	Output      OutputConfig      `yaml:"output"`
}

type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
}

type APIConfig struct {
	BaseURL string                 `yaml:"base_url"`
	Filters map[string]interface{} `yaml:"filters"`
}

type TableValuesConfig struct {
	DateColumns []string `yaml:"date_columns"`
}

type OutputConfig struct {
	Dir   string `yaml:"dir"`
	Excel bool   `yaml:"excel"`
}

// Load reads and validates the YAML configuration. A file without a
// database section is rejected before any connection is attempted; the
// failure is logged critical here so it reaches the run log even when the
// caller exits immediately.
func Load(logger *zap.Logger, path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading config file %s", path)
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, errors.Wrapf(err, "parsing config file %s", path)
	}

	// Decode a second time generically: a zero-valued DatabaseConfig can't
	// distinguish an absent section from an empty one.
	var sections map[string]interface{}
	if err := yaml.Unmarshal(raw, &sections); err != nil {
		return nil, errors.Wrapf(err, "parsing config file %s", path)
	}
	if _, ok := sections["database"]; !ok {
		msg := fmt.Sprintf("required section 'database' not found in %s", path)
		logger.Error(msg)
		return nil, errors.Wrap(ErrMissingSection, msg)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		logger.Error("invalid configuration", zap.Error(err))
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.API.Filters == nil {
		c.API.Filters = map[string]interface{}{}
	}
	if _, ok := c.API.Filters["page"]; !ok {
		c.API.Filters["page"] = 1
	}
	if c.Output.Dir == "" {
		c.Output.Dir = "."
	}
}

func (c *Config) validate() error {
	// lib/pq is the only registered driver; any other value would produce
	// a DSN sql.Open cannot serve.
	if c.Database.Driver != "postgres" {
		return errors.Errorf("database.driver %q is not supported, use postgres", c.Database.Driver)
	}
	if c.Database.Host == "" {
		return errors.New("database.host is required")
	}
	if c.Database.Database == "" {
		return errors.New("database.database is required")
	}
	if c.Database.Username == "" {
		return errors.New("database.username is required")
	}
	if c.API.BaseURL == "" {
		return errors.New("api.base_url is required")
	}
	return nil
}

// ConnectionString renders the database section as a driver URL.
func (d DatabaseConfig) ConnectionString() string {
	u := url.URL{
		Scheme: d.Driver,
		User:   url.UserPassword(d.Username, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   "/" + d.Database,
	}
	q := url.Values{}
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
