package postgres

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied when the corresponding Config field is unset.
const (
	DefaultOpenPoolTimeout  = 30 * time.Second
	DefaultClosePoolTimeout = 30 * time.Second
)

// Duration is a time.Duration that unmarshals from YAML either as a
// duration string ("30s", "1h") or as a plain number of seconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := parseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

func parseDuration(raw string) (time.Duration, error) {
	if d, err := time.ParseDuration(raw); err == nil {
		return d, nil
	}
	seconds, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errors.New("want a duration string or a number of seconds")
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

// Config holds everything an Engine needs to talk to PostgreSQL.
type Config struct {
	// ConnectionURL is the database URL or DSN. Required.
	ConnectionURL string `yaml:"connection_url"`
	// OpenPoolWait makes pool creation wait until the database answers a
	// ping. Defaults to true.
	OpenPoolWait *bool `yaml:"open_pool_wait"`
	// OpenPoolTimeout bounds pool creation. Defaults to 30s.
	OpenPoolTimeout Duration `yaml:"open_pool_timeout"`
	// ClosePoolTimeout bounds how long StopConnectionPool waits for
	// borrowed connections to come back. Defaults to 30s.
	ClosePoolTimeout Duration `yaml:"close_pool_timeout"`
	// PoolParams is passed through to the pool configuration. Known
	// keys: max_conns, min_conns, max_conn_lifetime, max_conn_idle_time,
	// health_check_period, connect_timeout. An unknown key is an error
	// at engine construction.
	PoolParams map[string]any `yaml:"pool_params"`
}

// withDefaults returns a copy with unset fields filled in.
func (c Config) withDefaults() Config {
	out := c
	if out.OpenPoolWait == nil {
		wait := true
		out.OpenPoolWait = &wait
	}
	if out.OpenPoolTimeout <= 0 {
		out.OpenPoolTimeout = Duration(DefaultOpenPoolTimeout)
	}
	if out.ClosePoolTimeout <= 0 {
		out.ClosePoolTimeout = Duration(DefaultClosePoolTimeout)
	}
	return out
}

// LoadConfig reads a Config from a YAML file.
//
// A missing file is not an error: a zero Config comes back, so the
// connection URL must then come from elsewhere. Defaults are filled in
// by NewEngine. An unreadable or malformed file is an error.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
