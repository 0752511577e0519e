package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where the CLI looks for a config file when none is given.
const DefaultPath = "blecentral.yaml"

// Config is the top-level application configuration.
type Config struct {
	Driver  DriverConfig  `yaml:"driver"`
	Scan    ScanConfig    `yaml:"scan"`
	Store   StoreConfig   `yaml:"store"`
	Gateway GatewayConfig `yaml:"gateway"`
	Logger  LoggerConfig  `yaml:"logger"`
	Tracer  TracerConfig  `yaml:"tracer"`

	// Includes lists further YAML files (globs allowed) merged under this
	// one. Values in the including file win.
	Includes []string `yaml:"includes,omitempty"`
}

// DriverConfig selects and tunes the BLE driver.
type DriverConfig struct {
	Backend      string `yaml:"backend"`       // "auto", "native" or "mock"
	QueueSize    int    `yaml:"queue_size"`    // dispatcher buffer
	MaxListeners int    `yaml:"max_listeners"` // 0 disables the leak warning
	MockState    string `yaml:"mock_state"`    // adapter state reported by the mock
}

// ScanConfig holds scan defaults and the optional scan schedule.
type ScanConfig struct {
	ServiceUUIDs    []string      `yaml:"service_uuids"`
	AllowDuplicates bool          `yaml:"allow_duplicates"`
	Schedule        string        `yaml:"schedule"` // cron spec or Go duration; empty = no schedule
	Window          time.Duration `yaml:"window"`   // how long each scheduled scan runs
}

// StoreConfig holds the peripheral cache settings.
type StoreConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// GatewayConfig holds WebSocket gateway settings.
type GatewayConfig struct {
	Enabled        bool          `yaml:"enabled"`
	Addr           string        `yaml:"addr"`
	Tokens         []TokenConfig `yaml:"tokens,omitempty"`
	RequestsPerMin int           `yaml:"requests_per_min"`
	Burst          int           `yaml:"burst"`
	MDNS           bool          `yaml:"mdns"`
}

// TokenConfig holds a single gateway auth token. Tokens prefixed with
// "enc:" are decrypted with BLECENTRAL_CONFIG_KEY at load time.
type TokenConfig struct {
	Token string `yaml:"token"`
	Name  string `yaml:"name"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"` // stderr, stdout, discard or a file path
}

// TracerConfig holds tracing settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"`
}

// defaultDataDir returns $HOME/.blecentral, or ./.blecentral when $HOME
// cannot be determined.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".blecentral"
	}
	return filepath.Join(home, ".blecentral")
}

// Defaults returns a Config with sensible defaults.
func Defaults() *Config {
	return &Config{
		Driver: DriverConfig{
			Backend:      "auto",
			QueueSize:    256,
			MaxListeners: 10,
		},
		Scan: ScanConfig{
			Window: 10 * time.Second,
		},
		Store: StoreConfig{
			Enabled: false,
			Path:    filepath.Join(defaultDataDir(), "peripherals.db"),
		},
		Gateway: GatewayConfig{
			Enabled:        false,
			Addr:           ":8765",
			RequestsPerMin: 120,
			Burst:          20,
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Tracer: TracerConfig{
			Enabled:  false,
			Exporter: "noop",
		},
	}
}

// Load reads a YAML config file and its includes, applies env var
// overrides, decrypts secrets and validates the result. A missing file
// yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		if err := validatePermissions(path); err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
		if len(cfg.Includes) > 0 {
			abs, err := filepath.Abs(path)
			if err != nil {
				return nil, fmt.Errorf("config path: %w", err)
			}
			if err := applyIncludes(cfg, filepath.Dir(abs), map[string]bool{abs: true}, 0); err != nil {
				return nil, err
			}
			// Second pass so the main file takes precedence.
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config (second pass): %w", err)
			}
			cfg.Includes = nil
		}
	}

	ApplyEnvOverrides(cfg)
	cfg.Store.Path = expandHome(cfg.Store.Path)
	if cfg.Logger.Output != "" {
		cfg.Logger.Output = expandHome(cfg.Logger.Output)
	}

	if passphrase := os.Getenv("BLECENTRAL_CONFIG_KEY"); passphrase != "" {
		if err := decryptSecrets(cfg, passphrase); err != nil {
			return nil, fmt.Errorf("decrypt secrets: %w", err)
		}
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnvOverrides maps BLECENTRAL_* env vars to config fields.
func ApplyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BLECENTRAL_DRIVER_BACKEND"); v != "" {
		cfg.Driver.Backend = v
	}
	if v := os.Getenv("BLECENTRAL_DRIVER_QUEUE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Driver.QueueSize = n
		}
	}
	if v := os.Getenv("BLECENTRAL_SCAN_SERVICE_UUIDS"); v != "" {
		cfg.Scan.ServiceUUIDs = splitAndTrim(v, ",")
	}
	if v := os.Getenv("BLECENTRAL_SCAN_SCHEDULE"); v != "" {
		cfg.Scan.Schedule = v
	}
	if v := os.Getenv("BLECENTRAL_SCAN_WINDOW"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Scan.Window = d
		}
	}
	if v := os.Getenv("BLECENTRAL_STORE_ENABLED"); v != "" {
		cfg.Store.Enabled = v == "true"
	}
	if v := os.Getenv("BLECENTRAL_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("BLECENTRAL_GATEWAY_ENABLED"); v != "" {
		cfg.Gateway.Enabled = v == "true"
	}
	if v := os.Getenv("BLECENTRAL_GATEWAY_ADDR"); v != "" {
		cfg.Gateway.Addr = v
	}
	if v := os.Getenv("BLECENTRAL_GATEWAY_TOKEN"); v != "" {
		cfg.Gateway.Tokens = append(cfg.Gateway.Tokens, TokenConfig{Token: v, Name: "env"})
	}
	if v := os.Getenv("BLECENTRAL_LOGGER_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := os.Getenv("BLECENTRAL_LOGGER_FORMAT"); v != "" {
		cfg.Logger.Format = v
	}
	if v := os.Getenv("BLECENTRAL_TRACER_ENABLED"); v == "true" {
		cfg.Tracer.Enabled = true
	}
	if v := os.Getenv("BLECENTRAL_TRACER_EXPORTER"); v != "" {
		cfg.Tracer.Exporter = v
	}
}

// splitAndTrim splits s by sep, trims whitespace and drops empty elements.
func splitAndTrim(s, sep string) []string {
	var out []string
	for _, p := range strings.Split(s, sep) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// validatePermissions rejects config files writable by group or others,
// since they may carry gateway tokens.
func validatePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat config: %w", err)
	}
	if mode := info.Mode().Perm(); mode&0o022 != 0 {
		return fmt.Errorf("config file %s has insecure permissions %o (want 0600 or 0644)", path, mode)
	}
	return nil
}
