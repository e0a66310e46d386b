/*
Package configs is responsible for loading and parsing the application's configuration settings.

Settings are layered with koanf: built-in defaults, then an optional YAML file named by
RTCS_CONFIG_FILE, then RTCS_* environment variables. Later sources override earlier ones.
*/
package configs

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/Aequiternus/rtcs.io-storage/internal/app/store"
)

const (
	// EnvPrefix is the prefix of every environment variable read by LoadConfig.
	EnvPrefix = "RTCS_"

	// ConfigFileEnv names the environment variable holding the optional YAML file path.
	ConfigFileEnv = "RTCS_CONFIG_FILE"

	// insecureDevSecret is only accepted in the development environment.
	insecureDevSecret = "your_default_insecure_secret_key_change_me"
)

// ErrReadBytesNotSupported is returned when ReadBytes is called on the defaults provider.
var ErrReadBytesNotSupported = errors.New("configs: ReadBytes not supported by map provider")

// StoreSettings mirrors store.Config in its file and environment representation.
type StoreSettings struct {
	GuestName     string        `koanf:"guest_name"`
	GuestRooms    string        `koanf:"guest_rooms"`
	HistoryLength int           `koanf:"history_length"`
	HistoryExpire time.Duration `koanf:"history_expire"`
	TokenExpire   time.Duration `koanf:"token_expire"`
	GuestIDLength int           `koanf:"guest_id_length"`
	TokenLength   int           `koanf:"token_length"`
}

// AppConfig contains all configuration parameters required for the application to run.
type AppConfig struct {
	// General Server Settings
	Environment string `koanf:"environment"`
	Port        int    `koanf:"port"`
	LogLevel    string `koanf:"log_level"`

	// Security Settings
	Origins   string `koanf:"allowed_origins"`
	JWTSecret string `koanf:"jwt_secret"`

	// Ephemeral Store Settings
	Store StoreSettings `koanf:"store"`

	// AllowedOrigins is Origins split on commas, with blanks removed.
	AllowedOrigins []string `koanf:"-"`
}

// IsDevelopment reports whether the application runs in the development environment.
func (c *AppConfig) IsDevelopment() bool {
	return c.Environment == "development"
}

// StoreConfig converts the store settings into a store.Config.
func (c *AppConfig) StoreConfig() store.Config {
	return store.Config{
		GuestName:     c.Store.GuestName,
		GuestRooms:    splitList(c.Store.GuestRooms),
		HistoryLength: c.Store.HistoryLength,
		HistoryExpire: c.Store.HistoryExpire,
		TokenExpire:   c.Store.TokenExpire,
		GuestIDLength: c.Store.GuestIDLength,
		TokenLength:   c.Store.TokenLength,
	}
}

// defaults is the lowest configuration layer.
func defaults() map[string]any {
	return map[string]any{
		"environment":     "development",
		"port":            8080,
		"log_level":       "",
		"allowed_origins": "",
		"jwt_secret":      "",
		"store": map[string]any{
			"guest_name":      store.DefaultGuestName,
			"guest_rooms":     "help",
			"history_length":  store.DefaultHistoryLength,
			"history_expire":  store.DefaultHistoryExpire.String(),
			"token_expire":    store.DefaultTokenExpire.String(),
			"guest_id_length": store.DefaultGuestIDLength,
			"token_length":    store.DefaultTokenLength,
		},
	}
}

// mapProvider is a koanf provider serving an in-memory map.
type mapProvider map[string]any

func (m mapProvider) ReadBytes() ([]byte, error) {
	return nil, ErrReadBytesNotSupported
}

func (m mapProvider) Read() (map[string]any, error) {
	return m, nil
}

// envKey maps RTCS_STORE_HISTORY_LENGTH to store.history_length and RTCS_PORT to port.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	if rest, ok := strings.CutPrefix(s, "store_"); ok {
		return "store." + rest
	}
	return s
}

// LoadConfig reads and validates the application configuration.
// It returns a pointer to the AppConfig struct and any error encountered.
func LoadConfig() (*AppConfig, error) {
	return Load(os.Getenv(ConfigFileEnv))
}

// Load reads the configuration layering defaults, the YAML file at path (if not empty)
// and the environment.
func Load(path string) (*AppConfig, error) {
	k := koanf.New(".")

	if err := k.Load(mapProvider(defaults()), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &AppConfig{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *AppConfig) validate() error {
	if c.Port < 1024 || c.Port > 65535 {
		return fmt.Errorf("port number %d is outside the recommended range (%d-%d) to avoid privileged ports", c.Port, 1024, 65535)
	}

	c.AllowedOrigins = splitList(c.Origins)

	if c.JWTSecret == "" {
		if !c.IsDevelopment() {
			return fmt.Errorf("RTCS_JWT_SECRET is required in %s environment for security", c.Environment)
		}
		c.JWTSecret = insecureDevSecret
	}

	s := c.Store
	if s.HistoryLength < 1 {
		return fmt.Errorf("store.history_length must be positive, got %d", s.HistoryLength)
	}
	if s.HistoryExpire <= 0 {
		return fmt.Errorf("store.history_expire must be positive, got %s", s.HistoryExpire)
	}
	if s.TokenExpire <= 0 {
		return fmt.Errorf("store.token_expire must be positive, got %s", s.TokenExpire)
	}
	if s.GuestIDLength < 8 {
		return fmt.Errorf("store.guest_id_length must be at least 8, got %d", s.GuestIDLength)
	}
	if s.TokenLength < 8 {
		return fmt.Errorf("store.token_length must be at least 8, got %d", s.TokenLength)
	}

	return nil
}

// splitList splits a comma separated list, dropping blank entries.
func splitList(s string) []string {
	out := []string{}
	for _, item := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
