package shared

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	App      AppConfig      `toml:"app"`
	Database DatabaseConfig `toml:"database"`
	Identity IdentityConfig `toml:"identity"`
	Google   GoogleConfig   `toml:"google"`
}

// AppConfig contains application identity and local paths.
type AppConfig struct {
	ID       string `toml:"id"`
	DataDir  string `toml:"data_dir"`
	LogLevel string `toml:"log_level"`
}

// DatabaseConfig contains the list store locations and connection settings.
type DatabaseConfig struct {
	NotesPath    string `toml:"notes_path"`
	TasksPath    string `toml:"tasks_path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// IdentityConfig contains identity provider settings.
type IdentityConfig struct {
	APIKey         string  `toml:"api_key"`
	BaseURL        string  `toml:"base_url"`
	SecureTokenURL string  `toml:"secure_token_url"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	RateLimit      float64 `toml:"rate_limit"`
	Burst          int     `toml:"burst"`
}

// Timeout returns the provider request timeout as a [time.Duration].
func (c IdentityConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// GoogleConfig contains OAuth2 client settings for federated sign-in.
type GoogleConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
	CallbackAddr string `toml:"callback_addr"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// Validate reports configuration values that would make the app unusable.
func (c *Config) Validate() error {
	if c.App.ID == "" {
		return fmt.Errorf("%w: app.id is required", ErrInvalidConfig)
	}
	if c.Database.NotesPath == "" || c.Database.TasksPath == "" {
		return fmt.Errorf("%w: database.notes_path and database.tasks_path are required", ErrInvalidConfig)
	}
	if c.Database.NotesPath == c.Database.TasksPath && c.Database.NotesPath != MemoryDatabase {
		return fmt.Errorf("%w: notes and tasks must use separate stores", ErrInvalidConfig)
	}
	if c.Identity.RateLimit < 0 || c.Identity.Burst < 0 {
		return fmt.Errorf("%w: identity rate limits must not be negative", ErrInvalidConfig)
	}
	return nil
}

// ResolvePaths expands "~" in every configured path.
func (c *Config) ResolvePaths() error {
	for _, p := range []*string{&c.App.DataDir, &c.Database.NotesPath, &c.Database.TasksPath} {
		expanded, err := ExpandHome(*p)
		if err != nil {
			return err
		}
		*p = expanded
	}
	return nil
}

// PreferencesPath returns the session cache file for this application identity.
func (c *Config) PreferencesPath() string {
	return filepath.Join(c.App.DataDir, c.App.ID+"_preferences.toml")
}

// IdentityPath returns the file where the identity provider keeps its own session.
func (c *Config) IdentityPath() string {
	return filepath.Join(c.App.DataDir, "identity.json")
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
