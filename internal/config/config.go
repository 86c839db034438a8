package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Sources      Sources  `yaml:"sources"`
	SelfUsername string   `yaml:"self_username"`
	Judge        Judge    `yaml:"judge"`
	Pipeline     Pipeline `yaml:"pipeline"`
	Metrics      Metrics  `yaml:"metrics"`
	Output       Output   `yaml:"output"`
	Server       Server   `yaml:"server"`
	Logging      Logging  `yaml:"logging"`
}

type Sources struct {
	Feeds []Feed `yaml:"feeds" validate:"dive"`
	// TolerateErrors keeps a run going when one of several sources fails.
	TolerateErrors bool         `yaml:"tolerate_errors"`
	Search         SearchConfig `yaml:"search"`
}

type Feed struct {
	URL  string `yaml:"url" validate:"required,url"`
	Name string `yaml:"name"`
}

type SearchConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Query          string `yaml:"query" validate:"required_if=Enabled true"`
	MaxResults     int    `yaml:"max_results" validate:"gte=10,lte=100"`
	BearerTokenEnv string `yaml:"bearer_token_env"`
	BaseURL        string `yaml:"base_url" validate:"omitempty,url"`
}

type Judge struct {
	Provider              string `yaml:"provider" validate:"oneof=openai ollama gemini"`
	Model                 string `yaml:"model" validate:"required"`
	APIKeyEnv             string `yaml:"api_key_env"`
	BaseURL               string `yaml:"base_url" validate:"omitempty,url"`
	OllamaURL             string `yaml:"ollama_url" validate:"omitempty,url"`
	MaxOutputTokens       int    `yaml:"max_output_tokens" validate:"gte=0"`
	UseConversationMemory bool   `yaml:"use_conversation_memory"`
	ParseMode             string `yaml:"parse_mode" validate:"oneof=strict lenient"`
	InstructionsFile      string `yaml:"instructions_file"`
	GoldExamplesLimit     int    `yaml:"gold_examples_limit" validate:"gte=0"`
}

type Pipeline struct {
	Delay time.Duration `yaml:"delay" validate:"gte=0"`
}

type Metrics struct {
	Limit          int           `yaml:"limit" validate:"gte=0"`
	StaleAfter     time.Duration `yaml:"stale_after" validate:"gte=0"`
	BearerTokenEnv string        `yaml:"bearer_token_env"`
	BaseURL        string        `yaml:"base_url" validate:"omitempty,url"`

	// OAuth2 user-context tokens, used when the bearer token env var is unset.
	TokenPath       string `yaml:"token_path"`
	ClientIDEnv     string `yaml:"client_id_env"`
	ClientSecretEnv string `yaml:"client_secret_env"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Server struct {
	Port int `yaml:"port" validate:"gte=1,lte=65535"`
}

type Logging struct {
	Level      string `yaml:"level" validate:"loglevel"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `yaml:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `yaml:"max_age_days" validate:"gte=0"`
}

// ConfigDir returns the XDG config directory for tweetcurator.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "tweetcurator")
}

// DataDir returns the XDG data directory for tweetcurator.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "tweetcurator")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/tweetcurator/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'tweetcurator init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults, then validates it.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Sources: Sources{
			TolerateErrors: true,
			Search: SearchConfig{
				MaxResults:     50,
				BearerTokenEnv: "X_BEARER_TOKEN",
			},
		},
		Judge: Judge{
			Provider:              "openai",
			Model:                 "gpt-4o-mini",
			APIKeyEnv:             "OPENAI_API_KEY",
			OllamaURL:             "http://localhost:11434",
			MaxOutputTokens:       400,
			UseConversationMemory: true,
			ParseMode:             "strict",
			GoldExamplesLimit:     20,
		},
		Pipeline: Pipeline{Delay: 2 * time.Second},
		Metrics: Metrics{
			Limit:          50,
			StaleAfter:      6 * time.Hour,
			BearerTokenEnv:  "X_BEARER_TOKEN",
			ClientIDEnv:     "X_CLIENT_ID",
			ClientSecretEnv: "X_CLIENT_SECRET",
		},
		Server:  Server{Port: 8000},
		Logging: Logging{Level: "info", MaxSizeMB: 20, MaxBackups: 3, MaxAgeDays: 28},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LogLevels are the accepted logging.level values, matched case-insensitively.
// An empty level means info.
var LogLevels = []string{"debug", "info", "warn", "warning", "error"}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("loglevel", func(fl validator.FieldLevel) bool {
		level := strings.ToLower(strings.TrimSpace(fl.Field().String()))
		return level == "" || slices.Contains(LogLevels, level)
	})
	return v
}

// Validate checks field constraints declared on the config structs.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// XTokenPath returns the OAuth2 token file location: metrics.token_path, then
// $X_TOKEN_PATH, then x_tokens.json in the data directory.
func (c *Config) XTokenPath() string {
	if c.Metrics.TokenPath != "" {
		return c.Metrics.TokenPath
	}
	if p := os.Getenv("X_TOKEN_PATH"); p != "" {
		return p
	}
	return filepath.Join(c.GetDataDir(), "x_tokens.json")
}

// DBPath returns the SQLite store location.
func (c *Config) DBPath() string {
	return filepath.Join(c.GetDataDir(), "tweetcurator.db")
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
