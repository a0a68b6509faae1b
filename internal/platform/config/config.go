package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var (
	errMissingAPIKey       = errors.New("config: OPENAI_API_KEY is required")
	errMissingModel        = errors.New("config: OPENAI_MODEL must not be empty")
	errInvalidPort         = errors.New("config: invalid PORT number")
	errTimeoutOutOfRange   = errors.New("config: TIMEOUT_SECONDS must be 1-300")
	errStepsOutOfRange     = errors.New("config: MAX_AGENT_STEPS must be 1-50")
	errRequestTimeoutShort = errors.New("config: REQUEST_TIMEOUT_SECONDS must not be shorter than TIMEOUT_SECONDS")
	errInvalidBrowserMode  = errors.New("config: BROWSER_MODE must be \"chrome\" or \"http\"")
)

// Browser modes.
const (
	BrowserChrome = "chrome"
	BrowserHTTP   = "http"
)

// Config holds all application configuration.
type Config struct {
	Port     string
	LogLevel string

	APIKey        string
	Model         string
	BaseURL       string
	MaxAgentSteps int

	TimeoutSeconds        int
	RequestTimeoutSeconds int
	BrowserMode           string
	ChromePath            string
	BlockPrivateNetworks  bool
	StrictPatterns        bool

	FrontendURL string
	Railway     bool
}

// NavigationTimeout is the page load budget for a single browser session.
func (c Config) NavigationTimeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// RequestTimeout bounds one full analysis run.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// AllowedOrigins lists the CORS origins the API answers to. A single "*"
// means any origin.
func (c Config) AllowedOrigins() []string {
	if c.Railway {
		return []string{"*"}
	}
	origins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	if c.FrontendURL != "" {
		origins = append(origins, strings.TrimRight(c.FrontendURL, "/"))
	}
	return origins
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config: read .env: %w", err)
	}
	return FromViper(viper.New())
}

// FromViper builds a Config from v with environment lookups enabled.
func FromViper(v *viper.Viper) (Config, error) {
	v.AutomaticEnv()
	setDefaults(v)

	cfg := Config{
		Port:     v.GetString("PORT"),
		LogLevel: v.GetString("LOG_LEVEL"),

		APIKey:        strings.TrimSpace(v.GetString("OPENAI_API_KEY")),
		Model:         strings.TrimSpace(v.GetString("OPENAI_MODEL")),
		BaseURL:       v.GetString("OPENAI_BASE_URL"),
		MaxAgentSteps: v.GetInt("MAX_AGENT_STEPS"),

		TimeoutSeconds:        v.GetInt("TIMEOUT_SECONDS"),
		RequestTimeoutSeconds: v.GetInt("REQUEST_TIMEOUT_SECONDS"),
		BrowserMode:           strings.ToLower(v.GetString("BROWSER_MODE")),
		ChromePath:            v.GetString("CHROME_PATH"),
		BlockPrivateNetworks:  v.GetBool("BLOCK_PRIVATE_NETWORKS"),
		StrictPatterns:        v.GetBool("STRICT_PATTERNS"),

		FrontendURL: v.GetString("FRONTEND_URL"),
		Railway:     v.GetString("RAILWAY_ENVIRONMENT") != "",
	}

	return cfg, cfg.validate()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8000")
	v.SetDefault("LOG_LEVEL", "INFO")
	v.SetDefault("OPENAI_MODEL", "gpt-4o-mini")
	v.SetDefault("MAX_AGENT_STEPS", 10)
	v.SetDefault("TIMEOUT_SECONDS", 30)
	v.SetDefault("REQUEST_TIMEOUT_SECONDS", 120)
	v.SetDefault("BROWSER_MODE", BrowserChrome)
	v.SetDefault("BLOCK_PRIVATE_NETWORKS", true)
	v.SetDefault("STRICT_PATTERNS", false)
}

func (c Config) validate() error {
	if c.APIKey == "" {
		return errMissingAPIKey
	}
	if c.Model == "" {
		return errMissingModel
	}

	port, err := strconv.Atoi(c.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("%w: %q", errInvalidPort, c.Port)
	}

	if c.TimeoutSeconds < 1 || c.TimeoutSeconds > 300 {
		return fmt.Errorf("%w: got %d", errTimeoutOutOfRange, c.TimeoutSeconds)
	}
	if c.MaxAgentSteps < 1 || c.MaxAgentSteps > 50 {
		return fmt.Errorf("%w: got %d", errStepsOutOfRange, c.MaxAgentSteps)
	}
	if c.RequestTimeoutSeconds < c.TimeoutSeconds {
		return fmt.Errorf("%w: %d < %d", errRequestTimeoutShort, c.RequestTimeoutSeconds, c.TimeoutSeconds)
	}

	switch c.BrowserMode {
	case BrowserChrome, BrowserHTTP:
	default:
		return fmt.Errorf("%w: got %q", errInvalidBrowserMode, c.BrowserMode)
	}

	return nil
}
