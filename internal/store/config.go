package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"breeze-trading-bot/internal/broker/breeze"
	"breeze-trading-bot/internal/types"
)

const (
	DefaultEnvironment = "development"
	DefaultTimeout     = 30 * time.Second
	DefaultUserAgent   = "breeze-trading-bot"
)

var validate = validator.New()

type Config struct {
	HTTP struct {
		Timeout   time.Duration `yaml:"timeout" validate:"gt=0"`
		UserAgent string        `yaml:"user_agent" validate:"required"`
		Debug     bool          `yaml:"debug"`
	} `yaml:"http"`
	Session struct {
		Validity    time.Duration `yaml:"validity" validate:"gt=0"`
		StorePath   string        `yaml:"store_path"`
		StoreKeyEnv string        `yaml:"store_key_env"`
	} `yaml:"session"`
	Endpoints struct {
		Session   string `yaml:"session" validate:"required,startswith=/"`
		Logout    string `yaml:"logout" validate:"required,startswith=/"`
		Funds     string `yaml:"funds" validate:"required,startswith=/"`
		Portfolio string `yaml:"portfolio" validate:"required,startswith=/"`
		Orders    string `yaml:"orders" validate:"required,startswith=/"`
	} `yaml:"endpoints"`
}

// DefaultConfig returns the settings used when no config file exists.
func DefaultConfig() *Config {
	var c Config
	c.applyDefaults()
	return &c
}

func (c *Config) applyDefaults() {
	if c.HTTP.Timeout == 0 {
		c.HTTP.Timeout = DefaultTimeout
	}
	if c.HTTP.UserAgent == "" {
		c.HTTP.UserAgent = DefaultUserAgent
	}
	if c.Session.Validity == 0 {
		c.Session.Validity = breeze.DefaultValidity
	}
	if c.Session.StoreKeyEnv == "" {
		c.Session.StoreKeyEnv = "BREEZE_STORE_KEY"
	}
	def := breeze.DefaultEndpoints()
	if c.Endpoints.Session == "" {
		c.Endpoints.Session = def.Session
	}
	if c.Endpoints.Logout == "" {
		c.Endpoints.Logout = def.Logout
	}
	if c.Endpoints.Funds == "" {
		c.Endpoints.Funds = def.Funds
	}
	if c.Endpoints.Portfolio == "" {
		c.Endpoints.Portfolio = def.Portfolio
	}
	if c.Endpoints.Orders == "" {
		c.Endpoints.Orders = def.Orders
	}
}

// BreezeEndpoints converts the endpoint settings for the session manager.
func (c *Config) BreezeEndpoints() breeze.Endpoints {
	return breeze.Endpoints{
		Session:   c.Endpoints.Session,
		Logout:    c.Endpoints.Logout,
		Funds:     c.Endpoints.Funds,
		Portfolio: c.Endpoints.Portfolio,
		Orders:    c.Endpoints.Orders,
	}
}

func (c *Config) Validate() error {
	return validate.Struct(c)
}

// LoadConfig reads client settings from path. A missing file is not an
// error; the defaults are returned instead.
func LoadConfig(path string) (*Config, error) {
	var c Config
	b, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &c, nil
}

// LoadCredentials reads the BREEZE_* environment variables. Missing
// required values are reported by ValidateCredentials, not here.
func LoadCredentials() types.Credentials {
	return types.Credentials{
		APIKey:       os.Getenv("BREEZE_API_KEY"),
		SecretKey:    os.Getenv("BREEZE_SECRET_KEY"),
		SessionToken: os.Getenv("BREEZE_SESSION_TOKEN"),
		AccountID:    os.Getenv("BREEZE_ACCOUNT_ID"),
		BaseURL:      getEnv("BREEZE_BASE_URL", breeze.DefaultBaseURL),
		Environment:  getEnv("ENVIRONMENT", DefaultEnvironment),
	}
}

// ValidateCredentials reports every required variable that is unset.
func ValidateCredentials(c types.Credentials) error {
	var missing []string
	if c.APIKey == "" {
		missing = append(missing, "BREEZE_API_KEY")
	}
	if c.SecretKey == "" {
		missing = append(missing, "BREEZE_SECRET_KEY")
	}
	if c.SessionToken == "" {
		missing = append(missing, "BREEZE_SESSION_TOKEN")
	}
	if c.AccountID == "" {
		missing = append(missing, "BREEZE_ACCOUNT_ID")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid credentials: %w", err)
	}
	return nil
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
