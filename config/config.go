package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"ecoxchange/models"

	"gopkg.in/yaml.v3"
)

// DefaultPath is used when neither a flag nor CONFIG_PATH names a file.
const DefaultPath = "./config/config.yml"

type Config struct {
	Server struct {
		Port               int      `yaml:"port"`
		AllowOrigins       []string `yaml:"allowOrigins"`
		MaxMultipartMemory int64    `yaml:"maxMultipartMemory"` // bytes held in memory while parsing uploads
	} `yaml:"server"`

	Marketplace struct {
		StartingBalance *float64        `yaml:"startingBalance"` // unset means 1000
		GaugeFull       float64         `yaml:"gaugeFull"`
		Listings        []ListingConfig `yaml:"listings"`
	} `yaml:"marketplace"`

	Evaluator struct {
		URL     string        `yaml:"url"`
		Timeout time.Duration `yaml:"timeout"` // zero waits for the evaluator indefinitely
	} `yaml:"evaluator"`

	Catalog struct {
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"catalog"`

	JWT struct {
		Secret string `yaml:"secret"`
		Expiry int    `yaml:"expiry"` // minutes
	} `yaml:"jwt"`

	Sessions struct {
		Backend       string        `yaml:"backend"` // "memory" or "redis"
		TTL           time.Duration `yaml:"ttl"`
		SweepInterval time.Duration `yaml:"sweepInterval"` // memory backend only
	} `yaml:"sessions"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Database struct {
		URI string `yaml:"uri"` // empty keeps the transaction journal in memory
	} `yaml:"database"`

	Kafka struct {
		Brokers []string `yaml:"brokers"` // empty disables event publishing
		Topic   string   `yaml:"topic"`
	} `yaml:"kafka"`

	Logging struct {
		Level       string `yaml:"level"`
		Development bool   `yaml:"development"`
	} `yaml:"logging"`
}

// ListingConfig is a buyer listing as written in the config file.
type ListingConfig struct {
	ID          string  `yaml:"id"`
	Kind        string  `yaml:"kind"`
	Title       string  `yaml:"title"`
	QuantityKWh int     `yaml:"quantityKWh"`
	Price       float64 `yaml:"price"`
}

// ResolvePath picks the config file: explicit flag, then CONFIG_PATH, then DefaultPath.
func ResolvePath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return DefaultPath
}

// LoadConfig reads the configuration file, applies defaults and environment
// overrides, and validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse builds a Config from YAML bytes.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
	}
	cfg.applyDefaults()
	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 1313
	}
	if len(c.Server.AllowOrigins) == 0 {
		c.Server.AllowOrigins = []string{"http://localhost:3000"}
	}
	if c.Server.MaxMultipartMemory == 0 {
		c.Server.MaxMultipartMemory = 32 << 20
	}
	if c.Marketplace.StartingBalance == nil {
		start := 1000.0
		c.Marketplace.StartingBalance = &start
	}
	if c.Marketplace.GaugeFull == 0 {
		c.Marketplace.GaugeFull = 2000
	}
	if len(c.Marketplace.Listings) == 0 {
		for _, l := range models.DefaultListings() {
			c.Marketplace.Listings = append(c.Marketplace.Listings, ListingConfig{
				ID:          l.ID,
				Kind:        l.Kind,
				Title:       l.Title,
				QuantityKWh: l.QuantityKWh,
				Price:       l.Price.Dollars(),
			})
		}
	}
	if c.Catalog.Timeout == 0 {
		c.Catalog.Timeout = 2 * time.Second
	}
	if c.JWT.Expiry == 0 {
		c.JWT.Expiry = 24 * 60
	}
	if c.Sessions.Backend == "" {
		c.Sessions.Backend = "memory"
	}
	if c.Sessions.TTL == 0 {
		c.Sessions.TTL = 24 * time.Hour
	}
	if c.Sessions.SweepInterval == 0 {
		c.Sessions.SweepInterval = time.Minute
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "marketplace-events"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("ECOX_EVALUATOR_URL"); v != "" {
		c.Evaluator.URL = v
	}
	if v := os.Getenv("ECOX_JWT_SECRET"); v != "" {
		c.JWT.Secret = v
	}
	if v := os.Getenv("ECOX_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
}

// Validate reports every problem found, joined into one error.
func (c *Config) Validate() error {
	var errs []error
	if c.Evaluator.URL == "" {
		errs = append(errs, errors.New("evaluator.url is required"))
	} else if u, err := url.Parse(c.Evaluator.URL); err != nil || !u.IsAbs() {
		errs = append(errs, fmt.Errorf("evaluator.url must be an absolute URL, got %q", c.Evaluator.URL))
	}
	if strings.TrimSpace(c.JWT.Secret) == "" {
		errs = append(errs, errors.New("jwt.secret is required"))
	}
	if c.Evaluator.Timeout < 0 {
		errs = append(errs, errors.New("evaluator.timeout must not be negative"))
	}
	switch c.Sessions.Backend {
	case "memory", "redis":
	default:
		errs = append(errs, fmt.Errorf("sessions.backend must be memory or redis, got %q", c.Sessions.Backend))
	}
	seen := make(map[string]bool)
	for i, l := range c.Marketplace.Listings {
		if l.ID == "" {
			errs = append(errs, fmt.Errorf("marketplace.listings[%d].id is required", i))
		} else if seen[l.ID] {
			errs = append(errs, fmt.Errorf("marketplace.listings[%d].id %q is duplicated", i, l.ID))
		}
		seen[l.ID] = true
		if err := validAmount(l.Price); err != nil {
			errs = append(errs, fmt.Errorf("marketplace.listings[%d].price %w", i, err))
		}
	}
	if c.Marketplace.StartingBalance != nil {
		if err := validAmount(*c.Marketplace.StartingBalance); err != nil {
			errs = append(errs, fmt.Errorf("marketplace.startingBalance %w", err))
		}
	}
	if err := validAmount(c.Marketplace.GaugeFull); err != nil {
		errs = append(errs, fmt.Errorf("marketplace.gaugeFull %w", err))
	}
	return errors.Join(errs...)
}

func validAmount(dollars float64) error {
	m, err := models.NewMoney(dollars)
	switch {
	case err != nil || m > models.MaxAmount:
		return fmt.Errorf("must be between $0.00 and %s", models.MaxAmount)
	case m < 0:
		return errors.New("must not be negative")
	}
	return nil
}

// Listings converts the configured listings to domain listings, in file order.
func (c *Config) Listings() []models.Listing {
	out := make([]models.Listing, 0, len(c.Marketplace.Listings))
	for _, l := range c.Marketplace.Listings {
		out = append(out, models.Listing{
			ID:          l.ID,
			Kind:        l.Kind,
			Title:       l.Title,
			QuantityKWh: l.QuantityKWh,
			Price:       models.FromFloat(l.Price),
		})
	}
	return out
}

// StartingBalance returns the balance new sessions start with.
func (c *Config) StartingBalance() models.Money {
	if c.Marketplace.StartingBalance == nil {
		return 0
	}
	return models.FromFloat(*c.Marketplace.StartingBalance)
}

// GaugeFull returns the balance that fills the balance gauge.
func (c *Config) GaugeFull() models.Money {
	return models.FromFloat(c.Marketplace.GaugeFull)
}

// TokenExpiry returns the session token lifetime.
func (c *Config) TokenExpiry() time.Duration {
	return time.Duration(c.JWT.Expiry) * time.Minute
}
