package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"fintrack/internal/budget"
	"fintrack/internal/core"
)

type Config struct {
	// HTTP Server
	Port            string
	ShutdownTimeout time.Duration

	// Form submissions per client and minute, 0 disables
	RateLimitPerMinute int

	// Storage
	DataBackend  string
	DataFile     string
	SQLiteDBPath string

	// AMQP (empty URL disables events)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Logging
	LogLevel  string
	LogFormat string

	// Default monthly ceilings per category
	Budgets core.Budgets

	problems []string
}

var validBackends = []string{"csv", "sqlite", "memory"}

// BudgetKey returns the setting name holding the default ceiling for c, e.g. BUDGET_FOOD.
func BudgetKey(c core.Category) string {
	return "BUDGET_" + strings.ToUpper(string(c))
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("PORT", "8081")
	v.SetDefault("SHUTDOWN_TIMEOUT", "30s")
	v.SetDefault("RATE_LIMIT_PER_MINUTE", 120)
	v.SetDefault("DATA_BACKEND", "csv")
	v.SetDefault("DATA_FILE", "transactions.csv")
	v.SetDefault("SQLITE_DB_PATH", "./data/fintrack.db")
	v.SetDefault("AMQP_URL", "")
	v.SetDefault("AMQP_EXCHANGE", "fintrack")
	v.SetDefault("AMQP_QUEUE", "transaction_events")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	for c, ceiling := range budget.Defaults() {
		v.SetDefault(BudgetKey(c), strconv.FormatInt(ceiling, 10))
	}
	v.AutomaticEnv()
	return v
}

// Load reads defaults, the optional CONFIG_FILE and the environment, in increasing precedence.
func Load() (*Config, error) {
	v := newViper()
	if file := v.GetString("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", file, err)
		}
	}
	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{
		Port:               v.GetString("PORT"),
		RateLimitPerMinute: v.GetInt("RATE_LIMIT_PER_MINUTE"),
		DataBackend:        strings.ToLower(v.GetString("DATA_BACKEND")),
		DataFile:           v.GetString("DATA_FILE"),
		SQLiteDBPath:       v.GetString("SQLITE_DB_PATH"),
		AMQPURL:            v.GetString("AMQP_URL"),
		AMQPExchange:       v.GetString("AMQP_EXCHANGE"),
		AMQPQueue:          v.GetString("AMQP_QUEUE"),
		LogLevel:           v.GetString("LOG_LEVEL"),
		LogFormat:          v.GetString("LOG_FORMAT"),
		Budgets:            make(core.Budgets),
	}

	raw := v.GetString("SHUTDOWN_TIMEOUT")
	if d, err := time.ParseDuration(raw); err == nil {
		cfg.ShutdownTimeout = d
	} else {
		cfg.problems = append(cfg.problems, fmt.Sprintf("invalid shutdown timeout '%s': %v", raw, err))
	}

	for _, c := range core.Categories() {
		key := BudgetKey(c)
		raw := strings.TrimSpace(v.GetString(key))
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			cfg.problems = append(cfg.problems, fmt.Sprintf("invalid %s '%s': must be a whole number", key, raw))
			continue
		}
		cfg.Budgets[c] = n
	}
	return cfg
}

// EventsEnabled reports whether a broker is configured.
func (c *Config) EventsEnabled() bool {
	return c.AMQPURL != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	errors := append([]string(nil), c.problems...)

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case "csv":
		if c.DataFile == "" {
			errors = append(errors, "data file cannot be empty when using csv backend")
		}
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	for cat, ceiling := range c.Budgets {
		if ceiling < 0 {
			errors = append(errors, fmt.Sprintf("invalid %s %d: must not be negative", BudgetKey(cat), ceiling))
		}
	}

	if c.RateLimitPerMinute < 0 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must not be negative", c.RateLimitPerMinute))
	}

	if c.ShutdownTimeout < 0 {
		errors = append(errors, fmt.Sprintf("invalid shutdown timeout %v: must not be negative", c.ShutdownTimeout))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}
