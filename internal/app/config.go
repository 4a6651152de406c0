package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"golang.org/x/text/language"

	"github.com/carrier-billing/faturas/internal/aging"
	"github.com/carrier-billing/faturas/internal/invoice"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv string `envconfig:"APP_ENV" default:"development"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	Timezone string `envconfig:"APP_TIMEZONE" default:"America/Sao_Paulo"`

	CarrierOrder    []string          `envconfig:"CARRIER_ORDER" default:"DHL,Transbritto,Garcia"`
	CarrierParties  map[string]string `envconfig:"CARRIER_PARTIES" default:"DHL:Gabrielly"`
	UnassignedLabel string            `envconfig:"UNASSIGNED_LABEL" default:"unassigned"`
	CollationLocale string            `envconfig:"COLLATION_LOCALE" default:"pt-BR"`

	InvoicesFile    string `envconfig:"INVOICES_FILE"`
	MetricsTextfile string `envconfig:"METRICS_TEXTFILE"`

	location *time.Location
	locale   language.Tag
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.resolve(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) resolve() error {
	loc, err := time.LoadLocation(strings.TrimSpace(c.Timezone))
	if err != nil {
		return fmt.Errorf("config: APP_TIMEZONE %q: %w", c.Timezone, err)
	}
	tag, err := language.Parse(strings.TrimSpace(c.CollationLocale))
	if err != nil {
		return fmt.Errorf("config: COLLATION_LOCALE %q: %w", c.CollationLocale, err)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	c.location = loc
	c.locale = tag
	return nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}

// Location returns the business timezone. Falls back to UTC for configs not
// produced by LoadConfig.
func (c *Config) Location() *time.Location {
	if c == nil || c.location == nil {
		return time.UTC
	}
	return c.location
}

// Today returns the calendar date of now in the business timezone.
func (c *Config) Today(now time.Time) invoice.Date {
	return invoice.DateOf(now.In(c.Location()))
}

// EngineConfig maps the ordering settings onto the aging engine.
func (c *Config) EngineConfig() aging.Config {
	if c == nil {
		return aging.Config{}
	}
	return aging.Config{
		CarrierOrder:    c.CarrierOrder,
		UnassignedLabel: c.UnassignedLabel,
		Locale:          c.locale,
	}
}

// PartyDirectory builds the carrier to responsible party lookup.
func (c *Config) PartyDirectory() invoice.PartyDirectory {
	if c == nil {
		return invoice.NewPartyDirectory(nil)
	}
	return invoice.NewPartyDirectory(c.CarrierParties)
}
