package app

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("APP_TIMEZONE", "America/Sao_Paulo")
	t.Setenv("CARRIER_ORDER", "DHL,Transbritto,Garcia")
	t.Setenv("CARRIER_PARTIES", "DHL:Gabrielly,Transbritto:Joana")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.False(t, cfg.IsProduction())
	require.Equal(t, []string{"DHL", "Transbritto", "Garcia"}, cfg.CarrierOrder)
	require.Equal(t, "unassigned", cfg.UnassignedLabel)
	require.Equal(t, "America/Sao_Paulo", cfg.Location().String())

	engineCfg := cfg.EngineConfig()
	require.Equal(t, language.BrazilianPortuguese, engineCfg.Locale)
	require.Equal(t, cfg.CarrierOrder, engineCfg.CarrierOrder)

	dir := cfg.PartyDirectory()
	party, ok := dir.Lookup(" transbritto ")
	require.True(t, ok)
	require.Equal(t, "Joana", party)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	cases := map[string]map[string]string{
		"timezone": {"APP_TIMEZONE": "Mars/Olympus"},
		"locale":   {"COLLATION_LOCALE": "not a locale!"},
		"level":    {"LOG_LEVEL": "verbose"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			require.Error(t, err)
		})
	}
}

func TestConfigTodayUsesBusinessTimezone(t *testing.T) {
	t.Setenv("APP_TIMEZONE", "America/Sao_Paulo")
	cfg, err := LoadConfig()
	require.NoError(t, err)

	// 01:30 UTC is still the previous evening in Sao Paulo.
	now := time.Date(2024, time.March, 15, 1, 30, 0, 0, time.UTC)
	require.Equal(t, "2024-03-14", cfg.Today(now).String())

	var bare *Config
	require.Equal(t, "2024-03-15", bare.Today(now).String())
}

func TestNewLoggerHonoursFormatAndLevel(t *testing.T) {
	buf := new(bytes.Buffer)
	logger := NewLoggerTo(buf, &Config{LogFormat: "json", LogLevel: "warn", AppEnv: "production"})

	logger.Info("hidden")
	logger.Warn("shown", slog.String("carrier", "DHL"))
	require.False(t, logger.Enabled(context.Background(), slog.LevelInfo))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "shown", entry["msg"])
	require.Equal(t, "DHL", entry["carrier"])
	require.NotContains(t, entry, "source")
}
