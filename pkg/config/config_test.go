package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smukkama/airquality-server/internal/provider"
)

func noProvidersFile(t *testing.T) {
	t.Helper()
	t.Setenv("PROVIDERS_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
}

func TestLoad_Defaults(t *testing.T) {
	noProvidersFile(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "migrations", cfg.Database.MigrationsDir)
	assert.True(t, cfg.Kafka.Enabled)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "airquality.ingestion.log", cfg.Kafka.TopicIngestionLog)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "@every 30m", cfg.Jobs.IngestionSchedule)
	assert.Equal(t, "0 2 * * *", cfg.Jobs.AggregationSchedule)
	assert.Equal(t, "@every 1m", cfg.Jobs.AlertSchedule)
	assert.Equal(t, 10*time.Second, cfg.Ingestion.FetchTimeout)
	assert.Equal(t, 5*time.Second, cfg.Ingestion.WriteTimeout)
	assert.False(t, cfg.Ingestion.AutoCreateStations)
	assert.Equal(t, 5*time.Minute, cfg.Alerting.RecencyWindow)
	assert.Equal(t, 30*time.Minute, cfg.Alerting.Cooldown)
	assert.Equal(t, CooldownMemory, cfg.Alerting.CooldownBackend)
	assert.False(t, cfg.Telegram.Enabled())
	assert.False(t, cfg.SMTP.Enabled())
	assert.Equal(t, 10*time.Second, cfg.SMTP.Timeout)
	assert.Equal(t, 10*time.Second, cfg.Telegram.Timeout)

	require.Len(t, cfg.Providers, 3)
	assert.Equal(t, provider.KindAQICN, cfg.Providers[0].Kind)
	assert.Equal(t, provider.KindGoogle, cfg.Providers[1].Kind)
	assert.Equal(t, provider.KindIQAir, cfg.Providers[2].Kind)
}

func TestLoad_CustomEnv(t *testing.T) {
	noProvidersFile(t)
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("KAFKA_BROKERS", "broker1:9092, broker2:9092")
	t.Setenv("INGESTION_SCHEDULE", "*/15 * * * *")
	t.Setenv("PROVIDER_FETCH_TIMEOUT", "3s")
	t.Setenv("INGEST_AUTO_CREATE_STATIONS", "true")
	t.Setenv("ALERT_COOLDOWN", "1h")
	t.Setenv("COOLDOWN_BACKEND", "Redis")
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_CHAT_ID", "-100")
	t.Setenv("TELEGRAM_TIMEOUT", "4s")
	t.Setenv("SMTP_TIMEOUT", "20s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "*/15 * * * *", cfg.Jobs.IngestionSchedule)
	assert.Equal(t, 3*time.Second, cfg.Ingestion.FetchTimeout)
	assert.True(t, cfg.Ingestion.AutoCreateStations)
	assert.Equal(t, time.Hour, cfg.Alerting.Cooldown)
	assert.Equal(t, CooldownRedis, cfg.Alerting.CooldownBackend)
	assert.True(t, cfg.Telegram.Enabled())
	assert.Equal(t, 4*time.Second, cfg.Telegram.Timeout)
	assert.Equal(t, 20*time.Second, cfg.SMTP.Timeout)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		key, value, want string
	}{
		{"PROVIDER_FETCH_TIMEOUT", "-1s", "PROVIDER_FETCH_TIMEOUT"},
		{"WRITE_TIMEOUT", "0s", "WRITE_TIMEOUT"},
		{"ALERT_COOLDOWN", "-5m", "ALERT_COOLDOWN"},
		{"SMTP_TIMEOUT", "0s", "SMTP_TIMEOUT"},
		{"TELEGRAM_TIMEOUT", "-1s", "TELEGRAM_TIMEOUT"},
		{"COOLDOWN_BACKEND", "memcached", "COOLDOWN_BACKEND"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			noProvidersFile(t)
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadProviders_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "providers.yaml")
	doc := `
providers:
  - name: WAQI Bogota
    endpoint: https://api.waqi.info/feed/
    interval: 15m
    targets:
      - path: bogota/
  - name: Satellite
    kind: google
    endpoint: https://airquality.example/v1/currentConditions:lookup
    targets:
      - query: {latitude: "4.6", longitude: "-74.1"}
        station: {name: Bogota Sat, city: Bogota, latitude: 4.6, longitude: -74.1}
  - name: Mystery Feed
    endpoint: https://mystery.example/
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	providers, err := LoadProviders(path)
	require.NoError(t, err)
	require.Len(t, providers, 3)

	assert.Equal(t, provider.KindAQICN, providers[0].Kind)
	assert.Equal(t, 15*time.Minute, providers[0].Interval)
	assert.Equal(t, provider.KindGoogle, providers[1].Kind)
	assert.Equal(t, 60*time.Minute, providers[1].Interval)
	assert.Equal(t, provider.KindUnknown, providers[2].Kind)

	src := providers[1].Source()
	require.Len(t, src.Targets, 1)
	assert.Equal(t, "4.6", src.Targets[0].Query.Get("latitude"))
	require.NotNil(t, src.Targets[0].Station)
	assert.Equal(t, "Bogota Sat", src.Targets[0].Station.Name)
}

func TestParseProviders_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"bad yaml", "providers: [\n"},
		{"no name", "providers:\n  - endpoint: http://x\n"},
		{"no endpoint", "providers:\n  - name: AQICN\n"},
		{"bad kind", "providers:\n  - name: x\n    kind: openaq\n    endpoint: http://x\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseProviders([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestValidate_DuplicateProvider(t *testing.T) {
	noProvidersFile(t)
	cfg, err := Load()
	require.NoError(t, err)

	cfg.Providers = append(cfg.Providers, cfg.Providers[0])
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate provider")
}
