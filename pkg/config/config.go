package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database     DatabaseConfig
	Redis        RedisConfig
	Kafka        KafkaConfig
	HTTP         HTTPConfig
	Log          LogConfig
	Jobs         JobsConfig
	Ingestion    IngestionConfig
	Alerting     AlertingConfig
	SMTP         SMTPConfig
	Telegram     TelegramConfig
	Providers    []ProviderConfig
	ProvidersSrc string
}

type DatabaseConfig struct {
	Host          string
	Port          int
	User          string
	Password      string
	DBName        string
	SSLMode       string
	MigrationsDir string
}

func (d DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// KafkaConfig configures the audit log and in-app feed producers. With
// KAFKA_ENABLED=false both fall back to logging and a disabled channel.
type KafkaConfig struct {
	Enabled           bool
	Brokers           []string
	TopicIngestionLog string
	TopicInApp        string
}

type HTTPConfig struct {
	Addr            string
	ShutdownTimeout time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

// JobsConfig holds the cron specs of the three batch jobs. Specs accept the
// standard five-field form and descriptors such as "@every 30m".
type JobsConfig struct {
	IngestionSchedule   string
	AggregationSchedule string
	AlertSchedule       string
	Timeout             time.Duration
}

type IngestionConfig struct {
	FetchTimeout       time.Duration
	WriteTimeout       time.Duration
	AutoCreateStations bool
}

const (
	CooldownMemory = "memory"
	CooldownRedis  = "redis"
)

type AlertingConfig struct {
	RecencyWindow   time.Duration
	Cooldown        time.Duration
	CooldownBackend string
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration // bounds dial and the whole SMTP exchange
}

// Enabled reports whether enough is configured to send mail
func (s SMTPConfig) Enabled() bool {
	return s.Host != "" && s.From != ""
}

type TelegramConfig struct {
	BotToken string
	ChatID   string
	APIURL   string
	Timeout  time.Duration
}

// Enabled reports whether the bot credentials are present
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	config := &Config{
		Database: DatabaseConfig{
			Host:          getEnv("DB_HOST", "localhost"),
			Port:          getEnvAsInt("DB_PORT", 5432),
			User:          getEnv("DB_USER", "airquality_user"),
			Password:      getEnv("DB_PASSWORD", "airquality_pass"),
			DBName:        getEnv("DB_NAME", "airquality_db"),
			SSLMode:       getEnv("DB_SSLMODE", "disable"),
			MigrationsDir: getEnv("MIGRATIONS_DIR", "migrations"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Enabled:           getEnvAsBool("KAFKA_ENABLED", true),
			Brokers:           splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),
			TopicIngestionLog: getEnv("KAFKA_TOPIC_INGESTION_LOG", "airquality.ingestion.log"),
			TopicInApp:        getEnv("KAFKA_TOPIC_INAPP", "airquality.notifications.inapp"),
		},
		HTTP: HTTPConfig{
			Addr:            getEnv("HTTP_ADDR", ":8080"),
			ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Jobs: JobsConfig{
			IngestionSchedule:   getEnv("INGESTION_SCHEDULE", "@every 30m"),
			AggregationSchedule: getEnv("AGGREGATION_SCHEDULE", "0 2 * * *"),
			AlertSchedule:       getEnv("ALERT_SCHEDULE", "@every 1m"),
			Timeout:             getEnvAsDuration("JOB_TIMEOUT", 10*time.Minute),
		},
		Ingestion: IngestionConfig{
			FetchTimeout:       getEnvAsDuration("PROVIDER_FETCH_TIMEOUT", 10*time.Second),
			WriteTimeout:       getEnvAsDuration("WRITE_TIMEOUT", 5*time.Second),
			AutoCreateStations: getEnvAsBool("INGEST_AUTO_CREATE_STATIONS", false),
		},
		Alerting: AlertingConfig{
			RecencyWindow:   getEnvAsDuration("ALERT_RECENCY_WINDOW", 5*time.Minute),
			Cooldown:        getEnvAsDuration("ALERT_COOLDOWN", 30*time.Minute),
			CooldownBackend: strings.ToLower(getEnv("COOLDOWN_BACKEND", CooldownMemory)),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getEnvAsInt("SMTP_PORT", 587),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", "alerts@airquality.local"),
			Timeout:  getEnvAsDuration("SMTP_TIMEOUT", 10*time.Second),
		},
		Telegram: TelegramConfig{
			BotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
			ChatID:   getEnv("TELEGRAM_CHAT_ID", ""),
			APIURL:   getEnv("TELEGRAM_API_URL", "https://api.telegram.org"),
			Timeout:  getEnvAsDuration("TELEGRAM_TIMEOUT", 10*time.Second),
		},
	}

	config.ProvidersSrc = getEnv("PROVIDERS_FILE", "configs/providers.yaml")
	providers, err := LoadProviders(config.ProvidersSrc)
	if err != nil {
		return nil, err
	}
	config.Providers = providers

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate rejects settings the pipeline cannot run with
func (c *Config) Validate() error {
	var errs []error

	if c.Database.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.Ingestion.FetchTimeout <= 0 {
		errs = append(errs, errors.New("PROVIDER_FETCH_TIMEOUT must be positive"))
	}
	if c.Ingestion.WriteTimeout <= 0 {
		errs = append(errs, errors.New("WRITE_TIMEOUT must be positive"))
	}
	if c.SMTP.Timeout <= 0 {
		errs = append(errs, errors.New("SMTP_TIMEOUT must be positive"))
	}
	if c.Telegram.Timeout <= 0 {
		errs = append(errs, errors.New("TELEGRAM_TIMEOUT must be positive"))
	}
	if c.Jobs.Timeout <= 0 {
		errs = append(errs, errors.New("JOB_TIMEOUT must be positive"))
	}
	if c.Alerting.RecencyWindow <= 0 {
		errs = append(errs, errors.New("ALERT_RECENCY_WINDOW must be positive"))
	}
	if c.Alerting.Cooldown <= 0 {
		errs = append(errs, errors.New("ALERT_COOLDOWN must be positive"))
	}
	switch c.Alerting.CooldownBackend {
	case CooldownMemory, CooldownRedis:
	default:
		errs = append(errs, fmt.Errorf("unknown COOLDOWN_BACKEND %q", c.Alerting.CooldownBackend))
	}

	seen := make(map[string]bool, len(c.Providers))
	for _, p := range c.Providers {
		if seen[p.Name] {
			errs = append(errs, fmt.Errorf("duplicate provider %q", p.Name))
		}
		seen[p.Name] = true
	}

	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
