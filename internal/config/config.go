package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage and notifier backends.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	NotifierMemory  = "memory"
	NotifierKafka   = "kafka"
)

type Config struct {
	Port         string `mapstructure:"PORT"`
	Env          string `mapstructure:"ENV"`
	LogLevel     string `mapstructure:"LOG_LEVEL"`
	StoreBackend string `mapstructure:"STORE_BACKEND"`

	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32  `mapstructure:"DB_MIN_CONNS"`

	DBHealthCheckPeriod time.Duration `mapstructure:"DB_HEALTH_CHECK_PERIOD"`
	DBMaxConnIdleTime   time.Duration `mapstructure:"DB_MAX_CONN_IDLE_TIME"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	Notifier           string   `mapstructure:"NOTIFIER"`
	KafkaBrokers       []string `mapstructure:"KAFKA_BROKERS"`
	KafkaReminderTopic string   `mapstructure:"KAFKA_REMINDER_TOPIC"`

	CatalogFile              string        `mapstructure:"CATALOG_FILE"`
	RefreshInterval          time.Duration `mapstructure:"REFRESH_INTERVAL"`
	DispatchInterval         time.Duration `mapstructure:"DISPATCH_INTERVAL"`
	ReminderHour             int           `mapstructure:"REMINDER_HOUR"`
	LMPDueDateToleranceDays  int           `mapstructure:"LMP_DUE_DATE_TOLERANCE_DAYS"`
	UltrasoundToleranceWeeks float64       `mapstructure:"ULTRASOUND_TOLERANCE_WEEKS"`
	AllowLateCompletion      bool          `mapstructure:"ALLOW_LATE_COMPLETION"`
	ClinicWhatsAppNumber     string        `mapstructure:"CLINIC_WHATSAPP_NUMBER"`

	AuthIssuer     string   `mapstructure:"AUTH_ISSUER"`
	AuthAudience   string   `mapstructure:"AUTH_AUDIENCE"`
	AuthSigningKey string   `mapstructure:"AUTH_SIGNING_KEY"`
	CORSOrigins    []string `mapstructure:"CORS_ORIGINS"`
}

var keys = []string{
	"PORT", "ENV", "LOG_LEVEL", "STORE_BACKEND",
	"DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"DB_HEALTH_CHECK_PERIOD", "DB_MAX_CONN_IDLE_TIME",
	"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
	"NOTIFIER", "KAFKA_BROKERS", "KAFKA_REMINDER_TOPIC",
	"CATALOG_FILE", "REFRESH_INTERVAL", "DISPATCH_INTERVAL", "REMINDER_HOUR",
	"LMP_DUE_DATE_TOLERANCE_DAYS", "ULTRASOUND_TOLERANCE_WEEKS",
	"ALLOW_LATE_COMPLETION", "CLINIC_WHATSAPP_NUMBER",
	"AUTH_ISSUER", "AUTH_AUDIENCE", "AUTH_SIGNING_KEY", "CORS_ORIGINS",
}

// Load reads the environment and an optional .env file in the working
// directory. It does not validate; call Validate before serving.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("STORE_BACKEND", BackendMemory)
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("DB_HEALTH_CHECK_PERIOD", "1m")
	v.SetDefault("DB_MAX_CONN_IDLE_TIME", "30m")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("NOTIFIER", NotifierMemory)
	v.SetDefault("KAFKA_REMINDER_TOPIC", "exam_reminders")
	v.SetDefault("REFRESH_INTERVAL", "24h")
	v.SetDefault("DISPATCH_INTERVAL", "1m")
	v.SetDefault("REMINDER_HOUR", 9)
	v.SetDefault("LMP_DUE_DATE_TOLERANCE_DAYS", 14)
	v.SetDefault("ULTRASOUND_TOLERANCE_WEEKS", 2)
	v.SetDefault("ALLOW_LATE_COMPLETION", false)
	v.SetDefault("CLINIC_WHATSAPP_NUMBER", "+5511913561616")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")

	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// .env is optional
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// comma-separated lists arrive as a single element from the environment
	cfg.CORSOrigins = splitList(v.GetString("CORS_ORIGINS"))
	cfg.KafkaBrokers = splitList(v.GetString("KAFKA_BROKERS"))

	return cfg, nil
}

func splitList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate checks that the selected backends have what they need and that
// the engine settings are usable.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendMemory:
	case BackendRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required when STORE_BACKEND is %q", BackendRedis)
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_BACKEND is %q", BackendPostgres)
		}
		if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
			return fmt.Errorf("DB_MIN_CONNS (%d) and DB_MAX_CONNS (%d) must satisfy 0 <= min <= max, max > 0",
				c.DBMinConns, c.DBMaxConns)
		}
	default:
		return fmt.Errorf("STORE_BACKEND must be %q, %q or %q, got %q",
			BackendMemory, BackendRedis, BackendPostgres, c.StoreBackend)
	}

	switch c.Notifier {
	case NotifierMemory:
	case NotifierKafka:
		if len(c.KafkaBrokers) == 0 {
			return fmt.Errorf("KAFKA_BROKERS is required when NOTIFIER is %q", NotifierKafka)
		}
		if c.KafkaReminderTopic == "" {
			return fmt.Errorf("KAFKA_REMINDER_TOPIC must not be empty")
		}
	default:
		return fmt.Errorf("NOTIFIER must be %q or %q, got %q", NotifierMemory, NotifierKafka, c.Notifier)
	}

	if c.ReminderHour < 0 || c.ReminderHour > 23 {
		return fmt.Errorf("REMINDER_HOUR must be between 0 and 23, got %d", c.ReminderHour)
	}
	if c.LMPDueDateToleranceDays <= 0 {
		return fmt.Errorf("LMP_DUE_DATE_TOLERANCE_DAYS must be positive, got %d", c.LMPDueDateToleranceDays)
	}
	if c.UltrasoundToleranceWeeks <= 0 {
		return fmt.Errorf("ULTRASOUND_TOLERANCE_WEEKS must be positive, got %v", c.UltrasoundToleranceWeeks)
	}
	if c.RefreshInterval <= 0 || c.DispatchInterval <= 0 {
		return fmt.Errorf("REFRESH_INTERVAL and DISPATCH_INTERVAL must be positive")
	}
	if !c.IsDev() && c.AuthSigningKey == "" {
		return fmt.Errorf("AUTH_SIGNING_KEY must be set when ENV=%q; "+
			"refusing to start without authentication", c.Env)
	}
	return nil
}
