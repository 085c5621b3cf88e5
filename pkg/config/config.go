package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Platform  PlatformConfig
	Redis     RedisConfig
	Stripe    StripeConfig
	R2        R2Config
	Email     EmailConfig
	Cron      CronConfig
	Log       LogConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port string
	Env  string
	// TrustedProxies may set X-Forwarded-* headers. Empty trusts nobody.
	TrustedProxies []string
}

type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// DSN returns the PostgreSQL connection string. DATABASE_URL wins when set.
func (c DatabaseConfig) DSN() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

type JWTConfig struct {
	Secret          string
	ExpirationHours int
}

type PlatformConfig struct {
	// BaseDomain is the suffix of store subdomains, e.g. "example.app".
	BaseDomain string
	Scheme     string
	TrialPlan  string
	TrialDays  int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	// PricePlans maps Stripe price IDs to plan names.
	PricePlans map[string]string
	SuccessURL string
	CancelURL  string
}

type R2Config struct {
	AccountID string
	AccessKey string
	SecretKey string
	Bucket    string
	CDNBase   string
	// LocalDir stores uploads on disk when R2 is not configured.
	LocalDir  string
}

type EmailConfig struct {
	ResendAPIKey string
	From         string
}

type CronConfig struct {
	DowngradeSchedule string
	WarningSchedule   string
}

type LogConfig struct {
	Level string
}

type RateLimitConfig struct {
	Max    int
	Window time.Duration
}

func Load() *Config {
	godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "3000"),
			Env:            getEnv("APP_ENV", "development"),
			TrustedProxies: getEnvAsList("TRUSTED_PROXIES"),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", ""),
			DBName:          getEnv("DB_NAME", "storefront"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 100),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", time.Hour),
		},
		JWT: JWTConfig{
			Secret:          getEnv("JWT_SECRET", "your-secret-key"),
			ExpirationHours: getEnvAsInt("JWT_EXPIRATION_HOURS", 24),
		},
		Platform: PlatformConfig{
			BaseDomain: strings.ToLower(getEnv("PLATFORM_BASE_DOMAIN", "localhost")),
			Scheme:     getEnv("PLATFORM_SCHEME", "https"),
			TrialPlan:  getEnv("TRIAL_PLAN", "PRO"),
			TrialDays:  getEnvAsInt("TRIAL_DAYS", 14),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			TTL:      getEnvAsDuration("TENANT_CACHE_TTL", 5*time.Minute),
		},
		Stripe: StripeConfig{
			SecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
			WebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
			PricePlans:    getEnvAsMap("STRIPE_PRICE_PLANS"),
			SuccessURL:    getEnv("STRIPE_SUCCESS_URL", "http://localhost:3000/billing/success"),
			CancelURL:     getEnv("STRIPE_CANCEL_URL", "http://localhost:3000/billing/cancelled"),
		},
		R2: R2Config{
			AccountID: getEnv("R2_ACCOUNT_ID", ""),
			AccessKey: getEnv("R2_ACCESS_KEY", ""),
			SecretKey: getEnv("R2_SECRET_KEY", ""),
			Bucket:    getEnv("R2_BUCKET_NAME", ""),
			CDNBase:   getEnv("R2_CDN_BASE", ""),
			LocalDir:  getEnv("UPLOAD_DIR", ""),
		},
		Email: EmailConfig{
			ResendAPIKey: getEnv("RESEND_API_KEY", ""),
			From:         getEnv("EMAIL_FROM", "Storefront <noreply@localhost>"),
		},
		Cron: CronConfig{
			DowngradeSchedule: getEnv("CRON_DOWNGRADE_SCHEDULE", "0 3 * * *"),
			WarningSchedule:   getEnv("CRON_WARNING_SCHEDULE", "0 9 * * *"),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		RateLimit: RateLimitConfig{
			Max:    getEnvAsInt("RATE_LIMIT_MAX", 120),
			Window: getEnvAsDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
	}
}

// LogFields returns the non-secret parts of the configuration for startup logging.
func (c *Config) LogFields() []zap.Field {
	return []zap.Field{
		zap.String("environment", c.Server.Env),
		zap.String("port", c.Server.Port),
		zap.Strings("trusted_proxies", c.Server.TrustedProxies),
		zap.String("db_host", c.Database.Host),
		zap.String("db_name", c.Database.DBName),
		zap.String("base_domain", c.Platform.BaseDomain),
		zap.Bool("tenant_cache", c.Redis.Addr != ""),
		zap.Bool("stripe", c.Stripe.SecretKey != ""),
		zap.Bool("email", c.Email.ResendAPIKey != ""),
		zap.Int("stripe_prices", len(c.Stripe.PricePlans)),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList parses "a, b,c", dropping empty entries.
func getEnvAsList(key string) []string {
	var out []string
	for _, item := range strings.Split(getEnv(key, ""), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// getEnvAsMap parses "k1=v1,k2=v2".
func getEnvAsMap(key string) map[string]string {
	out := make(map[string]string)
	for _, pair := range strings.Split(getEnv(key, ""), ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || k == "" {
			continue
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return out
}
