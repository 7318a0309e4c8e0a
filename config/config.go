package config

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	aws_pkg "github.com/antonioqueb/ooak/pkg/aws"
	"github.com/joho/godotenv"
)

// Ledger backends for order sync deduplication.
const (
	LedgerMemory   = "memory"
	LedgerRedis    = "redis"
	LedgerPostgres = "postgres"
)

type Config struct {
	Port        string
	Env         string
	FrontendURL string

	// Stripe
	StripeSecretKey     string
	StripeWebhookSecret string
	StripeTimeout       time.Duration
	CheckoutCurrency    string
	ShippingCountries   []string

	// ERP (Odoo)
	ERPBaseURL   string
	ERPPublicURL string
	ERPAPIToken  string
	ERPOrderPath string
	ERPTimeout   time.Duration

	// Caching and dedup
	RedisURL        string
	ContentCacheTTL time.Duration
	SyncLedger      string
	SyncClaimTTL    time.Duration
	CartIdleTTL     time.Duration

	// Postgres, only read when SyncLedger is "postgres"
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresHost     string
	PostgresPort     string
	PostgresSSLMode  string
	PostgresTimeZone string

	// Events; Kafka wins when brokers are set
	OrderSNSTopicARN string
	KafkaBrokers     []string
	OrderKafkaTopic  string

	// AWS
	CloudWatchEnabled bool
	UseAWSSecrets     bool

	AllowedOrigins []string
	RequestTimeout time.Duration
}

// LoadConfig reads configuration from the environment (and .env when present),
// applies the Secrets Manager override when AWS_USE_SECRETS=true, and validates.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("[Storefront] No .env file found, using environment variables")
	}

	cfg := FromEnv()

	if cfg.UseAWSSecrets {
		awsCfg, err := aws_pkg.LoadAWSConfig(context.Background())
		if err != nil {
			return nil, fmt.Errorf("secrets override: %w", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		ApplySecrets(ctx, cfg, aws_pkg.NewSecretsClient(awsCfg))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv builds a Config from environment variables only.
func FromEnv() *Config {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		Env:         getEnv("APP_ENV", "development"),
		FrontendURL: strings.TrimSuffix(getEnv("FRONTEND_URL", "http://localhost:3000"), "/"),

		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		StripeTimeout:       getDuration("STRIPE_TIMEOUT", 15*time.Second),
		CheckoutCurrency:    strings.ToLower(getEnv("CHECKOUT_CURRENCY", "mxn")),
		ShippingCountries:   splitList(getEnv("CHECKOUT_SHIPPING_COUNTRIES", "MX,US,CA"), strings.ToUpper),

		ERPBaseURL:   strings.TrimSuffix(getEnv("ERP_BASE_URL", "http://localhost:8069"), "/"),
		ERPPublicURL: strings.TrimSuffix(os.Getenv("ERP_PUBLIC_URL"), "/"),
		ERPAPIToken:  os.Getenv("ERP_API_TOKEN"),
		ERPOrderPath: getEnv("ERP_ORDER_PATH", "/api/shop/orders"),
		ERPTimeout:   getDuration("ERP_TIMEOUT", 10*time.Second),

		RedisURL:        os.Getenv("REDIS_URL"),
		ContentCacheTTL: getDuration("CONTENT_CACHE_TTL", 5*time.Minute),
		SyncLedger:      strings.ToLower(getEnv("SYNC_LEDGER", LedgerMemory)),
		SyncClaimTTL:    getDuration("SYNC_CLAIM_TTL", 2*time.Minute),
		CartIdleTTL:     getDuration("CART_IDLE_TTL", 24*time.Hour),

		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       os.Getenv("POSTGRES_DB"),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		PostgresTimeZone: getEnv("POSTGRES_TIMEZONE", "America/Mexico_City"),

		OrderSNSTopicARN: os.Getenv("ORDER_SNS_TOPIC_ARN"),
		KafkaBrokers:     splitList(os.Getenv("KAFKA_BROKERS"), strings.TrimSpace),
		OrderKafkaTopic:  getEnv("ORDER_KAFKA_TOPIC", "order-events"),

		CloudWatchEnabled: os.Getenv("CLOUDWATCH_ENABLED") == "true",
		UseAWSSecrets:     os.Getenv("AWS_USE_SECRETS") == "true",

		AllowedOrigins: splitList(os.Getenv("ALLOWED_ORIGINS"), func(s string) string { return strings.TrimSuffix(s, "/") }),
		RequestTimeout: getDuration("REQUEST_TIMEOUT", 30*time.Second),
	}
}

// ApplySecrets overrides the checkout secrets with values from Secrets Manager.
// Missing secrets keep the environment value.
func ApplySecrets(ctx context.Context, cfg *Config, sm aws_pkg.SecretGetter) {
	overrides := map[string]*string{
		"storefront/STRIPE_SECRET_KEY":     &cfg.StripeSecretKey,
		"storefront/STRIPE_WEBHOOK_SECRET": &cfg.StripeWebhookSecret,
		"storefront/ERP_API_TOKEN":         &cfg.ERPAPIToken,
	}
	for name, dst := range overrides {
		if v, err := sm.GetSecret(ctx, name); err == nil && v != "" {
			*dst = v
		}
	}
}

// Validate fails fast on missing secrets and inconsistent ledger settings.
func (c *Config) Validate() error {
	var missing []string
	if c.StripeSecretKey == "" {
		missing = append(missing, "STRIPE_SECRET_KEY")
	}
	if c.StripeWebhookSecret == "" {
		missing = append(missing, "STRIPE_WEBHOOK_SECRET")
	}
	if c.ERPAPIToken == "" {
		missing = append(missing, "ERP_API_TOKEN")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	switch c.SyncLedger {
	case LedgerMemory:
	case LedgerRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("SYNC_LEDGER=redis requires REDIS_URL")
		}
	case LedgerPostgres:
		if c.PostgresUser == "" || c.PostgresPassword == "" || c.PostgresDB == "" {
			return fmt.Errorf("SYNC_LEDGER=postgres requires POSTGRES_USER, POSTGRES_PASSWORD and POSTGRES_DB")
		}
	default:
		return fmt.Errorf("unknown SYNC_LEDGER %q", c.SyncLedger)
	}

	if len(c.ShippingCountries) == 0 {
		return fmt.Errorf("CHECKOUT_SHIPPING_COUNTRIES must list at least one country")
	}
	return nil
}

// PostgresDSN returns the connection string for the sync ledger database.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		c.PostgresHost, c.PostgresUser, c.PostgresPassword, c.PostgresDB, c.PostgresPort, c.PostgresSSLMode, c.PostgresTimeZone,
	)
}

// CheckoutReturnURL is the embedded checkout return URL with Stripe's session placeholder.
func (c *Config) CheckoutReturnURL() string {
	return c.FrontendURL + "/checkout/return?session_id={CHECKOUT_SESSION_ID}"
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		log.Printf("[Storefront] invalid %s=%q, using %s", key, raw, fallback)
		return fallback
	}
	return d
}

func splitList(raw string, norm func(string) string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, norm(part))
	}
	return out
}
