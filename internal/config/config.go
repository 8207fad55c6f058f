package config

import (
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Store     StoreConfig
	Backend   BackendConfig
	Till      TillConfig
	JWT       JWTConfig
	Printer   PrinterConfig
	Email     EmailConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
	Log       LogConfig
	Metrics   MetricsConfig
}

type AppConfig struct {
	Name  string
	Env   string
	Port  string
	Debug bool
}

type DatabaseConfig struct {
	Driver   string // sqlite or postgres
	Path     string // sqlite file path
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
	Timezone string
}

// StoreConfig selects where the cart snapshot lives.
type StoreConfig struct {
	CartDriver string // leveldb or sql
	CartPath   string
}

type BackendConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// TillConfig holds the settlement rules that vary per deployment.
type TillConfig struct {
	WalkInCustomer      string
	DefaultUnit         string
	CreditMode          string
	PointValue          decimal.Decimal
	MobileModePatterns  []string
	DraftReconcileDelay time.Duration
}

type JWTConfig struct {
	Secret string
}

type PrinterConfig struct {
	Type      string
	USBPath   string
	Address   string
	StoreName string
	Width     int
}

type EmailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	FromName     string
	FromEmail    string
}

type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

type RateLimitConfig struct {
	Requests int
	Duration int
}

type LogConfig struct {
	Level string
	File  string
}

type MetricsConfig struct {
	Enabled bool
}

func Load() *Config {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables: %v", err)
	}

	// Set defaults
	viper.SetDefault("APP_NAME", "investify-till")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("APP_PORT", "8090")
	viper.SetDefault("APP_DEBUG", true)
	viper.SetDefault("DB_DRIVER", "sqlite")
	viper.SetDefault("DB_PATH", "./data/till.db")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_NAME", "investify_till")
	viper.SetDefault("DB_USER", "postgres")
	viper.SetDefault("DB_PASSWORD", "")
	viper.SetDefault("DB_SSL_MODE", "disable")
	viper.SetDefault("DB_TIMEZONE", "Africa/Nairobi")
	viper.SetDefault("CART_STORE_DRIVER", "leveldb")
	viper.SetDefault("CART_STORE_PATH", "./data/carts")
	viper.SetDefault("BACKEND_BASE_URL", "http://localhost:8080/api/v1")
	viper.SetDefault("BACKEND_API_KEY", "")
	viper.SetDefault("BACKEND_TIMEOUT_SECONDS", 15)
	viper.SetDefault("TILL_WALK_IN_CUSTOMER", "Walk-in Customer")
	viper.SetDefault("TILL_DEFAULT_UNIT", "Nos")
	viper.SetDefault("TILL_CREDIT_MODE", "credit")
	viper.SetDefault("TILL_POINT_VALUE", "1")
	viper.SetDefault("TILL_MOBILE_MODE_PATTERNS", "mpesa,m-pesa,till,paybill,mobile")
	viper.SetDefault("TILL_DRAFT_RECONCILE_DELAY_MS", 1500)
	viper.SetDefault("JWT_SECRET", "change-this-secret-in-production")
	viper.SetDefault("PRINTER_TYPE", "none")
	viper.SetDefault("PRINTER_STORE_NAME", "Investify Store")
	viper.SetDefault("PRINTER_WIDTH", 32)
	viper.SetDefault("SMTP_PORT", 587)
	viper.SetDefault("SMTP_FROM_NAME", "Investify")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	viper.SetDefault("CORS_ALLOWED_HEADERS", []string{})
	viper.SetDefault("RATE_LIMIT_REQUESTS", 100)
	viper.SetDefault("RATE_LIMIT_DURATION", 60)
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FILE", "")
	viper.SetDefault("METRICS_ENABLED", true)

	pointValue, err := decimal.NewFromString(viper.GetString("TILL_POINT_VALUE"))
	if err != nil {
		log.Printf("Warning: invalid TILL_POINT_VALUE %q, using 1: %v", viper.GetString("TILL_POINT_VALUE"), err)
		pointValue = decimal.NewFromInt(1)
	}

	return &Config{
		App: AppConfig{
			Name:  viper.GetString("APP_NAME"),
			Env:   viper.GetString("APP_ENV"),
			Port:  viper.GetString("APP_PORT"),
			Debug: viper.GetBool("APP_DEBUG"),
		},
		Database: DatabaseConfig{
			Driver:   viper.GetString("DB_DRIVER"),
			Path:     viper.GetString("DB_PATH"),
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			Name:     viper.GetString("DB_NAME"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			SSLMode:  viper.GetString("DB_SSL_MODE"),
			Timezone: viper.GetString("DB_TIMEZONE"),
		},
		Store: StoreConfig{
			CartDriver: viper.GetString("CART_STORE_DRIVER"),
			CartPath:   viper.GetString("CART_STORE_PATH"),
		},
		Backend: BackendConfig{
			BaseURL: viper.GetString("BACKEND_BASE_URL"),
			APIKey:  viper.GetString("BACKEND_API_KEY"),
			Timeout: time.Duration(viper.GetInt("BACKEND_TIMEOUT_SECONDS")) * time.Second,
		},
		Till: TillConfig{
			WalkInCustomer:      viper.GetString("TILL_WALK_IN_CUSTOMER"),
			DefaultUnit:         viper.GetString("TILL_DEFAULT_UNIT"),
			CreditMode:          viper.GetString("TILL_CREDIT_MODE"),
			PointValue:          pointValue,
			MobileModePatterns:  splitList(viper.GetString("TILL_MOBILE_MODE_PATTERNS")),
			DraftReconcileDelay: time.Duration(viper.GetInt("TILL_DRAFT_RECONCILE_DELAY_MS")) * time.Millisecond,
		},
		JWT: JWTConfig{
			Secret: viper.GetString("JWT_SECRET"),
		},
		Printer: PrinterConfig{
			Type:      viper.GetString("PRINTER_TYPE"),
			USBPath:   viper.GetString("PRINTER_USB_PATH"),
			Address:   viper.GetString("PRINTER_ADDRESS"),
			StoreName: viper.GetString("PRINTER_STORE_NAME"),
			Width:     viper.GetInt("PRINTER_WIDTH"),
		},
		Email: EmailConfig{
			SMTPHost:     viper.GetString("SMTP_HOST"),
			SMTPPort:     viper.GetInt("SMTP_PORT"),
			SMTPUsername: viper.GetString("SMTP_USERNAME"),
			SMTPPassword: viper.GetString("SMTP_PASSWORD"),
			FromName:     viper.GetString("SMTP_FROM_NAME"),
			FromEmail:    viper.GetString("SMTP_FROM_EMAIL"),
		},
		CORS: CORSConfig{
			AllowedOrigins: viper.GetStringSlice("CORS_ALLOWED_ORIGINS"),
			AllowedMethods: viper.GetStringSlice("CORS_ALLOWED_METHODS"),
			AllowedHeaders: viper.GetStringSlice("CORS_ALLOWED_HEADERS"),
		},
		RateLimit: RateLimitConfig{
			Requests: viper.GetInt("RATE_LIMIT_REQUESTS"),
			Duration: viper.GetInt("RATE_LIMIT_DURATION"),
		},
		Log: LogConfig{
			Level: viper.GetString("LOG_LEVEL"),
			File:  viper.GetString("LOG_FILE"),
		},
		Metrics: MetricsConfig{
			Enabled: viper.GetBool("METRICS_ENABLED"),
		},
	}
}

func (c *DatabaseConfig) DSN() string {
	return "host=" + c.Host +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.Name +
		" port=" + c.Port +
		" sslmode=" + c.SSLMode +
		" TimeZone=" + c.Timezone
}

// EmailEnabled reports whether receipts can be mailed.
func (c *EmailConfig) EmailEnabled() bool {
	return c.SMTPHost != "" && c.FromEmail != ""
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, strings.ToLower(p))
		}
	}
	return out
}
