package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	AppEnv         string
	HTTPAddr       string
	MigrationsPath string

	// Hosted Postgres convenience:
	// - DATABASE_URL: runtime connection (often PgBouncer/pooler)
	// - DIRECT_URL: direct connection for migrations
	DatabaseURL string
	DirectURL   string

	DB DBConfig

	// AllowedOrigins is a comma-separated allowlist of origins allowed to call
	// the public vendor endpoints. Example:
	//   https://market.example.com,http://localhost:5173
	AllowedOrigins []string

	Admin   AdminConfig
	Booking BookingConfig
	Upload  UploadConfig
	Seed    SeedConfig
}

type DBConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string

	// Pool sizing; zero keeps the pgxpool default.
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

type AdminConfig struct {
	// JWTSecret signs admin bearer tokens. Must be set outside dev.
	JWTSecret string
	TokenTTL  time.Duration
}

type BookingConfig struct {
	// BlockingStatuses is the raw status list; booking.ParsePolicy validates it.
	BlockingStatuses []string
	AllowCancel      bool
}

type UploadConfig struct {
	Dir        string
	MaxBytes   int64
	PublicPath string
}

type SeedConfig struct {
	AdminUsername string
	AdminPassword string
}

func Load() Config {
	// Convenience for local dev: load variables from .env if present.
	// In production, rely on real environment variables.
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("APP_ENV", "dev")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_NAME", "marketstall")
	v.SetDefault("DB_USER", "marketstall")
	v.SetDefault("DB_PASSWORD", "marketstall")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 1)
	v.SetDefault("DB_MAX_CONN_LIFETIME", "30m")
	v.SetDefault("DB_MAX_CONN_IDLE_TIME", "5m")
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:4173")
	v.SetDefault("ADMIN_JWT_SECRET", "dev-only-secret")
	v.SetDefault("ADMIN_TOKEN_TTL", "12h")
	v.SetDefault("BOOKING_BLOCKING_STATUSES", "pending,pending_verification,approved,paid")
	v.SetDefault("BOOKING_ALLOW_CANCEL", true)
	v.SetDefault("UPLOAD_DIR", "uploads")
	v.SetDefault("UPLOAD_MAX_BYTES", 16<<20)
	v.SetDefault("UPLOAD_PUBLIC_PATH", "/uploads")
	v.SetDefault("SEED_ADMIN_USERNAME", "admin")
	v.SetDefault("SEED_ADMIN_PASSWORD", "admin123")

	return Config{
		AppEnv:         v.GetString("APP_ENV"),
		HTTPAddr:       httpAddr(v),
		MigrationsPath: v.GetString("MIGRATIONS_PATH"),
		DatabaseURL:    v.GetString("DATABASE_URL"),
		DirectURL:      v.GetString("DIRECT_URL"),
		DB: DBConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			Name:     v.GetString("DB_NAME"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			SSLMode:  v.GetString("DB_SSLMODE"),

			MaxConns:        v.GetInt32("DB_MAX_CONNS"),
			MinConns:        v.GetInt32("DB_MIN_CONNS"),
			MaxConnLifetime: v.GetDuration("DB_MAX_CONN_LIFETIME"),
			MaxConnIdleTime: v.GetDuration("DB_MAX_CONN_IDLE_TIME"),
		},
		AllowedOrigins: splitList(v.GetString("ALLOWED_ORIGINS")),
		Admin: AdminConfig{
			JWTSecret: v.GetString("ADMIN_JWT_SECRET"),
			TokenTTL:  v.GetDuration("ADMIN_TOKEN_TTL"),
		},
		Booking: BookingConfig{
			BlockingStatuses: splitList(v.GetString("BOOKING_BLOCKING_STATUSES")),
			AllowCancel:      v.GetBool("BOOKING_ALLOW_CANCEL"),
		},
		Upload: UploadConfig{
			Dir:        v.GetString("UPLOAD_DIR"),
			MaxBytes:   v.GetInt64("UPLOAD_MAX_BYTES"),
			PublicPath: v.GetString("UPLOAD_PUBLIC_PATH"),
		},
		Seed: SeedConfig{
			AdminUsername: v.GetString("SEED_ADMIN_USERNAME"),
			AdminPassword: v.GetString("SEED_ADMIN_PASSWORD"),
		},
	}
}

// Cloud Run sets PORT. Prefer it when HTTP_ADDR isn't explicitly set.
func httpAddr(v *viper.Viper) string {
	if addr := v.GetString("HTTP_ADDR"); addr != "" {
		return addr
	}
	if port := v.GetString("PORT"); port != "" {
		return ":" + port
	}
	return ":8081"
}

func splitList(csv string) []string {
	var out []string
	for _, s := range strings.Split(csv, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
