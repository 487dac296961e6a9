package config

import "os"

type Config struct {
	Server   ServerConfig
	Auth     AuthConfig
	Cart     CartConfig
	Mailer   MailerConfig
	Postgres PostgresConfig
	Redis    RedisConfig
}

type ServerConfig struct {
	Port           string
	AllowedOrigins string
}

type AuthConfig struct {
	JWTSecret        string
	SessionTTL       string
	ResetTTL         string
	RefreshThreshold string
}

type CartConfig struct {
	HoldTTL    string
	MaxItems   string
	SweepEvery string
}

type MailerConfig struct {
	RelayURL string
	APIKey   string
	From     string
}

type PostgresConfig struct {
	DatabaseURL string
	Host        string
	Port        string
	User        string
	Password    string
	Database    string
	SSLMode     string
}

type RedisConfig struct {
	Addr     string
	Password string
}

func Load() Config {
	return Config{
		Server: ServerConfig{
			Port:           getenv("PORT", "8080"),
			AllowedOrigins: os.Getenv("ALLOWED_ORIGINS"),
		},
		Auth: AuthConfig{
			JWTSecret:        os.Getenv("JWT_SECRET"),
			SessionTTL:       getenv("SESSION_TOKEN_TTL", "24h"),
			ResetTTL:         getenv("RESET_TOKEN_TTL", "24h"),
			RefreshThreshold: getenv("TOKEN_REFRESH_THRESHOLD", "15m"),
		},
		Cart: CartConfig{
			HoldTTL:    getenv("CART_HOLD_TTL", "24h"),
			MaxItems:   getenv("CART_MAX_ITEMS", "20"),
			SweepEvery: getenv("CART_SWEEP_INTERVAL", "15m"),
		},
		Mailer: MailerConfig{
			RelayURL: os.Getenv("MAIL_RELAY_URL"),
			APIKey:   os.Getenv("MAIL_API_KEY"),
			From:     getenv("MAIL_FROM", "no-reply@staynest.io"),
		},
		Postgres: PostgresConfig{
			DatabaseURL: os.Getenv("DATABASE_URL"),
			Host:        getenv("PGHOST", "localhost"),
			Port:        getenv("PGPORT", "5432"),
			User:        os.Getenv("PGUSER"),
			Password:    os.Getenv("PGPASSWORD"),
			Database:    os.Getenv("PGDATABASE"),
			SSLMode:     getenv("PGSSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_URL"),
			Password: os.Getenv("REDIS_PASSWORD"),
		},
	}
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
