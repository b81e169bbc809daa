package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port            string
	DatabaseURL     string
	JWTSecret       string
	GoogleAudience  string
	AllowOrigins    []string
	LogstashTCPAddr string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	MinIOEndpoint     string
	MinIOAccessKey    string
	MinIOSecretKey    string
	MinIOUseSSL       bool
	MinIOBucketAvatar string
	MinIOPublicURL    string

	SessionTTL           string
	FrontendBaseURL      string
	EmailVerificationTTL string
	PasswordResetTTL     string

	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	SMTPUseTLS   bool

	ResendAPIKey string
	ResendFrom   string

	AbacatePayAPIKey        string
	AbacatePayWebhookSecret string
	PlanPriceMonthlyCents   int64
	PlanPriceAnnualCents    int64

	AvatarMaxBytes int64
}

func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	redisDB := 0
	if v, err := strconv.Atoi(getenv("REDIS_DB", "0")); err == nil && v >= 0 {
		redisDB = v
	}

	avatarMax := int64(5 * 1024 * 1024)
	if v, err := strconv.ParseInt(getenv("AVATAR_MAX_BYTES", "5242880"), 10, 64); err == nil && v > 0 {
		avatarMax = v
	}

	monthly := int64(1990)
	if v, err := strconv.ParseInt(getenv("PLAN_PRICE_MONTHLY_CENTS", "1990"), 10, 64); err == nil && v > 0 {
		monthly = v
	}
	annual := int64(19900)
	if v, err := strconv.ParseInt(getenv("PLAN_PRICE_ANNUAL_CENTS", "19900"), 10, 64); err == nil && v > 0 {
		annual = v
	}

	return Config{
		Port:            getenv("PORT", "8080"),
		DatabaseURL:     must("DATABASE_URL"),
		JWTSecret:       must("JWT_SECRET"),
		GoogleAudience:  getenv("GOOGLE_AUDIENCE", ""),
		LogstashTCPAddr: getenv("LOGSTASH_TCP_ADDR", ""),
		AllowOrigins:    splitAndTrim(getenv("ALLOW_ORIGINS", "*")),

		RedisAddr:     must("REDIS_ADDR"),
		RedisPassword: getenv("REDIS_PASSWORD", ""),
		RedisDB:       redisDB,

		MinIOEndpoint:     must("MINIO_ENDPOINT"),
		MinIOAccessKey:    must("MINIO_ACCESS_KEY"),
		MinIOSecretKey:    must("MINIO_SECRET_KEY"),
		MinIOUseSSL:       getenv("MINIO_USE_SSL", "false") == "true",
		MinIOBucketAvatar: getenv("MINIO_BUCKET_AVATAR", "dosecerta-avatars"),
		MinIOPublicURL:    getenv("MINIO_PUBLIC_URL", ""),

		SessionTTL:           getenv("SESSION_TTL", "24h"),
		FrontendBaseURL:      getenv("FRONTEND_BASE_URL", "https://dosecerta.app"),
		EmailVerificationTTL: getenv("EMAIL_VERIFICATION_TTL", "24h"),
		PasswordResetTTL:     getenv("PASSWORD_RESET_TTL", "1h"),

		SMTPHost:     getenv("SMTP_HOST", ""),
		SMTPPort:     getenv("SMTP_PORT", ""),
		SMTPUsername: getenv("SMTP_USERNAME", ""),
		SMTPPassword: getenv("SMTP_PASSWORD", ""),
		SMTPFrom:     getenv("SMTP_FROM", ""),
		SMTPUseTLS:   getenv("SMTP_USE_TLS", "false") == "true",

		ResendAPIKey: getenv("RESEND_API_KEY", ""),
		ResendFrom:   getenv("RESEND_FROM", ""),

		AbacatePayAPIKey:        must("ABACATEPAY_API_KEY"),
		AbacatePayWebhookSecret: must("ABACATEPAY_WEBHOOK_SECRET"),
		PlanPriceMonthlyCents:   monthly,
		PlanPriceAnnualCents:    annual,

		AvatarMaxBytes: avatarMax,
	}
}

func splitAndTrim(input string) []string {
	parts := strings.Split(input, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func must(k string) string {
	v := os.Getenv(k)
	if v == "" {
		panic("missing env: " + k)
	}
	return v
}
