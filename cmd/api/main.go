package main

import (
	"io"
	"log"
	"os"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/dosecerta/dosecerta-backend/internal/config"
	"github.com/dosecerta/dosecerta-backend/internal/domain"
	"github.com/dosecerta/dosecerta-backend/internal/logging"
	miniostore "github.com/dosecerta/dosecerta-backend/internal/repository/minio"
	"github.com/dosecerta/dosecerta-backend/internal/repository/postgres"
	redisstore "github.com/dosecerta/dosecerta-backend/internal/repository/redis"
	"github.com/dosecerta/dosecerta-backend/internal/service"
	transport "github.com/dosecerta/dosecerta-backend/internal/transport/http"
	"github.com/dosecerta/dosecerta-backend/internal/transport/mail"
	"github.com/dosecerta/dosecerta-backend/internal/transport/payment"
	"github.com/dosecerta/dosecerta-backend/internal/util"
)

func main() {
	cfg := config.Load()

	if cfg.LogstashTCPAddr != "" {
		writer, err := logging.NewLogstashWriter(cfg.LogstashTCPAddr, logging.WriterOptions{})
		if err != nil {
			log.Printf("logstash disabled: %v", err)
		} else {
			defer writer.Close()
			log.SetOutput(io.MultiWriter(os.Stdout, writer))
		}
	}

	db, err := postgres.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect to postgres: %v", err)
	}
	defer db.Close()

	redisClient := goredis.NewClient(&goredis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisClient.Close()

	minioClient, err := miniostore.NewClient(cfg.MinIOEndpoint, cfg.MinIOAccessKey, cfg.MinIOSecretKey, cfg.MinIOUseSSL)
	if err != nil {
		log.Fatalf("connect to minio: %v", err)
	}

	users := postgres.NewUserRepo(db)
	tokens := postgres.NewVerificationTokenRepo(db)
	sessions := postgres.NewSessionRepo(db)
	subscriptions := postgres.NewSubscriptionRepo(db)
	payments := postgres.NewPaymentRepo(db)
	limiter := redisstore.NewFixedWindowLimiter(redisClient, "dosecerta:rl", 10, time.Hour)

	dispatcher := mail.NewDispatcher(
		mail.NewResendMailer(cfg.ResendAPIKey, cfg.ResendFrom),
		mail.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom),
		mail.NewConsoleMailer(),
	)

	tokenSvc := service.NewTokenService(tokens, users, service.TokenServiceConfig{
		EmailVerificationTTL: parseDuration(cfg.EmailVerificationTTL, service.EmailVerificationTTL),
		PasswordResetTTL:     parseDuration(cfg.PasswordResetTTL, service.PasswordResetTTL),
	})

	sessionTTL := parseDuration(cfg.SessionTTL, 24*time.Hour)
	authSvc := service.NewAuthService(users, sessions, tokenSvc, dispatcher,
		util.NewJWTManager(cfg.JWTSecret, sessionTTL),
		service.AuthServiceConfig{
			GoogleAudience:  cfg.GoogleAudience,
			FrontendBaseURL: cfg.FrontendBaseURL,
			SessionTTL:      sessionTTL,
		})

	billingSvc := service.NewBillingService(payments, subscriptions,
		payment.NewClient(cfg.AbacatePayAPIKey),
		service.BillingServiceConfig{
			PlanPrices: map[domain.PlanType]int64{
				domain.PlanMonthly: cfg.PlanPriceMonthlyCents,
				domain.PlanAnnual:  cfg.PlanPriceAnnualCents,
			},
		})

	storageSvc := service.NewStorageService(miniostore.NewStorage(minioClient), service.StorageServiceConfig{
		Bucket:        cfg.MinIOBucketAvatar,
		PublicBaseURL: cfg.MinIOPublicURL,
		MaxBytes:      cfg.AvatarMaxBytes,
	})

	e := transport.NewRouter(cfg.AllowOrigins)
	transport.RegisterSwagger(e)
	transport.RegisterAuth(e, authSvc, limiter)
	transport.RegisterUsers(e, authSvc, users, storageSvc)
	transport.RegisterBilling(e, authSvc, billingSvc, cfg.AbacatePayWebhookSecret)

	e.Logger.Fatal(e.Start(":" + cfg.Port))
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		log.Printf("invalid duration %q, using %s", raw, fallback)
		return fallback
	}
	return d
}
