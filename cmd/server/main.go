package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Gahroot/the-tribunal-sub000/internal/auth"
	"github.com/Gahroot/the-tribunal-sub000/internal/calendar"
	"github.com/Gahroot/the-tribunal-sub000/internal/campaign"
	"github.com/Gahroot/the-tribunal-sub000/internal/carrier"
	"github.com/Gahroot/the-tribunal-sub000/internal/config"
	"github.com/Gahroot/the-tribunal-sub000/internal/handler"
	"github.com/Gahroot/the-tribunal-sub000/internal/provider/openai"
	"github.com/Gahroot/the-tribunal-sub000/internal/registry"
	"github.com/Gahroot/the-tribunal-sub000/internal/repository"
	"github.com/Gahroot/the-tribunal-sub000/internal/sms"
	"github.com/Gahroot/the-tribunal-sub000/pkg/logger"
	redispkg "github.com/Gahroot/the-tribunal-sub000/pkg/redis"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Info: .env file not found or skipped (expected in production): %v", err)
	}

	if _, err := logger.Init(os.Getenv("LOG_ENV")); err != nil {
		log.Printf("failed to initialize zap logger, falling back to std log: %v", err)
	}

	cfg := config.Load()
	logger.Base().Info("starting voice bridge", zap.String("pod_id", cfg.PodID), zap.String("port", cfg.Port))

	db, err := gorm.Open(postgres.Open(cfg.PostgresDSN), &gorm.Config{})
	if err != nil {
		logger.Base().Fatal("failed to connect to postgres", zap.Error(err))
	}
	repos := repository.NewGormManager(db)

	redisHost, redisPort := splitHostPort(cfg.RedisAddr)
	redisSvc, err := redispkg.NewRedisService(&redispkg.RedisConfig{
		Host:     redisHost,
		Port:     redisPort,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		logger.Base().Fatal("failed to connect to redis", zap.Error(err))
	}

	carrierClient := carrier.NewClient(cfg.CarrierAPIKey, cfg.CarrierConnectionID, cfg.TwilioAccountSID, cfg.TwilioAuthToken)
	calendarClient := calendar.NewClient(cfg.CalendarAPIKey)
	smsClient := sms.NewClient(cfg.SMSAPIKey, cfg.SMSMessagingProfileID)
	tokenIssuer := auth.NewIssuer(cfg.JWTSigningSecret, cfg.JWTTokenTTL)

	reg := registry.NewRegistry(redisSvc, cfg.PodID)
	openaiDialer := openai.Dialer{APIKey: cfg.OpenAIAPIKey}

	webhookHandler := handler.NewWebhookHandler(repos, carrierClient, calendarClient, redisSvc, reg, openaiDialer, tokenIssuer, cfg.PublicBaseURL)

	rateLimiter := campaign.NewRedisRateLimiter(redisSvc)
	dispatcher := campaign.New(repos, carrierClient, smsClient, rateLimiter, webhookHandler, campaign.Config{
		PollInterval:         cfg.CampaignPollInterval,
		BatchSize:            cfg.CampaignMaxConcurrentCalls,
		PublicBaseURL:        cfg.PublicBaseURL,
		DefaultFromNumber:    cfg.SMSFromNumber,
		MaxDispatchPerSecond: cfg.CampaignMaxDispatchPerSec,
	})

	ctx, cancel := context.WithCancel(context.Background())
	go dispatcher.Run(ctx)

	router := mux.NewRouter()
	handler.RegisterRoutes(router, webhookHandler)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Base().Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Base().Fatal("server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Base().Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Base().Error("graceful shutdown failed", zap.Error(err))
	}
	if err := repos.Close(); err != nil {
		logger.Base().Error("failed to close database connection", zap.Error(err))
	}
}

// splitHostPort splits a "host:port" address into its parts, falling back
// to the whole string as host and a default port if addr has no colon.
func splitHostPort(addr string) (string, string) {
	if idx := strings.LastIndex(addr, ":"); idx >= 0 {
		return addr[:idx], addr[idx+1:]
	}
	return addr, "6379"
}
