package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-push-gateway/internal/config"
	"github.com/go-push-gateway/internal/infrastructure/dynamo"
	"github.com/go-push-gateway/internal/infrastructure/expo"
	jwtinfra "github.com/go-push-gateway/internal/infrastructure/jwt"
	"github.com/go-push-gateway/internal/infrastructure/smtp"
	snsinfra "github.com/go-push-gateway/internal/infrastructure/sns"
	transporthttp "github.com/go-push-gateway/internal/transport/http"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(context.Background(), dynamoClient, cfg.DynamoTables)

	// JWT verifier (optional: graceful fallback if the public key is missing).
	var jwtProvider *jwtinfra.Provider
	if p, err := jwtinfra.NewProvider(cfg); err == nil {
		jwtProvider = p
	} else {
		log.Printf("WARN: JWT verifier not available: %v", err)
	}

	// Expo push provider (optional: without a credential every push send
	// degrades to a statused failure instead of crashing).
	deps := &transporthttp.Deps{
		TokenRepo:        dynamo.NewTokenRepo(dynamoClient, cfg.DynamoTables.DeviceTokens),
		TemplateRepo:     dynamo.NewTemplateRepo(dynamoClient, cfg.DynamoTables.Templates),
		NotificationRepo: dynamo.NewNotificationRepo(dynamoClient, cfg.DynamoTables.Notifications),
		Mailer:           smtp.NewMailer(cfg),
		JWTProvider:      jwtProvider,
		Logger:           logger,
	}
	if provider, err := expo.NewProvider(cfg, logger); err == nil {
		deps.Provider = provider
	} else {
		log.Printf("WARN: push provider not available: %v", err)
	}
	if sender, err := snsinfra.NewSender(cfg); err == nil {
		deps.SMSSender = sender
	} else {
		log.Printf("WARN: SNS sender not available: %v", err)
	}

	svcs := transporthttp.NewServices(deps)
	router := transporthttp.NewRouter(cfg, deps, svcs)

	// Background sweep for due scheduled notifications.
	schedCtx, stopScheduler := context.WithCancel(context.Background())
	go svcs.Scheduler.Run(schedCtx, cfg.SchedulerInterval)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s)", cfg.AppPort, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	stopScheduler()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}
