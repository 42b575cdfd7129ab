package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"ecom-service/config"
	"ecom-service/internal/api"
	"ecom-service/internal/auth"
	"ecom-service/internal/broker"
	"ecom-service/internal/media"
	"ecom-service/internal/notifier"
	"ecom-service/internal/redisclient"
	"ecom-service/internal/service"
	"ecom-service/internal/store"
	"ecom-service/internal/util"
	"ecom-service/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if err := util.InitLogger(cfg.Server.Env, cfg.Observ.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting ecom service", zap.String("env", cfg.Server.Env))

	tp, err := util.InitTracer("ecom-service", cfg.Observ.JaegerEndpoint, cfg.Server.Env)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	ctx := context.Background()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Database connected")

	if cfg.Database.AutoMigrate {
		if err := db.Migrate(ctx); err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}
		log.Println("Database schema applied")
	}

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Redis connected")

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicEvents)
	defer producer.Close()
	log.Println("Kafka producer initialized")

	eventPublisher := broker.NewEventPublisher(producer)

	storage, mediaDir, err := newStorage(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to initialize media storage: %v", err)
	}

	mailer := newMailer(ctx, cfg.Mail, logger)

	var google service.IdentityProvider
	if cfg.OAuth.ClientID != "" {
		gp, err := auth.NewGoogleProvider(ctx, cfg.OAuth.Issuer, cfg.OAuth.ClientID, cfg.OAuth.ClientSecret, cfg.OAuth.RedirectURL)
		if err != nil {
			logger.Warn("Google login disabled", zap.Error(err))
		} else {
			google = gp
		}
	}

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	cartService := service.NewCartService(db)
	services := api.Services{
		Auth:      service.NewAuthService(db, redisClient, tokens, google, cfg.Auth),
		Catalog:   service.NewCatalogService(db, redisClient, storage),
		Products:  service.NewProductService(db, redisClient, eventPublisher, storage, cfg.Business),
		Carts:     cartService,
		Wishlists: service.NewWishlistService(db, cartService),
		Orders:    service.NewOrderService(db, redisClient, eventPublisher, cfg.Business),
		Customers: service.NewCustomerService(db),
		Devices:   service.NewDeviceService(db),
	}
	notifications := service.NewNotificationService(db, mailer, cfg.Mail.AdminEmail)
	feed := api.NewFeedHub(cfg.CORS.AllowedOrigins)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	notificationConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicEvents, cfg.Kafka.NotificationGroup)
	notificationWorker := worker.NewNotificationWorker(notificationConsumer, notifications)
	go func() {
		if err := notificationWorker.Start(workerCtx); err != nil && err != context.Canceled {
			log.Printf("Notification worker error: %v", err)
		}
	}()

	// every instance needs every event for its own websocket clients
	feedConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicEvents, feedGroupID(cfg.Kafka.FeedGroup))
	feedWorker := worker.NewOrderFeedWorker(feedConsumer, feed)
	go func() {
		if err := feedWorker.Start(workerCtx); err != nil && err != context.Canceled {
			log.Printf("Order feed worker error: %v", err)
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(services, feed, map[string]api.Pinger{
		"postgres": db,
		"redis":    redisClient,
	}, api.Options{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		PublicSiteURL:  cfg.Server.PublicSiteURL,
		PublicAPIURL:   cfg.Server.PublicAPIURL,
		MediaDir:       mediaDir,
		MediaURL:       cfg.Storage.PublicBaseURL,
		OAuthRedirect:  cfg.OAuth.FrontendRedirect,
		MaxUploadBytes: cfg.Business.MaxUploadSizeMegabytes << 20,
	})
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	feed.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	workerCancel()
	notificationWorker.Stop()
	feedWorker.Stop()

	log.Println("Server exited")
}

// newStorage returns the media backend and, for local storage, the
// directory the router should serve.
func newStorage(ctx context.Context, cfg config.StorageConfig) (media.Storage, string, error) {
	if cfg.Backend == "s3" {
		s3, err := media.NewS3Storage(ctx, cfg.S3Bucket, cfg.S3Region, cfg.PublicBaseURL)
		if err != nil {
			return nil, "", err
		}
		return s3, "", nil
	}
	local, err := media.NewLocalStorage(cfg.UploadDir, cfg.PublicBaseURL)
	if err != nil {
		return nil, "", err
	}
	// an absolute base URL means something else serves the directory
	if !strings.HasPrefix(cfg.PublicBaseURL, "/") {
		return local, "", nil
	}
	return local, local.Dir(), nil
}

func newMailer(ctx context.Context, cfg config.MailConfig, logger *zap.Logger) notifier.Mailer {
	if cfg.SenderEmail == "" {
		logger.Warn("SENDER_EMAIL not set, emails will only be logged")
		return notifier.NewLogMailer()
	}
	ses, err := notifier.NewSESMailer(ctx, cfg.Region, cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SenderEmail)
	if err != nil {
		logger.Warn("SES mailer unavailable, emails will only be logged", zap.Error(err))
		return notifier.NewLogMailer()
	}
	return ses
}

func feedGroupID(base string) string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return base
	}
	return base + "-" + host
}
