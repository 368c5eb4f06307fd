package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/princinho/videotube/config"
	"github.com/princinho/videotube/controllers"
	"github.com/princinho/videotube/database"
	"github.com/princinho/videotube/repository"
	"github.com/princinho/videotube/routes"
	"github.com/princinho/videotube/services"
	"github.com/princinho/videotube/storage"
	"github.com/princinho/videotube/utils"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("invalid config: %v", err)
	}
	configureLogger(logger, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := database.Connect(ctx, cfg.Mongo.URI)
	if err != nil {
		logger.Fatalf("mongo: %v", err)
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			logger.Warnf("mongo disconnect: %v", err)
		}
	}()
	logger.Infof("connected to mongo database %s", cfg.Mongo.Database)

	users := repository.NewMongoUserRepository(client.Database(cfg.Mongo.Database))
	if err := users.EnsureIndexes(ctx); err != nil {
		logger.Fatalf("mongo indexes: %v", err)
	}

	uploader, err := buildStorage(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("setup storage: %v", err)
	}

	// Validate already checked both expiries.
	accessTTL, _ := cfg.AccessTTL()
	refreshTTL, _ := cfg.RefreshTTL()
	tokens := utils.NewTokenManager(cfg.Auth.AccessTokenSecret, cfg.Auth.RefreshTokenSecret, accessTTL, refreshTTL)

	userController := controllers.NewUserController(
		users,
		tokens,
		services.NewTokenService(users, tokens, logger),
		uploader,
		utils.NewImageValidator(cfg.Upload.MaxSizeMB),
		controllers.CookieConfig{Secure: cfg.Cookie.Secure, Domain: cfg.Cookie.Domain},
		logger,
	)

	allowedOrigins := cfg.AllowedOrigins()
	logger.Infof("allowed origins: %v", allowedOrigins)

	gin.SetMode(gin.ReleaseMode)
	router := routes.NewRouter(routes.Deps{
		Users:          users,
		Tokens:         tokens,
		Controller:     userController,
		AllowedOrigins: allowedOrigins,
		Logger:         logger,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}
	logger.Info("bye")
}

func configureLogger(logger *logrus.Logger, cfg config.Config) {
	if level, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
		logger.SetLevel(level)
	} else {
		logger.Warnf("unknown log level %q, keeping %s", cfg.Log.Level, logger.GetLevel())
	}
	if cfg.Log.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
}

func buildStorage(ctx context.Context, cfg config.Config, logger *logrus.Logger) (storage.Uploader, error) {
	switch cfg.Storage.Provider {
	case "gcs":
		logger.Infof("using gcs bucket %s", cfg.Storage.Bucket)
		gcs, err := storage.NewGCSUploader(ctx, cfg.Storage.Bucket, cfg.Storage.CredentialsFile)
		if err != nil {
			return nil, err
		}
		return gcs, nil
	default:
		logger.Infof("using s3 bucket %s (region %s)", cfg.Storage.Bucket, cfg.Storage.Region)
		s3, err := storage.NewS3Uploader(ctx, storage.S3Config{
			Bucket:          cfg.Storage.Bucket,
			Endpoint:        cfg.Storage.Endpoint,
			Region:          cfg.Storage.Region,
			AccessKeyID:     cfg.Storage.AccessKeyID,
			SecretAccessKey: cfg.Storage.SecretAccessKey,
			PublicDomain:    cfg.Storage.PublicDomain,
		})
		if err != nil {
			return nil, err
		}
		return s3, nil
	}
}
