package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"sports-reconnect/certificate-portal/certificate-portal-backend/internal/auth"
	"sports-reconnect/certificate-portal/certificate-portal-backend/internal/batch"
	"sports-reconnect/certificate-portal/certificate-portal-backend/internal/config"
	"sports-reconnect/certificate-portal/certificate-portal-backend/internal/document"
	"sports-reconnect/certificate-portal/certificate-portal-backend/internal/generation"
	"sports-reconnect/certificate-portal/certificate-portal-backend/internal/render"
	"sports-reconnect/certificate-portal/certificate-portal-backend/internal/storage"
	"sports-reconnect/certificate-portal/certificate-portal-backend/internal/templates"
)

func main() {
	// .env is optional; real deployments use environment variables.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig("config.json")
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}

	logger := newLogger(cfg.Logging.Level)
	defer logger.Sync()

	// Database
	db, err := gorm.Open(postgres.Open(cfg.Database.GetDatabaseURL()), &gorm.Config{})
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := auth.Migrate(db); err != nil {
		logger.Fatal("failed to migrate users", zap.Error(err))
	}
	if err := templates.Migrate(db); err != nil {
		logger.Fatal("failed to migrate templates", zap.Error(err))
	}

	// Rendering pipeline
	fonts, err := render.NewFontManager(cfg.Generation.FontDirs...)
	if err != nil {
		logger.Fatal("failed to load fonts", zap.Error(err))
	}
	generator, err := batch.NewGenerator(fonts, document.NewAssembler(), cfg.Generation.MaxRows, logger)
	if err != nil {
		logger.Fatal("failed to create generator", zap.Error(err))
	}

	// Archive storage
	store, err := newArchiveStore(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize archive storage", zap.Error(err))
	}

	// Services
	authService := auth.NewService(auth.NewRepository(db), cfg.Security.JWTSecret, cfg.Security.TokenTTL, logger)
	templatesService := templates.NewService(templates.NewRepository(db), logger)
	hub := generation.NewHub(logger)
	generationService := generation.NewService(generator, store, hub, cfg.Generation.JobRetention, logger)

	sweeper := generation.NewSweeper(generationService, cfg.Generation.SweepInterval, logger)
	if err := sweeper.Start(); err != nil {
		logger.Fatal("failed to start retention sweeper", zap.Error(err))
	}

	// Router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), corsMiddleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now()})
	})

	authHandler := auth.NewHandler(authService, logger)

	api := router.Group("/api/v1")
	authHandler.RegisterRoutes(api)

	protected := api.Group("")
	protected.Use(auth.Middleware(authService))
	{
		authHandler.RegisterProtectedRoutes(protected)
		templates.NewHandler(templatesService, logger).RegisterRoutes(protected)
		generation.NewHandler(generationService, templatesService, hub, logger).RegisterRoutes(protected)
	}

	srv := &http.Server{
		Addr:         cfg.Server.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", zap.Error(err))
		}
	}()

	logger.Info("server started", zap.String("addr", srv.Addr))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	sweeper.Stop()
	hub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exiting")
}

func newLogger(level string) *zap.Logger {
	zapCfg := zap.NewProductionConfig()
	if lvl, err := zap.ParseAtomicLevel(level); err == nil {
		zapCfg.Level = lvl
	}
	logger, err := zapCfg.Build()
	if err != nil {
		panic("failed to build logger: " + err.Error())
	}
	return logger
}

func newArchiveStore(cfg *config.Config, logger *zap.Logger) (storage.ArchiveStore, error) {
	switch cfg.Storage.Backend {
	case "s3":
		logger.Info("using s3 archive storage", zap.String("bucket", cfg.Storage.S3.Bucket))
		return storage.NewS3Store(context.Background(), cfg.Storage.S3)
	default:
		logger.Info("using local archive storage", zap.String("dir", cfg.Storage.LocalDir))
		return storage.NewLocalStore(cfg.Storage.LocalDir)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
