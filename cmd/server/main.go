package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/safework-pro/qr-registration-backend/internal/config"
	"github.com/safework-pro/qr-registration-backend/internal/database"
	"github.com/safework-pro/qr-registration-backend/internal/handlers"
	"github.com/safework-pro/qr-registration-backend/internal/middleware"
	"github.com/safework-pro/qr-registration-backend/internal/services"
	"github.com/safework-pro/qr-registration-backend/pkg/jwt"
	"github.com/safework-pro/qr-registration-backend/pkg/qrcode"
	"github.com/sirupsen/logrus"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting SafeWork Pro QR Registration Backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Set log level
	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Set Gin mode
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Initialize database connection
	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	// The token repository runs multi-statement transactions, so it needs the
	// underlying *sqlx.DB rather than the DB interface
	postgres, ok := db.(*database.PostgresDB)
	if !ok {
		logger.Fatal("Failed to cast database connection to PostgresDB")
	}

	// Initialize repositories
	tokenRepository := database.NewRegistrationTokenRepository(postgres.DB)
	workerRepository := database.NewWorkerRepository(db)
	logRepository := database.NewRegistrationLogRepository(db)
	adminRepository := database.NewAdminUserRepository(db)

	// Initialize services
	logger.Info("Initializing services...")
	jwtService := jwt.NewService(cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry)
	auditService := services.NewAuditService(logRepository, cfg.Security.EnableAuditLog)
	rateLimitService := services.NewRateLimitService(db, cfg.RateLimit.MaxRequestsPerIP, cfg.RateLimit.Window)
	encoder := qrcode.NewPNGEncoder(cfg.Registration.QRImageSize)
	registrationService := services.NewRegistrationService(
		tokenRepository,
		workerRepository,
		auditService,
		encoder,
		cfg.Registration,
	)
	authService := services.NewAuthService(adminRepository, jwtService)
	logger.Info("Services initialized")

	// Initialize handlers
	registrationHandler := handlers.NewRegistrationHandler(registrationService, rateLimitService, auditService, logger)
	adminTokenHandler := handlers.NewAdminTokenHandler(registrationService, auditService, logger)
	adminAuthHandler := handlers.NewAdminAuthHandler(authService, logger)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))

	// CORS configuration
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint
	router.GET("/health", healthCheckHandler(db))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Public registration routes. The token in the URL is the credential.
		public := v1.Group("/qr-register")
		{
			public.GET("/:token", registrationHandler.ValidateToken)
			public.POST("/:token/complete", registrationHandler.CompleteRegistration)
		}

		// Admin routes
		admin := v1.Group("/admin")
		{
			admin.POST("/auth/login", adminAuthHandler.Login)

			protected := admin.Group("")
			protected.Use(middleware.AuthMiddleware(jwtService))
			{
				protected.GET("/auth/profile", adminAuthHandler.GetProfile)

				tokens := protected.Group("/qr-tokens")
				{
					tokens.POST("", adminTokenHandler.IssueToken)
					tokens.GET("", adminTokenHandler.ListTokens)
					tokens.GET("/stats", adminTokenHandler.GetStats)
					tokens.GET("/:token", adminTokenHandler.GetToken)
					tokens.POST("/:token/cancel", adminTokenHandler.CancelToken)
					tokens.POST("/:token/reissue", adminTokenHandler.ReissueToken)
					tokens.GET("/:token/logs", adminTokenHandler.GetTokenLogs)
				}
			}
		}
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}

// requestLogger middleware for logging HTTP requests
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		fields := logrus.Fields{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       path,
			"query":      query,
			"ip":         c.ClientIP(),
			"latency_ms": latency.Milliseconds(),
			"user_agent": c.Request.UserAgent(),
		}

		if adminCtx, exists := middleware.GetAdminContext(c); exists {
			fields["admin_id"] = adminCtx.AdminID
		}

		entry := logger.WithFields(fields)

		if len(c.Errors) > 0 {
			for i, err := range c.Errors {
				entry = entry.WithField(fmt.Sprintf("error_%d", i), err.Error())
			}
			entry.Error("Request failed with errors")
		} else {
			status := c.Writer.Status()
			if status >= 500 {
				entry.Error("Request completed with server error")
			} else if status >= 400 {
				entry.Warn("Request completed with client error")
			} else {
				entry.Info("Request completed successfully")
			}
		}
	}
}

// healthCheckHandler returns a health check endpoint
func healthCheckHandler(db database.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "unhealthy",
				"error":    err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"database":  "healthy",
			"version":   version,
			"timestamp": time.Now().Unix(),
		})
	}
}
