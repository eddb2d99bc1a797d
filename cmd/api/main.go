package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"permadrop/internal/blobstore"
	"permadrop/internal/config"
	"permadrop/internal/database"
	"permadrop/internal/domain/auth"
	"permadrop/internal/domain/files"
	"permadrop/internal/domain/ledger"
	"permadrop/internal/domain/paidupload"
	"permadrop/internal/middleware"
	"permadrop/internal/payment"
	"permadrop/internal/pkg/jwt"
	"permadrop/internal/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogPath)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	sugar := log.Sugar()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		sugar.Fatalw("database connection failed", "error", err)
	}

	models := append(ledger.Models(), auth.Models()...)
	if err := db.AutoMigrate(models...); err != nil {
		sugar.Fatalw("migration failed", "error", err)
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			sugar.Warnw("redis unavailable, share-link cache disabled", "addr", cfg.RedisAddr, "error", err)
			rdb = nil
		}
	}

	tokens := jwt.New(cfg.JWTSecret, cfg.JWTTTL)

	gateway := payment.NewClient(cfg.Checkout.BaseURL, cfg.Checkout.APIKey, sugar)
	blobs := blobstore.New(blobstore.Config{
		GatewayURL:        cfg.Blobstore.GatewayURL,
		PublicBaseURL:     cfg.Blobstore.PublicBaseURL,
		APIKey:            cfg.Blobstore.APIKey,
		SponsoredMaxBytes: cfg.Blobstore.SponsoredMaxBytes,
	}, sugar)

	ledgerRepo := ledger.NewRepository(db)
	authRepo := auth.NewRepository(db)

	var mailer auth.Mailer
	if cfg.SMTP.Host != "" {
		mailer = auth.NewSMTPMailer(cfg.SMTP.Host, strconv.Itoa(cfg.SMTP.Port), cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From)
	} else {
		mailer = auth.NewLogMailer(sugar)
	}

	authService := auth.NewService(authRepo, tokens, mailer, cfg.BaseURL, cfg.LoginTokenTTL, sugar)
	authHandler := auth.NewHandler(authService)

	uploadService := paidupload.NewService(
		ledgerRepo,
		gateway,
		blobs,
		paidupload.Pricing{MinPriceUSD: cfg.MinPriceUSD, PricePerMBUSD: cfg.PricePerMBUSD},
		paidupload.Limits{
			FreeMaxBytes: cfg.FreeMaxBytes,
			MaxFileBytes: cfg.MaxFileBytes,
			SuccessURL:   cfg.Checkout.SuccessURL,
			CancelURL:    cfg.Checkout.CancelURL,
		},
		sugar,
	)
	uploadHandler := paidupload.NewHandler(uploadService, sugar)

	filesService := files.NewService(ledgerRepo, blobs, rdb, cfg.FreeMaxBytes, sugar)
	filesHandler := files.NewHandler(filesService, sugar)

	if config.IsProdLike(cfg.AppEnv) {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.CORS())
	r.MaxMultipartMemory = cfg.MaxFileBytes

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	filesHandler.RegisterRedirectRoute(r)

	v1 := r.Group("/api/v1")
	{
		authHandler.RegisterRoutes(v1)

		public := v1.Group("/")
		public.Use(middleware.OptionalAuth(tokens))
		{
			filesHandler.RegisterPublicRoutes(public)
		}

		protected := v1.Group("/")
		protected.Use(middleware.RequireAuth(tokens))
		{
			uploadHandler.RegisterRoutes(protected)
			filesHandler.RegisterProtectedRoutes(protected)
		}
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		sugar.Infow("server starting", "port", cfg.Port, "env", cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	sugar.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		sugar.Errorw("forced shutdown", "error", err)
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	sugar.Info("server stopped")
}
