package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"auth-api/internal/bootstrap"
	"auth-api/internal/config"
	"auth-api/internal/db"
	apihttp "auth-api/internal/http"
	"auth-api/internal/repository"
	"auth-api/internal/service"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	if cfg.Debug {
		logger, _ = zap.NewDevelopment()
	}
	defer logger.Sync()

	// Bootstrap completo antes de aceptar tráfico: rol, base, privilegios
	// y esquema. Cualquier falla acá es fatal.
	if err := bootstrap.Run(ctx, cfg, logger); err != nil {
		logger.Fatal("bootstrap failed", zap.Error(err))
	}

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	if err := db.Ping(ctx, pool); err != nil {
		logger.Fatal("db ping", zap.Error(err))
	}

	var (
		loginLimiter service.LoginRateLimiter
		tokenStore   service.RefreshTokenStore
	)
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed", zap.Error(err))
		} else {
			loginLimiter = service.NewRedisLoginRateLimiter(redisClient, 10*time.Minute, 10)
			tokenStore = service.NewRedisRefreshTokenStore(redisClient)
		}
		cancel()
	}
	if loginLimiter == nil {
		loginLimiter = service.NewLoginRateLimiter(10*time.Minute, 10)
	}

	jwtSvc, err := service.NewJWTService(
		cfg.SecretKey,
		cfg.Algorithm,
		time.Duration(cfg.AccessTokenExpireMinutes)*time.Minute,
		time.Duration(cfg.RefreshTokenExpireDays)*24*time.Hour,
		tokenStore,
	)
	if err != nil {
		logger.Fatal("jwt configuration", zap.Error(err))
	}

	userRepo := repository.NewPgUserRepository(pool)
	userSvc := service.NewUserService(logger, userRepo, loginLimiter)
	userHandler := apihttp.NewUserHandler(logger, userSvc, jwtSvc)
	router := apihttp.NewRouter(logger, userHandler)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting server",
		zap.String("port", cfg.HTTPPort),
		zap.String("environment", cfg.Environment),
	)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}
