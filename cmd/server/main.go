package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/iliyamo/social-api/internal/auth"
	"github.com/iliyamo/social-api/internal/config"
	"github.com/iliyamo/social-api/internal/database"
	"github.com/iliyamo/social-api/internal/handler"
	"github.com/iliyamo/social-api/internal/logging"
	"github.com/iliyamo/social-api/internal/middleware"
	"github.com/iliyamo/social-api/internal/queue"
	"github.com/iliyamo/social-api/internal/repository"
	"github.com/iliyamo/social-api/internal/router"
	"github.com/iliyamo/social-api/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional; real env wins
	cfg := config.Load()
	log := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	defer db.Close()
	if cfg.MigrateOnStart {
		if err := database.Migrate(ctx, db); err != nil {
			log.Fatal().Err(err).Msg("migrate database")
		}
	}

	rdb := config.NewRedisClient(config.LoadRedisConfig())
	if rdb == nil {
		log.Warn().Msg("redis unavailable; response cache disabled")
	} else {
		defer rdb.Close()
	}

	hasher, err := auth.NewHasher(cfg.BcryptCost)
	if err != nil {
		log.Fatal().Err(err).Msg("password hasher")
	}
	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.JWTIssuer, cfg.SessionTTL, cfg.ResetTTL)
	if err != nil {
		log.Fatal().Err(err).Msg("token service")
	}

	users := repository.NewUserRepo(db)
	hc := handler.HandlerConfig{Timeout: cfg.StoreTimeout, Logger: log}
	authH := handler.NewAuthHandler(handler.AuthConfig{
		Users:            users,
		Hasher:           hasher,
		Tokens:           tokens,
		Notifier:         service.NewPublisher(cfg.AMQPURL, log),
		ExposeResetToken: cfg.ExposeResetToken,
		Timeout:          cfg.StoreTimeout,
		Logger:           log,
	})
	cacheCfg := config.LoadCacheConfig()
	deps := router.Deps{
		Auth:     authH,
		Users:    handler.NewUserHandler(users, hc),
		Tweets:   handler.NewTweetHandler(repository.NewTweetRepo(db), hc),
		Comments: handler.NewCommentHandler(repository.NewCommentRepo(db), hc),
		Follows:  handler.NewFollowHandler(repository.NewFollowRepo(db), hc),
		DB:       db,
		Session: middleware.JWTAuth(middleware.JWTConfig{
			Tokens: tokens, Purpose: auth.PurposeSession, Users: users,
			Timeout: cfg.StoreTimeout, Logger: log,
		}),
		Reset: middleware.JWTAuth(middleware.JWTConfig{
			Tokens: tokens, Purpose: auth.PurposePasswordReset, Users: users,
			RequireClaimEmail: true, Timeout: cfg.StoreTimeout, Logger: log,
		}),
		Cache:      middleware.ResponseCache(cacheCfg, rdb),
		Invalidate: middleware.CacheInvalidator(cacheCfg, rdb, log),
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(logging.RequestLogger(log))
	router.Register(e, deps)

	if cfg.AMQPURL != "" {
		mailer := &queue.ResetMailer{URL: cfg.AMQPURL, LogPath: cfg.ResetMailLog, Tokens: tokens, Log: log}
		go func() {
			if err := mailer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("reset mailer stopped")
			}
		}()
	}

	go serve(e, ":"+cfg.Port, cfg.Env, log)

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
	authH.Wait()
}

func serve(e *echo.Echo, addr, env string, log zerolog.Logger) {
	log.Info().Str("addr", addr).Str("env", env).Msg("listening")
	if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server")
	}
}
