package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"example.com/spendshare/internal/auth"
	"example.com/spendshare/internal/config"
	"example.com/spendshare/internal/handlers"
	"example.com/spendshare/internal/mailer"
	"example.com/spendshare/internal/notifications"
	"example.com/spendshare/internal/realtime"
	"example.com/spendshare/internal/repository"
	"example.com/spendshare/internal/sharing"
)

// New собирает HTTP-сервер Echo с роутами и зависимостями.
func New(cfg config.Config, logger *slog.Logger, db *pgxpool.Pool) *echo.Echo {
	if logger == nil {
		logger = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewValidator()

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(requestLogger(logger))

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL)
	userRepo := repository.NewUserRepository(db)
	tokenRepo := repository.NewRefreshTokenRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	expenseRepo := repository.NewExpenseRepository(db)
	budgetRepo := repository.NewBudgetRepository(db)
	memberRepo := repository.NewMemberRepository(db)
	invitationRepo := repository.NewInvitationRepository(db, profileRepo)

	codeGenerator := sharing.NewGenerator(cfg.Sharing.ShareCodeLength, cfg.Sharing.InvitationCodeLength)
	mailClient := mailer.New(cfg.Mail.Enabled, cfg.Mail.APIKey, cfg.Mail.BaseURL, cfg.Mail.Sender, cfg.Sharing.JoinBaseURL, cfg.Mail.Timeout)

	hub := notifications.NewHub()
	snapshotFetch := func(ctx context.Context, profileID uuid.UUID) (interface{}, error) {
		return profileRepo.Snapshot(ctx, profileID, expenseRepo, budgetRepo, memberRepo)
	}
	realtimeFactory := realtime.NewFactory(hub, snapshotFetch, logger)

	authHandler := handlers.NewAuthHandler(userRepo, tokenRepo, tokenManager)
	profileHandler := handlers.NewProfileHandler(profileRepo, expenseRepo, budgetRepo, memberRepo, codeGenerator, hub)
	expenseHandler := handlers.NewExpenseHandler(expenseRepo, memberRepo, hub)
	budgetHandler := handlers.NewBudgetHandler(budgetRepo, memberRepo, hub)
	sharingHandler := handlers.NewSharingHandler(profileRepo, memberRepo, invitationRepo, userRepo, codeGenerator, mailClient, hub, logger, cfg.Sharing.InvitationTTL)
	joinHandler := handlers.NewJoinHandler(invitationRepo, memberRepo, hub)
	streamHandler := handlers.NewStreamHandler(realtimeFactory, memberRepo)

	registerRoutes(
		e,
		authHandler,
		profileHandler,
		expenseHandler,
		budgetHandler,
		sharingHandler,
		joinHandler,
		streamHandler,
		auth.JWTMiddleware(tokenManager),
		authRateLimiter(cfg.Auth),
	)

	return e
}

// NewHTTPServer создает net/http сервер с заданными таймаутами.
func NewHTTPServer(cfg config.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}

func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:      true,
		LogStatus:   true,
		LogMethod:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.String("remote_ip", v.RemoteIP),
				slog.Duration("latency", v.Latency),
			}

			if v.Error != nil {
				attrs = append(attrs, slog.String("error", v.Error.Error()))
			}

			msg := "request completed"
			if v.Status >= http.StatusInternalServerError {
				logger.LogAttrs(c.Request().Context(), slog.LevelError, msg, attrs...)
				return nil
			}

			logger.LogAttrs(c.Request().Context(), slog.LevelInfo, msg, attrs...)
			return nil
		},
	})
}

func authRateLimiter(cfg config.AuthConfig) echo.MiddlewareFunc {
	limit := rate.Limit(float64(cfg.RateLimitPerMinute) / 60.0)
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      limit,
		Burst:     cfg.RateLimitBurst,
		ExpiresIn: time.Minute,
	})

	return middleware.RateLimiter(store)
}
