package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"equipment-compliance/internal/routes"
	"equipment-compliance/migrations"
	"equipment-compliance/pkg/config"
	"equipment-compliance/pkg/database/postgresql"
	apperrors "equipment-compliance/pkg/errors"
	"equipment-compliance/pkg/eventbus"
	applogger "equipment-compliance/pkg/logger"
	"equipment-compliance/pkg/middleware"
	"equipment-compliance/pkg/service"
	"equipment-compliance/pkg/utils"
	"equipment-compliance/pkg/validation"
	"equipment-compliance/pkg/websocket"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logger := applogger.NewLogger()
	defer logger.Sync()

	cfg := config.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := postgresql.Migrate(ctx, cfg.Postgres.DSN, migrations.FS); err != nil {
		logger.Fatal("Ошибка применения миграций", zap.Error(err))
	}

	dbConn := postgresql.ConnectDB(cfg.Postgres.DSN)
	defer dbConn.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	if _, err := redisClient.Ping(ctx).Result(); err != nil {
		logger.Fatal("не удалось подключиться к Redis", zap.Error(err), zap.String("address", cfg.Redis.Address))
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = validation.New()

	e.Use(echomw.RecoverWithConfig(echomw.RecoverConfig{
		DisableStackAll: true,
		StackSize:       1 << 10,
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			logger.Error("!!! ОБНАРУЖЕНА ПАНИКА (PANIC) !!!",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Error(err),
				zap.String("stack", string(stack)),
			)
			if !c.Response().Committed {
				httpErr := apperrors.NewHttpError(http.StatusInternalServerError, "Внутренняя ошибка сервера", err, nil)
				_ = utils.ErrorResponse(c, httpErr, logger)
			}
			return err
		},
	}))
	e.Use(middleware.RequestLogger(logger.Named("http")))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     []string{cfg.Frontend.BaseURL},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
	}))

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	jwtSvc := service.NewJWTService(cfg.JWT.SecretKey, cfg.JWT.AccessTokenTTL, cfg.JWT.RefreshTokenTTL, logger.Named("jwt"))
	hub := websocket.NewHub(logger.Named("ws"))
	bus := eventbus.New(logger.Named("events"))

	background := routes.InitRouter(e, routes.Dependencies{
		DB:       dbConn,
		Redis:    redisClient,
		JWT:      jwtSvc,
		Hub:      hub,
		Bus:      bus,
		Registry: registry,
		Config:   cfg,
		Logger:   logger,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})

	if background.Scheduler != nil {
		g.Go(func() error {
			return background.Scheduler.Run(gctx)
		})
	}

	g.Go(func() error {
		logger.Info("🚀 Сервер запущен", zap.String("port", cfg.Server.Port))
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Сервис остановлен с ошибкой", zap.Error(err))
	}

	// Обработчики событий могут ещё дописывать уведомления в БД.
	bus.Wait()
	logger.Info("Сервис остановлен")
}
