package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Eursukkul/courier-backoffice/config"
	"github.com/Eursukkul/courier-backoffice/internal/consumer"
	"github.com/Eursukkul/courier-backoffice/internal/events"
	"github.com/Eursukkul/courier-backoffice/internal/handler"
	"github.com/Eursukkul/courier-backoffice/internal/middleware"
	"github.com/Eursukkul/courier-backoffice/internal/repository"
	"github.com/Eursukkul/courier-backoffice/internal/service"
	"github.com/Eursukkul/courier-backoffice/internal/worker"
	"github.com/Eursukkul/courier-backoffice/pkg/awb"
	"github.com/Eursukkul/courier-backoffice/pkg/cache"
	"github.com/Eursukkul/courier-backoffice/pkg/database"
	"github.com/Eursukkul/courier-backoffice/pkg/logger"
	"github.com/Eursukkul/courier-backoffice/pkg/rabbitmq"
	"github.com/Eursukkul/courier-backoffice/pkg/validation"
	"github.com/labstack/echo/v4"
	echoMw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

const serviceName = "shipment-service"

func main() {
	cfg := config.Load()

	zl, err := logger.New(logger.Options{Level: cfg.LogLevel, LogsDirectory: cfg.LogsDirectory, Service: serviceName})
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgresDB(cfg.DSN())
	if err != nil {
		zl.Fatal("database", zap.Error(err))
	}

	// Redis is optional: without it the tracking view is rebuilt per request and invoice
	// flips rely on the conditional update alone.
	var (
		viewCache service.ViewCache
		locker    cache.Locker = cache.NoopLocker{}
	)
	if cfg.RedisAddress != "" {
		rdb, err := cache.NewRedisClient(ctx, cfg.RedisAddress, cfg.RedisPassword)
		if err != nil {
			zl.Fatal("redis", zap.Error(err))
		}
		defer rdb.Close()
		viewCache = cache.NewStore(rdb, serviceName+":")
		locker = cache.NewRedisLocker(rdb, 5*time.Second)
	}

	dispatcher := events.NewDispatcher(zl)
	var publisher events.Publisher = dispatcher
	if cfg.RabbitURL != "" {
		mqPublisher, err := rabbitmq.NewPublisher(cfg.RabbitURL, zl)
		if err != nil {
			zl.Fatal("rabbitmq publisher", zap.Error(err))
		}
		defer mqPublisher.Close()
		publisher = mqPublisher
	}

	awbGen, err := awb.NewGenerator(cfg.AWBPrefix, cfg.AWBNodeID)
	if err != nil {
		zl.Fatal("awb generator", zap.Error(err))
	}
	v := validation.New(cfg.PhoneRegion)

	// Repositories
	txm := repository.NewTransactor(db)
	bookingRepo := repository.NewBookingRepository(db)
	historyRepo := repository.NewStatusEventRepository(db)
	shipperRepo := repository.NewShipperRepository(db)
	consigneeRepo := repository.NewConsigneeRepository(db)
	exceptionRepo := repository.NewExceptionRepository(db)

	// Services
	ledger := service.NewLedger(txm, bookingRepo, historyRepo, publisher, zl)
	trackingSvc := service.NewTrackingService(bookingRepo, shipperRepo, exceptionRepo, ledger, viewCache, cfg.TrackingCacheTTL, zl)
	bookingSvc := service.NewBookingService(service.BookingDeps{
		Transactor: txm,
		Bookings:   bookingRepo,
		History:    historyRepo,
		Shippers:   shipperRepo,
		Consignees: consigneeRepo,
		Ledger:     ledger,
		AWB:        awbGen,
		Validator:  v,
		Tariff:     cfg.Tariff,
		Logger:     zl,
	})
	billingSvc := service.NewBillingService(txm, bookingRepo, locker, trackingSvc, v, cfg.Tariff, zl)
	exceptionSvc := service.NewExceptionService(exceptionRepo, bookingRepo, trackingSvc, v, zl)
	partySvc := service.NewPartyService(shipperRepo, consigneeRepo, v, zl)

	dispatcher.Subscribe(trackingSvc)
	dispatcher.Subscribe(service.NewInvoiceReadiness(publisher, zl))

	// Subscribers must be in place before the first delivery is acked.
	if cfg.RabbitURL != "" {
		mqConsumer, err := rabbitmq.NewConsumer(cfg.RabbitURL, zl)
		if err != nil {
			zl.Fatal("rabbitmq consumer", zap.Error(err))
		}
		defer mqConsumer.Close()

		msgs, err := mqConsumer.Consume()
		if err != nil {
			zl.Fatal("rabbitmq consume", zap.Error(err))
		}
		consumer.NewStatusConsumer(dispatcher, zl).Start(msgs)
	}

	scanner := worker.NewStaleScanner(bookingRepo, publisher, cfg.StaleAfter, zl)
	sched, err := scanner.Start(ctx, cfg.StaleScanSchedule)
	if err != nil {
		zl.Fatal("stale scanner", zap.Error(err))
	}
	defer sched.Stop()

	// Echo
	e := echo.New()
	e.HideBanner = true
	e.Validator = middleware.NewValidator(v)
	e.Binder = middleware.NewStrictBinder()
	e.HTTPErrorHandler = middleware.ErrorHandler(zl)
	e.Use(echoMw.RequestID())
	e.Use(middleware.RequestLogger(zl))
	e.Use(echoMw.Recover())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "service": serviceName})
	})

	api := e.Group("/api/v1")
	public := e.Group("/public")
	handler.NewBookingHandler(bookingSvc).RegisterRoutes(api)
	handler.NewBillingHandler(billingSvc).RegisterRoutes(api)
	handler.NewPartyHandler(partySvc).RegisterRoutes(api)
	handler.NewTrackingHandler(trackingSvc).RegisterRoutes(api, public)
	handler.NewExceptionHandler(exceptionSvc).RegisterRoutes(api, public)

	go func() {
		zl.Info("shipment service starting", zap.String("port", cfg.ServerPort))
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zl.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		zl.Error("http shutdown", zap.Error(err))
	}
}
