package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/iliyamo/pos-gateway/internal/apiclient"
	"github.com/iliyamo/pos-gateway/internal/billing"
	"github.com/iliyamo/pos-gateway/internal/config"
	"github.com/iliyamo/pos-gateway/internal/dashboard"
	"github.com/iliyamo/pos-gateway/internal/database"
	"github.com/iliyamo/pos-gateway/internal/handler"
	"github.com/iliyamo/pos-gateway/internal/logger"
	"github.com/iliyamo/pos-gateway/internal/middleware"
	"github.com/iliyamo/pos-gateway/internal/permission"
	"github.com/iliyamo/pos-gateway/internal/queue"
	"github.com/iliyamo/pos-gateway/internal/realtime"
	"github.com/iliyamo/pos-gateway/internal/repository"
	"github.com/iliyamo/pos-gateway/internal/router"
	"github.com/iliyamo/pos-gateway/internal/session"
	"github.com/iliyamo/pos-gateway/internal/stateview"
	"github.com/iliyamo/pos-gateway/internal/telemetry"
	"github.com/iliyamo/pos-gateway/internal/utils"
)

const (
	serviceName = "pos-gateway"
	snapshotKey = "posgw:stateview:snapshot"
	snapshotTTL = 15 * time.Minute
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP gateway",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
}

func serve(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	cfg := config.Load() // Load environment config
	log, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing := telemetry.Setup(serviceName, log)

	api := apiclient.New(cfg.UpstreamBaseURL, cfg.UpstreamTimeout).WithToken(cfg.UpstreamToken)

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn("redis unavailable; rate limit, cache and snapshots disabled")
	} else {
		defer rdb.Close()
	}

	var journal *repository.JournalRepo
	db, err := database.Open(ctx, cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.WithError(err).Warn("settlement journal unavailable")
	} else {
		defer db.Close()
		journal = repository.NewJournalRepo(db)
		if err := journal.EnsureSchema(ctx); err != nil {
			log.WithError(err).Warn("create journal table; journal disabled")
			journal = nil
		}
	}

	hub := realtime.NewHub(logger.Component(log, "realtime"))

	viewOpts := stateview.Options{Broadcaster: hub, Log: log}
	billingOpts := billing.Options{
		ActiveOrderEndpoint: cfg.ActiveOrderEndpoint,
		RedirectDelay:       cfg.RedirectDelay,
		LockTTL:             cfg.PaymentLockTTL,
		Locker:              billing.NewLocker(rdb),
		Log:                 log,
	}
	if rdb != nil {
		viewOpts.Store = stateview.NewRedisStore(rdb, snapshotKey, snapshotTTL)
	}
	if journal != nil {
		billingOpts.Journal = journal
	}

	var publisher *queue.Publisher
	if cfg.AMQPURL != "" {
		publisher = queue.NewPublisher(cfg.AMQPURL, cfg.EventsExchange, logger.Component(log, "publisher"))
		defer publisher.Close()
		viewOpts.Events = publisher
		billingOpts.Events = publisher
	}

	view := stateview.New(api, viewOpts)
	defer view.Close()
	billingOpts.Refresher = view

	registry := session.NewRegistry(api, session.Options{
		Tick:      cfg.SessionTick,
		WarnAfter: cfg.SessionWarnAfter,
		Notifier:  hub,
		Log:       log,
	})
	defer registry.Close()

	svc := billing.NewService(api, billingOpts)
	agg := dashboard.NewAggregator(api, view, registry, cfg.CurrencyGlyph, log)

	go view.Run(ctx, cfg.Poll)
	if cfg.AMQPURL != "" {
		consumer := queue.NewConsumer(cfg.AMQPURL, cfg.ChangesQueue, func(ev queue.ChangeEvent) {
			log.WithFields(logrus.Fields{"entity": ev.Entity, "action": ev.Action}).Debug("upstream change")
			view.Trigger()
		}, logger.Component(log, "consumer"))
		go consumer.Run(ctx)
	}

	var attempts handler.AttemptLister
	if journal != nil {
		attempts = journal
	}
	receipts := billing.ReceiptOptions{
		Width:       cfg.ReceiptWidth,
		Glyph:       cfg.CurrencyGlyph,
		Title:       cfg.RestaurantName,
		HeaderLines: cfg.ReceiptLines,
		Location:    time.Local,
	}

	e := echo.New() // Create Echo instance
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(middleware.RequestID())
	e.Use(echo.WrapMiddleware(otelhttp.NewMiddleware(serviceName)))
	e.Use(logger.AccessLog(logger.Component(log, "http")))

	router.RegisterRoutes(e)
	router.RegisterRealtime(e, realtime.Handler(hub, utils.Verifier{Secret: cfg.JWTSecret}))
	router.RegisterAPI(e, router.Auth{
		JWTSecret: cfg.JWTSecret,
		Resolver:  &permission.Resolver{},
		Redis:     rdb,
		RateLimit: cfg.RateLimit,
		Cache:     cfg.Cache,
		Log:       log,
	}, router.Handlers{
		POS:       handler.NewPOSHandler(view),
		Billing:   handler.NewBillingHandler(svc, view, attempts, receipts),
		Sessions:  handler.NewSessionHandler(registry),
		Dashboard: handler.NewDashboardHandler(agg),
	})

	addr := ":" + cfg.Port
	errc := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env}).Info("listening")
		errc <- e.Start(addr)
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
	}

	log.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(sctx); err != nil {
		log.WithError(err).Warn("http shutdown")
	}
	if err := shutdownTracing(sctx); err != nil {
		log.WithError(err).Warn("tracing shutdown")
	}
	return nil
}
