package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/paylume/productsync/internal/api"
	"github.com/paylume/productsync/internal/cache"
	"github.com/paylume/productsync/internal/config"
	"github.com/paylume/productsync/internal/controller"
	"github.com/paylume/productsync/internal/dedup"
	"github.com/paylume/productsync/internal/events"
	"github.com/paylume/productsync/internal/prefetch"
	"github.com/paylume/productsync/internal/rate"
	"github.com/paylume/productsync/pkg/logger"
)

// productsyncd runs the sync layer headless for development and soak
// testing: it binds every controller for one product, warms the cache and
// exposes health/metrics.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	logger.Init(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	defer logger.Sync()
	logg := logger.S()
	logg.Infow("starting [productsyncd]", "api", cfg.APIBaseURL)

	// --- Session cache (memory by default, Redis when configured) ---
	var store cache.Store = cache.NewMemory()
	if cfg.RedisAddr != "" {
		rs, err := cache.NewRedis(cfg.RedisAddr, cfg.RedisDB, cfg.RedisPass, logger.L())
		if err != nil {
			logg.Fatalw("failed to init redis session cache", "error", err)
		}
		defer func() { _ = rs.Close() }()
		store = rs
		logg.Infow("session cache on redis", "addr", cfg.RedisAddr)
	}

	// --- Notices / state-change bus ---
	bus := events.NewBus()
	bus.OnNotice(func(n events.Notice) {
		logg.Infow("notice",
			"level", n.Level,
			"message", n.Message,
			"resource", n.Resource,
			"product", n.ProductID)
	})

	// --- Optional NATS telemetry sink ---
	if cfg.NATSURL != "" {
		nc, err := nats.Connect(cfg.NATSURL)
		if err != nil {
			logg.Fatalw("failed to connect to NATS", "error", err)
		}
		defer nc.Close()
		events.NewSink(logger.L(), nc, cfg.OutboundSubject, cfg.ServiceName).Attach(bus)
		logg.Infow("telemetry sink attached", "subject", cfg.OutboundSubject)
	}

	// --- Resource API client ---
	rateMgr := rate.NewManager(rate.Config{
		RequestsPerSecond: cfg.RateRPS,
		Burst:             cfg.RateBurst,
	})
	client := api.NewClient(
		logger.L(),
		cfg.APIBaseURL,
		rateMgr,
		&http.Client{Timeout: cfg.HTTPTimeout},
		cfg.RetryMax,
	)

	// --- Controllers + prefetcher ---
	reg := controller.NewRegistry(controller.Deps{
		Logger: logger.L(),
		Bus:    bus,
		Cache:  store,
		Coord:  dedup.New(),
		Client: client,
	})
	pre := prefetch.New(logger.L(), cfg.PrefetchDebounce,
		reg.Settings, reg.Offers, reg.Checkouts,
		reg.Coupons, reg.Deliverables, reg.Coproducers,
	)

	if cfg.ProductID != "" && cfg.Token != "" {
		go reg.Coupons.Bind(ctx, cfg.ProductID, cfg.Token)
		pre.Trigger(ctx, cfg.ProductID, cfg.Token)
		logg.Infow("bound to product", "product", cfg.ProductID)
	} else {
		logg.Warn("DASH_PRODUCT_ID/DASH_TOKEN unset, running idle")
	}

	// --- Health + metrics ---
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":   "ok",
			"prefetch": pre.Warmed(cfg.ProductID),
		})
	})

	go func() {
		if err := app.Listen(fmt.Sprintf(":%d", cfg.Port)); err != nil {
			logg.Errorw("http server stopped", "error", err)
		}
	}()

	<-ctx.Done()
	logg.Info("shutting down")
	pre.Cancel()

	if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
		logg.Errorw("http shutdown failed", "error", err)
	}
}
