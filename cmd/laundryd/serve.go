package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"laundry-notifier/config"
	"laundry-notifier/internal/api"
	"laundry-notifier/internal/db"
	"laundry-notifier/internal/events"
	"laundry-notifier/internal/feed"
	"laundry-notifier/internal/metrics"
	"laundry-notifier/internal/monitor"
	"laundry-notifier/internal/notification"
	"laundry-notifier/internal/store"
	"laundry-notifier/internal/tracker"
)

const shutdownTimeout = 5 * time.Second

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the monitor, notifier and HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("failed to load configuration from %s: %w", *configPath, err)
			}
			logger.Printf("configuration loaded successfully from %s", *configPath)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	if cfg.Feed.URL == "" {
		return errors.New("feed url is not configured; set feed.url or WASHING_MACHINE_API_URL")
	}
	if cfg.Push.PublicKey == "" || cfg.Push.PrivateKey == "" {
		logger.Println("VAPID keys are not configured; push notifications will fail until they are added to the config file")
	}

	webpushOptions := webpush.Options{
		VAPIDPublicKey:  cfg.Push.PublicKey,
		VAPIDPrivateKey: cfg.Push.PrivateKey,
		Subscriber:      cfg.Push.Subject,
		TTL:             cfg.Push.TTL,
	}

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	logger.Println("database initialized successfully")

	appStore := store.NewGormStore(gormDB)
	engagements := tracker.New()
	m := metrics.New(prometheus.DefaultRegisterer)

	pool := notification.NewWorkerPool(cfg.WorkerPool.Size, appStore, engagements, &webpushOptions, m)
	if cfg.Events.NATSURL != "" {
		bus, err := events.New(cfg.Events.NATSURL, cfg.Events.Subject)
		if err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		defer bus.Close()
		pool.SetPublisher(bus)
		logger.Printf("publishing transitions to %s on %s", cfg.Events.NATSURL, cfg.Events.Subject)
	}

	mon := monitor.New(feed.NewClient(&cfg.Feed), pool, cfg.Feed.Interval, m)
	mon.SetDebug(cfg.Feed.Debug)

	router := api.NewRouter(api.NewHandler(mon, engagements, appStore, &webpushOptions), &cfg.Server, prometheus.DefaultGatherer)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Workers stop only after the monitor, so a cycle in progress can still dispatch.
	poolCtx, cancelPool := context.WithCancel(context.Background())
	defer cancelPool()
	pool.Start(poolCtx)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		mon.Start(ctx)
		<-ctx.Done()
		mon.Stop()
		return nil
	})
	g.Go(func() error {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server ListenAndServe: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Println("Shutdown signal received, stopping services...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("HTTP server Shutdown: %w", err)
		}
		return nil
	})

	err = g.Wait()

	drained := make(chan struct{})
	go func() {
		cancelPool()
		pool.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-time.After(shutdownTimeout):
		logger.Println("notification workers did not stop in time")
	}

	if err != nil {
		return err
	}
	logger.Println("Server gracefully stopped")
	return nil
}
