package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"horizon/internal/infrastructure/postgres/listener"
	"horizon/internal/interfaces/scheduler"
	"horizon/internal/shared/config"
	"horizon/internal/shared/telemetry"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	shutdownTelemetry, err := telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("failed to init telemetry: %w", err)
	}
	defer func() {
		tctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(tctx); err != nil {
			log.Printf("Error shutting down telemetry: %v", err)
		}
	}()

	deps, err := NewDependencies(ctx, cfg)
	if err != nil {
		return err
	}
	defer deps.Close()

	var sched *scheduler.Scheduler
	if cfg.Reconciler.Enabled {
		sched, err = scheduler.New(scheduler.Config{
			ScheduleTimes: cfg.Reconciler.ScheduleTimes,
			WorkerCount:   cfg.Reconciler.WorkerCount,
			JobDelay:      cfg.Reconciler.JobDelay,
			QueueSize:     cfg.Reconciler.QueueSize,
			RunOnStartup:  cfg.Reconciler.RunOnStartup,
			JobProvider:   scheduler.PendingReconciliations(deps.Reconciler),
		})
		if err != nil {
			return err
		}
		sched.Start()
		log.Printf("Reconciler scheduled at %v, next run %s", cfg.Reconciler.ScheduleTimes, sched.NextRun().Format(time.RFC3339))

		if cfg.Store.Backend == config.StorePostgres {
			l := listener.NewDocumentListener(
				cfg.Database.ConnectionString(),
				cfg.Store.ReconciliationCollection,
				scheduler.OnReconciliationCreated(deps.Reconciler, sched),
			)
			l.Start(ctx)
			defer l.Stop()
		}
	} else {
		log.Println("Reconciler is disabled")
	}

	handler := SetupRoutes(deps, cfg)
	srv, redirectSrv, serveErr := StartServers(NewServerConfigFromConfig(handler, cfg))

	select {
	case <-ctx.Done():
	case err = <-serveErr:
		log.Printf("Server error: %v", err)
	}

	GracefulShutdown(srv, redirectSrv, sched, shutdownTimeout)
	return err
}
