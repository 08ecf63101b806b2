package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/clientflow/alertrunner/internal/api/handlers"
	"github.com/clientflow/alertrunner/internal/api/router"
	"github.com/clientflow/alertrunner/internal/events"
	"github.com/clientflow/alertrunner/internal/pkg/validator"
	"github.com/clientflow/alertrunner/internal/services"
)

func newServeCmd() *cobra.Command {
	var noScheduler, noConsumer bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the scheduler and the event consumer",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			return serve(ctx, a, !noScheduler, !noConsumer)
		},
	}

	cmd.Flags().BoolVar(&noScheduler, "no-scheduler", false, "do not run scheduled evaluations in this process")
	cmd.Flags().BoolVar(&noConsumer, "no-consumer", false, "do not consume business events from Kafka")

	return cmd
}

func serve(ctx context.Context, a *app, withScheduler, withConsumer bool) error {
	cfg, log := a.cfg, a.logger

	var scheduler *services.AlertScheduler
	var status handlers.SchedulerStatus
	if withScheduler && cfg.Alert.SchedulerEnabled {
		loc, _ := cfg.Alert.Location()
		scheduler = services.NewAlertScheduler(a.runner, cfg.Alert.Schedule, loc, 0, log)
		if err := scheduler.Start(); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		status = scheduler
	}

	errCh := make(chan error, 2)

	var consumer *events.Consumer
	if withConsumer && cfg.Kafka.Enabled {
		c, err := events.NewConsumer(cfg.Kafka, a.runner, log)
		if err != nil {
			return fmt.Errorf("failed to create event consumer: %w", err)
		}
		consumer = c
		go func() {
			if err := consumer.Run(ctx); err != nil {
				errCh <- fmt.Errorf("event consumer: %w", err)
			}
		}()
	}

	h := &router.Handlers{
		Health:   handlers.NewHealthHandler(a.db, status, log),
		Rule:     handlers.NewRuleHandler(a.rules, log),
		Run:      handlers.NewRunHandler(a.runner, log, validator.New(), cfg.Server.WriteTimeout),
		Inbox:    handlers.NewInboxHandler(a.inbox, log),
		Workflow: handlers.NewWorkflowHandler(a.workflows, log),
	}

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.New(cfg, log, h),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.With("addr", server.Addr).Info("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	case runErr = <-errCh:
		log.ErrorWithErr(runErr, "Component failed, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.ErrorWithErr(err, "Error shutting down HTTP server")
	}
	if scheduler != nil {
		if err := scheduler.Stop(shutdownCtx); err != nil {
			log.ErrorWithErr(err, "Scheduled run did not finish before shutdown")
		}
	}
	if consumer != nil {
		_ = consumer.Close()
	}

	remaining := time.Until(deadlineOf(shutdownCtx))
	a.drain(remaining)

	log.Info("alertrunner stopped")
	return runErr
}

func deadlineOf(ctx context.Context) time.Time {
	if d, ok := ctx.Deadline(); ok {
		return d
	}
	return time.Now()
}
