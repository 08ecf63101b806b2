package cli

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/clientflow/alertrunner/internal/config"
	"github.com/clientflow/alertrunner/internal/domain/alert"
	"github.com/clientflow/alertrunner/internal/domain/notification"
	"github.com/clientflow/alertrunner/internal/domain/tenant"
	"github.com/clientflow/alertrunner/internal/domain/workflow"
	"github.com/clientflow/alertrunner/internal/pkg/logger"
	"github.com/clientflow/alertrunner/internal/repository/postgres"
	"github.com/clientflow/alertrunner/internal/repository/redis"
	"github.com/clientflow/alertrunner/internal/services"
	"github.com/clientflow/alertrunner/migrations"
)

// app holds the wired components shared by commands
type app struct {
	cfg    *config.Config
	logger *logger.Logger
	db     *sql.DB
	redis  *goredis.Client

	tenants    tenant.Repository
	dispatcher alert.Dispatcher
	runner     alert.Runner
	rules      alert.RuleService
	inbox      alert.InboxService
	workflows  workflow.Service
}

// newApp opens the database, runs pending migrations and wires services
func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log := newLogger(cfg)

	loc, err := cfg.Alert.Location()
	if err != nil {
		return nil, err
	}

	db, err := postgres.New(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	applied, err := postgres.RunMigrations(ctx, db, migrations.GetFS())
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	if len(applied) > 0 {
		log.WithFields(map[string]interface{}{"migrations": applied}).Info("Database migrations applied")
	}

	a := &app{cfg: cfg, logger: log, db: db}

	tenants := postgres.NewTenantRepository(db)
	activity := postgres.NewActivityRepository(db)
	ruleRepo := postgres.NewRuleRepository(db)
	logRepo := postgres.NewRuleLogRepository(db)
	alertRepo := postgres.NewAlertRepository(db)

	dispatchOpts := []services.DispatcherOption{
		services.WithDispatchTimeouts(cfg.Alert.RepositoryTimeout, cfg.Alert.NotifyTimeout),
	}
	if cfg.Redis.Enabled {
		client, err := redis.NewClient(ctx, cfg.Redis)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.redis = client
		dispatchOpts = append(dispatchOpts, services.WithCooldownClaimer(redis.NewCooldownLock(client)))
		log.With("addr", cfg.Redis.Addr()).Info("Redis cooldown claims enabled")
	}

	renderer := services.NewPlaceholderRenderer(time.Now, loc)
	gate := services.NewCooldownGate(logRepo, time.Now)
	notifier := services.NewNotificationService(log, cfg.Notification.AppURL, notificationSenders(cfg)...)

	a.tenants = tenants
	a.dispatcher = services.NewAlertDispatcher(alertRepo, ruleRepo, logRepo, gate, renderer, notifier, log, dispatchOpts...)
	selector := services.NewCandidateSelector(tenants, activity, time.Now, loc, cfg.Alert.RepositoryTimeout, log)
	filters := services.NewFilterEngine(activity, time.Now, cfg.Alert.RepositoryTimeout)
	a.runner = services.NewAlertRunner(ruleRepo, tenants, selector, filters, a.dispatcher, log, services.RunnerConfig{
		Concurrency:       cfg.Alert.DispatchConcurrency,
		RepositoryTimeout: cfg.Alert.RepositoryTimeout,
	})

	v, err := services.NewRuleValidator()
	if err != nil {
		a.Close()
		return nil, err
	}
	a.rules = services.NewRuleService(ruleRepo, logRepo, v, log)
	a.inbox = services.NewInboxService(alertRepo, log)
	a.workflows = services.NewWorkflowService(
		postgres.NewWorkflowRepository(db),
		postgres.NewTemplateRepository(db),
		postgres.NewTagRepository(db),
		log,
	)

	return a, nil
}

func notificationSenders(cfg *config.Config) []notification.Sender {
	var senders []notification.Sender
	if cfg.Notification.SlackWebhookURL != "" {
		senders = append(senders, services.NewSlackSender(cfg.Notification.SlackWebhookURL, cfg.Notification.SlackChannel))
	}
	if cfg.Notification.PushWebhookURL != "" {
		senders = append(senders, services.NewWebhookSender(cfg.Notification.PushWebhookURL, cfg.Notification.PushSecret, cfg.Alert.NotifyTimeout))
	}
	return senders
}

// drain waits for in-flight notifications, bounded by timeout
func (a *app) drain(timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := a.dispatcher.Drain(ctx); err != nil {
		a.logger.ErrorWithErr(err, "Pending notifications did not finish")
	}
}

// Close releases the database and Redis connections
func (a *app) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.ErrorWithErr(err, "Error closing redis client")
		}
	}
	if err := a.db.Close(); err != nil {
		a.logger.ErrorWithErr(err, "Error closing database")
	}
}
