package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/taskspring/taskspring-api/config"
	"github.com/taskspring/taskspring-api/internal/adapters/agent"
	"github.com/taskspring/taskspring-api/internal/adapters/devauth"
	"github.com/taskspring/taskspring-api/internal/adapters/llm"
	"github.com/taskspring/taskspring-api/internal/adapters/oidc"
	"github.com/taskspring/taskspring-api/internal/adapters/worker"
	"github.com/taskspring/taskspring-api/internal/core"
	"github.com/taskspring/taskspring-api/internal/data"
	"github.com/taskspring/taskspring-api/internal/domain/model"
	httpx "github.com/taskspring/taskspring-api/internal/http"
	"github.com/taskspring/taskspring-api/internal/observability/statsd"
	"github.com/taskspring/taskspring-api/internal/ports"
	"github.com/taskspring/taskspring-api/internal/push"
	"github.com/taskspring/taskspring-api/internal/service"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Jobs          *service.JobService
	Hub           *push.Hub
	Verifier      ports.TokenVerifier
	HealthChecks  map[string]httpx.HealthCheck
	Observability ObservabilityContainer
}

// ObservabilityContainer groups shared observability dependencies.
type ObservabilityContainer struct {
	MetricsSink   *statsd.Client
	MetricsConfig config.ObservabilityMetricsConfig
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// buildObservability configures the metrics sink.
func buildObservability(logger *slog.Logger, cfg config.ObservabilityConfig) ObservabilityContainer {
	obsLogger := logger
	if obsLogger == nil {
		obsLogger = slog.Default()
	}

	var metricsSink *statsd.Client
	if cfg.Metrics.IsEnabled() {
		client, err := statsd.NewClient(statsd.Config{
			Enabled: true,
			Address: cfg.Metrics.StatsdAddress,
			Prefix:  "taskspring",
			Logger:  obsLogger,
		})
		if err != nil {
			obsLogger.Error("failed to initialise statsd client", "error", err)
		} else {
			metricsSink = client
		}
	}

	return ObservabilityContainer{
		MetricsSink:   metricsSink,
		MetricsConfig: cfg.Metrics,
	}
}

// buildExecutors wires the per-type job executors from configuration. Types
// without the required configuration are left unregistered so job creation
// rejects them up front.
func buildExecutors(
	ctx context.Context,
	cfg *config.AppConfig,
	logger *slog.Logger,
) (map[model.JobType]core.Executor, error) {
	executors := make(map[model.JobType]core.Executor)

	if cfg.LLM.APIKey != "" {
		researchExec, err := llm.NewExecutor(ctx, llm.Config{
			APIKey:            cfg.LLM.APIKey,
			Model:             cfg.LLM.Model,
			MaxRetries:        cfg.LLM.MaxRetries,
			RetryDelaySeconds: cfg.LLM.RetryDelaySeconds,
			ResultExpression:  cfg.LLM.ResultExpression,
			Logger:            logger,
		})
		if err != nil {
			return nil, fmt.Errorf("build research executor: %w", err)
		}
		executors[model.JobTypeResearch] = researchExec
	} else {
		logger.Warn("LLM_API_KEY not set; research jobs disabled")
	}

	if cfg.Agent.BaseURL != "" {
		agentExec, err := agent.NewExecutor(agent.Config{
			BaseURL:   cfg.Agent.BaseURL,
			AuthToken: cfg.Agent.AuthToken,
			Timeout:   cfg.Agent.Timeout,
			Logger:    logger,
		})
		if err != nil {
			return nil, fmt.Errorf("build agent executor: %w", err)
		}
		executors[model.JobTypeAgent] = agentExec
	} else {
		logger.Warn("AGENT_BASE_URL not set; agent jobs disabled")
	}

	if len(executors) == 0 {
		return nil, errors.New("no job executors configured; set LLM_API_KEY or AGENT_BASE_URL")
	}

	return executors, nil
}

// buildVerifier wires the token verifier according to the auth mode.
//
//nolint:ireturn // mode selection decides the concrete verifier at runtime.
func buildVerifier(
	ctx context.Context,
	cfg config.AuthConfig,
	logger *slog.Logger,
) (ports.TokenVerifier, error) {
	switch cfg.Mode {
	case config.AuthModeMock:
		logger.Warn("mock authentication enabled; do not use in production")
		return devauth.NewVerifier(devauth.Config{
			Token:  cfg.DevAuth.Token,
			UserID: cfg.DevAuth.UserID,
			Email:  cfg.DevAuth.Email,
			Name:   cfg.DevAuth.Name,
		})
	case config.AuthModeOIDC:
		return oidc.NewVerifier(ctx, oidc.VerifierConfig{
			ClientID:     cfg.OIDC.ClientID,
			DiscoveryURL: cfg.OIDC.DiscoveryURL,
		})
	default:
		return nil, fmt.Errorf("unknown auth mode: %q", cfg.Mode)
	}
}

// NewServices wires repositories, the push hub, executors, and the job
// service.
func NewServices(ctx context.Context, deps *ServiceDeps) (ServiceContainer, error) {
	if deps == nil || deps.Config == nil {
		return ServiceContainer{}, errors.New("service deps and config are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	observability := buildObservability(logger, deps.Config.Observability)

	jobRepo := data.NewJobRepo(deps.DB, data.RepoConfig{Logger: logger})

	var cache core.CacheRepository
	if deps.RedisClient != nil {
		cache = data.NewRedisCacheRepo(deps.RedisClient)
	}

	executors, err := buildExecutors(ctx, deps.Config, logger)
	if err != nil {
		return ServiceContainer{}, err
	}

	verifier, err := buildVerifier(ctx, deps.Config.Auth, logger)
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("build token verifier: %w", err)
	}

	hub := push.NewHub(push.HubOptions{Logger: logger})

	var metrics statsd.Sink
	if observability.MetricsSink != nil {
		metrics = observability.MetricsSink
	}

	jobService, err := service.NewJobService(service.JobServiceOptions{
		Repo:        jobRepo,
		Executors:   executors,
		Publisher:   hub,
		Cache:       cache,
		SnapshotTTL: deps.Config.Cache.SnapshotTTL,
		Logger:      logger,
		Metrics:     metrics,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("build job service: %w", err)
	}

	return ServiceContainer{
		Jobs:          jobService,
		Hub:           hub,
		Verifier:      verifier,
		HealthChecks:  buildHealthChecks(deps),
		Observability: observability,
	}, nil
}

// buildHealthChecks wires dependency probes for the health endpoint.
func buildHealthChecks(deps *ServiceDeps) map[string]httpx.HealthCheck {
	checks := make(map[string]httpx.HealthCheck)
	if deps.DB != nil {
		db := deps.DB
		checks["db"] = db.PingContext
	}
	if deps.RedisClient != nil {
		redisClient := deps.RedisClient
		checks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}
	return checks
}

// ServiceOrchestrationConfig contains configuration for service orchestration.
type ServiceOrchestrationConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	Logger   *slog.Logger
}

// shutdownTimeout is the maximum time to wait for the HTTP server to drain.
const shutdownTimeout = 15 * time.Second

// RunServicesWithShutdown starts all enabled services and manages their
// lifecycle. It blocks until a shutdown signal arrives or a service fails.
func RunServicesWithShutdown(cfg *ServiceOrchestrationConfig) error {
	if cfg == nil || cfg.Config == nil {
		return errors.New("service orchestration config is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	enabled, err := cfg.Config.GetEnabledServices()
	if err != nil {
		return fmt.Errorf("determine enabled services: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	if enabled[config.ServiceModeHTTP] {
		server := NewHTTPServer(&HTTPServerConfig{
			Config:   cfg.Config,
			Services: cfg.Services,
			Logger:   logger,
		})

		group.Go(func() error {
			return RunHTTPServer(groupCtx, server, logger)
		})
	}

	if enabled[config.ServiceModeWorker] {
		runner, runnerErr := worker.NewRunner(worker.RunnerOptions{
			Processor: cfg.Services.Jobs,
			Interval:  cfg.Config.Worker.Interval,
			BatchSize: cfg.Config.Worker.BatchSize,
			Logger:    logger,
			Metrics:   sinkOrNil(cfg.Services.Observability.MetricsSink),
		})
		if runnerErr != nil {
			return fmt.Errorf("build worker runner: %w", runnerErr)
		}

		group.Go(func() error {
			return runner.Run(groupCtx)
		})
	}

	err = group.Wait()

	if cfg.Services.Hub != nil {
		cfg.Services.Hub.CloseAll()
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	logger.Info("all services stopped")
	return nil
}

//nolint:ireturn // nil interface must stay nil, not a typed nil pointer.
func sinkOrNil(client *statsd.Client) statsd.Sink {
	if client == nil {
		return nil
	}
	return client
}
