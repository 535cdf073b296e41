package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/haasonsaas/nexus/internal/agent"
	"github.com/haasonsaas/nexus/internal/config"
	"github.com/haasonsaas/nexus/internal/convlog"
	"github.com/haasonsaas/nexus/internal/dedupe"
	"github.com/haasonsaas/nexus/internal/interaction"
	"github.com/haasonsaas/nexus/internal/lessons"
	"github.com/haasonsaas/nexus/internal/llm"
	"github.com/haasonsaas/nexus/internal/observability"
	"github.com/haasonsaas/nexus/internal/roster"
	"github.com/haasonsaas/nexus/internal/trigger"
	"github.com/haasonsaas/nexus/pkg/models"
)

const defaultConfigPath = "poke.yaml"

func buildServeCmd() *cobra.Command {
	var configPath string
	var debug bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the interaction runtime and trigger scheduler",
		Long: `serve loads poke.yaml, wires the interaction agent, its execution-agent
dispatcher, and the trigger scheduler, and runs until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), resolveConfigPath(configPath), debug)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to poke.yaml (default: "+defaultConfigPath+")")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "enable debug logging")
	return cmd
}

func resolveConfigPath(path string) string {
	if path != "" {
		return path
	}
	if env := os.Getenv("POKE_CONFIG"); env != "" {
		return env
	}
	return defaultConfigPath
}

func runServe(ctx context.Context, configPath string, debug bool) error {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	handler := observability.NewRedactingHandler(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	logger := slog.New(handler)
	slog.SetDefault(logger)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.Info("configuration loaded", "path", configPath, "llm_provider", cfg.LLM.Provider)

	provider, err := buildProvider(cfg.LLM)
	if err != nil {
		return fmt.Errorf("build llm provider: %w", err)
	}

	metrics := observability.NewMetrics()
	tracer, shutdownTracer := observability.NewTracer(observability.TraceConfig{
		ServiceName:    "poke",
		Endpoint:       cfg.Tracing.Endpoint,
		SamplingRate:   cfg.Tracing.SamplingRate,
		EnableInsecure: cfg.Tracing.EnableInsecure,
	})
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracer(shutdownCtx)
	}()

	convLog, err := convlog.New(fmt.Sprintf("%s/interaction.log", cfg.ConvLog.Dir))
	if err != nil {
		return fmt.Errorf("open conversation log: %w", err)
	}
	conversationLog := convlog.NewConversationLog(convLog)

	agentRoster, err := roster.Open(cfg.Roster.Path, roster.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("open roster: %w", err)
	}

	journals := interaction.NewFileAgentJournals(fmt.Sprintf("%s/agents", cfg.ConvLog.Dir))

	lessonsStore, err := lessons.Open(cfg.Lessons.Path, lessons.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("open lessons store: %w", err)
	}

	duplicates := dedupe.New(
		dedupe.WithCacheSize(cfg.Dedupe.CacheSize),
		dedupe.WithTimeWindow(cfg.Dedupe.Window),
		dedupe.WithMinContentLength(cfg.Dedupe.MinContentLength),
	)

	triggerStore, executionStore, closeStore, err := buildTriggerStore(cfg.Scheduler)
	if err != nil {
		return fmt.Errorf("build trigger store: %w", err)
	}
	defer closeStore()

	overrides := newOverrideTable(cfg.Agents)

	dispatcher := &agentDispatcher{
		provider:     provider,
		defaultModel: cfg.LLM.Model,
		journals:     journals,
		triggerStore: triggerStore,
		tracer:       tracer,
		metrics:      metrics,
		logger:       logger.With("component", "dispatcher"),
		overrides:    overrides.get,
	}

	tools := agent.NewToolRegistry()
	interactionRuntime := interaction.New(provider, cfg.LLM.Model, tools, conversationLog, agentRoster, journals, dispatcher, lessonsStore, duplicates)
	interactionRuntime.Tracer = tracer
	interactionRuntime.Metrics = metrics
	for _, t := range interaction.DefaultTools(interactionRuntime) {
		if err := tools.Register(t); err != nil {
			return fmt.Errorf("register interaction tool: %w", err)
		}
	}
	dispatcher.setRuntime(interactionRuntime)

	runner := &dispatchRunner{dispatcher: dispatcher}
	scheduler := trigger.New(triggerStore, runner,
		trigger.WithLogger(logger.With("component", "scheduler")),
		trigger.WithTickInterval(cfg.Scheduler.PollInterval),
		trigger.WithTracer(tracer),
		trigger.WithMetrics(metrics),
		trigger.WithExecutionHistory(executionStore),
	)

	metricsServer := startMetricsServer(cfg.Server.MetricsAddr, logger)

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scheduler.Start(runCtx)
	stopWatcher := watchConfig(runCtx, configPath, logger, scheduler, overrides)
	defer stopWatcher()

	logger.Info("poke is running", "metrics_addr", cfg.Server.MetricsAddr)
	<-runCtx.Done()
	logger.Info("shutting down")

	scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if metricsServer != nil {
		_ = metricsServer.Shutdown(shutdownCtx)
	}
	return nil
}

func buildProvider(cfg config.LLMConfig) (agent.Provider, error) {
	apiKey := os.Getenv(cfg.APIKeyEnv)
	switch cfg.Provider {
	case "anthropic":
		return llm.NewAnthropicProvider(llm.AnthropicConfig{
			APIKey:       apiKey,
			BaseURL:      cfg.BaseURL,
			DefaultModel: cfg.Model,
		})
	case "openrouter":
		return llm.NewOpenRouterProvider(llm.OpenRouterConfig{
			APIKey:       apiKey,
			DefaultModel: cfg.Model,
			AppName:      "poke",
		})
	case "openai", "":
		return llm.NewOpenAIProvider(apiKey), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

func buildTriggerStore(cfg config.SchedulerConfig) (trigger.Store, trigger.ExecutionStore, func(), error) {
	switch cfg.Store {
	case "sqlite":
		store, err := trigger.OpenSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, nil, func() {}, err
		}
		return store, trigger.NewMemoryExecutionStore(), func() { _ = store.Close() }, nil
	case "memory", "":
		return trigger.NewMemoryStore(), trigger.NewMemoryExecutionStore(), func() {}, nil
	default:
		return nil, nil, func() {}, fmt.Errorf("unknown scheduler store %q", cfg.Store)
	}
}

// dispatchRunner adapts agentDispatcher's runSync method to trigger.Runner,
// which — unlike Dispatch — must block until the execution agent finishes.
type dispatchRunner struct {
	dispatcher *agentDispatcher
}

func (r *dispatchRunner) Run(ctx context.Context, agentName, instruction string) (*models.ExecutionResult, error) {
	return r.dispatcher.runSync(ctx, agentName, instruction), nil
}

// overrideTable holds the per-agent model overrides loaded from config,
// swapped out atomically when the config file is hot-reloaded.
type overrideTable struct {
	mu    sync.RWMutex
	table map[string]config.AgentOverride
}

func newOverrideTable(initial map[string]config.AgentOverride) *overrideTable {
	return &overrideTable{table: initial}
}

func (o *overrideTable) get() map[string]config.AgentOverride {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.table
}

func (o *overrideTable) set(table map[string]config.AgentOverride) {
	o.mu.Lock()
	o.table = table
	o.mu.Unlock()
}

func startMetricsServer(addr string, logger *slog.Logger) *http.Server {
	if addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	return server
}

// watchConfig hot-reloads a bounded subset of the config on every write to
// configPath: the scheduler's poll interval and the per-agent model
// overrides. Everything else, notably the storage backend, requires a
// restart.
func watchConfig(ctx context.Context, configPath string, logger *slog.Logger, scheduler *trigger.Scheduler, overrides *overrideTable) func() {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Warn("config watcher unavailable", "error", err)
		return func() {}
	}
	if err := watcher.Add(configPath); err != nil {
		logger.Warn("failed to watch config file", "path", configPath, "error", err)
		_ = watcher.Close()
		return func() {}
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				reloaded, err := config.Load(configPath)
				if err != nil {
					logger.Warn("config reload failed, keeping previous settings", "error", err)
					continue
				}
				if reloaded.Scheduler.PollInterval > 0 {
					scheduler.SetTickInterval(reloaded.Scheduler.PollInterval)
				}
				overrides.set(reloaded.Agents)
				logger.Info("config hot-reloaded", "poll_interval", reloaded.Scheduler.PollInterval)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("config watch error", "error", err)
			}
		}
	}()

	return func() {}
}
