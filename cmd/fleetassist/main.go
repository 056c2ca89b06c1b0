// Fleet assistant entry point.
//
// Usage:
//
//	fleetassist serve                       # start the HTTP service
//	fleetassist serve --config config.yaml  # with a config file
//	fleetassist report                      # run the maintenance report pipeline
//	fleetassist schedule --order <id>       # run the scheduling pipeline
//	fleetassist migrate                     # create the warehouse schema
//	fleetassist version                     # show version information
//	fleetassist health                      # check a running service
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/aigentic/fleetassist/assistant"
	"github.com/aigentic/fleetassist/config"
	"github.com/aigentic/fleetassist/internal/cache"
	"github.com/aigentic/fleetassist/internal/database"
	"github.com/aigentic/fleetassist/internal/metrics"
	"github.com/aigentic/fleetassist/internal/telemetry"
	"github.com/aigentic/fleetassist/providers"
	"github.com/aigentic/fleetassist/providers/gemini"
	"github.com/aigentic/fleetassist/recall"
	"github.com/aigentic/fleetassist/store"
	"github.com/aigentic/fleetassist/tools"
)

// Version information, injected at build time.
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		runServe(os.Args[2:])
	case "report":
		runReport(os.Args[2:])
	case "schedule":
		runSchedule(os.Args[2:])
	case "migrate":
		runMigrate(os.Args[2:])
	case "version":
		printVersion()
	case "health":
		runHealthCheck(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// app bundles everything the subcommands need.
type app struct {
	cfg          *config.Config
	logger       *zap.Logger
	assistant    *assistant.Assistant
	warehouse    *store.Warehouse
	metrics      *metrics.Collector
	promRegistry *prometheus.Registry
	telemetry    *telemetry.Providers
	closers      []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func loadConfig(args []string, command string) *config.Config {
	fs := flag.NewFlagSet(command, flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	fs.Parse(args)
	return mustLoadConfig(*configPath)
}

func mustLoadConfig(path string) *config.Config {
	loader := config.NewLoader()
	if path != "" {
		loader = loader.WithConfigPath(path)
	}
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// newApp wires the assistant from configuration.
func newApp(cfg *config.Config) (*app, error) {
	logger := initLogger(cfg.Log)

	a := &app{cfg: cfg, logger: logger}
	a.closers = append(a.closers, func() { _ = logger.Sync() })

	otelProviders, err := telemetry.Init(cfg.Telemetry, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	} else {
		a.telemetry = otelProviders
		a.closers = append(a.closers, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelProviders.Shutdown(ctx)
		})
	}

	a.promRegistry = prometheus.NewRegistry()
	a.promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.metrics = metrics.NewCollector("fleetassist", a.promRegistry, logger)

	db, err := database.Open(cfg.Database, logger)
	if err != nil {
		a.close()
		return nil, err
	}
	a.closers = append(a.closers, func() { _ = database.Close(db) })

	warehouse := store.NewWarehouse(db, logger).WithMetrics(a.metrics)
	if err := warehouse.Migrate(); err != nil {
		a.close()
		return nil, fmt.Errorf("warehouse migration failed: %w", err)
	}
	a.warehouse = warehouse

	var recallCache recall.Cache
	if cfg.Redis.Enabled {
		cacheCfg := cache.DefaultConfig()
		cacheCfg.Addr = cfg.Redis.Addr
		cacheCfg.Password = cfg.Redis.Password
		cacheCfg.DB = cfg.Redis.DB
		cacheCfg.PoolSize = cfg.Redis.PoolSize
		cacheCfg.MinIdleConns = cfg.Redis.MinIdleConns
		cacheCfg.DefaultTTL = cfg.Recall.CacheTTL

		manager, err := cache.NewManager(cacheCfg, logger)
		if err != nil {
			logger.Warn("recall cache unavailable, querying upstream directly", zap.Error(err))
		} else {
			recallCache = manager
			a.closers = append(a.closers, func() { _ = manager.Close() })
		}
	}

	recallClient := recall.NewClient(recall.Config{
		BaseURL:       cfg.Recall.BaseURL,
		Timeout:       cfg.Recall.Timeout,
		RatePerSecond: cfg.Recall.RequestsPerSecond,
		Burst:         cfg.Recall.Burst,
		CacheTTL:      cfg.Recall.CacheTTL,
	}, recallCache, logger).WithMetrics(a.metrics)

	notifier := tools.NewNotifier(tools.NotifierConfig{
		WebhookURL: cfg.Notify.WebhookURL,
		Timeout:    cfg.Notify.Timeout,
	}, logger)

	registry := tools.NewRegistry(logger).WithMetrics(a.metrics)
	registry.MustRegister(tools.WarehouseTools(warehouse)...)
	registry.MustRegister(tools.RecallTool(recallClient), tools.NotifyTool(notifier))

	provider := gemini.New(providers.GeminiConfig{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
		Timeout: cfg.LLM.Timeout,
	}, logger).WithMetrics(a.metrics)

	asst, err := assistant.New(assistant.Config{
		Model:            cfg.LLM.Model,
		MaxRounds:        cfg.Scheduling.MaxRounds,
		ApprovalSentinel: cfg.Scheduling.ApprovalSentinel,
		MaxToolRounds:    cfg.Scheduling.MaxToolRounds,
	}, provider, registry, warehouse, logger)
	if err != nil {
		a.close()
		return nil, err
	}
	a.assistant = asst

	logger.Info("fleet assistant initialized",
		zap.String("model", cfg.LLM.Model),
		zap.Int("max_rounds", cfg.Scheduling.MaxRounds))
	return a, nil
}

func runServe(args []string) {
	cfg := loadConfig(args, "serve")
	a, err := newApp(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start: %v\n", err)
		os.Exit(1)
	}
	defer a.close()

	a.logger.Info("starting fleet assistant",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit))

	if err := a.serve(); err != nil {
		a.logger.Error("server exited", zap.Error(err))
		os.Exit(1)
	}
}

func runReport(args []string) {
	cfg := loadConfig(args, "report")
	a, err := newApp(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start: %v\n", err)
		os.Exit(1)
	}
	defer a.close()

	ctx := context.Background()
	start := time.Now()
	report, err := a.assistant.MaintenanceReport(ctx, "Check the maintenance needs of the fleet.")
	status := "success"
	if err != nil {
		status = "error"
	}
	a.metrics.RecordPipelineExecution("maintenance_report", status, time.Since(start))
	if err != nil {
		a.logger.Error("report pipeline failed", zap.Error(err))
		os.Exit(1)
	}
	fmt.Println(report)
}

func runSchedule(args []string) {
	fs := flag.NewFlagSet("schedule", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	orderID := fs.String("order", "", "Part order ID to schedule an appointment for")
	vehicleID := fs.String("vehicle", "", "Vehicle ID")
	place := fs.String("place", "", "Appointment place (Country, City, Street)")
	fs.Parse(args)

	if *orderID == "" {
		fmt.Fprintln(os.Stderr, "schedule: --order is required")
		os.Exit(1)
	}

	cfg := mustLoadConfig(*configPath)
	a, err := newApp(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start: %v\n", err)
		os.Exit(1)
	}
	defer a.close()

	start := time.Now()
	result, err := a.assistant.Schedule(context.Background(), assistant.ScheduleRequest{
		OrderID:   *orderID,
		VehicleID: *vehicleID,
		Place:     *place,
	})
	status := "success"
	if err != nil {
		status = "error"
	}
	a.metrics.RecordPipelineExecution("appointment_scheduling", status, time.Since(start))
	if err != nil {
		a.logger.Error("schedule pipeline failed", zap.Error(err))
		os.Exit(1)
	}
	a.metrics.RecordLoopOutcome("schedule_refine", string(result.Outcome), result.Rounds)
	a.metrics.RecordCommit(len(result.Booked), len(result.Failed))

	fmt.Printf("Outcome: %s after %d round(s)\n", result.Outcome, result.Rounds)
	for _, id := range result.Booked {
		fmt.Printf("Booked appointment %s\n", id)
	}
	for _, f := range result.Failed {
		fmt.Printf("Failed to book for order %s: %s\n", f.Item, f.Reason)
	}
}

func runMigrate(args []string) {
	cfg := loadConfig(args, "migrate")
	logger := initLogger(cfg.Log)
	defer logger.Sync()

	db, err := database.Open(cfg.Database, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer database.Close(db)

	if err := store.NewWarehouse(db, logger).Migrate(); err != nil {
		fmt.Fprintf(os.Stderr, "Migration failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Warehouse schema is up to date.")
}

func runHealthCheck(args []string) {
	fs := flag.NewFlagSet("health", flag.ExitOnError)
	addr := fs.String("addr", "http://localhost:8080", "Service address")
	fs.Parse(args)

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(*addr + "/healthz")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Health check failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Service unhealthy: %s\n", resp.Status)
		os.Exit(1)
	}
	fmt.Println("OK")
}

func printVersion() {
	fmt.Printf("fleetassist %s (built %s, commit %s)\n", Version, BuildTime, GitCommit)
}

func printUsage() {
	fmt.Println(`Usage: fleetassist <command> [options]

Commands:
  serve      Start the HTTP service
  report     Run the maintenance report pipeline
  schedule   Run the appointment scheduling pipeline
  migrate    Create or update the warehouse schema
  version    Show version information
  health     Check a running service
  help       Show this message`)
}

func initLogger(cfg config.LogConfig) *zap.Logger {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var encoderConfig zapcore.EncoderConfig
	encoding := "json"
	if cfg.Format == "console" {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoding = "console"
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	outputPaths := cfg.OutputPaths
	if len(outputPaths) == 0 {
		outputPaths = []string{"stdout"}
	}

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      cfg.Format == "console",
		Encoding:         encoding,
		EncoderConfig:    encoderConfig,
		OutputPaths:      outputPaths,
		ErrorOutputPaths: []string{"stderr"},
	}

	var opts []zap.Option
	if cfg.EnableCaller {
		opts = append(opts, zap.AddCaller())
	}
	if cfg.EnableStacktrace {
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	}

	logger, err := zapConfig.Build(opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}
