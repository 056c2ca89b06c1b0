package config

import "time"

// DefaultApprovalSentinel is the stock phrase the schedule critic emits when
// a draft passes review. Compared byte-for-byte; see workflow.SentinelGate.
const DefaultApprovalSentinel = "No major issues found."

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:        8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:          "postgres",
			Host:            "localhost",
			Port:            5432,
			User:            "fleetassist",
			Name:            "fleet_maintenance",
			SSLMode:         "disable",
			MaxOpenConns:    20,
			MaxIdleConns:    5,
			ConnMaxLifetime: time.Hour,
		},
		Redis: RedisConfig{
			Enabled:      false,
			Addr:         "localhost:6379",
			DB:           0,
			PoolSize:     10,
			MinIdleConns: 2,
		},
		Recall: RecallConfig{
			BaseURL:           "https://api.nhtsa.gov",
			RequestsPerSecond: 2,
			Burst:             4,
			Timeout:           15 * time.Second,
			CacheTTL:          6 * time.Hour,
		},
		LLM: LLMConfig{
			Provider: "gemini",
			Model:    "gemini-2.0-flash",
			Timeout:  60 * time.Second,
		},
		Scheduling: SchedulingConfig{
			MaxRounds:        5,
			ApprovalSentinel: DefaultApprovalSentinel,
			MaxToolRounds:    8,
		},
		Notify: NotifyConfig{
			Timeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level:            "info",
			Format:           "json",
			OutputPaths:      []string{"stdout"},
			EnableCaller:     true,
			EnableStacktrace: false,
		},
		Telemetry: TelemetryConfig{
			Enabled:      false,
			OTLPEndpoint: "localhost:4317",
			ServiceName:  "fleetassist",
			SampleRate:   1.0,
		},
	}
}
