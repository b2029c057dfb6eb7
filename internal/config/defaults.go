package config

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.Redis.DialTimeoutSeconds == 0 {
		cfg.Redis.DialTimeoutSeconds = 5
	}
	if cfg.Redis.ReadTimeoutSeconds == 0 {
		cfg.Redis.ReadTimeoutSeconds = 5
	}
	if cfg.Redis.WriteTimeoutSeconds == 0 {
		cfg.Redis.WriteTimeoutSeconds = 5
	}
	if cfg.Redis.ConnectAttempts == 0 {
		cfg.Redis.ConnectAttempts = 3
	}

	if cfg.Memory.VectorTTLSeconds == 0 {
		cfg.Memory.VectorTTLSeconds = 86400 // 24h
	}
	if cfg.Memory.WorkingTTLSeconds == 0 {
		cfg.Memory.WorkingTTLSeconds = 1800 // 30m
	}
	if cfg.Memory.CacheTTLSeconds == 0 {
		cfg.Memory.CacheTTLSeconds = 3600 // 1h
	}

	if cfg.Pressure.WarningPercent == 0 {
		cfg.Pressure.WarningPercent = 70
	}
	if cfg.Pressure.CriticalPercent == 0 {
		cfg.Pressure.CriticalPercent = 85
	}
	if cfg.Pressure.EmergencyPercent == 0 {
		cfg.Pressure.EmergencyPercent = 95
	}

	if cfg.Cleanup.IntervalSeconds == 0 {
		cfg.Cleanup.IntervalSeconds = 300
	}
	if cfg.Cleanup.MaxWorkingAgeSeconds == 0 {
		cfg.Cleanup.MaxWorkingAgeSeconds = 1800
	}
	if cfg.Cleanup.MaxVectorAgeSeconds == 0 {
		cfg.Cleanup.MaxVectorAgeSeconds = 86400
	}
	if cfg.Cleanup.EmergencyWorkingAgeSeconds == 0 {
		cfg.Cleanup.EmergencyWorkingAgeSeconds = 300
	}
	if cfg.Cleanup.BCMMaxAgeDays == 0 {
		cfg.Cleanup.BCMMaxAgeDays = 30
	}
	if cfg.Cleanup.CacheBatchSize == 0 {
		cfg.Cleanup.CacheBatchSize = 100
	}
	if cfg.Cleanup.VectorBatchSize == 0 {
		cfg.Cleanup.VectorBatchSize = 25
	}
	if cfg.Cleanup.HistorySize == 0 {
		cfg.Cleanup.HistorySize = 100
	}

	if cfg.Health.DegradedLatencyMs == 0 {
		cfg.Health.DegradedLatencyMs = 100
	}
	if cfg.Health.UnhealthyLatencyMs == 0 {
		cfg.Health.UnhealthyLatencyMs = 500
	}
	if cfg.Health.DegradedErrorPercent == 0 {
		cfg.Health.DegradedErrorPercent = 5
	}
	if cfg.Health.UnhealthyErrorPercent == 0 {
		cfg.Health.UnhealthyErrorPercent = 10
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stderr"
	}
}
