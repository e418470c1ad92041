package config

// LogConfig configures the structured logger.  Output is "stdout", "file"
// or "both"; file output rotates at MaxSize megabytes.
type LogConfig struct {
	Level      string
	Format     string
	Output     string
	File       string
	MaxSize    int
	MaxBackups int
	MaxAge     int
	Compress   bool
}

func LoadLogConfig() LogConfig {
	return LogConfig{
		Level:      envStr("LOG_LEVEL", "info"),
		Format:     envStr("LOG_FORMAT", "json"),
		Output:     envStr("LOG_OUTPUT", "stdout"),
		File:       envStr("LOG_FILE", "logs/gateway.log"),
		MaxSize:    envInt("LOG_MAX_SIZE_MB", 100),
		MaxBackups: envInt("LOG_MAX_BACKUPS", 5),
		MaxAge:     envInt("LOG_MAX_AGE_DAYS", 30),
		Compress:   envBool("LOG_COMPRESS", true),
	}
}
