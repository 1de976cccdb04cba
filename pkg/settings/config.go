package settings

import "time"

type Config struct {
	Logger Logger `mapstructure:"logger"`
	Reaper Reaper `mapstructure:"reaper"`
}

// Logger is the configuration for the logger
type Logger struct {
	LogLevel    string `mapstructure:"log_level" validate:"omitempty,oneof=debug info warn error dpanic panic fatal"`
	FileLogName string `mapstructure:"file_log_name"`
	MaxBackups  int    `mapstructure:"max_backups" validate:"gte=0"`
	MaxAge      int    `mapstructure:"max_age" validate:"gte=0"`  // Days
	MaxSize     int    `mapstructure:"max_size" validate:"gte=0"` // Megabytes
	Compress    bool   `mapstructure:"compress"`
}

// Reaper is the configuration for the retirement queue consumer pool
type Reaper struct {
	Workers       int           `mapstructure:"workers" validate:"gte=1,lte=1024"`
	BatchSize     int           `mapstructure:"batch_size" validate:"gte=1"`
	FlushInterval time.Duration `mapstructure:"flush_interval" validate:"gt=0"`
}

const (
	DefaultReaperWorkers       = 1
	DefaultReaperBatchSize     = 64
	DefaultReaperFlushInterval = 100 * time.Millisecond
)

// WithDefaults fills zero fields with their defaults.
func (r Reaper) WithDefaults() Reaper {
	if r.Workers == 0 {
		r.Workers = DefaultReaperWorkers
	}
	if r.BatchSize == 0 {
		r.BatchSize = DefaultReaperBatchSize
	}
	if r.FlushInterval == 0 {
		r.FlushInterval = DefaultReaperFlushInterval
	}
	return r
}
