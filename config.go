package reactor

import (
	"fmt"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"
)

const (
	DEFAULT_EPOLL_EVENTS      = 4096
	DEFAULT_IDLE_TIMEOUT_MS   = 60000
	DEFAULT_MAX_CONNECTIONS   = 65536
	DEFAULT_READ_BUFFER       = 4096
	DEFAULT_HOOK_THREADS      = 1
	DEFAULT_HOOK_QUEUE_LENGTH = 1024
	DEFAULT_ADDRESS           = "0.0.0.0:8080"
)

// Config holds the server settings. Zero values are replaced with defaults
// by DefaultConfig and LoadConfig.
type Config struct {
	Address         string `yaml:"address"`
	Workers         int    `yaml:"workers"`
	IdleTimeoutMs   int    `yaml:"idle_timeout_ms"`
	MaxConnections  int    `yaml:"max_connections"`
	PollTimeoutMs   int    `yaml:"poll_timeout_ms"`
	MaxEvents       int    `yaml:"max_events"`
	ReadBuffer      int    `yaml:"read_buffer"`
	HookThreads     int    `yaml:"hook_threads"`
	HookQueueLength int    `yaml:"hook_queue_length"`
	LogLevel        string `yaml:"log_level"`
}

func DefaultConfig() Config {
	return Config{
		Address:         DEFAULT_ADDRESS,
		Workers:         runtime.GOMAXPROCS(0),
		IdleTimeoutMs:   DEFAULT_IDLE_TIMEOUT_MS,
		MaxConnections:  DEFAULT_MAX_CONNECTIONS,
		PollTimeoutMs:   -1,
		MaxEvents:       DEFAULT_EPOLL_EVENTS,
		ReadBuffer:      DEFAULT_READ_BUFFER,
		HookThreads:     DEFAULT_HOOK_THREADS,
		HookQueueLength: DEFAULT_HOOK_QUEUE_LENGTH,
		LogLevel:        "info",
	}
}

// LoadConfig reads a YAML file over the defaults and validates the result.
func LoadConfig(path string) (Config, error) {
	var cfg = DefaultConfig()
	var data, err = os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}
	if err = cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate reports the first setting that cannot be used. An idle timeout
// or connection cap of zero or less disables that feature.
func (c Config) Validate() error {
	switch {
	case c.Workers < 0:
		return fmt.Errorf("%w: workers must not be negative, got %d", ErrInvalidConfig, c.Workers)
	case c.MaxEvents <= 0:
		return fmt.Errorf("%w: max_events must be positive, got %d", ErrInvalidConfig, c.MaxEvents)
	case c.ReadBuffer <= 0:
		return fmt.Errorf("%w: read_buffer must be positive, got %d", ErrInvalidConfig, c.ReadBuffer)
	case c.HookThreads <= 0:
		return fmt.Errorf("%w: hook_threads must be positive, got %d", ErrInvalidConfig, c.HookThreads)
	case c.HookQueueLength <= 0:
		return fmt.Errorf("%w: hook_queue_length must be positive, got %d", ErrInvalidConfig, c.HookQueueLength)
	case c.HookQueueLength < c.HookThreads:
		return fmt.Errorf("%w: hook_queue_length %d is shorter than hook_threads %d", ErrInvalidConfig, c.HookQueueLength, c.HookThreads)
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}
