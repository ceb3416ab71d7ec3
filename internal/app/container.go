package app

import (
	"fmt"

	"github.com/Nandox7/goprinthost/internal/config"
	"github.com/Nandox7/goprinthost/internal/hosts"
	"github.com/Nandox7/goprinthost/internal/hosts/repetier"
	"github.com/sirupsen/logrus"
)

// Container centralizes the core dependencies used across the application.
// It is intentionally small and uses interfaces so callers (and tests) can
// substitute implementations easily.
type Container struct {
	Config *config.Config
	Logger *logrus.Logger
	Host   hosts.PrintHost
}

// Option allows customizing the container during construction.
type Option func(*Container) error

// WithLogger overrides the default logger.
func WithLogger(logger *logrus.Logger) Option {
	return func(c *Container) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		c.Logger = logger
		return nil
	}
}

// WithHost overrides the default print host client.
func WithHost(host hosts.PrintHost) Option {
	return func(c *Container) error {
		if host == nil {
			return fmt.Errorf("print host cannot be nil")
		}
		c.Host = host
		return nil
	}
}

// NewContainer builds a Container with sensible defaults derived from cfg.
// Options can be supplied to override specific dependencies (useful in tests).
func NewContainer(cfg *config.Config, opts ...Option) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	container := &Container{
		Config: cfg,
		Logger: BuildDefaultLogger(cfg.Loglevel),
	}

	// Apply options early so tests can inject mocks before defaults are created.
	for _, opt := range opts {
		if err := opt(container); err != nil {
			return nil, err
		}
	}

	if container.Host == nil {
		host, err := buildHost(cfg, container.Logger)
		if err != nil {
			return nil, err
		}
		container.Host = host
	}

	return container, nil
}

// BuildDefaultLogger constructs the logger used when none is injected.
func BuildDefaultLogger(levelStr string) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	return logger
}

func buildHost(cfg *config.Config, logger *logrus.Logger) (hosts.PrintHost, error) {
	switch cfg.PrintHost.Kind {
	case config.KindRepetier:
		return repetier.New(cfg.PrintHost, logger), nil
	default:
		return nil, fmt.Errorf("unknown print host kind: %q", cfg.PrintHost.Kind)
	}
}
