package app

import (
	"fmt"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/Brownie44l1/animal-recognizer/internal/config"
	"github.com/Brownie44l1/animal-recognizer/internal/logging"
	"github.com/Brownie44l1/animal-recognizer/internal/model"
)

// App holds what both entry points build at startup.
type App struct {
	Config *config.Config
	Logger *zap.Logger
	Status model.Status
}

// OptionFunc customizes startup.
type OptionFunc func(*options)

type options struct {
	opener model.Opener
	logger *zap.Logger
}

// WithOpener replaces the ONNX model opener.
func WithOpener(open model.Opener) OptionFunc {
	return func(o *options) { o.opener = open }
}

// WithLogger uses log instead of building one from the config.
func WithLogger(log *zap.Logger) OptionFunc {
	return func(o *options) { o.logger = log }
}

// New loads and validates configuration, builds the logger and performs the
// one-shot model load. A missing or broken model is not an error; the
// returned status is degraded instead.
func New(v *viper.Viper, opts ...OptionFunc) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	log := o.logger
	if log == nil {
		log = logging.New(cfg)
	}

	var status model.Status
	if o.opener != nil {
		status = model.LoadWith(cfg, log, o.opener)
	} else {
		status = model.Load(cfg, log)
	}

	return &App{Config: cfg, Logger: log, Status: status}, nil
}

// Close releases the model and flushes the logger.
func (a *App) Close() {
	if err := a.Status.Close(); err != nil {
		a.Logger.Warn("failed to close model", zap.Error(err))
	}
	if err := model.Shutdown(); err != nil {
		a.Logger.Warn("failed to destroy onnx runtime", zap.Error(err))
	}
	_ = a.Logger.Sync()
}
