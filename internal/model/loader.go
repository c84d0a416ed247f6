package model

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/Brownie44l1/animal-recognizer/internal/config"
)

// Opener creates a classifier from a model file. NewSession is the
// production opener.
type Opener func(modelPath, libPath string) (Classifier, error)

func openONNX(modelPath, libPath string) (Classifier, error) {
	return NewSession(modelPath, libPath)
}

// Load attempts to load the model and label table once at startup. It never
// fails: any problem yields a degraded status, which selects the mock
// predictors, and is logged as a warning.
func Load(cfg *config.Config, log *zap.Logger) Status {
	return LoadWith(cfg, log, openONNX)
}

// LoadWith is Load with a custom model opener.
func LoadWith(cfg *config.Config, log *zap.Logger, open Opener) Status {
	status := load(cfg, open)
	if !status.Ready() {
		log.Warn("could not load model, using mock predictor",
			zap.String("model_path", cfg.ModelPath),
			zap.String("labels_path", cfg.LabelsPath),
			zap.Error(status.Reason),
		)
		return status
	}

	log.Info("loaded model",
		zap.String("model_path", cfg.ModelPath),
		zap.String("labels_path", cfg.LabelsPath),
		zap.Int("classes", len(status.Labels)),
		zap.Stringer("layout", status.Classifier.Layout()),
	)
	return status
}

func load(cfg *config.Config, open Opener) Status {
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return Degraded(fmt.Errorf("model file: %w", err))
	}

	labels, err := LoadLabels(cfg.LabelsPath)
	if err != nil {
		return Degraded(err)
	}

	cls, err := open(cfg.ModelPath, cfg.ONNXLibraryPath)
	if err != nil {
		return Degraded(err)
	}

	return Status{Classifier: cls, Labels: labels}
}
