package model

import (
	"context"

	"github.com/Brownie44l1/animal-recognizer/internal/imaging"
)

// Classifier runs forward inference on a preprocessed image tensor and
// returns one score per class for the single batch item.
type Classifier interface {
	Layout() imaging.Layout
	Infer(ctx context.Context, input imaging.Tensor) ([]float32, error)
	Close() error
}

// Status is the outcome of the one-shot startup load. A Ready status always
// carries both a classifier and a label table.
type Status struct {
	Classifier Classifier
	Labels     Labels
	Reason     error // why loading failed; nil when ready
}

// Ready reports whether real inference is available.
func (s Status) Ready() bool {
	return s.Reason == nil && s.Classifier != nil && s.Labels != nil
}

// Degraded returns a status that selects the mock predictors.
func Degraded(reason error) Status {
	return Status{Reason: reason}
}

// Close releases the classifier, if any.
func (s Status) Close() error {
	if s.Classifier == nil {
		return nil
	}
	return s.Classifier.Close()
}
