package predictor

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Brownie44l1/animal-recognizer/internal/imaging"
	"github.com/Brownie44l1/animal-recognizer/internal/model"
)

// Mode names the operating state reported by the health endpoint.
type Mode string

const (
	ModeMock       Mode = "mock"
	ModeProduction Mode = "production"
)

const (
	confidenceMock    = "mock"
	confidenceUnknown = "unknown"
)

// MockLabel is returned for every upload when no model is loaded.
const MockLabel = "dog"

// Input is the image to classify. Name is the client-side filename or the
// local path; Data holds the raw bytes and may be nil for path-only
// predictors.
type Input struct {
	Name string
	Data []byte
}

// Result is a single prediction.
type Result struct {
	Label      string `json:"prediction"`
	Confidence string `json:"confidence"`
}

// Predictor classifies one image.
type Predictor interface {
	Predict(ctx context.Context, in Input) (Result, error)
	Mode() Mode
}

// InferenceError wraps a failed forward pass.
type InferenceError struct {
	Err error
}

func (e *InferenceError) Error() string { return e.Err.Error() }

func (e *InferenceError) Unwrap() error { return e.Err }

// ForUpload picks the predictor for uploaded bytes: the real model when the
// status is ready, otherwise the validating mock.
func ForUpload(status model.Status) Predictor {
	if status.Ready() {
		return NewReal(status.Classifier, status.Labels)
	}
	return Mock{}
}

// ForPath picks the predictor for local files: the real model when the
// status is ready, otherwise the filename heuristic.
func ForPath(status model.Status) Predictor {
	if status.Ready() {
		return NewReal(status.Classifier, status.Labels)
	}
	return FilenameHeuristic{}
}

// Real runs the loaded classifier.
type Real struct {
	classifier model.Classifier
	labels     model.Labels
}

func NewReal(cls model.Classifier, labels model.Labels) *Real {
	return &Real{classifier: cls, labels: labels}
}

func (p *Real) Mode() Mode { return ModeProduction }

// Predict preprocesses in.Data, runs the classifier and maps the arg-max
// class to its label. Undecodable input returns imaging.ErrInvalidImage;
// model failures return *InferenceError.
func (p *Real) Predict(ctx context.Context, in Input) (Result, error) {
	tensor, err := imaging.Preprocess(in.Data, p.classifier.Layout())
	if err != nil {
		return Result{}, err
	}

	scores, err := p.classifier.Infer(ctx, tensor)
	if err != nil {
		return Result{}, &InferenceError{Err: err}
	}

	idx, err := ArgMax(scores)
	if err != nil {
		return Result{}, &InferenceError{Err: err}
	}

	return Result{Label: p.labels.Name(idx), Confidence: confidenceUnknown}, nil
}

var errNoScores = errors.New("model returned no scores")

// ArgMax returns the index of the largest score. Ties resolve to the lowest
// index.
func ArgMax(scores []float32) (int, error) {
	if len(scores) == 0 {
		return 0, errNoScores
	}
	best := 0
	for i := 1; i < len(scores); i++ {
		if scores[i] > scores[best] {
			best = i
		}
	}
	return best, nil
}

// Mock stands in for the model on the HTTP path. It checks that the upload
// decodes and always answers MockLabel.
type Mock struct{}

func (Mock) Mode() Mode { return ModeMock }

func (Mock) Predict(_ context.Context, in Input) (Result, error) {
	if err := imaging.Validate(in.Data); err != nil {
		return Result{}, err
	}
	return Result{Label: MockLabel, Confidence: confidenceMock}, nil
}

// FilenameHeuristic stands in for the model on the CLI path. It guesses from
// the file name alone and never reads the file.
type FilenameHeuristic struct{}

func (FilenameHeuristic) Mode() Mode { return ModeMock }

func (FilenameHeuristic) Predict(_ context.Context, in Input) (Result, error) {
	return Result{Label: guessFromName(in.Name), Confidence: confidenceMock}, nil
}

func guessFromName(path string) string {
	base := strings.ToLower(filepath.Base(path))
	switch {
	case strings.Contains(base, "cat"):
		return "cat"
	case strings.Contains(base, "dog"):
		return "dog"
	case strings.Contains(base, "a.jpeg"), strings.Contains(base, "a.jpg"):
		return "dog"
	default:
		return "unknown-animal"
	}
}

// Describe returns a short human-readable description of p for logs.
func Describe(p Predictor) string {
	switch p.(type) {
	case *Real:
		return "onnx"
	case Mock:
		return "mock"
	case FilenameHeuristic:
		return "filename-heuristic"
	default:
		return fmt.Sprintf("%T", p)
	}
}
