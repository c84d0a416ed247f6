package predictor

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/Brownie44l1/animal-recognizer/internal/imaging"
	"github.com/Brownie44l1/animal-recognizer/internal/model"
)

type fakeClassifier struct {
	scores []float32
	err    error
	layout imaging.Layout
	calls  int
	last   imaging.Tensor
}

func (f *fakeClassifier) Layout() imaging.Layout { return f.layout }

func (f *fakeClassifier) Infer(_ context.Context, in imaging.Tensor) ([]float32, error) {
	f.calls++
	f.last = in
	return f.scores, f.err
}

func (f *fakeClassifier) Close() error { return nil }

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 16), G: uint8(y * 16), B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestArgMax(t *testing.T) {
	tests := []struct {
		name   string
		scores []float32
		want   int
	}{
		{"single", []float32{0.3}, 0},
		{"max last", []float32{0.1, 0.2, 0.7}, 2},
		{"max first", []float32{0.9, 0.05, 0.05}, 0},
		{"tie picks lowest index", []float32{0.1, 0.45, 0.45}, 1},
		{"all equal", []float32{0.25, 0.25, 0.25, 0.25}, 0},
		{"negative logits", []float32{-3, -1, -2}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ArgMax(tt.scores)
			if err != nil {
				t.Fatalf("ArgMax: %v", err)
			}
			if got != tt.want {
				t.Fatalf("ArgMax(%v) = %d, want %d", tt.scores, got, tt.want)
			}
		})
	}

	if _, err := ArgMax(nil); err == nil {
		t.Fatal("expected error for empty scores")
	}
}

func TestReal_PredictsLabel(t *testing.T) {
	cls := &fakeClassifier{scores: []float32{0.1, 0.8, 0.1}}
	p := NewReal(cls, model.Labels{0: "cat", 1: "dog", 2: "horse"})

	res, err := p.Predict(context.Background(), Input{Name: "x.png", Data: testPNG(t)})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if res.Label != "dog" {
		t.Fatalf("label = %q, want dog", res.Label)
	}
	if res.Confidence != "unknown" {
		t.Fatalf("confidence = %q, want unknown", res.Confidence)
	}
	if p.Mode() != ModeProduction {
		t.Fatalf("mode = %q", p.Mode())
	}
	if cls.last.Shape[0] != 1 || cls.last.Shape[3] != imaging.Channels {
		t.Fatalf("classifier received shape %v", cls.last.Shape)
	}
}

func TestReal_UsesClassifierLayout(t *testing.T) {
	cls := &fakeClassifier{scores: []float32{1}, layout: imaging.NCHW}
	p := NewReal(cls, model.Labels{0: "cat"})

	if _, err := p.Predict(context.Background(), Input{Data: testPNG(t)}); err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if cls.last.Layout != imaging.NCHW || cls.last.Shape[1] != imaging.Channels {
		t.Fatalf("expected NCHW tensor, got %v %v", cls.last.Layout, cls.last.Shape)
	}
}

func TestReal_MissingLabelPlaceholder(t *testing.T) {
	cls := &fakeClassifier{scores: []float32{0.1, 0.2, 0.3, 0.9}}
	p := NewReal(cls, model.Labels{0: "cat", 1: "dog"})

	res, err := p.Predict(context.Background(), Input{Data: testPNG(t)})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if res.Label != "Unknown class ID: 3" {
		t.Fatalf("label = %q", res.Label)
	}
}

func TestReal_InferenceError(t *testing.T) {
	cause := errors.New("shape mismatch")
	p := NewReal(&fakeClassifier{err: cause}, model.Labels{0: "cat"})

	_, err := p.Predict(context.Background(), Input{Data: testPNG(t)})
	var infErr *InferenceError
	if !errors.As(err, &infErr) {
		t.Fatalf("expected *InferenceError, got %T: %v", err, err)
	}
	if !errors.Is(err, cause) {
		t.Fatal("expected inference error to wrap the cause")
	}
	if err.Error() != "shape mismatch" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestReal_EmptyScoresIsInferenceError(t *testing.T) {
	p := NewReal(&fakeClassifier{scores: []float32{}}, model.Labels{0: "cat"})

	_, err := p.Predict(context.Background(), Input{Data: testPNG(t)})
	var infErr *InferenceError
	if !errors.As(err, &infErr) {
		t.Fatalf("expected *InferenceError, got %v", err)
	}
}

func TestReal_InvalidImageSkipsModel(t *testing.T) {
	cls := &fakeClassifier{scores: []float32{1}}
	p := NewReal(cls, model.Labels{0: "cat"})

	_, err := p.Predict(context.Background(), Input{Data: []byte("GIF? no")})
	if !errors.Is(err, imaging.ErrInvalidImage) {
		t.Fatalf("expected ErrInvalidImage, got: %v", err)
	}
	if cls.calls != 0 {
		t.Fatal("classifier should not run on undecodable input")
	}
}

func TestMock(t *testing.T) {
	var p Mock

	res, err := p.Predict(context.Background(), Input{Name: "cat.png", Data: testPNG(t)})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if res.Label != "dog" || res.Confidence != "mock" {
		t.Fatalf("unexpected result %+v", res)
	}

	_, err = p.Predict(context.Background(), Input{Data: []byte("plain text")})
	if !errors.Is(err, imaging.ErrInvalidImage) {
		t.Fatalf("expected ErrInvalidImage, got: %v", err)
	}
}

func TestFilenameHeuristic(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"cat_photo.png", "cat"},
		{"/tmp/images/CAT.JPG", "cat"},
		{"dog.jpg", "dog"},
		{"hotdog-cat.png", "cat"},
		{"a.jpeg", "dog"},
		{"a.jpg", "dog"},
		{"/some/dir/a.jpeg", "dog"},
		{"/cats/zebra.png", "unknown-animal"},
		{"b.jpeg", "unknown-animal"},
		{"horse.png", "unknown-animal"},
	}
	var p FilenameHeuristic
	for _, tt := range tests {
		res, err := p.Predict(context.Background(), Input{Name: tt.path})
		if err != nil {
			t.Fatalf("Predict(%q): %v", tt.path, err)
		}
		if res.Label != tt.want {
			t.Errorf("Predict(%q) = %q, want %q", tt.path, res.Label, tt.want)
		}
	}
}

func TestSelection(t *testing.T) {
	degraded := model.Degraded(errors.New("no model"))
	if _, ok := ForUpload(degraded).(Mock); !ok {
		t.Fatal("degraded upload predictor should be Mock")
	}
	if _, ok := ForPath(degraded).(FilenameHeuristic); !ok {
		t.Fatal("degraded path predictor should be FilenameHeuristic")
	}
	if ForUpload(degraded).Mode() != ModeMock {
		t.Fatal("degraded mode should be mock")
	}

	ready := model.Status{Classifier: &fakeClassifier{scores: []float32{1}}, Labels: model.Labels{0: "cat"}}
	if _, ok := ForUpload(ready).(*Real); !ok {
		t.Fatal("ready upload predictor should be Real")
	}
	if _, ok := ForPath(ready).(*Real); !ok {
		t.Fatal("ready path predictor should be Real")
	}
}

func TestPredictors_Idempotent(t *testing.T) {
	data := testPNG(t)
	predictors := []Predictor{
		NewReal(&fakeClassifier{scores: []float32{0.2, 0.5, 0.3}}, model.Labels{0: "cat", 1: "dog", 2: "cow"}),
		Mock{},
		FilenameHeuristic{},
	}
	for _, p := range predictors {
		in := Input{Name: "kitty_cat.png", Data: data}
		first, err := p.Predict(context.Background(), in)
		if err != nil {
			t.Fatalf("%s: %v", Describe(p), err)
		}
		second, err := p.Predict(context.Background(), in)
		if err != nil {
			t.Fatalf("%s: %v", Describe(p), err)
		}
		if first != second {
			t.Fatalf("%s: %+v != %+v", Describe(p), first, second)
		}
	}
}
