package model

import (
	"context"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/Brownie44l1/animal-recognizer/internal/imaging"
)

// ortEnv guards the process-wide ONNX Runtime initialization.
var ortEnv struct {
	once sync.Once
	err  error
}

func initORT(libPath string) error {
	ortEnv.once.Do(func() {
		if libPath != "" {
			ort.SetSharedLibraryPath(libPath)
		}
		ortEnv.err = ort.InitializeEnvironment()
	})
	return ortEnv.err
}

// Shutdown destroys the ONNX Runtime environment if it was initialized.
func Shutdown() error {
	if !ort.IsInitialized() {
		return nil
	}
	return ort.DestroyEnvironment()
}

// Session is an ONNX image classifier. It allocates tensors per call, so
// Infer may be used from many goroutines at once.
type Session struct {
	session     *ort.DynamicAdvancedSession
	inputName  string
	outputName string
	layout     imaging.Layout
}

// NewSession loads an ONNX model with a single image input of shape
// [N, 224, 224, 3] or [N, 3, 224, 224].
func NewSession(modelPath, libPath string) (*Session, error) {
	if err := initORT(libPath); err != nil {
		return nil, fmt.Errorf("onnx: failed to initialize runtime: %w", err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to read model info: %w", err)
	}

	if len(inputs) != 1 {
		return nil, fmt.Errorf("onnx: expected 1 input, model has %d", len(inputs))
	}
	input := inputs[0]
	if input.DataType != ort.TensorElementDataTypeFloat {
		return nil, fmt.Errorf("onnx: input %q must be float32, got %v", input.Name, input.DataType)
	}
	layout, err := layoutOf(input.Dimensions)
	if err != nil {
		return nil, fmt.Errorf("onnx: input %q: %w", input.Name, err)
	}

	if len(outputs) == 0 {
		return nil, fmt.Errorf("onnx: model has no outputs")
	}
	output := outputs[0]
	if output.DataType != ort.TensorElementDataTypeFloat {
		return nil, fmt.Errorf("onnx: output %q must be float32, got %v", output.Name, output.DataType)
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create session options: %w", err)
	}
	defer opts.Destroy()

	session, err := ort.NewDynamicAdvancedSession(modelPath,
		[]string{input.Name}, []string{output.Name}, opts)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create session: %w", err)
	}

	return &Session{
		session:    session,
		inputName:  input.Name,
		outputName: output.Name,
		layout:     layout,
	}, nil
}

// layoutOf recognizes NHWC and NCHW image inputs with three channels.
func layoutOf(dims ort.Shape) (imaging.Layout, error) {
	if len(dims) != 4 {
		return 0, fmt.Errorf("expected rank 4 image tensor, got %v", dims)
	}
	switch {
	case dims[3] == imaging.Channels:
		return imaging.NHWC, nil
	case dims[1] == imaging.Channels:
		return imaging.NCHW, nil
	default:
		return 0, fmt.Errorf("expected 3 channels in NHWC or NCHW layout, got %v", dims)
	}
}

// Layout returns the tensor layout the model expects.
func (s *Session) Layout() imaging.Layout {
	return s.layout
}

// Infer runs one forward pass and returns the scores of batch item 0.
func (s *Session) Infer(ctx context.Context, input imaging.Tensor) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if input.Layout != s.layout {
		return nil, fmt.Errorf("onnx: model expects %s input, got %s", s.layout, input.Layout)
	}

	in, err := ort.NewTensor(ort.NewShape(input.Shape...), input.Data)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create input tensor: %w", err)
	}
	defer in.Destroy()

	// A nil output is allocated by the runtime, so dynamic output shapes work.
	outputs := []ort.Value{nil}
	if err := s.session.Run([]ort.Value{in}, outputs); err != nil {
		return nil, fmt.Errorf("onnx: inference failed: %w", err)
	}
	if outputs[0] == nil {
		return nil, fmt.Errorf("onnx: model produced no output")
	}
	defer outputs[0].Destroy()

	out, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("onnx: output %q is not a float32 tensor", s.outputName)
	}

	// Output is [1, classes]; copy before the tensor is destroyed.
	src := out.GetData()
	scores := make([]float32, len(src))
	copy(scores, src)
	return scores, nil
}

// Close releases the session.
func (s *Session) Close() error {
	if s.session == nil {
		return nil
	}
	return s.session.Destroy()
}
