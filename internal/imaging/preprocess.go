package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/gabriel-vasile/mimetype"
	"github.com/nfnt/resize"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// InputSize is the square edge length the classifier expects.
const InputSize = 224

// Channels is the number of colour channels fed to the classifier.
const Channels = 3

// Layout describes the dimension order of an image tensor.
type Layout int

const (
	// NHWC is [batch, height, width, channels], the Keras default.
	NHWC Layout = iota
	// NCHW is [batch, channels, height, width].
	NCHW
)

func (l Layout) String() string {
	if l == NCHW {
		return "NCHW"
	}
	return "NHWC"
}

// ErrInvalidImage is matched by every error returned for bytes that are not
// a decodable image.
var ErrInvalidImage = errors.New("invalid image")

// ImageError reports why a buffer could not be used as an image.
type ImageError struct {
	MIME string // detected content type
	Err  error
}

func (e *ImageError) Error() string {
	return fmt.Sprintf("cannot identify image file (detected %s): %v", e.MIME, e.Err)
}

func (e *ImageError) Unwrap() error { return e.Err }

func (e *ImageError) Is(target error) bool { return target == ErrInvalidImage }

// Tensor is a dense float32 tensor with a leading batch dimension of 1.
type Tensor struct {
	Shape  []int64
	Data   []float32
	Layout Layout
}

// Decode decodes data with any registered image codec.
func Decode(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", &ImageError{MIME: "empty", Err: errors.New("no data")}
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", &ImageError{MIME: mimetype.Detect(data).String(), Err: err}
	}
	return img, format, nil
}

// Validate reports whether data decodes as an image.
func Validate(data []byte) error {
	_, _, err := Decode(data)
	return err
}

// Preprocess decodes data and converts it into a normalized
// 1×224×224×3 (or 1×3×224×224) tensor with values in [0, 1].
func Preprocess(data []byte, layout Layout) (Tensor, error) {
	img, _, err := Decode(data)
	if err != nil {
		return Tensor{}, err
	}
	return FromImage(img, layout), nil
}

// FromImage resizes img to InputSize and scales its RGB channels to [0, 1].
// Alpha is discarded without premultiplication.
func FromImage(img image.Image, layout Layout) Tensor {
	resized := resize.Resize(InputSize, InputSize, img, resize.Bilinear)

	bounds := resized.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	plane := width * height
	data := make([]float32, Channels*plane)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			px := color.NRGBAModel.Convert(resized.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.NRGBA)
			r := float32(px.R) / 255.0
			g := float32(px.G) / 255.0
			b := float32(px.B) / 255.0

			idx := y*width + x
			switch layout {
			case NCHW:
				data[idx] = r
				data[plane+idx] = g
				data[2*plane+idx] = b
			default:
				data[idx*Channels] = r
				data[idx*Channels+1] = g
				data[idx*Channels+2] = b
			}
		}
	}

	shape := []int64{1, int64(height), int64(width), Channels}
	if layout == NCHW {
		shape = []int64{1, Channels, int64(height), int64(width)}
	}

	return Tensor{Shape: shape, Data: data, Layout: layout}
}
