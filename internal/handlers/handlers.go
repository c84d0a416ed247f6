package handlers

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"lukechampine.com/blake3"

	"github.com/Brownie44l1/animal-recognizer/internal/imaging"
	"github.com/Brownie44l1/animal-recognizer/internal/metrics"
	"github.com/Brownie44l1/animal-recognizer/internal/predictor"
)

// ServiceName is reported by the health endpoint.
const ServiceName = "Animal Recognizer API"

// FileField is the multipart form field carrying the image.
const FileField = "file"

type Handler struct {
	predictor predictor.Predictor
	log       *zap.Logger
	metrics   *metrics.Metrics
	maxUpload int64
}

func NewHandler(p predictor.Predictor, log *zap.Logger, m *metrics.Metrics, maxUpload int64) *Handler {
	return &Handler{
		predictor: p,
		log:       log,
		metrics:   m,
		maxUpload: maxUpload,
	}
}

// HealthResponse is the body of GET /.
type HealthResponse struct {
	Status  string         `json:"status"`
	Service string         `json:"service"`
	Mode    predictor.Mode `json:"mode"`
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "ok",
		Service: ServiceName,
		Mode:    h.predictor.Mode(),
	})
}

// multipartOverhead is the room left in the request body for form framing on
// top of the file size limit.
const multipartOverhead = 1 << 20

// Predict classifies the image uploaded in the "file" form field.
func (h *Handler) Predict(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload+multipartOverhead)

	header, err := c.FormFile(FileField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			abort(c, http.StatusBadRequest, "Failed to read file: "+err.Error())
			return
		}
		abort(c, http.StatusBadRequest, "No file provided")
		return
	}
	if header.Filename == "" {
		abort(c, http.StatusBadRequest, "No file provided")
		return
	}

	if header.Size > h.maxUpload {
		abort(c, http.StatusBadRequest, fmt.Sprintf("Failed to read file: file exceeds %d bytes", h.maxUpload))
		return
	}

	file, err := header.Open()
	if err != nil {
		abort(c, http.StatusBadRequest, "Failed to read file: "+err.Error())
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		abort(c, http.StatusBadRequest, "Failed to read file: "+err.Error())
		return
	}
	if len(data) == 0 {
		abort(c, http.StatusBadRequest, "Empty file")
		return
	}

	digest := blake3.Sum256(data)
	log := h.log.With(
		zap.String("filename", header.Filename),
		zap.Int("size", len(data)),
		zap.String("mime", mimetype.Detect(data).String()),
		zap.String("blake3", hex.EncodeToString(digest[:8])),
	)

	mode := string(h.predictor.Mode())
	start := time.Now()
	result, err := h.predictor.Predict(c.Request.Context(), predictor.Input{
		Name: header.Filename,
		Data: data,
	})
	elapsed := time.Since(start)

	if err != nil {
		if errors.Is(err, imaging.ErrInvalidImage) {
			h.metrics.ObservePrediction(mode, "invalid_image", elapsed)
			log.Info("rejected upload", zap.Error(err))
			abort(c, http.StatusBadRequest, "Invalid image: "+err.Error())
			return
		}
		h.metrics.ObservePrediction(mode, "error", elapsed)
		log.Error("prediction failed", zap.Error(err))
		abort(c, http.StatusInternalServerError, "Prediction error: "+err.Error())
		return
	}

	h.metrics.ObservePrediction(mode, "ok", elapsed)
	log.Info("prediction",
		zap.String("label", result.Label),
		zap.String("mode", mode),
		zap.Duration("elapsed", elapsed),
	)

	c.JSON(http.StatusOK, result)
}

func abort(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": detail})
}
