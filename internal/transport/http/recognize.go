package httptransport

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"image-recognition-go/internal/domain/recognition"
	platformerrors "image-recognition-go/internal/platform/errors"
	"image-recognition-go/internal/platform/logging"
)

const shutdownTimeout = 10 * time.Second

// Recognizer is the recognition operation served over HTTP.
type Recognizer interface {
	RecognizeImage(ctx context.Context, req recognition.Request) string
	DefaultModel() string
}

// Service exposes recognize_image as a JSON endpoint.
type Service struct {
	recognizer Recognizer
	logger     *logging.Logger
}

func NewService(recognizer Recognizer, logger *logging.Logger) (*Service, error) {
	if recognizer == nil {
		return nil, platformerrors.New(platformerrors.KindTransport, "http.recognize.new", "recognizer is required")
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Service{recognizer: recognizer, logger: logger}, nil
}

// Register mounts the service routes on the /api group.
func (s *Service) Register(api *gin.RouterGroup) {
	api.GET("/health", s.handleHealth)
	api.POST("/recognize", s.handleRecognize)
}

func (s *Service) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"default_model": s.recognizer.DefaultModel(),
	})
}

func (s *Service) handleRecognize(c *gin.Context) {
	var req recognition.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Image) == "" {
		RespondError(c, http.StatusBadRequest, "image is required")
		return
	}

	RespondResult(c, http.StatusOK, s.recognizer.RecognizeImage(c.Request.Context(), req))
}

// Serve runs the handler on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, handler http.Handler, logger *logging.Logger) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.ErrorTag("HTTP", "shutdown failed: %v", err)
		} else {
			logger.InfoTag("HTTP", "server stopped")
		}
	}()

	logger.InfoTag("HTTP", "listening on %s", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return platformerrors.Wrap(platformerrors.KindTransport, "http.serve", "http server failed", err)
	}
	return nil
}
