package httptransport

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	platformerrors "image-recognition-go/internal/platform/errors"
	"image-recognition-go/internal/platform/logging"
	"image-recognition-go/internal/platform/observability"
)

const requestIDHeader = "X-Request-ID"

// Options configures the HTTP router builder.
type Options struct {
	LogLevel string
	Logger   *logging.Logger
}

// Router bundles the gin engine and the /api group.
type Router struct {
	Engine *gin.Engine
	API    *gin.RouterGroup
}

// Build constructs a gin engine with logging, recovery, CORS and observability middlewares.
func Build(opts Options) (*Router, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.DefaultLogger
	}
	if logger == nil {
		return nil, platformerrors.New(platformerrors.KindTransport, "http.build", "logger is required")
	}

	// stdout carries the MCP stdio stream, so gin must never write there.
	gin.DefaultWriter = os.Stderr
	gin.DefaultErrorWriter = os.Stderr
	gin.DebugPrintFunc = func(format string, values ...interface{}) {
		logger.DebugTag("HTTP", strings.TrimSpace(fmt.Sprintf(format, values...)))
	}

	if strings.EqualFold(opts.LogLevel, "debug") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(loggingMiddleware(logger))
	engine.Use(observabilityMiddleware())

	if err := engine.SetTrustedProxies(nil); err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindTransport, "http.build", "set trusted proxies", err)
	}

	engine.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length", requestIDHeader},
		MaxAge:        12 * time.Hour,
	}))

	engine.NoRoute(func(c *gin.Context) {
		RespondError(c, http.StatusNotFound, "not found")
	})

	return &Router{
		Engine: engine,
		API:    engine.Group("/api"),
	}, nil
}

func loggingMiddleware(logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.InfoTag("HTTP", "%s %s -> %d (%s)",
			c.Request.Method,
			c.Request.URL.Path,
			c.Writer.Status(),
			time.Since(start),
		)
	}
}

func observabilityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(requestIDHeader, requestID)

		reqCtx := observability.WithRequestID(c.Request.Context(), requestID)
		reqCtx, spanEnd := observability.StartSpan(reqCtx, "http.server", path)
		c.Request = c.Request.WithContext(reqCtx)

		start := time.Now()
		c.Next()
		duration := time.Since(start)

		var spanErr error
		if len(c.Errors) > 0 {
			spanErr = c.Errors.Last().Err
		} else if status := c.Writer.Status(); status >= http.StatusInternalServerError {
			spanErr = fmt.Errorf("status %d", status)
		}
		spanEnd(spanErr)

		labels := map[string]string{
			"component": "http.server",
			"method":    c.Request.Method,
			"path":      path,
		}
		observability.RecordMetric(reqCtx, "http.request.duration_ms", float64(duration.Milliseconds()), labels)
		labels["status"] = strconv.Itoa(c.Writer.Status())
		observability.RecordMetric(reqCtx, "http.requests", 1, labels)
	}
}
