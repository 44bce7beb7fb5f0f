package mcptransport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"image-recognition-go/internal/domain/recognition"
	platformerrors "image-recognition-go/internal/platform/errors"
	"image-recognition-go/internal/platform/logging"
)

// ToolName is the name clients call.
const ToolName = "recognize_image"

const shutdownTimeout = 5 * time.Second

// Recognizer is the operation exposed as a tool.
type Recognizer interface {
	RecognizeImage(ctx context.Context, req recognition.Request) string
	DefaultModel() string
}

// Options configures the MCP server.
type Options struct {
	Name       string
	Version    string
	Recognizer Recognizer
	Logger     *logging.Logger
}

// Server exposes recognize_image over the Model Context Protocol.
type Server struct {
	mcp        *server.MCPServer
	recognizer Recognizer
	logger     *logging.Logger
}

// NewServer registers the tool on a fresh MCP server.
func NewServer(opts Options) (*Server, error) {
	if opts.Recognizer == nil {
		return nil, platformerrors.New(platformerrors.KindConfig, "mcp.new", "recognizer is required")
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.Name == "" {
		opts.Name = "image-recognition"
	}
	if opts.Version == "" {
		opts.Version = "1.0.0"
	}

	s := &Server{
		mcp:        server.NewMCPServer(opts.Name, opts.Version, server.WithToolCapabilities(false), server.WithRecovery()),
		recognizer: opts.Recognizer,
		logger:     opts.Logger,
	}
	s.mcp.AddTool(s.recognizeTool(), s.handleRecognizeImage)
	s.logger.InfoTag("MCP", "tool registered: %s (default model %s)", ToolName, opts.Recognizer.DefaultModel())
	return s, nil
}

func (s *Server) recognizeTool() mcp.Tool {
	return mcp.NewTool(ToolName,
		mcp.WithDescription("Recognize and describe the content of an image using AI vision models."),
		mcp.WithString("image",
			mcp.Required(),
			mcp.Description("The image to analyze: an http(s) URL, a data URI, or a raw base64 string."),
		),
		mcp.WithString("prompt",
			mcp.Description("Instruction or question about the image."),
			mcp.DefaultString(recognition.DefaultPrompt),
		),
		mcp.WithString("model",
			mcp.Description(fmt.Sprintf("Model name, e.g. gemini-1.5-flash or qwen-vl-max. Defaults to %s.",
				s.recognizer.DefaultModel())),
		),
	)
}

func stringArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

func (s *Server) handleRecognizeImage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	image := stringArg(args, "image")
	if image == "" {
		return mcp.NewToolResultError("image is required"), nil
	}

	text := s.recognizer.RecognizeImage(ctx, recognition.Request{
		Image:  image,
		Prompt: stringArg(args, "prompt"),
		Model:  stringArg(args, "model"),
	})
	return mcp.NewToolResultText(text), nil
}

// MCPServer exposes the underlying server, mainly for tests.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// ServeStdio serves on stdin/stdout until ctx is cancelled or stdin closes.
func (s *Server) ServeStdio(ctx context.Context) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(slog.NewLogLogger(s.logger.Slog().Handler(), slog.LevelError))

	s.logger.InfoTag("MCP", "serving on stdio")
	err := stdio.Listen(ctx, os.Stdin, os.Stdout)
	if err != nil && !errors.Is(err, context.Canceled) {
		return platformerrors.Wrap(platformerrors.KindTransport, "mcp.stdio", "stdio server stopped", err)
	}
	return nil
}

// ServeSSE serves the SSE transport on addr until ctx is cancelled.
func (s *Server) ServeSSE(ctx context.Context, addr string) error {
	sse := server.NewSSEServer(s.mcp)

	errCh := make(chan error, 1)
	go func() {
		s.logger.InfoTag("MCP", "serving SSE on %s", addr)
		errCh <- sse.Start(addr)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return platformerrors.Wrap(platformerrors.KindTransport, "mcp.sse", "sse server stopped", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := sse.Shutdown(shutdownCtx); err != nil {
			s.logger.WarnTag("MCP", "sse shutdown: %v", err)
		}
		return nil
	}
}
