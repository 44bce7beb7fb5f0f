package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"image-recognition-go/internal/core/providers/vlllm"
	domainimage "image-recognition-go/internal/domain/image"
	"image-recognition-go/internal/domain/recognition"
	platformconfig "image-recognition-go/internal/platform/config"
	platformerrors "image-recognition-go/internal/platform/errors"
	platformlogging "image-recognition-go/internal/platform/logging"
	platformobservability "image-recognition-go/internal/platform/observability"
	httptransport "image-recognition-go/internal/transport/http"
	mcptransport "image-recognition-go/internal/transport/mcp"
)

const bootTag = "BOOT"

type stepFn func(context.Context, *appState) error

type initStep struct {
	ID        string
	Title     string
	DependsOn []string
	Kind      platformerrors.Kind
	Execute   stepFn
}

type appState struct {
	loader                *platformconfig.Loader
	config                *platformconfig.Config
	configPath            string
	logger                *platformlogging.Logger
	observabilityShutdown platformobservability.ShutdownFunc
	backends              map[recognition.BackendKind]recognition.Backend
	pipeline              *domainimage.Pipeline
	service               *recognition.Service
	mcpServer             *mcptransport.Server
	httpHandler           http.Handler
}

// Run loads configuration, wires the recognition service and serves it until
// ctx is cancelled, a termination signal arrives or the stdio peer hangs up.
func Run(ctx context.Context) error {
	state := &appState{}

	steps := InitGraph()
	if err := executeInitSteps(ctx, steps, state); err != nil {
		if state.logger != nil {
			state.logger.Close()
		}
		return err
	}

	logger := state.logger
	defer logger.Close()
	logBootstrapGraph(logger, steps)

	if shutdown := state.observabilityShutdown; shutdown != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				logger.WarnTag(bootTag, "observability did not shut down cleanly: %v", err)
			}
		}()
	}

	rootCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	signalCtx, stop := signal.NotifyContext(rootCtx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(rootCtx)
	startServices(state, group, groupCtx, cancel)

	return waitForShutdown(signalCtx, cancel, logger, group)
}

func logBootstrapGraph(logger *platformlogging.Logger, steps []initStep) {
	if logger == nil {
		return
	}
	logger.InfoTag(bootTag, "init graph")
	for _, step := range steps {
		if len(step.DependsOn) == 0 {
			logger.InfoTag(bootTag, "  %s: %s", step.ID, step.Title)
			continue
		}
		logger.InfoTag(bootTag, "  %s: %s (after %s)", step.ID, step.Title, strings.Join(step.DependsOn, ", "))
	}
}

func executeInitSteps(ctx context.Context, steps []initStep, state *appState) error {
	if state == nil {
		return platformerrors.New(platformerrors.KindBootstrap, "execute init steps", "nil bootstrap state")
	}

	completed := make(map[string]struct{}, len(steps))
	for _, step := range steps {
		for _, dep := range step.DependsOn {
			if _, ok := completed[dep]; !ok {
				return platformerrors.New(
					platformerrors.KindBootstrap,
					step.ID,
					fmt.Sprintf("dependency %s not satisfied", dep),
				)
			}
		}
		if step.Execute == nil {
			return platformerrors.New(platformerrors.KindBootstrap, step.ID, "missing execute function")
		}
		if err := step.Execute(ctx, state); err != nil {
			var typed *platformerrors.Error
			if errors.As(err, &typed) {
				return err
			}
			kind := step.Kind
			if kind == "" {
				kind = platformerrors.KindBootstrap
			}
			return platformerrors.Wrap(kind, step.ID, "bootstrap step failed", err)
		}
		completed[step.ID] = struct{}{}
	}
	return nil
}

// InitGraph lists the startup steps in execution order.
func InitGraph() []initStep {
	return []initStep{
		{
			ID:      "config:load-runtime",
			Title:   "Load configuration from .env, YAML and environment",
			Kind:    platformerrors.KindConfig,
			Execute: loadConfigStep,
		},
		{
			ID:        "logging:init-provider",
			Title:     "Initialise logging provider",
			DependsOn: []string{"config:load-runtime"},
			Execute:   initLoggingStep,
		},
		{
			ID:        "observability:setup-hooks",
			Title:     "Setup observability hooks",
			DependsOn: []string{"logging:init-provider"},
			Execute:   setupObservabilityStep,
		},
		{
			ID:        "vision:init-backends",
			Title:     "Initialise vision backends",
			DependsOn: []string{"logging:init-provider"},
			Kind:      platformerrors.KindBackend,
			Execute:   initBackendsStep,
		},
		{
			ID:        "image:init-pipeline",
			Title:     "Initialise image pipeline",
			DependsOn: []string{"logging:init-provider"},
			Kind:      platformerrors.KindConfig,
			Execute:   initPipelineStep,
		},
		{
			ID:        "recognition:init-service",
			Title:     "Initialise recognition service",
			DependsOn: []string{"vision:init-backends", "image:init-pipeline"},
			Execute:   initServiceStep,
		},
		{
			ID:        "transport:init",
			Title:     "Initialise MCP and HTTP transports",
			DependsOn: []string{"recognition:init-service", "observability:setup-hooks"},
			Kind:      platformerrors.KindTransport,
			Execute:   initTransportStep,
		},
	}
}

func loadConfigStep(_ context.Context, state *appState) error {
	loader := state.loader
	if loader == nil {
		loader = platformconfig.NewLoader()
	}
	result, err := loader.Load()
	if err != nil {
		return err
	}
	state.config = result.Config
	state.configPath = result.Path
	return nil
}

func initLoggingStep(_ context.Context, state *appState) error {
	if state.config == nil {
		return platformerrors.New(platformerrors.KindBootstrap, "logging:init-provider", "config not loaded")
	}

	logger, err := platformlogging.New(platformlogging.Config{
		Level:    state.config.Log.Level,
		Dir:      state.config.Log.Dir,
		Filename: state.config.Log.File,
	})
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "logging:init-provider", "failed to initialize logging provider", err)
	}

	state.logger = logger
	platformlogging.DefaultLogger = logger
	logger.InfoTag(bootTag, "logging ready [%s] config=%s", state.config.Log.Level, state.configPath)
	return nil
}

func setupObservabilityStep(ctx context.Context, state *appState) error {
	cfg := platformobservability.Config{
		Enabled: strings.EqualFold(state.config.Log.Level, "debug"),
	}
	shutdown, err := platformobservability.Setup(ctx, cfg, state.logger.Slog())
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "observability:setup-hooks", "failed to setup observability hooks", err)
	}
	state.observabilityShutdown = shutdown
	return nil
}

// initBackendsStep builds a backend only when its key is present. A missing key
// surfaces per call as "<KEY> is not set" instead of failing startup.
func initBackendsStep(ctx context.Context, state *appState) error {
	cfg := state.config
	logger := state.logger

	state.backends = make(map[recognition.BackendKind]recognition.Backend, 2)

	if cfg.Gemini.APIKey != "" {
		gemini, err := vlllm.NewGeminiProvider(ctx, vlllm.GeminiConfig{
			APIKey:          cfg.Gemini.APIKey,
			BaseURL:         cfg.Gemini.BaseURL,
			Temperature:     cfg.Gemini.Temperature,
			MaxOutputTokens: cfg.Gemini.MaxOutputTokens,
		}, logger)
		if err != nil {
			return err
		}
		state.backends[recognition.BackendGemini] = gemini
		logger.InfoTag("VISION", "gemini backend ready")
	} else {
		logger.WarnTag("VISION", "GEMINI_API_KEY is not set, gemini models will fail")
	}

	if cfg.OpenAI.APIKey != "" {
		openai, err := vlllm.NewOpenAIProvider(vlllm.OpenAIConfig{
			APIKey:    cfg.OpenAI.APIKey,
			BaseURL:   cfg.OpenAI.BaseURL,
			MaxTokens: cfg.OpenAI.MaxTokens,
		}, logger)
		if err != nil {
			return err
		}
		state.backends[recognition.BackendOpenAICompatible] = openai
		logger.InfoTag("VISION", "openai-compatible backend ready at %s", cfg.OpenAI.BaseURL)
	} else {
		logger.WarnTag("VISION", "OPENAI_API_KEY is not set, non-gemini models will fail")
	}
	return nil
}

func initPipelineStep(_ context.Context, state *appState) error {
	cfg := state.config.Image

	fallback, err := domainimage.ParseFallback(cfg.Fallback)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindConfig, "image:init-pipeline", "invalid fallback policy", err)
	}

	pipeline, err := domainimage.NewPipeline(domainimage.Options{
		Decoder: domainimage.NewDecoder(domainimage.DecoderOptions{
			HTTPClient: &http.Client{Timeout: cfg.FetchTimeout},
			UserAgent:  cfg.UserAgent,
			MaxBytes:   cfg.MaxDownloadBytes,
			Logger:     state.logger,
		}),
		Normalize: domainimage.NormalizeOptions{
			MaxEdge:   cfg.MaxEdge,
			Quality:   cfg.Quality,
			MaxPixels: cfg.MaxPixels,
		},
		Fallback: fallback,
		Logger:   state.logger,
	})
	if err != nil {
		return err
	}
	state.pipeline = pipeline
	state.logger.InfoTag("IMAGE", "pipeline ready: profile=%s max_edge=%d quality=%d fallback=%s",
		cfg.Profile, cfg.MaxEdge, cfg.Quality, fallback)
	return nil
}

func initServiceStep(_ context.Context, state *appState) error {
	svc, err := recognition.NewService(recognition.ServiceOptions{
		Pipeline:     state.pipeline,
		Router:       recognition.NewRouter(state.backends, state.logger),
		DefaultModel: state.config.DefaultModel,
		Logger:       state.logger,
	})
	if err != nil {
		return err
	}
	state.service = svc
	return nil
}

func initTransportStep(_ context.Context, state *appState) error {
	cfg := state.config

	mcpServer, err := mcptransport.NewServer(mcptransport.Options{
		Name:       cfg.MCP.Name,
		Version:    cfg.MCP.Version,
		Recognizer: state.service,
		Logger:     state.logger,
	})
	if err != nil {
		return err
	}
	state.mcpServer = mcpServer

	if cfg.HTTP.Addr == "" {
		return nil
	}

	router, err := httptransport.Build(httptransport.Options{
		LogLevel: cfg.Log.Level,
		Logger:   state.logger,
	})
	if err != nil {
		return err
	}
	api, err := httptransport.NewService(state.service, state.logger)
	if err != nil {
		return err
	}
	api.Register(router.API)
	state.httpHandler = router.Engine
	return nil
}

// startServices launches the MCP transport and, when configured, the HTTP
// surface. When the MCP transport returns the whole process winds down.
func startServices(state *appState, g *errgroup.Group, groupCtx context.Context, cancel context.CancelFunc) {
	cfg := state.config
	logger := state.logger

	g.Go(func() error {
		defer cancel()
		switch cfg.MCP.Transport {
		case platformconfig.TransportSSE:
			return state.mcpServer.ServeSSE(groupCtx, cfg.MCP.Addr)
		default:
			return state.mcpServer.ServeStdio(groupCtx)
		}
	})

	if state.httpHandler != nil {
		g.Go(func() error {
			return httptransport.Serve(groupCtx, cfg.HTTP.Addr, state.httpHandler, logger)
		})
	}
}

func waitForShutdown(ctx context.Context, cancel context.CancelFunc, logger *platformlogging.Logger, g *errgroup.Group) error {
	<-ctx.Done()
	logger.InfoTag(bootTag, "shutting down: %v", context.Cause(ctx))

	cancel()

	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
	}()

	select {
	case err := <-done:
		if err != nil {
			logger.ErrorTag(bootTag, "service stopped with error: %v", err)
			return err
		}
		logger.InfoTag(bootTag, "all services stopped")
		return nil
	case <-time.After(15 * time.Second):
		logger.ErrorTag(bootTag, "shutdown timed out")
		return platformerrors.New(platformerrors.KindBootstrap, "bootstrap.shutdown", "shutdown timed out")
	}
}
