// Copyright (C) 2026 The agrovers Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See <https://www.gnu.org/licenses/> for the full license text.

// Package assistant wires the soil assistant HTTP service together.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sashabaranov/go-openai"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/Shreyashgol/agrovers/pkg/config"
	"github.com/Shreyashgol/agrovers/services/assistant/audit"
	"github.com/Shreyashgol/agrovers/services/assistant/datatypes"
	"github.com/Shreyashgol/agrovers/services/assistant/observability"
	"github.com/Shreyashgol/agrovers/services/assistant/questionnaire"
	"github.com/Shreyashgol/agrovers/services/assistant/report"
	"github.com/Shreyashgol/agrovers/services/assistant/routes"
	"github.com/Shreyashgol/agrovers/services/assistant/session"
	"github.com/Shreyashgol/agrovers/services/assistant/validators"
	"github.com/Shreyashgol/agrovers/services/explainer"
	"github.com/Shreyashgol/agrovers/services/llm"
	"github.com/Shreyashgol/agrovers/services/policy_engine"
	"github.com/Shreyashgol/agrovers/services/retrieval"
	"github.com/Shreyashgol/agrovers/services/speech"
)

const serviceName = "soil-assistant"

// =============================================================================
// Interface Definition
// =============================================================================

// Service is the lifecycle of the soil assistant server.
//
// # Thread Safety
//
// Run blocks and must be called at most once per instance.
type Service interface {
	// Run serves HTTP until ctx is cancelled or the listener fails, then
	// shuts down gracefully and releases every resource.
	Run(ctx context.Context) error

	// Router returns the configured Gin engine, for tests.
	Router() *gin.Engine

	// Engine and Sessions expose the questionnaire for in-process
	// front ends such as the terminal chat.
	Engine() *questionnaire.Engine
	Sessions() session.Repository

	// Close releases resources of a service that was never Run.
	Close()
}

// =============================================================================
// Options
// =============================================================================

// Option customises construction. Used by tests and by the chat command.
type Option func(*service)

// WithLLMClient replaces the client that config.LLM would build.
func WithLLMClient(c llm.LLMClient) Option {
	return func(s *service) { s.llmClient = c }
}

// WithoutLLM skips building an LLM client. Clarifications use the
// static fallback text.
func WithoutLLM() Option {
	return func(s *service) { s.offline = true }
}

// WithRegistry replaces the Prometheus registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *service) { s.registry = reg }
}

// =============================================================================
// Implementation
// =============================================================================

// service coordinates:
//   - the questionnaire engine and its collaborators
//   - the session repository and its idle sweeper
//   - audit sinks, Prometheus metrics and OpenTelemetry tracing
//   - the Gin router
//
// All fields are read-only after New returns.
type service struct {
	config config.SoilAssistantConfig

	router   *gin.Engine
	registry *prometheus.Registry
	metrics  *observability.TurnMetrics

	repo    *session.MemoryRepository
	sweeper *session.Sweeper
	engine  *questionnaire.Engine
	reports *report.Service

	llmClient      llm.LLMClient
	offline        bool
	weaviateClient *weaviate.Client
	audioStore     *speech.FileStore
	sqliteSink     *audit.SQLiteSink
	tracerCleanup  func(context.Context)
}

var _ Service = (*service)(nil)

// New creates the service.
//
// # Description
//
// New initializes, in order:
//  1. OpenTelemetry tracing (no-op when no endpoint is configured)
//  2. Prometheus metrics
//  3. The session repository and sweeper
//  4. The LLM client and explainer
//  5. Speech (transcription, synthesis, audio store) when enabled
//  6. Weaviate retrieval when a URL is configured
//  7. The PII policy engine and the audit sinks
//  8. The questionnaire engine, report service and HTTP routes
//
// Optional collaborators that fail to initialize are logged and left out;
// the engine degrades to its fallback paths without them.
//
// # Outputs
//
//   - Service: Ready-to-run service.
//   - error: Non-nil if a required component cannot be built.
func New(cfg config.SoilAssistantConfig, opts ...Option) (Service, error) {
	return newService(cfg, opts...)
}

func newService(cfg config.SoilAssistantConfig, opts ...Option) (*service, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	s := &service{config: cfg}
	for _, o := range opts {
		o(s)
	}

	cleanup, err := s.initTracer()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}
	s.tracerCleanup = cleanup

	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
		s.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	var observer questionnaire.Observer
	var sweepObserver session.SweepObserver
	if cfg.Telemetry.EnableMetrics {
		s.metrics = observability.NewTurnMetrics(s.registry)
		observer = s.metrics
		sweepObserver = s.metrics
	}

	s.repo = session.NewMemoryRepository(cfg.Session.IdleTimeout, session.WithRemoveHook(s.sessionRemoved))
	if s.metrics != nil {
		s.metrics.RegisterLiveSessions(s.repo.Len)
	}
	s.sweeper = session.NewSweeper(s.repo, cfg.Session.SweepInterval, sweepObserver)

	extractors := validators.NewRegistry(disabledParameters(cfg.Policy.DisabledParameters)...)
	enabled := extractors.Enabled()
	slog.Info("Questionnaire parameters", "enabled", enabled, "auto_skipped", datatypes.TotalSteps-len(enabled))
	deps := questionnaire.Dependencies{
		Validators: extractors,
		Observer:   observer,
	}

	if err := s.initLLMClient(); err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to initialize LLM client: %w", err)
	}
	deps.Explainer = explainer.New(s.llmClient, cfg.Explainer)

	if err := s.initSpeech(&deps); err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to initialize speech: %w", err)
	}

	if err := s.initRetrieval(&deps); err != nil {
		slog.Warn("Retrieval initialization failed, clarifications will use no context", "error", err)
	}

	redactor, err := policy_engine.NewPolicyEngine()
	if err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to initialize policy engine: %w", err)
	}
	deps.Redactor = redactor

	sinks := []questionnaire.AuditSink{audit.NewLogSink(nil)}
	if cfg.Audit.SQLitePath != "" {
		sink, err := audit.OpenSQLiteSink(cfg.Audit.SQLitePath)
		if err != nil {
			s.cleanup()
			return nil, fmt.Errorf("failed to open audit store: %w", err)
		}
		s.sqliteSink = sink
		sinks = append(sinks, sink)
	}
	deps.Audit = questionnaire.NewAuditRecorder(sinks...)

	s.engine, err = questionnaire.NewEngine(engineConfig(cfg.Policy), deps)
	if err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to build questionnaire engine: %w", err)
	}

	if cfg.Report.WebhookURL != "" {
		s.reports = report.NewService(report.NewWebhookClient(cfg.Report.WebhookURL, cfg.Report.Timeout), cfg.Report.Timeout)
	}

	s.initRouter()
	return s, nil
}

// =============================================================================
// Service Interface Methods
// =============================================================================

// Run starts the sweeper and the HTTP server and blocks until ctx is done.
func (s *service) Run(ctx context.Context) error {
	defer s.cleanup()

	if err := s.sweeper.Start(ctx); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Server.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting soil assistant server", "port", s.config.Server.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down soil assistant server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

// Router returns the underlying Gin engine.
func (s *service) Router() *gin.Engine {
	return s.router
}

// Engine returns the questionnaire engine.
func (s *service) Engine() *questionnaire.Engine {
	return s.engine
}

// Sessions returns the session repository.
func (s *service) Sessions() session.Repository {
	return s.repo
}

// Close releases resources without serving.
func (s *service) Close() {
	s.cleanup()
}

// =============================================================================
// Private Initialization Methods
// =============================================================================

func engineConfig(p config.PolicyConfig) questionnaire.EngineConfig {
	ec := questionnaire.DefaultEngineConfig()
	ec.Policy = questionnaire.PolicyConfig{
		PreliminaryThreshold: p.PreliminaryThreshold,
		FinalThreshold:       p.FinalThreshold,
	}
	ec.Clarifier.RetrievalK = p.RetrievalK
	ec.Clarifier.AuditKeep = p.AuditKeep
	if p.RetrievalTimeout > 0 {
		ec.Clarifier.RetrievalTimeout = p.RetrievalTimeout
	}
	if p.GenerationTimeout > 0 {
		ec.Clarifier.GenerationTimeout = p.GenerationTimeout
	}
	if p.TranscriptionTimeout > 0 {
		ec.TranscriptionTimeout = p.TranscriptionTimeout
	}
	if p.SynthesisTimeout > 0 {
		ec.SynthesisTimeout = p.SynthesisTimeout
	}
	return ec
}

func disabledParameters(names []string) []datatypes.Parameter {
	var out []datatypes.Parameter
	for _, n := range names {
		if p, err := datatypes.ParseParameter(n); err == nil {
			out = append(out, p)
		}
	}
	return out
}

// initTracer exports spans over OTLP gRPC. With no endpoint configured the
// global no-op provider stays in place.
func (s *service) initTracer() (func(context.Context), error) {
	endpoint := s.config.Telemetry.OTelEndpoint
	if endpoint == "" {
		slog.Info("OTel endpoint not configured, tracing disabled")
		return func(context.Context) {}, nil
	}
	ctx := context.Background()

	conn, err := grpc.NewClient(endpoint, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection: %w", err)
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}
	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceNameKey.String(serviceName)))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(sdktrace.NewBatchSpanProcessor(traceExporter)))
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}

func (s *service) initLLMClient() error {
	if s.llmClient != nil {
		return nil
	}
	if s.offline {
		slog.Info("LLM disabled, clarifications use fallback text")
		return nil
	}
	client, err := llm.New(s.config.LLM)
	if err != nil {
		return err
	}
	s.llmClient = client
	slog.Info("Using LLM backend", "backend", s.config.LLM.Backend, "rpm_limit", s.config.LLM.RequestsPerMinute)
	return nil
}

func (s *service) initSpeech(deps *questionnaire.Dependencies) error {
	sc := s.config.Speech
	store, err := speech.NewFileStore(sc.AudioDir, sc.AudioPrefix)
	if err != nil {
		return err
	}
	s.audioStore = store
	if sc.Backend != "openai" {
		slog.Info("Speech backend disabled, running text-only")
		return nil
	}

	apiKey := sc.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return errors.New("OPENAI_API_KEY is required for the openai speech backend")
	}
	client := openai.NewClient(apiKey)
	deps.Transcriber = speech.NewWhisperTranscriber(client, sc.STTModel)
	deps.Synthesizer = speech.NewTTSSynthesizer(client, store, sc.TTSModel, sc.Voice)
	slog.Info("Using OpenAI speech backend", "stt_model", sc.STTModel, "tts_model", sc.TTSModel)
	return nil
}

// initRetrieval connects to Weaviate. An empty URL runs without retrieval.
func (s *service) initRetrieval(deps *questionnaire.Dependencies) error {
	rc := s.config.Retrieval
	weaviateURL := strings.Trim(rc.WeaviateURL, "\"' ")
	if weaviateURL == "" {
		slog.Info("Weaviate URL not configured, running without retrieval")
		return nil
	}
	client, err := NewWeaviateClient(weaviateURL)
	if err != nil {
		return err
	}
	embedder, err := NewEmbedder(rc)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := retrieval.EnsureSchema(ctx, client, rc.ClassName); err != nil {
		slog.Warn("Could not ensure the knowledge schema", "class", rc.ClassName, "error", err)
	}
	s.weaviateClient = client
	deps.Retriever = retrieval.NewRetriever(client, embedder, rc.ClassName)
	slog.Info("Weaviate retrieval initialized", "url", weaviateURL, "class", rc.ClassName)
	return nil
}

// NewWeaviateClient validates rawURL and builds a client for it.
func NewWeaviateClient(rawURL string) (*weaviate.Client, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid Weaviate URL: %s", rawURL)
	}
	client, err := weaviate.NewClient(weaviate.Config{Host: parsed.Host, Scheme: parsed.Scheme})
	if err != nil {
		return nil, fmt.Errorf("failed to create Weaviate client: %w", err)
	}
	return client, nil
}

// NewEmbedder builds the embedding provider named in rc.
func NewEmbedder(rc config.RetrievalConfig) (retrieval.Embedder, error) {
	if rc.Embedder == "http" {
		return retrieval.NewHTTPEmbedder(rc.EmbedderURL, 0), nil
	}
	apiKey := os.Getenv("GEMINI_API_KEY")
	return retrieval.NewGenAIEmbedder(apiKey, rc.EmbedModel)
}

func (s *service) initRouter() {
	if s.config.Server.GinMode != "" {
		gin.SetMode(s.config.Server.GinMode)
	}
	s.router = gin.New()
	s.router.Use(gin.Recovery(), otelgin.Middleware(serviceName))

	deps := routes.Dependencies{
		Sessions: s.repo,
		Engine:   s.engine,
		Audio:    s.audioStore,
	}
	if s.reports != nil {
		deps.Reports = s.reports
	}
	if s.config.Telemetry.EnableMetrics {
		deps.Metrics = promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
	}
	routes.SetupRoutes(s.router, deps)
}

// sessionRemoved drops per-session state held outside the repository.
func (s *service) sessionRemoved(id string) {
	if s.reports != nil {
		s.reports.Forget(id)
	}
}

// cleanup releases everything New acquired. Safe on a partially built
// service.
func (s *service) cleanup() {
	if s.sweeper != nil {
		if err := s.sweeper.Stop(); err != nil {
			slog.Warn("session sweeper stop error", "error", err)
		}
	}
	if s.reports != nil {
		s.reports.Wait()
	}
	if s.sqliteSink != nil {
		if err := s.sqliteSink.Close(); err != nil {
			slog.Warn("audit store close error", "error", err)
		}
	}
	if s.tracerCleanup != nil {
		s.tracerCleanup(context.Background())
	}
}
