// Command auditpipeline is a minimal process entrypoint that wires a
// pipeline.ServiceBundle and processes one document
// end-to-end from the command line — for local operation and smoke-testing,
// not for template authoring or multi-tenant administration.
package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cgtqwmwkhp-rgb/job-sheet-qa-auditor-sub001/internal/artifacts"
	"github.com/cgtqwmwkhp-rgb/job-sheet-qa-auditor-sub001/internal/config"
	"github.com/cgtqwmwkhp-rgb/job-sheet-qa-auditor-sub001/internal/dlq"
	"github.com/cgtqwmwkhp-rgb/job-sheet-qa-auditor-sub001/internal/interpreter"
	"github.com/cgtqwmwkhp-rgb/job-sheet-qa-auditor-sub001/internal/logging"
	"github.com/cgtqwmwkhp-rgb/job-sheet-qa-auditor-sub001/internal/ocr"
	"github.com/cgtqwmwkhp-rgb/job-sheet-qa-auditor-sub001/internal/pipeline"
	"github.com/cgtqwmwkhp-rgb/job-sheet-qa-auditor-sub001/internal/registry"
	"github.com/cgtqwmwkhp-rgb/job-sheet-qa-auditor-sub001/internal/resiliency"
	"github.com/cgtqwmwkhp-rgb/job-sheet-qa-auditor-sub001/internal/storage"
	"github.com/cgtqwmwkhp-rgb/job-sheet-qa-auditor-sub001/internal/tracing"
	"github.com/cgtqwmwkhp-rgb/job-sheet-qa-auditor-sub001/pkg/audit"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	sourceURL := flag.String("url", "", "document source URL to fetch and audit")
	filePath := flag.String("file", "", "local document path to audit (base64-encoded before sending to OCR)")
	mimeType := flag.String("mime", "application/pdf", "MIME type of -file")
	flag.Parse()

	if *sourceURL == "" && *filePath == "" {
		fmt.Fprintln(os.Stderr, "auditpipeline: one of -url or -file is required")
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := logging.NewSafeLogger("auditpipeline")

	var traceWriter io.Writer
	traceFile, err := os.OpenFile("auditpipeline.trace.jsonl", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		logger.Warn("", "failed to open trace file, spans will be discarded", logging.NewFields().Component("main").Error(err))
	} else {
		defer traceFile.Close()
		traceWriter = traceFile
	}
	shutdownTracing, err := tracing.Setup("auditpipeline", traceWriter)
	if err != nil {
		logger.Warn("", "failed to set up tracing", logging.NewFields().Component("main").Error(err))
	} else {
		// Registered after traceFile's own Close defer so it runs first
		// (defers execute LIFO) and flushes spans before the file closes.
		defer func() { _ = shutdownTracing(context.Background()) }()
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("", "failed to load config", logging.NewFields().Component("main").Error(err))
		os.Exit(1)
	}

	bundle, closeFn, err := buildServiceBundle(ctx, cfg, logger)
	if err != nil {
		logger.Error("", "failed to build service bundle", logging.NewFields().Component("main").Error(err))
		os.Exit(1)
	}
	defer closeFn()

	input := pipeline.Input{
		Document: audit.NewDocument(documentName(*sourceURL, *filePath), nil, time.Now()),
	}
	if *sourceURL != "" {
		input.SourceURL = *sourceURL
	} else {
		data, err := os.ReadFile(*filePath)
		if err != nil {
			logger.Error("", "failed to read -file", logging.NewFields().Component("main").Error(err))
			os.Exit(1)
		}
		input.Document = audit.NewDocument(*filePath, data, time.Now())
		input.Base64Data = base64.StdEncoding.EncodeToString(data)
		input.MimeType = *mimeType
	}

	result, err := pipeline.Run(ctx, bundle, input)
	if err != nil {
		logger.Error("", "pipeline run failed", logging.NewFields().Component("main").Error(err))
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result.AuditReport); err != nil {
		logger.Error("", "failed to encode audit report", logging.NewFields().Component("main").Error(err))
		os.Exit(1)
	}
	if result.AuditReport.OverallResult == audit.ResultFail {
		os.Exit(1)
	}
}

// buildServiceBundle wires every configured component behind the config's
// provider selections, returning a cleanup function that closes any opened
// connections.
func buildServiceBundle(ctx context.Context, cfg *config.Config, logger *logging.SafeLogger) (*pipeline.ServiceBundle, func(), error) {
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	store, storeCloser, err := buildRegistryStore(ctx, cfg)
	if err != nil {
		closeAll()
		return nil, closeAll, err
	}
	if storeCloser != nil {
		closers = append(closers, storeCloser)
	}
	reg := registry.NewRegistry(store)

	q := dlq.New()

	ocrProvider, err := buildOCRProvider(cfg, q)
	if err != nil {
		closeAll()
		return nil, closeAll, err
	}

	interpreterProvider, interpreterBreaker := buildInterpreterProvider(cfg)

	history, err := storage.Open(cfg.Storage.SQLitePath)
	if err != nil {
		closeAll()
		return nil, closeAll, err
	}
	closers = append(closers, func() { _ = history.Close() })

	ssotMode := cfg.ResolvedSSOTMode(func(requested registry.SSOTMode) {
		logger.Warn("", "ignoring TEMPLATE_SSOT_MODE override in prod/staging", logging.NewFields().Component("main").Operation("ssot"))
	})

	bundle := &pipeline.ServiceBundle{
		Registry:            reg,
		SSOTMode:            ssotMode,
		OCR:                 ocrProvider,
		Interpreter:         interpreterProvider,
		InterpreterBreaker:  interpreterBreaker,
		DLQ:                 q,
		Logger:              logger,
		Artifacts:           artifacts.NewFileStore(cfg.Artifacts.BaseDir),
		History:             history,
		Calibration:         audit.ThresholdLevel(cfg.Calibration.Level),
		AllowRawOCRInsights: cfg.Interpreter.AllowRawOCRInsights,
	}
	return bundle, closeAll, nil
}

func buildRegistryStore(ctx context.Context, cfg *config.Config) (registry.Store, func(), error) {
	if cfg.Registry.PostgresDSN == "" {
		return registry.NewMemoryStore(), nil, nil
	}
	pool, err := pgxpool.New(ctx, cfg.Registry.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	return registry.NewPgStore(pool), pool.Close, nil
}

func buildOCRProvider(cfg *config.Config, q *dlq.Queue) (ocr.Provider, error) {
	switch cfg.OCR.Provider {
	case "mistral":
		breaker := resiliency.NewBreaker("ocr", resiliency.DefaultBreakerOptions())
		return ocr.NewMistralProvider(cfg.OCR.Endpoint, os.Getenv("MISTRAL_API_KEY"), breaker, q), nil
	case "mock", "":
		return ocr.NewMockProvider(), nil
	default:
		return nil, fmt.Errorf("unknown ocr provider %q", cfg.OCR.Provider)
	}
}

func buildInterpreterProvider(cfg *config.Config) (interpreter.Provider, *resiliency.Breaker) {
	breaker := resiliency.NewBreaker("interpreter", resiliency.DefaultBreakerOptions())
	switch cfg.Interpreter.Provider {
	case "gemini":
		return interpreter.NewGeminiProvider(os.Getenv("GEMINI_API_KEY"), cfg.Interpreter.Model), breaker
	case "bedrock":
		return interpreter.NewBedrockProvider(cfg.Interpreter.Model, os.Getenv("AWS_REGION")), breaker
	default:
		return interpreter.NewMockProvider(), breaker
	}
}

func documentName(sourceURL, filePath string) string {
	if sourceURL != "" {
		return sourceURL
	}
	return filePath
}
