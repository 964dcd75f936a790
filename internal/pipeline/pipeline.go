// Package pipeline implements the document-processing orchestrator:
// OCR -> select -> calibrate -> validate -> optional interpret, wiring
// every other component together and writing every on-disk artifact. It is the one place that knows the full run
// order; every stage it calls is otherwise independently testable.
package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/cgtqwmwkhp-rgb/job-sheet-qa-auditor-sub001/internal/analyzer"
	"github.com/cgtqwmwkhp-rgb/job-sheet-qa-auditor-sub001/internal/artifacts"
	"github.com/cgtqwmwkhp-rgb/job-sheet-qa-auditor-sub001/internal/calibration"
	"github.com/cgtqwmwkhp-rgb/job-sheet-qa-auditor-sub001/internal/correlation"
	"github.com/cgtqwmwkhp-rgb/job-sheet-qa-auditor-sub001/internal/dlq"
	ferrors "github.com/cgtqwmwkhp-rgb/job-sheet-qa-auditor-sub001/internal/errors"
	"github.com/cgtqwmwkhp-rgb/job-sheet-qa-auditor-sub001/internal/extractor"
	"github.com/cgtqwmwkhp-rgb/job-sheet-qa-auditor-sub001/internal/interpreter"
	"github.com/cgtqwmwkhp-rgb/job-sheet-qa-auditor-sub001/internal/logging"
	"github.com/cgtqwmwkhp-rgb/job-sheet-qa-auditor-sub001/internal/metrics"
	"github.com/cgtqwmwkhp-rgb/job-sheet-qa-auditor-sub001/internal/ocr"
	"github.com/cgtqwmwkhp-rgb/job-sheet-qa-auditor-sub001/internal/registry"
	"github.com/cgtqwmwkhp-rgb/job-sheet-qa-auditor-sub001/internal/resiliency"
	"github.com/cgtqwmwkhp-rgb/job-sheet-qa-auditor-sub001/internal/selector"
	"github.com/cgtqwmwkhp-rgb/job-sheet-qa-auditor-sub001/internal/storage"
	"github.com/cgtqwmwkhp-rgb/job-sheet-qa-auditor-sub001/internal/tracing"
	"github.com/cgtqwmwkhp-rgb/job-sheet-qa-auditor-sub001/pkg/audit"
)

// ServiceBundle is the explicit set of process-wide services the
// orchestrator is constructed with. Keeping them on one struct, rather than
// as package-level singletons, lets tests substitute in-memory doubles and
// a deterministic clock.
type ServiceBundle struct {
	Registry           *registry.Registry
	SSOTMode           registry.SSOTMode
	OCR                ocr.Provider
	Interpreter        interpreter.Provider // nil disables insights entirely
	InterpreterBreaker *resiliency.Breaker
	DLQ                *dlq.Queue
	Logger             *logging.SafeLogger
	Artifacts          artifacts.Store
	Metrics            *metrics.Recorder
	History            *storage.History // nil disables the queryable audit-history index
	Clock              func() time.Time

	// Calibration selects the threshold level applied to every document
	//; defaults to ThresholdStandard when empty.
	Calibration audit.ThresholdLevel

	// AllowRawOCRInsights is the process-level gate (ENABLE_RAW_OCR_INSIGHTS)
	// that must be set alongside the per-call opt-in before rawOcrText is
	// ever forwarded to the interpreter.
	AllowRawOCRInsights bool

	// CriticalROIFields/AllowedMissingROIs are not consulted here; they
	// belong to registry.Activate, run out-of-band from this
	// per-document pipeline.
}

func (b *ServiceBundle) clock() time.Time {
	if b.Clock != nil {
		return b.Clock()
	}
	return time.Now()
}

func (b *ServiceBundle) calibrationProfile() audit.CalibrationProfile {
	level := b.Calibration
	if level == "" {
		level = audit.ThresholdStandard
	}
	return calibration.Profiles[level]
}

// Input is what the caller supplies for one document run. Exactly one of
// SourceURL / Base64Data should be set.
type Input struct {
	Document      audit.Document
	CorrelationID string
	SourceURL     string
	Base64Data    string
	MimeType      string
	OCROptions    ocr.Options
}

// Result bundles everything one pipeline run produces.
type Result struct {
	AuditReport      audit.AuditReport
	Insights         *audit.InsightsArtifact
	SelectionTrace   audit.SelectionTrace
	ActivationReport *audit.ActivationReport
}

// Run executes the full pipeline for one document. Adapter
// errors never escape as a Go error — they are converted to an AuditReport
// carrying errorCode. A configuration-time failure (SSOT_VIOLATION when no
// template is ready) is reported the same way, as an AuditReport carrying
// that errorCode; the returned error is always nil.
func Run(ctx context.Context, bundle *ServiceBundle, in Input) (Result, error) {
	cc := correlation.Create(in.CorrelationID)
	var result Result
	err := correlation.Run(ctx, cc, func(ctx context.Context) error {
		result = run(ctx, bundle, cc, in)
		return nil
	})
	return result, err
}

func run(ctx context.Context, bundle *ServiceBundle, cc *correlation.Context, in Input) Result {
	documentID := in.Document.ContentHash
	if documentID == "" {
		documentID = cc.CorrelationID
	}

	ctx, span := tracing.StartDocumentSpan(ctx, "pipeline", "pipeline.run", cc.CorrelationID, documentID)
	defer span.End()

	if ctx.Err() != nil {
		return cancelledResult(cc.CorrelationID)
	}

	if ensureErr := registry.EnsureTemplatesReady(ctx, bundle.Registry, bundle.SSOTMode); ensureErr != nil {
		// Configuration-time errors end the run with an error report: the
		// pipeline cannot safely guess a template, so it refuses to guess one.
		bundle.logError(cc.CorrelationID, "templates not ready", ensureErr)
		return Result{AuditReport: pipelineErrorReport(cc.CorrelationID, string(codeOrDefault(ensureErr, ferrors.CodeSSOTViolation)), ensureErr.Error())}
	}

	ocrResult, ocrErr := runOCR(ctx, bundle, documentID, in)
	if ocrErr != nil {
		bundle.logError(cc.CorrelationID, "ocr extraction failed", ocrErr)
		return Result{AuditReport: pipelineErrorReport(cc.CorrelationID, string(ferrors.CodeProcessingError), ocrErr.Error())}
	}
	if !ocrResult.Success {
		report := ocrFailureReport(cc.CorrelationID, ocrResult)
		bundle.recordAuditOutcome(report)
		bundle.logWarn(cc.CorrelationID, "ocr did not succeed", logging.NewFields().Component("pipeline").Operation("ocr").Resource("document", documentID))
		return Result{AuditReport: report}
	}

	if ctx.Err() != nil {
		return cancelledResult(cc.CorrelationID)
	}

	text := joinPages(ocrResult.Pages)

	candidates, selErr := bundle.Registry.AllActiveVersions(ctx)
	if selErr != nil {
		return Result{AuditReport: pipelineErrorReport(cc.CorrelationID, string(ferrors.CodeProcessingError), selErr.Error())}
	}

	selResult := selector.Select(text, candidates, registry.DefaultTemplateSlug())
	trace := selector.BuildTrace(documentID, text, selResult, bundle.clock())
	_ = bundle.Artifacts.Write(artifacts.SelectionTracePath(documentID, bundle.clock().UnixMilli()), trace)
	if bundle.Metrics != nil {
		bundle.Metrics.ObserveSelection(selResult.TopScore, string(selResult.ConfidenceBand))
	}

	lowConfidence := selResult.Selected == nil || selResult.ConfidenceBand == audit.BandLow || selResult.Ambiguous

	version, versionFound := resolveVersion(ctx, bundle, selResult)
	if !versionFound {
		report := audit.AuditReport{
			OverallResult: audit.ResultReviewQueue,
			Score:         0,
			Findings: []audit.Finding{{
				FieldName:    "Analysis Pipeline",
				Severity:     audit.FindingS1,
				ReasonCode:   audit.ReasonSpecGap,
				WhyItMatters: "no template version could be matched or defaulted to",
			}},
			Summary:       "no active template matched this document; routed to manual review",
			CorrelationID: cc.CorrelationID,
		}
		bundle.recordAuditOutcome(report)
		return Result{AuditReport: report, SelectionTrace: trace}
	}

	extracted := extractor.Extract(version.Spec, text)

	profile := bundle.calibrationProfile()
	fcs := calibration.DeriveFieldCalibrations(version.Spec, profile)
	calibratedFields := make([]audit.CalibratedField, 0, len(fcs))
	for _, fc := range fcs {
		ef := extracted[fc.FieldID]
		fieldType := audit.FieldTypeString
		if f, ok := version.Spec.FieldByID(fc.FieldID); ok {
			fieldType = f.Type
		}
		cf := calibration.CalibrateField(ef, fc, fieldType)
		calibratedFields = append(calibratedFields, cf)

		// Blend the calibration decision back into what the analyzer sees:
		// a rejected field should not read as confidently extracted.
		if cf.Decision == audit.DecisionRejected {
			ef.Extracted = false
		}
		ef.Confidence = cf.AdjustedConfidence
		extracted[fc.FieldID] = ef
	}

	quality := calibration.AssessQuality(calibratedFields, fcs)
	guardrails := calibration.EvaluateGuardrails(calibratedFields, fcs, quality)
	if bundle.Metrics != nil {
		bundle.Metrics.ObserveGuardrailStops(guardrails.StopReasons)
	}

	if guardrails.ShouldStop && guardrails.StopBehavior == audit.StopImmediately {
		report := audit.AuditReport{
			OverallResult: audit.ResultFail,
			Score:         0,
			Findings: []audit.Finding{{
				FieldName:    "Analysis Pipeline",
				Severity:     audit.FindingS0,
				ReasonCode:   audit.ReasonMissingField,
				WhyItMatters: "a blocking guardrail failed: " + strings.Join(guardrails.StopReasons, ", "),
			}},
			ExtractedFields: extracted,
			Summary:         "processing halted by a blocking guardrail",
			CorrelationID:   cc.CorrelationID,
		}
		bundle.recordAuditOutcome(report)
		return Result{AuditReport: report, SelectionTrace: trace}
	}

	report := analyzer.Analyze(analyzer.Input{
		Spec:            version.Spec,
		Text:            text,
		ExtractedFields: extracted,
		CorrelationID:   cc.CorrelationID,
	}, analyzer.Options{})
	report.RetryAttempts = ocrResult.RetryAttempts

	if lowConfidence && report.OverallResult != audit.ResultFail {
		report.OverallResult = audit.ResultReviewQueue
		report.Summary = strings.TrimSpace(report.Summary + " (low-confidence/ambiguous template selection; routed to manual review)")
	}

	var insights *audit.InsightsArtifact
	if bundle.Interpreter != nil {
		insights = runInterpreter(ctx, bundle, cc.CorrelationID, report, extracted, text, documentID)
	}

	bundle.recordAuditOutcome(report)
	_ = bundle.Artifacts.Write(artifacts.AuditReportPath(documentID), report)
	bundle.recordHistory(ctx, documentID, version.TemplateID, report)
	bundle.logInfo(cc.CorrelationID, "audit run complete", logging.NewFields().Component("pipeline").Operation("analyze").Resource("document", documentID))

	return Result{AuditReport: report, Insights: insights, SelectionTrace: trace}
}

func (b *ServiceBundle) recordAuditOutcome(report audit.AuditReport) {
	if b.Metrics != nil {
		b.Metrics.ObserveAuditOutcome(string(report.OverallResult))
	}
}

// recordHistory indexes report into the queryable audit-history store, if
// one is configured. The on-disk JSON artifact written
// alongside it remains the source of truth; a failure here never fails the
// run — history is a derived convenience index, not part of the canonical
// contract.
func (b *ServiceBundle) recordHistory(ctx context.Context, documentID, templateID string, report audit.AuditReport) {
	if b.History == nil {
		return
	}
	if err := b.History.Record(ctx, documentID, templateID, report, b.clock().UTC().Format(time.RFC3339)); err != nil {
		b.logWarn(report.CorrelationID, "failed to index audit history", logging.NewFields().Component("pipeline").Operation("history").Error(err))
	}
}

func (b *ServiceBundle) logError(correlationID, message string, err error) {
	if b.Logger == nil {
		return
	}
	b.Logger.Error(correlationID, message, logging.NewFields().Component("pipeline").Error(err))
}

func (b *ServiceBundle) logWarn(correlationID, message string, fields logging.Fields) {
	if b.Logger == nil {
		return
	}
	b.Logger.Warn(correlationID, message, fields)
}

func (b *ServiceBundle) logInfo(correlationID, message string, fields logging.Fields) {
	if b.Logger == nil {
		return
	}
	b.Logger.Info(correlationID, message, fields)
}

// resolveVersion looks up the full TemplateVersion the selector chose. If
// nothing was selected, it falls back to the registry's default template
// rather than silently dropping the document.
func resolveVersion(ctx context.Context, bundle *ServiceBundle, sel audit.SelectionResult) (audit.TemplateVersion, bool) {
	if sel.Selected != nil {
		if v, ok, err := bundle.Registry.ActiveVersionFor(ctx, sel.Selected.TemplateID); err == nil && ok {
			return v, true
		}
	}
	if v, ok, err := bundle.Registry.ActiveVersionFor(ctx, registry.DefaultTemplateSlug()); err == nil && ok {
		return v, true
	}
	return audit.TemplateVersion{}, false
}

func runOCR(ctx context.Context, bundle *ServiceBundle, documentID string, in Input) (ocr.Result, error) {
	start := bundle.clock()
	opts := in.OCROptions
	opts.JobSheetID = documentID

	var res ocr.Result
	var err error
	if in.SourceURL != "" {
		res, err = bundle.OCR.ExtractFromURL(ctx, in.SourceURL, opts)
	} else {
		res, err = bundle.OCR.ExtractFromBase64(ctx, in.Base64Data, in.MimeType, opts)
	}

	if bundle.Metrics != nil {
		label := "success"
		if err != nil || !res.Success {
			label = "failure"
			if res.ErrorCode == "CIRCUIT_BREAKER_OPEN" {
				label = "circuit_breaker_open"
			}
		}
		bundle.Metrics.ObserveOCRCall(label, bundle.clock().Sub(start))
	}
	return res, err
}

func runInterpreter(ctx context.Context, bundle *ServiceBundle, correlationID string, report audit.AuditReport, extracted map[string]audit.ExtractedField, text string, documentID string) *audit.InsightsArtifact {
	input := interpreter.Input{
		AuditReport: &interpreter.AuditReportView{
			Findings:        report.Findings,
			ValidatedFields: extracted,
		},
		ExtractedFields: extracted,
		RawOCRText:      text,
	}
	opts := interpreter.Options{
		IncludeRawOCR: bundle.AllowRawOCRInsights,
		MaxInsights:   10,
		MinConfidence: 0,
	}

	retryOpts := resiliency.DefaultRetryOptions()
	var result interpreter.Result
	runErr := resiliency.WithResiliency(ctx, bundle.InterpreterBreaker, retryOpts, func(ctx context.Context) error {
		r, err := bundle.Interpreter.Interpret(ctx, input, opts)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if runErr != nil {
		if openErr, ok := runErr.(*resiliency.CircuitBreakerOpenError); ok && bundle.DLQ != nil {
			bundle.DLQ.Add("analysis", documentID, openErr.Error())
		}
		return nil
	}

	artifact := bundle.Interpreter.GenerateArtifact(result, correlationID, []string{artifacts.AuditReportPath(documentID)})
	_ = bundle.Artifacts.Write(artifacts.InsightsPath(correlationID), artifact)
	return &artifact
}

func joinPages(pages []ocr.Page) string {
	var b strings.Builder
	for i, p := range pages {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(p.Markdown)
	}
	return b.String()
}

func ocrFailureReport(correlationID string, res ocr.Result) audit.AuditReport {
	reason := audit.ReasonOCRFailure
	if res.ErrorCode == "CIRCUIT_BREAKER_OPEN" {
		reason = audit.ReasonPipelineError
	}
	return audit.AuditReport{
		OverallResult: audit.ResultReviewQueue,
		Score:         0,
		Findings: []audit.Finding{{
			FieldName:    "Analysis Pipeline",
			Severity:     audit.FindingS1,
			ReasonCode:   reason,
			WhyItMatters: res.Error,
		}},
		Summary:       "document extraction failed: " + res.Error,
		CorrelationID: correlationID,
		RetryAttempts: res.RetryAttempts,
		ErrorCode:     res.ErrorCode,
	}
}

func pipelineErrorReport(correlationID, errorCode, detail string) audit.AuditReport {
	return audit.AuditReport{
		OverallResult: audit.ResultReviewQueue,
		Score:         0,
		Findings: []audit.Finding{{
			FieldName:    "Analysis Pipeline",
			Severity:     audit.FindingS1,
			ReasonCode:   audit.ReasonPipelineError,
			WhyItMatters: detail,
		}},
		Summary:       "processing could not complete: " + detail,
		CorrelationID: correlationID,
		ErrorCode:     errorCode,
	}
}

func cancelledResult(correlationID string) Result {
	return Result{AuditReport: audit.AuditReport{
		OverallResult: audit.ResultReviewQueue,
		Score:         0,
		Findings: []audit.Finding{{
			FieldName:    "Analysis Pipeline",
			Severity:     audit.FindingS1,
			ReasonCode:   audit.ReasonPipelineError,
			WhyItMatters: "processing was cancelled",
		}},
		Summary:       "processing was cancelled",
		CorrelationID: correlationID,
		ErrorCode:     "CANCELLED",
	}}
}

func codeOrDefault(err error, fallback ferrors.Code) ferrors.Code {
	if code, ok := ferrors.CodeOf(err); ok {
		return code
	}
	return fallback
}
