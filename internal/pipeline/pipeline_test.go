package pipeline_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/cgtqwmwkhp-rgb/job-sheet-qa-auditor-sub001/internal/artifacts"
	"github.com/cgtqwmwkhp-rgb/job-sheet-qa-auditor-sub001/internal/dlq"
	"github.com/cgtqwmwkhp-rgb/job-sheet-qa-auditor-sub001/internal/interpreter"
	"github.com/cgtqwmwkhp-rgb/job-sheet-qa-auditor-sub001/internal/metrics"
	"github.com/cgtqwmwkhp-rgb/job-sheet-qa-auditor-sub001/internal/ocr"
	"github.com/cgtqwmwkhp-rgb/job-sheet-qa-auditor-sub001/internal/pipeline"
	"github.com/cgtqwmwkhp-rgb/job-sheet-qa-auditor-sub001/internal/registry"
	"github.com/cgtqwmwkhp-rgb/job-sheet-qa-auditor-sub001/internal/resiliency"
	"github.com/cgtqwmwkhp-rgb/job-sheet-qa-auditor-sub001/internal/storage"
	"github.com/cgtqwmwkhp-rgb/job-sheet-qa-auditor-sub001/pkg/audit"
)

const happyPathText = "Job No: JOB-123456\nSerial: SN-12345-AB\nDate: 01/01/2026\nTime In: 08:00\nTime Out: 09:00\nTechnician: J. Doe\nCustomer: ACME\nWork Description: Replaced filter\nSignature: J.Doe"

func jobSheetSpec() audit.SpecJson {
	return audit.SpecJson{
		Fields: []audit.Field{
			{ID: "jobReference", Label: "Job No", Type: audit.FieldTypeString, Required: true},
			{ID: "serialNumber", Label: "Serial", Type: audit.FieldTypeString, Required: true,
				ExtractionHints: []string{`Serial:\s*(SN-\d{5}-[A-Z]{2})`}},
			{ID: "technician", Label: "Technician", Type: audit.FieldTypeString, Required: true},
			{ID: "customer", Label: "Customer", Type: audit.FieldTypeString, Required: true},
			{ID: "workDescription", Label: "Work Description", Type: audit.FieldTypeString, Required: true},
		},
		Rules: []audit.Rule{
			{RuleID: "R001", Field: "jobReference", Type: audit.RuleTypeRequired, Severity: audit.SeverityCritical, Enabled: true},
			{RuleID: "R002", Field: "serialNumber", Type: audit.RuleTypePattern, Severity: audit.SeverityMajor, Pattern: `^SN-\d{5}-[A-Z]{2}$`, Enabled: true},
		},
	}
}

// newRegistryWithActiveJobSheetTemplate seeds a MemoryStore-backed registry
// with one already-active template version, bypassing the Activate gate
// pipeline (that sequence is exercised by internal/registry's own tests).
func newRegistryWithActiveJobSheetTemplate() *registry.Registry {
	store := registry.NewMemoryStore()
	reg := registry.NewRegistry(store)
	version := audit.TemplateVersion{
		VersionID:  "job-sheet-v1",
		TemplateID: "job-sheet",
		Spec:       jobSheetSpec(),
		Selection: audit.SelectionConfig{
			RequiredTokensAll: []string{"job", "serial", "technician"},
		},
		Status: audit.StatusActive,
	}
	_ = store.PutTemplate(context.Background(), audit.Template{
		Slug:     "job-sheet",
		Versions: []audit.TemplateVersion{version},
	})
	return reg
}

func newBundle(reg *registry.Registry) *pipeline.ServiceBundle {
	fixed := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	return &pipeline.ServiceBundle{
		Registry:           reg,
		SSOTMode:           registry.SSOTPermissive,
		OCR:                ocr.NewMockProvider(),
		DLQ:                dlq.New(),
		Artifacts:          artifacts.NewMemoryStore(),
		Metrics:            metrics.NewRecorder(nil),
		Clock:              func() time.Time { return fixed },
		Calibration:        audit.ThresholdStandard,
	}
}

var _ = Describe("pipeline.Run", func() {
	var bundle *pipeline.ServiceBundle
	var reg *registry.Registry

	BeforeEach(func() {
		reg = newRegistryWithActiveJobSheetTemplate()
		bundle = newBundle(reg)
		ocrMock := bundle.OCR.(*ocr.MockProvider)
		ocrMock.ByURL["https://docs.example.com/job-sheet.pdf"] = ocr.Result{
			Success: true,
			Pages:   []ocr.Page{{PageNumber: 1, Markdown: happyPathText}},
		}
	})

	It("routes a clean, well-matched document to a canonical report with an artifact trail", func() {
		doc := audit.NewDocument("job-sheet.pdf", []byte("stub-bytes"), time.Now())
		result, err := pipeline.Run(context.Background(), bundle, pipeline.Input{
			Document:      doc,
			CorrelationID: "corr-happy-path",
			SourceURL:     "https://docs.example.com/job-sheet.pdf",
		})

		Expect(err).NotTo(HaveOccurred())
		Expect(result.AuditReport.CorrelationID).To(Equal("corr-happy-path"))
		Expect(result.AuditReport.OverallResult).To(BeElementOf(audit.ResultPass, audit.ResultReviewQueue))
		Expect(result.SelectionTrace.Outcome.TemplateID).To(Equal("job-sheet"))

		store := bundle.Artifacts.(*artifacts.MemoryStore)
		Expect(store.Written).To(HaveKey(artifacts.AuditReportPath(doc.ContentHash)))
	})

	It("reports an OCR failure as a REVIEW_QUEUE outcome instead of an error", func() {
		ocrMock := bundle.OCR.(*ocr.MockProvider)
		ocrMock.ByURL["https://docs.example.com/broken.pdf"] = ocr.Result{
			Success: false, ErrorCode: "HTTP_5xx", Error: "upstream unavailable",
		}

		result, err := pipeline.Run(context.Background(), bundle, pipeline.Input{
			Document:      audit.NewDocument("broken.pdf", []byte("stub"), time.Now()),
			CorrelationID: "corr-ocr-failure",
			SourceURL:     "https://docs.example.com/broken.pdf",
		})

		Expect(err).NotTo(HaveOccurred())
		Expect(result.AuditReport.OverallResult).To(Equal(audit.ResultReviewQueue))
		Expect(result.AuditReport.ErrorCode).To(Equal("HTTP_5xx"))
	})

	It("routes an unmatched document to REVIEW_QUEUE rather than dropping it", func() {
		ocrMock := bundle.OCR.(*ocr.MockProvider)
		ocrMock.ByURL["https://docs.example.com/unrelated.pdf"] = ocr.Result{
			Success: true,
			Pages:   []ocr.Page{{PageNumber: 1, Markdown: "Invoice #998 for widgets, net 30 terms"}},
		}

		result, err := pipeline.Run(context.Background(), bundle, pipeline.Input{
			Document:      audit.NewDocument("unrelated.pdf", []byte("stub"), time.Now()),
			CorrelationID: "corr-unmatched",
			SourceURL:     "https://docs.example.com/unrelated.pdf",
		})

		Expect(err).NotTo(HaveOccurred())
		Expect(result.AuditReport.OverallResult).To(Equal(audit.ResultReviewQueue))
	})

	It("reports an SSOT_VIOLATION as the report's error code in strict mode with no active templates", func() {
		emptyReg := registry.NewRegistry(registry.NewMemoryStore())
		strictBundle := newBundle(emptyReg)
		strictBundle.SSOTMode = registry.SSOTStrict

		result, err := pipeline.Run(context.Background(), strictBundle, pipeline.Input{
			Document:      audit.NewDocument("any.pdf", []byte("stub"), time.Now()),
			CorrelationID: "corr-ssot",
			SourceURL:     "https://docs.example.com/any.pdf",
		})

		Expect(err).NotTo(HaveOccurred())
		Expect(result.AuditReport.ErrorCode).To(Equal("SSOT_VIOLATION"))
	})

	It("never lets the advisory interpreter change the canonical report (insights invariance)", func() {
		withoutInsights, err := pipeline.Run(context.Background(), bundle, pipeline.Input{
			Document:      audit.NewDocument("job-sheet.pdf", []byte("stub-bytes"), time.Now()),
			CorrelationID: "corr-no-insights",
			SourceURL:     "https://docs.example.com/job-sheet.pdf",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(withoutInsights.Insights).To(BeNil())

		bundle.Interpreter = interpreter.NewMockProvider()
		bundle.InterpreterBreaker = resiliency.NewBreaker("interpreter", resiliency.DefaultBreakerOptions())

		withInsights, err := pipeline.Run(context.Background(), bundle, pipeline.Input{
			Document:      audit.NewDocument("job-sheet.pdf", []byte("stub-bytes"), time.Now()),
			CorrelationID: "corr-with-insights",
			SourceURL:     "https://docs.example.com/job-sheet.pdf",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(withInsights.Insights).NotTo(BeNil())
		Expect(withInsights.Insights.IsAdvisoryOnly).To(BeTrue())

		Expect(withInsights.AuditReport.OverallResult).To(Equal(withoutInsights.AuditReport.OverallResult))
		Expect(withInsights.AuditReport.Score).To(Equal(withoutInsights.AuditReport.Score))
		Expect(withInsights.AuditReport.Findings).To(Equal(withoutInsights.AuditReport.Findings))
	})

	It("routes a tripped interpreter breaker to the DLQ without failing the canonical report", func() {
		bundle.Interpreter = interpreter.NewMockProvider()
		tripped := resiliency.NewBreaker("interpreter", resiliency.BreakerOptions{FailureThreshold: 1, ResetTimeout: time.Hour, HalfOpenRequests: 1})
		// Force the breaker open with a single failing call before the run.
		_ = tripped.Execute(context.Background(), func(ctx context.Context) error {
			return assertIntentionalFailure
		})
		bundle.InterpreterBreaker = tripped

		result, err := pipeline.Run(context.Background(), bundle, pipeline.Input{
			Document:      audit.NewDocument("job-sheet.pdf", []byte("stub-bytes"), time.Now()),
			CorrelationID: "corr-breaker-open",
			SourceURL:     "https://docs.example.com/job-sheet.pdf",
		})

		Expect(err).NotTo(HaveOccurred())
		Expect(result.Insights).To(BeNil())
		Expect(result.AuditReport.OverallResult).NotTo(BeEmpty())
	})

	It("indexes the completed report into the queryable audit-history store", func() {
		history, err := storage.Open(":memory:")
		Expect(err).NotTo(HaveOccurred())
		defer history.Close()
		bundle.History = history

		result, err := pipeline.Run(context.Background(), bundle, pipeline.Input{
			Document:      audit.NewDocument("job-sheet.pdf", []byte("stub-bytes"), time.Now()),
			CorrelationID: "corr-history",
			SourceURL:     "https://docs.example.com/job-sheet.pdf",
		})
		Expect(err).NotTo(HaveOccurred())

		rows, err := history.Query(context.Background(), "job-sheet", "", 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(rows).To(HaveLen(1))
		Expect(rows[0].CorrelationID).To(Equal(result.AuditReport.CorrelationID))
	})
})

var assertIntentionalFailure = &testUpstreamError{}

type testUpstreamError struct{}

func (e *testUpstreamError) Error() string { return "intentional test failure" }
