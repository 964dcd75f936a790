package registry

import (
	"context"
	"os"
	"regexp"
	"strings"

	ferrors "github.com/cgtqwmwkhp-rgb/job-sheet-qa-auditor-sub001/internal/errors"
	"github.com/cgtqwmwkhp-rgb/job-sheet-qa-auditor-sub001/pkg/audit"
)

// SSOTMode is the registry's process-wide single-source-of-truth policy.
type SSOTMode string

const (
	SSOTStrict     SSOTMode = "strict"
	SSOTPermissive SSOTMode = "permissive"
)

// prodStagingEnvs are the APP_ENV/NODE_ENV values that force strict mode
// regardless of TEMPLATE_SSOT_MODE.
var prodStagingEnvs = map[string]bool{
	"production": true,
	"prod":       true,
	"staging":    true,
}

// currentEnv reads APP_ENV, falling back to NODE_ENV.
func currentEnv() string {
	if v := os.Getenv("APP_ENV"); v != "" {
		return strings.ToLower(v)
	}
	return strings.ToLower(os.Getenv("NODE_ENV"))
}

// ResolveSSOTMode computes the effective SSOT mode from TEMPLATE_SSOT_MODE
// and the current environment; an attempted override in prod/staging is
// logged by the caller (onOverrideIgnored is called with the requested mode
// when one is ignored).
func ResolveSSOTMode(requested SSOTMode, onOverrideIgnored func(requested SSOTMode)) SSOTMode {
	if prodStagingEnvs[currentEnv()] {
		if requested != "" && requested != SSOTStrict {
			if onOverrideIgnored != nil {
				onOverrideIgnored(requested)
			}
		}
		return SSOTStrict
	}
	if requested == SSOTPermissive {
		return SSOTPermissive
	}
	return SSOTStrict
}

const defaultTemplateSlug = "__default__"

var (
	serialNumberPattern = `^SN-\d{5}-[A-Z]{2}$`
	timeInOutPattern     = `^\d{2}:\d{2}$`
	jobNumberPattern     = `^JOB-\d{6}$`
)

// DefaultTemplateSlug is the reserved slug of the built-in default template
// auto-initialized in permissive mode. It is reserved so the selector can
// always identify and deprioritize it (see DESIGN.md).
func DefaultTemplateSlug() string { return defaultTemplateSlug }

// NewDefaultTemplate builds the built-in default template: ten rules
// covering signature, date, serial number, technician, work description,
// parts, time-in/out, customer, and job number.
func NewDefaultTemplate() audit.TemplateVersion {
	fields := []audit.Field{
		{ID: "engineerSignOff", Label: "Engineer Sign-off", Type: audit.FieldTypeString, Required: true},
		{ID: "date", Label: "Date of Service", Type: audit.FieldTypeDate, Required: true},
		{ID: "serialNumber", Label: "Serial Number", Type: audit.FieldTypeString, Required: true},
		{ID: "technician", Label: "Technician", Type: audit.FieldTypeString, Required: true},
		{ID: "workDescription", Label: "Work Description", Type: audit.FieldTypeString, Required: true},
		{ID: "parts", Label: "Parts", Type: audit.FieldTypeList, Required: false},
		{ID: "timeIn", Label: "Time In", Type: audit.FieldTypeString, Required: true},
		{ID: "timeOut", Label: "Time Out", Type: audit.FieldTypeString, Required: true},
		{ID: "customer", Label: "Customer", Type: audit.FieldTypeString, Required: true},
		{ID: "jobReference", Label: "Job Reference", Type: audit.FieldTypeString, Required: true},
		{ID: "assetId", Label: "Asset ID", Type: audit.FieldTypeString, Required: true},
	}

	rules := []audit.Rule{
		{RuleID: "R001", Field: "engineerSignOff", Type: audit.RuleTypeRequired, Severity: audit.SeverityCritical, Enabled: true},
		{RuleID: "R002", Field: "date", Type: audit.RuleTypeRequired, Severity: audit.SeverityCritical, Enabled: true},
		{RuleID: "R003", Field: "serialNumber", Type: audit.RuleTypePattern, Severity: audit.SeverityMajor, Pattern: serialNumberPattern, Enabled: true},
		{RuleID: "R004", Field: "technician", Type: audit.RuleTypeRequired, Severity: audit.SeverityMajor, Enabled: true},
		{RuleID: "R005", Field: "workDescription", Type: audit.RuleTypeRequired, Severity: audit.SeverityMajor, Enabled: true},
		{RuleID: "R006", Field: "parts", Type: audit.RuleTypeFormat, Severity: audit.SeverityMinor, Enabled: true},
		{RuleID: "R007", Field: "timeIn", Type: audit.RuleTypePattern, Severity: audit.SeverityMinor, Pattern: timeInOutPattern, Enabled: true},
		{RuleID: "R008", Field: "timeOut", Type: audit.RuleTypePattern, Severity: audit.SeverityMinor, Pattern: timeInOutPattern, Enabled: true},
		{RuleID: "R009", Field: "customer", Type: audit.RuleTypeRequired, Severity: audit.SeverityMajor, Enabled: true},
		{RuleID: "R010", Field: "jobReference", Type: audit.RuleTypePattern, Severity: audit.SeverityCritical, Pattern: jobNumberPattern, Enabled: true},
	}

	return audit.TemplateVersion{
		VersionID:  defaultTemplateSlug + "-v1",
		TemplateID: defaultTemplateSlug,
		Spec:       audit.SpecJson{Fields: fields, Rules: rules},
		Selection: audit.SelectionConfig{
			RequiredTokensAny: []string{"job", "sheet", "service", "work", "order"},
		},
		Status:     audit.StatusActive,
		ChangeNote: "built-in default template (SSOT permissive mode)",
	}
}

// EnsureTemplatesReady guards pipeline startup: in strict mode
// with no active templates, raise SSOT_VIOLATION; in permissive mode,
// auto-initialize the default template if the registry is otherwise empty.
func EnsureTemplatesReady(ctx context.Context, reg *Registry, mode SSOTMode) error {
	templates, err := reg.store.ListTemplates(ctx)
	if err != nil {
		return err
	}
	if hasActiveVersion(templates) {
		return nil
	}

	if mode == SSOTStrict {
		return ferrors.WithCode(ferrors.CodeSSOTViolation, nil)
	}

	defaultVersion := NewDefaultTemplate()
	tmpl := audit.Template{Slug: defaultTemplateSlug, Versions: []audit.TemplateVersion{defaultVersion}}
	return reg.store.PutTemplate(ctx, tmpl)
}

func hasActiveVersion(templates []audit.Template) bool {
	for _, t := range templates {
		if _, ok := t.ActiveVersion(); ok {
			return true
		}
	}
	return false
}

var validSlug = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
