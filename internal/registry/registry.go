package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/open-policy-agent/opa/rego"

	ferrors "github.com/cgtqwmwkhp-rgb/job-sheet-qa-auditor-sub001/internal/errors"
	"github.com/cgtqwmwkhp-rgb/job-sheet-qa-auditor-sub001/pkg/audit"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Registry is the Template Registry: a thin orchestration layer
// over a Store that additionally validates SpecJson shape, evaluates
// activation gates, and enforces SSOT mode.
type Registry struct {
	store Store
	now   func() time.Time
}

// NewRegistry wraps store with the registry's validation and activation
// logic.
func NewRegistry(store Store) *Registry {
	return &Registry{store: store, now: time.Now}
}

// WithClock overrides the registry's clock (tests only).
func (r *Registry) WithClock(now func() time.Time) *Registry {
	r.now = now
	return r
}

func (r *Registry) GetTemplate(ctx context.Context, slug string) (audit.Template, bool, error) {
	return r.store.GetTemplate(ctx, slug)
}

func (r *Registry) ListTemplates(ctx context.Context) ([]audit.Template, error) {
	return r.store.ListTemplates(ctx)
}

// ActiveVersionFor returns the currently active TemplateVersion for slug, if
// any.
func (r *Registry) ActiveVersionFor(ctx context.Context, slug string) (audit.TemplateVersion, bool, error) {
	tmpl, ok, err := r.store.GetTemplate(ctx, slug)
	if err != nil || !ok {
		return audit.TemplateVersion{}, false, err
	}
	v, ok := tmpl.ActiveVersion()
	return v, ok, nil
}

// AllActiveVersions returns every template's currently active version,
// across all slugs — the candidate pool the selector scores against.
func (r *Registry) AllActiveVersions(ctx context.Context) ([]audit.TemplateVersion, error) {
	templates, err := r.store.ListTemplates(ctx)
	if err != nil {
		return nil, err
	}
	var out []audit.TemplateVersion
	for _, t := range templates {
		if v, ok := t.ActiveVersion(); ok {
			out = append(out, v)
		}
	}
	return out, nil
}

// PutDraft validates and stores a new draft version under slug, appending it
// to the template's version history (creating the template if absent).
func (r *Registry) PutDraft(ctx context.Context, slug string, v audit.TemplateVersion) error {
	if !validSlug.MatchString(slug) {
		return fmt.Errorf("invalid template slug %q: must match %s", slug, validSlug.String())
	}
	if err := ValidateSpec(v.Spec); err != nil {
		return err
	}

	tmpl, ok, err := r.store.GetTemplate(ctx, slug)
	if err != nil {
		return err
	}
	if !ok {
		tmpl = audit.Template{Slug: slug}
	}

	v.TemplateID = slug
	v.Status = audit.StatusDraft
	v.CreatedAt = r.now()
	tmpl.Versions = append(tmpl.Versions, v)
	return r.store.PutTemplate(ctx, tmpl)
}

// ValidateSpec checks struct-tag validity plus referential integrity: every
// rule must reference a declared field, and custom rules must carry an
// evaluable policy expression.
func ValidateSpec(spec audit.SpecJson) error {
	if err := validate.Struct(spec); err != nil {
		return fmt.Errorf("spec validation failed: %w", err)
	}
	for _, f := range spec.Fields {
		if err := validate.Struct(f); err != nil {
			return fmt.Errorf("field %q: %w", f.ID, err)
		}
	}
	for _, rule := range spec.Rules {
		if err := validate.Struct(rule); err != nil {
			return fmt.Errorf("rule %q: %w", rule.RuleID, err)
		}
		if _, ok := spec.FieldByID(rule.Field); !ok {
			return fmt.Errorf("rule %q references undeclared field %q", rule.RuleID, rule.Field)
		}
		if rule.Type == audit.RuleTypeCustom {
			if _, _, err := EvaluateCustomRulePolicy(rule, map[string]any{}); err != nil {
				return fmt.Errorf("rule %q: custom policy does not evaluate: %w", rule.RuleID, err)
			}
		}
	}
	return nil
}

// EvaluateCustomRulePolicy runs a rule.type=="custom" rule's Pattern field as
// a Rego query body (package audit.custom; the rule's Pattern is embedded as
// the body of a `allow` rule) against the supplied field-value bindings,
// returning whether it passed. This lets template authors express cross-
// field constraints (e.g. "timeOut must be after timeIn") without a code
// change.
func EvaluateCustomRulePolicy(rule audit.Rule, input map[string]any) (bool, []string, error) {
	body := rule.Pattern
	if body == "" {
		body = "true"
	}
	module := fmt.Sprintf(`package audit.custom
allow { %s }`, body)

	r := rego.New(
		rego.Query("data.audit.custom.allow"),
		rego.Module(rule.RuleID+".rego", module),
	)

	ctx := context.Background()
	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return false, nil, err
	}
	results, err := query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return false, nil, err
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return false, nil, nil
	}
	allowed, _ := results[0].Expressions[0].Value.(bool)
	return allowed, nil, nil
}

// Activate evaluates the seven activation gates for slug's draft version
// versionID, and — if they all pass — promotes it to active, demoting the
// template's previously active version (if any) to deprecated. The
// ActivationReport is returned regardless of outcome so the caller can
// persist or surface it — every activation attempt, passed or failed,
// produces one.
func (r *Registry) Activate(ctx context.Context, slug, versionID string, allowedMissingROIs []string) (audit.ActivationReport, error) {
	tmpl, ok, err := r.store.GetTemplate(ctx, slug)
	if err != nil {
		return audit.ActivationReport{}, err
	}
	if !ok {
		return audit.ActivationReport{}, ferrors.WithCode(ferrors.CodeActivationPolicyError, fmt.Errorf("no template with slug %q", slug))
	}

	idx := -1
	for i, v := range tmpl.Versions {
		if v.VersionID == versionID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return audit.ActivationReport{}, ferrors.WithCode(ferrors.CodeActivationPolicyError, fmt.Errorf("no version %q under slug %q", versionID, slug))
	}

	if roiViolations := ValidateROIConfig(tmpl.Versions[idx].ROI); HasRejections(roiViolations) {
		return audit.ActivationReport{}, ferrors.WithCode(ferrors.CodeActivationPolicyError, fmt.Errorf("roi config has rejected regions: %v", roiViolations))
	}

	var pack *audit.FixturePack
	if p, ok, err := r.store.GetFixturePack(ctx, versionID); err != nil {
		return audit.ActivationReport{}, err
	} else if ok {
		pack = &p
	}

	report := EvaluateGates(tmpl.Versions[idx], pack, allowedMissingROIs)
	report.Timestamp = r.now()

	if report.Passed {
		for i := range tmpl.Versions {
			if tmpl.Versions[i].Status == audit.StatusActive {
				tmpl.Versions[i].Status = audit.StatusDeprecated
			}
		}
		now := r.now()
		tmpl.Versions[idx].Status = audit.StatusActive
		tmpl.Versions[idx].PublishedAt = &now
		if err := r.store.PutTemplate(ctx, tmpl); err != nil {
			return report, err
		}
	}

	return report, nil
}
