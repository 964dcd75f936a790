package audit

import "time"

// VersionStatus is the lifecycle state of a TemplateVersion.
type VersionStatus string

const (
	StatusDraft      VersionStatus = "draft"
	StatusActive     VersionStatus = "active"
	StatusDeprecated VersionStatus = "deprecated"
	StatusArchived   VersionStatus = "archived"
)

// FieldType enumerates the scalar types a SpecJson field may declare.
type FieldType string

const (
	FieldTypeString   FieldType = "string"
	FieldTypeNumber   FieldType = "number"
	FieldTypeDate     FieldType = "date"
	FieldTypeBoolean  FieldType = "boolean"
	FieldTypeCurrency FieldType = "currency"
	FieldTypeList     FieldType = "list"
)

// RuleType enumerates the kinds of validation rule a SpecJson may declare.
type RuleType string

const (
	RuleTypeRequired RuleType = "required"
	RuleTypeFormat   RuleType = "format"
	RuleTypeRange    RuleType = "range"
	RuleTypePattern  RuleType = "pattern"
	RuleTypeCustom   RuleType = "custom"
)

// Severity is a rule's declared importance, independent of a Finding's
// reported severity band.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityMajor    Severity = "major"
	SeverityMinor    Severity = "minor"
	SeverityInfo     Severity = "info"
)

// Field is one declared field of a template's specification.
type Field struct {
	ID              string    `json:"id" validate:"required"`
	Label           string    `json:"label" validate:"required"`
	Type            FieldType `json:"type" validate:"required,oneof=string number date boolean currency list"`
	Required        bool      `json:"required"`
	ExtractionHints []string  `json:"extractionHints,omitempty"`
	Aliases         []string  `json:"aliases,omitempty"`
}

// Range bounds a RuleTypeRange rule's permitted numeric interval.
type Range struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// Rule is one declared validation rule of a template's specification. Every
// rule MUST reference a declared Field (enforced by registry.ValidateSpec
// when a draft is stored, not here).
type Rule struct {
	RuleID  string   `json:"ruleId" validate:"required"`
	Field   string   `json:"field" validate:"required"`
	Type    RuleType `json:"type" validate:"required,oneof=required format range pattern custom"`
	Severity Severity `json:"severity" validate:"required,oneof=critical major minor info"`
	Pattern string   `json:"pattern,omitempty"`
	Range   *Range   `json:"range,omitempty"`
	Enabled bool     `json:"enabled"`
	Tags    []string `json:"tags,omitempty"`
}

// SpecJson is a template version's declared fields and rules.
type SpecJson struct {
	Fields []Field `json:"fields"`
	Rules  []Rule  `json:"rules"`
}

// FieldByID returns the field with the given id, if declared.
func (s SpecJson) FieldByID(id string) (Field, bool) {
	for _, f := range s.Fields {
		if f.ID == id {
			return f, true
		}
	}
	return Field{}, false
}

// SelectionConfig configures how the Selector scores a document against this
// template version.
type SelectionConfig struct {
	RequiredTokensAll []string          `json:"requiredTokensAll,omitempty"`
	RequiredTokensAny []string          `json:"requiredTokensAny,omitempty"`
	OptionalTokens    map[string]float64 `json:"optionalTokens,omitempty"`
	FormCodeRegex     string            `json:"formCodeRegex,omitempty"`
}

// ROIRegion is a single named, page-indexed rectangle in normalized 0..1
// coordinates.
type ROIRegion struct {
	Name string  `json:"name"`
	Page int     `json:"page"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	W    float64 `json:"w"`
	H    float64 `json:"h"`
}

// RoiConfig is the optional set of regions-of-interest declared for a
// template version, keyed by field id.
type RoiConfig struct {
	Regions map[string][]ROIRegion `json:"regions,omitempty"`
}

// TemplateVersion is one immutable, versioned revision of a Template.
type TemplateVersion struct {
	VersionID       string
	TemplateID      string
	Spec            SpecJson
	Selection       SelectionConfig
	ROI             *RoiConfig
	Status          VersionStatus
	ChangeNote      string
	CreatedBy       string
	CreatedAt       time.Time
	PublishedAt     *time.Time
}

// Template is a logical slug plus its ordered versions. Exactly one version
// may be active at a time.
type Template struct {
	Slug     string
	Versions []TemplateVersion
}

// ActiveVersion returns the one active version, if any.
func (t Template) ActiveVersion() (TemplateVersion, bool) {
	for _, v := range t.Versions {
		if v.Status == StatusActive {
			return v, true
		}
	}
	return TemplateVersion{}, false
}
