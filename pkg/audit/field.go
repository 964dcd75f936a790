package audit

// ExtractionSource identifies which extraction method produced a field's
// value.
type ExtractionSource string

const (
	SourceOCR       ExtractionSource = "ocr"
	SourceRegex     ExtractionSource = "regex"
	SourceInference ExtractionSource = "inference"
	SourceImageQA   ExtractionSource = "image_qa"
)

// ExtractedField is one field's value as pulled from a document, prior to
// calibration.
type ExtractedField struct {
	FieldID    string
	Value      string
	Confidence float64
	Source     ExtractionSource
	Extracted  bool
	ROIMatch   *bool
}
