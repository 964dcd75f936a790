// Package logging provides the chainable structured-field builder and the
// safe logger built on top of github.com/sirupsen/logrus.
package logging

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Fields is a chainable structured-log field builder. Each setter returns the
// same map so calls compose: NewFields().Component("ocr").Operation("extract").
type Fields map[string]interface{}

// NewFields returns an empty Fields ready for chaining.
func NewFields() Fields {
	return Fields{}
}

func (f Fields) Component(name string) Fields {
	f["component"] = name
	return f
}

func (f Fields) Operation(name string) Fields {
	f["operation"] = name
	return f
}

func (f Fields) Resource(resourceType, resourceName string) Fields {
	f["resource_type"] = resourceType
	if resourceName != "" {
		f["resource_name"] = resourceName
	}
	return f
}

func (f Fields) Duration(d time.Duration) Fields {
	f["duration_ms"] = d.Milliseconds()
	return f
}

func (f Fields) Error(err error) Fields {
	if err != nil {
		f["error"] = err.Error()
	}
	return f
}

func (f Fields) UserID(id string) Fields {
	if id != "" {
		f["user_id"] = id
	}
	return f
}

func (f Fields) RequestID(id string) Fields {
	f["request_id"] = id
	return f
}

func (f Fields) CorrelationID(id string) Fields {
	if id != "" {
		f["correlation_id"] = id
	}
	return f
}

func (f Fields) TraceID(id string) Fields {
	f["trace_id"] = id
	return f
}

func (f Fields) StatusCode(code int) Fields {
	f["status_code"] = code
	return f
}

func (f Fields) Method(method string) Fields {
	f["method"] = method
	return f
}

func (f Fields) URL(url string) Fields {
	f["url"] = url
	return f
}

func (f Fields) Count(n int) Fields {
	f["count"] = n
	return f
}

func (f Fields) Size(bytes int64) Fields {
	f["size_bytes"] = bytes
	return f
}

func (f Fields) Version(v string) Fields {
	f["version"] = v
	return f
}

func (f Fields) Custom(key string, value interface{}) Fields {
	f[key] = value
	return f
}

// ToLogrus converts Fields to logrus.Fields for handoff to the logger.
func (f Fields) ToLogrus() logrus.Fields {
	out := make(logrus.Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// DocumentFields captures the standard fields attached to every pipeline-stage
// log line for a document being processed.
func DocumentFields(operation, documentID string) Fields {
	return NewFields().Component("pipeline").Operation(operation).Resource("document", documentID)
}

// OCRFields captures the standard fields for an OCR adapter call.
func OCRFields(operation, provider string) Fields {
	return NewFields().Component("ocr").Operation(operation).Custom("provider", provider)
}

// SelectionFields captures the standard fields for a template-selection decision.
func SelectionFields(documentID string) Fields {
	return NewFields().Component("selector").Resource("document", documentID)
}

// InterpreterFields captures the standard fields for an LLM interpreter call.
func InterpreterFields(operation, provider string) Fields {
	return NewFields().Component("interpreter").Operation(operation).Custom("provider", provider)
}
