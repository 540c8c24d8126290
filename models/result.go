package models

import "time"

// Keys and error kinds that appear in persisted data artifacts.
const (
	MetadataKey    = "_metadata"
	ErrorKey       = "error"
	RawResponseKey = "raw_response"

	ErrJSONParsing   = "JSON parsing error"
	ErrCaptureFailed = "Failed to capture screenshot"
)

// Result is the structured output for one URL: either the fields the vision
// model extracted, or an error record. It is what gets written to the data
// artifact, so it must always marshal to a JSON object.
type Result map[string]any

// Metadata is attached to every Result under MetadataKey.
type Metadata struct {
	URL       string `json:"url" yaml:"url"`
	Timestamp string `json:"timestamp" yaml:"timestamp"`
	DataType  string `json:"data_type" yaml:"data_type"`
}

// NewMetadata stamps metadata for url with the current time.
func NewMetadata(url, dataType string) Metadata {
	return Metadata{
		URL:       url,
		Timestamp: time.Now().Format(time.RFC3339Nano),
		DataType:  dataType,
	}
}

// ErrorResult builds a {error: msg} record.
func ErrorResult(msg string) Result {
	return Result{ErrorKey: msg}
}

// ParseErrorResult builds the record returned when model output is not JSON.
func ParseErrorResult(raw string) Result {
	return Result{ErrorKey: ErrJSONParsing, RawResponseKey: raw}
}

// WithMetadata sets r[MetadataKey] and returns r. A nil Result is replaced
// with an empty one.
func (r Result) WithMetadata(md Metadata) Result {
	if r == nil {
		r = Result{}
	}
	r[MetadataKey] = md
	return r
}

// Err returns the error message of an error record, or "" on success.
func (r Result) Err() string {
	if !r.IsError() {
		return ""
	}
	return r[ErrorKey].(string)
}

// IsError reports whether r is an error record: a string under ErrorKey and
// nothing else besides RawResponseKey and MetadataKey. Extracted data that
// happens to carry its own "error" field next to other fields is a success.
func (r Result) IsError() bool {
	if _, ok := r[ErrorKey].(string); !ok {
		return false
	}
	for k := range r {
		switch k {
		case ErrorKey, RawResponseKey, MetadataKey:
		default:
			return false
		}
	}
	return true
}
