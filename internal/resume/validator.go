package resume

import (
	"bytes"
	"encoding/json"
	"strings"

	"resumeforge/internal/errors"

	"github.com/xeipuuv/gojsonschema"
)

// MessageMissingSections is the message of the error returned when required sections are absent.
const MessageMissingSections = "missing required sections"

// Validator turns raw model output into a Document.
type Validator struct {
	strict bool
	schema *gojsonschema.Schema
}

// NewValidator creates a validator. In strict mode malformed experience or
// education entries fail validation; otherwise they are reported as warnings.
func NewValidator(strict bool) (*Validator, error) {
	schema, err := compileDocumentSchema()
	if err != nil {
		return nil, errors.NewInternalError("SCHEMA_COMPILE_FAILED", "failed to load resume schema", err)
	}
	return &Validator{strict: strict, schema: schema}, nil
}

var defaultValidator = func() *Validator {
	v, err := NewValidator(false)
	if err != nil {
		panic(err)
	}
	return v
}()

// Validate checks raw with the tolerant default validator.
func Validate(raw string) (*Document, error) {
	return defaultValidator.Validate(raw)
}

// Strict reports whether entry findings fail validation.
func (v *Validator) Strict() bool {
	return v.strict
}

// Validate parses raw and checks the required sections. The returned document
// keeps the model's JSON without patching it.
func (v *Validator) Validate(raw string) (*Document, error) {
	var parsed any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, errors.NewParseError(errors.ErrCodeResponseNotJSON, "response is not valid JSON", err)
	}

	object, _ := parsed.(map[string]any)
	if missing := missingSections(object); len(missing) > 0 {
		return nil, errors.NewSchemaError(errors.ErrCodeMissingRequiredSections, MessageMissingSections, nil).
			WithContext("missing", strings.Join(missing, ","))
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, []byte(raw)); err != nil {
		return nil, errors.NewParseError(errors.ErrCodeResponseNotJSON, "response is not valid JSON", err)
	}
	doc := &Document{raw: compact.Bytes()}

	issues, err := checkEntries(v.schema, doc.raw)
	if err != nil {
		return nil, errors.NewInternalError("SCHEMA_CHECK_FAILED", "failed to evaluate document entries", err)
	}
	if len(issues) > 0 && v.strict {
		return nil, errors.NewSchemaError(errors.ErrCodeMalformedEntries, "malformed resume entries", nil).
			WithContext("issues", issues)
	}
	doc.Warnings = issues

	// A tolerated shape mismatch leaves the affected fields of the typed view empty
	if err := json.Unmarshal(doc.raw, &doc.Resume); err != nil {
		doc.Warnings = append(doc.Warnings, Issue{Field: "(root)", Message: err.Error()})
	}

	return doc, nil
}

// missingSections lists required sections that are absent or falsy. A nil
// object is missing every section.
func missingSections(object map[string]any) []string {
	var missing []string
	for _, name := range RequiredSections {
		if !truthy(object[name]) {
			missing = append(missing, name)
		}
	}
	return missing
}

// truthy treats null, false, 0 and "" as absent. Empty objects and arrays count as present.
func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case float64:
		return v != 0
	case string:
		return v != ""
	default:
		return true
	}
}
