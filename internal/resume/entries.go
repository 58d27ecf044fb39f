package resume

import (
	_ "embed"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema/document.schema.json
var documentSchema string

func compileDocumentSchema() (*gojsonschema.Schema, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(documentSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to compile document schema: %w", err)
	}
	return schema, nil
}

// checkEntries evaluates the document against the entry schema and returns
// every finding. An empty result means the entries are well formed.
func checkEntries(schema *gojsonschema.Schema, raw []byte) ([]Issue, error) {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, err
	}
	if result.Valid() {
		return nil, nil
	}

	issues := make([]Issue, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		issues = append(issues, Issue{Field: field, Message: desc.Description()})
	}
	return issues, nil
}
