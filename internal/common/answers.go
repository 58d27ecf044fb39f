package common

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"resumeforge/internal/errors"
	"resumeforge/internal/interview"
	"resumeforge/internal/utils"

	"gopkg.in/yaml.v3"
)

// ParseAnswers decodes an answers file into an Answer Record. Keys may be flat
// ("personal_fullName: Ada") or nested by section ("personal: {fullName: Ada}").
// Scalar values are converted to text.
func ParseAnswers(data []byte, ext string) (map[string]string, error) {
	var doc map[string]any

	switch ext {
	case ".json":
		decoder := json.NewDecoder(bytes.NewReader(data))
		decoder.UseNumber()
		if err := decoder.Decode(&doc); err != nil {
			return nil, errors.NewParseError(errors.ErrCodeInvalidFormat, "answers file is not valid JSON", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, errors.NewParseError(errors.ErrCodeInvalidFormat, "answers file is not valid YAML", err)
		}
	default:
		return nil, errors.NewValidationError(errors.ErrCodeInvalidFormat,
			fmt.Sprintf("unsupported answers file extension %q", ext), nil).
			WithContext("supported", utils.AnswersFileExtensions)
	}

	answers := make(map[string]string, len(doc))
	if err := flattenAnswers("", doc, answers); err != nil {
		return nil, err
	}
	return answers, nil
}

func flattenAnswers(prefix string, node map[string]any, out map[string]string) error {
	keys := make([]string, 0, len(node))
	for key := range node {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "_" + key
		}

		switch value := node[key].(type) {
		case nil:
			out[fullKey] = ""
		case string:
			out[fullKey] = value
		case map[string]any:
			if err := flattenAnswers(fullKey, value, out); err != nil {
				return err
			}
		case []any:
			return errors.NewValidationError(errors.ErrCodeInvalidFormat,
				fmt.Sprintf("answer %q must be text, not a list", fullKey), nil)
		default:
			out[fullKey] = fmt.Sprint(value)
		}
	}
	return nil
}

// EncodeAnswers renders an Answer Record as YAML nested by section, in
// interview order. Unanswered questions are omitted. The output reads back
// through ParseAnswers unchanged.
func EncodeAnswers(answers map[string]string) ([]byte, error) {
	root := &yaml.Node{Kind: yaml.MappingNode}
	for _, section := range interview.Sections() {
		questions := &yaml.Node{Kind: yaml.MappingNode}
		for _, q := range section.Questions {
			text, ok := answers[q.Key()]
			if !ok {
				continue
			}
			questions.Content = append(questions.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Value: q.ID},
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: text})
		}
		if len(questions.Content) == 0 {
			continue
		}
		root.Content = append(root.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: section.ID}, questions)
	}

	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(root); err != nil {
		return nil, errors.NewParseError(errors.ErrCodeInvalidFormat, "failed to encode answers", err)
	}
	if err := encoder.Close(); err != nil {
		return nil, errors.NewParseError(errors.ErrCodeInvalidFormat, "failed to encode answers", err)
	}
	return buf.Bytes(), nil
}
