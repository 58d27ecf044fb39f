package resume

import (
	"encoding/json"
	"testing"

	"resumeforge/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullDocument = `{
  "personalInfo": {"fullName": "Ada Lovelace", "email": "ada@example.com", "phone": "", "location": "London", "title": "Analyst"},
  "summary": "Mathematician.",
  "experience": [{"company": "Babbage & Co", "position": "Analyst", "location": "London", "startDate": "1842", "endDate": "1843", "achievements": ["Wrote the first algorithm"]}],
  "education": [{"school": "Home", "degree": "Mathematics", "field": "Analysis", "startDate": "", "endDate": "", "achievements": []}],
  "skills": ["Mathematics", "Poetry"]
}`

func TestValidateAcceptsDocuments(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"full document", fullDocument},
		{"empty sections", `{"personalInfo":{},"summary":"","experience":[],"education":[],"skills":[]}`},
		{"summary omitted", `{"personalInfo":{},"experience":[],"education":[],"skills":[]}`},
		{"extra fields kept", `{"personalInfo":{},"experience":[],"education":[],"skills":[],"hobbies":["chess"]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Validate(tt.raw)
			require.NoError(t, err)
			assert.JSONEq(t, tt.raw, string(doc.Raw()))
		})
	}
}

func TestValidateRejectsNonJSON(t *testing.T) {
	for _, raw := range []string{"not json", "", `{"personalInfo":`, "```json\n{}\n```"} {
		t.Run(raw, func(t *testing.T) {
			doc, err := Validate(raw)
			require.Error(t, err)
			assert.Nil(t, doc)
			assert.True(t, errors.IsType(err, errors.ErrorTypeParse))
			assert.True(t, errors.HasCode(err, errors.ErrCodeResponseNotJSON))
		})
	}
}

func TestValidateRejectsMissingSections(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		missing string
	}{
		{"personal info and summary only", `{"personalInfo":{},"summary":""}`, "experience,education,skills"},
		{"skills missing", `{"personalInfo":{},"summary":"","experience":[],"education":[]}`, "skills"},
		{"null personalInfo", `{"personalInfo":null,"experience":[],"education":[],"skills":[]}`, "personalInfo"},
		{"false experience", `{"personalInfo":{},"experience":false,"education":[],"skills":[]}`, "experience"},
		{"zero education", `{"personalInfo":{},"experience":[],"education":0,"skills":[]}`, "education"},
		{"empty string skills", `{"personalInfo":{},"experience":[],"education":[],"skills":""}`, "skills"},
		{"several missing", `{"summary":"x","skills":[]}`, "personalInfo,experience,education"},
		{"array", `[1,2,3]`, "personalInfo,experience,education,skills"},
		{"string", `"resume"`, "personalInfo,experience,education,skills"},
		{"null", `null`, "personalInfo,experience,education,skills"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Validate(tt.raw)
			require.Error(t, err)
			assert.Nil(t, doc)

			appErr, ok := errors.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, errors.ErrorTypeSchema, appErr.Type)
			assert.Equal(t, errors.ErrCodeMissingRequiredSections, appErr.Code)
			assert.Equal(t, MessageMissingSections, appErr.Message)
			assert.Equal(t, tt.missing, appErr.Context["missing"])
		})
	}
}

func TestValidateTypedView(t *testing.T) {
	doc, err := Validate(fullDocument)
	require.NoError(t, err)

	assert.Empty(t, doc.Warnings)
	assert.Equal(t, "Ada Lovelace", doc.Resume.PersonalInfo.FullName)
	require.Len(t, doc.Resume.Experience, 1)
	assert.Equal(t, []string{"Wrote the first algorithm"}, doc.Resume.Experience[0].Achievements)
	assert.Equal(t, []string{"Mathematics", "Poetry"}, doc.Resume.Skills)

	encoded, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.Equal(t, string(doc.Raw()), string(encoded), "documents serialize as the model produced them")
}

const malformedEntries = `{"personalInfo":{},"experience":[{"position":"Analyst","achievements":"many"}],"education":[{"degree":"BSc"}],"skills":["Go"]}`

func TestValidateToleratesMalformedEntries(t *testing.T) {
	doc, err := Validate(malformedEntries)
	require.NoError(t, err)

	assert.NotEmpty(t, doc.Warnings)
	fields := make([]string, 0, len(doc.Warnings))
	for _, w := range doc.Warnings {
		fields = append(fields, w.Field)
	}
	assert.Contains(t, fields, "experience.0")
	assert.Contains(t, fields, "experience.0.achievements")
	assert.Contains(t, fields, "education.0")
	assert.JSONEq(t, malformedEntries, string(doc.Raw()), "the document is not patched")
}

func TestStrictValidatorRejectsMalformedEntries(t *testing.T) {
	v, err := NewValidator(true)
	require.NoError(t, err)
	assert.True(t, v.Strict())

	_, err = v.Validate(malformedEntries)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSchema))
	assert.True(t, errors.HasCode(err, errors.ErrCodeMalformedEntries))

	doc, err := v.Validate(fullDocument)
	require.NoError(t, err)
	assert.Empty(t, doc.Warnings)
}

func TestTruthy(t *testing.T) {
	tests := []struct {
		value    any
		expected bool
	}{
		{nil, false},
		{false, false},
		{true, true},
		{float64(0), false},
		{float64(-1), true},
		{"", false},
		{"x", true},
		{map[string]any{}, true},
		{[]any{}, true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, truthy(tt.value), "%#v", tt.value)
	}
}
