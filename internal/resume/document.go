// Package resume validates model output and exposes it as a resume document.
package resume

import "encoding/json"

// RequiredSections are the top-level fields every generated document must carry.
var RequiredSections = []string{"personalInfo", "experience", "education", "skills"}

// PersonalInfo identifies the candidate.
type PersonalInfo struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Location string `json:"location"`
	Title    string `json:"title"`
}

// Experience is one position held by the candidate.
type Experience struct {
	Company      string   `json:"company"`
	Position     string   `json:"position"`
	Location     string   `json:"location"`
	StartDate    string   `json:"startDate"`
	EndDate      string   `json:"endDate"`
	Achievements []string `json:"achievements"`
}

// Education is one degree or qualification.
type Education struct {
	School       string   `json:"school"`
	Degree       string   `json:"degree"`
	Field        string   `json:"field"`
	StartDate    string   `json:"startDate"`
	EndDate      string   `json:"endDate"`
	Achievements []string `json:"achievements"`
}

// Resume is the typed view of a generated document.
type Resume struct {
	PersonalInfo PersonalInfo `json:"personalInfo"`
	Summary      string       `json:"summary"`
	Experience   []Experience `json:"experience"`
	Education    []Education  `json:"education"`
	Skills       []string     `json:"skills"`
}

// Issue is a shape problem found in a document that otherwise passed validation.
type Issue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Document is a generated resume that passed validation. Raw holds the
// object exactly as the model produced it; Resume is decoded from Raw.
type Document struct {
	raw      json.RawMessage
	Resume   Resume
	Warnings []Issue
}

// Raw returns the document JSON as produced by the model.
func (d *Document) Raw() json.RawMessage {
	return d.raw
}

// MarshalJSON emits the raw document unchanged.
func (d *Document) MarshalJSON() ([]byte, error) {
	return d.raw, nil
}
