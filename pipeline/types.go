package pipeline

import "strings"

// Clarification is one question-and-answer round trip with the patient.
type Clarification struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// SymptomSet is the extraction task's output and the sole artifact handed to
// the condition search task: the ordered symptoms plus the clarification log
// that produced them.
type SymptomSet struct {
	Symptoms       []string        `json:"symptoms"`
	Clarifications []Clarification `json:"clarifications,omitempty"`
}

// QueryExpression formats the symptoms as a single search query.
func (s *SymptomSet) QueryExpression() string {
	return strings.Join(s.Symptoms, ", ")
}

// SearchBundle is the condition search task's output. Both fields are always
// present; empty slices are valid results, nil slices are not.
type SearchBundle struct {
	RelatedConditions  []string `json:"related_conditions"`
	SuggestedQuestions []string `json:"suggested_questions"`
}
