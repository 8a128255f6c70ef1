package aitools

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode"
)

// defaultSymptomVocabulary lists the symptom terms the scanner recognizes.
// Multi-word phrases are matched before their constituent words, so
// "chest pain" never also reports "pain" for the same span.
var defaultSymptomVocabulary = []string{
	"sensitivity to light",
	"shortness of breath",
	"sore throat",
	"chest pain",
	"back pain",
	"joint pain",
	"runny nose",
	"blurred vision",
	"pain",
	"fever",
	"cough",
	"headache",
	"nausea",
	"vomiting",
	"dizziness",
	"fatigue",
	"rash",
	"chills",
	"diarrhea",
	"congestion",
}

// SymptomScanTool performs a deterministic keyword scan over free text and
// reports recognized symptom terms in order of first appearance.
type SymptomScanTool struct {
	vocabulary []string
}

// NewSymptomScanTool creates a scanner with the default vocabulary.
func NewSymptomScanTool() *SymptomScanTool {
	return &SymptomScanTool{vocabulary: defaultSymptomVocabulary}
}

// NewSymptomScanToolWithVocabulary creates a scanner with a custom vocabulary.
func NewSymptomScanToolWithVocabulary(vocabulary []string) *SymptomScanTool {
	return &SymptomScanTool{vocabulary: vocabulary}
}

func (t *SymptomScanTool) ToolName() string {
	return "symptom_scan"
}

func (t *SymptomScanTool) ToolDescription() string {
	return "Scans free text for known symptom terms and returns them in order of appearance. Use this to cross-check your own reading of the patient's description."
}

func (t *SymptomScanTool) ToolPayloadSchema() Schema {
	return Schema{
		Type: TypeObject,
		Properties: PropertyMap{
			"text": {
				Type:        TypeString,
				Description: "The patient's free-text description to scan",
			},
		},
		Required: []string{"text"},
	}
}

func (t *SymptomScanTool) Call(params string) string {
	var p struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(params), &p); err != nil {
		return "Error: invalid parameters - " + err.Error()
	}

	symptoms := t.Scan(p.Text)

	out, err := json.Marshal(map[string][]string{"symptoms": symptoms})
	if err != nil {
		return fmt.Sprintf("Error: failed to encode result - %v", err)
	}
	return string(out)
}

type symptomMatch struct {
	term  string
	start int
	end   int
}

// Scan returns the recognized symptom terms ordered by first appearance.
// Matching is case-insensitive and word-boundary aware; overlapping matches
// are resolved in favor of the longer phrase.
func (t *SymptomScanTool) Scan(text string) []string {
	lower := strings.ToLower(text)

	// Longest terms first so phrases claim their span before single words
	terms := make([]string, len(t.vocabulary))
	copy(terms, t.vocabulary)
	sort.SliceStable(terms, func(i, j int) bool {
		return len(terms[i]) > len(terms[j])
	})

	var matches []symptomMatch
	for _, term := range terms {
		for _, start := range findWholeWord(lower, term) {
			span := symptomMatch{term: term, start: start, end: start + len(term)}
			if overlapsAny(span, matches) {
				continue
			}
			matches = append(matches, span)
		}
	}

	// Order of appearance in the original text
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].start < matches[j].start
	})

	seen := make(map[string]bool)
	symptoms := make([]string, 0, len(matches))
	for _, m := range matches {
		if seen[m.term] {
			continue
		}
		seen[m.term] = true
		symptoms = append(symptoms, m.term)
	}
	return symptoms
}

// findWholeWord returns every index where term occurs in text bounded by
// non-letter runes on both sides.
func findWholeWord(text, term string) []int {
	var indices []int
	offset := 0
	for {
		i := strings.Index(text[offset:], term)
		if i == -1 {
			return indices
		}
		start := offset + i
		end := start + len(term)

		beforeOK := start == 0 || !isWordRune(rune(text[start-1]))
		afterOK := end == len(text) || !isWordRune(rune(text[end]))
		if beforeOK && afterOK {
			indices = append(indices, start)
		}

		offset = start + 1
	}
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func overlapsAny(m symptomMatch, existing []symptomMatch) bool {
	for _, e := range existing {
		if m.start < e.end && e.start < m.end {
			return true
		}
	}
	return false
}
