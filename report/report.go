package report

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aymanh23/searchv2/pipeline"
	"github.com/aymanh23/searchv2/store"
)

// Fixed recommendation and disclaimer blocks, shown on every report.
var (
	recommendations = []string{
		"Complete physical examination by a qualified healthcare provider",
		"Detailed medical history review",
		"Consider relevant diagnostic tests based on clinical presentation",
		"Follow up as clinically indicated",
		"Seek immediate medical attention if symptoms worsen",
	}
	importantNotes = []string{
		"This report was generated from an AI-assisted patient interview",
		"Information should be verified during clinical examination",
		"This report does not constitute medical diagnosis or treatment",
		"Healthcare provider discretion is essential for patient care decisions",
	}
)

// Build renders a stored intake as a markdown report. Sections degrade to
// placeholder lines when the record holds no data for them, so a report can
// be produced for an intake in any state. The transcript section is included
// only when messages are supplied.
func Build(rec *store.IntakeRecord, messages []store.IntakeMessage) (string, error) {
	if rec == nil {
		return "", fmt.Errorf("no intake record")
	}

	var set *pipeline.SymptomSet
	if rec.SymptomsJSON != nil {
		set = &pipeline.SymptomSet{}
		if err := json.Unmarshal([]byte(*rec.SymptomsJSON), set); err != nil {
			return "", fmt.Errorf("parsing stored symptoms: %w", err)
		}
	}

	var bundle *pipeline.SearchBundle
	if rec.BundleJSON != nil {
		bundle = &pipeline.SearchBundle{}
		if err := json.Unmarshal([]byte(*rec.BundleJSON), bundle); err != nil {
			return "", fmt.Errorf("parsing stored search bundle: %w", err)
		}
	}

	var b strings.Builder
	b.WriteString("# Medical Symptom Report\n\n")
	fmt.Fprintf(&b, "**Report generated:** %s  \n", time.Now().Format("January 2, 2006 at 3:04 PM"))
	b.WriteString("**Report type:** Symptom Assessment  \n")
	b.WriteString("**Source:** AI-assisted patient interview\n\n")

	b.WriteString("## 1. Patient\n\n")
	fmt.Fprintf(&b, "- Patient ID: %s\n", rec.UserID)
	fmt.Fprintf(&b, "- Intake ID: %s\n", rec.ID)
	fmt.Fprintf(&b, "- Started: %s\n", rec.StartedAt.Format(time.RFC1123))
	if rec.FinishedAt != nil {
		fmt.Fprintf(&b, "- Finished: %s\n", rec.FinishedAt.Format(time.RFC1123))
	}
	fmt.Fprintf(&b, "- Status: %s\n\n", rec.Status)

	b.WriteString("## 2. Chief Complaint\n\n")
	if rec.Description != "" {
		b.WriteString(rec.Description + "\n\n")
	} else {
		b.WriteString("No chief complaint recorded.\n\n")
	}

	b.WriteString("## 3. Symptom Review\n\n")
	if set != nil && len(set.Symptoms) > 0 {
		for _, s := range set.Symptoms {
			fmt.Fprintf(&b, "- %s\n", s)
		}
		b.WriteString("\n")
	} else {
		b.WriteString("No symptoms were finalized for this intake.\n\n")
	}

	if set != nil && len(set.Clarifications) > 0 {
		b.WriteString("### Clarifications\n\n")
		for _, c := range set.Clarifications {
			fmt.Fprintf(&b, "- **Q:** %s  \n  **A:** %s\n", c.Question, c.Answer)
		}
		b.WriteString("\n")
	}

	if len(messages) > 0 {
		b.WriteString("### Interview Transcript\n\n")
		for _, m := range messages {
			fmt.Fprintf(&b, "- **%s:** %s\n", m.Role, m.Content)
		}
		b.WriteString("\n")
	}

	b.WriteString("## 4. Candidate Conditions\n\n")
	if bundle != nil && len(bundle.RelatedConditions) > 0 {
		for _, c := range bundle.RelatedConditions {
			fmt.Fprintf(&b, "- %s\n", c)
		}
		b.WriteString("\n")
	} else {
		b.WriteString("The search returned no related conditions.\n\n")
	}

	b.WriteString("## 5. Suggested Follow-up Questions\n\n")
	if bundle != nil && len(bundle.SuggestedQuestions) > 0 {
		for _, q := range bundle.SuggestedQuestions {
			fmt.Fprintf(&b, "- %s\n", q)
		}
		b.WriteString("\n")
	} else {
		b.WriteString("No follow-up questions were suggested.\n\n")
	}

	b.WriteString("## 6. Recommendations\n\n")
	for _, r := range recommendations {
		fmt.Fprintf(&b, "- %s\n", r)
	}
	b.WriteString("\n")

	b.WriteString("## 7. Important Notes\n\n")
	for _, n := range importantNotes {
		fmt.Fprintf(&b, "- %s\n", n)
	}
	b.WriteString("\n*End of report.*\n")

	return b.String(), nil
}
