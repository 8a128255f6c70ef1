package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// searchResultJSON is the provider response shape the parser understands
// (serper.dev organic results plus the common auxiliary sections).
type searchResultJSON struct {
	Organic []struct {
		Title   string `json:"title"`
		Snippet string `json:"snippet"`
	} `json:"organic"`
	PeopleAlsoAsk []struct {
		Question string `json:"question"`
	} `json:"peopleAlsoAsk"`
	RelatedSearches []struct {
		Query string `json:"query"`
	} `json:"relatedSearches"`
	AnswerBox struct {
		Answer  string `json:"answer"`
		Snippet string `json:"snippet"`
	} `json:"answerBox"`
}

// ParseSearchResults turns a raw search blob into a SearchBundle. The
// function is pure and deterministic: the same blob always yields the same
// bundle, so the caller may re-run it freely.
//
// An empty blob means the search found nothing and yields an empty bundle.
// A present but uninterpretable blob (not valid text) fails with
// ErrSearchResultUnparseable. Interpretable text that simply contains no
// candidates yields empty fields, which are valid results.
func ParseSearchResults(raw string) (*SearchBundle, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return &SearchBundle{RelatedConditions: []string{}, SuggestedQuestions: []string{}}, nil
	}

	if !utf8.ValidString(trimmed) || printableRatio(trimmed) < 0.6 {
		return nil, fmt.Errorf("%w: result blob is not readable text", ErrSearchResultUnparseable)
	}

	conditions := newCandidateList()
	questions := newCandidateList()

	var parsed searchResultJSON
	if err := json.Unmarshal([]byte(trimmed), &parsed); err == nil {
		collectFromJSON(&parsed, conditions, questions)
	} else {
		collectFromText(trimmed, conditions, questions)
	}

	return &SearchBundle{
		RelatedConditions:  conditions.items(),
		SuggestedQuestions: questions.items(),
	}, nil
}

func collectFromJSON(parsed *searchResultJSON, conditions, questions *candidateList) {
	for _, o := range parsed.Organic {
		if c := conditionFromTitle(o.Title); c != "" {
			conditions.add(c)
		}
		mineQuestions(o.Snippet, questions)
	}
	for _, q := range parsed.PeopleAlsoAsk {
		questions.add(q.Question)
	}
	for _, r := range parsed.RelatedSearches {
		if isInterrogative(r.Query) {
			questions.add(r.Query)
		} else if c := conditionFromTitle(r.Query); c != "" {
			conditions.add(c)
		}
	}
	mineQuestions(parsed.AnswerBox.Answer, questions)
	mineQuestions(parsed.AnswerBox.Snippet, questions)
}

func collectFromText(text string, conditions, questions *candidateList) {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if c := conditionFromTitle(line); c != "" {
			conditions.add(c)
		}
		mineQuestions(line, questions)
	}
}

// conditionFromTitle extracts a condition candidate from a title-like
// fragment: the head segment before the first separator, kept only when it
// is a short non-interrogative phrase.
func conditionFromTitle(title string) string {
	head := title
	for _, sep := range []string{" - ", " | ", ": "} {
		if idx := strings.Index(head, sep); idx != -1 {
			head = head[:idx]
		}
	}
	head = strings.TrimSpace(head)
	if head == "" || isInterrogative(head) {
		return ""
	}
	if n := len(strings.Fields(head)); n < 1 || n > 8 {
		return ""
	}
	return head
}

// mineQuestions collects the interrogative sentences in text.
func mineQuestions(text string, questions *candidateList) {
	segStart := 0
	for i, r := range text {
		switch r {
		case '.', '!', '?':
			seg := strings.TrimSpace(text[segStart : i+1])
			if r == '?' && len(seg) > 1 {
				questions.add(seg)
			}
			segStart = i + 1
		}
	}
}

func isInterrogative(s string) bool {
	return strings.HasSuffix(strings.TrimSpace(s), "?")
}

// printableRatio reports the fraction of printable runes in s.
func printableRatio(s string) float64 {
	printable, total := 0, 0
	for _, r := range s {
		total++
		if unicode.IsPrint(r) || unicode.IsSpace(r) {
			printable++
		}
	}
	if total == 0 {
		return 1
	}
	return float64(printable) / float64(total)
}

// candidateList deduplicates case-insensitively while preserving the first
// occurrence's order and casing.
type candidateList struct {
	seen map[string]bool
	list []string
}

func newCandidateList() *candidateList {
	return &candidateList{seen: make(map[string]bool)}
}

func (l *candidateList) add(s string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return
	}
	key := strings.ToLower(s)
	if l.seen[key] {
		return
	}
	l.seen[key] = true
	l.list = append(l.list, s)
}

func (l *candidateList) items() []string {
	if l.list == nil {
		return []string{}
	}
	return l.list
}
