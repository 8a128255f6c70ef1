package store

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// NewMemoryBundle creates a Bundle backed entirely by in-memory stores
func NewMemoryBundle() *Bundle {
	return &Bundle{
		Intakes:   &MemoryIntakeStore{intakes: make(map[string]*IntakeRecord), messages: make(map[string][]IntakeMessage)},
		Questions: &MemoryQuestionStore{questions: make(map[string][]*memQuestionEntry)},
		Reports:   &MemoryReportStore{reports: make(map[string]*ReportRecord)},
		Events:    &MemoryEventStore{events: make(map[string][]IntakeEvent)},
	}
}

// =============================================================================
// MemoryIntakeStore
// =============================================================================

type MemoryIntakeStore struct {
	mu       sync.Mutex
	intakes  map[string]*IntakeRecord
	messages map[string][]IntakeMessage
}

func (s *MemoryIntakeStore) CreateIntake(userID, description string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	s.intakes[id] = &IntakeRecord{
		ID:          id,
		UserID:      userID,
		Description: description,
		Status:      IntakeStatusCollecting,
		StartedAt:   time.Now(),
	}
	return id, nil
}

func (s *MemoryIntakeStore) UpdateIntakeStatus(id, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.intakes[id]
	if !ok {
		return fmt.Errorf("intake %s not found", id)
	}
	rec.Status = status
	if status == IntakeStatusCompleted || status == IntakeStatusFailed || status == IntakeStatusCancelled {
		now := time.Now()
		rec.FinishedAt = &now
	}
	return nil
}

func (s *MemoryIntakeStore) SetSymptoms(id string, symptomsJSON string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.intakes[id]
	if !ok {
		return fmt.Errorf("intake %s not found", id)
	}
	rec.SymptomsJSON = &symptomsJSON
	return nil
}

func (s *MemoryIntakeStore) SetBundle(id string, bundleJSON string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.intakes[id]
	if !ok {
		return fmt.Errorf("intake %s not found", id)
	}
	rec.BundleJSON = &bundleJSON
	return nil
}

func (s *MemoryIntakeStore) SetError(id string, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.intakes[id]
	if !ok {
		return fmt.Errorf("intake %s not found", id)
	}
	rec.Error = &errMsg
	return nil
}

func (s *MemoryIntakeStore) GetIntake(id string) (*IntakeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.intakes[id]
	if !ok {
		return nil, fmt.Errorf("intake %s not found", id)
	}
	copied := *rec
	return &copied, nil
}

func (s *MemoryIntakeStore) ListIntakes(userID string, limit int) ([]IntakeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var records []IntakeRecord
	for _, rec := range s.intakes {
		if userID != "" && rec.UserID != userID {
			continue
		}
		records = append(records, *rec)
	}

	// Newest first
	sort.Slice(records, func(i, j int) bool {
		return records[i].StartedAt.After(records[j].StartedAt)
	})

	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (s *MemoryIntakeStore) AppendMessage(intakeID, role, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.intakes[intakeID]; !ok {
		return fmt.Errorf("intake %s not found", intakeID)
	}
	s.messages[intakeID] = append(s.messages[intakeID], IntakeMessage{
		ID:        len(s.messages[intakeID]) + 1,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	})
	return nil
}

func (s *MemoryIntakeStore) GetMessages(intakeID string) ([]IntakeMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := make([]IntakeMessage, len(s.messages[intakeID]))
	copy(msgs, s.messages[intakeID])
	return msgs, nil
}

// =============================================================================
// MemoryQuestionStore
// =============================================================================

type memQuestionEntry struct {
	id       string
	intakeID string
	question string
	answer   string
	ready    bool
}

type MemoryQuestionStore struct {
	mu        sync.Mutex
	questions map[string][]*memQuestionEntry // keyed by intakeID
}

func (s *MemoryQuestionStore) StoreQuestion(intakeID, question string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	entry := &memQuestionEntry{
		id:       id,
		intakeID: intakeID,
		question: question,
	}
	s.questions[intakeID] = append(s.questions[intakeID], entry)
	return id, nil
}

func (s *MemoryQuestionStore) SetAnswer(id, answer string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, entries := range s.questions {
		for _, e := range entries {
			if e.id == id {
				e.answer = answer
				e.ready = true
				return nil
			}
		}
	}
	return fmt.Errorf("question %s not found", id)
}

func (s *MemoryQuestionStore) GetAnswer(id string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, entries := range s.questions {
		for _, e := range entries {
			if e.id == id {
				return e.answer, e.ready, nil
			}
		}
	}
	return "", false, fmt.Errorf("question %s not found", id)
}

func (s *MemoryQuestionStore) ListQuestions(intakeID string) ([]QuestionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var infos []QuestionInfo
	for _, e := range s.questions[intakeID] {
		infos = append(infos, QuestionInfo{
			ID:        e.id,
			Question:  e.question,
			Answer:    e.answer,
			HasAnswer: e.ready,
		})
	}
	return infos, nil
}

// =============================================================================
// MemoryReportStore
// =============================================================================

type MemoryReportStore struct {
	mu      sync.Mutex
	reports map[string]*ReportRecord
}

func (s *MemoryReportStore) SaveReport(intakeID, userID, markdown string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	s.reports[id] = &ReportRecord{
		ID:        id,
		IntakeID:  intakeID,
		UserID:    userID,
		Markdown:  markdown,
		CreatedAt: time.Now(),
	}
	return id, nil
}

func (s *MemoryReportStore) GetReport(id string) (*ReportRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.reports[id]
	if !ok {
		return nil, fmt.Errorf("report %s not found", id)
	}
	copied := *rec
	return &copied, nil
}

func (s *MemoryReportStore) ListReports(userID string, limit int) ([]ReportRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var records []ReportRecord
	for _, rec := range s.reports {
		if userID != "" && rec.UserID != userID {
			continue
		}
		records = append(records, *rec)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})

	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// =============================================================================
// MemoryEventStore
// =============================================================================

type MemoryEventStore struct {
	mu     sync.Mutex
	events map[string][]IntakeEvent
	nextID int64
}

func (s *MemoryEventStore) AppendEvent(intakeID, eventType, payloadJSON string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	s.events[intakeID] = append(s.events[intakeID], IntakeEvent{
		ID:          s.nextID,
		IntakeID:    intakeID,
		Type:        eventType,
		PayloadJSON: payloadJSON,
		CreatedAt:   time.Now(),
	})
	return nil
}

func (s *MemoryEventStore) GetEvents(intakeID string) ([]IntakeEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	events := make([]IntakeEvent, len(s.events[intakeID]))
	copy(events, s.events[intakeID])
	return events, nil
}
