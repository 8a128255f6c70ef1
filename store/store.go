package store

import (
	"time"
)

// Bundle holds all stores for tracking intake sessions.
type Bundle struct {
	Intakes   IntakeStore
	Questions QuestionStore
	Reports   ReportStore
	Events    EventStore
	closer    func() error
}

// Close cleans up the bundle resources
func (b *Bundle) Close() error {
	if b.closer != nil {
		return b.closer()
	}
	return nil
}

// IntakeStore tracks intake sessions, their lifecycle and transcript
type IntakeStore interface {
	CreateIntake(userID, description string) (id string, err error)
	UpdateIntakeStatus(id, status string) error
	SetSymptoms(id string, symptomsJSON string) error
	SetBundle(id string, bundleJSON string) error
	SetError(id string, errMsg string) error
	GetIntake(id string) (*IntakeRecord, error)
	ListIntakes(userID string, limit int) ([]IntakeRecord, error)
	AppendMessage(intakeID, role, content string) error
	GetMessages(intakeID string) ([]IntakeMessage, error)
}

// Intake lifecycle statuses
const (
	IntakeStatusCollecting   = "collecting"
	IntakeStatusAwaiting     = "awaiting_clarification"
	IntakeStatusSearching    = "searching"
	IntakeStatusCompleted    = "completed"
	IntakeStatusFailed       = "failed"
	IntakeStatusCancelled    = "cancelled"
)

// IntakeRecord represents one intake session
type IntakeRecord struct {
	ID           string     `json:"id"`
	UserID       string     `json:"userId"`
	Description  string     `json:"description"`
	Status       string     `json:"status"`
	SymptomsJSON *string    `json:"symptomsJson,omitempty"`
	BundleJSON   *string    `json:"bundleJson,omitempty"`
	Error        *string    `json:"error,omitempty"`
	StartedAt    time.Time  `json:"startedAt"`
	FinishedAt   *time.Time `json:"finishedAt,omitempty"`
}

// IntakeMessage represents a single message in an intake transcript
type IntakeMessage struct {
	ID        int       `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// QuestionStore tracks clarification questions and their answers.
// The ready flag flips when an answer arrives, which lets a suspended
// extraction poll for resumption without holding a thread.
type QuestionStore interface {
	StoreQuestion(intakeID, question string) (id string, err error)
	SetAnswer(id, answer string) error
	GetAnswer(id string) (answer string, ready bool, err error)
	ListQuestions(intakeID string) ([]QuestionInfo, error)
}

// QuestionInfo describes a stored clarification question
type QuestionInfo struct {
	ID        string `json:"id"`
	Question  string `json:"question"`
	Answer    string `json:"answer,omitempty"`
	HasAnswer bool   `json:"hasAnswer"`
}

// ReportStore persists generated intake reports
type ReportStore interface {
	SaveReport(intakeID, userID, markdown string) (id string, err error)
	GetReport(id string) (*ReportRecord, error)
	ListReports(userID string, limit int) ([]ReportRecord, error)
}

// ReportRecord represents a generated intake report
type ReportRecord struct {
	ID        string    `json:"id"`
	IntakeID  string    `json:"intakeId"`
	UserID    string    `json:"userId"`
	Markdown  string    `json:"markdown"`
	CreatedAt time.Time `json:"createdAt"`
}

// EventStore records pipeline lifecycle events for audit and replay
type EventStore interface {
	AppendEvent(intakeID, eventType, payloadJSON string) error
	GetEvents(intakeID string) ([]IntakeEvent, error)
}

// IntakeEvent is one recorded pipeline event
type IntakeEvent struct {
	ID          int64     `json:"id"`
	IntakeID    string    `json:"intakeId"`
	Type        string    `json:"type"`
	PayloadJSON string    `json:"payloadJson,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}
