package protocol

// Client to server requests.
const (
	TypeStartIntake MessageType = "start_intake"
	TypeAnswer      MessageType = "answer"
	TypeStatus      MessageType = "status"
	TypeCancel      MessageType = "cancel"
)

// Server to client responses and events. Requests that advance the pipeline
// are answered with an intake_update once the advance lands; granular
// pipeline_event messages stream in the meantime.
const (
	TypeIntakeUpdate  MessageType = "intake_update"
	TypeCancelAck     MessageType = "cancel_ack"
	TypePipelineEvent MessageType = "pipeline_event"
	TypeError         MessageType = "error"
)

// StartIntakePayload opens a new intake session for a patient description.
// UserID matters only on the HTTP surface; a websocket connection is already
// scoped to its user.
type StartIntakePayload struct {
	UserID      string `json:"user_id,omitempty"`
	Description string `json:"description"`
}

// AnswerPayload delivers the patient's answer to a pending clarification.
// UserID matters only on the HTTP surface; a websocket connection is already
// scoped to its user.
type AnswerPayload struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id,omitempty"`
	Answer    string `json:"answer"`
}

// StatusPayload asks for the current snapshot of a session.
type StatusPayload struct {
	SessionID string `json:"session_id"`
}

// CancelPayload discards a session.
type CancelPayload struct {
	SessionID string `json:"session_id"`
}

// CancelAckPayload confirms a cancel request.
type CancelAckPayload struct {
	SessionID string `json:"session_id"`
	Cancelled bool   `json:"cancelled"`
}

// PipelineEventPayload wraps one pipeline lifecycle event for the wire. The
// event types and data shapes match what the event store records.
type PipelineEventPayload struct {
	IntakeID  string      `json:"intake_id"`
	EventType MessageType `json:"event_type"`
	Data      any         `json:"data,omitempty"`
}

// IntakeUpdatePayload is the session snapshot sent after every pipeline
// advance and returned for status requests. Question is set while the
// session waits on the patient; Symptoms and Result appear as the pipeline
// produces them; Error is set only when the status is failed.
type IntakeUpdatePayload struct {
	SessionID string            `json:"session_id"`
	Status    string            `json:"status"`
	Question  string            `json:"question,omitempty"`
	Symptoms  *SymptomSetInfo   `json:"symptoms,omitempty"`
	Result    *SearchBundleInfo `json:"result,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// SymptomSetInfo mirrors the finalized symptom set on the wire.
type SymptomSetInfo struct {
	Symptoms       []string            `json:"symptoms"`
	Clarifications []ClarificationInfo `json:"clarifications,omitempty"`
}

// ClarificationInfo is one question and answer exchanged during extraction.
type ClarificationInfo struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// SearchBundleInfo mirrors the condition search result on the wire.
type SearchBundleInfo struct {
	RelatedConditions  []string `json:"related_conditions"`
	SuggestedQuestions []string `json:"suggested_questions"`
}

// ErrorPayload reports a failed request.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
