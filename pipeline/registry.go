package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/aymanh23/searchv2/store"
	"github.com/aymanh23/searchv2/streamers"
)

// pipelineName identifies the two-task intake pipeline in lifecycle events.
const pipelineName = "medical_intake"

// ErrSessionNotFound is returned for unknown session IDs. Sessions belonging
// to a different user are reported the same way.
var ErrSessionNotFound = errors.New("intake session not found")

// CommunicatorFactory builds a fresh conversational capability for one
// intake session. Every session gets its own instance so transcripts never
// leak between patients. The chat handler streams that session's agent
// output and is never nil.
type CommunicatorFactory func(chat streamers.ChatHandler) (Communicator, error)

// UsageReporter is an optional Communicator capability. Communicators backed
// by a metered model implement it so the registry can report what the
// extraction exchange cost once the symptom set is finalized.
type UsageReporter interface {
	Usage() (model string, inputTokens, outputTokens int)
}

// Registry owns the live intake sessions. Each session runs the two-task
// pipeline, symptom extraction followed by condition search, and is
// serialized individually; different sessions advance concurrently.
type Registry struct {
	factory    CommunicatorFactory
	searcher   Searcher
	newHandler func() streamers.PipelineHandler
	bundle     *store.Bundle // optional persistence

	extractTask *Task
	searchTask  *Task

	mu       sync.Mutex
	sessions map[string]*intakeSession
}

// intakeSession is one patient's pipeline run. runMu serializes advances and
// is held across model round trips; mu guards the snapshot fields and is
// held only briefly, so Status never blocks behind a running exchange. Every
// session streams through its own handler instance, so handlers that capture
// the intake ID never see two sessions.
type intakeSession struct {
	id      string
	userID  string
	handler streamers.PipelineHandler

	runMu        sync.Mutex
	extraction   *Extraction
	communicator Communicator

	mu         sync.Mutex
	status     string
	question   string
	questionID string
	set        *SymptomSet
	result     *SearchBundle

	closeOnce sync.Once
}

// NewRegistry creates a registry with no event handler and no persistence.
func NewRegistry(factory CommunicatorFactory, searcher Searcher) *Registry {
	return &Registry{
		factory:     factory,
		searcher:    searcher,
		newHandler:  func() streamers.PipelineHandler { return streamers.NopPipelineHandler{} },
		extractTask: SymptomExtractionTask(),
		searchTask:  ConditionSearchTask(),
		sessions:    make(map[string]*intakeSession),
	}
}

// WithHandler routes every session's pipeline events to the one handler h.
// Suits drivers that run sessions one at a time, like the CLI.
func (r *Registry) WithHandler(h streamers.PipelineHandler) *Registry {
	r.newHandler = func() streamers.PipelineHandler { return h }
	return r
}

// WithHandlerFactory builds a fresh handler per session. Drivers that
// multiplex concurrent intakes use this so handlers that capture the intake
// ID, like the storing decorator, attribute events to the right session.
func (r *Registry) WithHandlerFactory(f func() streamers.PipelineHandler) *Registry {
	r.newHandler = f
	return r
}

// WithStore persists intake records, transcripts and clarification
// questions to b.
func (r *Registry) WithStore(b *store.Bundle) *Registry {
	r.bundle = b
	return r
}

// IntakeUpdate is a point-in-time view of a session, returned by every
// registry operation.
type IntakeUpdate struct {
	SessionID string        `json:"sessionId"`
	Status    string        `json:"status"`
	Question  string        `json:"question,omitempty"`
	Symptoms  *SymptomSet   `json:"symptoms,omitempty"`
	Result    *SearchBundle `json:"result,omitempty"`
}

// Start opens a session for the user and runs the first extraction exchange
// on the patient's description. The returned update carries either a
// clarification question or, when the description was already unambiguous,
// the completed search result.
func (r *Registry) Start(ctx context.Context, userID, description string) (*IntakeUpdate, error) {
	handler := r.newHandler()
	chat := handler.AgentHandler(r.extractTask.Name, r.extractTask.AgentName)
	communicator, err := r.factory(chat)
	if err != nil {
		return nil, fmt.Errorf("creating communicator: %w", err)
	}

	var id string
	if r.bundle != nil {
		id, err = r.bundle.Intakes.CreateIntake(userID, description)
		if err != nil {
			r.closeCommunicator(communicator)
			return nil, fmt.Errorf("recording intake: %w", err)
		}
	} else {
		id = uuid.NewString()
	}

	s := &intakeSession{
		id:           id,
		userID:       userID,
		handler:      handler,
		status:       store.IntakeStatusCollecting,
		extraction:   NewExtraction(communicator),
		communicator: communicator,
	}

	r.mu.Lock()
	r.sessions[id] = s
	r.mu.Unlock()

	handler.PipelineStarted(pipelineName, id, 2)
	handler.TaskStarted(r.extractTask.Name, r.extractTask.Description)
	if r.bundle != nil {
		_ = r.bundle.Intakes.AppendMessage(id, "patient", description)
	}

	s.runMu.Lock()
	defer s.runMu.Unlock()

	outcome, err := s.extraction.Start(ctx, description)
	if err != nil {
		return nil, r.fail(s, r.extractTask.Name, err)
	}
	return r.apply(ctx, s, outcome)
}

// Answer feeds the patient's answer to the pending clarification question
// back into the session and advances the pipeline.
func (r *Registry) Answer(ctx context.Context, userID, sessionID, answer string) (*IntakeUpdate, error) {
	s, err := r.lookup(userID, sessionID)
	if err != nil {
		return nil, err
	}

	s.runMu.Lock()
	defer s.runMu.Unlock()

	s.mu.Lock()
	status := s.status
	questionID := s.questionID
	s.mu.Unlock()

	if status != store.IntakeStatusAwaiting {
		return nil, fmt.Errorf("intake session %q is not awaiting an answer (status %s)", sessionID, status)
	}

	if r.bundle != nil {
		if questionID != "" {
			_ = r.bundle.Questions.SetAnswer(questionID, answer)
		}
		_ = r.bundle.Intakes.AppendMessage(s.id, "patient", answer)
		_ = r.bundle.Intakes.UpdateIntakeStatus(s.id, store.IntakeStatusCollecting)
	}
	s.mu.Lock()
	s.status = store.IntakeStatusCollecting
	s.question = ""
	s.questionID = ""
	s.mu.Unlock()

	s.handler.QuestionAnswered(r.extractTask.Name, answer)

	outcome, err := s.extraction.Resume(ctx, answer)
	if err != nil {
		return nil, r.fail(s, r.extractTask.Name, err)
	}
	return r.apply(ctx, s, outcome)
}

// Status reports the session's current state without advancing it.
func (r *Registry) Status(userID, sessionID string) (*IntakeUpdate, error) {
	s, err := r.lookup(userID, sessionID)
	if err != nil {
		return nil, err
	}
	return r.snapshot(s), nil
}

// Cancel discards the session. Nothing is resumed later; the stored record
// is marked cancelled unless the session already reached a terminal status.
func (r *Registry) Cancel(userID, sessionID string) error {
	r.mu.Lock()
	s, ok := r.sessions[sessionID]
	if ok && s.userID == userID {
		delete(r.sessions, sessionID)
	} else {
		ok = false
	}
	r.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}

	s.mu.Lock()
	terminal := s.status == store.IntakeStatusCompleted
	s.mu.Unlock()

	if r.bundle != nil && !terminal {
		_ = r.bundle.Intakes.UpdateIntakeStatus(sessionID, store.IntakeStatusCancelled)
	}
	r.closeSession(s)
	return nil
}

// Close discards every live session. Used when the owning driver, a
// websocket connection or a CLI run, goes away.
func (r *Registry) Close() {
	r.mu.Lock()
	sessions := make([]*intakeSession, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.sessions = make(map[string]*intakeSession)
	r.mu.Unlock()

	for _, s := range sessions {
		s.mu.Lock()
		terminal := s.status == store.IntakeStatusCompleted
		s.mu.Unlock()
		if r.bundle != nil && !terminal {
			_ = r.bundle.Intakes.UpdateIntakeStatus(s.id, store.IntakeStatusCancelled)
		}
		r.closeSession(s)
	}
}

// apply moves the session according to where the extraction advance landed:
// suspend on a question, or finalize and continue into condition search.
func (r *Registry) apply(ctx context.Context, s *intakeSession, outcome ExtractionOutcome) (*IntakeUpdate, error) {
	switch outcome.State {
	case AwaitingClarification:
		var questionID string
		if r.bundle != nil {
			questionID, _ = r.bundle.Questions.StoreQuestion(s.id, outcome.Question)
			_ = r.bundle.Intakes.AppendMessage(s.id, "agent", outcome.Question)
			_ = r.bundle.Intakes.UpdateIntakeStatus(s.id, store.IntakeStatusAwaiting)
		}
		s.mu.Lock()
		s.status = store.IntakeStatusAwaiting
		s.question = outcome.Question
		s.questionID = questionID
		s.mu.Unlock()

		s.handler.QuestionAsked(r.extractTask.Name, outcome.Question)
		return r.snapshot(s), nil

	case Finalized:
		return r.runSearch(ctx, s, outcome.Set)

	default:
		return nil, r.fail(s, r.extractTask.Name, fmt.Errorf("unexpected extraction state %s", outcome.State))
	}
}

// runSearch executes the condition search task on the finalized symptom set
// and completes the pipeline.
func (r *Registry) runSearch(ctx context.Context, s *intakeSession, set *SymptomSet) (*IntakeUpdate, error) {
	symptomsJSON, _ := json.Marshal(set)
	if r.bundle != nil {
		_ = r.bundle.Intakes.SetSymptoms(s.id, string(symptomsJSON))
		_ = r.bundle.Intakes.UpdateIntakeStatus(s.id, store.IntakeStatusSearching)
	}
	s.mu.Lock()
	s.status = store.IntakeStatusSearching
	s.question = ""
	s.set = set
	s.mu.Unlock()

	s.handler.TaskCompleted(r.extractTask.Name, fmt.Sprintf("%d symptoms identified", len(set.Symptoms)))
	if rep, ok := s.communicator.(UsageReporter); ok {
		if model, in, out := rep.Usage(); in+out > 0 {
			s.handler.UsageReported(r.extractTask.Name, model, in, out)
		}
	}
	s.handler.TaskStarted(r.searchTask.Name, r.searchTask.Description)

	result, err := NewConditionSearch(r.searcher, s.handler).Run(ctx, set)
	if err != nil {
		return nil, r.fail(s, r.searchTask.Name, err)
	}

	resultJSON, _ := json.Marshal(result)
	if r.bundle != nil {
		_ = r.bundle.Intakes.SetBundle(s.id, string(resultJSON))
		_ = r.bundle.Intakes.UpdateIntakeStatus(s.id, store.IntakeStatusCompleted)
	}
	s.mu.Lock()
	s.status = store.IntakeStatusCompleted
	s.result = result
	s.mu.Unlock()

	s.handler.TaskCompleted(r.searchTask.Name, fmt.Sprintf("%d related conditions, %d suggested questions",
		len(result.RelatedConditions), len(result.SuggestedQuestions)))
	s.handler.PipelineCompleted(pipelineName)
	r.closeSession(s)
	return r.snapshot(s), nil
}

// fail records the error and returns it unmodified. A failed session is
// discarded, matching the no-retry contract; the stored record keeps the
// failure for audit.
func (r *Registry) fail(s *intakeSession, taskName string, err error) error {
	r.mu.Lock()
	delete(r.sessions, s.id)
	r.mu.Unlock()

	if r.bundle != nil {
		// Store writes are best effort; persistence trouble must not mask
		// the pipeline error.
		_ = r.bundle.Intakes.SetError(s.id, err.Error())
		_ = r.bundle.Intakes.UpdateIntakeStatus(s.id, store.IntakeStatusFailed)
	}
	s.handler.TaskFailed(taskName, err)
	s.handler.PipelineFailed(pipelineName, err)
	r.closeSession(s)
	return err
}

func (r *Registry) lookup(userID, sessionID string) (*intakeSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok || s.userID != userID {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (r *Registry) snapshot(s *intakeSession) *IntakeUpdate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &IntakeUpdate{
		SessionID: s.id,
		Status:    s.status,
		Question:  s.question,
		Symptoms:  s.set,
		Result:    s.result,
	}
}

// closeSession releases the session's communicator exactly once, however
// many of the completion, failure and cancel paths reach it.
func (r *Registry) closeSession(s *intakeSession) {
	s.closeOnce.Do(func() {
		r.closeCommunicator(s.communicator)
	})
}

func (r *Registry) closeCommunicator(c Communicator) {
	if closer, ok := c.(interface{ Close() }); ok {
		closer.Close()
	}
}
