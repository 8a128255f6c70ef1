package pipeline

import (
	"context"
	"errors"
	"fmt"
)

// ExtractionState is the phase of the symptom extraction task.
type ExtractionState int

const (
	// Collecting means the communicator is working on the patient's input.
	Collecting ExtractionState = iota
	// AwaitingClarification means a question is pending with the patient.
	AwaitingClarification
	// Finalized means a non-empty symptom set has been produced.
	Finalized
)

func (s ExtractionState) String() string {
	switch s {
	case Collecting:
		return "collecting"
	case AwaitingClarification:
		return "awaiting_clarification"
	case Finalized:
		return "finalized"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// ExchangeResult is one communicator exchange: either a finalized candidate
// symptom list or a follow-up question, never both.
type ExchangeResult struct {
	Symptoms []string
	Question string
}

// Communicator is the conversational capability the extraction task runs on.
// Both calls are fallible and may take as long as one model round trip.
type Communicator interface {
	// Extract processes the patient's initial description.
	Extract(ctx context.Context, description string) (ExchangeResult, error)
	// Clarify feeds the patient's answer to the pending question back in.
	Clarify(ctx context.Context, answer string) (ExchangeResult, error)
}

// fallbackQuestion is asked when the communicator neither finalized symptoms
// nor supplied its own question. Finalizing empty is forbidden, so the round
// trip continues.
const fallbackQuestion = "Can you describe your main symptom in a bit more detail?"

// ExtractionOutcome reports where an extraction advance landed: a pending
// question when suspended, or the finished set when finalized.
type ExtractionOutcome struct {
	State    ExtractionState
	Question string      // set when State == AwaitingClarification
	Set      *SymptomSet // set when State == Finalized
}

// Extraction is the suspend/resume state machine for the symptom extraction
// task. It holds no goroutine while suspended; Resume re-enters with the
// accumulated Q&A log intact. Not safe for concurrent use; the registry
// serializes access per session.
type Extraction struct {
	communicator    Communicator
	state           ExtractionState
	pendingQuestion string
	clarifications  []Clarification
}

// NewExtraction creates an extraction in the Collecting state.
func NewExtraction(communicator Communicator) *Extraction {
	return &Extraction{communicator: communicator, state: Collecting}
}

// State returns the current phase.
func (e *Extraction) State() ExtractionState {
	return e.state
}

// Clarifications returns the accumulated question/answer log.
func (e *Extraction) Clarifications() []Clarification {
	out := make([]Clarification, len(e.clarifications))
	copy(out, e.clarifications)
	return out
}

// PendingQuestion returns the question awaiting an answer, if any.
func (e *Extraction) PendingQuestion() string {
	return e.pendingQuestion
}

// Start runs the first exchange on the patient's description.
func (e *Extraction) Start(ctx context.Context, description string) (ExtractionOutcome, error) {
	if e.state != Collecting {
		return ExtractionOutcome{}, fmt.Errorf("extraction already started (state %s)", e.state)
	}

	result, err := e.communicator.Extract(ctx, description)
	if err != nil {
		return ExtractionOutcome{}, wrapExchangeErr(err)
	}

	return e.advance(result), nil
}

// Resume feeds the patient's answer to the pending question back into the
// communicator. Only valid while awaiting clarification.
func (e *Extraction) Resume(ctx context.Context, answer string) (ExtractionOutcome, error) {
	if e.state != AwaitingClarification {
		return ExtractionOutcome{}, fmt.Errorf("extraction is not awaiting clarification (state %s)", e.state)
	}

	e.clarifications = append(e.clarifications, Clarification{
		Question: e.pendingQuestion,
		Answer:   answer,
	})
	e.pendingQuestion = ""
	e.state = Collecting

	result, err := e.communicator.Clarify(ctx, answer)
	if err != nil {
		return ExtractionOutcome{}, wrapExchangeErr(err)
	}

	return e.advance(result), nil
}

// wrapExchangeErr classifies a communicator failure. Schema violations keep
// their own identity; everything else means the capability was unavailable.
func wrapExchangeErr(err error) error {
	if errors.Is(err, ErrMalformedTaskOutput) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrExtractionUnavailable, err)
}

// advance applies one exchange result to the state machine. An empty
// candidate list never finalizes: if the communicator supplied no question
// of its own, the built-in fallback keeps the clarification loop going.
func (e *Extraction) advance(result ExchangeResult) ExtractionOutcome {
	if result.Question != "" {
		e.pendingQuestion = result.Question
		e.state = AwaitingClarification
		return ExtractionOutcome{State: AwaitingClarification, Question: result.Question}
	}

	if len(result.Symptoms) == 0 {
		e.pendingQuestion = fallbackQuestion
		e.state = AwaitingClarification
		return ExtractionOutcome{State: AwaitingClarification, Question: fallbackQuestion}
	}

	e.state = Finalized
	set := &SymptomSet{
		Symptoms:       result.Symptoms,
		Clarifications: e.Clarifications(),
	}
	return ExtractionOutcome{State: Finalized, Set: set}
}
