package pipeline_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/aymanh23/searchv2/pipeline"
	"github.com/aymanh23/searchv2/store"
	"github.com/aymanh23/searchv2/streamers"
)

var _ = Describe("Registry", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	factoryFor := func(comm pipeline.Communicator) pipeline.CommunicatorFactory {
		return func(chat streamers.ChatHandler) (pipeline.Communicator, error) {
			Expect(chat).NotTo(BeNil())
			return comm, nil
		}
	}

	It("runs straight through to completion when no clarification is needed", func() {
		comm := &scriptedCommunicator{script: []exchangeStep{
			{result: pipeline.ExchangeResult{Symptoms: []string{"headache", "sensitivity to light"}}},
		}}
		searcher := &recordingSearcher{result: serperFixture}
		reg := pipeline.NewRegistry(factoryFor(comm), searcher)

		update, err := reg.Start(ctx, "user-1", "I have a bad headache and sensitivity to light")
		Expect(err).NotTo(HaveOccurred())
		Expect(update.SessionID).NotTo(BeEmpty())
		Expect(update.Status).To(Equal(store.IntakeStatusCompleted))
		Expect(update.Symptoms.Symptoms).To(Equal([]string{"headache", "sensitivity to light"}))
		Expect(update.Result.RelatedConditions).To(ContainElement("Migraine"))
		Expect(searcher.queries).To(Equal([]string{"headache, sensitivity to light"}))
		Expect(comm.closed).To(BeTrue())
	})

	It("suspends on a clarification question and resumes through the answer", func() {
		comm := &scriptedCommunicator{script: []exchangeStep{
			{result: pipeline.ExchangeResult{Question: "Where is the pain?"}},
			{result: pipeline.ExchangeResult{Symptoms: []string{"knee pain"}}},
		}}
		reg := pipeline.NewRegistry(factoryFor(comm), &recordingSearcher{result: ""})

		update, err := reg.Start(ctx, "user-1", "it hurts")
		Expect(err).NotTo(HaveOccurred())
		Expect(update.Status).To(Equal(store.IntakeStatusAwaiting))
		Expect(update.Question).To(Equal("Where is the pain?"))
		Expect(update.Result).To(BeNil())

		update, err = reg.Answer(ctx, "user-1", update.SessionID, "my knee")
		Expect(err).NotTo(HaveOccurred())
		Expect(update.Status).To(Equal(store.IntakeStatusCompleted))
		Expect(update.Symptoms.Clarifications).To(Equal([]pipeline.Clarification{
			{Question: "Where is the pain?", Answer: "my knee"},
		}))
		Expect(update.Result).NotTo(BeNil())
	})

	It("persists the full intake lifecycle to the store", func() {
		comm := &scriptedCommunicator{script: []exchangeStep{
			{result: pipeline.ExchangeResult{Question: "How long have you had it?"}},
			{result: pipeline.ExchangeResult{Symptoms: []string{"stomach pain"}}},
		}}
		bundle := store.NewMemoryBundle()
		reg := pipeline.NewRegistry(factoryFor(comm), &recordingSearcher{result: serperFixture}).WithStore(bundle)

		update, err := reg.Start(ctx, "user-1", "my stomach hurts")
		Expect(err).NotTo(HaveOccurred())
		_, err = reg.Answer(ctx, "user-1", update.SessionID, "since yesterday")
		Expect(err).NotTo(HaveOccurred())

		rec, err := bundle.Intakes.GetIntake(update.SessionID)
		Expect(err).NotTo(HaveOccurred())
		Expect(rec.Status).To(Equal(store.IntakeStatusCompleted))
		Expect(rec.SymptomsJSON).NotTo(BeNil())
		Expect(*rec.SymptomsJSON).To(ContainSubstring("stomach pain"))
		Expect(rec.BundleJSON).NotTo(BeNil())
		Expect(*rec.BundleJSON).To(ContainSubstring("Migraine"))

		messages, err := bundle.Intakes.GetMessages(update.SessionID)
		Expect(err).NotTo(HaveOccurred())
		Expect(messages).To(HaveLen(3))
		Expect(messages[0].Role).To(Equal("patient"))
		Expect(messages[0].Content).To(Equal("my stomach hurts"))
		Expect(messages[1].Role).To(Equal("agent"))
		Expect(messages[1].Content).To(Equal("How long have you had it?"))
		Expect(messages[2].Role).To(Equal("patient"))
		Expect(messages[2].Content).To(Equal("since yesterday"))

		questions, err := bundle.Questions.ListQuestions(update.SessionID)
		Expect(err).NotTo(HaveOccurred())
		Expect(questions).To(HaveLen(1))
		Expect(questions[0].Question).To(Equal("How long have you had it?"))
		Expect(questions[0].HasAnswer).To(BeTrue())
		Expect(questions[0].Answer).To(Equal("since yesterday"))
	})

	It("isolates sessions per user", func() {
		comm := &scriptedCommunicator{script: []exchangeStep{
			{result: pipeline.ExchangeResult{Question: "Where?"}},
		}}
		reg := pipeline.NewRegistry(factoryFor(comm), &recordingSearcher{})

		update, err := reg.Start(ctx, "user-a", "pain")
		Expect(err).NotTo(HaveOccurred())

		_, err = reg.Status("user-b", update.SessionID)
		Expect(err).To(MatchError(pipeline.ErrSessionNotFound))
		_, err = reg.Answer(ctx, "user-b", update.SessionID, "everywhere")
		Expect(err).To(MatchError(pipeline.ErrSessionNotFound))
		Expect(reg.Cancel("user-b", update.SessionID)).To(MatchError(pipeline.ErrSessionNotFound))

		status, err := reg.Status("user-a", update.SessionID)
		Expect(err).NotTo(HaveOccurred())
		Expect(status.Status).To(Equal(store.IntakeStatusAwaiting))
	})

	It("discards the session on cancel", func() {
		comm := &scriptedCommunicator{script: []exchangeStep{
			{result: pipeline.ExchangeResult{Question: "Where?"}},
		}}
		bundle := store.NewMemoryBundle()
		reg := pipeline.NewRegistry(factoryFor(comm), &recordingSearcher{}).WithStore(bundle)

		update, err := reg.Start(ctx, "user-1", "pain")
		Expect(err).NotTo(HaveOccurred())

		Expect(reg.Cancel("user-1", update.SessionID)).To(Succeed())
		Expect(comm.closed).To(BeTrue())

		_, err = reg.Status("user-1", update.SessionID)
		Expect(err).To(MatchError(pipeline.ErrSessionNotFound))

		rec, err := bundle.Intakes.GetIntake(update.SessionID)
		Expect(err).NotTo(HaveOccurred())
		Expect(rec.Status).To(Equal(store.IntakeStatusCancelled))
	})

	It("records an extraction failure and discards the session", func() {
		comm := &scriptedCommunicator{script: []exchangeStep{
			{err: errors.New("model down")},
		}}
		bundle := store.NewMemoryBundle()
		reg := pipeline.NewRegistry(factoryFor(comm), &recordingSearcher{}).WithStore(bundle)

		update, err := reg.Start(ctx, "user-1", "dizzy")
		Expect(err).To(MatchError(pipeline.ErrExtractionUnavailable))
		Expect(update).To(BeNil())
		Expect(comm.closed).To(BeTrue())

		recs, err := bundle.Intakes.ListIntakes("user-1", 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(recs).To(HaveLen(1))
		Expect(recs[0].Status).To(Equal(store.IntakeStatusFailed))
		Expect(recs[0].Error).NotTo(BeNil())
		Expect(*recs[0].Error).To(ContainSubstring("model down"))
	})

	It("propagates a search failure unmodified and fails the intake", func() {
		comm := &scriptedCommunicator{script: []exchangeStep{
			{result: pipeline.ExchangeResult{Symptoms: []string{"cough"}}},
		}}
		errQuota := errors.New("quota exceeded")
		bundle := store.NewMemoryBundle()
		reg := pipeline.NewRegistry(factoryFor(comm), &recordingSearcher{err: errQuota}).WithStore(bundle)

		_, err := reg.Start(ctx, "user-1", "coughing a lot")
		Expect(err).To(BeIdenticalTo(errQuota))

		recs, err := bundle.Intakes.ListIntakes("user-1", 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(recs).To(HaveLen(1))
		Expect(recs[0].Status).To(Equal(store.IntakeStatusFailed))
	})

	It("rejects an answer when the session is not awaiting one", func() {
		comm := &scriptedCommunicator{script: []exchangeStep{
			{result: pipeline.ExchangeResult{Symptoms: []string{"cough"}}},
		}}
		reg := pipeline.NewRegistry(factoryFor(comm), &recordingSearcher{result: ""})

		update, err := reg.Start(ctx, "user-1", "coughing")
		Expect(err).NotTo(HaveOccurred())
		Expect(update.Status).To(Equal(store.IntakeStatusCompleted))

		_, err = reg.Answer(ctx, "user-1", update.SessionID, "unprompted")
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("not awaiting an answer"))
	})

	It("fails fast when the communicator cannot be created", func() {
		factory := func(streamers.ChatHandler) (pipeline.Communicator, error) {
			return nil, errors.New("missing API key")
		}
		bundle := store.NewMemoryBundle()
		reg := pipeline.NewRegistry(factory, &recordingSearcher{}).WithStore(bundle)

		_, err := reg.Start(ctx, "user-1", "hello")
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("creating communicator"))

		recs, err := bundle.Intakes.ListIntakes("user-1", 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(recs).To(BeEmpty())
	})

	It("emits the pipeline lifecycle events in order", func() {
		comm := &scriptedCommunicator{script: []exchangeStep{
			{result: pipeline.ExchangeResult{Question: "Where is the pain?"}},
			{result: pipeline.ExchangeResult{Symptoms: []string{"knee pain"}}},
		}}
		handler := &recordingPipelineHandler{}
		reg := pipeline.NewRegistry(factoryFor(comm), &recordingSearcher{result: ""}).WithHandler(handler)

		update, err := reg.Start(ctx, "user-1", "it hurts")
		Expect(err).NotTo(HaveOccurred())
		_, err = reg.Answer(ctx, "user-1", update.SessionID, "my knee")
		Expect(err).NotTo(HaveOccurred())

		Expect(handler.events).To(Equal([]string{
			"agent_handler symptom_extraction/communicator",
			"pipeline_started medical_intake 2",
			"task_started symptom_extraction",
			"question_asked Where is the pain?",
			"question_answered my knee",
			"task_completed symptom_extraction (1 symptoms identified)",
			"task_started condition_search",
			"step_started condition_search/search",
			"step_completed condition_search/search",
			"step_started condition_search/parse",
			"step_completed condition_search/parse",
			"task_completed condition_search (0 related conditions, 0 suggested questions)",
			"pipeline_completed medical_intake",
		}))
	})

	It("reports extraction usage when the communicator is metered", func() {
		comm := &meteredCommunicator{
			scriptedCommunicator: scriptedCommunicator{script: []exchangeStep{
				{result: pipeline.ExchangeResult{Symptoms: []string{"dry cough"}}},
			}},
			model:        "claude-sonnet-4-20250514",
			inputTokens:  1200,
			outputTokens: 300,
		}
		handler := &recordingPipelineHandler{}
		reg := pipeline.NewRegistry(factoryFor(comm), &recordingSearcher{result: ""}).WithHandler(handler)

		_, err := reg.Start(ctx, "user-1", "dry cough for a week")
		Expect(err).NotTo(HaveOccurred())

		// Usage lands between the extraction task finishing and the search
		// task starting.
		Expect(handler.events).To(ContainElement("usage_reported claude-sonnet-4-20250514 1200/300"))
		idx := indexOf(handler.events, "usage_reported claude-sonnet-4-20250514 1200/300")
		Expect(handler.events[idx-1]).To(Equal("task_completed symptom_extraction (1 symptoms identified)"))
		Expect(handler.events[idx+1]).To(Equal("task_started condition_search"))
	})

	It("advances different users' sessions independently", func() {
		commA := &scriptedCommunicator{script: []exchangeStep{
			{result: pipeline.ExchangeResult{Question: "Where?"}},
			{result: pipeline.ExchangeResult{Symptoms: []string{"back pain"}}},
		}}
		commB := &scriptedCommunicator{script: []exchangeStep{
			{result: pipeline.ExchangeResult{Question: "How long?"}},
			{result: pipeline.ExchangeResult{Symptoms: []string{"fever"}}},
		}}
		comms := []pipeline.Communicator{commA, commB}
		factory := func(streamers.ChatHandler) (pipeline.Communicator, error) {
			next := comms[0]
			comms = comms[1:]
			return next, nil
		}
		reg := pipeline.NewRegistry(factory, &recordingSearcher{result: ""})

		a, err := reg.Start(ctx, "user-a", "my back")
		Expect(err).NotTo(HaveOccurred())
		b, err := reg.Start(ctx, "user-b", "feeling hot")
		Expect(err).NotTo(HaveOccurred())
		Expect(a.SessionID).NotTo(Equal(b.SessionID))

		aDone, err := reg.Answer(ctx, "user-a", a.SessionID, "lower back")
		Expect(err).NotTo(HaveOccurred())
		bDone, err := reg.Answer(ctx, "user-b", b.SessionID, "two days")
		Expect(err).NotTo(HaveOccurred())

		Expect(aDone.Symptoms.Symptoms).To(Equal([]string{"back pain"}))
		Expect(bDone.Symptoms.Symptoms).To(Equal([]string{"fever"}))
	})
})
