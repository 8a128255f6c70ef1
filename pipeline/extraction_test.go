package pipeline_test

import (
	"context"
	"errors"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/aymanh23/searchv2/pipeline"
)

var _ = Describe("Extraction", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	It("finalizes immediately when the description is unambiguous", func() {
		comm := &scriptedCommunicator{script: []exchangeStep{
			{result: pipeline.ExchangeResult{Symptoms: []string{"headache", "sensitivity to light"}}},
		}}
		ext := pipeline.NewExtraction(comm)

		outcome, err := ext.Start(ctx, "I have a bad headache and sensitivity to light")
		Expect(err).NotTo(HaveOccurred())
		Expect(outcome.State).To(Equal(pipeline.Finalized))
		Expect(outcome.Set).NotTo(BeNil())
		Expect(outcome.Set.Symptoms).To(Equal([]string{"headache", "sensitivity to light"}))
		Expect(outcome.Set.Clarifications).To(BeEmpty())
		Expect(ext.State()).To(Equal(pipeline.Finalized))
		Expect(comm.inputs).To(Equal([]string{"I have a bad headache and sensitivity to light"}))
	})

	It("suspends on a clarification question when the description is vague", func() {
		comm := &scriptedCommunicator{script: []exchangeStep{
			{result: pipeline.ExchangeResult{Question: "Can you point to where it hurts?"}},
			{result: pipeline.ExchangeResult{Symptoms: []string{"stomach pain"}}},
		}}
		ext := pipeline.NewExtraction(comm)

		outcome, err := ext.Start(ctx, "I don't feel well")
		Expect(err).NotTo(HaveOccurred())
		Expect(outcome.State).To(Equal(pipeline.AwaitingClarification))
		Expect(outcome.Question).To(Equal("Can you point to where it hurts?"))
		Expect(ext.PendingQuestion()).To(Equal("Can you point to where it hurts?"))

		outcome, err = ext.Resume(ctx, "my stomach hurts after eating")
		Expect(err).NotTo(HaveOccurred())
		Expect(outcome.State).To(Equal(pipeline.Finalized))
		Expect(outcome.Set.Symptoms).To(Equal([]string{"stomach pain"}))
		Expect(outcome.Set.Clarifications).To(Equal([]pipeline.Clarification{
			{Question: "Can you point to where it hurts?", Answer: "my stomach hurts after eating"},
		}))
	})

	It("keeps asking instead of finalizing an empty symptom list", func() {
		comm := &scriptedCommunicator{script: []exchangeStep{
			{result: pipeline.ExchangeResult{}},
			{result: pipeline.ExchangeResult{Symptoms: []string{"fatigue"}}},
		}}
		ext := pipeline.NewExtraction(comm)

		outcome, err := ext.Start(ctx, "")
		Expect(err).NotTo(HaveOccurred())
		Expect(outcome.State).To(Equal(pipeline.AwaitingClarification))
		Expect(outcome.Question).NotTo(BeEmpty())

		outcome, err = ext.Resume(ctx, "I have been exhausted for a week")
		Expect(err).NotTo(HaveOccurred())
		Expect(outcome.State).To(Equal(pipeline.Finalized))
		Expect(outcome.Set.Symptoms).To(Equal([]string{"fatigue"}))
		Expect(outcome.Set.Clarifications).To(HaveLen(1))
		Expect(outcome.Set.Clarifications[0].Answer).To(Equal("I have been exhausted for a week"))
	})

	It("accumulates the clarification log across rounds in order", func() {
		comm := &scriptedCommunicator{script: []exchangeStep{
			{result: pipeline.ExchangeResult{Question: "How long has this been going on?"}},
			{result: pipeline.ExchangeResult{Question: "Does anything make it better?"}},
			{result: pipeline.ExchangeResult{Symptoms: []string{"lower back pain"}}},
		}}
		ext := pipeline.NewExtraction(comm)

		_, err := ext.Start(ctx, "my back aches")
		Expect(err).NotTo(HaveOccurred())
		_, err = ext.Resume(ctx, "about two weeks")
		Expect(err).NotTo(HaveOccurred())
		outcome, err := ext.Resume(ctx, "lying down helps")
		Expect(err).NotTo(HaveOccurred())

		Expect(outcome.State).To(Equal(pipeline.Finalized))
		Expect(outcome.Set.Clarifications).To(Equal([]pipeline.Clarification{
			{Question: "How long has this been going on?", Answer: "about two weeks"},
			{Question: "Does anything make it better?", Answer: "lying down helps"},
		}))
		Expect(comm.inputs).To(Equal([]string{"my back aches", "about two weeks", "lying down helps"}))
	})

	It("reports a communicator failure as extraction unavailable", func() {
		comm := &scriptedCommunicator{script: []exchangeStep{
			{err: errors.New("model timeout")},
		}}
		ext := pipeline.NewExtraction(comm)

		_, err := ext.Start(ctx, "I feel dizzy")
		Expect(err).To(MatchError(pipeline.ErrExtractionUnavailable))
		Expect(err.Error()).To(ContainSubstring("model timeout"))
	})

	It("reports a failure during resume as extraction unavailable", func() {
		comm := &scriptedCommunicator{script: []exchangeStep{
			{result: pipeline.ExchangeResult{Question: "Where is the pain?"}},
			{err: errors.New("connection reset")},
		}}
		ext := pipeline.NewExtraction(comm)

		_, err := ext.Start(ctx, "it hurts")
		Expect(err).NotTo(HaveOccurred())
		_, err = ext.Resume(ctx, "in my chest")
		Expect(err).To(MatchError(pipeline.ErrExtractionUnavailable))
	})

	It("passes schema violations through without reclassifying them", func() {
		comm := &scriptedCommunicator{script: []exchangeStep{
			{err: fmt.Errorf("%w: task %q missing required output fields: [symptoms]", pipeline.ErrMalformedTaskOutput, "symptom_extraction")},
		}}
		ext := pipeline.NewExtraction(comm)

		_, err := ext.Start(ctx, "sore throat")
		Expect(err).To(MatchError(pipeline.ErrMalformedTaskOutput))
		Expect(errors.Is(err, pipeline.ErrExtractionUnavailable)).To(BeFalse())
	})

	It("rejects resume when no question is pending", func() {
		ext := pipeline.NewExtraction(&scriptedCommunicator{})

		_, err := ext.Resume(ctx, "an answer out of nowhere")
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("not awaiting clarification"))
	})

	It("rejects a second start", func() {
		comm := &scriptedCommunicator{script: []exchangeStep{
			{result: pipeline.ExchangeResult{Symptoms: []string{"cough"}}},
		}}
		ext := pipeline.NewExtraction(comm)

		_, err := ext.Start(ctx, "I have a cough")
		Expect(err).NotTo(HaveOccurred())
		_, err = ext.Start(ctx, "starting over")
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("already started"))
	})

	It("treats a question as suspension even when symptoms were also offered", func() {
		comm := &scriptedCommunicator{script: []exchangeStep{
			{result: pipeline.ExchangeResult{Symptoms: []string{"ignored"}, Question: "Is the pain sharp or dull?"}},
		}}
		ext := pipeline.NewExtraction(comm)

		outcome, err := ext.Start(ctx, "pain in my knee")
		Expect(err).NotTo(HaveOccurred())
		Expect(outcome.State).To(Equal(pipeline.AwaitingClarification))
		Expect(outcome.Question).To(Equal("Is the pain sharp or dull?"))
	})
})
