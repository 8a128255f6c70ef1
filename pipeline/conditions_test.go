package pipeline_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/aymanh23/searchv2/pipeline"
)

var _ = Describe("ConditionSearch", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	It("searches with the comma-joined symptom query and parses the blob", func() {
		searcher := &recordingSearcher{result: serperFixture}
		search := pipeline.NewConditionSearch(searcher, nil)

		set := &pipeline.SymptomSet{Symptoms: []string{"headache", "sensitivity to light"}}
		bundle, err := search.Run(ctx, set)
		Expect(err).NotTo(HaveOccurred())
		Expect(searcher.queries).To(Equal([]string{"headache, sensitivity to light"}))
		Expect(bundle.RelatedConditions).To(ContainElement("Migraine"))
		Expect(bundle.SuggestedQuestions).To(ContainElement("When should I worry about a headache?"))
	})

	It("treats an empty search result as success with an empty bundle", func() {
		searcher := &recordingSearcher{result: ""}
		search := pipeline.NewConditionSearch(searcher, nil)

		bundle, err := search.Run(ctx, &pipeline.SymptomSet{Symptoms: []string{"hiccups"}})
		Expect(err).NotTo(HaveOccurred())
		Expect(bundle.RelatedConditions).NotTo(BeNil())
		Expect(bundle.RelatedConditions).To(BeEmpty())
		Expect(bundle.SuggestedQuestions).NotTo(BeNil())
		Expect(bundle.SuggestedQuestions).To(BeEmpty())
	})

	It("propagates a searcher failure unmodified", func() {
		errQuota := errors.New("quota exceeded")
		searcher := &recordingSearcher{err: errQuota}
		search := pipeline.NewConditionSearch(searcher, nil)

		_, err := search.Run(ctx, &pipeline.SymptomSet{Symptoms: []string{"cough"}})
		Expect(err).To(BeIdenticalTo(errQuota))
	})

	It("fails on an uninterpretable result blob", func() {
		searcher := &recordingSearcher{result: string([]byte{0x1f, 0x8b, 0x08, 0x00, 0xff, 0xfe})}
		search := pipeline.NewConditionSearch(searcher, nil)

		_, err := search.Run(ctx, &pipeline.SymptomSet{Symptoms: []string{"cough"}})
		Expect(err).To(MatchError(pipeline.ErrSearchResultUnparseable))
	})

	It("reports its two steps to the handler", func() {
		handler := &recordingPipelineHandler{}
		search := pipeline.NewConditionSearch(&recordingSearcher{result: ""}, handler)

		_, err := search.Run(ctx, &pipeline.SymptomSet{Symptoms: []string{"fever"}})
		Expect(err).NotTo(HaveOccurred())
		Expect(handler.events).To(Equal([]string{
			"step_started condition_search/search",
			"step_completed condition_search/search",
			"step_started condition_search/parse",
			"step_completed condition_search/parse",
		}))
	})
})
