package pipeline_test

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/aymanh23/searchv2/pipeline"
)

const serperFixture = `{
  "organic": [
    {"title": "Migraine - Symptoms and causes - Mayo Clinic", "snippet": "Migraines can cause throbbing pain. When should you see a doctor?"},
    {"title": "Tension headache - Wikipedia", "snippet": "A tension headache is the most common type of headache."},
    {"title": "Migraine - NHS", "snippet": "Find out about migraines."}
  ],
  "peopleAlsoAsk": [
    {"question": "What causes light sensitivity with headaches?"},
    {"question": "When should I worry about a headache?"}
  ],
  "relatedSearches": [
    {"query": "cluster headache"},
    {"query": "how long do migraines last?"}
  ],
  "answerBox": {"answer": "Most headaches are benign. Could it be a migraine?", "snippet": ""}
}`

var _ = Describe("ParseSearchResults", func() {
	It("returns an empty bundle for an empty blob", func() {
		bundle, err := pipeline.ParseSearchResults("")
		Expect(err).NotTo(HaveOccurred())
		Expect(bundle.RelatedConditions).NotTo(BeNil())
		Expect(bundle.RelatedConditions).To(BeEmpty())
		Expect(bundle.SuggestedQuestions).NotTo(BeNil())
		Expect(bundle.SuggestedQuestions).To(BeEmpty())
	})

	It("treats a whitespace-only blob as no results", func() {
		bundle, err := pipeline.ParseSearchResults("  \n\t ")
		Expect(err).NotTo(HaveOccurred())
		Expect(bundle.RelatedConditions).To(BeEmpty())
		Expect(bundle.SuggestedQuestions).To(BeEmpty())
	})

	It("extracts conditions and questions from a provider JSON payload", func() {
		bundle, err := pipeline.ParseSearchResults(serperFixture)
		Expect(err).NotTo(HaveOccurred())
		Expect(bundle.RelatedConditions).To(Equal([]string{
			"Migraine",
			"Tension headache",
			"cluster headache",
		}))
		Expect(bundle.SuggestedQuestions).To(Equal([]string{
			"When should you see a doctor?",
			"What causes light sensitivity with headaches?",
			"When should I worry about a headache?",
			"how long do migraines last?",
			"Could it be a migraine?",
		}))
	})

	It("falls back to line-oriented parsing for plain text", func() {
		blob := strings.Join([]string{
			"Migraine - Symptoms and causes - Mayo Clinic",
			"Tension headache | Johns Hopkins Medicine",
			"Is it a migraine or a tension headache? Learn the difference and when to seek care.",
			"Migraine - NHS",
		}, "\n")

		bundle, err := pipeline.ParseSearchResults(blob)
		Expect(err).NotTo(HaveOccurred())
		Expect(bundle.RelatedConditions).To(Equal([]string{"Migraine", "Tension headache"}))
		Expect(bundle.SuggestedQuestions).To(Equal([]string{"Is it a migraine or a tension headache?"}))
	})

	It("deduplicates case-insensitively keeping the first occurrence's casing", func() {
		blob := "Migraine - NHS\nMIGRAINE - WebMD\nmigraine: overview"
		bundle, err := pipeline.ParseSearchResults(blob)
		Expect(err).NotTo(HaveOccurred())
		Expect(bundle.RelatedConditions).To(Equal([]string{"Migraine"}))
	})

	It("returns the same bundle on repeated runs", func() {
		first, err := pipeline.ParseSearchResults(serperFixture)
		Expect(err).NotTo(HaveOccurred())
		second, err := pipeline.ParseSearchResults(serperFixture)
		Expect(err).NotTo(HaveOccurred())
		Expect(second).To(Equal(first))
	})

	It("yields empty fields for interpretable text with no candidates", func() {
		bundle, err := pipeline.ParseSearchResults(`{"organic": []}`)
		Expect(err).NotTo(HaveOccurred())
		Expect(bundle.RelatedConditions).To(BeEmpty())
		Expect(bundle.SuggestedQuestions).To(BeEmpty())
	})

	It("rejects a blob that is not valid text", func() {
		blob := string([]byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0xff, 0xd8, 0xff, 0xe0})
		_, err := pipeline.ParseSearchResults(blob)
		Expect(err).To(MatchError(pipeline.ErrSearchResultUnparseable))
	})

	It("rejects a blob that is mostly control characters", func() {
		blob := strings.Repeat("\x00\x01\x02\x03", 16) + "ok"
		_, err := pipeline.ParseSearchResults(blob)
		Expect(err).To(MatchError(pipeline.ErrSearchResultUnparseable))
	})
})
