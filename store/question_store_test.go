package store_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/aymanh23/searchv2/store"
)

var _ = Describe("QuestionStore", func() {
	runQuestionStoreTests := func(newBundle func() (*store.Bundle, func())) {
		var (
			bundle    *store.Bundle
			cleanup   func()
			questions store.QuestionStore
			intakeID  string
		)

		BeforeEach(func() {
			bundle, cleanup = newBundle()
			questions = bundle.Questions

			var err error
			intakeID, err = bundle.Intakes.CreateIntake("user-1", "I don't feel well")
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			cleanup()
		})

		It("stores a question with no answer yet", func() {
			qid, err := questions.StoreQuestion(intakeID, "How long have you felt this way?")
			Expect(err).NotTo(HaveOccurred())
			Expect(qid).NotTo(BeEmpty())

			answer, ready, err := questions.GetAnswer(qid)
			Expect(err).NotTo(HaveOccurred())
			Expect(ready).To(BeFalse())
			Expect(answer).To(BeEmpty())
		})

		It("marks the answer ready once set", func() {
			qid, err := questions.StoreQuestion(intakeID, "Do you have a fever?")
			Expect(err).NotTo(HaveOccurred())

			Expect(questions.SetAnswer(qid, "Yes, since yesterday")).To(Succeed())

			answer, ready, err := questions.GetAnswer(qid)
			Expect(err).NotTo(HaveOccurred())
			Expect(ready).To(BeTrue())
			Expect(answer).To(Equal("Yes, since yesterday"))
		})

		It("lists questions for an intake in the order they were asked", func() {
			first, err := questions.StoreQuestion(intakeID, "Where does it hurt?")
			Expect(err).NotTo(HaveOccurred())
			second, err := questions.StoreQuestion(intakeID, "When did it start?")
			Expect(err).NotTo(HaveOccurred())

			Expect(questions.SetAnswer(first, "My lower back")).To(Succeed())

			infos, err := questions.ListQuestions(intakeID)
			Expect(err).NotTo(HaveOccurred())
			Expect(infos).To(HaveLen(2))
			Expect(infos[0].ID).To(Equal(first))
			Expect(infos[0].Question).To(Equal("Where does it hurt?"))
			Expect(infos[0].Answer).To(Equal("My lower back"))
			Expect(infos[0].HasAnswer).To(BeTrue())
			Expect(infos[1].ID).To(Equal(second))
			Expect(infos[1].HasAnswer).To(BeFalse())
		})

		It("keeps questions from different intakes separate", func() {
			otherID, err := bundle.Intakes.CreateIntake("user-2", "dizzy spells")
			Expect(err).NotTo(HaveOccurred())

			_, err = questions.StoreQuestion(intakeID, "How long have you felt this way?")
			Expect(err).NotTo(HaveOccurred())
			_, err = questions.StoreQuestion(otherID, "Does standing up trigger it?")
			Expect(err).NotTo(HaveOccurred())

			infos, err := questions.ListQuestions(intakeID)
			Expect(err).NotTo(HaveOccurred())
			Expect(infos).To(HaveLen(1))
			Expect(infos[0].Question).To(Equal("How long have you felt this way?"))
		})
	}

	runWithBackends(runQuestionStoreTests)
})
