package store_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/aymanh23/searchv2/store"
)

var _ = Describe("IntakeStore", func() {
	runIntakeStoreTests := func(newBundle func() (*store.Bundle, func())) {
		var (
			bundle  *store.Bundle
			cleanup func()
			intakes store.IntakeStore
		)

		BeforeEach(func() {
			bundle, cleanup = newBundle()
			intakes = bundle.Intakes
		})

		AfterEach(func() {
			cleanup()
		})

		It("creates and retrieves an intake", func() {
			id, err := intakes.CreateIntake("user-1", "I have a bad headache and sensitivity to light")
			Expect(err).NotTo(HaveOccurred())
			Expect(id).NotTo(BeEmpty())

			rec, err := intakes.GetIntake(id)
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.UserID).To(Equal("user-1"))
			Expect(rec.Description).To(Equal("I have a bad headache and sensitivity to light"))
			Expect(rec.Status).To(Equal(store.IntakeStatusCollecting))
			Expect(rec.SymptomsJSON).To(BeNil())
			Expect(rec.BundleJSON).To(BeNil())
			Expect(rec.FinishedAt).To(BeNil())
		})

		It("returns an error for unknown intake ids", func() {
			_, err := intakes.GetIntake("nonexistent")
			Expect(err).To(HaveOccurred())
		})

		It("tracks status transitions and stamps finished_at on terminal states", func() {
			id, err := intakes.CreateIntake("user-1", "I don't feel well")
			Expect(err).NotTo(HaveOccurred())

			Expect(intakes.UpdateIntakeStatus(id, store.IntakeStatusAwaiting)).To(Succeed())
			rec, err := intakes.GetIntake(id)
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.Status).To(Equal(store.IntakeStatusAwaiting))
			Expect(rec.FinishedAt).To(BeNil())

			Expect(intakes.UpdateIntakeStatus(id, store.IntakeStatusCompleted)).To(Succeed())
			rec, err = intakes.GetIntake(id)
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.Status).To(Equal(store.IntakeStatusCompleted))
			Expect(rec.FinishedAt).NotTo(BeNil())
		})

		It("stores symptom, bundle and error payloads", func() {
			id, err := intakes.CreateIntake("user-1", "headache")
			Expect(err).NotTo(HaveOccurred())

			symptoms := `{"symptoms":["headache","sensitivity to light"],"clarifications":[]}`
			Expect(intakes.SetSymptoms(id, symptoms)).To(Succeed())

			bundleJSON := `{"related_conditions":["Migraine"],"suggested_questions":[]}`
			Expect(intakes.SetBundle(id, bundleJSON)).To(Succeed())

			Expect(intakes.SetError(id, "search provider timed out")).To(Succeed())

			rec, err := intakes.GetIntake(id)
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.SymptomsJSON).NotTo(BeNil())
			Expect(*rec.SymptomsJSON).To(Equal(symptoms))
			Expect(rec.BundleJSON).NotTo(BeNil())
			Expect(*rec.BundleJSON).To(Equal(bundleJSON))
			Expect(rec.Error).NotTo(BeNil())
			Expect(*rec.Error).To(Equal("search provider timed out"))
		})

		It("lists intakes newest first", func() {
			idA, err := intakes.CreateIntake("user-1", "first")
			Expect(err).NotTo(HaveOccurred())
			idB, err := intakes.CreateIntake("user-1", "second")
			Expect(err).NotTo(HaveOccurred())
			idC, err := intakes.CreateIntake("user-1", "third")
			Expect(err).NotTo(HaveOccurred())

			records, err := intakes.ListIntakes("", 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(3))
			Expect(records[0].ID).To(Equal(idC))
			Expect(records[1].ID).To(Equal(idB))
			Expect(records[2].ID).To(Equal(idA))
		})

		It("filters listed intakes by user and respects the limit", func() {
			for _, desc := range []string{"a", "b", "c"} {
				_, err := intakes.CreateIntake("alice", desc)
				Expect(err).NotTo(HaveOccurred())
			}
			_, err := intakes.CreateIntake("bob", "d")
			Expect(err).NotTo(HaveOccurred())

			records, err := intakes.ListIntakes("alice", 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(3))
			for _, rec := range records {
				Expect(rec.UserID).To(Equal("alice"))
			}

			records, err = intakes.ListIntakes("alice", 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(2))

			records, err = intakes.ListIntakes("", 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(4))
		})

		It("appends and replays conversation messages in order", func() {
			id, err := intakes.CreateIntake("user-1", "I don't feel well")
			Expect(err).NotTo(HaveOccurred())

			Expect(intakes.AppendMessage(id, "user", "I don't feel well")).To(Succeed())
			Expect(intakes.AppendMessage(id, "assistant", "Can you describe where it hurts?")).To(Succeed())
			Expect(intakes.AppendMessage(id, "user", "My stomach, mostly after meals")).To(Succeed())

			msgs, err := intakes.GetMessages(id)
			Expect(err).NotTo(HaveOccurred())
			Expect(msgs).To(HaveLen(3))
			Expect(msgs[0].Role).To(Equal("user"))
			Expect(msgs[1].Role).To(Equal("assistant"))
			Expect(msgs[1].Content).To(Equal("Can you describe where it hurts?"))
			Expect(msgs[2].Content).To(Equal("My stomach, mostly after meals"))
		})
	}

	runWithBackends(runIntakeStoreTests)
})
