package store_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/aymanh23/searchv2/store"
)

var _ = Describe("EventStore", func() {
	runEventStoreTests := func(newBundle func() (*store.Bundle, func())) {
		var (
			bundle  *store.Bundle
			cleanup func()
			events  store.EventStore
		)

		BeforeEach(func() {
			bundle, cleanup = newBundle()
			events = bundle.Events
		})

		AfterEach(func() {
			cleanup()
		})

		It("appends and replays events for an intake in order", func() {
			intakeID, err := bundle.Intakes.CreateIntake("user-1", "headache")
			Expect(err).NotTo(HaveOccurred())

			Expect(events.AppendEvent(intakeID, "intake_started", `{"description":"headache"}`)).To(Succeed())
			Expect(events.AppendEvent(intakeID, "symptoms_finalized", `{"symptoms":["headache"]}`)).To(Succeed())
			Expect(events.AppendEvent(intakeID, "search_completed", `{"conditions":1}`)).To(Succeed())

			results, err := events.GetEvents(intakeID)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(3))
			Expect(results[0].Type).To(Equal("intake_started"))
			Expect(results[0].PayloadJSON).To(Equal(`{"description":"headache"}`))
			Expect(results[1].Type).To(Equal("symptoms_finalized"))
			Expect(results[2].Type).To(Equal("search_completed"))
			Expect(results[0].CreatedAt).NotTo(BeZero())
		})

		It("keeps events from different intakes separate", func() {
			Expect(events.AppendEvent("intake-a", "intake_started", "{}")).To(Succeed())
			Expect(events.AppendEvent("intake-b", "intake_started", "{}")).To(Succeed())
			Expect(events.AppendEvent("intake-a", "intake_cancelled", "{}")).To(Succeed())

			results, err := events.GetEvents("intake-a")
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(2))
			for _, evt := range results {
				Expect(evt.IntakeID).To(Equal("intake-a"))
			}
		})

		It("returns an empty slice when no events match", func() {
			results, err := events.GetEvents("nonexistent")
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(BeEmpty())
		})
	}

	runWithBackends(runEventStoreTests)
})
