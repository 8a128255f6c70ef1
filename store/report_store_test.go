package store_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/aymanh23/searchv2/store"
)

var _ = Describe("ReportStore", func() {
	runReportStoreTests := func(newBundle func() (*store.Bundle, func())) {
		var (
			bundle   *store.Bundle
			cleanup  func()
			reports  store.ReportStore
			intakeID string
		)

		BeforeEach(func() {
			bundle, cleanup = newBundle()
			reports = bundle.Reports

			var err error
			intakeID, err = bundle.Intakes.CreateIntake("user-1", "headache")
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			cleanup()
		})

		It("saves and fetches a report", func() {
			id, err := reports.SaveReport(intakeID, "user-1", "# Intake Report\n\nHeadache with light sensitivity.")
			Expect(err).NotTo(HaveOccurred())
			Expect(id).NotTo(BeEmpty())

			rec, err := reports.GetReport(id)
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.IntakeID).To(Equal(intakeID))
			Expect(rec.UserID).To(Equal("user-1"))
			Expect(rec.Markdown).To(ContainSubstring("Headache with light sensitivity"))
		})

		It("returns an error for unknown report ids", func() {
			_, err := reports.GetReport("nonexistent")
			Expect(err).To(HaveOccurred())
		})

		It("lists reports newest first and filters by user", func() {
			first, err := reports.SaveReport(intakeID, "alice", "# One")
			Expect(err).NotTo(HaveOccurred())
			second, err := reports.SaveReport(intakeID, "alice", "# Two")
			Expect(err).NotTo(HaveOccurred())
			_, err = reports.SaveReport(intakeID, "bob", "# Three")
			Expect(err).NotTo(HaveOccurred())

			records, err := reports.ListReports("alice", 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(2))
			Expect(records[0].ID).To(Equal(second))
			Expect(records[1].ID).To(Equal(first))

			records, err = reports.ListReports("", 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(3))

			records, err = reports.ListReports("alice", 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(1))
			Expect(records[0].ID).To(Equal(second))
		})
	}

	runWithBackends(runReportStoreTests)
})
