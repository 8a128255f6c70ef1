package pipeline_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/aymanh23/searchv2/pipeline"
)

var _ = Describe("Task output validation", func() {
	var task *pipeline.Task

	BeforeEach(func() {
		task = &pipeline.Task{
			Name: "condition_search",
			Output: []pipeline.OutputField{
				{Name: "related_conditions", Required: true},
				{Name: "suggested_questions", Required: true},
			},
		}
	})

	It("accepts a payload with all required fields", func() {
		payload := `{"related_conditions": ["Migraine"], "suggested_questions": ["How long?"]}`
		Expect(task.ValidateOutput([]byte(payload))).To(Succeed())
	})

	It("accepts required fields with empty values", func() {
		payload := `{"related_conditions": [], "suggested_questions": []}`
		Expect(task.ValidateOutput([]byte(payload))).To(Succeed())
	})

	It("rejects a payload missing a required field", func() {
		payload := `{"related_conditions": ["Migraine"]}`
		err := task.ValidateOutput([]byte(payload))
		Expect(err).To(MatchError(pipeline.ErrMalformedTaskOutput))
		Expect(err.Error()).To(ContainSubstring("suggested_questions"))
	})

	It("treats an explicit JSON null as missing", func() {
		payload := `{"related_conditions": null, "suggested_questions": []}`
		err := task.ValidateOutput([]byte(payload))
		Expect(err).To(MatchError(pipeline.ErrMalformedTaskOutput))
		Expect(err.Error()).To(ContainSubstring("related_conditions"))
	})

	It("rejects a payload that is not a JSON object", func() {
		err := task.ValidateOutput([]byte(`["not", "an", "object"]`))
		Expect(err).To(MatchError(pipeline.ErrMalformedTaskOutput))
		Expect(err.Error()).To(ContainSubstring("not a JSON object"))
	})

	It("ignores optional fields that are absent", func() {
		task.Output = append(task.Output, pipeline.OutputField{Name: "notes"})
		payload := `{"related_conditions": [], "suggested_questions": []}`
		Expect(task.ValidateOutput([]byte(payload))).To(Succeed())
	})
})

var _ = Describe("Task definitions", func() {
	It("declares the extraction task around the communicator exchange", func() {
		task := pipeline.SymptomExtractionTask()
		Expect(task.Name).To(Equal("symptom_extraction"))
		Expect(task.AgentName).To(Equal("communicator"))
		Expect(task.Output).To(Equal([]pipeline.OutputField{{Name: "symptoms", Required: true}}))
		Expect(task.Steps).To(HaveLen(1))
		Expect(task.Steps[0].Kind).To(Equal(pipeline.StepCall))
		Expect(task.Steps[0].Capability).To(Equal("communicate"))
	})

	It("declares the search task as a search call followed by the parse transform", func() {
		task := pipeline.ConditionSearchTask()
		Expect(task.Name).To(Equal("condition_search"))
		Expect(task.AgentName).To(Equal("search_agent"))
		Expect(task.Steps).To(HaveLen(2))
		Expect(task.Steps[0].Name).To(Equal("search"))
		Expect(task.Steps[0].Kind).To(Equal(pipeline.StepCall))
		Expect(task.Steps[1].Name).To(Equal("parse"))
		Expect(task.Steps[1].Kind).To(Equal(pipeline.StepTransform))
		Expect(task.Steps[1].Func).NotTo(BeNil())

		names := []string{}
		for _, f := range task.Output {
			Expect(f.Required).To(BeTrue())
			names = append(names, f.Name)
		}
		Expect(names).To(Equal([]string{"related_conditions", "suggested_questions"}))
	})
})
