package pipeline_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/aymanh23/searchv2/pipeline"
)

var _ = Describe("Runner", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	searchTask := func(steps ...pipeline.Step) *pipeline.Task {
		return &pipeline.Task{Name: "condition_search", Steps: steps}
	}

	It("threads each step's output into the next step's input", func() {
		task := searchTask(
			pipeline.Step{Name: "search", Kind: pipeline.StepCall, Capability: "search"},
			pipeline.Step{Name: "parse", Kind: pipeline.StepTransform, Func: func(_ context.Context, in string) (string, error) {
				return "parsed: " + in, nil
			}},
		)
		var query string
		runner := pipeline.NewRunner(map[string]pipeline.Capability{
			"search": func(_ context.Context, in string) (string, error) {
				query = in
				return "results for " + in, nil
			},
		})

		out, err := runner.Run(ctx, task, "headache, nausea")
		Expect(err).NotTo(HaveOccurred())
		Expect(query).To(Equal("headache, nausea"))
		Expect(out).To(Equal("parsed: results for headache, nausea"))
	})

	It("propagates a capability failure unmodified", func() {
		errProvider := errors.New("search provider unreachable")
		task := searchTask(pipeline.Step{Name: "search", Kind: pipeline.StepCall, Capability: "search"})
		runner := pipeline.NewRunner(map[string]pipeline.Capability{
			"search": func(context.Context, string) (string, error) {
				return "", errProvider
			},
		})

		_, err := runner.Run(ctx, task, "query")
		Expect(err).To(BeIdenticalTo(errProvider))
	})

	It("fails when a step names an unbound capability", func() {
		task := searchTask(pipeline.Step{Name: "search", Kind: pipeline.StepCall, Capability: "search"})
		runner := pipeline.NewRunner(nil)

		_, err := runner.Run(ctx, task, "query")
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring(`no capability "search" bound`))
	})

	It("fails on a transform step with no function", func() {
		task := searchTask(pipeline.Step{Name: "parse", Kind: pipeline.StepTransform})
		runner := pipeline.NewRunner(nil)

		_, err := runner.Run(ctx, task, "query")
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("no transform function"))
	})

	It("stops before running any step once the context is cancelled", func() {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		calls := 0
		task := searchTask(pipeline.Step{Name: "search", Kind: pipeline.StepCall, Capability: "search"})
		runner := pipeline.NewRunner(map[string]pipeline.Capability{
			"search": func(context.Context, string) (string, error) {
				calls++
				return "", nil
			},
		})

		_, err := runner.Run(cancelled, task, "query")
		Expect(err).To(MatchError(context.Canceled))
		Expect(calls).To(BeZero())
	})

	It("reports step lifecycle to the handler", func() {
		handler := &recordingPipelineHandler{}
		task := searchTask(
			pipeline.Step{Name: "search", Kind: pipeline.StepCall, Capability: "search"},
			pipeline.Step{Name: "parse", Kind: pipeline.StepTransform, Func: func(_ context.Context, in string) (string, error) {
				return in, nil
			}},
		)
		runner := pipeline.NewRunner(map[string]pipeline.Capability{
			"search": func(context.Context, string) (string, error) {
				return "blob", nil
			},
		}).WithHandler(handler)

		_, err := runner.Run(ctx, task, "query")
		Expect(err).NotTo(HaveOccurred())
		Expect(handler.events).To(Equal([]string{
			"step_started condition_search/search",
			"step_completed condition_search/search",
			"step_started condition_search/parse",
			"step_completed condition_search/parse",
		}))
	})

	It("does not report completion for a failed step", func() {
		handler := &recordingPipelineHandler{}
		task := searchTask(pipeline.Step{Name: "search", Kind: pipeline.StepCall, Capability: "search"})
		runner := pipeline.NewRunner(map[string]pipeline.Capability{
			"search": func(context.Context, string) (string, error) {
				return "", errors.New("boom")
			},
		}).WithHandler(handler)

		_, err := runner.Run(ctx, task, "query")
		Expect(err).To(HaveOccurred())
		Expect(handler.events).To(Equal([]string{"step_started condition_search/search"}))
	})
})
