package pipeline

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/aymanh23/searchv2/agent"
)

var _ = Describe("AgentCommunicator result mapping", func() {
	var comm *AgentCommunicator

	BeforeEach(func() {
		comm = NewAgentCommunicator(nil, nil)
	})

	It("maps an ASK_USER response to a pending question", func() {
		result, err := comm.exchange(agent.ChatResult{AskUser: "How long have you had the cough?"})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Question).To(Equal("How long have you had the cough?"))
		Expect(result.Symptoms).To(BeEmpty())
	})

	It("parses the structured output into the symptom list", func() {
		result, err := comm.exchange(agent.ChatResult{Output: `{"symptoms": ["cough", "fever"]}`})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Symptoms).To(Equal([]string{"cough", "fever"}))
		Expect(result.Question).To(BeEmpty())
	})

	It("rejects output missing the symptoms field", func() {
		_, err := comm.exchange(agent.ChatResult{Output: `{"notes": "all good"}`})
		Expect(err).To(MatchError(ErrMalformedTaskOutput))
		Expect(err.Error()).To(ContainSubstring("symptoms"))
	})

	It("rejects output whose symptoms field has the wrong shape", func() {
		_, err := comm.exchange(agent.ChatResult{Output: `{"symptoms": "cough"}`})
		Expect(err).To(MatchError(ErrMalformedTaskOutput))
	})

	It("fails when the agent produced neither a question nor structured output", func() {
		_, err := comm.exchange(agent.ChatResult{Answer: "I think that's everything."})
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("without a question or structured output"))
	})
})
