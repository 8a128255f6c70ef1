package agent_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/aymanh23/searchv2/agent"
)

var _ = Describe("MessageParser", func() {
	var handler *recordingHandler
	var parser *agent.MessageParser

	BeforeEach(func() {
		handler = &recordingHandler{}
		parser = agent.NewMessageParser(handler)
	})

	It("shows the thinking indicator on creation", func() {
		Expect(handler.thinkingCount).To(Equal(1))
	})

	Context("with a complete message in one chunk", func() {
		It("streams reasoning and captures the answer", func() {
			parser.ProcessChunk("<REASONING>\nThe patient mentioned a headache.\n</REASONING>\n<ANSWER>\nThanks, noted.\n</ANSWER>")
			parser.Finish()

			Expect(handler.reasoning()).To(Equal("The patient mentioned a headache."))
			Expect(handler.answer()).To(Equal("Thanks, noted."))
			Expect(parser.GetAnswer()).To(Equal("Thanks, noted."))
			Expect(handler.finishReasoning).To(Equal(1))
			Expect(handler.finishAnswer).To(Equal(1))
		})

		It("captures action and action input", func() {
			parser.ProcessChunk("<REASONING>\nNeed to scan the text.\n</REASONING>\n<ACTION>plugins.medical.symptom_scan</ACTION>\n<ACTION_INPUT>{\"text\": \"my head hurts\"}</ACTION_INPUT>")
			parser.Finish()

			Expect(parser.GetAction()).To(Equal("plugins.medical.symptom_scan"))
			Expect(parser.GetActionInput()).To(Equal("{\"text\": \"my head hurts\"}"))
		})
	})

	Context("with tags split across chunks", func() {
		It("reassembles an answer whose tags span chunk boundaries", func() {
			for _, chunk := range []string{"<ANS", "WER>He", "llo wor", "ld</ANS", "WER>"} {
				parser.ProcessChunk(chunk)
			}
			parser.Finish()

			Expect(parser.GetAnswer()).To(Equal("Hello world"))
			Expect(handler.answer()).To(Equal("Hello world"))
		})

		It("reassembles an OUTPUT block whose closing tag spans chunks", func() {
			for _, chunk := range []string{"<OUTPUT>\n{\"symptoms\": [\"head", "ache\"]}\n</OUT", "PUT>"} {
				parser.ProcessChunk(chunk)
			}
			parser.Finish()

			Expect(parser.GetOutput()).To(Equal("{\"symptoms\": [\"headache\"]}"))
		})
	})

	Context("when the stream is cut by a stop sequence", func() {
		It("captures the unterminated action input on Finish", func() {
			parser.ProcessChunk("<ACTION>plugins.http.get</ACTION>\n<ACTION_INPUT>{\"url\": \"https://medlineplus.gov\"}")
			parser.Finish()

			Expect(parser.GetAction()).To(Equal("plugins.http.get"))
			Expect(parser.GetActionInput()).To(Equal("{\"url\": \"https://medlineplus.gov\"}"))
		})
	})

	Context("with an ASK_USER block", func() {
		It("captures the question without streaming it as an answer", func() {
			parser.ProcessChunk("<REASONING>\nThe description is vague.\n</REASONING>\n<ASK_USER>\nHow long have you had the headache?\n</ASK_USER>")
			parser.Finish()

			Expect(parser.GetAskUser()).To(Equal("How long have you had the headache?"))
			Expect(parser.GetAnswer()).To(BeEmpty())
			Expect(handler.answerChunks).To(BeEmpty())
		})

		It("captures a question split across chunks", func() {
			for _, chunk := range []string{"<ASK_U", "SER>\nWhere exactly ", "is the pain?", "\n</ASK_USER>"} {
				parser.ProcessChunk(chunk)
			}
			parser.Finish()

			Expect(parser.GetAskUser()).To(Equal("Where exactly is the pain?"))
		})
	})

	Context("with an OUTPUT block", func() {
		It("captures structured output without streaming it", func() {
			parser.ProcessChunk("<OUTPUT>\n{\"related_conditions\": [\"Migraine\"], \"suggested_questions\": []}\n</OUTPUT>")
			parser.Finish()

			Expect(parser.GetOutput()).To(Equal("{\"related_conditions\": [\"Migraine\"], \"suggested_questions\": []}"))
			Expect(handler.answerChunks).To(BeEmpty())
			Expect(handler.reasoningChunks).To(BeEmpty())
		})

		It("captures an answer and output from the same message", func() {
			parser.ProcessChunk("<ANSWER>\nAll done.\n</ANSWER>\n<OUTPUT>\n{\"symptoms\": []}\n</OUTPUT>")
			parser.Finish()

			Expect(parser.GetAnswer()).To(Equal("All done."))
			Expect(parser.GetOutput()).To(Equal("{\"symptoms\": []}"))
		})
	})

	Context("Reset", func() {
		It("clears all captured state", func() {
			parser.ProcessChunk("<ACTION>plugins.http.get</ACTION>\n<ACTION_INPUT>{}</ACTION_INPUT>\n<ASK_USER>\nAnything else?\n</ASK_USER>")
			parser.Finish()
			parser.Reset()

			Expect(parser.GetAction()).To(BeEmpty())
			Expect(parser.GetActionInput()).To(BeEmpty())
			Expect(parser.GetAskUser()).To(BeEmpty())
			Expect(parser.GetAnswer()).To(BeEmpty())
			Expect(parser.GetOutput()).To(BeEmpty())
		})
	})
})
