package agent

import (
	"strings"

	"github.com/aymanh23/searchv2/llm"
)

// HealSessionMessages fixes stored session messages for an interrupted agent.
// If the last message is assistant with ACTION, the tool call was in-flight and
// the observation was never stored. Inject a placeholder so the agent LLM can
// decide whether to re-run the tool. Messages ending in ASK_USER are left
// alone: the session is waiting on the patient, not on a tool result.
// If the last message is user, the LLM was interrupted mid-response and the
// next send picks up from there.
func HealSessionMessages(msgs []llm.Message) []llm.Message {
	if len(msgs) == 0 {
		return msgs
	}
	last := msgs[len(msgs)-1]
	if last.Role == llm.RoleAssistant &&
		strings.Contains(last.Content, "<ACTION>") &&
		!strings.Contains(last.Content, "<ASK_USER>") {
		return append(msgs, llm.Message{
			Role:    llm.RoleUser,
			Content: "<OBSERVATION>\nObservation unavailable: the tool call was interrupted by a system restart. You may need to re-run the tool or verify its result.\n</OBSERVATION>",
		})
	}
	return msgs
}
