package prompts

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/aymanh23/searchv2/aitools"
	"github.com/aymanh23/searchv2/config"
)

//go:embed agent.md
var agentPromptTemplate string

// GetAgentPrompt returns the agent system prompt with tools and mode injected
func GetAgentPrompt(tools map[string]aitools.Tool, mode config.AgentMode) string {
	prompt := agentPromptTemplate

	// Inject tools
	toolsDescription := formatTools(tools)
	prompt = strings.Replace(prompt, "{{TOOLS}}", toolsDescription, 1)

	// Inject mode instructions
	modeInstructions := getModeInstructions(mode)
	prompt = strings.Replace(prompt, "{{MODE_INSTRUCTIONS}}", modeInstructions, 1)

	// Inject response patterns based on mode
	responsePatterns := getResponsePatterns(mode)
	prompt = strings.Replace(prompt, "{{RESPONSE_PATTERNS}}", responsePatterns, 1)

	// Inject rules based on mode
	rules := getRules(mode)
	prompt = strings.Replace(prompt, "{{RULES}}", rules, 1)

	return prompt
}

// getModeInstructions returns instructions based on agent mode
func getModeInstructions(mode config.AgentMode) string {
	switch mode {
	case config.ModeAutonomous:
		return `**AUTONOMOUS MODE:** You are executing a task inside an automated pipeline. You have been given a task to complete.
- You MUST use REASONING before every action or answer
- Continue cycling through REASONING and ACTION until the task is fully complete
- Only provide an ANSWER or OUTPUT when the task is done
- Be thorough and autonomous - do not ask clarifying questions, make reasonable assumptions`

	case config.ModeConversation:
		fallthrough
	default:
		return `**CONVERSATION MODE:** You are talking with a patient during intake.
- REASONING is optional - use it when helpful for complex situations
- Ask clarifying questions via ASK_USER when the patient's description is vague or incomplete
- Ask ONE question at a time and wait for the patient's reply
- Be warm, clear, and professional - the patient may be unwell or anxious`
	}
}

// getResponsePatterns returns the response patterns based on mode
func getResponsePatterns(mode config.AgentMode) string {
	var sb strings.Builder

	if mode == config.ModeAutonomous {
		sb.WriteString(`### Pattern 1: Reasoning + Tool Call (continue working)
Use this when you need to perform an action to complete the task.
**Output ___STOP___ after ACTION_INPUT and wait for the result.**

` + "```" + `
<REASONING>
Analyze the current state and what needs to be done next...
</REASONING>
<ACTION>tool_name</ACTION>
<ACTION_INPUT>{"param": "value"}</ACTION_INPUT>___STOP___
` + "```" + `

### Pattern 2: Reasoning + Answer (task complete)
Use this ONLY when the task is fully complete.
**Output ___STOP___ after ANSWER to signal completion.**

` + "```" + `
<REASONING>
The task is complete because...
</REASONING>
<ANSWER>
Summary of what was accomplished and the final result.
</ANSWER>___STOP___
` + "```" + `

### Pattern 3: Reasoning + Structured Output
When the task asks for specific named output fields, finish with an OUTPUT block
containing ONLY a JSON object with those fields.
**Output ___STOP___ after OUTPUT to signal completion.**

` + "```" + `
<REASONING>
I have gathered everything the task asked for...
</REASONING>
<OUTPUT>
{"field_one": ["..."], "field_two": ["..."]}
</OUTPUT>___STOP___
` + "```" + `

### Pattern 4: Multi-step Reasoning
For complex analysis, you may use multiple REASONING blocks:

` + "```" + `
<REASONING>
First, analyzing the problem...
</REASONING>
<REASONING>
Based on that analysis, the next step is...
</REASONING>
<ACTION>tool_name</ACTION>
<ACTION_INPUT>{"param": "value"}</ACTION_INPUT>___STOP___
` + "```")
	} else {
		// Conversation mode
		sb.WriteString(`### Pattern 1: Direct Answer
Use this when you can respond without tools:

` + "```" + `
<ANSWER>
Your response to the patient
</ANSWER>___STOP___
` + "```" + `

### Pattern 2: Reasoning + Answer
Use this for situations that benefit from working through the details first:

` + "```" + `
<REASONING>
Your reasoning about the situation
</REASONING>
<ANSWER>
Your response to the patient
</ANSWER>___STOP___
` + "```" + `

### Pattern 3: Tool Call
Use this when you need to use a tool. **Any explanation of what you're doing MUST be inside REASONING tags.**
**Output ___STOP___ after ACTION_INPUT and wait for the result.**

` + "```" + `
<REASONING>
Explaining what you're about to do and why...
</REASONING>
<ACTION>tool_name</ACTION>
<ACTION_INPUT>{"param": "value"}</ACTION_INPUT>___STOP___
` + "```" + `

**WRONG - never do this:**
` + "```" + `
I'll help you by using the tool...
<ACTION>tool_name</ACTION>
` + "```" + `

### Pattern 4: Ask the Patient
When you need more detail before you can proceed, ask exactly one question:
**Output ___STOP___ after ASK_USER and wait for the reply.**

` + "```" + `
<REASONING>
The description is vague about X, I should ask...
</REASONING>
<ASK_USER>
Your single question for the patient here.
</ASK_USER>___STOP___
` + "```" + `

### Pattern 5: Structured Output
When the task asks for specific named output fields, finish with an OUTPUT block
containing ONLY a JSON object with those fields:

` + "```" + `
<REASONING>
I now have everything the task asked for...
</REASONING>
<OUTPUT>
{"field_one": ["..."], "field_two": ["..."]}
</OUTPUT>___STOP___
` + "```" + `

## Patient Responses

When you ask the patient a question via ASK_USER, their reply arrives wrapped in ` + "`<PATIENT_RESPONSE>`" + ` tags. Continue the conversation from where you left off using that reply.`)
	}

	return sb.String()
}

// getRules returns rules based on mode
func getRules(mode config.AgentMode) string {
	var rules []string

	if mode == config.ModeAutonomous {
		rules = append(rules, "**Always reason first.** Every response MUST start with a REASONING block.")
		rules = append(rules, "**Complete the task.** Keep working through REASONING and ACTION until the task is done.")
		rules = append(rules, "**One action per turn.** After ACTION_INPUT, stop and wait for OBSERVATION.")
		rules = append(rules, "**ANSWER or OUTPUT means done.** Only use them when the entire task is complete.")
		rules = append(rules, "**Be autonomous.** Don't ask questions - make reasonable assumptions and proceed.")
	} else {
		rules = append(rules, "**All text in tags.** Never output raw text outside of tags. Any explanation before a tool call goes in REASONING.")
		rules = append(rules, "**Reasoning is optional.** Use REASONING when it helps, skip it for simple responses.")
		rules = append(rules, "**One pattern per turn.** Provide an ANSWER, ask a question, or request a tool call - never more than one.")
		rules = append(rules, "**One question at a time.** Ask the most important missing detail first and wait for the reply.")
	}

	rules = append(rules, "**Stop after ACTION_INPUT.** Do not generate OBSERVATION yourself. Wait for the system to provide it.")
	rules = append(rules, "**OUTPUT is strict JSON.** When asked for structured output, emit a single JSON object with exactly the requested fields.")
	rules = append(rules, "**Tools are optional.** Only use tools when you need information you don't have or capabilities you lack.")
	rules = append(rules, "**Handle errors gracefully.** If an action fails, reason about why and try a different approach.")

	var sb strings.Builder
	for i, rule := range rules {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, rule))
	}
	return sb.String()
}

// formatTools formats the tools map into a readable string for the prompt
func formatTools(tools map[string]aitools.Tool) string {
	if len(tools) == 0 {
		return "NO TOOLS AVAILABLE"
	}

	var sb strings.Builder
	for toolName, tool := range tools {
		sb.WriteString(fmt.Sprintf("### %s\n\n", toolName))
		sb.WriteString(fmt.Sprintf("%s\n\n", tool.ToolDescription()))
		sb.WriteString(fmt.Sprintf("**Input Schema:**\n```json\n%s\n```\n\n", tool.ToolPayloadSchema().String()))
	}
	return sb.String()
}
