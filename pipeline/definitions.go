package pipeline

// SymptomExtractionTask returns the definition of the symptom extraction
// task. Its single step is the communicator exchange; the Extraction state
// machine drives that step because it can suspend on patient questions,
// which the linear runner cannot.
func SymptomExtractionTask() *Task {
	return &Task{
		Name: "symptom_extraction",
		Description: "Talk with the patient about how they are feeling and identify every " +
			"distinct symptom they describe, keeping the order in which symptoms were " +
			"first mentioned. If the description is vague, empty, or you are unsure " +
			"whether something counts as a symptom, ask the patient one clarifying " +
			"question at a time until at least one concrete symptom is identified.",
		ExpectedOutput: "A JSON object with a \"symptoms\" array listing each identified " +
			"symptom as a short phrase, in order of first mention. The array is never " +
			"empty: keep asking clarifying questions until it has at least one entry.",
		AgentName: "communicator",
		Output: []OutputField{
			{Name: "symptoms", Required: true},
		},
		Steps: []Step{
			{Name: "communicate", Kind: StepCall, Capability: "communicate"},
		},
	}
}

// ConditionSearchTask returns the definition of the condition search task:
// a search capability call followed by the deterministic parse transform.
func ConditionSearchTask() *Task {
	return &Task{
		Name: "condition_search",
		Description: "Search for medical conditions related to the patient's reported " +
			"symptoms and collect follow-up questions a clinician might ask. Use the " +
			"symptom list as the search query and distill the raw results into " +
			"condition names and suggested questions.",
		ExpectedOutput: "A JSON object with a \"related_conditions\" array of condition " +
			"names and a \"suggested_questions\" array of follow-up questions. Both " +
			"arrays are always present; either may be empty when the search finds " +
			"nothing relevant.",
		AgentName: "search_agent",
		Output: []OutputField{
			{Name: "related_conditions", Required: true},
			{Name: "suggested_questions", Required: true},
		},
		Steps: []Step{
			{Name: "search", Kind: StepCall, Capability: "search"},
			{Name: "parse", Kind: StepTransform, Func: parseTransform},
		},
	}
}
