package server

import (
	"github.com/aymanh23/searchv2/pipeline"
	"github.com/aymanh23/searchv2/protocol"
)

// UpdateToPayload converts a registry session snapshot into its wire form.
func UpdateToPayload(u *pipeline.IntakeUpdate) *protocol.IntakeUpdatePayload {
	if u == nil {
		return nil
	}
	p := &protocol.IntakeUpdatePayload{
		SessionID: u.SessionID,
		Status:    u.Status,
		Question:  u.Question,
	}
	if u.Symptoms != nil {
		p.Symptoms = SymptomSetToInfo(u.Symptoms)
	}
	if u.Result != nil {
		p.Result = &protocol.SearchBundleInfo{
			RelatedConditions:  u.Result.RelatedConditions,
			SuggestedQuestions: u.Result.SuggestedQuestions,
		}
	}
	return p
}

// SymptomSetToInfo converts a finalized symptom set into its wire form.
func SymptomSetToInfo(set *pipeline.SymptomSet) *protocol.SymptomSetInfo {
	info := &protocol.SymptomSetInfo{
		Symptoms:       set.Symptoms,
		Clarifications: make([]protocol.ClarificationInfo, len(set.Clarifications)),
	}
	for i, c := range set.Clarifications {
		info.Clarifications[i] = protocol.ClarificationInfo{
			Question: c.Question,
			Answer:   c.Answer,
		}
	}
	return info
}
