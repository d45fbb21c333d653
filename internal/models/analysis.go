package models

// ProficiencySignal is a coarse AI-derived label of how well a single
// answer was handled. Not persisted on its own; feeds classification.
type ProficiencySignal string

const (
	SignalNovice       ProficiencySignal = "novice"
	SignalIntermediate ProficiencySignal = "intermediate"
	SignalProficient   ProficiencySignal = "proficient"
	SignalExpert       ProficiencySignal = "expert"
)

// Strong reports whether the signal indicates a well-handled answer.
func (s ProficiencySignal) Strong() bool {
	return s == SignalProficient || s == SignalExpert
}

// ProficiencyLevel is the per-skill assessment persisted on the session.
type ProficiencyLevel string

const (
	ProficiencyComfortable     ProficiencyLevel = "comfortable"
	ProficiencyProficient      ProficiencyLevel = "proficient"
	ProficiencyIntermediate    ProficiencyLevel = "intermediate"
	ProficiencyBoundaryReached ProficiencyLevel = "boundary_reached"
)

// ResponseAnalysis is the transient quality judgment of one candidate
// answer. All numeric fields are in [0,1].
type ResponseAnalysis struct {
	Confidence           float64           `json:"confidence"`
	TechnicalAccuracy    float64           `json:"technicalAccuracy"`
	DepthOfUnderstanding float64           `json:"depthOfUnderstanding"`
	HesitationIndicators []string          `json:"hesitationIndicators"`
	Proficiency          ProficiencySignal `json:"proficiency"`
}
