package models

import "time"

// PhaseRecord is one entry of the ordered phase history.
type PhaseRecord struct {
	Phase         Phase     `json:"phase"`
	StartedAt     time.Time `json:"startedAt"`
	QuestionCount int       `json:"questionCount"`
}

// QualityRecord is one entry of the ordered response-quality history.
type QualityRecord struct {
	QuestionIndex    int               `json:"questionIndex"`
	Phase            Phase             `json:"phase"`
	Confidence       float64           `json:"confidence"`
	Accuracy         float64           `json:"accuracy"`
	Proficiency      ProficiencySignal `json:"proficiency"`
	BoundaryDetected bool              `json:"boundaryDetected,omitempty"`
}

// BoundaryLogEntry records one detected skill boundary.
type BoundaryLogEntry struct {
	Skill         string    `json:"skill"`
	DetectedAt    time.Time `json:"detectedAt"`
	Evidence      string    `json:"evidence"`
	QuestionIndex int       `json:"questionIndex"`
}

// ProgressionState is the versioned progression record persisted with a
// session: phase history, response-quality history, explored skills and
// the boundary-detection log.
type ProgressionState struct {
	Version        int                `json:"version"`
	PhaseHistory   []PhaseRecord      `json:"phaseHistory"`
	QualityHistory []QualityRecord    `json:"qualityHistory"`
	ExploredSkills []string           `json:"exploredSkills"`
	BoundaryLog    []BoundaryLogEntry `json:"boundaryLog"`
}

// CurrentPhaseRecord returns the newest phase history entry, or nil if
// the history is empty.
func (p *ProgressionState) CurrentPhaseRecord() *PhaseRecord {
	if len(p.PhaseHistory) == 0 {
		return nil
	}
	return &p.PhaseHistory[len(p.PhaseHistory)-1]
}

// EnterPhase appends a new phase history entry.
func (p *ProgressionState) EnterPhase(phase Phase, at time.Time) {
	p.PhaseHistory = append(p.PhaseHistory, PhaseRecord{Phase: phase, StartedAt: at})
}

// HasPhase reports whether the phase appears anywhere in the history.
func (p *ProgressionState) HasPhase(phase Phase) bool {
	for _, rec := range p.PhaseHistory {
		if rec.Phase == phase {
			return true
		}
	}
	return false
}

// AddExploredSkill records a skill as explored. Set semantics.
func (p *ProgressionState) AddExploredSkill(skill string) {
	if skill == "" {
		return
	}
	for _, s := range p.ExploredSkills {
		if s == skill {
			return
		}
	}
	p.ExploredSkills = append(p.ExploredSkills, skill)
}

// QualityInPhase returns the quality records captured during the phase,
// in order.
func (p *ProgressionState) QualityInPhase(phase Phase) []QualityRecord {
	var out []QualityRecord
	for _, q := range p.QualityHistory {
		if q.Phase == phase {
			out = append(out, q)
		}
	}
	return out
}

// LastQuality returns up to the last n quality records, in order.
func (p *ProgressionState) LastQuality(n int) []QualityRecord {
	if n <= 0 || len(p.QualityHistory) == 0 {
		return nil
	}
	if len(p.QualityHistory) < n {
		n = len(p.QualityHistory)
	}
	return p.QualityHistory[len(p.QualityHistory)-n:]
}
