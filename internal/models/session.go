// Package models defines the data structures persisted for interview sessions.
package models

import (
	"encoding/json"
	"time"
)

// Phase is a named difficulty tier of the interview.
type Phase string

const (
	PhaseWarmup   Phase = "warmup"
	PhaseStandard Phase = "standard"
	PhaseAdvanced Phase = "advanced"
)

// Rank returns the ordinal position of the phase. Higher is harder.
func (p Phase) Rank() int {
	switch p {
	case PhaseWarmup:
		return 0
	case PhaseStandard:
		return 1
	case PhaseAdvanced:
		return 2
	default:
		return -1
	}
}

// Valid reports whether p is a known phase.
func (p Phase) Valid() bool {
	return p.Rank() >= 0
}

// SessionStatus is the lifecycle status of an interview session.
type SessionStatus string

const (
	StatusActive    SessionStatus = "active"
	StatusCompleted SessionStatus = "completed"
	StatusAbandoned SessionStatus = "abandoned"
)

// InterviewSession is the state of one interview attempt. It is owned
// exclusively by one turn (or one realtime connection) at a time; the
// caller serializes concurrent turns against the same session.
type InterviewSession struct {
	ID              string                      `json:"id"`
	InterviewID     string                      `json:"interviewId"`
	RoleType        string                      `json:"roleType"`
	Phase           Phase                       `json:"phase"`
	QuestionsAsked  int                         `json:"questionsAsked"`
	Status          SessionStatus               `json:"status"`
	SkillBoundaries map[string]ProficiencyLevel `json:"skillBoundaries"`
	Progression     ProgressionState            `json:"progression"`
	MemoryRecord    json.RawMessage             `json:"memoryRecord,omitempty"`
	LastActivityAt  time.Time                   `json:"lastActivityAt"`
	CreatedAt       time.Time                   `json:"createdAt"`
	UpdatedAt       time.Time                   `json:"updatedAt"`
}

// NewInterviewSession creates an active warmup session for an interview.
func NewInterviewSession(id, interviewID, roleType string, now time.Time) *InterviewSession {
	return &InterviewSession{
		ID:              id,
		InterviewID:     interviewID,
		RoleType:        roleType,
		Phase:           PhaseWarmup,
		Status:          StatusActive,
		SkillBoundaries: make(map[string]ProficiencyLevel),
		Progression: ProgressionState{
			Version: 1,
			PhaseHistory: []PhaseRecord{
				{Phase: PhaseWarmup, StartedAt: now},
			},
		},
		LastActivityAt: now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// BoundarySkills returns the skills whose boundary has been reached.
func (s *InterviewSession) BoundarySkills() []string {
	var skills []string
	for skill, level := range s.SkillBoundaries {
		if level == ProficiencyBoundaryReached {
			skills = append(skills, skill)
		}
	}
	return skills
}

// StrongSkillCount counts skills assessed proficient, comfortable or
// boundary_reached. Used by the interview completion rule.
func (s *InterviewSession) StrongSkillCount() int {
	n := 0
	for _, level := range s.SkillBoundaries {
		switch level {
		case ProficiencyComfortable, ProficiencyProficient, ProficiencyBoundaryReached:
			n++
		}
	}
	return n
}
