package models

import "time"

// MessageType identifies who produced a conversation message.
type MessageType string

const (
	MessageCandidateResponse MessageType = "candidate_response"
	MessageAIQuestion        MessageType = "ai_question"
	// MessageSystemInstruction is the optional leading instruction message
	// of a conversation. It survives memory truncation.
	MessageSystemInstruction MessageType = "system_instruction"
)

// Message is one conversation entry. Messages are ordered by Sequence and
// immutable once written, except for attaching a post-hoc evaluation to
// the most recent candidate message.
type Message struct {
	Sequence  int              `json:"sequence"`
	Type      MessageType      `json:"type"`
	Content   string           `json:"content"`
	Metadata  *MessageMetadata `json:"metadata,omitempty"`
	CreatedAt time.Time        `json:"createdAt"`
}

// MessageMetadata is optional structured metadata attached to a message.
type MessageMetadata struct {
	SkillArea  string                  `json:"skillArea,omitempty"`
	Phase      Phase                   `json:"phase,omitempty"`
	Fallback   bool                    `json:"fallback,omitempty"`
	Evaluation *FunctionCallEvaluation `json:"evaluation,omitempty"`
}

// AnswerQuality is the provider's coarse judgment of one answer.
type AnswerQuality string

const (
	AnswerExcellent          AnswerQuality = "excellent"
	AnswerGood               AnswerQuality = "good"
	AnswerNeedsClarification AnswerQuality = "needs_clarification"
	AnswerOffTopic           AnswerQuality = "off_topic"
)

// NextAction is the provider's recommendation for the conversation.
type NextAction string

const (
	ActionContinue        NextAction = "continue"
	ActionFollowUp        NextAction = "follow_up"
	ActionMoveToNextTopic NextAction = "move_to_next_topic"
)

// FunctionCallEvaluation is the payload of the provider-initiated
// evaluate_candidate_answer function call.
type FunctionCallEvaluation struct {
	AnswerQuality    AnswerQuality     `json:"answer_quality"`
	KeyPointsCovered []string          `json:"key_points_covered"`
	SkillArea        string            `json:"skill_area,omitempty"`
	ProficiencyLevel ProficiencySignal `json:"proficiency_level,omitempty"`
	NextAction       NextAction        `json:"next_action"`
	FollowUpNeeded   bool              `json:"follow_up_needed"`
}
