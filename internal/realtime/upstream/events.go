// Package upstream speaks the realtime speech-conversation provider's
// WebSocket event protocol.
package upstream

import "encoding/json"

// Event types consumed from the provider.
const (
	EventSessionUpdated          = "session.updated"
	EventResponseAudioDelta      = "response.audio.delta"
	EventTranscriptDelta         = "response.audio_transcript.delta"
	EventTranscriptDone          = "response.audio_transcript.done"
	EventInputTranscriptComplete = "conversation.item.input_audio_transcription.completed"
	EventFunctionCallDone        = "response.function_call_arguments.done"
	EventError                   = "error"
)

// Event types produced toward the provider.
const (
	EventSessionUpdate    = "session.update"
	EventAudioAppend      = "input_audio_buffer.append"
	EventAudioCommit      = "input_audio_buffer.commit"
	EventResponseCreate   = "response.create"
	EventConversationItem = "conversation.item.create"
)

// Event is one provider protocol event, either direction. Only the
// fields relevant to the event type are populated.
type Event struct {
	Type string `json:"type"`

	// Audio payloads, base64-encoded.
	Audio string `json:"audio,omitempty"`
	Delta string `json:"delta,omitempty"`

	// Transcript-completion payloads.
	Transcript string `json:"transcript,omitempty"`

	// Function-call payloads.
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
	CallID    string `json:"call_id,omitempty"`

	// session.update payload.
	Session *SessionConfig `json:"session,omitempty"`

	// response.create payload.
	Response *ResponseParams `json:"response,omitempty"`

	// conversation.item.create payload.
	Item *ConversationItem `json:"item,omitempty"`

	// error payload.
	Error *ProviderError `json:"error,omitempty"`
}

// SessionConfig is the session.update payload configuring the realtime
// conversation.
type SessionConfig struct {
	Modalities              []string       `json:"modalities,omitempty"`
	Instructions            string         `json:"instructions,omitempty"`
	Voice                   string         `json:"voice,omitempty"`
	InputAudioFormat        string         `json:"input_audio_format,omitempty"`
	OutputAudioFormat       string         `json:"output_audio_format,omitempty"`
	InputAudioTranscription *Transcription `json:"input_audio_transcription,omitempty"`
	TurnDetection           *TurnDetection `json:"turn_detection,omitempty"`
	Tools                   []Tool         `json:"tools,omitempty"`
	ToolChoice              string         `json:"tool_choice,omitempty"`
}

// Transcription enables input-audio transcription.
type Transcription struct {
	Model string `json:"model"`
}

// TurnDetection configures server-side voice activity detection.
type TurnDetection struct {
	Type              string  `json:"type"`
	Threshold         float64 `json:"threshold,omitempty"`
	PrefixPaddingMs   int     `json:"prefix_padding_ms,omitempty"`
	SilenceDurationMs int     `json:"silence_duration_ms,omitempty"`
}

// Tool declares one function tool to the provider.
type Tool struct {
	Type        string          `json:"type"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// ResponseParams is the response.create payload.
type ResponseParams struct {
	Modalities []string `json:"modalities,omitempty"`
}

// ConversationItem is the conversation.item.create payload, used to
// return function-call outputs.
type ConversationItem struct {
	Type   string `json:"type"`
	CallID string `json:"call_id,omitempty"`
	Output string `json:"output,omitempty"`
}

// ProviderError is the provider's error event payload.
type ProviderError struct {
	Type    string `json:"type,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}
