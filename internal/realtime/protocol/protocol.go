// Package protocol defines the client-facing WebSocket message schema of
// the realtime interview channel.
package protocol

// Inbound frame types (client → server).
const (
	TypeAudioChunk  = "audio_chunk"
	TypeAudioCommit = "audio_commit"
	TypePing        = "ping"
)

// Outbound frame types (server → client).
const (
	TypeConnected       = "connected"
	TypeAIAudioChunk    = "ai_audio_chunk"
	TypeTranscriptDelta = "transcript_delta"
	TypeTranscript      = "transcript"
	TypeError           = "error"
	TypePong            = "pong"
)

// Close codes. ClosePolicyViolation covers bad or missing auth and
// access denial; internal failures use the standard 1011.
const (
	ClosePolicyViolation = 4403
	CloseServerError     = 1011
)

// ClientFrame is one inbound message from the candidate's client.
type ClientFrame struct {
	Type  string `json:"type"`
	Audio string `json:"audio,omitempty"`
}

// ServerFrame is one outbound message to the candidate's client.
type ServerFrame struct {
	Type        string `json:"type"`
	SessionID   string `json:"session_id,omitempty"`
	InterviewID string `json:"interview_id,omitempty"`
	Audio       string `json:"audio,omitempty"`
	IsFinal     bool   `json:"is_final,omitempty"`
	Role        string `json:"role,omitempty"`
	Text        string `json:"text,omitempty"`
	MessageID   string `json:"message_id,omitempty"`
	Error       string `json:"error,omitempty"`
	Message     string `json:"message,omitempty"`
}

// Connected builds the handshake acknowledgment frame.
func Connected(sessionID, interviewID string) ServerFrame {
	return ServerFrame{Type: TypeConnected, SessionID: sessionID, InterviewID: interviewID}
}

// Error builds a typed error frame.
func Error(code, message string) ServerFrame {
	return ServerFrame{Type: TypeError, Error: code, Message: message}
}
