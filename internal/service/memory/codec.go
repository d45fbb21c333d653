// Package memory serializes bounded conversation history to and from the
// persisted memory record, truncating on overflow.
package memory

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"ai-interview-engine/internal/models"
)

// recordVersion is the current memory record schema version.
const recordVersion = 1

// record is the versioned persisted shape of conversation memory.
type record struct {
	Version  int                   `json:"version"`
	Messages []models.Message      `json:"messages"`
	Metadata models.MemoryMetadata `json:"metadata"`
}

// Codec serializes and truncates conversation memory records.
type Codec struct {
	// KeepLastN is the number of candidate/AI exchange pairs retained
	// by truncation.
	KeepLastN int
	// MaxBytes is the serialized size above which the orchestrator
	// should truncate. Zero disables size-based truncation.
	MaxBytes int
}

// NewCodec creates a codec with the given retention settings.
func NewCodec(keepLastN, maxBytes int) *Codec {
	if keepLastN <= 0 {
		keepLastN = 5
	}
	return &Codec{KeepLastN: keepLastN, MaxBytes: maxBytes}
}

// Serialize encodes messages and metadata into a persisted record.
func (c *Codec) Serialize(messages []models.Message, meta models.MemoryMetadata) (json.RawMessage, error) {
	meta.MessageCount = len(messages)
	rec := record{
		Version:  recordVersion,
		Messages: messages,
		Metadata: meta,
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return nil, errors.Wrap(err, "serialize memory record")
	}
	return b, nil
}

// Deserialize decodes a persisted record. An empty record yields empty
// memory with zero metadata.
func (c *Codec) Deserialize(raw json.RawMessage) ([]models.Message, models.MemoryMetadata, error) {
	if len(raw) == 0 {
		return nil, models.MemoryMetadata{}, nil
	}
	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, models.MemoryMetadata{}, errors.Wrap(err, "deserialize memory record")
	}
	return rec.Messages, rec.Metadata, nil
}

// NeedsTruncation reports whether the record exceeds the configured size.
func (c *Codec) NeedsTruncation(raw json.RawMessage) bool {
	return c.MaxBytes > 0 && len(raw) > c.MaxBytes
}

// Truncate drops the middle of the conversation, keeping the optional
// leading instruction message plus the last KeepLastN exchange pairs.
// Idempotent: a record already within the retained window is returned
// unchanged, without touching the truncation counter.
func (c *Codec) Truncate(raw json.RawMessage, now time.Time) (json.RawMessage, error) {
	messages, meta, err := c.Deserialize(raw)
	if err != nil {
		return nil, err
	}

	keep := c.KeepLastN * 2
	// One extra slot reserved for the leading instruction message, so an
	// already-truncated record is never re-truncated.
	if len(messages) <= keep+1 {
		return raw, nil
	}

	var retained []models.Message
	if messages[0].Type == models.MessageSystemInstruction {
		retained = append(retained, messages[0])
	}
	retained = append(retained, messages[len(messages)-keep:]...)

	meta.TruncationCount++
	meta.UpdatedAt = now

	return c.Serialize(retained, meta)
}
