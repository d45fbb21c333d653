package models

import "time"

// MemoryMetadata describes a persisted conversation memory record.
type MemoryMetadata struct {
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
	MessageCount    int       `json:"messageCount"`
	TruncationCount int       `json:"truncationCount"`
}
