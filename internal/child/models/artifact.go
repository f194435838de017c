package models

import (
	"time"

	id "guardian/pkg/domain"
)

// Artifact is stored interaction content. Each artifact belongs to exactly one
// data category so that retention can delete it independently.
type Artifact struct {
	ChildID       id.ChildID       `json:"child_id"`
	InteractionID id.InteractionID `json:"interaction_id"`
	Category      id.DataCategory  `json:"category"`
	ContentType   string           `json:"content_type"`
	Content       []byte           `json:"content"`
	CreatedAt     time.Time        `json:"created_at"`
}
