package models

import (
	"time"

	id "guardian/pkg/domain"
)

// Event types on the child stream.
const (
	EventChildRegistered         = "ChildRegistered"
	EventInteractionRecorded     = "InteractionRecorded"
	EventInteractionTimeUpdated  = "InteractionTimeUpdated"
	EventAllowedTopicAdded       = "AllowedTopicAdded"
	EventRestrictedTopicAdded    = "RestrictedTopicAdded"
	EventParentalControlsUpdated = "ParentalControlsUpdated"
	EventDataDeletionRequested   = "DataDeletionRequested"
	EventInteractionDataErased   = "InteractionDataErased"
	EventChildDataErased         = "ChildDataErased"
)

type ChildRegistered struct {
	ChildID      id.ChildID  `json:"child_id"`
	Name         string      `json:"name"`
	Birthdate    time.Time   `json:"birthdate"`
	Language     string      `json:"language"`
	RegisteredBy id.ParentID `json:"registered_by"`
}

type InteractionRecorded struct {
	InteractionID   id.InteractionID  `json:"interaction_id"`
	Kind            InteractionKind   `json:"kind"`
	Categories      []id.DataCategory `json:"categories"`
	RecordedAt      time.Time         `json:"recorded_at"`
	SafetyAction    string            `json:"safety_action,omitempty"`
	NeedsAdaptation bool              `json:"needs_adaptation,omitempty"`
}

type InteractionTimeUpdated struct {
	At time.Time `json:"at"`
}

type TopicAdded struct {
	Topic string `json:"topic"`
}

type ParentalControlsUpdated struct {
	Controls ParentalControls `json:"controls"`
}

// DataDeletionRequested records a deletion obligation. For interaction scope,
// Categories names the artifacts the obligation covers.
type DataDeletionRequested struct {
	Scope         ErasureScope      `json:"scope"`
	InteractionID id.InteractionID  `json:"interaction_id,omitempty"`
	Categories    []id.DataCategory `json:"categories,omitempty"`
	Reason        DeletionReason    `json:"reason"`
	RequestedAt   time.Time         `json:"requested_at"`
}

type InteractionDataErased struct {
	InteractionID id.InteractionID  `json:"interaction_id"`
	Categories    []id.DataCategory `json:"categories"`
	ErasedAt      time.Time         `json:"erased_at"`
}

type ChildDataErased struct {
	Reason   DeletionReason `json:"reason"`
	ErasedAt time.Time      `json:"erased_at"`
}
