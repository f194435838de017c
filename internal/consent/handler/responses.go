package handler

import (
	"guardian/internal/consent/models"
	audit "guardian/pkg/platform/audit"
)

type consentsResponse struct {
	Consents []*models.ConsentRecord `json:"consents"`
}

type relationshipsResponse struct {
	Relationships []*models.Relationship `json:"relationships"`
}

type accessEntry struct {
	Timestamp string `json:"timestamp"`
	Action    string `json:"action"`
	Actor     string `json:"actor"`
	ParentID  string `json:"parent_id,omitempty"`
	Category  string `json:"category,omitempty"`
	Decision  string `json:"decision"`
	Reason    string `json:"reason,omitempty"`
}

type accessTrailResponse struct {
	Entries []accessEntry `json:"entries"`
}

func toAccessTrail(events []audit.Event) accessTrailResponse {
	out := accessTrailResponse{Entries: make([]accessEntry, 0, len(events))}
	for _, e := range events {
		entry := accessEntry{
			Timestamp: e.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
			Action:    e.Action,
			Actor:     e.Actor,
			Category:  e.ConsentCategory,
			Decision:  e.Decision,
			Reason:    e.Reason,
		}
		if !e.ParentID.IsNil() {
			entry.ParentID = e.ParentID.String()
		}
		out.Entries = append(out.Entries, entry)
	}
	return out
}
