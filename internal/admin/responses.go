package admin

import "time"

// RetentionRunResponse is the HTTP response DTO for a manual retention pass.
type RetentionRunResponse struct {
	RanAt     time.Time `json:"ran_at"`
	Due       int       `json:"due"`
	Deleted   int       `json:"deleted"`
	Failed    int       `json:"failed"`
	Escalated int       `json:"escalated"`
}
