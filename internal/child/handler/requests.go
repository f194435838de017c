package handler

import (
	"strings"
	"time"

	"guardian/internal/child/models"
	"guardian/internal/child/service"
	consentmodels "guardian/internal/consent/models"
	id "guardian/pkg/domain"
	dErrors "guardian/pkg/domain-errors"
	strutil "guardian/pkg/platform/strings"
)

// RegisterChildRequest is the body for POST /children.
type RegisterChildRequest struct {
	Name         string `json:"name"`
	Birthdate    string `json:"birthdate"`
	Language     string `json:"language"`
	Relationship string `json:"relationship"`

	parsed service.RegisterRequest
}

func (r *RegisterChildRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	birthdate, err := time.Parse(time.DateOnly, strings.TrimSpace(r.Birthdate))
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "birthdate must be a date in YYYY-MM-DD format")
	}
	rel, err := consentmodels.ParseRelationshipType(strings.TrimSpace(r.Relationship))
	if err != nil {
		return err
	}
	r.parsed = service.RegisterRequest{
		Name:         r.Name,
		Birthdate:    birthdate,
		Language:     r.Language,
		Relationship: rel,
	}
	return nil
}

// StoreInteractionRequest carries one exchange. Audio is base64 in JSON.
type StoreInteractionRequest struct {
	Kind             string `json:"kind"`
	Audio            []byte `json:"audio,omitempty"`
	AudioContentType string `json:"audio_content_type,omitempty"`
	Transcript       string `json:"transcript,omitempty"`
	Response         string `json:"response,omitempty"`
}

func (r *StoreInteractionRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	switch models.InteractionKind(r.Kind) {
	case models.InteractionVoice, models.InteractionText:
	default:
		return dErrors.New(dErrors.CodeValidation, "kind must be voice or text")
	}
	return nil
}

func (r *StoreInteractionRequest) input() service.InteractionInput {
	return service.InteractionInput{
		Kind:             models.InteractionKind(r.Kind),
		Audio:            r.Audio,
		AudioContentType: r.AudioContentType,
		Transcript:       r.Transcript,
		Response:         r.Response,
	}
}

type TopicRequest struct {
	Topic string `json:"topic"`
}

func (r *TopicRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	t, err := models.NormalizeTopic(r.Topic)
	if err != nil {
		return err
	}
	r.Topic = t
	return nil
}

type ParentalControlsRequest struct {
	DailyLimitMinutes *int   `json:"daily_limit_minutes"`
	QuietHoursStart   *int   `json:"quiet_hours_start"`
	QuietHoursEnd     *int   `json:"quiet_hours_end"`
	FilterLevel       string `json:"filter_level"`

	parsed models.ParentalControls
}

func (r *ParentalControlsRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.DailyLimitMinutes == nil || r.QuietHoursStart == nil || r.QuietHoursEnd == nil {
		return dErrors.New(dErrors.CodeValidation, "daily_limit_minutes, quiet_hours_start and quiet_hours_end are required")
	}
	c := models.ParentalControls{
		DailyLimitMinutes: *r.DailyLimitMinutes,
		QuietHoursStart:   *r.QuietHoursStart,
		QuietHoursEnd:     *r.QuietHoursEnd,
		FilterLevel:       models.FilterLevel(strings.TrimSpace(r.FilterLevel)),
	}
	if err := c.Validate(); err != nil {
		return err
	}
	r.parsed = c
	return nil
}

// DeletionRequest is the body for POST /children/{childID}/deletion-requests.
type DeletionRequest struct {
	Scope         string   `json:"scope"`
	InteractionID string   `json:"interaction_id,omitempty"`
	Categories    []string `json:"categories,omitempty"`

	scope       models.ErasureScope
	interaction id.InteractionID
	categories  []id.DataCategory
}

func (r *DeletionRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	switch models.ErasureScope(r.Scope) {
	case models.ScopeAll:
		if r.InteractionID != "" || len(r.Categories) > 0 {
			return dErrors.New(dErrors.CodeValidation, "scope all takes no interaction or categories")
		}
	case models.ScopeInteraction:
		iid, err := id.ParseInteractionID(r.InteractionID)
		if err != nil {
			return err
		}
		r.interaction = iid
		for _, c := range strutil.NormalizeSet(r.Categories) {
			dc := id.DataCategory(c)
			if !dc.IsValid() || dc == id.DataProfile {
				return dErrors.New(dErrors.CodeValidation, "unknown interaction data category: "+c)
			}
			r.categories = append(r.categories, dc)
		}
	default:
		return dErrors.New(dErrors.CodeValidation, "scope must be interaction or all")
	}
	r.scope = models.ErasureScope(r.Scope)
	return nil
}

// PairDeviceRequest is the body for POST /children/{childID}/devices.
type PairDeviceRequest struct {
	DeviceID string `json:"device_id"`
}

func (r *PairDeviceRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.DeviceID = strings.TrimSpace(r.DeviceID)
	switch {
	case r.DeviceID == "":
		return dErrors.New(dErrors.CodeValidation, "device_id is required")
	case len(r.DeviceID) > maxDeviceIDLength:
		return dErrors.New(dErrors.CodeValidation, "device_id is too long")
	}
	return nil
}

const maxDeviceIDLength = 128

// PairDeviceResponse hands the device its access token.
type PairDeviceResponse struct {
	DeviceID    string     `json:"device_id"`
	ChildID     id.ChildID `json:"child_id"`
	AccessToken string     `json:"access_token"`
	ExpiresAt   time.Time  `json:"expires_at"`
}
