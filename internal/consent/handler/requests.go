package handler

import (
	"strings"

	"guardian/internal/consent/models"
	id "guardian/pkg/domain"
	dErrors "guardian/pkg/domain-errors"
)

// RequestConsentRequest is the body for POST /children/{childID}/consents.
type RequestConsentRequest struct {
	Category string `json:"category"`

	parsed id.ConsentCategory
}

func (r *RequestConsentRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	c, err := id.ParseConsentCategory(strings.TrimSpace(r.Category))
	if err != nil {
		return err
	}
	r.parsed = c
	return nil
}

// InitiateRequest starts a code verification over email or sms.
type InitiateRequest struct {
	Method      string `json:"method"`
	Destination string `json:"destination"`

	parsed models.Method
}

func (r *InitiateRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Destination) > 254 {
		return dErrors.New(dErrors.CodeValidation, "destination must be at most 254 characters")
	}
	r.Destination = strings.TrimSpace(r.Destination)
	if r.Destination == "" {
		return dErrors.New(dErrors.CodeValidation, "destination is required")
	}
	m, err := models.ParseChannel(strings.TrimSpace(r.Method))
	if err != nil {
		return err
	}
	r.parsed = m
	return nil
}

// CompleteRequest carries the code the parent received.
type CompleteRequest struct {
	Code string `json:"code"`
}

func (r *CompleteRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Code = strings.TrimSpace(r.Code)
	if r.Code == "" {
		return dErrors.New(dErrors.CodeValidation, "code is required")
	}
	if len(r.Code) > 16 {
		return dErrors.New(dErrors.CodeValidation, "code is too long")
	}
	return nil
}

// CreateRelationshipRequest is the body for POST /children/{childID}/relationships.
type CreateRelationshipRequest struct {
	Type string `json:"type"`

	parsed models.RelationshipType
}

func (r *CreateRelationshipRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	t, err := models.ParseRelationshipType(strings.TrimSpace(r.Type))
	if err != nil {
		return err
	}
	r.parsed = t
	return nil
}

// DecideRelationshipRequest is used by operators to verify or reject a
// relationship out of band.
type DecideRelationshipRequest struct {
	Decision string `json:"decision"`
	Reason   string `json:"reason"`
}

func (r *DecideRelationshipRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	switch r.Decision {
	case "verify":
	case "reject":
		r.Reason = strings.TrimSpace(r.Reason)
		if r.Reason == "" {
			return dErrors.New(dErrors.CodeValidation, "reason is required when rejecting")
		}
	default:
		return dErrors.New(dErrors.CodeValidation, "decision must be verify or reject")
	}
	return nil
}
