package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"guardian/internal/child/models"
	"guardian/internal/policy"
	safetymodels "guardian/internal/safety/models"
	id "guardian/pkg/domain"
	dErrors "guardian/pkg/domain-errors"
	"guardian/pkg/requestcontext"
)

const maxTranscriptLength = 8 << 10

// InteractionInput is one exchange between the child and the assistant.
// Audio is present only for voice interactions; Response, when present, is
// reviewed before anything is stored.
type InteractionInput struct {
	Kind             models.InteractionKind
	Audio            []byte
	AudioContentType string
	Transcript       string
	Response         string
}

// InteractionResult carries the stored interaction and the safety review.
// Safety is set even when the response was refused.
type InteractionResult struct {
	InteractionID   id.InteractionID     `json:"interaction_id"`
	Version         int64                `json:"version"`
	NeedsAdaptation bool                 `json:"needs_adaptation"`
	Safety          *safetymodels.Result `json:"safety,omitempty"`
}

// artifacts splits the input into one artifact per data category.
func (in InteractionInput) artifacts(childID id.ChildID, iid id.InteractionID, now time.Time) ([]models.Artifact, error) {
	var out []models.Artifact
	add := func(c id.DataCategory, contentType string, content []byte) {
		out = append(out, models.Artifact{
			ChildID:       childID,
			InteractionID: iid,
			Category:      c,
			ContentType:   contentType,
			Content:       content,
			CreatedAt:     now.UTC(),
		})
	}
	switch in.Kind {
	case models.InteractionVoice:
		if len(in.Audio) == 0 {
			return nil, dErrors.New(dErrors.CodeValidation, "voice interaction requires audio")
		}
		ct := in.AudioContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		add(id.DataVoiceRecording, ct, in.Audio)
	case models.InteractionText:
		if len(in.Audio) > 0 {
			return nil, dErrors.New(dErrors.CodeValidation, "text interaction must not carry audio")
		}
		if strings.TrimSpace(in.Transcript) == "" {
			return nil, dErrors.New(dErrors.CodeValidation, "text interaction requires a transcript")
		}
	default:
		return nil, dErrors.New(dErrors.CodeValidation, "interaction kind must be voice or text")
	}
	if len(in.Transcript) > maxTranscriptLength || len(in.Response) > maxTranscriptLength {
		return nil, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("text content is limited to %d bytes", maxTranscriptLength))
	}
	if in.Transcript != "" {
		add(id.DataInteractionText, "text/plain; charset=utf-8", []byte(in.Transcript))
	}
	if in.Response != "" {
		add(id.DataAssistantResponse, "text/plain; charset=utf-8", []byte(in.Response))
	}
	return out, nil
}

func operationFor(kind models.InteractionKind) policy.Operation {
	if kind == models.InteractionVoice {
		return policy.OpStoreVoiceInteraction
	}
	return policy.OpStoreTextInteraction
}

// StoreInteraction stores an interaction for a device or a verified parent.
// Consent is enforced first; an assistant response the safety review will
// not deliver is refused with content_blocked and nothing is stored.
// Retention is registered before the artifacts are written and before the
// event is appended.
func (s *Service) StoreInteraction(ctx context.Context, childID id.ChildID, in InteractionInput) (*InteractionResult, error) {
	res, err := s.storeInteraction(ctx, childID, in)
	s.metrics.IncOperation("store_interaction", outcome(err))
	return res, err
}

func (s *Service) storeInteraction(ctx context.Context, childID id.ChildID, in InteractionInput) (*InteractionResult, error) {
	if err := s.authorize(ctx, childID, true); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	iid := id.NewInteractionID()
	artifacts, err := in.artifacts(childID, iid, now)
	if err != nil {
		return nil, err
	}
	p, err := s.load(ctx, childID)
	if err != nil {
		return nil, err
	}
	if p.Erased {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "child data has been erased")
	}
	age := p.AgeAt(now)
	if err := s.requireConsent(ctx, p, operationFor(in.Kind), age); err != nil {
		return nil, err
	}

	result := &InteractionResult{InteractionID: iid}
	if in.Response != "" {
		review, err := s.review(ctx, p, age, in.Response)
		if err != nil {
			return nil, err
		}
		result.Safety = review
		if !review.RecommendedAction.Delivers() {
			s.metrics.IncBlocked()
			s.logger.WarnContext(ctx, "assistant response refused",
				"child_id", childID,
				"action", review.RecommendedAction,
				"risk_level", review.RiskLevel,
			)
			return result, dErrors.New(dErrors.CodeContentBlocked,
				fmt.Sprintf("assistant response was not delivered: safety review recommends %s", review.RecommendedAction))
		}
		result.NeedsAdaptation = review.RecommendedAction == safetymodels.ActionModify
	}

	categories := make([]id.DataCategory, 0, len(artifacts))
	for _, a := range artifacts {
		categories = append(categories, a.Category)
	}
	if _, err := s.retention.Register(ctx, childID, iid, categories, s.policy.Classify(age), now); err != nil {
		return nil, err
	}
	for _, a := range artifacts {
		if err := s.artifacts.Save(ctx, a); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store interaction content")
		}
	}

	var safetyAction string
	if result.Safety != nil {
		safetyAction = string(result.Safety.RecommendedAction)
	}
	saved, err := s.mutate(ctx, "store_interaction", childID, func(p *models.Profile) error {
		return p.RecordInteraction(iid, in.Kind, categories, safetyAction, result.NeedsAdaptation, now)
	})
	if err != nil {
		// Content without a recorded interaction stays covered by its
		// registrations and is removed when they fall due.
		s.logger.WarnContext(ctx, "interaction content stored but not recorded",
			"child_id", childID,
			"interaction_id", iid,
			"error", err,
		)
		return nil, err
	}
	result.Version = saved.Version
	s.extendProfile(ctx, childID, now)
	return result, nil
}

// review runs the assistant response through the safety pipeline. An
// evaluation error is never treated as a pass.
func (s *Service) review(ctx context.Context, p *models.Profile, age int, response string) (*safetymodels.Result, error) {
	res, err := s.safety.Evaluate(ctx, safetymodels.Candidate{
		Text:     response,
		Source:   "assistant",
		Language: p.Language,
	}, safetymodels.ChildContext{
		ChildID:          p.ID,
		Age:              age,
		Language:         p.Language,
		FilterLevel:      string(p.Controls.FilterLevel),
		AllowedTopics:    p.AllowedTopics,
		RestrictedTopics: p.RestrictedTopics,
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeSafetyAnalyzerUnavailable, "safety review failed")
	}
	if res == nil {
		return nil, dErrors.New(dErrors.CodeSafetyAnalyzerUnavailable, "safety review returned no result")
	}
	return res, nil
}

// TouchInteraction records device activity without storing content.
func (s *Service) TouchInteraction(ctx context.Context, childID id.ChildID) (*models.Profile, error) {
	p, err := s.gated(ctx, "touch_interaction", childID, policy.OpTouchInteraction, true, func(p *models.Profile, now time.Time) error {
		return p.UpdateInteractionTime(now)
	})
	s.metrics.IncOperation("touch_interaction", outcome(err))
	if err != nil {
		return nil, err
	}
	s.extendProfile(ctx, childID, requestcontext.Now(ctx))
	return p, nil
}

// extendProfile keeps profile data for its retention period after the last
// activity. A failure leaves the earlier date in place.
func (s *Service) extendProfile(ctx context.Context, childID id.ChildID, at time.Time) {
	if err := s.retention.Extend(ctx, childID, id.DataProfile, at); err != nil {
		s.logger.WarnContext(ctx, "failed to extend profile retention",
			"child_id", childID,
			"error", err,
		)
	}
}
