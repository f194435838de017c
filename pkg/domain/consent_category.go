package domain

import (
	"sort"

	dErrors "guardian/pkg/domain-errors"
)

// ConsentCategory names a class of data or action that needs its own parental
// authorization. Invariant: the value is one of the supported categories.
//
// Usage: construct via ParseConsentCategory at trust boundaries; direct
// casting bypasses validation.
type ConsentCategory string

const (
	ConsentDataCollection         ConsentCategory = "data_collection"
	ConsentVoiceRecording         ConsentCategory = "voice_recording"
	ConsentContentPersonalization ConsentCategory = "content_personalization"
	ConsentDataSharing            ConsentCategory = "data_sharing"
	ConsentMarketing              ConsentCategory = "marketing"
)

var validConsentCategories = map[ConsentCategory]bool{
	ConsentDataCollection:         true,
	ConsentVoiceRecording:         true,
	ConsentContentPersonalization: true,
	ConsentDataSharing:            true,
	ConsentMarketing:              true,
}

// ParseConsentCategory constructs a ConsentCategory from external input.
//
// Errors: returns CodeInvalidInput when the value is empty or unsupported.
func ParseConsentCategory(s string) (ConsentCategory, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "consent category cannot be empty")
	}
	c := ConsentCategory(s)
	if !c.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unsupported consent category: "+s)
	}
	return c, nil
}

func (c ConsentCategory) IsValid() bool {
	return validConsentCategories[c]
}

func (c ConsentCategory) String() string {
	return string(c)
}

// SortCategories orders categories for stable output in errors and exports.
func SortCategories(cs []ConsentCategory) []ConsentCategory {
	out := append([]ConsentCategory(nil), cs...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// DataCategory classifies stored artifacts for retention purposes. It is kept
// separate from ConsentCategory; the mapping between the two is policy.
type DataCategory string

const (
	DataVoiceRecording    DataCategory = "voice_recording"
	DataInteractionText   DataCategory = "interaction_text"
	DataAssistantResponse DataCategory = "assistant_response"
	DataProfile           DataCategory = "profile"
)

func (c DataCategory) String() string {
	return string(c)
}

func (c DataCategory) IsValid() bool {
	switch c {
	case DataVoiceRecording, DataInteractionText, DataAssistantResponse, DataProfile:
		return true
	}
	return false
}
