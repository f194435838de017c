// Package policy derives legal obligations from a child's age. Everything
// here is pure: no I/O, no clock reads, no shared mutable state.
package policy

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	id "guardian/pkg/domain"
	dErrors "guardian/pkg/domain-errors"
)

// Classification is the legal age class a child falls into.
type Classification string

const (
	ClassProtectedChild Classification = "protected_child"
	ClassMinor          Classification = "minor"
)

// Operation names an action that may require consent.
type Operation string

const (
	OpRegister               Operation = "register"
	OpStoreVoiceInteraction  Operation = "store_voice_interaction"
	OpStoreTextInteraction   Operation = "store_text_interaction"
	OpTouchInteraction       Operation = "touch_interaction"
	OpAddAllowedTopic        Operation = "add_allowed_topic"
	OpAddRestrictedTopic     Operation = "add_restricted_topic"
	OpUpdateParentalControls Operation = "update_parental_controls"
	OpShareData              Operation = "share_data"
	OpSendMarketing          Operation = "send_marketing"
)

// Config is the externally supplied policy. Zero values are replaced by
// DefaultConfig in New.
type Config struct {
	ProtectionAgeThreshold int
	MinSupportedAge        int
	MaxSupportedAge        int
	DeletionGraceDays      int
	// ConsentTable maps classification and operation to the categories that
	// must all be authorized. An operation missing from the table is refused.
	ConsentTable map[Classification]map[Operation][]id.ConsentCategory
	// RetentionDays maps data category and classification to a retention period.
	RetentionDays map[id.DataCategory]map[Classification]int
}

// DefaultConfig returns the built-in tables.
func DefaultConfig() Config {
	protected := map[Operation][]id.ConsentCategory{
		OpRegister:               {},
		OpStoreVoiceInteraction:  {id.ConsentDataCollection, id.ConsentVoiceRecording},
		OpStoreTextInteraction:   {id.ConsentDataCollection},
		OpTouchInteraction:       {id.ConsentDataCollection},
		OpAddAllowedTopic:        {id.ConsentContentPersonalization},
		OpAddRestrictedTopic:     {},
		OpUpdateParentalControls: {},
		OpShareData:              {id.ConsentDataCollection, id.ConsentDataSharing},
		OpSendMarketing:          {id.ConsentMarketing},
	}
	minor := map[Operation][]id.ConsentCategory{
		OpRegister:               {},
		OpStoreVoiceInteraction:  {id.ConsentVoiceRecording},
		OpStoreTextInteraction:   {},
		OpTouchInteraction:       {},
		OpAddAllowedTopic:        {id.ConsentContentPersonalization},
		OpAddRestrictedTopic:     {},
		OpUpdateParentalControls: {},
		OpShareData:              {id.ConsentDataSharing},
		OpSendMarketing:          {id.ConsentMarketing},
	}
	return Config{
		ProtectionAgeThreshold: 13,
		MinSupportedAge:        3,
		MaxSupportedAge:        17,
		DeletionGraceDays:      30,
		ConsentTable: map[Classification]map[Operation][]id.ConsentCategory{
			ClassProtectedChild: protected,
			ClassMinor:          minor,
		},
		RetentionDays: map[id.DataCategory]map[Classification]int{
			id.DataVoiceRecording:    {ClassProtectedChild: 90, ClassMinor: 180},
			id.DataInteractionText:   {ClassProtectedChild: 90, ClassMinor: 365},
			id.DataAssistantResponse: {ClassProtectedChild: 90, ClassMinor: 365},
			id.DataProfile:           {ClassProtectedChild: 365, ClassMinor: 730},
		},
	}
}

// Engine evaluates a Config. It is immutable after construction.
type Engine struct {
	cfg Config
}

// New fills zero fields from DefaultConfig and validates the result.
func New(cfg Config) (*Engine, error) {
	def := DefaultConfig()
	if cfg.ProtectionAgeThreshold == 0 {
		cfg.ProtectionAgeThreshold = def.ProtectionAgeThreshold
	}
	if cfg.MinSupportedAge == 0 && cfg.MaxSupportedAge == 0 {
		cfg.MinSupportedAge, cfg.MaxSupportedAge = def.MinSupportedAge, def.MaxSupportedAge
	}
	if cfg.DeletionGraceDays == 0 {
		cfg.DeletionGraceDays = def.DeletionGraceDays
	}
	if cfg.ConsentTable == nil {
		cfg.ConsentTable = def.ConsentTable
	}
	if cfg.RetentionDays == nil {
		cfg.RetentionDays = def.RetentionDays
	}
	if cfg.MinSupportedAge < 0 || cfg.MinSupportedAge > cfg.MaxSupportedAge {
		return nil, fmt.Errorf("policy: supported age range %d-%d is invalid", cfg.MinSupportedAge, cfg.MaxSupportedAge)
	}
	if cfg.DeletionGraceDays < 0 {
		return nil, fmt.Errorf("policy: deletion grace must not be negative")
	}
	for cat, byClass := range cfg.RetentionDays {
		for class, days := range byClass {
			if days <= 0 {
				return nil, fmt.Errorf("policy: retention for %s/%s must be positive", cat, class)
			}
		}
	}
	for class, ops := range cfg.ConsentTable {
		for op, cats := range ops {
			for _, c := range cats {
				if !c.IsValid() {
					return nil, fmt.Errorf("policy: %s/%s references unknown category %q", class, op, c)
				}
			}
		}
	}
	return &Engine{cfg: cfg}, nil
}

// AgeFromBirthdate returns completed years at asOf. A birthday on Feb 29 is
// reached on Mar 1 in non-leap years.
func AgeFromBirthdate(birthdate, asOf time.Time) int {
	b := birthdate.UTC()
	a := asOf.UTC()
	age := a.Year() - b.Year()
	if a.Month() < b.Month() || (a.Month() == b.Month() && a.Day() < b.Day()) {
		age--
	}
	if age < 0 {
		return 0
	}
	return age
}

// IsSubjectToSpecialProtection reports whether age is below the threshold.
func (e *Engine) IsSubjectToSpecialProtection(age int) bool {
	return age < e.cfg.ProtectionAgeThreshold
}

// Classify maps an age to its classification.
func (e *Engine) Classify(age int) Classification {
	if e.IsSubjectToSpecialProtection(age) {
		return ClassProtectedChild
	}
	return ClassMinor
}

// SupportsAge reports whether the product may hold a profile for age.
func (e *Engine) SupportsAge(age int) bool {
	return age >= e.cfg.MinSupportedAge && age <= e.cfg.MaxSupportedAge
}

// SupportedAgeRange returns the inclusive supported range.
func (e *Engine) SupportedAgeRange() (int, int) {
	return e.cfg.MinSupportedAge, e.cfg.MaxSupportedAge
}

// RequiredConsentCategories returns the categories op needs at age, sorted.
// Operations absent from the table are refused rather than assumed free.
func (e *Engine) RequiredConsentCategories(age int, op Operation) ([]id.ConsentCategory, error) {
	cats, ok := e.cfg.ConsentTable[e.Classify(age)][op]
	if !ok {
		return nil, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("no consent policy for operation %q", op))
	}
	return id.SortCategories(cats), nil
}

// RetentionPeriod returns how long data of category may be kept for class.
func (e *Engine) RetentionPeriod(category id.DataCategory, class Classification) (time.Duration, error) {
	days, ok := e.cfg.RetentionDays[category][class]
	if !ok {
		return 0, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("no retention policy for %s/%s", category, class))
	}
	return time.Duration(days) * 24 * time.Hour, nil
}

// DeletionGrace is the window after scheduled deletion within which it must complete.
func (e *Engine) DeletionGrace() time.Duration {
	return time.Duration(e.cfg.DeletionGraceDays) * 24 * time.Hour
}

// ParseRetentionOverrides parses "category:classification=days" pairs
// separated by commas and merges them over base.
func ParseRetentionOverrides(base map[id.DataCategory]map[Classification]int, overrides string) (map[id.DataCategory]map[Classification]int, error) {
	out := make(map[id.DataCategory]map[Classification]int, len(base))
	for cat, byClass := range base {
		out[cat] = make(map[Classification]int, len(byClass))
		for class, days := range byClass {
			out[cat][class] = days
		}
	}
	for _, part := range strings.Split(overrides, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lhs, rhs, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("retention override %q: missing '='", part)
		}
		catStr, classStr, ok := strings.Cut(lhs, ":")
		if !ok {
			return nil, fmt.Errorf("retention override %q: missing ':'", part)
		}
		cat := id.DataCategory(strings.TrimSpace(catStr))
		if !cat.IsValid() {
			return nil, fmt.Errorf("retention override %q: unknown data category", part)
		}
		class := Classification(strings.TrimSpace(classStr))
		if class != ClassProtectedChild && class != ClassMinor {
			return nil, fmt.Errorf("retention override %q: unknown classification", part)
		}
		days, err := strconv.Atoi(strings.TrimSpace(rhs))
		if err != nil || days <= 0 {
			return nil, fmt.Errorf("retention override %q: days must be a positive integer", part)
		}
		if out[cat] == nil {
			out[cat] = make(map[Classification]int)
		}
		out[cat][class] = days
	}
	return out, nil
}
