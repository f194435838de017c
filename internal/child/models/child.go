// Package models holds the child-profile aggregate. The aggregate decides
// whether a mutation is legal given its current state; consent is checked
// by the caller before any method here runs.
package models

import (
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/text/language"

	eventmodels "guardian/internal/eventlog/models"
	"guardian/internal/policy"
	id "guardian/pkg/domain"
	dErrors "guardian/pkg/domain-errors"
)

const (
	maxNameLength  = 100
	maxTopicLength = 64
)

type InteractionKind string

const (
	InteractionVoice InteractionKind = "voice"
	InteractionText  InteractionKind = "text"
)

type FilterLevel string

const (
	FilterStrict   FilterLevel = "strict"
	FilterModerate FilterLevel = "moderate"
	FilterRelaxed  FilterLevel = "relaxed"
)

type ErasureScope string

const (
	ScopeInteraction ErasureScope = "interaction"
	ScopeAll         ErasureScope = "all"
)

type DeletionReason string

const (
	ReasonRetentionExpired DeletionReason = "retention_expired"
	ReasonParentRequest    DeletionReason = "parent_request"
)

// ParentalControls are the parent-managed limits for the device.
type ParentalControls struct {
	DailyLimitMinutes int         `json:"daily_limit_minutes"`
	QuietHoursStart   int         `json:"quiet_hours_start"`
	QuietHoursEnd     int         `json:"quiet_hours_end"`
	FilterLevel       FilterLevel `json:"filter_level"`
}

// DefaultParentalControls apply until a parent changes them.
func DefaultParentalControls() ParentalControls {
	return ParentalControls{DailyLimitMinutes: 60, QuietHoursStart: 20, QuietHoursEnd: 7, FilterLevel: FilterStrict}
}

func (c ParentalControls) Validate() error {
	if c.DailyLimitMinutes < 0 || c.DailyLimitMinutes > 24*60 {
		return dErrors.New(dErrors.CodeValidation, "daily_limit_minutes must be between 0 and 1440")
	}
	if c.QuietHoursStart < 0 || c.QuietHoursStart > 23 || c.QuietHoursEnd < 0 || c.QuietHoursEnd > 23 {
		return dErrors.New(dErrors.CodeValidation, "quiet hours must be between 0 and 23")
	}
	switch c.FilterLevel {
	case FilterStrict, FilterModerate, FilterRelaxed:
	default:
		return dErrors.New(dErrors.CodeValidation, "filter_level must be strict, moderate or relaxed")
	}
	return nil
}

// Interaction is the aggregate's reference to a stored artifact. Content
// lives in the artifact store, never in the event stream.
type Interaction struct {
	ID              id.InteractionID  `json:"id"`
	Kind            InteractionKind   `json:"kind"`
	Categories      []id.DataCategory `json:"categories"`
	RecordedAt      time.Time         `json:"recorded_at"`
	SafetyAction    string            `json:"safety_action,omitempty"`
	NeedsAdaptation bool              `json:"needs_adaptation,omitempty"`
	// PendingDeletion lists held categories with an open deletion obligation.
	PendingDeletion  []id.DataCategory `json:"pending_deletion,omitempty"`
	ErasedCategories []id.DataCategory `json:"erased_categories,omitempty"`
	Erased           bool              `json:"erased"`
	ErasedAt         *time.Time        `json:"erased_at,omitempty"`
}

// Profile is the reconstructed state of one child.
type Profile struct {
	ID                id.ChildID       `json:"id"`
	Name              string           `json:"name"`
	Birthdate         time.Time        `json:"birthdate"`
	Language          string           `json:"language"`
	RegisteredBy      id.ParentID      `json:"registered_by"`
	AllowedTopics     []string         `json:"allowed_topics"`
	RestrictedTopics  []string         `json:"restricted_topics"`
	Controls          ParentalControls `json:"parental_controls"`
	LastInteractionAt *time.Time       `json:"last_interaction_at,omitempty"`
	Interactions      []Interaction    `json:"interactions"`
	ErasurePending    bool             `json:"erasure_pending,omitempty"`
	Erased            bool             `json:"erased"`
	ErasedAt          *time.Time       `json:"erased_at,omitempty"`
	Version           int64            `json:"version"`

	uncommitted []eventmodels.Event
}

// AgeRange bounds the ages a profile may be registered for.
type AgeRange struct {
	Min int
	Max int
}

// RegisterInput is the data a parent supplies for a new profile.
type RegisterInput struct {
	Name      string
	Birthdate time.Time
	Language  string
}

// Register creates a new aggregate holding one uncommitted ChildRegistered.
func Register(childID id.ChildID, parentID id.ParentID, in RegisterInput, ages AgeRange, now time.Time) (*Profile, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" || utf8.RuneCountInString(name) > maxNameLength {
		return nil, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("name must be 1-%d characters", maxNameLength))
	}
	if in.Birthdate.IsZero() || in.Birthdate.After(now) {
		return nil, dErrors.New(dErrors.CodeValidation, "birthdate must be in the past")
	}
	age := policy.AgeFromBirthdate(in.Birthdate, now)
	if age < ages.Min || age > ages.Max {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, fmt.Sprintf("age %d is outside the supported range %d-%d", age, ages.Min, ages.Max))
	}
	tag, err := language.Parse(strings.TrimSpace(in.Language))
	if err != nil || tag == language.Und {
		return nil, dErrors.New(dErrors.CodeValidation, "language must be a valid BCP 47 tag")
	}

	p := &Profile{}
	err = p.raise(childID, EventChildRegistered, ChildRegistered{
		ChildID:      childID,
		Name:         name,
		Birthdate:    truncateDay(in.Birthdate),
		Language:     tag.String(),
		RegisteredBy: parentID,
	}, now)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Replay rebuilds a profile from its ordered stream. Versions must run
// 1, 2, 3 with no gaps.
func Replay(events []eventmodels.Event) (*Profile, error) {
	p := &Profile{}
	for _, e := range events {
		if err := p.apply(e); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// AgeAt returns the child's age at t.
func (p *Profile) AgeAt(t time.Time) int {
	return policy.AgeFromBirthdate(p.Birthdate, t)
}

// Exists reports whether the stream contains a registration.
func (p *Profile) Exists() bool {
	return p.Version > 0
}

// Uncommitted returns events raised since the last ClearUncommitted.
func (p *Profile) Uncommitted() []eventmodels.Event {
	return slices.Clone(p.uncommitted)
}

// PersistedVersion is the version the log must be at for the uncommitted
// events to be appended.
func (p *Profile) PersistedVersion() int64 {
	return p.Version - int64(len(p.uncommitted))
}

// ClearUncommitted drops the buffer after a successful append.
func (p *Profile) ClearUncommitted() {
	p.uncommitted = nil
}

func (p *Profile) ensureActive() error {
	if !p.Exists() {
		return dErrors.New(dErrors.CodeNotFound, "child profile not found")
	}
	if p.Erased {
		return dErrors.New(dErrors.CodeInvariantViolation, "child data has been erased")
	}
	return nil
}

// RecordInteraction references a stored artifact and bumps the interaction time.
func (p *Profile) RecordInteraction(interactionID id.InteractionID, kind InteractionKind, categories []id.DataCategory, safetyAction string, needsAdaptation bool, now time.Time) error {
	if err := p.ensureActive(); err != nil {
		return err
	}
	if kind != InteractionVoice && kind != InteractionText {
		return dErrors.New(dErrors.CodeValidation, "interaction kind must be voice or text")
	}
	if len(categories) == 0 {
		return dErrors.New(dErrors.CodeValidation, "interaction must declare its data categories")
	}
	if _, ok := p.interaction(interactionID); ok {
		return dErrors.New(dErrors.CodeInvariantViolation, "interaction already recorded")
	}
	return p.raise(p.ID, EventInteractionRecorded, InteractionRecorded{
		InteractionID:   interactionID,
		Kind:            kind,
		Categories:      slices.Clone(categories),
		RecordedAt:      now.UTC(),
		SafetyAction:    safetyAction,
		NeedsAdaptation: needsAdaptation,
	}, now)
}

// UpdateInteractionTime records device activity without storing content.
func (p *Profile) UpdateInteractionTime(now time.Time) error {
	if err := p.ensureActive(); err != nil {
		return err
	}
	if p.LastInteractionAt != nil && !now.After(*p.LastInteractionAt) {
		return dErrors.New(dErrors.CodeInvariantViolation, "interaction time must move forward")
	}
	return p.raise(p.ID, EventInteractionTimeUpdated, InteractionTimeUpdated{At: now.UTC()}, now)
}

// NormalizeTopic lower-cases and trims a topic.
func NormalizeTopic(topic string) (string, error) {
	t := strings.ToLower(strings.TrimSpace(topic))
	if t == "" || utf8.RuneCountInString(t) > maxTopicLength {
		return "", dErrors.New(dErrors.CodeValidation, fmt.Sprintf("topic must be 1-%d characters", maxTopicLength))
	}
	return t, nil
}

func (p *Profile) AddAllowedTopic(topic string, now time.Time) error {
	if err := p.ensureActive(); err != nil {
		return err
	}
	t, err := NormalizeTopic(topic)
	if err != nil {
		return err
	}
	if slices.Contains(p.AllowedTopics, t) {
		return dErrors.New(dErrors.CodeInvariantViolation, fmt.Sprintf("topic %q is already allowed", t))
	}
	if slices.Contains(p.RestrictedTopics, t) {
		return dErrors.New(dErrors.CodeInvariantViolation, fmt.Sprintf("topic %q is restricted", t))
	}
	return p.raise(p.ID, EventAllowedTopicAdded, TopicAdded{Topic: t}, now)
}

// AddRestrictedTopic restricts a topic, removing it from the allowed set.
func (p *Profile) AddRestrictedTopic(topic string, now time.Time) error {
	if err := p.ensureActive(); err != nil {
		return err
	}
	t, err := NormalizeTopic(topic)
	if err != nil {
		return err
	}
	if slices.Contains(p.RestrictedTopics, t) {
		return dErrors.New(dErrors.CodeInvariantViolation, fmt.Sprintf("topic %q is already restricted", t))
	}
	return p.raise(p.ID, EventRestrictedTopicAdded, TopicAdded{Topic: t}, now)
}

func (p *Profile) UpdateParentalControls(c ParentalControls, now time.Time) error {
	if err := p.ensureActive(); err != nil {
		return err
	}
	if err := c.Validate(); err != nil {
		return err
	}
	if c == p.Controls {
		return dErrors.New(dErrors.CodeInvariantViolation, "parental controls are unchanged")
	}
	return p.raise(p.ID, EventParentalControlsUpdated, ParentalControlsUpdated{Controls: c}, now)
}

// RequestDataDeletion records the obligation to delete. For interaction
// scope an empty categories list means every category still held. A request
// whose categories are all already pending or erased raises nothing.
func (p *Profile) RequestDataDeletion(scope ErasureScope, interactionID id.InteractionID, categories []id.DataCategory, reason DeletionReason, now time.Time) error {
	if err := p.ensureActive(); err != nil {
		return err
	}
	switch scope {
	case ScopeAll:
		if p.ErasurePending {
			return nil
		}
		return p.raise(p.ID, EventDataDeletionRequested, DataDeletionRequested{
			Scope:       ScopeAll,
			Reason:      reason,
			RequestedAt: now.UTC(),
		}, now)
	case ScopeInteraction:
		in, ok := p.interaction(interactionID)
		if !ok {
			return dErrors.New(dErrors.CodeNotFound, "interaction not found")
		}
		open := in.held(categories)
		open = slices.DeleteFunc(open, func(c id.DataCategory) bool { return slices.Contains(in.PendingDeletion, c) })
		if len(open) == 0 {
			return nil
		}
		return p.raise(p.ID, EventDataDeletionRequested, DataDeletionRequested{
			Scope:         ScopeInteraction,
			InteractionID: interactionID,
			Categories:    open,
			Reason:        reason,
			RequestedAt:   now.UTC(),
		}, now)
	default:
		return dErrors.New(dErrors.CodeValidation, "scope must be interaction or all")
	}
}

// EraseInteraction scrubs artifact references of one interaction. An empty
// categories list erases everything still held. Erasing twice is a no-op.
func (p *Profile) EraseInteraction(interactionID id.InteractionID, categories []id.DataCategory, now time.Time) error {
	if err := p.ensureActive(); err != nil {
		return err
	}
	in, ok := p.interaction(interactionID)
	if !ok {
		return dErrors.New(dErrors.CodeNotFound, "interaction not found")
	}
	held := in.held(categories)
	if len(held) == 0 {
		return nil
	}
	return p.raise(p.ID, EventInteractionDataErased, InteractionDataErased{
		InteractionID: interactionID,
		Categories:    held,
		ErasedAt:      now.UTC(),
	}, now)
}

// Erase is terminal. Erasing an erased profile is a no-op so the scheduler
// and the external surface can both drive it safely.
func (p *Profile) Erase(reason DeletionReason, now time.Time) error {
	if !p.Exists() {
		return dErrors.New(dErrors.CodeNotFound, "child profile not found")
	}
	if p.Erased {
		return nil
	}
	return p.raise(p.ID, EventChildDataErased, ChildDataErased{Reason: reason, ErasedAt: now.UTC()}, now)
}

// ActiveInteractions returns interactions that still hold data.
func (p *Profile) ActiveInteractions() []Interaction {
	var out []Interaction
	for _, in := range p.Interactions {
		if !in.Erased {
			out = append(out, in)
		}
	}
	return out
}

// held returns the subset of want the interaction still stores, in stored
// order. An empty want selects every held category.
func (in Interaction) held(want []id.DataCategory) []id.DataCategory {
	var out []id.DataCategory
	for _, c := range in.Categories {
		if len(want) == 0 || slices.Contains(want, c) {
			out = append(out, c)
		}
	}
	return out
}

func (p *Profile) interaction(iid id.InteractionID) (Interaction, bool) {
	for _, in := range p.Interactions {
		if in.ID == iid {
			return in, true
		}
	}
	return Interaction{}, false
}

// raise applies a new event to state and buffers it. If apply fails the
// state is untouched and nothing is buffered.
func (p *Profile) raise(childID id.ChildID, eventType string, payload any, now time.Time) error {
	e, err := eventmodels.NewEvent(eventmodels.AggregateChild, uuid.UUID(childID), eventType, payload, now)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "encode event")
	}
	e.Version = p.Version + 1
	if err := p.apply(e); err != nil {
		return err
	}
	p.uncommitted = append(p.uncommitted, e)
	return nil
}

func (p *Profile) apply(e eventmodels.Event) error {
	if e.Version != p.Version+1 {
		return dErrors.New(dErrors.CodeInternal, fmt.Sprintf("event %s has version %d, expected %d", e.Type, e.Version, p.Version+1))
	}
	next := *p
	if err := next.mutate(e); err != nil {
		return err
	}
	next.Version = e.Version
	*p = next
	return nil
}

// mutate is the only place state changes. It works on a copy so a decode
// failure leaves the receiver untouched.
func (p *Profile) mutate(e eventmodels.Event) error {
	if (e.Type == EventChildRegistered) != (p.Version == 0) {
		return dErrors.New(dErrors.CodeInternal, fmt.Sprintf("event %s at version %d is out of order", e.Type, p.Version+1))
	}
	switch e.Type {
	case EventChildRegistered:
		var ev ChildRegistered
		if err := eventmodels.Decode(e, &ev); err != nil {
			return err
		}
		p.ID = ev.ChildID
		p.Name = ev.Name
		p.Birthdate = ev.Birthdate.UTC()
		p.Language = ev.Language
		p.RegisteredBy = ev.RegisteredBy
		p.Controls = DefaultParentalControls()
		p.AllowedTopics = []string{}
		p.RestrictedTopics = []string{}
		p.Interactions = []Interaction{}

	case EventInteractionRecorded:
		var ev InteractionRecorded
		if err := eventmodels.Decode(e, &ev); err != nil {
			return err
		}
		at := ev.RecordedAt.UTC()
		p.Interactions = append(slices.Clone(p.Interactions), Interaction{
			ID:              ev.InteractionID,
			Kind:            ev.Kind,
			Categories:      ev.Categories,
			RecordedAt:      at,
			SafetyAction:    ev.SafetyAction,
			NeedsAdaptation: ev.NeedsAdaptation,
		})
		p.LastInteractionAt = &at

	case EventInteractionTimeUpdated:
		var ev InteractionTimeUpdated
		if err := eventmodels.Decode(e, &ev); err != nil {
			return err
		}
		at := ev.At.UTC()
		p.LastInteractionAt = &at

	case EventAllowedTopicAdded:
		var ev TopicAdded
		if err := eventmodels.Decode(e, &ev); err != nil {
			return err
		}
		p.AllowedTopics = sortedWith(p.AllowedTopics, ev.Topic)

	case EventRestrictedTopicAdded:
		var ev TopicAdded
		if err := eventmodels.Decode(e, &ev); err != nil {
			return err
		}
		p.RestrictedTopics = sortedWith(p.RestrictedTopics, ev.Topic)
		p.AllowedTopics = slices.DeleteFunc(slices.Clone(p.AllowedTopics), func(t string) bool { return t == ev.Topic })

	case EventParentalControlsUpdated:
		var ev ParentalControlsUpdated
		if err := eventmodels.Decode(e, &ev); err != nil {
			return err
		}
		p.Controls = ev.Controls

	case EventDataDeletionRequested:
		var ev DataDeletionRequested
		if err := eventmodels.Decode(e, &ev); err != nil {
			return err
		}
		if ev.Scope == ScopeAll {
			p.ErasurePending = true
			break
		}
		p.Interactions = p.updateInteraction(ev.InteractionID, func(in *Interaction) {
			in.PendingDeletion = union(in.PendingDeletion, ev.Categories)
		})

	case EventInteractionDataErased:
		var ev InteractionDataErased
		if err := eventmodels.Decode(e, &ev); err != nil {
			return err
		}
		at := ev.ErasedAt.UTC()
		p.Interactions = p.updateInteraction(ev.InteractionID, func(in *Interaction) {
			gone := func(c id.DataCategory) bool { return slices.Contains(ev.Categories, c) }
			in.Categories = slices.DeleteFunc(slices.Clone(in.Categories), gone)
			in.PendingDeletion = slices.DeleteFunc(slices.Clone(in.PendingDeletion), gone)
			in.ErasedCategories = union(in.ErasedCategories, ev.Categories)
			if len(in.Categories) == 0 {
				in.Erased = true
				in.ErasedAt = &at
				in.PendingDeletion = nil
				in.SafetyAction = ""
				in.NeedsAdaptation = false
			}
		})

	case EventChildDataErased:
		var ev ChildDataErased
		if err := eventmodels.Decode(e, &ev); err != nil {
			return err
		}
		at := ev.ErasedAt.UTC()
		*p = Profile{
			ID:               p.ID,
			AllowedTopics:    []string{},
			RestrictedTopics: []string{},
			Interactions:     []Interaction{},
			Erased:           true,
			ErasedAt:         &at,
			Version:          p.Version,
			uncommitted:      p.uncommitted,
		}

	default:
		return dErrors.New(dErrors.CodeInternal, fmt.Sprintf("unknown child event type %q", e.Type))
	}
	return nil
}

func (p *Profile) updateInteraction(iid id.InteractionID, fn func(*Interaction)) []Interaction {
	out := slices.Clone(p.Interactions)
	for i := range out {
		if out[i].ID == iid {
			fn(&out[i])
		}
	}
	return out
}

func sortedWith(set []string, v string) []string {
	out := slices.Clone(set)
	if !slices.Contains(out, v) {
		out = append(out, v)
	}
	slices.Sort(out)
	return out
}

func union(a, b []id.DataCategory) []id.DataCategory {
	out := slices.Clone(a)
	for _, c := range b {
		if !slices.Contains(out, c) {
			out = append(out, c)
		}
	}
	return out
}

func truncateDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
