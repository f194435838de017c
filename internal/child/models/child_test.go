package models

import (
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	eventmodels "guardian/internal/eventlog/models"
	id "guardian/pkg/domain"
	dErrors "guardian/pkg/domain-errors"
)

var (
	now  = time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	ages = AgeRange{Min: 3, Max: 17}
)

type ProfileSuite struct {
	suite.Suite
	profile *Profile
	// log simulates what the event log would hold after each persist.
	log []eventmodels.Event
}

func TestProfileSuite(t *testing.T) {
	suite.Run(t, new(ProfileSuite))
}

func (s *ProfileSuite) SetupTest() {
	p, err := Register(id.NewChildID(), id.NewParentID(), RegisterInput{
		Name:      "Mia",
		Birthdate: time.Date(2018, 1, 20, 0, 0, 0, 0, time.UTC),
		Language:  "en-GB",
	}, ages, now)
	s.Require().NoError(err)
	s.profile = p
	s.log = nil
	s.commit()
}

func (s *ProfileSuite) commit() {
	s.log = append(s.log, s.profile.Uncommitted()...)
	s.profile.ClearUncommitted()
}

func (s *ProfileSuite) replay() *Profile {
	p, err := Replay(s.log)
	s.Require().NoError(err)
	return p
}

func (s *ProfileSuite) TestRegisterProducesOneEvent() {
	s.Equal(int64(1), s.profile.Version)
	s.Require().Len(s.log, 1)
	s.Equal(EventChildRegistered, s.log[0].Type)
	s.Equal("en-GB", s.profile.Language)
	s.Equal(8, s.profile.AgeAt(now))
	s.Equal(DefaultParentalControls(), s.profile.Controls)
}

func (s *ProfileSuite) TestReplayIsDeterministic() {
	s.Require().NoError(s.profile.AddAllowedTopic("Dinosaurs", now))
	s.Require().NoError(s.profile.AddAllowedTopic("space", now))
	s.Require().NoError(s.profile.AddRestrictedTopic("SPACE", now))
	s.Require().NoError(s.profile.RecordInteraction(id.NewInteractionID(), InteractionVoice,
		[]id.DataCategory{id.DataVoiceRecording}, "allow", false, now.Add(time.Minute)))
	s.Require().NoError(s.profile.UpdateParentalControls(ParentalControls{
		DailyLimitMinutes: 45, QuietHoursStart: 19, QuietHoursEnd: 7, FilterLevel: FilterModerate,
	}, now))
	s.commit()

	first := s.replay()
	second := s.replay()
	s.Equal(first, second)
	s.Equal(s.profile, first, "replayed state must equal the state held before persistence")
	s.Equal(int64(6), first.Version)
}

func (s *ProfileSuite) TestRestrictedTopicRemovesAllowed() {
	s.Require().NoError(s.profile.AddAllowedTopic("space", now))
	s.Require().NoError(s.profile.AddRestrictedTopic("space", now))

	s.Empty(s.profile.AllowedTopics)
	s.Equal([]string{"space"}, s.profile.RestrictedTopics)

	err := s.profile.AddAllowedTopic(" Space ", now)
	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func (s *ProfileSuite) TestFailedOperationProducesNoEvent() {
	s.Require().NoError(s.profile.AddAllowedTopic("music", now))
	s.commit()
	before := s.profile.Version

	err := s.profile.AddAllowedTopic("MUSIC", now)
	s.Require().Error(err)
	s.Empty(s.profile.Uncommitted())
	s.Equal(before, s.profile.Version)

	err = s.profile.UpdateParentalControls(ParentalControls{DailyLimitMinutes: 2000, FilterLevel: FilterStrict}, now)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	s.Empty(s.profile.Uncommitted())
}

func (s *ProfileSuite) TestInteractionTimeMustMoveForward() {
	s.Require().NoError(s.profile.UpdateInteractionTime(now))
	err := s.profile.UpdateInteractionTime(now)
	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func (s *ProfileSuite) TestDeletionRequestIsIdempotent() {
	iid := id.NewInteractionID()
	s.Require().NoError(s.profile.RecordInteraction(iid, InteractionText, []id.DataCategory{id.DataInteractionText}, "", false, now))
	s.commit()

	s.Require().NoError(s.profile.RequestDataDeletion(ScopeInteraction, iid, nil, ReasonRetentionExpired, now))
	s.Require().NoError(s.profile.RequestDataDeletion(ScopeInteraction, iid, nil, ReasonRetentionExpired, now))
	s.Len(s.profile.Uncommitted(), 1)

	s.Require().NoError(s.profile.EraseInteraction(iid, nil, now))
	s.Require().NoError(s.profile.EraseInteraction(iid, nil, now))
	s.Len(s.profile.Uncommitted(), 2)
	s.commit()

	replayed := s.replay()
	s.Empty(replayed.ActiveInteractions())
	s.True(replayed.Interactions[0].Erased)
	s.Empty(replayed.Interactions[0].PendingDeletion)
}

func (s *ProfileSuite) TestErasureIsScopedToCategory() {
	iid := id.NewInteractionID()
	s.Require().NoError(s.profile.RecordInteraction(iid, InteractionVoice,
		[]id.DataCategory{id.DataVoiceRecording, id.DataInteractionText}, "allow", false, now))

	s.Require().NoError(s.profile.RequestDataDeletion(ScopeInteraction, iid, []id.DataCategory{id.DataVoiceRecording}, ReasonRetentionExpired, now))
	s.Require().NoError(s.profile.EraseInteraction(iid, []id.DataCategory{id.DataVoiceRecording}, now))
	s.commit()

	in := s.replay().Interactions[0]
	s.False(in.Erased)
	s.Equal([]id.DataCategory{id.DataInteractionText}, in.Categories)
	s.Equal([]id.DataCategory{id.DataVoiceRecording}, in.ErasedCategories)
	s.Empty(in.PendingDeletion)

	s.NoError(s.profile.EraseInteraction(iid, []id.DataCategory{id.DataVoiceRecording}, now))
	s.Empty(s.profile.Uncommitted())
}

func (s *ProfileSuite) TestUnknownInteraction() {
	err := s.profile.RequestDataDeletion(ScopeInteraction, id.NewInteractionID(), nil, ReasonParentRequest, now)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ProfileSuite) TestEraseScrubsStateAndIsTerminal() {
	s.Require().NoError(s.profile.AddAllowedTopic("music", now))
	s.Require().NoError(s.profile.RecordInteraction(id.NewInteractionID(), InteractionVoice, []id.DataCategory{id.DataVoiceRecording}, "", false, now))
	s.Require().NoError(s.profile.Erase(ReasonParentRequest, now))
	s.commit()

	replayed := s.replay()
	s.True(replayed.Erased)
	s.Empty(replayed.Name)
	s.True(replayed.Birthdate.IsZero())
	s.Empty(replayed.AllowedTopics)
	s.Empty(replayed.Interactions)
	s.Nil(replayed.LastInteractionAt)
	s.Equal(s.profile.ID, replayed.ID)
	s.Equal(int64(4), replayed.Version)

	err := replayed.AddAllowedTopic("art", now)
	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	s.NoError(replayed.Erase(ReasonRetentionExpired, now), "second erase is a no-op")
	s.Empty(replayed.Uncommitted())
}

func TestRegister_Validation(t *testing.T) {
	birth := time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		name string
		in   RegisterInput
		code dErrors.Code
	}{
		{"empty name", RegisterInput{Name: " ", Birthdate: birth, Language: "en"}, dErrors.CodeValidation},
		{"future birthdate", RegisterInput{Name: "A", Birthdate: now.Add(time.Hour), Language: "en"}, dErrors.CodeValidation},
		{"too young", RegisterInput{Name: "A", Birthdate: now.AddDate(-1, 0, 0), Language: "en"}, dErrors.CodeInvariantViolation},
		{"too old", RegisterInput{Name: "A", Birthdate: now.AddDate(-20, 0, 0), Language: "en"}, dErrors.CodeInvariantViolation},
		{"bad language", RegisterInput{Name: "A", Birthdate: birth, Language: "not a tag!"}, dErrors.CodeValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Register(id.NewChildID(), id.NewParentID(), tc.in, ages, now)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, tc.code), err.Error())
		})
	}
}

func TestReplay_RejectsOutOfOrderStream(t *testing.T) {
	e, err := eventmodels.NewEvent(eventmodels.AggregateChild, [16]byte{1}, EventAllowedTopicAdded, TopicAdded{Topic: "x"}, now)
	require.NoError(t, err)
	e.Version = 1
	_, err = Replay([]eventmodels.Event{e})
	require.Error(t, err)
}

func (s *ProfileSuite) TestReplayRejectsVersionGaps() {
	s.Require().NoError(s.profile.AddAllowedTopic("dinosaurs", now))
	s.Require().NoError(s.profile.AddAllowedTopic("space", now))
	s.commit()
	s.Require().Len(s.log, 3)

	cases := map[string]func([]eventmodels.Event) []eventmodels.Event{
		"missing event": func(log []eventmodels.Event) []eventmodels.Event {
			return []eventmodels.Event{log[0], log[2]}
		},
		"repeated version": func(log []eventmodels.Event) []eventmodels.Event {
			dup := log[2]
			dup.Version = 2
			return []eventmodels.Event{log[0], log[1], dup}
		},
		"stream not starting at one": func(log []eventmodels.Event) []eventmodels.Event {
			first := log[0]
			first.Version = 5
			return []eventmodels.Event{first}
		},
	}
	for name, tamper := range cases {
		s.Run(name, func() {
			stream := tamper(slices.Clone(s.log))
			_, err := Replay(stream)
			s.True(dErrors.HasCode(err, dErrors.CodeInternal), "got %v", err)
		})
	}
}
