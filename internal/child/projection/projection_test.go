package projection_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"guardian/internal/child/models"
	"guardian/internal/child/projection"
	"guardian/internal/child/projection/store/memory"
	eventmodels "guardian/internal/eventlog/models"
	id "guardian/pkg/domain"
)

type ProjectorSuite struct {
	suite.Suite
	ctx       context.Context
	store     *memory.Store
	projector *projection.Projector
	parent    id.ParentID
	child     id.ChildID
	now       time.Time
}

func TestProjectorSuite(t *testing.T) {
	suite.Run(t, new(ProjectorSuite))
}

func (s *ProjectorSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = memory.New()
	s.projector = projection.New(s.store, nil)
	s.parent = id.NewParentID()
	s.child = id.NewChildID()
	s.now = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
}

func (s *ProjectorSuite) event(version int64, eventType string, payload any) eventmodels.Event {
	e, err := eventmodels.NewEvent(eventmodels.AggregateChild, uuid.UUID(s.child), eventType, payload, s.now.Add(time.Duration(version)*time.Minute))
	s.Require().NoError(err)
	e.Version = version
	return e
}

func (s *ProjectorSuite) registered() eventmodels.Event {
	return s.event(1, models.EventChildRegistered, models.ChildRegistered{
		ChildID: s.child, Name: "Mia", Language: "en", RegisteredBy: s.parent,
	})
}

func (s *ProjectorSuite) recorded(version int64, at time.Time) eventmodels.Event {
	return s.event(version, models.EventInteractionRecorded, models.InteractionRecorded{
		InteractionID: id.NewInteractionID(), Kind: models.InteractionText, RecordedAt: at,
	})
}

func (s *ProjectorSuite) apply(events ...eventmodels.Event) {
	for _, e := range events {
		s.Require().NoError(s.projector.Handle(s.ctx, e))
	}
}

func (s *ProjectorSuite) TestBuildsSummary() {
	s.apply(
		s.registered(),
		s.recorded(2, s.now),
		s.recorded(3, s.now.Add(time.Hour)),
		s.event(4, models.EventInteractionTimeUpdated, models.InteractionTimeUpdated{At: s.now.Add(2 * time.Hour)}),
		s.event(5, models.EventAllowedTopicAdded, models.TopicAdded{Topic: "space"}),
	)

	got, err := s.store.Get(s.ctx, s.child)
	s.Require().NoError(err)
	s.Equal("Mia", got.Name)
	s.Equal(s.parent, got.ParentID)
	s.Equal(2, got.Interactions)
	s.Require().NotNil(got.LastInteractionAt)
	s.True(got.LastInteractionAt.Equal(s.now.Add(2 * time.Hour)))
	s.Equal(int64(5), got.Version)
}

func (s *ProjectorSuite) TestRedeliveryIsIgnored() {
	rec := s.recorded(2, s.now)
	s.apply(s.registered(), rec, rec, s.registered())

	got, err := s.store.Get(s.ctx, s.child)
	s.Require().NoError(err)
	s.Equal(1, got.Interactions)
	s.Equal(int64(2), got.Version)
}

func (s *ProjectorSuite) TestEventsBeforeRegistrationAreSkipped() {
	s.apply(s.recorded(2, s.now))

	_, err := s.store.Get(s.ctx, s.child)
	s.Error(err)
}

func (s *ProjectorSuite) TestErasureScrubsSummary() {
	other := id.NewChildID()
	otherReg, err := eventmodels.NewEvent(eventmodels.AggregateChild, uuid.UUID(other), models.EventChildRegistered,
		models.ChildRegistered{ChildID: other, Name: "Leo", Language: "de", RegisteredBy: s.parent}, s.now)
	s.Require().NoError(err)
	otherReg.Version = 1

	s.apply(
		otherReg,
		s.registered(),
		s.recorded(2, s.now),
		s.event(3, models.EventChildDataErased, models.ChildDataErased{Reason: models.ReasonParentRequest, ErasedAt: s.now}),
	)

	got, err := s.store.Get(s.ctx, s.child)
	s.Require().NoError(err)
	s.True(got.Erased)
	s.Empty(got.Name)
	s.Zero(got.Interactions)
	s.Nil(got.LastInteractionAt)

	children, err := s.projector.Children(s.ctx, s.parent)
	s.Require().NoError(err)
	s.Require().Len(children, 1)
	s.Equal(other, children[0].ChildID)
}

func (s *ProjectorSuite) TestOtherAggregatesAreIgnored() {
	e, err := eventmodels.NewEvent(eventmodels.AggregateConsent, uuid.New(), "ConsentGranted", struct{}{}, s.now)
	s.Require().NoError(err)
	s.apply(e)

	children, err := s.projector.Children(s.ctx, s.parent)
	s.Require().NoError(err)
	s.Empty(children)
}

type failingStore struct{ *memory.Store }

func (failingStore) Put(context.Context, *projection.Summary) error { return errors.New("down") }

func TestStoreFailureIsReturned(t *testing.T) {
	p := projection.New(failingStore{memory.New()}, nil)
	child := id.NewChildID()
	e, err := eventmodels.NewEvent(eventmodels.AggregateChild, uuid.UUID(child), models.EventChildRegistered,
		models.ChildRegistered{ChildID: child, Name: "Mia", Language: "en", RegisteredBy: id.NewParentID()}, time.Now())
	require.NoError(t, err)
	e.Version = 1

	require.Error(t, p.Handle(context.Background(), e))
}
