//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"guardian/internal/eventlog/models"
	"guardian/internal/eventlog/store/postgres"
	platformpg "guardian/internal/platform/postgres"
	"guardian/pkg/platform/sentinel"
	"guardian/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *postgres.Store
	ctx   context.Context
}

func TestPostgresStoreSuite(t *testing.T) {
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	s.pg = containers.NewPostgresContainer(s.T())
	s.Require().NoError(platformpg.Migrate(s.ctx, s.pg.DB))
	s.store = postgres.New(s.pg.Pool)
}

func (s *PostgresStoreSuite) newEvent(typ string) models.Event {
	e, err := models.NewEvent(models.AggregateChild, uuid.Nil, typ, map[string]int{"n": 1}, time.Now())
	s.Require().NoError(err)
	return e
}

func (s *PostgresStoreSuite) TestAppendAndLoad() {
	key := models.StreamKey{AggregateType: models.AggregateChild, AggregateID: uuid.New()}

	committed, err := s.store.Append(s.ctx, key, 0, []models.Event{s.newEvent("A"), s.newEvent("B")})
	s.Require().NoError(err)
	s.Require().Len(committed, 2)
	s.Less(committed[0].Offset, committed[1].Offset)

	events, err := s.store.Load(s.ctx, key, 0)
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.Equal(int64(1), events[0].Version)
	s.Equal(int64(2), events[1].Version)
	s.JSONEq(`{"n":1}`, string(events[0].Payload))

	v, err := s.store.Version(s.ctx, key)
	s.Require().NoError(err)
	s.Equal(int64(2), v)
}

func (s *PostgresStoreSuite) TestConflictOnStaleVersion() {
	key := models.StreamKey{AggregateType: models.AggregateChild, AggregateID: uuid.New()}
	_, err := s.store.Append(s.ctx, key, 0, []models.Event{s.newEvent("A")})
	s.Require().NoError(err)

	_, err = s.store.Append(s.ctx, key, 0, []models.Event{s.newEvent("B")})
	s.ErrorIs(err, sentinel.ErrConflict)

	events, err := s.store.Load(s.ctx, key, 0)
	s.Require().NoError(err)
	s.Len(events, 1)
}

func (s *PostgresStoreSuite) TestCheckpointsNeverMoveBackwards() {
	cp := postgres.NewCheckpoints(s.pg.Pool)
	s.Require().NoError(cp.Save(s.ctx, "relay", 10))
	s.Require().NoError(cp.Save(s.ctx, "relay", 4))

	off, err := cp.Load(s.ctx, "relay")
	s.Require().NoError(err)
	s.Equal(int64(10), off)
}
