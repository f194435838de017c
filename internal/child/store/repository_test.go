package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guardian/internal/child/models"
	"guardian/internal/eventlog"
	logmemory "guardian/internal/eventlog/store/memory"
	id "guardian/pkg/domain"
	dErrors "guardian/pkg/domain-errors"
	"guardian/pkg/platform/sentinel"
)

func register(t *testing.T) *models.Profile {
	t.Helper()
	p, err := models.Register(id.NewChildID(), id.NewParentID(), models.RegisterInput{
		Name:      "Leo",
		Birthdate: time.Date(2017, 5, 1, 0, 0, 0, 0, time.UTC),
		Language:  "de",
	}, models.AgeRange{Min: 3, Max: 17}, time.Now())
	require.NoError(t, err)
	return p
}

func TestRepository_SaveThenLoad(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(eventlog.New(logmemory.New()))

	p := register(t)
	require.NoError(t, p.AddAllowedTopic("animals", time.Now()))
	head, err := repo.Save(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, int64(2), head)
	assert.Empty(t, p.Uncommitted())

	loaded, err := repo.Load(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p, loaded)
}

func TestRepository_StaleSaveConflicts(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(eventlog.New(logmemory.New()))
	p := register(t)
	_, err := repo.Save(ctx, p)
	require.NoError(t, err)

	a, err := repo.Load(ctx, p.ID)
	require.NoError(t, err)
	b, err := repo.Load(ctx, p.ID)
	require.NoError(t, err)

	require.NoError(t, a.AddAllowedTopic("music", time.Now()))
	_, err = repo.Save(ctx, a)
	require.NoError(t, err)

	require.NoError(t, b.AddAllowedTopic("art", time.Now()))
	_, err = repo.Save(ctx, b)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConcurrencyConflict))
	assert.Len(t, b.Uncommitted(), 1, "buffer is kept for the caller to discard")

	fresh, err := repo.Load(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), fresh.Version)
	assert.Equal(t, []string{"music"}, fresh.AllowedTopics)
}

func TestRepository_LoadMissing(t *testing.T) {
	repo := NewRepository(eventlog.New(logmemory.New()))
	_, err := repo.Load(context.Background(), id.NewChildID())
	assert.True(t, errors.Is(err, sentinel.ErrNotFound))
}
