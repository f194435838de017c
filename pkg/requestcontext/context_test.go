package requestcontext

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	id "guardian/pkg/domain"
)

func TestActorDefaultsToDevice(t *testing.T) {
	assert.Equal(t, ActorDevice, ActorOf(context.Background()))
}

func TestWithParentIDSetsActor(t *testing.T) {
	pid := id.NewParentID()
	ctx := WithParentID(context.Background(), pid)

	assert.Equal(t, pid, ParentID(ctx))
	assert.Equal(t, ActorParent, ActorOf(ctx))
	assert.Equal(t, ActorSystem, ActorOf(AsSystem(ctx)))
}

func TestNowPrefersInjectedTime(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, fixed, Now(WithTime(context.Background(), fixed)))
}
