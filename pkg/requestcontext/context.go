// Package requestcontext provides HTTP-independent context accessors for request-scoped values.
//
// Middleware sets these values; services read them. Tests inject them directly:
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
//	ctx = requestcontext.WithParentID(ctx, parentID)
package requestcontext

import (
	"context"
	"time"

	id "guardian/pkg/domain"
)

type (
	parentIDKey    struct{}
	actorKey       struct{}
	deviceIDKey    struct{}
	pairedChildKey struct{}
	clientIPKey    struct{}
	userAgentKey   struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Actor identifies who originated an operation.
type Actor string

const (
	ActorParent Actor = "parent"
	ActorDevice Actor = "device"
	ActorSystem Actor = "system"
)

// ParentID retrieves the authenticated parent. Returns the nil UUID if not set.
func ParentID(ctx context.Context) id.ParentID {
	if pid, ok := ctx.Value(parentIDKey{}).(id.ParentID); ok {
		return pid
	}
	return id.ParentID{}
}

// WithParentID injects an authenticated parent and marks the actor as parent.
func WithParentID(ctx context.Context, parentID id.ParentID) context.Context {
	ctx = context.WithValue(ctx, parentIDKey{}, parentID)
	return context.WithValue(ctx, actorKey{}, ActorParent)
}

// ActorOf returns the originating actor. Contexts without one are treated as
// device traffic, which is the most restricted path.
func ActorOf(ctx context.Context) Actor {
	if a, ok := ctx.Value(actorKey{}).(Actor); ok {
		return a
	}
	return ActorDevice
}

// WithActor overrides the originating actor.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// AsSystem marks the context as originating from an internal job.
func AsSystem(ctx context.Context) context.Context {
	return WithActor(ctx, ActorSystem)
}

// DeviceID retrieves the calling device identifier.
func DeviceID(ctx context.Context) string {
	if d, ok := ctx.Value(deviceIDKey{}).(string); ok {
		return d
	}
	return ""
}

// WithDeviceID injects a device identifier with the child it is paired to
// and marks the actor as device.
func WithDeviceID(ctx context.Context, deviceID string, childID id.ChildID) context.Context {
	ctx = context.WithValue(ctx, deviceIDKey{}, deviceID)
	ctx = context.WithValue(ctx, pairedChildKey{}, childID)
	return context.WithValue(ctx, actorKey{}, ActorDevice)
}

// PairedChildID is the only child the calling device may act for. Returns
// the nil UUID outside device traffic.
func PairedChildID(ctx context.Context) id.ChildID {
	if c, ok := ctx.Value(pairedChildKey{}).(id.ChildID); ok {
		return c
	}
	return id.ChildID{}
}

// ClientIP retrieves the client IP address from the context.
func ClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(clientIPKey{}).(string); ok {
		return ip
	}
	return ""
}

// UserAgent retrieves the User-Agent from the context.
func UserAgent(ctx context.Context) string {
	if ua, ok := ctx.Value(userAgentKey{}).(string); ok {
		return ua
	}
	return ""
}

// WithClientMetadata injects client IP and User-Agent into a context.
func WithClientMetadata(ctx context.Context, clientIP, userAgent string) context.Context {
	ctx = context.WithValue(ctx, clientIPKey{}, clientIP)
	return context.WithValue(ctx, userAgentKey{}, userAgent)
}

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(requestIDKey{}).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() for workers and tests that did not set one.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}
