package idbridge

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Activity event kinds emitted by the Authenticator.
const (
	ActivityLoginSuccess   = "login.success"
	ActivityLoginFailure   = "login.failure"
	ActivityUserRegistered = "user.registered"
	ActivityTokenResolved  = "token.resolved"
	ActivityTokenRejected  = "token.rejected"
)

// ActivityEvent describes an auth event for audit purposes.
type ActivityEvent struct {
	ID       string
	Kind     string
	UserID   string
	At       time.Time
	Metadata map[string]any
}

// ActivitySink receives auth events. Sinks run best-effort: a failing sink
// is logged and never fails the call that produced the event.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error { return nil }

func normalizeActivitySink(sink ActivitySink) ActivitySink {
	if sink == nil {
		return noopActivitySink{}
	}
	return sink
}

func newActivityEvent(kind, userID string, metadata map[string]any) ActivityEvent {
	return ActivityEvent{
		ID:       uuid.NewString(),
		Kind:     kind,
		UserID:   userID,
		At:       time.Now(),
		Metadata: metadata,
	}
}
