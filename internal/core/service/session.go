package service

import (
	"context"

	"github.com/corepass/hallpass/internal/core/ports"
)

type userIDKey struct{}

// WithUserID returns a copy of ctx carrying the uid of a verified session.
func WithUserID(ctx context.Context, uid string) context.Context {
	return context.WithValue(ctx, userIDKey{}, uid)
}

// ClaimsSession reads the uid the auth middleware resolved from the bearer token.
type ClaimsSession struct{}

func (ClaimsSession) CurrentUserID(ctx context.Context) (string, bool) {
	uid, _ := ctx.Value(userIDKey{}).(string)
	return uid, uid != ""
}

// FixedSession always reports the same uid. An empty UID means signed out.
type FixedSession struct {
	UID string
}

func (s FixedSession) CurrentUserID(context.Context) (string, bool) {
	return s.UID, s.UID != ""
}

// NewSession picks the session variant at process start: a non-empty
// fixtureUID bypasses the auth provider.
func NewSession(fixtureUID string) ports.SessionProvider {
	if fixtureUID != "" {
		return FixedSession{UID: fixtureUID}
	}
	return ClaimsSession{}
}
