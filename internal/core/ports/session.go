package ports

import "context"

// SessionProvider resolves the signed-in user.
type SessionProvider interface {
	// CurrentUserID returns the uid, or false when nobody is signed in.
	CurrentUserID(ctx context.Context) (string, bool)
}
