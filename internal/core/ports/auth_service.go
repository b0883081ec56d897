package ports

import (
	"context"
	"time"

	"github.com/corepass/hallpass/internal/core/domain"
)

// RegisterInput carries the profile of a new account.
type RegisterInput struct {
	Email       string
	Password    string
	DisplayName string
	PhotoURL    string
	Role        string
}

// AuthService is the auth provider capability: sign in, sign out and the
// profile of the current user.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
	SignIn(ctx context.Context, email, password string) (string, *domain.User, error)
	SignOut(ctx context.Context, tokenID string, expiresAt time.Time) error
	CurrentUser(ctx context.Context) (*domain.User, error)
}
