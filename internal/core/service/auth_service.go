package service

import (
	"context"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/corepass/hallpass/internal/core/domain"
	"github.com/corepass/hallpass/internal/core/ports"
)

// AuthService implements registration, sign-in and sign-out.
type AuthService struct {
	repo        ports.AuthRepository
	revocations ports.TokenRevocations
	session     ports.SessionProvider
	jwtSecret   string
	tokenTTL    time.Duration
}

func NewAuthService(repo ports.AuthRepository, revocations ports.TokenRevocations, session ports.SessionProvider, jwtSecret string, tokenTTL time.Duration) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 12 * time.Hour
	}
	return &AuthService{
		repo:        repo,
		revocations: revocations,
		session:     session,
		jwtSecret:   jwtSecret,
		tokenTTL:    tokenTTL,
	}
}

func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || in.Password == "" {
		return nil, domain.ErrInvalidCredentials
	}
	role := in.Role
	if role == "" {
		role = domain.RoleStudent
	}
	if role != domain.RoleStudent && role != domain.RoleStaff {
		return nil, domain.ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := &domain.User{
		DisplayName:  in.DisplayName,
		Email:        email,
		PhotoURL:     in.PhotoURL,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	created, err := s.repo.Create(ctx, user)
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *AuthService) SignIn(ctx context.Context, email, password string) (string, *domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return "", nil, domain.ErrInvalidCredentials
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return "", nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", nil, domain.ErrInvalidCredentials
	}

	token, err := s.generateToken(user)
	if err != nil {
		return "", nil, err
	}

	return token, user, nil
}

// SignOut revokes the token until it would have expired anyway.
func (s *AuthService) SignOut(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if tokenID == "" {
		return domain.ErrInvalidCredentials
	}
	if expiresAt.IsZero() {
		expiresAt = time.Now().Add(s.tokenTTL)
	}
	return s.revocations.Revoke(ctx, tokenID, expiresAt)
}

// CurrentUser returns the profile of the signed-in user.
func (s *AuthService) CurrentUser(ctx context.Context) (*domain.User, error) {
	uid, ok := s.session.CurrentUserID(ctx)
	if !ok {
		return nil, domain.ErrNotSignedIn
	}
	return s.repo.FindByID(ctx, uid)
}

func (s *AuthService) generateToken(user *domain.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  user.ID,
		"role": user.Role,
		"jti":  uuid.NewString(),
		"iat":  now.Unix(),
		"exp":  now.Add(s.tokenTTL).Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(s.jwtSecret))
}
