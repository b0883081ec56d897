package service

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/corepass/hallpass/internal/core/domain"
	"github.com/corepass/hallpass/internal/core/ports"
)

type stubAuthRepo struct {
	users map[string]*domain.User // keyed by email
}

func newStubAuthRepo() *stubAuthRepo {
	return &stubAuthRepo{users: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

func (r *stubAuthRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	if _, exists := r.users[user.Email]; exists {
		return nil, domain.ErrUserExists
	}
	copy := cloneUser(user)
	if copy.ID == "" {
		copy.ID = "uid-" + user.Email
	}
	r.users[copy.Email] = cloneUser(copy)
	return cloneUser(copy), nil
}

func (r *stubAuthRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	if u, ok := r.users[email]; ok {
		return cloneUser(u), nil
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubAuthRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	for _, u := range r.users {
		if u.ID == id {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

type stubRevocations struct {
	revoked map[string]time.Time
	err     error
}

func (s *stubRevocations) Revoke(_ context.Context, jti string, until time.Time) error {
	if s.err != nil {
		return s.err
	}
	if s.revoked == nil {
		s.revoked = make(map[string]time.Time)
	}
	s.revoked[jti] = until
	return nil
}

func (s *stubRevocations) IsRevoked(_ context.Context, jti string) (bool, error) {
	_, ok := s.revoked[jti]
	return ok, s.err
}

func newAuthSvc(repo *stubAuthRepo, rev *stubRevocations) *AuthService {
	return NewAuthService(repo, rev, ClaimsSession{}, "secret", time.Hour)
}

func register(t *testing.T, svc *AuthService, email, password, role string) *domain.User {
	t.Helper()
	u, err := svc.Register(context.Background(), ports.RegisterInput{Email: email, Password: password, DisplayName: "Student", Role: role})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	return u
}

func TestAuthService_Register_Success(t *testing.T) {
	svc := newAuthSvc(newStubAuthRepo(), &stubRevocations{})

	user := register(t, svc, "Alice@Example.com ", "pass123", "")
	if user.PasswordHash == "pass123" {
		t.Fatalf("expected password to be hashed")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("pass123")); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}
	if user.Role != domain.RoleStudent {
		t.Fatalf("expected default role student, got %s", user.Role)
	}
	if user.Email != "alice@example.com" {
		t.Fatalf("expected normalised email, got %q", user.Email)
	}
}

func TestAuthService_Register_Validation(t *testing.T) {
	svc := newAuthSvc(newStubAuthRepo(), &stubRevocations{})

	if _, err := svc.Register(context.Background(), ports.RegisterInput{Password: "pass"}); err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Register(context.Background(), ports.RegisterInput{Email: "bob@example.com", Password: "pass", Role: "principal"}); err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials for bad role, got %v", err)
	}
}

func TestAuthService_Register_Duplicate(t *testing.T) {
	svc := newAuthSvc(newStubAuthRepo(), &stubRevocations{})

	register(t, svc, "bob@example.com", "pass", domain.RoleStudent)
	if _, err := svc.Register(context.Background(), ports.RegisterInput{Email: "bob@example.com", Password: "pass2"}); err != domain.ErrUserExists {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestAuthService_SignIn_Success(t *testing.T) {
	svc := newAuthSvc(newStubAuthRepo(), &stubRevocations{})
	created := register(t, svc, "carol@example.com", "s3cret", domain.RoleStaff)

	token, user, err := svc.SignIn(context.Background(), "carol@example.com", "s3cret")
	if err != nil {
		t.Fatalf("sign in failed: %v", err)
	}
	if token == "" || user == nil || user.ID != created.ID {
		t.Fatalf("unexpected result: %q %+v", token, user)
	}

	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte("secret"), nil
	})
	if err != nil || !parsed.Valid {
		t.Fatalf("token invalid: %v", err)
	}
	if claims["sub"] != created.ID {
		t.Fatalf("expected sub %s, got %v", created.ID, claims["sub"])
	}
	if claims["role"] != domain.RoleStaff {
		t.Fatalf("expected role %s, got %v", domain.RoleStaff, claims["role"])
	}
	if jti, _ := claims["jti"].(string); jti == "" {
		t.Fatal("expected jti claim")
	}
}

func TestAuthService_SignIn_InvalidPassword(t *testing.T) {
	svc := newAuthSvc(newStubAuthRepo(), &stubRevocations{})

	register(t, svc, "dave@example.com", "goodpass", domain.RoleStudent)
	if _, _, err := svc.SignIn(context.Background(), "dave@example.com", "badpass"); err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthService_SignIn_UserNotFound(t *testing.T) {
	svc := newAuthSvc(newStubAuthRepo(), &stubRevocations{})

	if _, _, err := svc.SignIn(context.Background(), "ghost@example.com", "pass"); err != domain.ErrUserNotFound {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestAuthService_SignOut_RevokesToken(t *testing.T) {
	rev := &stubRevocations{}
	svc := newAuthSvc(newStubAuthRepo(), rev)

	exp := time.Now().Add(30 * time.Minute)
	if err := svc.SignOut(context.Background(), "jti-1", exp); err != nil {
		t.Fatalf("sign out failed: %v", err)
	}
	if until, ok := rev.revoked["jti-1"]; !ok || !until.Equal(exp) {
		t.Fatalf("expected token revoked until %v, got %v", exp, until)
	}
	if err := svc.SignOut(context.Background(), "", exp); err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials for empty jti, got %v", err)
	}
}

func TestAuthService_CurrentUser(t *testing.T) {
	svc := newAuthSvc(newStubAuthRepo(), &stubRevocations{})
	created := register(t, svc, "erin@example.com", "pw", domain.RoleStudent)

	if _, err := svc.CurrentUser(context.Background()); err != domain.ErrNotSignedIn {
		t.Fatalf("expected ErrNotSignedIn, got %v", err)
	}

	u, err := svc.CurrentUser(WithUserID(context.Background(), created.ID))
	if err != nil {
		t.Fatalf("current user: %v", err)
	}
	if u.Email != "erin@example.com" || u.DisplayName != "Student" {
		t.Fatalf("unexpected profile: %+v", u)
	}
}
