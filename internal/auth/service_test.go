package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// MockRepository is a mock implementation of the Repository interface
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, user *User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockRepository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func newTestService(repo Repository) *Service {
	return NewService(repo, "test-secret", time.Hour, zap.NewNop())
}

func hashedUser(t *testing.T, email, password string) *User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &User{ID: uuid.New(), Email: email, PasswordHash: string(hash)}
}

func TestRegisterHashesPassword(t *testing.T) {
	repo := new(MockRepository)
	repo.On("GetByEmail", mock.Anything, "ada@example.com").Return(nil, ErrUserNotFound)
	repo.On("Create", mock.Anything, mock.AnythingOfType("*auth.User")).Return(nil)

	svc := newTestService(repo)
	user, err := svc.Register(context.Background(), &RegisterRequest{
		Email:    "ada@example.com",
		Name:     "Ada",
		Password: "correct horse",
	})
	require.NoError(t, err)

	assert.NotEqual(t, "correct horse", user.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("correct horse")))
	repo.AssertExpectations(t)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	repo := new(MockRepository)
	repo.On("GetByEmail", mock.Anything, "ada@example.com").
		Return(&User{Email: "ada@example.com"}, nil)

	svc := newTestService(repo)
	_, err := svc.Register(context.Background(), &RegisterRequest{
		Email:    "ada@example.com",
		Name:     "Ada",
		Password: "correct horse",
	})
	assert.ErrorIs(t, err, ErrEmailTaken)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestLoginIssuesVerifiableToken(t *testing.T) {
	user := hashedUser(t, "ada@example.com", "correct horse")
	repo := new(MockRepository)
	repo.On("GetByEmail", mock.Anything, "ada@example.com").Return(user, nil)

	svc := newTestService(repo)
	resp, err := svc.Login(context.Background(), &LoginRequest{
		Email:    "ada@example.com",
		Password: "correct horse",
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Token)

	id, err := svc.Verify(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, id)
}

func TestLoginWrongPassword(t *testing.T) {
	user := hashedUser(t, "ada@example.com", "correct horse")
	repo := new(MockRepository)
	repo.On("GetByEmail", mock.Anything, "ada@example.com").Return(user, nil)

	svc := newTestService(repo)
	_, err := svc.Login(context.Background(), &LoginRequest{
		Email:    "ada@example.com",
		Password: "wrong horse",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginUnknownEmail(t *testing.T) {
	repo := new(MockRepository)
	repo.On("GetByEmail", mock.Anything, "ghost@example.com").Return(nil, ErrUserNotFound)

	svc := newTestService(repo)
	_, err := svc.Login(context.Background(), &LoginRequest{
		Email:    "ghost@example.com",
		Password: "anything at all",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestVerifyRejectsForgedToken(t *testing.T) {
	user := hashedUser(t, "ada@example.com", "correct horse")
	repo := new(MockRepository)
	repo.On("GetByEmail", mock.Anything, "ada@example.com").Return(user, nil)

	issuer := newTestService(repo)
	resp, err := issuer.Login(context.Background(), &LoginRequest{
		Email:    "ada@example.com",
		Password: "correct horse",
	})
	require.NoError(t, err)

	verifier := NewService(repo, "a different secret", time.Hour, zap.NewNop())
	_, err = verifier.Verify(resp.Token)
	assert.Error(t, err)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	user := hashedUser(t, "ada@example.com", "correct horse")
	repo := new(MockRepository)
	repo.On("GetByEmail", mock.Anything, "ada@example.com").Return(user, nil)

	svc := NewService(repo, "test-secret", -time.Minute, zap.NewNop())
	resp, err := svc.Login(context.Background(), &LoginRequest{
		Email:    "ada@example.com",
		Password: "correct horse",
	})
	require.NoError(t, err)

	_, err = svc.Verify(resp.Token)
	assert.Error(t, err)
}
