package usecase

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pingline/internal/domain/entity"
	"pingline/pkg/errors"
)

type fakeAuthClient struct {
	users  map[string]string // email -> uid
	tokens map[string]string // token -> uid
}

func newFakeAuthClient() *fakeAuthClient {
	return &fakeAuthClient{
		users:  make(map[string]string),
		tokens: make(map[string]string),
	}
}

func (f *fakeAuthClient) CreateUser(ctx context.Context, email, password, displayName string) (string, error) {
	uid := fmt.Sprintf("uid-%d", len(f.users)+1)
	f.users[email] = uid
	return uid, nil
}

func (f *fakeAuthClient) SignInWithEmailPassword(ctx context.Context, email, password string) (string, string, error) {
	uid, ok := f.users[email]
	if !ok {
		return "", "", fmt.Errorf("INVALID_LOGIN_CREDENTIALS")
	}
	token := "token-" + uid
	f.tokens[token] = uid
	return token, "refresh-" + uid, nil
}

func (f *fakeAuthClient) VerifyToken(ctx context.Context, token string) (string, error) {
	uid, ok := f.tokens[token]
	if !ok {
		return "", fmt.Errorf("invalid token")
	}
	return uid, nil
}

func (f *fakeAuthClient) RefreshIDToken(ctx context.Context, refreshToken string) (string, string, error) {
	for token, uid := range f.tokens {
		if refreshToken == "refresh-"+uid {
			return token, refreshToken, nil
		}
	}
	return "", "", fmt.Errorf("invalid refresh token")
}

func TestRegister(t *testing.T) {
	userRepo := newFakeUserRepo()
	uc := NewAuthUseCase(userRepo, newFakeAuthClient())

	result, err := uc.Register(context.Background(), RegisterInput{
		Email:    "dave@example.com",
		Password: "s3cret-pass",
		Name:     "Dave",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, result.Token)
	assert.NotEmpty(t, result.RefreshToken)
	assert.Equal(t, "Dave", result.User.Name)
	assert.NotEmpty(t, result.User.AvatarURL, "a generated avatar fills the gap when none is given")

	stored, err := userRepo.GetByID(context.Background(), result.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "dave@example.com", stored.Email)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	userRepo := newFakeUserRepo(&entity.User{ID: "u1", Email: "dave@example.com"})
	uc := NewAuthUseCase(userRepo, newFakeAuthClient())

	_, err := uc.Register(context.Background(), RegisterInput{
		Email:    "dave@example.com",
		Password: "s3cret-pass",
		Name:     "Dave",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, "BAD_REQUEST"))
}

func TestLogin(t *testing.T) {
	userRepo := newFakeUserRepo()
	authClient := newFakeAuthClient()
	uc := NewAuthUseCase(userRepo, authClient)

	registered, err := uc.Register(context.Background(), RegisterInput{
		Email:    "dave@example.com",
		Password: "s3cret-pass",
		Name:     "Dave",
	})
	require.NoError(t, err)

	result, err := uc.Login(context.Background(), "dave@example.com", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, result.User.ID)
	assert.NotEmpty(t, result.Token)
}

func TestLoginInvalidCredentials(t *testing.T) {
	uc := NewAuthUseCase(newFakeUserRepo(), newFakeAuthClient())

	_, err := uc.Login(context.Background(), "nobody@example.com", "wrong")
	require.Error(t, err)
	assert.True(t, errors.Is(err, "UNAUTHORIZED"))
}

func TestRefreshToken(t *testing.T) {
	userRepo := newFakeUserRepo()
	authClient := newFakeAuthClient()
	uc := NewAuthUseCase(userRepo, authClient)

	registered, err := uc.Register(context.Background(), RegisterInput{
		Email:    "dave@example.com",
		Password: "s3cret-pass",
		Name:     "Dave",
	})
	require.NoError(t, err)

	result, err := uc.RefreshToken(context.Background(), registered.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, result.User.ID)

	_, err = uc.RefreshToken(context.Background(), "bogus")
	require.Error(t, err)
	assert.True(t, errors.Is(err, "UNAUTHORIZED"))
}
