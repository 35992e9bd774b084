package usecases

import (
	"context"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testJWTSecret = "test-secret"

func TestAuthRegister(t *testing.T) {
	store := newFakeOperatorStore()
	auth := NewAuthUsecase(store, testJWTSecret)

	require.NoError(t, auth.Register(context.Background(), "alex", "hunter2", "org-1"))

	op, err := store.GetByUsername(context.Background(), "alex")
	require.NoError(t, err)
	require.NotNil(t, op)
	assert.Equal(t, "operator", op.Role)
	assert.Equal(t, "org-1", op.OrgID)
	assert.True(t, op.IsActive)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(op.PasswordHash), []byte("hunter2")))
}

func TestAuthRegisterDuplicateUsername(t *testing.T) {
	store := newFakeOperatorStore()
	auth := NewAuthUsecase(store, testJWTSecret)

	require.NoError(t, auth.Register(context.Background(), "alex", "hunter2", "org-1"))
	err := auth.Register(context.Background(), "alex", "other", "org-2")
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestAuthLogin(t *testing.T) {
	store := newFakeOperatorStore()
	auth := NewAuthUsecase(store, testJWTSecret)
	require.NoError(t, auth.Register(context.Background(), "alex", "hunter2", "org-1"))

	tokenString, err := auth.Login(context.Background(), "alex", "hunter2")
	require.NoError(t, err)

	token, err := jwt.Parse(tokenString, func(*jwt.Token) (interface{}, error) {
		return []byte(testJWTSecret), nil
	})
	require.NoError(t, err)
	require.True(t, token.Valid)

	claims, ok := token.Claims.(jwt.MapClaims)
	require.True(t, ok)
	assert.Equal(t, "alex", claims["username"])
	assert.Equal(t, "operator", claims["role"])
	assert.Equal(t, "org-1", claims["org_id"])
}

func TestAuthLoginRejectsBadCredentials(t *testing.T) {
	store := newFakeOperatorStore()
	auth := NewAuthUsecase(store, testJWTSecret)
	require.NoError(t, auth.Register(context.Background(), "alex", "hunter2", "org-1"))

	_, err := auth.Login(context.Background(), "alex", "wrong")
	assert.Error(t, err)

	_, err = auth.Login(context.Background(), "nobody", "hunter2")
	assert.Error(t, err)
}

func TestAuthEnsureAdminIdempotent(t *testing.T) {
	store := newFakeOperatorStore()
	auth := NewAuthUsecase(store, testJWTSecret)

	require.NoError(t, auth.EnsureAdmin(context.Background(), "root", "root"))
	require.NoError(t, auth.EnsureAdmin(context.Background(), "root", "changed"))

	op, err := store.GetByUsername(context.Background(), "root")
	require.NoError(t, err)
	require.NotNil(t, op)
	assert.Equal(t, "admin", op.Role)
	// The second call must not overwrite the existing credential.
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(op.PasswordHash), []byte("root")))
	assert.Len(t, store.ops, 1)
}
