package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"supportpilot/internal/entities"
	"supportpilot/internal/interfaces"
)

// ErrUsernameTaken rejects a registration for an existing username.
var ErrUsernameTaken = errors.New("username already exists")

// AuthUsecase issues JWTs for operators of the escalation API.
type AuthUsecase struct {
	operators interfaces.OperatorStore
	jwtSecret []byte
}

func NewAuthUsecase(operators interfaces.OperatorStore, secret string) *AuthUsecase {
	return &AuthUsecase{
		operators: operators,
		jwtSecret: []byte(secret),
	}
}

func (uc *AuthUsecase) Register(ctx context.Context, username, password, orgID string) error {
	existing, err := uc.operators.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrUsernameTaken
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	op := &entities.Operator{
		Username:     username,
		PasswordHash: string(hashed),
		Role:         "operator",
		OrgID:        orgID,
		IsActive:     true,
	}
	return uc.operators.Create(ctx, op)
}

func (uc *AuthUsecase) Login(ctx context.Context, username, password string) (string, error) {
	op, err := uc.operators.GetByUsername(ctx, username)
	if err != nil {
		return "", err
	}
	if op == nil || !op.IsActive {
		return "", errors.New("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(op.PasswordHash), []byte(password)); err != nil {
		return "", errors.New("invalid credentials")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"operator_id": op.ID,
		"username":    op.Username,
		"role":        op.Role,
		"org_id":      op.OrgID,
		"exp":         time.Now().Add(time.Hour * 24).Unix(),
	})

	tokenString, err := token.SignedString(uc.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %v", err)
	}
	return tokenString, nil
}

// EnsureAdmin creates a root operator if none exists (called on startup).
func (uc *AuthUsecase) EnsureAdmin(ctx context.Context, username, password string) error {
	op, err := uc.operators.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	if op == nil {
		hashed, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		admin := &entities.Operator{
			Username:     username,
			PasswordHash: string(hashed),
			Role:         "admin",
			IsActive:     true,
		}
		return uc.operators.Create(ctx, admin)
	}
	return nil
}
