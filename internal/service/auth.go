package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rocketscienceinc/xoxo-backend/internal/apperror"
)

const tokenLifetime = 30 * 24 * time.Hour

// AuthService issues opaque anonymous identities. The signed token lets a
// browser client resume the same identity across visits.
type AuthService interface {
	SignInAnonymously() (string, string, error)
	VerifyToken(token string) (string, error)
}

type authService struct {
	secretKey string
}

func NewAuthService(secretKey string) AuthService {
	return &authService{
		secretKey: secretKey,
	}
}

// SignInAnonymously - mints a fresh uid and a token bound to it.
func (that *authService) SignInAnonymously() (string, string, error) {
	uid := uuid.NewString()

	claims := jwt.MapClaims{
		"sub": uid,
		"exp": time.Now().Add(tokenLifetime).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString([]byte(that.secretKey))
	if err != nil {
		return "", "", fmt.Errorf("failed to sign token: %w", err)
	}

	return uid, tokenString, nil
}

// VerifyToken - returns the uid the token was minted for.
func (that *authService) VerifyToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(that.secretKey), nil
	})
	if err != nil || !token.Valid {
		return "", apperror.ErrNotAuthenticated
	}

	uid, err := token.Claims.GetSubject()
	if err != nil || uid == "" {
		return "", apperror.ErrNotAuthenticated
	}

	return uid, nil
}
