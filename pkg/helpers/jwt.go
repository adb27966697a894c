package helpers

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("invalid token")
)

// JWTManager issues and verifies stateless bearer session tokens.
// There is no revocation list: a token stays valid until its exp claim.
type JWTManager struct {
	AccessSecret []byte
	AccessTTL    time.Duration
	// Now defaults to time.Now; tests pin it.
	Now func() time.Time
}

func NewJWTManager(accessSecret string, accessTTL time.Duration) *JWTManager {
	return &JWTManager{
		AccessSecret: []byte(accessSecret),
		AccessTTL:    accessTTL,
		Now:          time.Now,
	}
}

type Claims struct {
	UserID string `json:"uid"`
	jwt.RegisteredClaims
}

func (m *JWTManager) now() time.Time {
	if m.Now == nil {
		return time.Now()
	}
	return m.Now()
}

// Issue signs an HS256 token for userID and returns it with its expiry.
func (m *JWTManager) Issue(userID string) (string, time.Time, error) {
	now := m.now()
	exp := now.Add(m.AccessTTL)
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := t.SignedString(m.AccessSecret)
	return s, exp, err
}

// Verify returns the user id carried by tokenStr, ErrTokenExpired past its
// expiry, or ErrTokenInvalid for any signature or structure failure.
func (m *JWTManager) Verify(tokenStr string) (string, error) {
	claims := &Claims{}
	tkn, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.AccessSecret, nil
	}, jwt.WithTimeFunc(m.now), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrTokenInvalid
	}
	if !tkn.Valid || claims.UserID == "" || claims.UserID != claims.Subject {
		return "", ErrTokenInvalid
	}
	return claims.UserID, nil
}
