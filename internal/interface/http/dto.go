package handlers

import (
	"time"

	"github.com/oksasatya/wellness-auth/internal/application"
	"github.com/oksasatya/wellness-auth/internal/domain/entity"
)

// UserSummary is the only user shape that leaves the service.
type UserSummary struct {
	ID               string    `json:"id"`
	Username         string    `json:"username"`
	Email            string    `json:"email"`
	IsLifetimeMentor bool      `json:"isLifetimeMentor"`
	CreatedAt        time.Time `json:"createdAt"`
}

func toSummary(u *entity.User) UserSummary {
	return UserSummary{
		ID:               u.ID,
		Username:         u.Username,
		Email:            u.Email,
		IsLifetimeMentor: u.IsLifetimeMentor,
		CreatedAt:        u.CreatedAt,
	}
}

type AuthResult struct {
	User      UserSummary `json:"user"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
}

func toAuthResult(u *entity.User, s application.Session) AuthResult {
	return AuthResult{User: toSummary(u), Token: s.Token, ExpiresAt: s.ExpiresAt}
}
