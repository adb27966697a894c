package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/wellness-auth/internal/application"
	"github.com/oksasatya/wellness-auth/pkg/response"
)

const CtxUserIDKey = "userID"

// TokenAuthenticator resolves a bearer token to a user id.
type TokenAuthenticator interface {
	Authenticate(token string) (string, error)
}

// Auth requires an "Authorization: Bearer <token>" header and sets userID in
// the Gin context on success.
func Auth(auth TokenAuthenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			response.Error(c, http.StatusUnauthorized, "missing access token", response.ErrorBody{Code: "unauthorized"})
			return
		}
		uid, err := auth.Authenticate(token)
		if err != nil {
			msg := "invalid access token"
			if errors.Is(err, application.ErrSessionExpired) {
				msg = "access token expired"
			}
			response.Error(c, http.StatusUnauthorized, msg, response.ErrorBody{Code: "unauthorized"})
			return
		}
		c.Set(CtxUserIDKey, uid)
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
