package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/wellness-auth/internal/application"
	"github.com/oksasatya/wellness-auth/pkg/helpers"
	"github.com/oksasatya/wellness-auth/pkg/response"
	"github.com/oksasatya/wellness-auth/pkg/validation"
)

type errorMapping struct {
	err     error
	status  int
	code    string
	message string
}

// Messages are fixed strings; causes from the store or mail provider are
// only logged.
var errorMappings = []errorMapping{
	{application.ErrValidation, http.StatusBadRequest, "validation_error", "invalid payload"},
	{application.ErrInvalidCredentials, http.StatusBadRequest, "invalid_credentials", "invalid email or password"},
	{application.ErrDuplicateIdentity, http.StatusConflict, "duplicate_identity", "username or email already registered"},
	{application.ErrUserNotFound, http.StatusNotFound, "not_found", "user not found"},
	{application.ErrInvalidOrExpired, http.StatusBadRequest, "invalid_or_expired", "invalid or expired code or token"},
	{application.ErrPasswordMismatch, http.StatusBadRequest, "mismatch", "passwords do not match"},
	{application.ErrDelivery, http.StatusInternalServerError, "delivery_error", "could not send email, please try again"},
	{application.ErrSessionExpired, http.StatusUnauthorized, "expired", "session expired"},
	{application.ErrSessionInvalid, http.StatusUnauthorized, "invalid", "invalid session"},
}

func writeError(c *gin.Context, logger *logrus.Logger, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			if m.status >= http.StatusInternalServerError {
				helpers.LogError(logger, m.message, err, logrus.Fields{"request_id": c.GetString("request_id")})
			}
			response.Error(c, m.status, m.message, response.ErrorBody{Code: m.code})
			return
		}
	}
	helpers.LogError(logger, "request failed", err, logrus.Fields{"request_id": c.GetString("request_id")})
	response.Error(c, http.StatusInternalServerError, "internal server error", response.ErrorBody{Code: "internal_error"})
}

func bindError(c *gin.Context, err error) {
	response.Error(c, http.StatusBadRequest, "invalid payload", response.ErrorBody{Code: "validation_error", Details: validation.ToDetails(err)})
}

func requestMeta(c *gin.Context) application.RequestMeta {
	ip := c.GetString("real_ip")
	if ip == "" {
		ip = c.ClientIP()
	}
	return application.RequestMeta{IP: ip, UserAgent: c.GetHeader("User-Agent")}
}
