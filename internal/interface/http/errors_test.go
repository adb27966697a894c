package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/wellness-auth/internal/application"
	"github.com/oksasatya/wellness-auth/pkg/helpers"
)

func TestWriteError_StatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		err  error
		code int
		kind string
	}{
		{application.ErrValidation, http.StatusBadRequest, "validation_error"},
		{application.ErrInvalidCredentials, http.StatusBadRequest, "invalid_credentials"},
		{application.ErrDuplicateIdentity, http.StatusConflict, "duplicate_identity"},
		{application.ErrUserNotFound, http.StatusNotFound, "not_found"},
		{application.ErrInvalidOrExpired, http.StatusBadRequest, "invalid_or_expired"},
		{application.ErrPasswordMismatch, http.StatusBadRequest, "mismatch"},
		{fmt.Errorf("%w: smtp 421", application.ErrDelivery), http.StatusInternalServerError, "delivery_error"},
		{application.ErrSessionExpired, http.StatusUnauthorized, "expired"},
		{application.ErrSessionInvalid, http.StatusUnauthorized, "invalid"},
		{fmt.Errorf("%w: lookup user: dial tcp 10.0.0.9:5432", application.ErrInternal), http.StatusInternalServerError, "internal_error"},
		{errors.New("unexpected"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		t.Run(tc.kind, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			writeError(c, helpers.NewNopLogger(), tc.err)

			require.Equal(t, tc.code, w.Code)
			var body struct {
				Message string `json:"message"`
				Error   struct {
					Code string `json:"code"`
				} `json:"error"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tc.kind, body.Error.Code)
			assert.NotContains(t, w.Body.String(), "5432")
			assert.NotContains(t, w.Body.String(), "smtp")
		})
	}
}
