package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/wellness-auth/internal/application"
	"github.com/oksasatya/wellness-auth/pkg/response"
)

type RecoveryHandler struct {
	Svc    *application.RecoveryService
	Logger *logrus.Logger
}

func NewRecoveryHandler(svc *application.RecoveryService, logger *logrus.Logger) *RecoveryHandler {
	return &RecoveryHandler{Svc: svc, Logger: logger}
}

type forgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type verifyOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code" binding:"required,otp"`
}

// confirmPassword is compared by the service so a mismatch keeps the token.
type resetPasswordRequest struct {
	ExchangeToken   string `json:"exchangeToken" binding:"required"`
	Password        string `json:"password" binding:"required,pwd"`
	ConfirmPassword string `json:"confirmPassword" binding:"required"`
}

// ForgotPassword POST /api/users/forgotpassword
func (h *RecoveryHandler) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if err := h.Svc.ForgotPassword(c.Request.Context(), req.Email, requestMeta(c)); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success[any](c, http.StatusOK, nil, "a reset code has been sent to your email", nil)
}

// VerifyOTP POST /api/users/verify-otp
func (h *RecoveryHandler) VerifyOTP(c *gin.Context) {
	var req verifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	token, err := h.Svc.VerifyOTP(c.Request.Context(), req.Email, req.Code, requestMeta(c))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"exchangeToken": token}, "code verified", nil)
}

// ResetPassword PUT /api/users/resetpassword
func (h *RecoveryHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if err := h.Svc.ResetPassword(c.Request.Context(), req.ExchangeToken, req.Password, req.ConfirmPassword, requestMeta(c)); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success[any](c, http.StatusOK, nil, "password has been reset", nil)
}
