package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/wellness-auth/internal/application"
	"github.com/oksasatya/wellness-auth/pkg/response"
)

type AuthHandler struct {
	Svc    *application.Service
	Logger *logrus.Logger
}

func NewAuthHandler(svc *application.Service, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{Svc: svc, Logger: logger}
}

type registerRequest struct {
	Username string `json:"username" binding:"required,uname"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,pwd"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,pwdbytes"`
}

// Register POST /api/users/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	u, sess, err := h.Svc.Register(c.Request.Context(), application.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	}, requestMeta(c))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusCreated, toAuthResult(u, sess), "registered", nil)
}

// Login POST /api/users/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	u, sess, err := h.Svc.Login(c.Request.Context(), req.Email, req.Password, requestMeta(c))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toAuthResult(u, sess), "login successful", nil)
}

// Profile GET /api/users/profile
func (h *AuthHandler) Profile(c *gin.Context) {
	u, err := h.Svc.GetProfile(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		// a token for an account that no longer exists is not a session
		if errors.Is(err, application.ErrUserNotFound) {
			err = application.ErrSessionInvalid
		}
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toSummary(u), "profile", nil)
}
