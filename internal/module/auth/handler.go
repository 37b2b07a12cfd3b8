package auth

import (
	"net/http"
	"time"

	"github.com/clusterhub/server/internal/shared/response"
	"github.com/clusterhub/server/internal/utils/middleware"
	"github.com/gin-gonic/gin"
)

// Handler handles HTTP requests for authentication.
type Handler struct {
	service    *Service
	limiter    middleware.RateLimiter
	loginLimit int
}

// NewHandler creates a new auth handler. Login and register are limited to
// loginLimit requests per minute per client IP when limiter is non-nil.
func NewHandler(service *Service, limiter middleware.RateLimiter, loginLimit int) *Handler {
	return &Handler{
		service:    service,
		limiter:    limiter,
		loginLimit: loginLimit,
	}
}

// RegisterRoutes registers the public auth routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	limited := middleware.RateLimitByIP(h.limiter, h.loginLimit, time.Minute)

	auth := r.Group("/auth")
	{
		auth.POST("/register", limited, h.Register)
		auth.POST("/login", limited, h.Login)
		auth.POST("/verify-email", limited, h.VerifyEmail)
	}
}

// RegisterProtectedRoutes registers auth routes that need a bearer token.
func (h *Handler) RegisterProtectedRoutes(r *gin.RouterGroup) {
	r.GET("/auth/me", h.Me)
	r.POST("/auth/verify-email/resend", h.ResendVerification)
}

// Register creates a local account.
//
//	@Summary		Register
//	@Description	Create a local account. super_admin cannot be self-assigned.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		RegisterRequest	true	"Registration"
//	@Success		201		{object}	TokenResponse
//	@Failure		400		{object}	errors.ErrorResponse
//	@Failure		409		{object}	errors.ErrorResponse
//	@Failure		429		{object}	errors.ErrorResponse
//	@Router			/auth/register [post]
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.service.Register(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Login signs in with email and password.
//
//	@Summary		Login
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		LoginRequest	true	"Credentials"
//	@Success		200		{object}	TokenResponse
//	@Failure		401		{object}	errors.ErrorResponse
//	@Failure		429		{object}	errors.ErrorResponse
//	@Router			/auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.service.Login(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// VerifyEmail confirms a local account's email address.
//
//	@Summary		Verify email
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		VerifyEmailRequest	true	"Verification token"
//	@Success		200		{object}	user.UserResponse
//	@Failure		400		{object}	errors.ErrorResponse
//	@Failure		429		{object}	errors.ErrorResponse
//	@Router			/auth/verify-email [post]
func (h *Handler) VerifyEmail(c *gin.Context) {
	var req VerifyEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	u, err := h.service.VerifyEmail(c.Request.Context(), req.Token)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, u.ToResponse())
}

// ResendVerification mails a fresh verification link to the caller.
//
//	@Summary		Resend verification email
//	@Tags			Auth
//	@Security		BearerAuth
//	@Success		204
//	@Failure		401	{object}	errors.ErrorResponse
//	@Failure		409	{object}	errors.ErrorResponse
//	@Router			/auth/verify-email/resend [post]
func (h *Handler) ResendVerification(c *gin.Context) {
	if !middleware.IsAuthenticated(c) {
		response.Unauthorized(c, "")
		return
	}

	if err := h.service.ResendVerification(c.Request.Context(), middleware.GetUserID(c)); err != nil {
		response.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Me returns the current user.
//
//	@Summary		Current user
//	@Tags			Auth
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	user.UserResponse
//	@Failure		401	{object}	errors.ErrorResponse
//	@Router			/auth/me [get]
func (h *Handler) Me(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if !middleware.IsAuthenticated(c) {
		response.Unauthorized(c, "")
		return
	}

	u, err := h.service.Me(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, u.ToResponse())
}
