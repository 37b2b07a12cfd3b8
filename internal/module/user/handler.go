package user

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/clusterhub/server/internal/shared/authz"
	"github.com/clusterhub/server/internal/shared/response"
	"github.com/clusterhub/server/internal/utils/pagination"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxWebhookBody = 1 << 20

// Handler handles HTTP requests for the user directory.
type Handler struct {
	service  *Service
	enforcer *authz.Enforcer
	verifier *WebhookVerifier
	logger   *zap.Logger
}

// NewHandler creates a new user handler. A nil verifier makes the webhook
// endpoint answer 500 until a secret is configured.
func NewHandler(service *Service, enforcer *authz.Enforcer, verifier *WebhookVerifier, logger *zap.Logger) *Handler {
	return &Handler{
		service:  service,
		enforcer: enforcer,
		verifier: verifier,
		logger:   logger,
	}
}

// RegisterRoutes registers routes that require authentication.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	adminOnly := authz.RequirePermission(h.enforcer, authz.ObjUser, authz.ActManage)

	users := r.Group("/users")
	{
		users.GET("", adminOnly, h.List)
		users.GET("/me", h.GetCurrentUser)
		users.GET("/:id", h.GetUser)
		users.PATCH("/:id/role", adminOnly, h.ChangeRole)
	}
}

// RegisterWebhookRoutes registers the unauthenticated, signature-verified webhook.
func (h *Handler) RegisterWebhookRoutes(r *gin.RouterGroup) {
	r.POST("/webhooks/identity", h.IdentityWebhook)
}

// List handles listing users.
//
//	@Summary		List users
//	@Description	List all users (super admin only)
//	@Tags			User
//	@Produce		json
//	@Security		BearerAuth
//	@Param			role		query		string	false	"Filter by role"
//	@Param			email		query		string	false	"Filter by email substring"
//	@Param			page		query		int		false	"Page number"
//	@Param			page_size	query		int		false	"Page size"
//	@Success		200			{object}	map[string]interface{}
//	@Failure		403			{object}	errors.ErrorResponse
//	@Router			/users [get]
func (h *Handler) List(c *gin.Context) {
	var q ListQuery
	p := pagination.New()
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := c.ShouldBindQuery(p); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	filter := &Filter{Email: q.Email}
	if q.Role != "" {
		role, ok := authz.ParseRole(q.Role)
		if !ok {
			response.Error(c, ErrInvalidRole)
			return
		}
		filter.Role = &role
	}

	users, total, err := h.service.List(c.Request.Context(), filter, p.Normalize())
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]*UserResponse, len(users))
	for i, u := range users {
		items[i] = u.ToResponse()
	}
	c.JSON(http.StatusOK, pagination.NewPage(items, p, total))
}

// GetCurrentUser returns the authenticated user's profile.
//
//	@Summary		Get current user
//	@Tags			User
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	UserResponse
//	@Failure		401	{object}	errors.ErrorResponse
//	@Router			/users/me [get]
func (h *Handler) GetCurrentUser(c *gin.Context) {
	caller, ok := authz.CallerFrom(c)
	if !ok {
		response.Unauthorized(c, "")
		return
	}

	u, err := h.service.Get(c.Request.Context(), caller.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, u.ToResponse())
}

// GetUser returns a user by ID.
//
//	@Summary		Get user
//	@Description	Get a user profile (self or super admin)
//	@Tags			User
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"User ID"
//	@Success		200	{object}	UserResponse
//	@Failure		403	{object}	errors.ErrorResponse
//	@Failure		404	{object}	errors.ErrorResponse
//	@Router			/users/{id} [get]
func (h *Handler) GetUser(c *gin.Context) {
	caller, ok := authz.CallerFrom(c)
	if !ok {
		response.Unauthorized(c, "")
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}

	u, err := h.service.GetProfile(c.Request.Context(), caller, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, u.ToResponse())
}

// ChangeRole updates a user's role.
//
//	@Summary		Change user role
//	@Tags			User
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		string				true	"User ID"
//	@Param			request	body		ChangeRoleRequest	true	"New role"
//	@Success		200		{object}	UserResponse
//	@Failure		400		{object}	errors.ErrorResponse
//	@Failure		403		{object}	errors.ErrorResponse
//	@Router			/users/{id}/role [patch]
func (h *Handler) ChangeRole(c *gin.Context) {
	caller, _ := authz.CallerFrom(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}

	var req ChangeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	u, err := h.service.ChangeRole(c.Request.Context(), caller, id, req.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, u.ToResponse())
}

// IdentityWebhook syncs users from the identity provider.
//
//	@Summary		Identity provider webhook
//	@Description	Receives user.created, user.updated and user.deleted events signed with svix headers
//	@Tags			Webhook
//	@Accept			json
//	@Produce		json
//	@Param			svix-id			header		string	true	"Message ID"
//	@Param			svix-timestamp	header		string	true	"Unix timestamp"
//	@Param			svix-signature	header		string	true	"Signatures"
//	@Success		200				{object}	WebhookResponse
//	@Failure		400				{object}	errors.ErrorResponse
//	@Failure		401				{object}	errors.ErrorResponse
//	@Router			/webhooks/identity [post]
func (h *Handler) IdentityWebhook(c *gin.Context) {
	if h.verifier == nil {
		response.Error(c, ErrWebhookSecretNotSet)
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		response.BadRequest(c, "unable to read body")
		return
	}

	if err := h.verifier.Verify(
		c.GetHeader("svix-id"),
		c.GetHeader("svix-timestamp"),
		c.GetHeader("svix-signature"),
		body,
	); err != nil {
		h.logger.Warn("identity webhook rejected",
			zap.String("svix_id", c.GetHeader("svix-id")),
			zap.Error(err),
		)
		response.Error(c, err)
		return
	}

	var evt IdentityEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		response.Error(c, ErrInvalidPayload)
		return
	}
	if evt.Data.ID == "" {
		response.Error(c, ErrInvalidUserID)
		return
	}

	ctx := c.Request.Context()
	switch evt.Type {
	case EventUserCreated, EventUserUpdated:
		u, err := h.service.SyncIdentity(ctx, evt.Data, evt.Type == EventUserCreated)
		if err != nil {
			response.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, WebhookResponse{Message: "user synced", User: u.ToResponse()})

	case EventUserDeleted:
		deleted, err := h.service.DeleteIdentity(ctx, evt.Data.ID)
		if err != nil {
			response.Error(c, err)
			return
		}
		msg := "user deleted"
		if !deleted {
			msg = "user not found"
		}
		c.JSON(http.StatusOK, WebhookResponse{Message: msg})

	default:
		c.JSON(http.StatusOK, WebhookResponse{Message: "unhandled event type: " + evt.Type})
	}
}
