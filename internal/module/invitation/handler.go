package invitation

import (
	"net/http"
	"time"

	"github.com/clusterhub/server/internal/shared/authz"
	"github.com/clusterhub/server/internal/shared/response"
	"github.com/clusterhub/server/internal/utils/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler handles HTTP requests for invitations.
type Handler struct {
	service   *Service
	enforcer  *authz.Enforcer
	limiter   middleware.RateLimiter
	rateLimit int
}

// NewHandler creates a new invitation handler. Issuing and resolving are
// limited to rateLimit requests per hour per user or IP when limiter is
// non-nil.
func NewHandler(service *Service, enforcer *authz.Enforcer, limiter middleware.RateLimiter, rateLimit int) *Handler {
	return &Handler{
		service:   service,
		enforcer:  enforcer,
		limiter:   limiter,
		rateLimit: rateLimit,
	}
}

// RegisterPublicRoutes registers routes reachable without a token.
func (h *Handler) RegisterPublicRoutes(r *gin.RouterGroup) {
	limited := middleware.RateLimitByIP(h.limiter, h.rateLimit, time.Hour)
	r.GET("/invitations/accept/:token", limited, h.Resolve)
}

// RegisterRoutes registers the authenticated invitation routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	canManage := authz.RequirePermission(h.enforcer, authz.ObjInvitation, authz.ActManage)
	canAccept := authz.RequirePermission(h.enforcer, authz.ObjInvitation, authz.ActAccept)
	limited := middleware.RateLimitByUser(h.limiter, h.rateLimit, time.Hour)

	invitations := r.Group("/invitations")
	{
		invitations.POST("/invite", limited, canManage, h.Issue)
		invitations.POST("/accept", canAccept, h.Accept)
		invitations.GET("/mine", h.ListMine)
		invitations.GET("/project/:projectId", canManage, h.ListByProject)
		invitations.DELETE("/:invitationId", canManage, h.Cancel)
		invitations.POST("/:invitationId/resend", limited, canManage, h.Resend)
	}
}

// Issue invites an email address to a project.
//
//	@Summary		Invite investor
//	@Description	Creates a pending invitation and emails it. Delivery failures are reported on the invitation, not as an error.
//	@Tags			Invitation
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		IssueRequest	true	"Invitation"
//	@Success		201		{object}	InvitationResponse
//	@Failure		400		{object}	errors.ErrorResponse
//	@Failure		403		{object}	errors.ErrorResponse
//	@Failure		404		{object}	errors.ErrorResponse
//	@Failure		409		{object}	errors.ErrorResponse
//	@Failure		429		{object}	errors.ErrorResponse
//	@Router			/invitations/invite [post]
func (h *Handler) Issue(c *gin.Context) {
	caller, _ := authz.CallerFrom(c)

	var req IssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	inv, err := h.service.Issue(c.Request.Context(), caller, &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	resp := inv.ToResponse(h.service.Now())
	resp.Token = inv.Token
	resp.AcceptURL = h.service.AcceptURL(inv.Token)
	c.JSON(http.StatusCreated, resp)
}

// Resolve shows a live invitation before the invitee signs in.
//
//	@Summary		Resolve invitation
//	@Tags			Invitation
//	@Produce		json
//	@Param			token	path		string	true	"Invitation token"
//	@Success		200		{object}	Resolution
//	@Failure		400		{object}	errors.ErrorResponse
//	@Failure		404		{object}	errors.ErrorResponse
//	@Failure		409		{object}	errors.ErrorResponse
//	@Router			/invitations/accept/{token} [get]
func (h *Handler) Resolve(c *gin.Context) {
	res, err := h.service.Resolve(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Accept joins the caller to the invitation's project.
//
//	@Summary		Accept invitation
//	@Description	The caller's email on record must match the invitee email
//	@Tags			Invitation
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		AcceptRequest	true	"Token"
//	@Success		200		{object}	AcceptResponse
//	@Failure		400		{object}	errors.ErrorResponse
//	@Failure		403		{object}	errors.ErrorResponse
//	@Failure		404		{object}	errors.ErrorResponse
//	@Failure		409		{object}	errors.ErrorResponse
//	@Router			/invitations/accept [post]
func (h *Handler) Accept(c *gin.Context) {
	caller, _ := authz.CallerFrom(c)

	var req AcceptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.AcceptAs(c.Request.Context(), caller, req.Token)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, result.ToResponse())
}

// ListMine returns live invitations addressed to the caller.
//
//	@Summary		List my invitations
//	@Tags			Invitation
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	map[string]interface{}
//	@Router			/invitations/mine [get]
func (h *Handler) ListMine(c *gin.Context) {
	caller, ok := authz.CallerFrom(c)
	if !ok {
		response.Unauthorized(c, "")
		return
	}

	views, err := h.service.ListMine(c.Request.Context(), caller)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"invitations": h.toResponses(views)})
}

// ListByProject returns a project's invitations.
//
//	@Summary		List project invitations
//	@Tags			Invitation
//	@Produce		json
//	@Security		BearerAuth
//	@Param			projectId	path		string	true	"Project ID"
//	@Param			status		query		string	false	"Filter by status"
//	@Success		200			{object}	map[string]interface{}
//	@Failure		403			{object}	errors.ErrorResponse
//	@Failure		404			{object}	errors.ErrorResponse
//	@Router			/invitations/project/{projectId} [get]
func (h *Handler) ListByProject(c *gin.Context) {
	caller, _ := authz.CallerFrom(c)
	projectID, err := uuid.Parse(c.Param("projectId"))
	if err != nil {
		response.BadRequest(c, "invalid project id")
		return
	}

	var q ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	views, err := h.service.ListByProject(c.Request.Context(), caller, projectID, q.Status)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"invitations": h.toResponses(views)})
}

// Cancel withdraws a pending invitation.
//
//	@Summary		Cancel invitation
//	@Tags			Invitation
//	@Produce		json
//	@Security		BearerAuth
//	@Param			invitationId	path		string	true	"Invitation ID"
//	@Success		200				{object}	InvitationResponse
//	@Failure		400				{object}	errors.ErrorResponse
//	@Failure		403				{object}	errors.ErrorResponse
//	@Failure		404				{object}	errors.ErrorResponse
//	@Router			/invitations/{invitationId} [delete]
func (h *Handler) Cancel(c *gin.Context) {
	caller, _ := authz.CallerFrom(c)
	id, err := uuid.Parse(c.Param("invitationId"))
	if err != nil {
		response.BadRequest(c, "invalid invitation id")
		return
	}

	inv, err := h.service.Cancel(c.Request.Context(), caller, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, inv.ToResponse(h.service.Now()))
}

// Resend re-delivers a pending invitation's email.
//
//	@Summary		Resend invitation
//	@Tags			Invitation
//	@Produce		json
//	@Security		BearerAuth
//	@Param			invitationId	path		string	true	"Invitation ID"
//	@Success		200				{object}	InvitationResponse
//	@Failure		400				{object}	errors.ErrorResponse
//	@Failure		403				{object}	errors.ErrorResponse
//	@Router			/invitations/{invitationId}/resend [post]
func (h *Handler) Resend(c *gin.Context) {
	caller, _ := authz.CallerFrom(c)
	id, err := uuid.Parse(c.Param("invitationId"))
	if err != nil {
		response.BadRequest(c, "invalid invitation id")
		return
	}

	inv, err := h.service.Resend(c.Request.Context(), caller, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, inv.ToResponse(h.service.Now()))
}

func (h *Handler) toResponses(views []*View) []*InvitationResponse {
	now := h.service.Now()
	items := make([]*InvitationResponse, len(views))
	for i, v := range views {
		items[i] = v.ToResponse(now)
	}
	return items
}
