package project

import (
	"net/http"

	"github.com/clusterhub/server/internal/shared/authz"
	"github.com/clusterhub/server/internal/shared/response"
	"github.com/clusterhub/server/internal/utils/pagination"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler handles HTTP requests for projects.
type Handler struct {
	service  *Service
	enforcer *authz.Enforcer
}

// NewHandler creates a new project handler.
func NewHandler(service *Service, enforcer *authz.Enforcer) *Handler {
	return &Handler{
		service:  service,
		enforcer: enforcer,
	}
}

// RegisterRoutes registers project routes. All routes require authentication.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	canCreate := authz.RequirePermission(h.enforcer, authz.ObjProject, authz.ActCreate)

	projects := r.Group("/projects")
	{
		projects.GET("", h.List)
		projects.POST("", canCreate, h.Create)
		projects.GET("/user/:userId", h.ListForUser)
		projects.GET("/:id", h.Get)
		projects.PATCH("/:id", h.Update)
		projects.PATCH("/:id/status", h.ChangeStatus)
		projects.DELETE("/:id", h.Delete)
		projects.GET("/:id/investors", h.ListInvestors)
		projects.DELETE("/:id/investors/:investorId", h.RemoveInvestor)
	}
}

// List returns projects visible to the caller.
//
//	@Summary		List projects
//	@Description	Super admins see every project, others see projects they own or invest in
//	@Tags			Project
//	@Produce		json
//	@Security		BearerAuth
//	@Param			page		query		int	false	"Page number"
//	@Param			page_size	query		int	false	"Page size"
//	@Success		200			{object}	map[string]interface{}
//	@Router			/projects [get]
func (h *Handler) List(c *gin.Context) {
	caller, ok := authz.CallerFrom(c)
	if !ok {
		response.Unauthorized(c, "")
		return
	}
	p := pagination.New()
	if err := c.ShouldBindQuery(p); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	projects, total, err := h.service.List(c.Request.Context(), caller, p.Normalize())
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, pagination.NewPage(toResponses(projects), p, total))
}

// Create creates a project owned by the caller.
//
//	@Summary		Create project
//	@Tags			Project
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		CreateProjectRequest	true	"Project"
//	@Success		201		{object}	ProjectResponse
//	@Failure		400		{object}	errors.ErrorResponse
//	@Failure		403		{object}	errors.ErrorResponse
//	@Router			/projects [post]
func (h *Handler) Create(c *gin.Context) {
	caller, _ := authz.CallerFrom(c)

	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	p, err := h.service.Create(c.Request.Context(), caller, &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, p.ToResponse())
}

// Get returns a project with the caller's access level.
//
//	@Summary		Get project
//	@Tags			Project
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"Project ID"
//	@Success		200	{object}	ProjectDetail
//	@Failure		403	{object}	errors.ErrorResponse
//	@Failure		404	{object}	errors.ErrorResponse
//	@Router			/projects/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	caller, id, ok := h.callerAndID(c, "id")
	if !ok {
		return
	}

	detail, err := h.service.Get(c.Request.Context(), caller, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// ListForUser returns the projects a user owns or invests in.
//
//	@Summary		List a user's projects
//	@Tags			Project
//	@Produce		json
//	@Security		BearerAuth
//	@Param			userId	path		string	true	"User ID"
//	@Success		200		{object}	map[string]interface{}
//	@Failure		403		{object}	errors.ErrorResponse
//	@Failure		404		{object}	errors.ErrorResponse
//	@Router			/projects/user/{userId} [get]
func (h *Handler) ListForUser(c *gin.Context) {
	caller, userID, ok := h.callerAndID(c, "userId")
	if !ok {
		return
	}
	p := pagination.New()
	if err := c.ShouldBindQuery(p); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	projects, total, err := h.service.ListForUser(c.Request.Context(), caller, userID, p.Normalize())
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, pagination.NewPage(toResponses(projects), p, total))
}

// Update changes a project's editable fields.
//
//	@Summary		Update project
//	@Tags			Project
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		string					true	"Project ID"
//	@Param			request	body		UpdateProjectRequest	true	"Changes"
//	@Success		200		{object}	ProjectResponse
//	@Failure		403		{object}	errors.ErrorResponse
//	@Router			/projects/{id} [patch]
func (h *Handler) Update(c *gin.Context) {
	caller, id, ok := h.callerAndID(c, "id")
	if !ok {
		return
	}

	var req UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	p, err := h.service.Update(c.Request.Context(), caller, id, &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, p.ToResponse())
}

// ChangeStatus moves a project to another status.
//
//	@Summary		Change project status
//	@Tags			Project
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		string				true	"Project ID"
//	@Param			request	body		ChangeStatusRequest	true	"Status"
//	@Success		200		{object}	ProjectResponse
//	@Failure		400		{object}	errors.ErrorResponse
//	@Router			/projects/{id}/status [patch]
func (h *Handler) ChangeStatus(c *gin.Context) {
	caller, id, ok := h.callerAndID(c, "id")
	if !ok {
		return
	}

	var req ChangeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	p, err := h.service.ChangeStatus(c.Request.Context(), caller, id, req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, p.ToResponse())
}

// Delete removes a project and all of its children.
//
//	@Summary		Delete project
//	@Tags			Project
//	@Security		BearerAuth
//	@Param			id	path	string	true	"Project ID"
//	@Success		204
//	@Failure		403	{object}	errors.ErrorResponse
//	@Router			/projects/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	caller, id, ok := h.callerAndID(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), caller, id); err != nil {
		response.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListInvestors returns the project's investors.
//
//	@Summary		List investors
//	@Tags			Project
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"Project ID"
//	@Success		200	{array}		InvestorResponse
//	@Router			/projects/{id}/investors [get]
func (h *Handler) ListInvestors(c *gin.Context) {
	caller, id, ok := h.callerAndID(c, "id")
	if !ok {
		return
	}

	investors, err := h.service.ListInvestors(c.Request.Context(), caller, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"investors": investors})
}

// RemoveInvestor drops an investor from the project.
//
//	@Summary		Remove investor
//	@Tags			Project
//	@Security		BearerAuth
//	@Param			id			path	string	true	"Project ID"
//	@Param			investorId	path	string	true	"Investor user ID"
//	@Success		204
//	@Failure		404	{object}	errors.ErrorResponse
//	@Router			/projects/{id}/investors/{investorId} [delete]
func (h *Handler) RemoveInvestor(c *gin.Context) {
	caller, id, ok := h.callerAndID(c, "id")
	if !ok {
		return
	}
	investorID, err := uuid.Parse(c.Param("investorId"))
	if err != nil {
		response.BadRequest(c, "invalid investor id")
		return
	}

	if err := h.service.RemoveInvestor(c.Request.Context(), caller, id, investorID); err != nil {
		response.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) callerAndID(c *gin.Context, param string) (authz.Caller, uuid.UUID, bool) {
	caller, ok := authz.CallerFrom(c)
	if !ok {
		response.Unauthorized(c, "")
		return authz.Caller{}, uuid.Nil, false
	}
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		response.BadRequest(c, "invalid "+param)
		return authz.Caller{}, uuid.Nil, false
	}
	return caller, id, true
}

func toResponses(projects []*Project) []*ProjectResponse {
	items := make([]*ProjectResponse, len(projects))
	for i, p := range projects {
		items[i] = p.ToResponse()
	}
	return items
}
