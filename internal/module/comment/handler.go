package comment

import (
	"net/http"

	"github.com/clusterhub/server/internal/shared/authz"
	"github.com/clusterhub/server/internal/shared/response"
	"github.com/clusterhub/server/internal/utils/pagination"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler handles HTTP requests for comments.
type Handler struct {
	service  *Service
	enforcer *authz.Enforcer
}

// NewHandler creates a new comment handler.
func NewHandler(service *Service, enforcer *authz.Enforcer) *Handler {
	return &Handler{
		service:  service,
		enforcer: enforcer,
	}
}

// RegisterRoutes registers comment routes. All routes require authentication.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	canWrite := authz.RequirePermission(h.enforcer, authz.ObjComment, authz.ActWrite)

	r.POST("/tasks/:taskId/comments", canWrite, h.Create)
	r.GET("/tasks/:taskId/comments", h.List)

	comments := r.Group("/comments")
	{
		comments.PATCH("/:commentId", canWrite, h.Edit)
		comments.DELETE("/:commentId", canWrite, h.Delete)
	}
}

// Create comments on a task.
//
//	@Summary		Create comment
//	@Tags			Comment
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			taskId	path		string					true	"Task ID"
//	@Param			request	body		CreateCommentRequest	true	"Comment"
//	@Success		201		{object}	Comment
//	@Failure		400		{object}	errors.ErrorResponse
//	@Failure		403		{object}	errors.ErrorResponse
//	@Router			/tasks/{taskId}/comments [post]
func (h *Handler) Create(c *gin.Context) {
	caller, taskID, ok := callerAndID(c, "taskId")
	if !ok {
		return
	}

	var req CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	comment, err := h.service.Create(c.Request.Context(), caller, taskID, req.Text)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

// List returns a task's comments.
//
//	@Summary		List comments
//	@Tags			Comment
//	@Produce		json
//	@Security		BearerAuth
//	@Param			taskId		path		string	true	"Task ID"
//	@Param			page		query		int		false	"Page number"
//	@Param			page_size	query		int		false	"Page size"
//	@Success		200			{object}	map[string]interface{}
//	@Router			/tasks/{taskId}/comments [get]
func (h *Handler) List(c *gin.Context) {
	caller, taskID, ok := callerAndID(c, "taskId")
	if !ok {
		return
	}
	p := pagination.New()
	if err := c.ShouldBindQuery(p); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	comments, total, err := h.service.List(c.Request.Context(), caller, taskID, p.Normalize())
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, pagination.NewPage(comments, p, total))
}

// Edit changes a comment's text.
//
//	@Summary		Edit comment
//	@Tags			Comment
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			commentId	path		string				true	"Comment ID"
//	@Param			request		body		EditCommentRequest	true	"Text"
//	@Success		200			{object}	Comment
//	@Failure		403			{object}	errors.ErrorResponse
//	@Router			/comments/{commentId} [patch]
func (h *Handler) Edit(c *gin.Context) {
	caller, commentID, ok := callerAndID(c, "commentId")
	if !ok {
		return
	}

	var req EditCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	comment, err := h.service.Edit(c.Request.Context(), caller, commentID, req.Text)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, comment)
}

// Delete removes a comment.
//
//	@Summary		Delete comment
//	@Tags			Comment
//	@Security		BearerAuth
//	@Param			commentId	path	string	true	"Comment ID"
//	@Success		204
//	@Failure		403	{object}	errors.ErrorResponse
//	@Router			/comments/{commentId} [delete]
func (h *Handler) Delete(c *gin.Context) {
	caller, commentID, ok := callerAndID(c, "commentId")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), caller, commentID); err != nil {
		response.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func callerAndID(c *gin.Context, param string) (authz.Caller, uuid.UUID, bool) {
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
