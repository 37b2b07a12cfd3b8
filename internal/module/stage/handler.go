package stage

import (
	"net/http"

	"github.com/clusterhub/server/internal/shared/authz"
	"github.com/clusterhub/server/internal/shared/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler handles HTTP requests for stages and tasks.
type Handler struct {
	service  *Service
	enforcer *authz.Enforcer
}

// NewHandler creates a new stage handler.
func NewHandler(service *Service, enforcer *authz.Enforcer) *Handler {
	return &Handler{
		service:  service,
		enforcer: enforcer,
	}
}

// RegisterRoutes registers stage and task routes. All routes require authentication.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	canManage := authz.RequirePermission(h.enforcer, authz.ObjStage, authz.ActManage)

	r.POST("/projects/:id/stages", canManage, h.CreateStage)
	r.GET("/projects/:id/stages", h.ListStages)

	stages := r.Group("/stages")
	{
		stages.PATCH("/:stageId", canManage, h.UpdateStage)
		stages.DELETE("/:stageId", canManage, h.DeleteStage)
		stages.POST("/:stageId/tasks", canManage, h.AddTasks)
		stages.GET("/:stageId/tasks", h.ListTasks)
	}

	tasks := r.Group("/tasks")
	{
		tasks.PATCH("/:taskId", canManage, h.UpdateTask)
		tasks.DELETE("/:taskId", canManage, h.DeleteTask)
	}
}

// CreateStage appends a stage to a project.
//
//	@Summary		Create stage
//	@Tags			Stage
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		string				true	"Project ID"
//	@Param			request	body		CreateStageRequest	true	"Stage"
//	@Success		201		{object}	Stage
//	@Failure		400		{object}	errors.ErrorResponse
//	@Failure		403		{object}	errors.ErrorResponse
//	@Router			/projects/{id}/stages [post]
func (h *Handler) CreateStage(c *gin.Context) {
	caller, projectID, ok := callerAndID(c, "id")
	if !ok {
		return
	}

	var req CreateStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	stage, err := h.service.CreateStage(c.Request.Context(), caller, projectID, &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, stage)
}

// ListStages returns a project's stages with their tasks.
//
//	@Summary		List stages
//	@Tags			Stage
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"Project ID"
//	@Success		200	{object}	map[string]interface{}
//	@Failure		403	{object}	errors.ErrorResponse
//	@Router			/projects/{id}/stages [get]
func (h *Handler) ListStages(c *gin.Context) {
	caller, projectID, ok := callerAndID(c, "id")
	if !ok {
		return
	}

	stages, err := h.service.ListStages(c.Request.Context(), caller, projectID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stages": stages})
}

// UpdateStage edits a stage.
//
//	@Summary		Update stage
//	@Tags			Stage
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			stageId	path		string				true	"Stage ID"
//	@Param			request	body		UpdateStageRequest	true	"Changes"
//	@Success		200		{object}	Stage
//	@Failure		404		{object}	errors.ErrorResponse
//	@Router			/stages/{stageId} [patch]
func (h *Handler) UpdateStage(c *gin.Context) {
	caller, stageID, ok := callerAndID(c, "stageId")
	if !ok {
		return
	}

	var req UpdateStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	stage, err := h.service.UpdateStage(c.Request.Context(), caller, stageID, &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, stage)
}

// DeleteStage removes a stage with its tasks.
//
//	@Summary		Delete stage
//	@Tags			Stage
//	@Security		BearerAuth
//	@Param			stageId	path	string	true	"Stage ID"
//	@Success		204
//	@Failure		404	{object}	errors.ErrorResponse
//	@Router			/stages/{stageId} [delete]
func (h *Handler) DeleteStage(c *gin.Context) {
	caller, stageID, ok := callerAndID(c, "stageId")
	if !ok {
		return
	}

	if err := h.service.DeleteStage(c.Request.Context(), caller, stageID); err != nil {
		response.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AddTasks appends tasks to a stage.
//
//	@Summary		Add tasks
//	@Tags			Task
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			stageId	path		string			true	"Stage ID"
//	@Param			request	body		AddTasksRequest	true	"Tasks"
//	@Success		201		{object}	map[string]interface{}
//	@Failure		400		{object}	errors.ErrorResponse
//	@Router			/stages/{stageId}/tasks [post]
func (h *Handler) AddTasks(c *gin.Context) {
	caller, stageID, ok := callerAndID(c, "stageId")
	if !ok {
		return
	}

	var req AddTasksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	tasks, err := h.service.AddTasks(c.Request.Context(), caller, stageID, req.Tasks)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"tasks": tasks})
}

// ListTasks returns a stage's tasks.
//
//	@Summary		List tasks
//	@Tags			Task
//	@Produce		json
//	@Security		BearerAuth
//	@Param			stageId	path		string	true	"Stage ID"
//	@Success		200		{object}	map[string]interface{}
//	@Router			/stages/{stageId}/tasks [get]
func (h *Handler) ListTasks(c *gin.Context) {
	caller, stageID, ok := callerAndID(c, "stageId")
	if !ok {
		return
	}

	tasks, err := h.service.ListTasks(c.Request.Context(), caller, stageID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

// UpdateTask edits a task.
//
//	@Summary		Update task
//	@Tags			Task
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			taskId	path		string				true	"Task ID"
//	@Param			request	body		UpdateTaskRequest	true	"Changes"
//	@Success		200		{object}	Task
//	@Router			/tasks/{taskId} [patch]
func (h *Handler) UpdateTask(c *gin.Context) {
	caller, taskID, ok := callerAndID(c, "taskId")
	if !ok {
		return
	}

	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	task, err := h.service.UpdateTask(c.Request.Context(), caller, taskID, &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// DeleteTask removes a task.
//
//	@Summary		Delete task
//	@Tags			Task
//	@Security		BearerAuth
//	@Param			taskId	path	string	true	"Task ID"
//	@Success		204
//	@Router			/tasks/{taskId} [delete]
func (h *Handler) DeleteTask(c *gin.Context) {
	caller, taskID, ok := callerAndID(c, "taskId")
	if !ok {
		return
	}

	if err := h.service.DeleteTask(c.Request.Context(), caller, taskID); err != nil {
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
