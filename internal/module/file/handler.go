package file

import (
	"errors"
	"net/http"

	"github.com/clusterhub/server/internal/shared/authz"
	"github.com/clusterhub/server/internal/shared/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// multipartOverhead leaves room for form boundaries and fields on top of the file.
const multipartOverhead = 1 << 20

// Handler handles HTTP requests for project files.
type Handler struct {
	service  *Service
	enforcer *authz.Enforcer
}

// NewHandler creates a new file handler.
func NewHandler(service *Service, enforcer *authz.Enforcer) *Handler {
	return &Handler{
		service:  service,
		enforcer: enforcer,
	}
}

// RegisterRoutes registers file routes. All routes require authentication.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	canUpload := authz.RequirePermission(h.enforcer, authz.ObjFile, authz.ActUpload)

	r.POST("/projects/:id/files", canUpload, h.Upload)
	r.GET("/projects/:id/files", h.List)

	files := r.Group("/files")
	{
		files.GET("/:fileId/download", h.Download)
		files.DELETE("/:fileId", canUpload, h.Delete)
	}
}

// Upload stores a file for a project.
//
//	@Summary		Upload file
//	@Tags			File
//	@Accept			multipart/form-data
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id				path		string	true	"Project ID"
//	@Param			file			formData	file	true	"File"
//	@Param			access_level	formData	string	false	"owner, investor or public"
//	@Success		201				{object}	File
//	@Failure		400				{object}	errors.ErrorResponse
//	@Failure		403				{object}	errors.ErrorResponse
//	@Router			/projects/{id}/files [post]
func (h *Handler) Upload(c *gin.Context) {
	caller, projectID, ok := callerAndID(c, "id")
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.service.MaxFileSize()+multipartOverhead)
	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, ErrFileTooLarge)
			return
		}
		response.Error(c, ErrNoFile)
		return
	}

	body, err := header.Open()
	if err != nil {
		response.Error(c, err)
		return
	}
	defer body.Close()

	f, err := h.service.Upload(c.Request.Context(), caller, projectID, &Upload{
		Name:        header.Filename,
		Size:        header.Size,
		ContentType: header.Header.Get("Content-Type"),
		AccessLevel: c.PostForm("access_level"),
		Body:        body,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, f)
}

// List returns a project's files.
//
//	@Summary		List files
//	@Tags			File
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"Project ID"
//	@Success		200	{object}	map[string]interface{}
//	@Failure		403	{object}	errors.ErrorResponse
//	@Router			/projects/{id}/files [get]
func (h *Handler) List(c *gin.Context) {
	caller, projectID, ok := callerAndID(c, "id")
	if !ok {
		return
	}

	files, err := h.service.List(c.Request.Context(), caller, projectID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if files == nil {
		files = []*File{}
	}
	c.JSON(http.StatusOK, gin.H{"files": files})
}

// Download returns a presigned download URL.
//
//	@Summary		Download file
//	@Tags			File
//	@Produce		json
//	@Security		BearerAuth
//	@Param			fileId	path		string	true	"File ID"
//	@Success		200		{object}	DownloadLink
//	@Failure		403		{object}	errors.ErrorResponse
//	@Failure		404		{object}	errors.ErrorResponse
//	@Router			/files/{fileId}/download [get]
func (h *Handler) Download(c *gin.Context) {
	caller, fileID, ok := callerAndID(c, "fileId")
	if !ok {
		return
	}

	link, err := h.service.Download(c.Request.Context(), caller, fileID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, link)
}

// Delete removes a file.
//
//	@Summary		Delete file
//	@Tags			File
//	@Security		BearerAuth
//	@Param			fileId	path	string	true	"File ID"
//	@Success		204
//	@Failure		403	{object}	errors.ErrorResponse
//	@Router			/files/{fileId} [delete]
func (h *Handler) Delete(c *gin.Context) {
	caller, fileID, ok := callerAndID(c, "fileId")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), caller, fileID); err != nil {
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
