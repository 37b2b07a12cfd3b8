package comment

// CreateCommentRequest is the body of POST /tasks/:taskId/comments.
type CreateCommentRequest struct {
	Text string `json:"text" binding:"required"`
}

// EditCommentRequest is the body of PATCH /comments/:commentId.
type EditCommentRequest struct {
	Text string `json:"text" binding:"required"`
}
