// ===============================
// FILE: internal/services/interface.go
// ===============================

package services

import (
	"context"

	"github.com/ovifx6/Ovizone/internal/models"
)

// CommentService creates comments against the remote content graph. Both
// entry points run the same pipeline and settle through the same
// single-settlement channel; synchronous callers use CreateComment,
// callers that prefer a future or a callback use CreateCommentAsync.
type CommentService interface {
	// CreateComment builds and submits one comment mutation, blocking
	// until the outcome is known.
	CreateComment(ctx context.Context, req *CreateCommentRequest) (*models.CommentResult, error)

	// CreateCommentAsync starts the pipeline and returns a future that
	// settles exactly once. If req.Callback is set it fires in lockstep
	// with the future, with an identical outcome.
	CreateCommentAsync(ctx context.Context, req *CreateCommentRequest) *CommentFuture
}
