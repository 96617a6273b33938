// ===============================
// FILE: internal/services/types.go
// ===============================

package services

import (
	"github.com/ovifx6/Ovizone/internal/models"
)

// CreateCommentRequest describes one comment creation. Optional behavior
// is carried by named fields; there is no positional ambiguity between the
// reply parent and the callback.
type CreateCommentRequest struct {
	// Message is the comment description: models.Text for plain text, or
	// a *models.MessageInput for a structured comment.
	Message models.Message

	// PostID identifies the post whose feedback thread receives the
	// comment.
	PostID string `validate:"required"`

	// ReplyToCommentID, when non-empty, makes the comment a reply to an
	// existing comment.
	ReplyToCommentID string

	// Callback, when set, is invoked exactly once with the outcome, in
	// lockstep with the returned future.
	Callback func(result *models.CommentResult, err error)
}
