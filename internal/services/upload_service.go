// ===============================
// FILE: internal/services/upload_service.go
// ===============================

package services

import (
	"context"
	"fmt"
	"io"
	"net/url"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ovifx6/Ovizone/internal/models"
)

// uploadAttachments uploads every attachment concurrently and appends one
// media descriptor per upload, in the original attachment order. The whole
// call fails on the first capability or upload error; with a capability
// failure no request is issued at all. Sibling uploads in flight when one
// fails are not cancelled, their results are discarded with the form.
func (s *commentService) uploadAttachments(ctx context.Context, msg *models.MessageInput, form *models.CommentVariables) error {
	if len(msg.Attachments) == 0 {
		return nil
	}

	// Capability check up front, before any network call.
	readers := make([]io.Reader, len(msg.Attachments))
	for i, a := range msg.Attachments {
		r, ok := a.(io.Reader)
		if !ok {
			return NewCapabilityError(fmt.Sprintf("attachment %d is not a readable byte source (%T)", i, a))
		}
		readers[i] = r
	}

	mediaIDs := make([]string, len(readers))
	g, gctx := errgroup.WithContext(ctx)
	for i, r := range readers {
		g.Go(func() error {
			id, err := s.uploadOne(gctx, i, r)
			if err != nil {
				return err
			}
			mediaIDs[i] = id
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, id := range mediaIDs {
		form.Input.Attachments = append(form.Input.Attachments, models.AttachmentSpec{
			Media: &models.MediaRef{ID: id},
		})
	}
	s.logger.Info("Attachments uploaded",
		zap.Int("count", len(mediaIDs)))
	return nil
}

// uploadOne posts a single attachment to the media endpoint and extracts
// its media identifier. A response without one is treated in its entirety
// as the error payload.
func (s *commentService) uploadOne(ctx context.Context, index int, file io.Reader) (string, error) {
	fields := url.Values{}
	fields.Set("av", s.cfg.ActorID)
	fields.Set("profile_id", s.cfg.ActorID)
	fields.Set("source", "19")

	resp, err := s.client.PostMultipart(ctx, s.cfg.UploadURL, fields, "farr", file)
	if err != nil {
		return "", err
	}

	id := resp.Get("payload.fbid")
	if !id.Exists() || id.String() == "" {
		s.logger.Error("Upload response missing media id",
			zap.Int("attachment", index))
		return "", NewUploadError(fmt.Sprintf("upload response for attachment %d has no media id", index), resp.Raw)
	}

	s.logger.Debug("Attachment uploaded",
		zap.Int("attachment", index),
		zap.String("media_id", id.String()))
	return id.String(), nil
}
