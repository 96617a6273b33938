// ===============================
// FILE: internal/services/comment_service.go
// ===============================

package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/ovifx6/Ovizone/internal/models"
	"github.com/ovifx6/Ovizone/internal/tokens"
	"github.com/ovifx6/Ovizone/internal/transport"
)

// Protocol constants of the comment mutation. The friendly name and the
// document id identify a persisted query on the service side; they are
// fixed, never computed.
const (
	commentMutationName  = "CometUFICreateCommentMutation"
	commentMutationDocID = "6994227283935113"
	apiCallerClass       = "RelayModern"
)

// CommentServiceConfig holds comment service configuration.
type CommentServiceConfig struct {
	// ActorID is the entity the comment is created as.
	ActorID string

	// GraphURL is the mutation endpoint.
	GraphURL string

	// UploadURL is the media upload endpoint.
	UploadURL string

	// FeedLocation, FeedbackSource, and Scale are fixed protocol values
	// sent with every mutation.
	FeedLocation   string
	FeedbackSource int
	Scale          int
}

// DefaultCommentConfig returns default comment service configuration.
func DefaultCommentConfig() *CommentServiceConfig {
	return &CommentServiceConfig{
		GraphURL:       "https://www.facebook.com/api/graphql/",
		UploadURL:      "https://www.facebook.com/ajax/ufi/upload/",
		FeedLocation:   "NEWSFEED",
		FeedbackSource: 110,
		Scale:          1,
	}
}

// commentService implements CommentService.
type commentService struct {
	client   transport.Client
	cfg      *CommentServiceConfig
	logger   *zap.Logger
	validate *validator.Validate
}

// NewCommentService creates a new comment service over the given
// transport.
func NewCommentService(client transport.Client, cfg *CommentServiceConfig, logger *zap.Logger) CommentService {
	if cfg == nil {
		cfg = DefaultCommentConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &commentService{
		client:   client,
		cfg:      cfg,
		logger:   logger,
		validate: validator.New(),
	}
}

// ===============================
// ORCHESTRATING ENTRY POINT
// ===============================

// CreateComment runs the pipeline and blocks until it settles.
func (s *commentService) CreateComment(ctx context.Context, req *CreateCommentRequest) (*models.CommentResult, error) {
	return s.CreateCommentAsync(ctx, req).Wait(ctx)
}

// CreateCommentAsync runs the pipeline: validate, assemble, upload, merge,
// submit. Validation failures settle the future synchronously before any
// network activity; everything later settles asynchronously. The future
// settles exactly once no matter which stage fails.
func (s *commentService) CreateCommentAsync(ctx context.Context, req *CreateCommentRequest) *CommentFuture {
	var callback func(*models.CommentResult, error)
	if req != nil {
		callback = req.Callback
	}
	future := newCommentFuture(callback)

	msg, err := s.normalizeMessage(req)
	if err != nil {
		future.settle(nil, err)
		return future
	}
	form := s.newForm(msg, req)

	go func() {
		if err := s.uploadAttachments(ctx, msg, form); err != nil {
			future.settle(nil, err)
			return
		}
		s.mergeURL(msg, form)
		s.mergeMentions(msg, form)
		s.mergeSticker(msg, form)

		result, err := s.submit(ctx, req.PostID, form)
		future.settle(result, err)
	}()

	return future
}

// ===============================
// INPUT NORMALIZER
// ===============================

// normalizeMessage coerces the string-or-structured message into one
// canonical record with non-nil mention and attachment lists. The caller's
// MessageInput is copied, never mutated.
func (s *commentService) normalizeMessage(req *CreateCommentRequest) (*models.MessageInput, error) {
	if req == nil {
		return nil, NewValidationError("request is required", nil)
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, NewValidationError("post id is required", err)
	}

	switch m := req.Message.(type) {
	case models.Text:
		return &models.MessageInput{
			Body:        string(m),
			Attachments: []any{},
			Mentions:    []models.Mention{},
		}, nil
	case *models.MessageInput:
		if m == nil {
			return nil, NewValidationError("message must be text or a structured message input", nil)
		}
		out := *m
		if out.Attachments == nil {
			out.Attachments = []any{}
		}
		if out.Mentions == nil {
			out.Mentions = []models.Mention{}
		}
		return &out, nil
	default:
		return nil, NewValidationError("message must be text or a structured message input", nil)
	}
}

// ===============================
// FORM ASSEMBLER
// ===============================

// newForm builds the mutation form skeleton the later stages populate.
// One form per call; it is serialized once and discarded.
func (s *commentService) newForm(msg *models.MessageInput, req *CreateCommentRequest) *models.CommentVariables {
	var replyParent *string
	if req.ReplyToCommentID != "" {
		parent := req.ReplyToCommentID
		replyParent = &parent
	}

	return &models.CommentVariables{
		FeedLocation:   s.cfg.FeedLocation,
		FeedbackSource: s.cfg.FeedbackSource,
		GroupID:        nil,
		Input: models.CommentInput{
			ClientMutationID:       tokens.ClientMutationID(),
			ActorID:                s.cfg.ActorID,
			Attachments:            []models.AttachmentSpec{},
			FeedbackID:             encodeFeedbackID(req.PostID),
			Message:                models.MessageBlock{Ranges: []models.MentionRange{}, Text: msg.Body},
			ReplyCommentParentFBID: replyParent,
			IsTrackingEncrypted:    true,
			Tracking:               []string{},
			IdempotenceToken:       tokens.IdempotenceToken(),
			SessionID:              tokens.SessionID(),
		},
		Scale:           s.cfg.Scale,
		UseDefaultActor: false,
	}
}

// encodeFeedbackID derives the feedback thread reference for a post.
func encodeFeedbackID(postID string) string {
	return base64.StdEncoding.EncodeToString([]byte("feedback:" + postID))
}

// ===============================
// FEATURE MERGERS
// ===============================

// mergeURL appends an external link descriptor when a URL is present.
func (s *commentService) mergeURL(msg *models.MessageInput, form *models.CommentVariables) {
	if msg.URL == "" {
		return
	}
	form.Input.Attachments = append(form.Input.Attachments, models.AttachmentSpec{
		Link: &models.LinkRef{External: models.ExternalLink{URL: msg.URL}},
	})
}

// mergeMentions resolves each mention against the original body text, in
// input order. A malformed or unresolvable mention is a warning, never a
// failure. Offsets are not adjusted for ranges appended by earlier
// mentions; callers control overlap through Tag and FromIndex.
func (s *commentService) mergeMentions(msg *models.MessageInput, form *models.CommentVariables) {
	for i, m := range msg.Mentions {
		if m.Tag == "" || m.ID == "" {
			s.logger.Warn("Skipping malformed mention",
				zap.Int("index", i),
				zap.String("tag", m.Tag),
				zap.String("entity_id", m.ID))
			continue
		}

		from := m.FromIndex
		if from < 0 {
			from = 0
		}
		if from > len(msg.Body) {
			s.logger.Warn("Mention search offset is past the end of the body",
				zap.Int("index", i),
				zap.String("tag", m.Tag),
				zap.Int("from_index", from))
			continue
		}
		at := strings.Index(msg.Body[from:], m.Tag)
		if at < 0 {
			s.logger.Warn("Mention tag not found in body",
				zap.Int("index", i),
				zap.String("tag", m.Tag),
				zap.Int("from_index", from))
			continue
		}

		form.Input.Message.Ranges = append(form.Input.Message.Ranges, models.MentionRange{
			Entity: models.RangeEntity{ID: m.ID},
			Length: len(m.Tag),
			Offset: from + at,
		})
	}
}

// mergeSticker appends a media descriptor for the sticker, if any.
func (s *commentService) mergeSticker(msg *models.MessageInput, form *models.CommentVariables) {
	if msg.Sticker == 0 {
		return
	}
	form.Input.Attachments = append(form.Input.Attachments, models.AttachmentSpec{
		Media: &models.MediaRef{ID: strconv.FormatInt(msg.Sticker, 10)},
	})
}

// ===============================
// SUBMITTER
// ===============================

// submit serializes the assembled form, sends the mutation, and extracts
// the normalized result. Error responses are passed through verbatim.
func (s *commentService) submit(ctx context.Context, postID string, form *models.CommentVariables) (*models.CommentResult, error) {
	variables, err := json.Marshal(form)
	if err != nil {
		return nil, NewSubmissionError("failed to encode mutation variables", nil, err)
	}

	fields := url.Values{}
	fields.Set("fb_api_caller_class", apiCallerClass)
	fields.Set("fb_api_req_friendly_name", commentMutationName)
	fields.Set("doc_id", commentMutationDocID)
	fields.Set("variables", string(variables))

	resp, err := s.client.PostForm(ctx, s.cfg.GraphURL, fields)
	if err != nil {
		return nil, err
	}

	if errs := resp.Get("errors"); errs.IsArray() && len(errs.Array()) > 0 {
		s.logger.Error("Comment mutation returned errors",
			zap.String("post_id", postID),
			zap.Int("error_count", len(errs.Array())))
		return nil, NewSubmissionError("comment mutation returned errors", resp.Raw, nil)
	}

	node := resp.Get("data.comment_create.feedback_comment_edge.node")
	id := node.Get("id")
	commentURL := node.Get("feedback.url")
	count := resp.Get("data.comment_create.feedback.total_comment_count")
	if !id.Exists() || !commentURL.Exists() || !count.Exists() {
		return nil, NewSubmissionError("comment mutation response has unexpected shape", resp.Raw, nil)
	}

	result := &models.CommentResult{
		ID:    id.String(),
		URL:   commentURL.String(),
		Count: count.Int(),
	}
	s.logger.Info("Comment created successfully",
		zap.String("post_id", postID),
		zap.String("comment_id", result.ID),
		zap.Int64("total_comments", result.Count))
	return result, nil
}
