// file: internal/models/models.go
package models

// ===============================
// MESSAGE INPUT
// ===============================

// Message is the caller-supplied comment description. A comment is either
// plain text or a structured MessageInput carrying attachments, mentions,
// a link, or a sticker. The two forms are equivalent for a text-only
// comment: Text("hi") behaves exactly like &MessageInput{Body: "hi"}.
type Message interface {
	isMessage()
}

// Text is a plain-text comment body.
type Text string

func (Text) isMessage() {}

// MessageInput is the structured comment description. It is owned by the
// caller and never mutated by the client.
type MessageInput struct {
	// Body is the comment text. Mention tags are resolved against this
	// string exactly as supplied.
	Body string

	// Attachments are binary sources uploaded before submission. Each
	// entry must be readable (satisfy io.Reader); anything else fails the
	// whole call before any upload is issued.
	Attachments []any

	// Mentions mark substrings of Body that link to entities.
	Mentions []Mention

	// URL, when non-empty, is attached as an external link. No syntax
	// validation is performed.
	URL string

	// Sticker, when non-zero, is attached as a media reference.
	Sticker int64
}

func (*MessageInput) isMessage() {}

// Mention locates a tag inside the comment body and binds it to an entity.
type Mention struct {
	// Tag is the substring to locate in the body.
	Tag string

	// ID identifies the mentioned entity.
	ID string

	// FromIndex is the byte offset the tag search starts at. Zero means
	// search from the beginning.
	FromIndex int
}

// CommentResult is the normalized outcome of a successful comment creation.
type CommentResult struct {
	ID    string `json:"id"`
	URL   string `json:"url"`
	Count int64  `json:"count"`
}

// ===============================
// MUTATION WIRE PAYLOAD
// ===============================
//
// Field names below are part of the remote service's contract and must
// match the wire format exactly.

// CommentVariables is the single variables payload of the comment-creation
// mutation. One value is built per call, mutated across the pipeline
// stages, serialized once, and discarded.
type CommentVariables struct {
	FeedLocation    string       `json:"feedLocation"`
	FeedbackSource  int          `json:"feedbackSource"`
	GroupID         *string      `json:"groupID"`
	Input           CommentInput `json:"input"`
	Scale           int          `json:"scale"`
	UseDefaultActor bool         `json:"useDefaultActor"`
}

// CommentInput is the nested input block of the mutation.
type CommentInput struct {
	ClientMutationID       string           `json:"client_mutation_id"`
	ActorID                string           `json:"actor_id"`
	Attachments            []AttachmentSpec `json:"attachments"`
	FeedbackID             string           `json:"feedback_id"`
	Message                MessageBlock     `json:"message"`
	ReplyCommentParentFBID *string          `json:"reply_comment_parent_fbid"`
	IsTrackingEncrypted    bool             `json:"is_tracking_encrypted"`
	Tracking               []string         `json:"tracking"`
	IdempotenceToken       string           `json:"idempotence_token"`
	SessionID              string           `json:"session_id"`
}

// MessageBlock carries the comment text and its mention ranges.
type MessageBlock struct {
	Ranges []MentionRange `json:"ranges"`
	Text   string         `json:"text"`
}

// MentionRange marks which substring of the text links to which entity.
type MentionRange struct {
	Entity RangeEntity `json:"entity"`
	Length int         `json:"length"`
	Offset int         `json:"offset"`
}

// RangeEntity identifies the entity a mention range points at.
type RangeEntity struct {
	ID string `json:"id"`
}

// AttachmentSpec is one entry of the mutation's attachment list: either an
// uploaded media reference or an external link, never both.
type AttachmentSpec struct {
	Media *MediaRef `json:"media,omitempty"`
	Link  *LinkRef  `json:"link,omitempty"`
}

// MediaRef references an uploaded media object or a sticker by id.
type MediaRef struct {
	ID string `json:"id"`
}

// LinkRef wraps an external link attachment.
type LinkRef struct {
	External ExternalLink `json:"external"`
}

// ExternalLink carries the attached URL.
type ExternalLink struct {
	URL string `json:"url"`
}
