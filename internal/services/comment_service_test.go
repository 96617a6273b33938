package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ovifx6/Ovizone/internal/models"
	"github.com/ovifx6/Ovizone/internal/transport"
)

const successResponse = `{
	"data": {
		"comment_create": {
			"feedback_comment_edge": {
				"node": {
					"id": "comment_100",
					"feedback": {"url": "https://example.com/comment_100"}
				}
			},
			"feedback": {"total_comment_count": 7}
		}
	}
}`

// fakeTransport is a programmable transport spy. Upload responses echo the
// attachment content back as the media id so ordering is observable.
type fakeTransport struct {
	mu          sync.Mutex
	formCalls   int
	uploadCalls int
	lastForm    url.Values

	formResponse  string
	uploadRespond func(content string) (string, error)
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		formResponse: successResponse,
		uploadRespond: func(content string) (string, error) {
			return fmt.Sprintf(`{"payload":{"fbid":%q}}`, content), nil
		},
	}
}

func (f *fakeTransport) PostForm(ctx context.Context, endpoint string, fields url.Values) (*transport.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.formCalls++
	f.lastForm = fields
	return &transport.Response{Raw: []byte(f.formResponse)}, nil
}

func (f *fakeTransport) PostMultipart(ctx context.Context, endpoint string, fields url.Values, fileField string, file io.Reader) (*transport.Response, error) {
	content, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.uploadCalls++
	respond := f.uploadRespond
	f.mu.Unlock()

	body, err := respond(string(content))
	if err != nil {
		return nil, err
	}
	return &transport.Response{Raw: []byte(body)}, nil
}

func (f *fakeTransport) counts() (form, upload int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.formCalls, f.uploadCalls
}

func (f *fakeTransport) sentVariables(t *testing.T) *models.CommentVariables {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotNil(t, f.lastForm, "no mutation was submitted")
	var vars models.CommentVariables
	require.NoError(t, json.Unmarshal([]byte(f.lastForm.Get("variables")), &vars))
	return &vars
}

func newTestService(ft *fakeTransport) CommentService {
	cfg := DefaultCommentConfig()
	cfg.ActorID = "actor_1"
	return NewCommentService(ft, cfg, zap.NewNop())
}

func TestCreateCommentTextMatchesStructuredBody(t *testing.T) {
	ftText := newFakeTransport()
	ftStruct := newFakeTransport()

	_, err := newTestService(ftText).CreateComment(context.Background(), &CreateCommentRequest{
		Message: models.Text("same words"),
		PostID:  "post_1",
	})
	require.NoError(t, err)

	_, err = newTestService(ftStruct).CreateComment(context.Background(), &CreateCommentRequest{
		Message: &models.MessageInput{Body: "same words"},
		PostID:  "post_1",
	})
	require.NoError(t, err)

	varsText := ftText.sentVariables(t)
	varsStruct := ftStruct.sentVariables(t)

	// The two request bodies differ only in the per-call tokens.
	clearTokens(varsText)
	clearTokens(varsStruct)
	assert.Equal(t, varsText, varsStruct)
	assert.Equal(t, "same words", varsText.Input.Message.Text)
}

func clearTokens(v *models.CommentVariables) {
	v.Input.ClientMutationID = ""
	v.Input.IdempotenceToken = ""
	v.Input.SessionID = ""
}

func TestCreateCommentMissingPostID(t *testing.T) {
	ft := newFakeTransport()
	svc := newTestService(ft)

	_, err := svc.CreateComment(context.Background(), &CreateCommentRequest{
		Message: models.Text("hello"),
	})
	require.Error(t, err)
	assert.True(t, IsValidationError(err))

	form, upload := ft.counts()
	assert.Zero(t, form, "validation failures must not reach the network")
	assert.Zero(t, upload)
}

func TestCreateCommentMissingMessage(t *testing.T) {
	ft := newFakeTransport()
	svc := newTestService(ft)

	_, err := svc.CreateComment(context.Background(), &CreateCommentRequest{PostID: "post_1"})
	require.Error(t, err)
	assert.True(t, IsValidationError(err))

	var typedNil *models.MessageInput
	_, err = svc.CreateComment(context.Background(), &CreateCommentRequest{
		Message: typedNil,
		PostID:  "post_1",
	})
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
}

func TestCreateCommentZeroAttachments(t *testing.T) {
	ft := newFakeTransport()
	svc := newTestService(ft)

	_, err := svc.CreateComment(context.Background(), &CreateCommentRequest{
		Message: &models.MessageInput{Body: "no files"},
		PostID:  "post_1",
	})
	require.NoError(t, err)

	form, upload := ft.counts()
	assert.Equal(t, 1, form)
	assert.Zero(t, upload)
}

func TestCreateCommentUnreadableAttachmentFailsFast(t *testing.T) {
	ft := newFakeTransport()
	svc := newTestService(ft)

	_, err := svc.CreateComment(context.Background(), &CreateCommentRequest{
		Message: &models.MessageInput{
			Body:        "files",
			Attachments: []any{strings.NewReader("fine"), 42, strings.NewReader("also fine")},
		},
		PostID: "post_1",
	})
	require.Error(t, err)
	assert.True(t, IsCapabilityError(err))

	form, upload := ft.counts()
	assert.Zero(t, upload, "no upload may be issued when any attachment is unreadable")
	assert.Zero(t, form)
}

func TestCreateCommentAttachmentOrdering(t *testing.T) {
	ft := newFakeTransport()
	svc := newTestService(ft)

	_, err := svc.CreateComment(context.Background(), &CreateCommentRequest{
		Message: &models.MessageInput{
			Body: "everything at once",
			Attachments: []any{
				strings.NewReader("media_a"),
				strings.NewReader("media_b"),
				strings.NewReader("media_c"),
			},
			URL:     "https://example.com/article",
			Sticker: 777,
		},
		PostID: "post_1",
	})
	require.NoError(t, err)

	_, upload := ft.counts()
	assert.Equal(t, 3, upload)

	vars := ft.sentVariables(t)
	specs := vars.Input.Attachments
	require.Len(t, specs, 5)

	// Uploads first, in original order, then the link, then the sticker.
	require.NotNil(t, specs[0].Media)
	assert.Equal(t, "media_a", specs[0].Media.ID)
	require.NotNil(t, specs[1].Media)
	assert.Equal(t, "media_b", specs[1].Media.ID)
	require.NotNil(t, specs[2].Media)
	assert.Equal(t, "media_c", specs[2].Media.ID)
	require.NotNil(t, specs[3].Link)
	assert.Equal(t, "https://example.com/article", specs[3].Link.External.URL)
	require.NotNil(t, specs[4].Media)
	assert.Equal(t, "777", specs[4].Media.ID)
}

func TestCreateCommentUploadFailureAbortsCall(t *testing.T) {
	ft := newFakeTransport()
	ft.uploadRespond = func(content string) (string, error) {
		if content == "bad" {
			return `{"errorCode": 3, "errorDescription": "upload rejected"}`, nil
		}
		return fmt.Sprintf(`{"payload":{"fbid":%q}}`, content), nil
	}
	svc := newTestService(ft)

	_, err := svc.CreateComment(context.Background(), &CreateCommentRequest{
		Message: &models.MessageInput{
			Body:        "files",
			Attachments: []any{strings.NewReader("ok"), strings.NewReader("bad")},
		},
		PostID: "post_1",
	})
	require.Error(t, err)
	assert.True(t, IsUploadError(err))
	assert.Contains(t, string(GetError(err).Response), "upload rejected")

	form, _ := ft.counts()
	assert.Zero(t, form, "a failed upload must abort before submission")
}

func TestCreateCommentMentions(t *testing.T) {
	ft := newFakeTransport()
	svc := newTestService(ft)

	_, err := svc.CreateComment(context.Background(), &CreateCommentRequest{
		Message: &models.MessageInput{
			Body: "hello world",
			Mentions: []models.Mention{
				{Tag: "world", ID: "42"},
				{Tag: "mars", ID: "43"}, // not in body: skipped
				{Tag: "", ID: "44"},     // malformed: skipped
				{Tag: "hello", ID: ""},  // malformed: skipped
			},
		},
		PostID: "post_1",
	})
	require.NoError(t, err)

	vars := ft.sentVariables(t)
	ranges := vars.Input.Message.Ranges
	require.Len(t, ranges, 1)
	assert.Equal(t, "42", ranges[0].Entity.ID)
	assert.Equal(t, 5, ranges[0].Length)
	assert.Equal(t, 6, ranges[0].Offset)
}

func TestCreateCommentMentionFromIndex(t *testing.T) {
	ft := newFakeTransport()
	svc := newTestService(ft)

	_, err := svc.CreateComment(context.Background(), &CreateCommentRequest{
		Message: &models.MessageInput{
			Body: "go go go",
			Mentions: []models.Mention{
				{Tag: "go", ID: "1"},
				{Tag: "go", ID: "2", FromIndex: 3},
				{Tag: "go", ID: "3", FromIndex: 100},
			},
		},
		PostID: "post_1",
	})
	require.NoError(t, err)

	vars := ft.sentVariables(t)
	ranges := vars.Input.Message.Ranges
	require.Len(t, ranges, 2)
	assert.Equal(t, 0, ranges[0].Offset)
	assert.Equal(t, 3, ranges[1].Offset)
}

func TestCreateCommentSubmissionErrors(t *testing.T) {
	ft := newFakeTransport()
	ft.formResponse = `{"errors":[{"message":"something broke","code":1675004}]}`
	svc := newTestService(ft)

	var calls atomic.Int32
	_, err := svc.CreateComment(context.Background(), &CreateCommentRequest{
		Message: models.Text("hi"),
		PostID:  "post_1",
		Callback: func(result *models.CommentResult, err error) {
			calls.Add(1)
			assert.Nil(t, result)
			assert.Error(t, err)
		},
	})
	require.Error(t, err)
	assert.True(t, IsSubmissionError(err))
	assert.Contains(t, string(GetError(err).Response), "something broke")
	assert.Equal(t, int32(1), calls.Load(), "callback must fire exactly once")
}

func TestCreateCommentMalformedResponse(t *testing.T) {
	ft := newFakeTransport()
	ft.formResponse = `{"data":{"comment_create":{}}}`
	svc := newTestService(ft)

	_, err := svc.CreateComment(context.Background(), &CreateCommentRequest{
		Message: models.Text("hi"),
		PostID:  "post_1",
	})
	require.Error(t, err)
	assert.True(t, IsSubmissionError(err))
}

func TestCreateCommentSuccess(t *testing.T) {
	ft := newFakeTransport()
	svc := newTestService(ft)

	var cbResult *models.CommentResult
	future := svc.CreateCommentAsync(context.Background(), &CreateCommentRequest{
		Message:          models.Text("hi"),
		PostID:           "post_9",
		ReplyToCommentID: "comment_5",
		Callback: func(result *models.CommentResult, err error) {
			cbResult = result
		},
	})

	result, err := future.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "comment_100", result.ID)
	assert.Equal(t, "https://example.com/comment_100", result.URL)
	assert.Equal(t, int64(7), result.Count)
	assert.Same(t, result, cbResult, "future and callback must observe the same outcome")

	vars := ft.sentVariables(t)
	require.NotNil(t, vars.Input.ReplyCommentParentFBID)
	assert.Equal(t, "comment_5", *vars.Input.ReplyCommentParentFBID)
	assert.Equal(t,
		base64.StdEncoding.EncodeToString([]byte("feedback:post_9")),
		vars.Input.FeedbackID)
	assert.Equal(t, "actor_1", vars.Input.ActorID)
	assert.Nil(t, vars.GroupID)
	assert.False(t, vars.UseDefaultActor)
}

func TestCreateCommentTokensDifferPerCall(t *testing.T) {
	ft := newFakeTransport()
	svc := newTestService(ft)
	req := func() *CreateCommentRequest {
		return &CreateCommentRequest{Message: models.Text("same"), PostID: "post_1"}
	}

	_, err := svc.CreateComment(context.Background(), req())
	require.NoError(t, err)
	first := ft.sentVariables(t)

	_, err = svc.CreateComment(context.Background(), req())
	require.NoError(t, err)
	second := ft.sentVariables(t)

	assert.NotEqual(t, first.Input.IdempotenceToken, second.Input.IdempotenceToken)
	assert.NotEqual(t, first.Input.SessionID, second.Input.SessionID)
	assert.NotEqual(t, first.Input.ClientMutationID, second.Input.ClientMutationID)

	clearTokens(first)
	clearTokens(second)
	assert.Equal(t, first, second, "identical calls must differ only in tokens")
}

func TestCreateCommentCallerInputNotMutated(t *testing.T) {
	ft := newFakeTransport()
	svc := newTestService(ft)

	input := &models.MessageInput{Body: "hello world"}
	_, err := svc.CreateComment(context.Background(), &CreateCommentRequest{
		Message: input,
		PostID:  "post_1",
	})
	require.NoError(t, err)
	assert.Nil(t, input.Attachments, "caller-owned input must stay untouched")
	assert.Nil(t, input.Mentions)
}
