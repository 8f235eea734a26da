package slack

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/krxdigest/internal/common"
)

type fakeSlack struct {
	mu       sync.Mutex
	server   *httptest.Server
	calls    []string
	messages []postMessageRequest
	uploaded []byte
	complete completeUploadRequest
	postErr  string
}

func newFakeSlack(t *testing.T) *fakeSlack {
	t.Helper()
	f := &fakeSlack{}
	mux := http.NewServeMux()

	mux.HandleFunc("/api/chat.postMessage", func(w http.ResponseWriter, r *http.Request) {
		f.record("chat.postMessage")
		assert.Equal(t, "Bearer xoxb-test", r.Header.Get("Authorization"))
		var req postMessageRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		f.mu.Lock()
		f.messages = append(f.messages, req)
		postErr := f.postErr
		f.mu.Unlock()
		if postErr != "" {
			_, _ = w.Write([]byte(`{"ok":false,"error":"` + postErr + `"}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	mux.HandleFunc("/api/files.getUploadURLExternal", func(w http.ResponseWriter, r *http.Request) {
		f.record("files.getUploadURLExternal")
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "report_20240305.pdf", r.Form.Get("filename"))
		assert.Equal(t, "9", r.Form.Get("length"))
		_, _ = w.Write([]byte(`{"ok":true,"upload_url":"` + f.server.URL + `/upload/F123","file_id":"F123"}`))
	})

	mux.HandleFunc("/upload/F123", func(w http.ResponseWriter, r *http.Request) {
		f.record("upload")
		file, _, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		data, _ := io.ReadAll(file)
		f.mu.Lock()
		f.uploaded = data
		f.mu.Unlock()
		_, _ = w.Write([]byte("OK - 9"))
	})

	mux.HandleFunc("/api/files.completeUploadExternal", func(w http.ResponseWriter, r *http.Request) {
		f.record("files.completeUploadExternal")
		var req completeUploadRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		f.mu.Lock()
		f.complete = req
		f.mu.Unlock()
		_, _ = w.Write([]byte(`{"ok":true,"files":[{"id":"F123"}]}`))
	})

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeSlack) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeSlack) client() *Client {
	return NewClient("xoxb-test",
		WithBaseURL(f.server.URL+"/api"),
		WithLogger(arbor.NewLogger()),
		WithRateLimit(100),
		WithRetry(common.RetryPolicy{MaxAttempts: 2, InitialInterval: time.Millisecond}),
	)
}

func TestSendText(t *testing.T) {
	fake := newFakeSlack(t)

	err := fake.client().SendText(context.Background(), "C123", "📈 *KOSPI 상승*")
	require.NoError(t, err)

	require.Len(t, fake.messages, 1)
	assert.Equal(t, "C123", fake.messages[0].Channel)
	assert.Equal(t, "📈 *KOSPI 상승*", fake.messages[0].Text)
	assert.True(t, fake.messages[0].Mrkdwn)
}

func TestSendText_NotOK(t *testing.T) {
	fake := newFakeSlack(t)
	fake.postErr = "channel_not_found"

	err := fake.client().SendText(context.Background(), "C404", "hello")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "channel_not_found", apiErr.Code)
	assert.Len(t, fake.messages, 1, "ok=false is not retried")
}

func TestUploadFile(t *testing.T) {
	fake := newFakeSlack(t)

	err := fake.client().UploadFile(context.Background(), "C123", []byte("%PDF-1.4\n"), "report_20240305.pdf")
	require.NoError(t, err)

	assert.Equal(t, []string{"files.getUploadURLExternal", "upload", "files.completeUploadExternal"}, fake.calls)
	assert.Equal(t, []byte("%PDF-1.4\n"), fake.uploaded)
	assert.Equal(t, "C123", fake.complete.ChannelID)
	require.Len(t, fake.complete.Files, 1)
	assert.Equal(t, "F123", fake.complete.Files[0].ID)
	assert.Equal(t, "report_20240305.pdf", fake.complete.Files[0].Title)
}

func TestUploadFile_MissingUploadURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client := NewClient("xoxb-test", WithBaseURL(server.URL), WithRateLimit(100))
	err := client.UploadFile(context.Background(), "C123", []byte("x"), "report.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing_upload_url")
}
