package slack

import "fmt"

type okResponse interface {
	isOK() bool
	errorCode() string
}

type apiResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

func (r *apiResponse) isOK() bool        { return r.OK }
func (r *apiResponse) errorCode() string { return r.Error }

type postMessageRequest struct {
	Channel string `json:"channel"`
	Text    string `json:"text"`
	Mrkdwn  bool   `json:"mrkdwn"`
}

type uploadURLResponse struct {
	apiResponse
	UploadURL string `json:"upload_url"`
	FileID    string `json:"file_id"`
}

type uploadedFile struct {
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
}

type completeUploadRequest struct {
	Files     []uploadedFile `json:"files"`
	ChannelID string         `json:"channel_id"`
}

// APIError is a failed Web API call: either a non-200 status or ok=false.
type APIError struct {
	Method     string
	StatusCode int
	Code       string // Slack error code, e.g. "channel_not_found"
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Slack API error: %s (status: %d, method: %s)", e.Code, e.StatusCode, e.Method)
}
