package advisory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/edumesh/edumesh-api/pkg/config"
	appErrors "github.com/edumesh/edumesh-api/pkg/errors"
)

// Request is the context object assembled for the advisory backend.
type Request struct {
	Mode         string            `json:"mode"`
	SchoolID     string            `json:"school_id"`
	StudentID    string            `json:"student_id"`
	ModuleTitle  string            `json:"module_title,omitempty"`
	ChapterTitle string            `json:"chapter_title,omitempty"`
	SourceTitle  string            `json:"source_title,omitempty"`
	SourceURL    string            `json:"source_url,omitempty"`
	QuestionText string            `json:"question_text,omitempty"`
	StudentInput string            `json:"student_input,omitempty"`
	History      []HistoryEntry    `json:"history,omitempty"`
	Extra        map[string]string `json:"extra,omitempty"`
}

// HistoryEntry carries prior conversation turns.
type HistoryEntry struct {
	Sender string `json:"sender"`
	Body   string `json:"body"`
}

// Response is the advisory backend's answer.
type Response struct {
	Message  string          `json:"message"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

// Client calls the external advisory service. One request, one bounded call,
// no retries; a failed call is the caller's problem to abort on.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient builds a client from configuration. The timeout bounds every call.
func NewClient(cfg config.AdvisoryConfig) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: cfg.Timeout},
	}
}

// Advise posts the assembled context and returns the advisory message.
func (c *Client) Advise(ctx context.Context, req Request) (*Response, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode advisory request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/advice", bytes.NewReader(payload))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build advisory request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrAdvisoryFailure.Code, appErrors.ErrAdvisoryFailure.Status, "advisory call failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, appErrors.Wrap(
			fmt.Errorf("advisory status %d: %s", resp.StatusCode, bytes.TrimSpace(body)),
			appErrors.ErrAdvisoryFailure.Code, appErrors.ErrAdvisoryFailure.Status, "advisory call rejected",
		)
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrAdvisoryFailure.Code, appErrors.ErrAdvisoryFailure.Status, "failed to decode advisory response")
	}
	if out.Message == "" {
		return nil, appErrors.Clone(appErrors.ErrAdvisoryFailure, "advisory returned empty message")
	}
	return &out, nil
}
