package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/parlatore/parlatore/internal/chat"
)

const defaultTimeout = 60 * time.Second

// Option is a functional option for configuring the [Client].
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout. Utterance processing covers
// transcription, the language model, and speech synthesis on the backend
// side, so the default is a generous 60s.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// Client implements [Service] over HTTP against the tutoring backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

var _ Service = (*Client)(nil)

// NewClient creates a Client for the backend at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("dispatch: baseURL must not be empty")
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// ProcessAudio implements [Service]. The utterance travels as a multipart
// upload: an "audio" file part named recording.wav and a "data" part holding
// the JSON payload.
func (c *Client) ProcessAudio(ctx context.Context, wav []byte, conv chat.Conversation, settings Settings) (*ProcessResult, error) {
	payload, err := json.Marshal(processPayload{Settings: settings, Conversation: conv})
	if err != nil {
		return nil, fmt.Errorf("dispatch: encode payload: %w", err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("audio", "recording.wav")
	if err != nil {
		return nil, fmt.Errorf("dispatch: build upload: %w", err)
	}
	if _, err := fw.Write(wav); err != nil {
		return nil, fmt.Errorf("dispatch: build upload: %w", err)
	}
	if err := mw.WriteField("data", string(payload)); err != nil {
		return nil, fmt.Errorf("dispatch: build upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("dispatch: build upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/process_audio", &body)
	if err != nil {
		return nil, fmt.Errorf("dispatch: build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var result ProcessResult
	if err := c.do(req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GenerateHomework implements [Service].
func (c *Client) GenerateHomework(ctx context.Context, conv chat.Conversation, settings Settings) (string, error) {
	var result struct {
		Homework string `json:"homework"`
	}
	err := c.postJSON(ctx, "/generate_homework", processPayload{Settings: settings, Conversation: conv}, &result)
	if err != nil {
		return "", err
	}
	return result.Homework, nil
}

// GenerateChatName implements [Service].
func (c *Client) GenerateChatName(ctx context.Context, conv chat.Conversation, settings Settings) (string, error) {
	payload := chatNamePayload{
		History:          conv.History,
		TutorComments:    conv.TutorComments,
		Summary:          conv.Summary,
		Model:            settings.Model,
		TutoringLanguage: settings.TutoringLanguage,
		APIKey:           settings.APIKey,
	}
	var result struct {
		ChatName string `json:"chatName"`
	}
	if err := c.postJSON(ctx, "/generate_chat_name", payload, &result); err != nil {
		return "", err
	}
	return result.ChatName, nil
}

// VerifyAPIKey implements [Service]. The backend takes the key as form
// fields.
func (c *Client) VerifyAPIKey(ctx context.Context, key, model string) (bool, error) {
	form := url.Values{}
	form.Set("api_key", key)
	form.Set("model", model)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/verify_api_key",
		strings.NewReader(form.Encode()))
	if err != nil {
		return false, fmt.Errorf("dispatch: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var result struct {
		Valid bool `json:"valid"`
	}
	if err := c.do(req, &result); err != nil {
		return false, err
	}
	return result.Valid, nil
}

// postJSON sends a JSON body to path and decodes the JSON response into out.
func (c *Client) postJSON(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("dispatch: encode payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("dispatch: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

// do executes req, maps non-2xx statuses to [RemoteError], and decodes the
// response body into out.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("dispatch: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &RemoteError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("dispatch: decode %s response: %w", req.URL.Path, err)
	}
	return nil
}
