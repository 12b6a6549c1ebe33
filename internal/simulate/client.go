package simulate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Caller headers and roles understood by the server.
const (
	headerUserID   = "X-User-ID"
	headerUserRole = "X-User-Role"

	roleOrganizer   = "organizer"
	roleJudge       = "judge"
	roleParticipant = "participant"
)

// Identity is who a request is sent as.
type Identity struct {
	ID   string
	Role string
}

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("http %d %s: %s", e.Status, e.Code, e.Message)
}

// IsCode reports whether err is an APIError with the given code.
func IsCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

// Client sends identified JSON requests to the server.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client with a per-request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{baseURL: baseURL, http: &http.Client{Timeout: timeout}}
}

// Response carries the status and headers of a successful call.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Do sends body as JSON and decodes a 2xx response into out when non-nil.
// headers is a flat list of name/value pairs.
func (c *Client) Do(ctx context.Context, who Identity, method, path string, body, out any, headers ...string) (Response, error) {
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return Response{}, fmt.Errorf("marshal request body: %w", err)
		}
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return Response{}, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if who.ID != "" {
		req.Header.Set(headerUserID, who.ID)
		req.Header.Set(headerUserRole, who.Role)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		_ = json.Unmarshal(raw, apiErr)
		return Response{}, apiErr
	}
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return Response{}, fmt.Errorf("decode %s %s: %w", method, path, err)
		}
	}
	return Response{Status: resp.StatusCode, Header: resp.Header, Body: raw}, nil
}
