package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// maxErrorBody caps how much of an upstream error body is kept.
const maxErrorBody = 4 << 10

// StatusError is returned when the ERP answers with a non-2xx status.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("erp %s %s: status=%d body=%s", e.Method, e.Path, e.StatusCode, e.Body)
}

// IsNotFound reports whether err is an ERP 404.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}

// ERPClient talks JSON to the Odoo storefront endpoints with a bearer token.
type ERPClient struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewERPClient(baseURL, token string, timeout time.Duration) *ERPClient {
	return &ERPClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

// GetJSON decodes the response of GET path into out.
func (e *ERPClient) GetJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	return e.do(ctx, http.MethodGet, path, query, nil, nil, out)
}

// PostJSON sends body as JSON and decodes the response into out when out is non-nil.
// A *[]byte out receives the raw response body.
func (e *ERPClient) PostJSON(ctx context.Context, path string, body interface{}, headers http.Header, out interface{}) error {
	return e.do(ctx, http.MethodPost, path, nil, headers, body, out)
}

func (e *ERPClient) do(ctx context.Context, method, path string, query url.Values, headers http.Header, body interface{}, out interface{}) error {
	u := e.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if e.token != "" {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}
	for k, v := range headers {
		for _, vv := range v {
			req.Header.Add(k, vv)
		}
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("erp %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if len(respBytes) > maxErrorBody {
			respBytes = respBytes[:maxErrorBody]
		}
		return &StatusError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: string(respBytes)}
	}

	if raw, ok := out.(*[]byte); ok {
		*raw = respBytes
		return nil
	}
	if out != nil && len(bytes.TrimSpace(respBytes)) > 0 {
		if err := json.Unmarshal(respBytes, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
