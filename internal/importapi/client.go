package importapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/soriano-mediadores/csvimport/internal/intake"
	"github.com/soriano-mediadores/csvimport/internal/models"
)

const basePath = "/api/admin/import"

// Client talks to the CRM admin import API
type Client struct {
	BaseURL string
	Token   string
	// Timeout bounds each JSON request
	Timeout time.Duration
	// UploadTimeout bounds preview and start, which stream the whole file.
	// Zero leaves them to the caller's context.
	UploadTimeout time.Duration
	httpClient    *http.Client
}

// NewClient creates a new import API client. token is sent as a bearer
// token when set; obtaining it is the job of the auth layer.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Token:      token,
		Timeout:    timeout,
		httpClient: &http.Client{},
	}
}

// withTimeout bounds ctx by d when d is positive
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// Preview uploads f and returns the parsed header and sample rows
func (c *Client) Preview(ctx context.Context, f intake.File) (*models.CSVPreview, error) {
	ctx, cancel := withTimeout(ctx, c.UploadTimeout)
	defer cancel()
	body, contentType := multipartBody(f, nil)

	var resp models.PreviewResponse
	if err := c.do(ctx, "preview", http.MethodPost, basePath+"/preview", contentType, body, &resp); err != nil {
		return nil, err
	}
	if !resp.Success || resp.Data == nil {
		return nil, &APIError{Op: "preview", StatusCode: http.StatusOK, Message: resp.Message, Business: true}
	}
	return resp.Data, nil
}

// Start submits f with cfg and returns the freshly created job
func (c *Client) Start(ctx context.Context, f intake.File, cfg models.ImportConfig) (*models.ImportProgress, error) {
	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal import config: %w", err)
	}
	ctx, cancel := withTimeout(ctx, c.UploadTimeout)
	defer cancel()
	body, contentType := multipartBody(f, map[string]string{"config": string(cfgJSON)})

	var resp models.ImportResponse
	if err := c.do(ctx, "start import", http.MethodPost, basePath+"/start", contentType, body, &resp); err != nil {
		return nil, err
	}
	if !resp.Success || resp.Data == nil {
		return nil, &APIError{Op: "start import", StatusCode: http.StatusOK, Message: resp.Message, Business: true}
	}
	return resp.Data, nil
}

// Status fetches the current state of a job
func (c *Client) Status(ctx context.Context, importID string) (*models.ImportProgress, error) {
	var resp models.ImportStatusResponse
	path := basePath + "/status/" + url.PathEscape(importID)
	ctx, cancel := withTimeout(ctx, c.Timeout)
	defer cancel()
	if err := c.do(ctx, "import status", http.MethodGet, path, "", nil, &resp); err != nil {
		return nil, err
	}
	if !resp.Success || resp.Data == nil {
		return nil, &APIError{Op: "import status", StatusCode: http.StatusOK, Message: resp.Message, Business: true}
	}
	return resp.Data, nil
}

// Cancel asks the server to stop a job. The server stays authoritative:
// a nil error does not mean the job already halted.
func (c *Client) Cancel(ctx context.Context, importID string) error {
	var resp models.CancelResponse
	path := basePath + "/cancel/" + url.PathEscape(importID)
	ctx, cancel := withTimeout(ctx, c.Timeout)
	defer cancel()
	if err := c.do(ctx, "cancel import", http.MethodPost, path, "application/json", strings.NewReader("{}"), &resp); err != nil {
		return err
	}
	if !resp.Success {
		return &APIError{Op: "cancel import", StatusCode: http.StatusOK, Message: resp.Message, Business: true}
	}
	return nil
}

// History lists past imports; limit and offset are omitted when <= 0
func (c *Client) History(ctx context.Context, limit, offset int) ([]models.ImportHistory, int, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
	path := basePath + "/history"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp models.ImportHistoryResponse
	ctx, cancel := withTimeout(ctx, c.Timeout)
	defer cancel()
	if err := c.do(ctx, "import history", http.MethodGet, path, "", nil, &resp); err != nil {
		return nil, 0, err
	}
	if !resp.Success {
		return nil, 0, &APIError{Op: "import history", StatusCode: http.StatusOK, Message: resp.Message, Business: true}
	}
	return resp.Data, resp.Total, nil
}

// Revert undoes a completed import server-side
func (c *Client) Revert(ctx context.Context, importID string) (*models.RevertResponse, error) {
	var resp models.RevertResponse
	path := basePath + "/revert/" + url.PathEscape(importID)
	ctx, cancel := withTimeout(ctx, c.Timeout)
	defer cancel()
	if err := c.do(ctx, "revert import", http.MethodPost, path, "application/json", strings.NewReader("{}"), &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, &APIError{Op: "revert import", StatusCode: http.StatusOK, Message: resp.Message, Business: true}
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, op, method, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", op, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	slog.Debug("Sending import API request", "op", op, "method", method, "path", path, "request_id", req.Header.Get("X-Request-ID"))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send %s request: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		return &APIError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Message:    extractMessage(data),
			Body:       truncateBody(data),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", op, err)
	}
	return nil
}

// multipartBody streams f as the "file" part followed by extra fields
func multipartBody(f intake.File, fields map[string]string) (io.Reader, string) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		err := writeParts(mw, f, fields)
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	return pr, mw.FormDataContentType()
}

func writeParts(mw *multipart.Writer, f intake.File, fields map[string]string) error {
	part, err := mw.CreateFormFile("file", f.Name())
	if err != nil {
		return fmt.Errorf("failed to create file part: %w", err)
	}

	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", f.Name(), err)
	}
	defer rc.Close()

	if _, err := io.Copy(part, rc); err != nil {
		return fmt.Errorf("failed to stream %s: %w", f.Name(), err)
	}

	for name, value := range fields {
		if err := mw.WriteField(name, value); err != nil {
			return fmt.Errorf("failed to write field %s: %w", name, err)
		}
	}
	return nil
}
