// Package api talks to the results server: a reachability check before the
// run and the upload of exported session files after it.
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/OCAP2/racesim/pkg/core"
)

// UploadPath is the results server endpoint accepting session files.
const UploadPath = "/api/v1/results/add"

const (
	defaultAttempts  = 3
	defaultRetryWait = 2 * time.Second
)

// StatusError is a non-200 answer from the server.
type StatusError struct {
	Op   string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s returned status %d: %s", e.Op, e.Code, e.Body)
	}
	return fmt.Sprintf("%s returned status %d", e.Op, e.Code)
}

// Temporary reports whether retrying could help.
func (e *StatusError) Temporary() bool {
	return e.Code >= 500 || e.Code == http.StatusTooManyRequests
}

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client

	attempts  int
	retryWait time.Duration
}

func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		attempts:   defaultAttempts,
		retryWait:  defaultRetryWait,
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	return req, nil
}

func statusError(op string, resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &StatusError{Op: op, Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}

// Healthcheck checks if the results server is reachable.
func (c *Client) Healthcheck(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/healthcheck", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("healthcheck request failed: %w", err)
	}
	defer resp.Body.Close()
	return statusError("healthcheck", resp)
}

// Upload sends an exported session file to the results server. Network
// failures and 5xx/429 answers are retried with a doubling wait.
func (c *Client) Upload(ctx context.Context, filePath string, meta core.UploadMetadata) error {
	if _, err := os.Stat(filePath); err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}

	wait := c.retryWait
	var err error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		if err = c.uploadOnce(ctx, filePath, meta); err == nil || !retryable(err) {
			return err
		}
		if attempt == c.attempts {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("upload abandoned after %d attempts: %w", attempt, err)
		case <-time.After(wait):
		}
		wait *= 2
	}
	return fmt.Errorf("upload failed after %d attempts: %w", c.attempts, err)
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	var fe *fileError
	return !errors.As(err, &fe)
}

// fileError marks local read failures, which a retry will not fix.
type fileError struct{ err error }

func (e *fileError) Error() string { return e.err.Error() }
func (e *fileError) Unwrap() error { return e.err }

func (c *Client) uploadOnce(ctx context.Context, filePath string, meta core.UploadMetadata) error {
	file, err := os.Open(filePath)
	if err != nil {
		return &fileError{fmt.Errorf("failed to open file: %w", err)}
	}
	defer file.Close()

	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)
	name := filepath.Base(filePath)

	errCh := make(chan error, 1)
	go func() {
		defer pw.Close()
		defer writer.Close()

		fields := [][2]string{
			{"secret", c.apiKey},
			{"filename", name},
			{"trackName", meta.TrackName},
			{"sessionName", meta.SessionName},
			{"duration", strconv.FormatFloat(meta.Duration, 'f', 6, 64)},
			{"tag", meta.Tag},
		}
		for _, f := range fields {
			_ = writer.WriteField(f[0], f[1])
		}

		part, err := writer.CreateFormFile("file", name)
		if err != nil {
			errCh <- fmt.Errorf("failed to create form file: %w", err)
			return
		}
		if _, err := io.Copy(part, file); err != nil {
			pw.CloseWithError(err)
			errCh <- &fileError{fmt.Errorf("failed to copy file: %w", err)}
			return
		}
		errCh <- nil
	}()

	req, err := c.newRequest(ctx, http.MethodPost, UploadPath, pr)
	if err != nil {
		pr.Close()
		return err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		pr.CloseWithError(err)
		<-errCh
		return fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	// unblocks the writer when the server answered before reading the file
	pr.Close()
	writeErr := <-errCh

	if err := statusError("upload", resp); err != nil {
		return err
	}
	return writeErr
}
