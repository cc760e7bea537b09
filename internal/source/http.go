package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/lucasnoah/prflow/internal/workflow"
)

// maxBodyBytes bounds how much of a history response is read.
const maxBodyBytes = 16 << 20

// HTTPOptions configures an HTTPSource.
type HTTPOptions struct {
	URL     string
	Limit   int
	Status  string
	Timeout time.Duration
	Client  *http.Client // optional; built from Timeout when nil
}

// HTTPSource reads the fix history endpoint of the dashboard API.
type HTTPSource struct {
	url    string
	limit  int
	status string
	client *http.Client
}

// NewHTTPSource creates an HTTPSource.
func NewHTTPSource(opts HTTPOptions) *HTTPSource {
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	return &HTTPSource{url: opts.URL, limit: opts.Limit, status: opts.Status, client: client}
}

// Name implements Source.
func (s *HTTPSource) Name() string {
	return "http"
}

// requestURL appends the limit and status query parameters.
func (s *HTTPSource) requestURL() (string, error) {
	u, err := url.Parse(s.url)
	if err != nil {
		return "", fmt.Errorf("parse source url: %w", err)
	}
	q := u.Query()
	if s.limit > 0 {
		q.Set("limit", strconv.Itoa(s.limit))
	}
	if s.status != "" {
		q.Set("status", s.status)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Fetch implements Source.
func (s *HTTPSource) Fetch(ctx context.Context) ([]workflow.RawFixRecord, error) {
	target, err := s.requestURL()
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch fix history: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		// The API reports failures inside the envelope as well; prefer its message.
		if env, derr := DecodeEnvelope(body); derr == nil && env.Error != "" {
			return nil, fmt.Errorf("%w %d: %s", ErrUnexpectedStatus, resp.StatusCode, env.Error)
		}
		return nil, fmt.Errorf("%w %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	env, err := DecodeEnvelope(body)
	if err != nil {
		return nil, err
	}
	return env.Records()
}
