// Package solver talks to the field solver service and provides a reference
// Coulomb solver with the same HTTP surface.
package solver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pthm-cable/fieldscope/field"
	"github.com/pthm-cable/fieldscope/httputil"
)

var (
	// ErrSolve matches every SolveError.
	ErrSolve = errors.New("solver: solve failed")

	// ErrUnhealthy indicates the health probe did not return 200.
	ErrUnhealthy = errors.New("solver: service unhealthy")
)

// SolveError reports a failed solve: a non-2xx status, an undecodable body,
// or a transport failure (Err).
type SolveError struct {
	Dims       int
	StatusCode int
	Detail     string
	Err        error
}

func (e *SolveError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "solve %dd", e.Dims)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": status %d", e.StatusCode)
	}
	if e.Detail != "" {
		fmt.Fprintf(&b, ": %s", e.Detail)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *SolveError) Unwrap() error { return e.Err }

func (e *SolveError) Is(target error) bool { return target == ErrSolve }

// Paths served by the solver.
const (
	HealthPath  = "/health"
	Solve2DPath = "/simulate/2d"
	Solve3DPath = "/simulate/3d"
)

// Client calls the solver service.
type Client struct {
	baseURL  string
	http     httputil.HTTPClient
	logger   *slog.Logger
	session  string
	fallback bool
}

// NewClient creates a client for baseURL. fallback enables retrying failed
// 3D solves as 2D. A nil logger uses slog.Default().
func NewClient(baseURL string, hc httputil.HTTPClient, fallback bool, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     hc,
		logger:   logger,
		session:  uuid.NewString(),
		fallback: fallback,
	}
}

// Session returns the id sent with every request from this client.
func (c *Client) Session() string { return c.session }

// Health probes GET /health.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+HealthPath, nil)
	if err != nil {
		return fmt.Errorf("building health request: %w", err)
	}
	c.setHeaders(req)
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnhealthy, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnhealthy, resp.StatusCode)
	}
	return nil
}

// Solve sends one request to the endpoint matching its dimensionality.
func (c *Client) Solve(ctx context.Context, req Request) (*Response, error) {
	dims := req.Dims()
	path := Solve2DPath
	if dims == 3 {
		path = Solve3DPath
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, &SolveError{Dims: dims, Err: fmt.Errorf("encoding request: %w", err)}
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, &SolveError{Dims: dims, Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	c.setHeaders(httpReq)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, &SolveError{Dims: dims, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &SolveError{Dims: dims, StatusCode: resp.StatusCode, Err: fmt.Errorf("reading body: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &SolveError{Dims: dims, StatusCode: resp.StatusCode, Detail: errorDetail(data)}
	}

	var out Response
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, &SolveError{Dims: dims, StatusCode: resp.StatusCode, Err: fmt.Errorf("decoding response: %w", err)}
	}
	return &out, nil
}

// Result is a solved field plus how it was obtained.
type Result struct {
	Field     *field.Field
	Requested int  // Dimensionality asked for
	Dims      int  // Dimensionality actually solved
	FellBack  bool // A 3D failure was retried as 2D
	Exhausted bool // The 2D retry failed too; no mode is left to try
	Duration  time.Duration
}

// SolveField solves req and converts the response to a field. When a 3D solve
// fails and fallback is enabled, the request is flattened and retried as 2D;
// the result reports the mode that actually ran. Cancellation is never retried.
func (c *Client) SolveField(ctx context.Context, req Request) (Result, error) {
	start := time.Now()
	res := Result{Requested: req.Dims(), Dims: req.Dims()}

	f, err := c.solveField(ctx, req)
	if err != nil && req.Dims() == 3 && c.fallback && ctx.Err() == nil {
		c.logger.Warn("3d solve failed, falling back to 2d", "error", err)
		var err2 error
		f, err2 = c.solveField(ctx, req.Flatten())
		if err2 != nil {
			res.Duration = time.Since(start)
			res.Exhausted = true
			return res, errors.Join(err, err2)
		}
		res.Dims, res.FellBack, err = 2, true, nil
	}
	res.Duration = time.Since(start)
	if err != nil {
		return res, err
	}
	res.Field = f
	return res, nil
}

func (c *Client) solveField(ctx context.Context, req Request) (*field.Field, error) {
	resp, err := c.Solve(ctx, req)
	if err != nil {
		return nil, err
	}
	f, err := resp.ToField()
	if err != nil {
		return nil, &SolveError{Dims: req.Dims(), Err: err}
	}
	return f, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("X-Request-ID", uuid.NewString())
	req.Header.Set("X-Session-ID", c.session)
}

// errorDetail extracts {"detail": ...} or {"error": ...} from an error body,
// falling back to the trimmed text.
func errorDetail(body []byte) string {
	var parsed struct {
		Detail json.RawMessage `json:"detail"`
		Error  string          `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if len(parsed.Detail) > 0 {
			var s string
			if json.Unmarshal(parsed.Detail, &s) == nil {
				return s
			}
			return string(parsed.Detail)
		}
		if parsed.Error != "" {
			return parsed.Error
		}
	}
	text := strings.TrimSpace(string(body))
	if len(text) > 200 {
		text = text[:200]
	}
	return text
}
