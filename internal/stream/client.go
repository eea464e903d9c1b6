package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/jonathan/fitness-coach/internal/types"
	"golang.org/x/sync/errgroup"
)

// Route paths of the streaming endpoints
const (
	GeneratePath = "/programs/generate/stream"
	ModifyPath   = "/programs/modify/stream"
)

// ErrIncomplete is returned when the stream ends without a complete or error event
var ErrIncomplete = errors.New("stream ended before the run finished")

// errRunFinished stops the reader once a terminal event was decoded
var errRunFinished = errors.New("run finished")

// Client posts generation requests to a server and consumes the event stream
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	Logf       func(format string, args ...any)
}

// NewClient creates a Client for the server at baseURL
func NewClient(baseURL, token string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Token:      token,
		HTTPClient: http.DefaultClient,
	}
}

// Result is the outcome of a successful run as seen by the client
type Result struct {
	Program      types.Program
	SavedProgram *types.SavedProgram
	Meta         *types.ProgramMeta
	Phases       []types.ValidatedPhase
}

// Generate streams a new program. onUpdate, if set, sees every decoded update.
func (c *Client) Generate(ctx context.Context, req *types.GenerateRequest, onUpdate func(Update)) (*Result, error) {
	return c.run(ctx, GeneratePath, req, onUpdate)
}

// Modify streams a modification of an existing program
func (c *Client) Modify(ctx context.Context, req *types.ModifyRequest, onUpdate func(Update)) (*Result, error) {
	return c.run(ctx, ModifyPath, req, onUpdate)
}

func (c *Client) run(ctx context.Context, path string, body any, onUpdate func(Update)) (*Result, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	if c.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.Token)
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, readHTTPError(resp)
	}

	consumer := NewConsumer(c.Logf)
	chunks := make(chan []byte, 16)
	g, gctx := errgroup.WithContext(ctx)

	// Reader: copy the body into chunks until EOF
	g.Go(func() error {
		defer close(chunks)
		buf := make([]byte, 4096)
		for {
			n, err := resp.Body.Read(buf)
			if n > 0 {
				chunk := append([]byte(nil), buf[:n]...)
				select {
				case chunks <- chunk:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("failed to read stream: %w", err)
			}
		}
	})

	// Decoder: apply chunks until the run is terminal
	g.Go(func() error {
		for chunk := range chunks {
			for _, u := range consumer.Feed(chunk) {
				if onUpdate != nil {
					onUpdate(u)
				}
			}
			if consumer.Done() {
				// Cancel the reader; the server closes the stream after a terminal event anyway
				_ = resp.Body.Close()
				return errRunFinished
			}
		}
		return nil
	})

	waitErr := g.Wait()
	if err := consumer.Err(); err != nil {
		return nil, err
	}
	if result := consumer.Result(); result != nil {
		return &Result{
			Program:      result.Program,
			SavedProgram: result.SavedProgram,
			Meta:         consumer.Meta(),
			Phases:       consumer.Phases(),
		}, nil
	}
	if waitErr != nil && !errors.Is(waitErr, errRunFinished) {
		return nil, waitErr
	}
	return nil, ErrIncomplete
}

// readHTTPError turns a non-streaming error response into an error
func readHTTPError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err == nil && body.Error != "" {
		return &HTTPError{StatusCode: resp.StatusCode, Message: body.Error}
	}
	return &HTTPError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(data))}
}

// HTTPError is a request rejected before the stream opened
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}
