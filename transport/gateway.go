// Package transport issues the client's HTTP requests. It attaches the
// session's bearer token, surfaces status codes and server error bodies to
// callers, and signals the session layer when credentials stop being
// accepted. It never retries on its own.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const defaultTimeout = 15 * time.Second

// Result is a successful (2xx) server response.
type Result struct {
	Status int
	Data   json.RawMessage
}

// errorBody is the shape the API uses for error responses.
type errorBody struct {
	Error string `json:"error"`
}

// Gateway performs requests against the API base URL.
type Gateway struct {
	baseURL        string
	tokens         oauth2.TokenSource
	httpClient     *http.Client
	onUnauthorized func()
}

// GatewayOption modifies a Gateway during construction.
type GatewayOption func(*Gateway)

// WithHTTPClient overrides the underlying HTTP client (primarily for testing
// and for callers that need custom transport settings).
func WithHTTPClient(c *http.Client) GatewayOption {
	return func(g *Gateway) {
		g.httpClient = c
	}
}

// WithUnauthorizedHook registers fn to run whenever the server answers 401.
// Wire this to the session manager's Logout so an invalidated session
// redirects instead of lingering.
func WithUnauthorizedHook(fn func()) GatewayOption {
	return func(g *Gateway) {
		g.onUnauthorized = fn
	}
}

// New creates a Gateway. tokens may yield no token (logged-out requests such
// as login itself go out without an Authorization header).
func New(baseURL string, tokens oauth2.TokenSource, options ...GatewayOption) (*Gateway, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("[transport.New] baseURL is required")
	}
	if tokens == nil {
		return nil, errors.New("[transport.New] token source is required")
	}

	g := &Gateway{
		baseURL:    strings.TrimRight(baseURL, "/"),
		tokens:     tokens,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range options {
		opt(g)
	}
	return g, nil
}

// Request issues one HTTP request and classifies the response: 2xx yields a
// Result, 401 triggers the unauthorized hook and fails with ErrUnauthorized,
// any other status fails with *APIError, and transport failures fail with
// *NetworkError.
func (g *Gateway) Request(ctx context.Context, method, path string, body any) (*Result, error) {
	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "[Gateway.Request] marshal body")
		}
		payload = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, payload)
	if err != nil {
		return nil, errors.Wrap(err, "[Gateway.Request] build request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.New().String())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	// A logged-out client has no token; the request goes out bare and the
	// server decides whether the route needs one.
	if token, tokenErr := g.tokens.Token(); tokenErr == nil {
		token.SetAuthHeader(req)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Op: method + " " + path, Err: err}
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return &Result{Status: resp.StatusCode, Data: data}, nil

	case resp.StatusCode == http.StatusUnauthorized:
		log.Debug().Str("path", path).Msg("request unauthorized")
		if g.onUnauthorized != nil {
			g.onUnauthorized()
		}
		return nil, errors.Wrap(ErrUnauthorized, "[Gateway.Request] "+method+" "+path)

	default:
		return nil, &APIError{Status: resp.StatusCode, Code: serverErrorCode(data)}
	}
}

func serverErrorCode(data []byte) string {
	var body errorBody
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}
	return body.Error
}
