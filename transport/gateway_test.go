package transport_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/jrsteele09/go-social-client/transport"
)

// emptyTokenSource simulates a logged-out session: no token available.
type emptyTokenSource struct{}

func (emptyTokenSource) Token() (*oauth2.Token, error) {
	return nil, errors.New("no active session")
}

func staticToken(token string) oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
}

func TestGateway_Request(t *testing.T) {
	t.Run("2xx yields status and raw body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"likes": 4}`))
		}))
		defer server.Close()

		gateway, err := transport.New(server.URL, staticToken("abc"))
		require.NoError(t, err)

		result, err := gateway.Request(context.Background(), http.MethodPost, "/posts/42/like", nil)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, result.Status)
		require.JSONEq(t, `{"likes": 4}`, string(result.Data))
	})

	t.Run("bearer token is attached", func(t *testing.T) {
		var gotAuth string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		gateway, err := transport.New(server.URL, staticToken("opaque-token"))
		require.NoError(t, err)

		_, err = gateway.Request(context.Background(), http.MethodGet, "/posts", nil)
		require.NoError(t, err)
		require.Equal(t, "Bearer opaque-token", gotAuth)
	})

	t.Run("logged-out requests go out without a token", func(t *testing.T) {
		var gotAuth string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`"issued-token"`))
		}))
		defer server.Close()

		gateway, err := transport.New(server.URL, emptyTokenSource{})
		require.NoError(t, err)

		_, err = gateway.Request(context.Background(), http.MethodPost, "/login", map[string]string{"email": "a@b.c"})
		require.NoError(t, err)
		require.Empty(t, gotAuth)
	})

	t.Run("request bodies are sent as JSON", func(t *testing.T) {
		var gotContentType string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotContentType = r.Header.Get("Content-Type")
			w.WriteHeader(http.StatusCreated)
		}))
		defer server.Close()

		gateway, err := transport.New(server.URL, staticToken("abc"))
		require.NoError(t, err)

		result, err := gateway.Request(context.Background(), http.MethodPost, "/posts", map[string]string{"title": "hi"})
		require.NoError(t, err)
		require.Equal(t, http.StatusCreated, result.Status)
		require.Equal(t, "application/json", gotContentType)
	})

	t.Run("401 triggers the unauthorized hook", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		var hookCalls int
		gateway, err := transport.New(server.URL, staticToken("stale"),
			transport.WithUnauthorizedHook(func() { hookCalls++ }))
		require.NoError(t, err)

		_, err = gateway.Request(context.Background(), http.MethodGet, "/posts", nil)
		require.ErrorIs(t, err, transport.ErrUnauthorized)
		require.Equal(t, 1, hookCalls)
	})

	t.Run("non-2xx carries the server error code", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error": "already liked"}`))
		}))
		defer server.Close()

		gateway, err := transport.New(server.URL, staticToken("abc"))
		require.NoError(t, err)

		_, err = gateway.Request(context.Background(), http.MethodPost, "/posts/42/like", nil)
		apiErr, ok := transport.AsAPIError(err)
		require.True(t, ok)
		require.Equal(t, http.StatusInternalServerError, apiErr.Status)
		require.Equal(t, "already liked", apiErr.Code)
	})

	t.Run("unreadable error body yields empty code", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("<html>bad gateway</html>"))
		}))
		defer server.Close()

		gateway, err := transport.New(server.URL, staticToken("abc"))
		require.NoError(t, err)

		_, err = gateway.Request(context.Background(), http.MethodGet, "/posts", nil)
		apiErr, ok := transport.AsAPIError(err)
		require.True(t, ok)
		require.Equal(t, http.StatusBadGateway, apiErr.Status)
		require.Empty(t, apiErr.Code)
	})

	t.Run("transport failure surfaces as NetworkError", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		server.Close() // refuse connections

		gateway, err := transport.New(server.URL, staticToken("abc"))
		require.NoError(t, err)

		_, err = gateway.Request(context.Background(), http.MethodGet, "/posts", nil)
		var netErr *transport.NetworkError
		require.ErrorAs(t, err, &netErr)
	})
}

func TestGateway_New(t *testing.T) {
	t.Run("requires base URL", func(t *testing.T) {
		_, err := transport.New("", staticToken("abc"))
		require.Error(t, err)
	})

	t.Run("requires token source", func(t *testing.T) {
		_, err := transport.New("http://localhost", nil)
		require.Error(t, err)
	})
}
