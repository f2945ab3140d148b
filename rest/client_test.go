package rest_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fluentive/fluentive-go/rest"
	"github.com/fluentive/fluentive-go/session"
)

// fixture wires a client, its session store and a stub API plus refresh
// endpoint served from the same httptest server.
type fixture struct {
	store  *session.Store
	client *rest.Client

	refreshToken string // token the refresh endpoint hands out; "" means 401
	refreshHits  atomic.Int32
	apiHits      atomic.Int32
}

func setup(t *testing.T, api http.HandlerFunc) *fixture {
	t.Helper()
	f := &fixture{}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		f.refreshHits.Add(1)
		if f.refreshToken == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"accessToken": f.refreshToken})
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		f.apiHits.Add(1)
		api(w, r)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	store, err := session.NewStore()
	require.NoError(t, err)
	f.store = store
	coordinator := session.NewCoordinator(store, srv.URL+"/api/auth/refresh",
		session.WithHTTPClient(srv.Client()))
	f.client = rest.NewClient(srv.URL, store, coordinator, rest.WithHTTPClient(srv.Client()))
	return f
}

func bearer(r *http.Request) string {
	return strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
}

func TestCallAttachesBearerAndDecodes(t *testing.T) {
	f := setup(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "token-1", bearer(r))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"hello"}`))
	})
	f.store.Set("token-1")

	var out struct {
		Name string `json:"name"`
	}
	require.NoError(t, f.client.Get(context.Background(), "/api/thing", &out))
	require.Equal(t, "hello", out.Name)
}

func TestCallRetriesOnceAfterRefresh(t *testing.T) {
	f := setup(t, func(w http.ResponseWriter, r *http.Request) {
		if bearer(r) != "token-2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	f.store.Set("expired")
	f.refreshToken = "token-2"

	var out struct {
		OK bool `json:"ok"`
	}
	require.NoError(t, f.client.Get(context.Background(), "/api/thing", &out))
	require.True(t, out.OK)
	require.Equal(t, int32(2), f.apiHits.Load())
	require.Equal(t, int32(1), f.refreshHits.Load())
	require.Equal(t, "token-2", f.store.Get())
}

func TestCallKeepsConcurrentlyRefreshedToken(t *testing.T) {
	var f *fixture
	f = setup(t, func(w http.ResponseWriter, r *http.Request) {
		if bearer(r) == "expired" {
			// a sibling caller's refresh round already replaced the token
			f.store.Set("token-2")
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		require.Equal(t, "token-2", bearer(r))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	f.store.Set("expired")

	var out struct {
		OK bool `json:"ok"`
	}
	require.NoError(t, f.client.Get(context.Background(), "/api/thing", &out))
	require.True(t, out.OK)
	// the replacement token is used as-is: no refresh call, one retry
	require.Equal(t, int32(0), f.refreshHits.Load())
	require.Equal(t, int32(2), f.apiHits.Load())
	require.Equal(t, "token-2", f.store.Get())
}

func TestCallRetryIsBounded(t *testing.T) {
	f := setup(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	f.store.Set("expired")
	f.refreshToken = "token-2"

	err := f.client.Get(context.Background(), "/api/thing", nil)
	require.True(t, rest.IsStatus(err, http.StatusUnauthorized))
	// one original request, one refresh, one retry, then surrender
	require.Equal(t, int32(2), f.apiHits.Load())
	require.Equal(t, int32(1), f.refreshHits.Load())
	// the rejected fresh token is dropped
	require.Equal(t, "", f.store.Get())
}

func TestCallDeadSessionResolvesToErrUnauthorized(t *testing.T) {
	f := setup(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	f.store.Set("expired")

	err := f.client.Get(context.Background(), "/api/thing", nil)
	require.ErrorIs(t, err, rest.ErrUnauthorized)
	require.Equal(t, int32(1), f.apiHits.Load())
}

func TestCallWithoutAuthDoesNotRetry(t *testing.T) {
	f := setup(t, func(w http.ResponseWriter, r *http.Request) {
		require.Empty(t, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusUnauthorized)
	})
	f.store.Set("token-1")
	f.refreshToken = "token-2"

	err := f.client.Post(context.Background(), "/api/auth/login", map[string]string{}, nil, rest.WithoutAuth())
	require.True(t, rest.IsStatus(err, http.StatusUnauthorized))
	require.Equal(t, int32(0), f.refreshHits.Load())
	require.Equal(t, "token-1", f.store.Get())
}

func TestCallNoContentLeavesOutUntouched(t *testing.T) {
	f := setup(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	f.store.Set("token-1")

	out := struct{ Name string }{Name: "untouched"}
	require.NoError(t, f.client.Delete(context.Background(), "/api/thing/1"))
	require.NoError(t, f.client.Get(context.Background(), "/api/thing/1", &out))
	require.Equal(t, "untouched", out.Name)
}

func TestCallNonJSONSuccessLeavesOutUntouched(t *testing.T) {
	f := setup(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("pong"))
	})
	f.store.Set("token-1")

	out := struct{ Name string }{Name: "untouched"}
	require.NoError(t, f.client.Get(context.Background(), "/api/ping", &out))
	require.Equal(t, "untouched", out.Name)
}

func TestCallErrorCarriesStatusAndBody(t *testing.T) {
	f := setup(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte("email already registered\n"))
	})
	f.store.Set("token-1")

	err := f.client.Post(context.Background(), "/api/auth/register", map[string]string{}, nil)
	var statusErr *rest.StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusConflict, statusErr.Status)
	require.Equal(t, "email already registered", statusErr.Body)
	require.True(t, rest.IsStatus(err, http.StatusConflict))
	require.False(t, rest.IsStatus(err, http.StatusNotFound))
}

func TestCallMalformedSuccessBodyIsAnError(t *testing.T) {
	f := setup(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":`))
	})
	f.store.Set("token-1")

	var out struct{ Name string }
	err := f.client.Get(context.Background(), "/api/thing", &out)
	require.Error(t, err)
	require.Contains(t, err.Error(), "decode response")
}

func TestCallResendsBodyOnRetry(t *testing.T) {
	var bodies []string
	f := setup(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(raw))
		if bearer(r) != "token-2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusCreated)
	})
	f.store.Set("expired")
	f.refreshToken = "token-2"

	require.NoError(t, f.client.Post(context.Background(), "/api/thing", map[string]string{"name": "x"}, nil))
	require.Len(t, bodies, 2)
	require.Equal(t, bodies[0], bodies[1])
}
