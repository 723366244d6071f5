package registry

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wmo-im/codelists/internal/apperr"
)

func newClient(t *testing.T, base string, mutate ...func(*Config)) *Client {
	t.Helper()
	cfg := Config{
		BaseURL:   base,
		Status:    StatusExperimental,
		User:      "octocat",
		Password:  "secret",
		Retries:   2,
		RetryWait: time.Millisecond,
	}
	for _, m := range mutate {
		m(&cfg)
	}
	c, err := New(cfg)
	require.NoError(t, err)
	return c
}

func TestAddress(t *testing.T) {
	assert.Equal(t, "https://codes.wmo.int/wis/topic-hierarchy/ocean",
		Address("https://codes.wmo.int/", "wis", "topic-hierarchy/ocean.ttl"))
	assert.Equal(t, "https://codes.wmo.int/topic-hierarchy",
		Address("https://codes.wmo.int", "", "topic-hierarchy.ttl"))
	assert.Equal(t, "https://codes.wmo.int/wis/topic-hierarchy", Parent("https://codes.wmo.int/wis/topic-hierarchy/ocean"))
	assert.Equal(t, "https://codes.wmo.int/wis/", ResolveBase("https://codes.wmo.int/wis/topic-hierarchy"))
}

func TestNew_RejectsStatus(t *testing.T) {
	_, err := New(Config{BaseURL: "http://x", Status: "draft"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrInvalidConfig))
}

func TestLogin_KeepsSessionCookie(t *testing.T) {
	var sawCookie atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/system/security/apilogin":
			assert.NoError(t, r.ParseForm())
			assert.Equal(t, "https://api.github.com/users/octocat", r.PostForm.Get("userid"))
			assert.Equal(t, "secret", r.PostForm.Get("password"))
			http.SetCookie(w, &http.Cookie{Name: "JSESSIONID", Value: "abc", Path: "/"})
			w.WriteHeader(http.StatusOK)
		default:
			if c, err := r.Cookie("JSESSIONID"); err == nil && c.Value == "abc" {
				sawCookie.Store(true)
			}
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := newClient(t, srv.URL)
	require.NoError(t, c.Login(context.Background()))
	_, found, err := c.Fetch(context.Background(), srv.URL+"/wis/x")
	require.NoError(t, err)
	assert.False(t, found)
	assert.True(t, sawCookie.Load())
}

func TestLogin_Failure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	err := newClient(t, srv.URL).Login(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrAuthFailed))
}

func TestFetch_Statuses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/wis/exists/":
			assert.Equal(t, "text/turtle", r.Header.Get("Accept"))
			_, _ = io.WriteString(w, "<a> <b> <c> .")
		case "/wis/missing/":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusForbidden)
		}
	}))
	defer srv.Close()
	c := newClient(t, srv.URL)
	ctx := context.Background()

	data, found, err := c.Fetch(ctx, srv.URL+"/wis/exists")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "<a> <b> <c> .", string(data))

	_, found, err = c.Fetch(ctx, srv.URL+"/wis/missing")
	require.NoError(t, err)
	assert.False(t, found)

	_, _, err = c.Fetch(ctx, srv.URL+"/wis/forbidden")
	require.Error(t, err)
	var se *UnexpectedStatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusForbidden, se.Status)
	assert.True(t, errors.Is(err, apperr.ErrUnexpectedStatus))
}

func TestCreateAndUpdate(t *testing.T) {
	type seen struct{ method, path, query, contentType, body string }
	got := make(chan seen, 2)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got <- seen{r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("Content-Type"), string(body)}
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusCreated)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()
	c := newClient(t, srv.URL)
	ctx := context.Background()

	require.NoError(t, c.Create(ctx, srv.URL+"/wis/topic-hierarchy", []byte("<ocean> a <x> .")))
	post := <-got
	assert.Equal(t, http.MethodPost, post.method)
	assert.Equal(t, "/wis/topic-hierarchy", post.path)
	assert.Equal(t, "status=experimental", post.query)
	assert.Equal(t, ContentType, post.contentType)
	assert.Equal(t, "<ocean> a <x> .", post.body)

	require.NoError(t, c.Update(ctx, srv.URL+"/wis/topic-hierarchy/ocean", []byte("<ocean> a <y> .")))
	put := <-got
	assert.Equal(t, http.MethodPut, put.method)
	assert.Equal(t, "/wis/topic-hierarchy/ocean", put.path)
	assert.Equal(t, "non-member-properties=true&status=experimental", put.query)
}

func TestCreate_WrongStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, "bad turtle")
	}))
	defer srv.Close()

	err := newClient(t, srv.URL).Create(context.Background(), srv.URL+"/wis", []byte("x"))
	var se *UnexpectedStatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadRequest, se.Status)
	assert.Equal(t, "bad turtle", se.Body)
}

func TestDryRun_SendsNothing(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	c := newClient(t, srv.URL, func(cfg *Config) { cfg.DryRun = true })
	require.NoError(t, c.Create(context.Background(), srv.URL+"/wis", []byte("x")))
	require.NoError(t, c.Update(context.Background(), srv.URL+"/wis/a", []byte("x")))
	assert.Equal(t, int32(0), calls.Load())
}

func TestRetry_ServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	require.NoError(t, newClient(t, srv.URL).Update(context.Background(), srv.URL+"/wis/a", []byte("x")))
	assert.Equal(t, int32(3), calls.Load())
}

func TestRetry_GivesUp(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, _, err := newClient(t, srv.URL, func(cfg *Config) { cfg.Retries = 1 }).Fetch(context.Background(), srv.URL+"/wis/a")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrUnexpectedStatus))
	assert.Equal(t, int32(2), calls.Load())
}

func TestClientErrorsAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusConflict)
	}))
	defer srv.Close()

	err := newClient(t, srv.URL).Create(context.Background(), srv.URL+"/wis", []byte("x"))
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestCreate_ServerErrorIsNotResent(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := newClient(t, srv.URL, func(cfg *Config) { cfg.Retries = 3 }).Create(context.Background(), srv.URL+"/wis", []byte("x"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrUnexpectedStatus))
	var se *UnexpectedStatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusServiceUnavailable, se.Status)
	assert.Equal(t, int32(1), calls.Load())
}
