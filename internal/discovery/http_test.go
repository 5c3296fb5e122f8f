package discovery_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dishankoza/svcsync/internal/discovery"
)

func newDirectoryServer(t *testing.T, entries ...discovery.Entry) (*discovery.Directory, *httptest.Server) {
	t.Helper()
	d, err := discovery.OpenDirectory("")
	require.NoError(t, err)
	for _, e := range entries {
		require.NoError(t, d.Put(e))
	}
	srv := httptest.NewServer(discovery.NewHandler(d, nil))
	t.Cleanup(srv.Close)
	return d, srv
}

func TestHTTPResolver(t *testing.T) {
	_, srv := newDirectoryServer(t, discovery.Entry{Name: "svc-a", IPs: []string{"10.0.0.1", "10.0.0.2"}})
	r := discovery.NewHTTP(srv.URL+"/", time.Second, nil)

	ips, err := r.Backends(context.Background(), "svc-a")
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, ips)

	_, err = r.Backends(context.Background(), "svc-z")
	assert.ErrorIs(t, err, discovery.ErrUnknownService)
}

func TestHTTPResolverServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := discovery.NewHTTP(srv.URL, time.Second, nil).Backends(context.Background(), "svc-a")
	require.Error(t, err)
	assert.NotErrorIs(t, err, discovery.ErrUnknownService)
	assert.Contains(t, err.Error(), "status 500")
}

func TestHTTPResolverMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	_, err := discovery.NewHTTP(srv.URL, time.Second, nil).Backends(context.Background(), "svc-a")
	assert.Error(t, err)
}

func TestHTTPResolverHonoursContext(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := discovery.NewHTTP(srv.URL, 5*time.Second, nil).Backends(ctx, "svc-a")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestHandlerCRUD(t *testing.T) {
	d, srv := newDirectoryServer(t)

	body, err := json.Marshal(discovery.Entry{Name: "svc-a", IPs: []string{"10.0.0.1"}})
	require.NoError(t, err)
	resp, err := http.Post(srv.URL+"/services", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/services")
	require.NoError(t, err)
	var list []discovery.Entry
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	resp.Body.Close()
	require.Len(t, list, 1)
	assert.Equal(t, "svc-a", list[0].Name)

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/services/svc-a", nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Empty(t, d.List())

	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandlerRejectsBadPayload(t *testing.T) {
	_, srv := newDirectoryServer(t)

	resp, err := http.Post(srv.URL+"/services", "application/json", bytes.NewReader([]byte("{")))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/services", "application/json", bytes.NewReader([]byte(`{"ips":["10.0.0.1"]}`)))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
