package netx

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostMultipart(t *testing.T) {
	var gotType string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := NewClient(time.Second)
	err := c.PostMultipart(context.Background(), srv.URL, "multipart/form-data; boundary=x", []byte("body"))
	require.NoError(t, err)
	assert.Equal(t, "multipart/form-data; boundary=x", gotType)
	assert.Equal(t, []byte("body"), gotBody)
}

func TestPostMultipart_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(time.Second)
	err := c.PostMultipart(context.Background(), srv.URL, "text/plain", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestProbe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	c := NewClient(time.Second)
	assert.True(t, c.Probe(context.Background(), srv.URL))

	srv.Close()
	assert.False(t, c.Probe(context.Background(), srv.URL))
}
