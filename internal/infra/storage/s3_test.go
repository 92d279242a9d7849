package storage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spok95/barber-club/internal/infra/logger"
)

func TestS3_PutXLSX(t *testing.T) {
	var (
		mu          sync.Mutex
		method      string
		path        string
		contentType string
		auth        string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		method, path = r.Method, r.URL.Path
		contentType, auth = r.Header.Get("Content-Type"), r.Header.Get("Authorization")
		mu.Unlock()
		w.Header().Set("ETag", `"abc"`)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewS3(Options{
		Endpoint:  srv.URL,
		Bucket:    "club-reports",
		AccessKey: "AKIA",
		SecretKey: "secret",
	}, logger.Discard())

	err := s.PutXLSX(context.Background(), "reports/shop/2025-03.xlsx", []byte("PK\x03\x04"))
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/club-reports/reports/shop/2025-03.xlsx", path)
	assert.Equal(t, xlsxContentType, contentType)
	assert.Contains(t, auth, "Credential=AKIA/")
}

func TestS3_PutXLSX_Error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`<?xml version="1.0"?><Error><Code>AccessDenied</Code><Message>denied</Message></Error>`))
	}))
	defer srv.Close()

	s := NewS3(Options{Endpoint: srv.URL, Bucket: "b", AccessKey: "k", SecretKey: "s"}, logger.Discard())

	err := s.PutXLSX(context.Background(), "x.xlsx", []byte("data"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "put b/x.xlsx")
	assert.Contains(t, err.Error(), "AccessDenied")
}
