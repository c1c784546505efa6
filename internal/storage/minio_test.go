package storage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lmsplatform/lms/backend/go-services/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 serves a single bucket named "avatars" holding no objects. Bucket-level requests
// arrive as "/avatars/" in path style.
func fakeS3(t *testing.T, bucketExists bool) (*httptest.Server, *int32) {
	t.Helper()
	var created int32
	exists := func() bool { return bucketExists || atomic.LoadInt32(&created) > 0 }
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		bucketLevel := strings.TrimSuffix(r.URL.Path, "/") == "/avatars"
		_, location := r.URL.Query()["location"]
		switch {
		case bucketLevel && r.Method == http.MethodGet && location:
			w.Header().Set("Content-Type", "application/xml")
			_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><LocationConstraint xmlns="http://s3.amazonaws.com/doc/2006-03-01/">us-east-1</LocationConstraint>`))
		case bucketLevel && r.Method == http.MethodHead:
			if exists() {
				w.WriteHeader(http.StatusOK)
				return
			}
			w.WriteHeader(http.StatusNotFound)
		case bucketLevel && r.Method == http.MethodPut:
			atomic.AddInt32(&created, 1)
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &created
}

func minioConfig(srv *httptest.Server) config.MinIOConfig {
	return config.MinIOConfig{
		Endpoint:  strings.TrimPrefix(srv.URL, "http://"),
		AccessKey: "minio",
		SecretKey: "minio-secret",
		Bucket:    "avatars",
		Region:    "us-east-1",
	}
}

func TestMinIOStorage_CreatesMissingBucket(t *testing.T) {
	srv, created := fakeS3(t, false)
	_, err := NewMinIOStorage(context.Background(), minioConfig(srv))
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(created))
}

func TestMinIOStorage_ExistsAndPresign(t *testing.T) {
	srv, created := fakeS3(t, true)
	s, err := NewMinIOStorage(context.Background(), minioConfig(srv))
	require.NoError(t, err)
	assert.Zero(t, atomic.LoadInt32(created))

	ok, err := s.Exists(context.Background(), "avatars/u1")
	require.NoError(t, err)
	assert.False(t, ok)

	u, err := s.PresignedURL(context.Background(), "avatars/u1", 15*time.Minute)
	require.NoError(t, err)
	assert.Contains(t, u, "/avatars/avatars/u1?")
	assert.Contains(t, u, "X-Amz-Expires=900")
}

func TestMinIOStorage_RequiresBucket(t *testing.T) {
	_, err := NewMinIOStorage(context.Background(), config.MinIOConfig{Endpoint: "localhost:9000"})
	require.Error(t, err)
}
