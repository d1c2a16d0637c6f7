package publish

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadzzz/speechkit/internal/config"
)

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "book.mp3", ObjectKey("", "/tmp/out/book.mp3"))
	assert.Equal(t, "narrations/book.mp3", ObjectKey("narrations", "/tmp/out/book.mp3"))
	assert.Equal(t, "a/b/talk.txt", ObjectKey("/a/b/", "talk.txt"))
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "audio/mpeg", ContentType(".mp3"))
	assert.Equal(t, "audio/wav", ContentType(".WAV"))
	assert.Equal(t, "text/plain; charset=utf-8", ContentType(".txt"))
	assert.Equal(t, "application/octet-stream", ContentType(".bin"))
}

func TestNewRequiresEndpointAndBucket(t *testing.T) {
	_, err := New(context.Background(), config.PublishConfig{Bucket: "b"})
	assert.Error(t, err)
	_, err = New(context.Background(), config.PublishConfig{Endpoint: "localhost:9000"})
	assert.Error(t, err)
}

// fakeS3 answers the bucket check and single-part uploads.
type fakeS3 struct {
	mu      sync.Mutex
	puts    map[string]string // path -> content type
	buckets map[string]bool
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch r.Method {
	case http.MethodHead:
		if f.buckets[r.URL.Path] {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	case http.MethodPut:
		_, _ = io.Copy(io.Discard, r.Body)
		f.puts[r.URL.Path] = r.Header.Get("Content-Type")
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func startFakeS3(t *testing.T) (*fakeS3, string) {
	t.Helper()
	fake := &fakeS3{puts: map[string]string{}, buckets: map[string]bool{"/audio": true}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	return fake, u.Host
}

func TestUpload(t *testing.T) {
	fake, host := startFakeS3(t)
	u, err := New(context.Background(), config.PublishConfig{
		Endpoint:  host,
		AccessKey: "access",
		SecretKey: "secret",
		Bucket:    "audio",
		Region:    "us-east-1",
		Prefix:    "narrations",
	})
	require.NoError(t, err)

	file := filepath.Join(t.TempDir(), "book.mp3")
	require.NoError(t, os.WriteFile(file, []byte("ID3 fake mp3"), 0o644))

	key, err := u.Upload(context.Background(), file)
	require.NoError(t, err)
	assert.Equal(t, "narrations/book.mp3", key)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Equal(t, "audio/mpeg", fake.puts["/audio/narrations/book.mp3"])
}

func TestNewMissingBucket(t *testing.T) {
	_, host := startFakeS3(t)
	_, err := New(context.Background(), config.PublishConfig{
		Endpoint: host,
		Bucket:   "nope",
		Region:   "us-east-1",
	})
	assert.ErrorContains(t, err, `bucket "nope" does not exist`)
}
