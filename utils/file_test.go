package utils

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageExt(t *testing.T) {
	assert.Equal(t, ".png", ImageExt("https://cdn.example.com/a/b.PNG?w=200", ""))
	assert.Equal(t, ".webp", ImageExt("https://cdn.example.com/a/b", "image/webp"))
	assert.Equal(t, ".jpg", ImageExt("https://cdn.example.com/a/b.php", "text/html"))
	assert.Equal(t, ".jpg", ImageExt("::bad", ""))
}

func TestLocalStore_Upload(t *testing.T) {
	dir := t.TempDir()
	store := &LocalStore{Dir: dir, BaseURL: "http://localhost:5200/uploads/"}

	url, err := store.Upload(context.Background(), "products/abc.jpg", []byte("img"), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:5200/uploads/products/abc.jpg", url)

	got, err := os.ReadFile(filepath.Join(dir, "products", "abc.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "img", string(got))
}

func TestDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.jpg" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("png-bytes"))
	}))
	defer srv.Close()

	body, ct, err := Download(context.Background(), srv.URL+"/ok.png")
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(body))
	assert.Equal(t, "image/png", ct)

	_, _, err = Download(context.Background(), srv.URL+"/missing.jpg")
	assert.Error(t, err)
}
