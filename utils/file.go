package utils

import (
	"context"
	"mime"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// LocalStore writes assets under Dir and serves them from BaseURL. It stands
// in for R2 when no bucket is configured.
type LocalStore struct {
	Dir     string
	BaseURL string
}

// EnsureDir creates the upload directory if it doesn't exist.
func (l *LocalStore) EnsureDir() error {
	return os.MkdirAll(l.Dir, os.ModePerm)
}

func (l *LocalStore) Upload(_ context.Context, key string, body []byte, _ string) (string, error) {
	dest := filepath.Join(l.Dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dest), os.ModePerm); err != nil {
		return "", err
	}
	if err := os.WriteFile(dest, body, 0o644); err != nil {
		return "", err
	}
	return strings.TrimRight(l.BaseURL, "/") + "/" + key, nil
}

var imageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".gif": true, ".avif": true}

// ImageExt picks a file extension for a fetched image, preferring the URL
// path and falling back to the content type, then ".jpg".
func ImageExt(rawURL, contentType string) string {
	if u, err := url.Parse(rawURL); err == nil {
		if ext := strings.ToLower(path.Ext(u.Path)); imageExts[ext] {
			return ext
		}
	}
	if ct, _, err := mime.ParseMediaType(contentType); err == nil {
		switch ct {
		case "image/jpeg":
			return ".jpg"
		case "image/png":
			return ".png"
		case "image/webp":
			return ".webp"
		case "image/gif":
			return ".gif"
		case "image/avif":
			return ".avif"
		}
	}
	return ".jpg"
}
