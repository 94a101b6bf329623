// utils/http.go
package utils

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPClient is shared by every outbound fetch (product image downloads).
var HTTPClient = &http.Client{
	Timeout: 30 * time.Second,
}

// MaxDownloadBytes caps a single fetched asset.
const MaxDownloadBytes = 10 << 20

// Download GETs url and returns the body and its Content-Type.
func Download(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("invalid url %q: %w", url, err)
	}
	req.Header.Set("User-Agent", "CozzyHub-Importer/1.0")

	resp, err := HTTPClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxDownloadBytes+1))
	if err != nil {
		return nil, "", err
	}
	if len(body) > MaxDownloadBytes {
		return nil, "", fmt.Errorf("%s exceeds %d bytes", url, MaxDownloadBytes)
	}
	return body, resp.Header.Get("Content-Type"), nil
}
