// Package imagestore keeps local copies of generated images. Upstream
// image URLs expire quickly, so a copy is fetched and stored as soon as
// a generation completes, and the local URL is what gets persisted.
package imagestore

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Store writes image bytes under Dir and addresses them under BaseURL.
type Store struct {
	Dir     string
	BaseURL string

	HTTPClient *http.Client
}

// New creates an image store rooted at dir. Stored files are served
// under baseURL (e.g. "/images").
func New(dir, baseURL string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create image directory: %w", err)
	}
	return &Store{
		Dir:        dir,
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
	}, nil
}

// Save fetches the image at imageURL and stores a copy under folder
// ("chat" or "designs"). On any failure it logs and returns the
// original URL, so a broken copy never fails the caller's turn.
func (s *Store) Save(ctx context.Context, imageURL, folder string) string {
	localURL, err := s.save(ctx, imageURL, folder)
	if err != nil {
		slog.Error("Failed to store image copy", "url", imageURL, "error", err)
		return imageURL
	}
	return localURL
}

func (s *Store) save(ctx context.Context, imageURL, folder string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return "", fmt.Errorf("build image request: %w", err)
	}

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch image: unexpected status %d", resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Join(s.Dir, folder), 0755); err != nil {
		return "", fmt.Errorf("create folder: %w", err)
	}

	name := fmt.Sprintf("%d-%s.png", time.Now().Unix(), uuid.NewString()[:8])
	path := filepath.Join(s.Dir, folder, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create image file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write image file: %w", err)
	}

	return s.BaseURL + "/" + folder + "/" + name, nil
}
