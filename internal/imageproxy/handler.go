// Package imageproxy streams upstream image bytes through the server,
// so the short-lived generation URLs can be fetched without CORS issues
// and cached aggressively by the browser.
package imageproxy

import (
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
)

// cacheControl pins proxied images in the browser cache for a year;
// generation URLs are immutable once issued.
const cacheControl = "public, max-age=31536000"

// Handler proxies image fetches.
type Handler struct {
	HTTPClient *http.Client
}

// NewHandler creates an image proxy handler.
func NewHandler() *Handler {
	return &Handler{HTTPClient: &http.Client{Timeout: 60 * time.Second}}
}

// RegisterRoutes mounts the proxy endpoint on the router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/api/proxy-image", h.handleProxy)
}

func (h *Handler) handleProxy(w http.ResponseWriter, r *http.Request) {
	imageURL := r.URL.Query().Get("imageUrl")
	if imageURL == "" {
		http.Error(w, "Invalid image URL", http.StatusBadRequest)
		return
	}
	parsed, err := url.Parse(imageURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		http.Error(w, "Invalid image URL", http.StatusBadRequest)
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, parsed.String(), nil)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	resp, err := h.HTTPClient.Do(req)
	if err != nil {
		slog.Error("Proxy fetch failed", "url", imageURL, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Mirror the upstream status rather than reclassifying it.
		slog.Error("Proxy fetch failed", "url", imageURL, "status", resp.StatusCode)
		http.Error(w, resp.Status, resp.StatusCode)
		return
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", cacheControl)
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, resp.Body); err != nil {
		slog.Error("Proxy stream interrupted", "url", imageURL, "error", err)
	}
}
