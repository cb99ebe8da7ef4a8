// Package wallbed serves the parametric designer's generation endpoint
// and the persisted design history.
package wallbed

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/oakline/wallbed-studio/internal/api"
	"github.com/oakline/wallbed-studio/internal/auth"
	"github.com/oakline/wallbed-studio/internal/domain"
	"github.com/oakline/wallbed-studio/internal/histcache"
	"github.com/oakline/wallbed-studio/internal/images"
	"github.com/oakline/wallbed-studio/internal/prompt"
	"github.com/oakline/wallbed-studio/internal/store"
	"github.com/oakline/wallbed-studio/internal/upstream"
)

const defaultDesignPageSize = 10

// ImageGenerator is the image-generation endpoint.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ImageCopier stores a local copy of a generated image.
type ImageCopier interface {
	Save(ctx context.Context, imageURL, folder string) string
}

// Handler exposes the wallbed designer HTTP endpoints.
type Handler struct {
	imgGen ImageGenerator
	copier ImageCopier
	repo   store.Repository
}

// NewHandler creates a wallbed handler.
func NewHandler(imgGen ImageGenerator, copier ImageCopier, repo store.Repository) *Handler {
	return &Handler{imgGen: imgGen, copier: copier, repo: repo}
}

// RegisterRoutes mounts the wallbed endpoints on the router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/api/generate", h.handleGenerate)
	r.Post("/api/wallbed/prompt", h.handlePrompt)
	r.Get("/api/designs", h.handleDesigns)
}

// handlePrompt folds a configuration into its prompt string. The prompt
// is always derived server-side so the form can never submit a prompt
// that disagrees with its config.
func (h *Handler) handlePrompt(w http.ResponseWriter, r *http.Request) {
	var cfg domain.WallbedConfig
	if !api.Decode(w, r, &cfg) {
		return
	}
	api.JSON(w, http.StatusOK, map[string]string{"prompt": prompt.Compose(cfg)})
}

type generateRequest struct {
	Prompt string `json:"prompt"`
	// Config, when present, is frozen into the design history next to
	// the generated image.
	Config *domain.WallbedConfig `json:"config,omitempty"`
}

type generateResponse struct {
	ImageURL string `json:"imageUrl"`
	GenID    string `json:"genId"`
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if !api.Decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		api.Error(w, http.StatusBadRequest, "Invalid or empty prompt provided")
		return
	}

	start := time.Now()
	imageURL, err := h.imgGen.Generate(r.Context(), req.Prompt)
	if err != nil {
		slog.Error("Image generation failed", "error", err)
		api.Error(w, http.StatusInternalServerError, generationMessage(err))
		return
	}
	slog.Info("Image generated", "elapsed", time.Since(start))

	stored := h.copier.Save(r.Context(), imageURL, "designs")
	genID := uuid.NewString()

	cfg := domain.WallbedConfig{}
	if req.Config != nil {
		cfg = *req.Config
	}
	cfg.Prompt = req.Prompt
	cfg.ImageURL = stored
	cfg.Timestamp = time.Now()

	// The cookie cache holds the most recent generations regardless of
	// auth; the database row additionally requires a user.
	histcache.NewDesignCache(histcache.NewCookieStore(w, r)).Append(cfg)
	h.persistDesign(r, cfg, genID)

	api.JSON(w, http.StatusOK, generateResponse{ImageURL: stored, GenID: genID})
}

// persistDesign freezes the config snapshot into history, best-effort.
func (h *Handler) persistDesign(r *http.Request, cfg domain.WallbedConfig, genID string) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		return
	}

	design := &domain.Design{
		ID:        genID,
		UserID:    user.ID,
		Config:    cfg,
		Prompt:    cfg.Prompt,
		ImageURL:  cfg.ImageURL,
		CreatedAt: cfg.Timestamp,
	}
	if err := h.repo.SaveDesign(r.Context(), design); err != nil {
		slog.Error("Failed to persist design", "error", err)
	}
}

func (h *Handler) handleDesigns(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		// Anonymous history is the cookie cache's recent snapshots.
		cached := histcache.NewDesignCache(histcache.NewCookieStore(w, r)).Load()
		api.JSON(w, http.StatusOK, map[string]interface{}{
			"designs": cached,
			"total":   len(cached),
		})
		return
	}

	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", defaultDesignPageSize)

	designs, total, err := h.repo.ListDesigns(r.Context(), user.ID, page, limit)
	if err != nil {
		slog.Error("Failed to load designs", "error", err)
		api.Error(w, http.StatusInternalServerError, "failed to load designs")
		return
	}

	api.JSON(w, http.StatusOK, map[string]interface{}{
		"designs": designs,
		"total":   total,
	})
}

// generationMessage picks the message surfaced for a failed generation:
// upstream JSON errors keep their message, a missing URL keeps its
// sentinel text, everything else collapses to the generic failure.
func generationMessage(err error) string {
	var upErr *upstream.Error
	if errors.As(err, &upErr) && (upErr.Kind == upstream.KindAPI || upErr.Kind == upstream.KindHTML) {
		return upErr.Message
	}
	if errors.Is(err, images.ErrNoImageURL) {
		return err.Error()
	}
	return "Failed to generate image"
}

func queryInt(r *http.Request, name string, fallback int) int {
	value := r.URL.Query().Get(name)
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
