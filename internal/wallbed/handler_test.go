package wallbed

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakline/wallbed-studio/internal/auth"
	"github.com/oakline/wallbed-studio/internal/domain"
	"github.com/oakline/wallbed-studio/internal/images"
	"github.com/oakline/wallbed-studio/internal/store"
	"github.com/oakline/wallbed-studio/internal/upstream"
)

type stubGenerator struct {
	promptIn string
	url      string
	err      error
}

func (s *stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	s.promptIn = prompt
	return s.url, s.err
}

type passthroughCopier struct{}

func (passthroughCopier) Save(ctx context.Context, imageURL, folder string) string {
	return imageURL
}

func postGenerate(h *Handler, body string, user *domain.User) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/generate", strings.NewReader(body))
	if user != nil {
		req = req.WithContext(auth.ContextWithUser(req.Context(), user))
	}
	w := httptest.NewRecorder()
	h.handleGenerate(w, req)
	return w
}

func TestHandleGenerate(t *testing.T) {
	gen := &stubGenerator{url: "https://img.example/out.png"}
	h := NewHandler(gen, passthroughCopier{}, store.NewMemory())

	w := postGenerate(h, `{"prompt":"a wall bed in oak"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp generateResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "https://img.example/out.png", resp.ImageURL)
	assert.NotEmpty(t, resp.GenID)
	assert.Equal(t, "a wall bed in oak", gen.promptIn)
}

func TestHandleGenerate_EmptyPrompt(t *testing.T) {
	h := NewHandler(&stubGenerator{}, passthroughCopier{}, store.NewMemory())

	for _, body := range []string{`{}`, `{"prompt":"   "}`} {
		w := postGenerate(h, body, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, "body %s", body)
	}
}

func TestHandleGenerate_UpstreamAPIError(t *testing.T) {
	gen := &stubGenerator{err: &upstream.Error{Kind: upstream.KindAPI, StatusCode: 429, Message: "Rate limit reached"}}
	h := NewHandler(gen, passthroughCopier{}, store.NewMemory())

	w := postGenerate(h, `{"prompt":"a wall bed"}`, nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)

	var resp map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "Rate limit reached", resp["error"])
}

func TestHandleGenerate_GenericError(t *testing.T) {
	gen := &stubGenerator{err: errors.New("connection reset")}
	h := NewHandler(gen, passthroughCopier{}, store.NewMemory())

	w := postGenerate(h, `{"prompt":"a wall bed"}`, nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)

	var resp map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "Failed to generate image", resp["error"])
}

func TestHandleGenerate_MissingImageURL(t *testing.T) {
	gen := &stubGenerator{err: images.ErrNoImageURL}
	h := NewHandler(gen, passthroughCopier{}, store.NewMemory())

	w := postGenerate(h, `{"prompt":"a wall bed"}`, nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)

	var resp map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, images.ErrNoImageURL.Error(), resp["error"])
}

func TestHandleGenerate_PersistsDesignForUser(t *testing.T) {
	repo := store.NewMemory()
	user := &domain.User{ID: "user-1", Email: "owner@example.com"}
	require.NoError(t, repo.CreateUser(context.Background(), user))

	gen := &stubGenerator{url: "https://img.example/out.png"}
	h := NewHandler(gen, passthroughCopier{}, repo)

	w := postGenerate(h, `{"prompt":"a wall bed","config":{"bedSize":"Queen"}}`, user)
	require.Equal(t, http.StatusOK, w.Code)

	designs, total, err := repo.ListDesigns(context.Background(), "user-1", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, designs, 1)
	assert.Equal(t, "a wall bed", designs[0].Prompt)
	assert.Equal(t, "https://img.example/out.png", designs[0].ImageURL)
	assert.Equal(t, "Queen", designs[0].Config.BedSize)
}

func TestHandleGenerate_AnonymousNotPersisted(t *testing.T) {
	repo := store.NewMemory()
	h := NewHandler(&stubGenerator{url: "https://img.example/out.png"}, passthroughCopier{}, repo)

	w := postGenerate(h, `{"prompt":"a wall bed"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestHandlePrompt(t *testing.T) {
	h := NewHandler(&stubGenerator{}, passthroughCopier{}, store.NewMemory())

	cfg := domain.DefaultWallbedConfig()
	body, err := json.Marshal(cfg)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/wallbed/prompt", strings.NewReader(string(body)))
	w := httptest.NewRecorder()
	h.handlePrompt(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Contains(t, resp["prompt"], "Queen")
	assert.Contains(t, resp["prompt"], "Natural Oak")
}

func TestHandleGenerate_SetsDesignCookie(t *testing.T) {
	h := NewHandler(&stubGenerator{url: "https://img.example/out.png"}, passthroughCopier{}, store.NewMemory())

	w := postGenerate(h, `{"prompt":"a wall bed"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var found bool
	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == "wallbed_design_history" {
			found = true
		}
	}
	assert.True(t, found, "generation writes the design-history cookie")
}

func TestHandleDesigns_AnonymousServedFromCookieCache(t *testing.T) {
	h := NewHandler(&stubGenerator{url: "https://img.example/out.png"}, passthroughCopier{}, store.NewMemory())

	generated := postGenerate(h, `{"prompt":"a wall bed"}`, nil)
	require.Equal(t, http.StatusOK, generated.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/designs", nil)
	for _, cookie := range generated.Result().Cookies() {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	h.handleDesigns(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Designs []domain.WallbedConfig `json:"designs"`
		Total   int                    `json:"total"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.Equal(t, 1, resp.Total)
	assert.Equal(t, "a wall bed", resp.Designs[0].Prompt)
	assert.Equal(t, "https://img.example/out.png", resp.Designs[0].ImageURL)
}
