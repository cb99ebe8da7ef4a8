package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/oakline/wallbed-studio/internal/auth"
	"github.com/oakline/wallbed-studio/internal/domain"
	"github.com/oakline/wallbed-studio/internal/gemini"
	"github.com/oakline/wallbed-studio/internal/store"
)

func newTestHandler(llm *fakeLLM) *Handler {
	svc := NewService(llm, &fakeImageGen{url: "https://img.example/1.png"}, passthroughCopier{}, store.NewMemory())
	return NewHandler(svc)
}

func postChat(t *testing.T, h *Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.handleChat(w, req)
	return w
}

func TestHandleChat_MissingHistory(t *testing.T) {
	h := newTestHandler(&fakeLLM{})
	w := postChat(t, h, `{"userMessage":"hello"}`)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestHandleChat_NonArrayHistory(t *testing.T) {
	h := newTestHandler(&fakeLLM{})
	w := postChat(t, h, `{"messages":"not an array","userMessage":"hello"}`)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestHandleChat_EmptyUserMessage(t *testing.T) {
	h := newTestHandler(&fakeLLM{})
	w := postChat(t, h, `{"messages":[],"userMessage":"   "}`)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestHandleChat_TextTurn(t *testing.T) {
	h := newTestHandler(&fakeLLM{chatOut: "Oak is a solid choice."})
	w := postChat(t, h, `{"messages":[],"userMessage":"what wood is best?","shouldGenerateImage":false}`)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var resp chatResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Response != "Oak is a solid choice." {
		t.Errorf("Unexpected response text: %q", resp.Response)
	}
	if resp.ImageURL != "" {
		t.Errorf("Expected no image URL, got %q", resp.ImageURL)
	}
}

func TestHandleChat_ImageTurn(t *testing.T) {
	h := newTestHandler(&fakeLLM{rewriteOut: "improved prompt"})
	w := postChat(t, h, `{"messages":[],"userMessage":"show me a wall bed","shouldGenerateImage":true}`)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var resp chatResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.ImageURL != "https://img.example/1.png" {
		t.Errorf("Expected image URL, got %q", resp.ImageURL)
	}
}

func TestHandleChat_WritesHistoryCookie(t *testing.T) {
	h := newTestHandler(&fakeLLM{chatOut: "Pine works fine."})
	w := postChat(t, h, `{"messages":[],"userMessage":"is pine okay?"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var found bool
	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == "chat_history" {
			found = true
		}
	}
	if !found {
		t.Error("Expected the chat_history cookie to be written")
	}
}

func TestHandleHistory_AnonymousServedFromCookieCache(t *testing.T) {
	h := newTestHandler(&fakeLLM{chatOut: "Pine works fine."})
	turn := postChat(t, h, `{"messages":[],"userMessage":"is pine okay?"}`)
	if turn.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", turn.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/chat/history", nil)
	for _, cookie := range turn.Result().Cookies() {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	h.handleHistory(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var resp struct {
		Messages []domain.ChatMessage `json:"messages"`
		Total    int                  `json:"total"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Total != 3 {
		t.Fatalf("Expected the seed plus both sides of the turn, got %d", resp.Total)
	}
	if resp.Messages[0].Role != domain.RoleSystem {
		t.Errorf("Expected the system seed first, got role %q", resp.Messages[0].Role)
	}
	if resp.Messages[1].Content != "is pine okay?" || resp.Messages[2].Content != "Pine works fine." {
		t.Errorf("Unexpected cached contents: %+v", resp.Messages)
	}
}

func TestHandleHistory_FirstPageSeeded(t *testing.T) {
	repo := store.NewMemory()
	svc := NewService(&fakeLLM{chatOut: "Cedar resists moisture."}, &fakeImageGen{}, passthroughCopier{}, repo)
	h := NewHandler(svc)

	if _, err := svc.HandleTurn(context.Background(), "user-1", "what about cedar?", false); err != nil {
		t.Fatalf("HandleTurn failed: %v", err)
	}

	user := &domain.User{ID: "user-1", Email: "owner@example.com"}
	req := httptest.NewRequest(http.MethodGet, "/api/chat/history", nil)
	req = req.WithContext(auth.ContextWithUser(req.Context(), user))
	w := httptest.NewRecorder()
	h.handleHistory(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var resp struct {
		Messages []domain.ChatMessage `json:"messages"`
		Total    int                  `json:"total"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(resp.Messages) != 3 || resp.Messages[0].Role != domain.RoleSystem {
		t.Fatalf("Expected the system seed ahead of stored history, got %+v", resp.Messages)
	}
	if resp.Total != 2 {
		t.Errorf("Expected total to stay the stored count, got %d", resp.Total)
	}
}

func TestHandleChat_EmptyModelResponseMessage(t *testing.T) {
	h := newTestHandler(&fakeLLM{chatErr: gemini.ErrEmptyResponse})
	w := postChat(t, h, `{"messages":[],"userMessage":"what wood is best?"}`)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("Expected status 500, got %d", w.Code)
	}

	var resp map[string]string
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp["error"] != gemini.ErrEmptyResponse.Error() {
		t.Errorf("Expected the empty-response message, got %q", resp["error"])
	}
}

func TestHandleChat_EmptyRewriteMessage(t *testing.T) {
	h := newTestHandler(&fakeLLM{rewriteErr: gemini.ErrEmptyResponse})
	w := postChat(t, h, `{"messages":[],"userMessage":"draw a wall bed","shouldGenerateImage":true}`)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("Expected status 500, got %d", w.Code)
	}

	var resp map[string]string
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp["error"] != ErrEmptyRewrite.Error() {
		t.Errorf("Expected the empty-rewrite message, got %q", resp["error"])
	}
}

func TestHandleChat_UpstreamFailure(t *testing.T) {
	h := newTestHandler(&fakeLLM{rewriteErr: errors.New("gemini down")})
	w := postChat(t, h, `{"messages":[],"userMessage":"show me a wall bed","shouldGenerateImage":true}`)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", w.Code)
	}

	var resp map[string]string
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp["error"] == "" {
		t.Error("Expected an error message in the body")
	}
}
