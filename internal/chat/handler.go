package chat

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/oakline/wallbed-studio/internal/api"
	"github.com/oakline/wallbed-studio/internal/auth"
	"github.com/oakline/wallbed-studio/internal/domain"
	"github.com/oakline/wallbed-studio/internal/gemini"
	"github.com/oakline/wallbed-studio/internal/histcache"
	"github.com/oakline/wallbed-studio/internal/upstream"
)

const defaultHistoryPageSize = 50

// initialMessages seeds every conversation. The seed is merged ahead of
// cached or persisted history on load, never stored, and deduplicated
// against anything already in the loaded entries.
var initialMessages = []domain.ChatMessage{
	{
		Role:    domain.RoleSystem,
		Content: "You are an expert furniture designer specializing in minimalist, functional designs. Focus on clean lines, premium materials, and perfect lighting in your image generations.",
	},
}

// Handler exposes the chat HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler creates a chat handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the chat endpoints on the router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/api/chat", h.handleChat)
	r.Get("/api/chat/history", h.handleHistory)
}

type chatRequest struct {
	// Messages is a pointer so a missing field is distinguishable from
	// an empty history; both a missing field and a non-array value are
	// rejected.
	Messages            *[]domain.ChatMessage `json:"messages"`
	UserMessage         string                `json:"userMessage"`
	ShouldGenerateImage bool                  `json:"shouldGenerateImage"`
}

type chatResponse struct {
	Response string `json:"response"`
	ImageURL string `json:"imageUrl,omitempty"`
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !api.Decode(w, r, &req) {
		return
	}

	if req.Messages == nil {
		api.Error(w, http.StatusBadRequest, "Invalid message history provided")
		return
	}
	if strings.TrimSpace(req.UserMessage) == "" {
		api.Error(w, http.StatusBadRequest, "Invalid or empty user message provided")
		return
	}

	var userID string
	if user := auth.UserFromContext(r.Context()); user != nil {
		userID = user.ID
	}

	turn, err := h.service.HandleTurn(r.Context(), userID, req.UserMessage, req.ShouldGenerateImage)
	if err != nil {
		slog.Error("Chat turn failed", "error", err)
		api.Error(w, http.StatusInternalServerError, upstreamMessage(err))
		return
	}

	// Write-through to the cookie cache so the page can redisplay the
	// exchange without a round trip to the database.
	cache := histcache.NewChatCache(histcache.NewCookieStore(w, r))
	cache.Append(turn.UserMessage, turn.AssistantMessage)

	api.JSON(w, http.StatusOK, chatResponse{Response: turn.Response, ImageURL: turn.ImageURL})
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		// Anonymous history comes from the cookie cache only.
		cached := histcache.NewChatCache(histcache.NewCookieStore(w, r)).Load()
		merged := histcache.MergeInitial(initialMessages, cached)
		api.JSON(w, http.StatusOK, map[string]interface{}{
			"messages": merged,
			"total":    len(merged),
		})
		return
	}

	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", defaultHistoryPageSize)

	messages, total, err := h.service.History(r.Context(), user.ID, page, limit)
	if err != nil {
		slog.Error("Failed to load chat history", "error", err)
		api.Error(w, http.StatusInternalServerError, "failed to load chat history")
		return
	}

	// The seed is only prepended to the first page; total stays the
	// stored-message count used for paging.
	if page == 1 {
		messages = histcache.MergeInitial(initialMessages, messages)
	}

	api.JSON(w, http.StatusOK, map[string]interface{}{
		"messages": messages,
		"total":    total,
	})
}

// upstreamMessage extracts the best human-readable message for a failed
// turn: the upstream-provided message for well-formed API errors, a
// fixed fallback otherwise.
func upstreamMessage(err error) string {
	var upErr *upstream.Error
	if errors.As(err, &upErr) && upErr.Kind == upstream.KindAPI {
		return upErr.Message
	}
	if errors.Is(err, ErrRewriteFailed) || errors.Is(err, ErrEmptyRewrite) || errors.Is(err, gemini.ErrEmptyResponse) {
		return err.Error()
	}
	return "Failed to get response from Gemini API"
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
