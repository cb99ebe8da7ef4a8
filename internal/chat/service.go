// Package chat orchestrates conversational turns: text replies via the
// language model, image requests via prompt rewrite plus the image API,
// and best-effort persistence of both sides of the exchange.
package chat

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/oakline/wallbed-studio/internal/domain"
	"github.com/oakline/wallbed-studio/internal/gemini"
	"github.com/oakline/wallbed-studio/internal/store"
)

// Fixed conversational strings. Image failures are absorbed into the
// reply rather than surfaced as request errors.
const (
	imageConfirmation = "Here is your desired image:"
	imageFailure      = "Failed to generate image!"
)

var (
	// ErrRewriteFailed is returned when the prompt-rewrite call fails;
	// the turn fails rather than falling back to the raw prompt.
	ErrRewriteFailed = errors.New("failed to get response from Gemini API")
	// ErrEmptyRewrite is returned when the rewrite call answers with no
	// candidate text.
	ErrEmptyRewrite = errors.New("no response from Gemini to improve the prompt")
)

// LanguageModel is the auxiliary language-model endpoint.
type LanguageModel interface {
	RewritePrompt(ctx context.Context, userMessage string) (string, error)
	FurnitureChat(ctx context.Context, userMessage string) (string, error)
}

// ImageGenerator is the image-generation endpoint.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ImageCopier stores a local copy of a generated image, returning the
// original URL when the copy fails.
type ImageCopier interface {
	Save(ctx context.Context, imageURL, folder string) string
}

// Turn is the assembled result of one conversational exchange.
type Turn struct {
	Response string
	ImageURL string

	// UserMessage and AssistantMessage are the two recorded sides of the
	// exchange, for write-through into the local history cache.
	UserMessage      domain.ChatMessage
	AssistantMessage domain.ChatMessage
}

// Service coordinates one conversational turn at a time. Sub-calls are
// sequential; total latency is their sum.
type Service struct {
	llm    LanguageModel
	imgGen ImageGenerator
	copier ImageCopier
	repo   store.Repository
}

// NewService creates a chat service.
func NewService(llm LanguageModel, imgGen ImageGenerator, copier ImageCopier, repo store.Repository) *Service {
	return &Service{llm: llm, imgGen: imgGen, copier: copier, repo: repo}
}

// HandleTurn processes one user message. wantsImage selects the image
// path (rewrite, then generate); otherwise the furniture persona
// answers. The returned error covers only the language-model failures
// that fail the whole turn; an image-generation failure is absorbed
// into the reply text.
func (s *Service) HandleTurn(ctx context.Context, userID, userMessage string, wantsImage bool) (Turn, error) {
	userMsg := domain.ChatMessage{
		ID:        uuid.NewString(),
		Role:      domain.RoleUser,
		Content:   userMessage,
		Timestamp: time.Now(),
	}
	s.persist(ctx, userID, userMsg)

	var turn Turn
	if wantsImage {
		improved, err := s.llm.RewritePrompt(ctx, userMessage)
		if err != nil {
			slog.Error("Prompt rewrite failed", "error", err)
			if errors.Is(err, gemini.ErrEmptyResponse) {
				return Turn{}, ErrEmptyRewrite
			}
			return Turn{}, ErrRewriteFailed
		}
		slog.Info("Prompt rewritten for image generation", "prompt", improved)

		imageURL, err := s.imgGen.Generate(ctx, improved)
		if err != nil {
			// Absorbed: the user gets a failure reply, not an error.
			slog.Error("Image generation failed", "error", err)
			turn = Turn{Response: imageFailure}
		} else {
			turn = Turn{Response: imageConfirmation, ImageURL: s.copier.Save(ctx, imageURL, "chat")}
		}
	} else {
		response, err := s.llm.FurnitureChat(ctx, userMessage)
		if err != nil {
			return Turn{}, err
		}
		turn = Turn{Response: response}
	}

	assistantMsg := domain.ChatMessage{
		ID:        uuid.NewString(),
		Role:      domain.RoleAssistant,
		Content:   turn.Response,
		ImageURL:  turn.ImageURL,
		Timestamp: time.Now(),
	}
	s.persist(ctx, userID, assistantMsg)

	turn.UserMessage = userMsg
	turn.AssistantMessage = assistantMsg
	return turn, nil
}

// History returns one page of the user's persisted conversation.
func (s *Service) History(ctx context.Context, userID string, page, limit int) ([]domain.ChatMessage, int, error) {
	return s.repo.ListChatMessages(ctx, userID, page, limit)
}

// persist writes a message best-effort. Persistence is never on the
// critical path of the user-visible response.
func (s *Service) persist(ctx context.Context, userID string, msg domain.ChatMessage) {
	if userID == "" {
		return
	}
	if err := s.repo.SaveChatMessage(ctx, userID, msg); err != nil {
		slog.Error("Failed to persist chat message", "role", msg.Role, "error", err)
	}
}
