// Package gemini is a thin client for the Gemini generateContent
// endpoint, covering the two calls the application makes: rewriting a
// user request into an image prompt, and furniture-persona chat.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/oakline/wallbed-studio/internal/upstream"
)

const (
	optimizerPersona = "You are the best prompt optimizer for image generation. You write special keywords which gives the best output image of a furniture item, now improve this prompt:  "

	rewriteInstruction = "Improve this prompt for the best DALL-E image generation: %s. Ensure the output is a highly specific, detailed, and clear image description suitable for DALL-E. Focus on details such as wood type, materials used, dimensions, lighting,  style, and  any specific design elements, also provide specific keywords. Do not use metaphors, abstract concepts, or overly complex sentence structures, output only the improved prompt."

	furniturePersona = "You are a custom furniture designer expert, skilled in woodworking and furniture design. You will only talk about topics related to furniture design and woodworking, avoid engaging in any other type of conversation."
)

// ErrEmptyResponse is returned when the API answers without any
// candidate text.
var ErrEmptyResponse = errors.New("no response content from Gemini API")

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Client calls the Gemini generateContent endpoint. Calls are made once,
// without retry; a provider-side failure surfaces immediately.
type Client struct {
	APIKey  string
	Model   string
	BaseURL string

	HTTP *upstream.Client
}

// New creates a Gemini client.
func New(apiKey, model, baseURL string) *Client {
	// Single attempt: the language-model calls were never retried in
	// the original request flow, only the image API is.
	httpClient := upstream.New()
	httpClient.MaxRetries = 0

	return &Client{
		APIKey:  apiKey,
		Model:   model,
		BaseURL: baseURL,
		HTTP:    httpClient,
	}
}

func (c *Client) endpoint() string {
	return fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.BaseURL, c.Model, c.APIKey)
}

func (c *Client) generate(ctx context.Context, req generateRequest) (string, error) {
	var resp generateResponse
	if err := c.HTTP.DoJSON(ctx, http.MethodPost, c.endpoint(), nil, req, &resp); err != nil {
		return "", fmt.Errorf("gemini generateContent: %w", err)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", ErrEmptyResponse
	}
	text := resp.Candidates[0].Content.Parts[0].Text
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// RewritePrompt turns a free-text image request into an
// image-generation-optimized prompt, richer in material, lighting, and
// dimension detail.
func (c *Client) RewritePrompt(ctx context.Context, userMessage string) (string, error) {
	req := generateRequest{
		Contents: []content{
			{
				Role:  "user",
				Parts: []part{{Text: optimizerPersona + userMessage}},
			},
			{
				Role:  "model",
				Parts: []part{{Text: fmt.Sprintf(rewriteInstruction, userMessage)}},
			},
		},
	}
	return c.generate(ctx, req)
}

// FurnitureChat answers a user message under the fixed furniture-expert
// persona and returns the model's text verbatim.
func (c *Client) FurnitureChat(ctx context.Context, userMessage string) (string, error) {
	req := generateRequest{
		Contents: []content{
			{
				Parts: []part{{Text: furniturePersona + " \n " + userMessage}},
			},
		},
	}
	return c.generate(ctx, req)
}
