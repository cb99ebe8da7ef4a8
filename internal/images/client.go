// Package images is a client for the OpenAI image-generation endpoint.
// All calls go through the retrying upstream client, which owns the
// 429 and malformed-payload handling.
package images

import (
	"context"
	"errors"
	"net/http"

	"github.com/oakline/wallbed-studio/internal/upstream"
)

// Fixed generation parameters: one wide, high-quality, vivid image.
const (
	model   = "dall-e-3"
	size    = "1792x1024"
	quality = "hd"
	style   = "vivid"
)

// ErrNoImageURL is returned when a success response carries no URL.
var ErrNoImageURL = errors.New("image URL not found in response")

type generationRequest struct {
	Model   string `json:"model"`
	Prompt  string `json:"prompt"`
	N       int    `json:"n"`
	Size    string `json:"size"`
	Quality string `json:"quality"`
	Style   string `json:"style"`
}

type generationResponse struct {
	Data []struct {
		URL string `json:"url"`
	} `json:"data"`
}

// Client calls the image-generation API.
type Client struct {
	APIKey   string
	Endpoint string

	HTTP *upstream.Client
}

// New creates an image-generation client with the default retry policy.
func New(apiKey, endpoint string) *Client {
	return &Client{
		APIKey:   apiKey,
		Endpoint: endpoint,
		HTTP:     upstream.New(),
	}
}

// Generate submits a prompt and returns the URL of the generated image.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	req := generationRequest{
		Model:   model,
		Prompt:  prompt,
		N:       1,
		Size:    size,
		Quality: quality,
		Style:   style,
	}

	headers := map[string]string{
		"Authorization": "Bearer " + c.APIKey,
	}

	var resp generationResponse
	if err := c.HTTP.DoJSON(ctx, http.MethodPost, c.Endpoint, headers, req, &resp); err != nil {
		return "", err
	}

	if len(resp.Data) == 0 || resp.Data[0].URL == "" {
		return "", ErrNoImageURL
	}
	return resp.Data[0].URL, nil
}
