package ollama

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/menta2k/facemask/pkg/client"
	"github.com/menta2k/facemask/pkg/types"
)

// DefaultURL is the address of a local Ollama server
const DefaultURL = "http://localhost:11434"

// queryTimeout applies when the caller's context has no deadline
const queryTimeout = 300 * time.Second

// Client wraps the Ollama API client
type Client struct {
	client *api.Client
}

// NewClient creates a new Ollama client
func NewClient(ollamaURL string) (*Client, error) {
	if ollamaURL == "" {
		ollamaURL = DefaultURL
	}
	parsedURL, err := url.Parse(ollamaURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("invalid URL: %q", ollamaURL)
	}

	// Drop any path like /api/chat, the SDK adds its own
	baseURL := &url.URL{
		Scheme: parsedURL.Scheme,
		Host:   parsedURL.Host,
	}

	return &Client{client: api.NewClient(baseURL, http.DefaultClient)}, nil
}

// Ping checks that the Ollama server answers
func (c *Client) Ping(ctx context.Context) error {
	if err := c.client.Heartbeat(ctx); err != nil {
		return fmt.Errorf("ollama heartbeat failed: %w", err)
	}
	return nil
}

// SimpleQuery performs a simple query with an image without expecting JSON
func (c *Client) SimpleQuery(ctx context.Context, model, prompt, imgB64 string) (string, error) {
	return c.chat(ctx, model, prompt, imgB64, nil)
}

// DetectFaces asks the model for the faces in an image
func (c *Client) DetectFaces(ctx context.Context, model, prompt, imgB64 string) (*types.FaceAnalysis, error) {
	options := map[string]any{
		"temperature": 0,
	}

	// MiniCPM-V 4.x needs a larger context window for full size images
	modelLower := strings.ToLower(model)
	if strings.Contains(modelLower, "minicpm-v4") ||
		strings.Contains(modelLower, "minicpm-v-4") ||
		strings.Contains(modelLower, "minicpmv4") {
		options["top_p"] = 0.8
		options["num_ctx"] = 4096
	}

	content, err := c.chat(ctx, model, prompt, imgB64, options)
	if err != nil {
		return nil, err
	}
	if content == "" {
		return nil, fmt.Errorf("empty response from ollama")
	}
	return client.ParseFaceAnalysis(content)
}

func (c *Client) chat(ctx context.Context, model, prompt, imgB64 string, options map[string]any) (string, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, queryTimeout)
		defer cancel()
	}

	msg := api.Message{Role: "user", Content: prompt}
	if imgB64 != "" {
		imgBytes, err := base64.StdEncoding.DecodeString(imgB64)
		if err != nil {
			return "", fmt.Errorf("failed to decode base64 image: %w", err)
		}
		msg.Images = []api.ImageData{api.ImageData(imgBytes)}
	}

	streamFalse := false
	req := &api.ChatRequest{
		Model:    model,
		Messages: []api.Message{msg},
		Stream:   &streamFalse,
		Options:  options,
	}

	var content strings.Builder
	err := c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama chat error: %w", err)
	}
	return content.String(), nil
}
