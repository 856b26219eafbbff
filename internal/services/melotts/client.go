package melotts

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"doodlecast/internal/services"
	"doodlecast/internal/services/httpapi"
)

const (
	component  = "melotts"
	ttsPath    = "v1/tts"
	healthPath = "health"
)

// Config captures the backend connection settings.
type Config struct {
	BaseURL        string
	APIKey         string
	TimeoutSeconds int
}

// Request is one synthesis call.
type Request struct {
	Text     string
	Speaker  string
	Language string
	Speed    float64
}

type wireRequest struct {
	Text     string  `json:"text"`
	Speaker  string  `json:"speaker"`
	Language string  `json:"language,omitempty"`
	Speed    float64 `json:"speed"`
}

type wireResponse struct {
	Audio string `json:"audio"`
	Error string `json:"error"`
}

// Client synthesizes narration through the backend.
type Client struct {
	api *httpapi.Client
}

// NewClient constructs a MeloTTS client.
func NewClient(cfg Config, opts ...httpapi.Option) *Client {
	return &Client{api: httpapi.New(httpapi.Config{
		Name:           component,
		BaseURL:        cfg.BaseURL,
		APIKey:         cfg.APIKey,
		TimeoutSeconds: cfg.TimeoutSeconds,
	}, opts...)}
}

// Configured reports whether a backend URL is set.
func (c *Client) Configured() bool {
	return c != nil && c.api.BaseURL() != ""
}

// Synthesize returns WAVE bytes for req.
func (c *Client) Synthesize(ctx context.Context, req Request) ([]byte, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, services.Wrap(services.ErrValidation, component, "synthesize", "text required", nil)
	}
	speed := req.Speed
	if speed <= 0 {
		speed = 1.0
	}
	resp, err := c.api.PostJSON(ctx, ttsPath, wireRequest{
		Text:     text,
		Speaker:  req.Speaker,
		Language: req.Language,
		Speed:    speed,
	})
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, component, "synthesize", "backend request failed", err)
	}
	audio, err := decodeAudio(resp)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, component, "synthesize", "decode response", err)
	}
	return audio, nil
}

// Health probes the backend.
func (c *Client) Health(ctx context.Context) error {
	if _, err := c.api.Get(ctx, healthPath); err != nil {
		return services.Wrap(services.ErrExternalTool, component, "health", "backend unreachable", err)
	}
	return nil
}

func decodeAudio(resp httpapi.Response) ([]byte, error) {
	if strings.HasPrefix(strings.ToLower(resp.ContentType), "audio/") {
		if len(resp.Body) == 0 {
			return nil, errors.New("empty audio body")
		}
		return resp.Body, nil
	}
	var parsed wireResponse
	if err := json.Unmarshal(resp.Body, &parsed); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	if parsed.Error != "" {
		return nil, fmt.Errorf("backend error: %s", parsed.Error)
	}
	if parsed.Audio == "" {
		return nil, errors.New("response carried no audio")
	}
	data, err := base64.StdEncoding.DecodeString(parsed.Audio)
	if err != nil {
		return nil, fmt.Errorf("decode base64 audio: %w", err)
	}
	return data, nil
}
