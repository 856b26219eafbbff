package diffusion

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
	component    = "diffusion"
	generatePath = "v1/generate"
	healthPath   = "health"
)

// Config captures the backend connection settings.
type Config struct {
	BaseURL        string
	APIKey         string
	TimeoutSeconds int
}

// Request is one image generation call.
type Request struct {
	Prompt            string
	NegativePrompt    string
	ControlImage      []byte
	Steps             int
	GuidanceScale     float64
	ConditioningScale float64
	Width             int
	Height            int
	Scheduler         string
	Quantized         bool
	Seed              *int64
}

type wireRequest struct {
	Prompt            string  `json:"prompt"`
	NegativePrompt    string  `json:"negative_prompt"`
	ControlImage      string  `json:"control_image"`
	Steps             int     `json:"num_inference_steps"`
	GuidanceScale     float64 `json:"guidance_scale"`
	ConditioningScale float64 `json:"controlnet_conditioning_scale"`
	Width             int     `json:"width"`
	Height            int     `json:"height"`
	Scheduler         string  `json:"scheduler,omitempty"`
	Quantized         bool    `json:"quantized,omitempty"`
	Seed              *int64  `json:"seed,omitempty"`
}

type wireResponse struct {
	Image  string   `json:"image"`
	Images []string `json:"images"`
	Error  string   `json:"error"`
}

// Client generates images through the backend.
type Client struct {
	api *httpapi.Client
}

// NewClient constructs a diffusion client.
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

// Generate returns the encoded image produced for req.
func (c *Client) Generate(ctx context.Context, req Request) ([]byte, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, services.Wrap(services.ErrValidation, component, "generate", "prompt required", nil)
	}
	if req.Width <= 0 || req.Height <= 0 || req.Steps <= 0 {
		return nil, services.Wrap(services.ErrValidation, component, "generate",
			fmt.Sprintf("invalid parameters steps=%d size=%dx%d", req.Steps, req.Width, req.Height), nil)
	}
	payload := wireRequest{
		Prompt:            req.Prompt,
		NegativePrompt:    req.NegativePrompt,
		Steps:             req.Steps,
		GuidanceScale:     req.GuidanceScale,
		ConditioningScale: req.ConditioningScale,
		Width:             req.Width,
		Height:            req.Height,
		Scheduler:         req.Scheduler,
		Quantized:         req.Quantized,
		Seed:              req.Seed,
	}
	if len(req.ControlImage) > 0 {
		payload.ControlImage = base64.StdEncoding.EncodeToString(req.ControlImage)
	}
	resp, err := c.api.PostJSON(ctx, generatePath, payload)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, component, "generate", "backend request failed", err)
	}
	image, err := decodeImage(resp)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, component, "generate", "decode response", err)
	}
	return image, nil
}

// Health probes the backend.
func (c *Client) Health(ctx context.Context) error {
	if _, err := c.api.Get(ctx, healthPath); err != nil {
		return services.Wrap(services.ErrExternalTool, component, "health", "backend unreachable", err)
	}
	return nil
}

func decodeImage(resp httpapi.Response) ([]byte, error) {
	if strings.HasPrefix(strings.ToLower(resp.ContentType), "image/") {
		if len(resp.Body) == 0 {
			return nil, errors.New("empty image body")
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
	encoded := parsed.Image
	if encoded == "" && len(parsed.Images) > 0 {
		encoded = parsed.Images[0]
	}
	if encoded == "" {
		return nil, errors.New("response carried no image")
	}
	if idx := strings.Index(encoded, ","); strings.HasPrefix(encoded, "data:") && idx >= 0 {
		encoded = encoded[idx+1:]
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode base64 image: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("empty image")
	}
	return data, nil
}
