package piper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"doodlecast/internal/media/wav"
	"doodlecast/internal/services"
)

const (
	component = "piper"

	// DefaultBinary is the executable looked up on PATH.
	DefaultBinary = "piper"
	// DefaultSampleRate applies when a model carries no sidecar config.
	DefaultSampleRate = 22050
)

// CommandRunner executes name with args, feeding stdin and returning stdout.
type CommandRunner func(ctx context.Context, name string, stdin []byte, args ...string) ([]byte, error)

// Service synthesizes speech with a local Piper binary.
type Service struct {
	binary        string
	modelDir      string
	commandRunner CommandRunner
}

// NewService creates a Piper service.
func NewService(binary, modelDir string) *Service {
	if strings.TrimSpace(binary) == "" {
		binary = DefaultBinary
	}
	return &Service{binary: binary, modelDir: modelDir}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner CommandRunner) {
	s.commandRunner = runner
}

// Binary returns the configured executable.
func (s *Service) Binary() string {
	return s.binary
}

// Available reports whether the binary resolves on PATH.
func (s *Service) Available() bool {
	if s.commandRunner != nil {
		return true
	}
	_, err := exec.LookPath(s.binary)
	return err == nil
}

// ModelPath returns the .onnx path for a voice model name.
func (s *Service) ModelPath(model string) string {
	if filepath.Ext(model) == ".onnx" {
		model = strings.TrimSuffix(model, ".onnx")
	}
	return filepath.Join(s.modelDir, model+".onnx")
}

// Synthesize renders text with the named voice model and returns WAVE bytes.
func (s *Service) Synthesize(ctx context.Context, text, model string, speed float64) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, services.Wrap(services.ErrValidation, component, "synthesize", "text required", nil)
	}
	if strings.TrimSpace(model) == "" {
		return nil, services.Wrap(services.ErrConfiguration, component, "synthesize", "voice model required", nil)
	}
	modelPath := s.ModelPath(model)
	if s.commandRunner == nil {
		if _, err := os.Stat(modelPath); err != nil {
			return nil, services.Wrap(services.ErrNotFound, component, "synthesize", "voice model "+modelPath, err)
		}
	}
	raw, err := s.run(ctx, []byte(text+"\n"), buildArgs(modelPath, speed)...)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, component, "synthesize", "piper failed", err)
	}
	if len(raw) < 2 {
		return nil, services.Wrap(services.ErrExternalTool, component, "synthesize", "piper produced no audio", nil)
	}
	clip := wav.FromPCM(raw, modelSampleRate(modelPath))
	return wav.Encode(clip), nil
}

func buildArgs(modelPath string, speed float64) []string {
	args := []string{"--model", modelPath, "--output-raw"}
	if speed > 0 && speed != 1.0 {
		// Piper's length scale is the inverse of a speed multiplier.
		args = append(args, "--length_scale", strconv.FormatFloat(1.0/speed, 'f', 3, 64))
	}
	return args
}

func (s *Service) run(ctx context.Context, stdin []byte, args ...string) ([]byte, error) {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, s.binary, stdin, args...)
	}
	cmd := exec.CommandContext(ctx, s.binary, args...) //nolint:gosec
	cmd.Stdin = bytes.NewReader(stdin)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s: %w", s.binary, ctxErr)
		}
		return nil, fmt.Errorf("%s: %w: %s", s.binary, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

type modelConfig struct {
	Audio struct {
		SampleRate int `json:"sample_rate"`
	} `json:"audio"`
}

func modelSampleRate(modelPath string) int {
	data, err := os.ReadFile(modelPath + ".json")
	if err != nil {
		return DefaultSampleRate
	}
	var cfg modelConfig
	if err := json.Unmarshal(data, &cfg); err != nil || cfg.Audio.SampleRate <= 0 {
		return DefaultSampleRate
	}
	return cfg.Audio.SampleRate
}

// IsMissingModel reports whether err stems from an absent voice model.
func IsMissingModel(err error) bool {
	return errors.Is(err, services.ErrNotFound)
}
