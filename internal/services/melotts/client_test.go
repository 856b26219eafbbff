package melotts

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"doodlecast/internal/services"
	"doodlecast/internal/services/httpapi"
)

func TestSynthesizeJSONEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body wireRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if body.Text != "hello there" || body.Speaker != "EN-US" || body.Speed != 1.25 {
			t.Errorf("unexpected request %+v", body)
		}
		_ = json.NewEncoder(w).Encode(wireResponse{Audio: base64.StdEncoding.EncodeToString([]byte("RIFF"))})
	}))
	defer server.Close()

	audio, err := NewClient(Config{BaseURL: server.URL}).Synthesize(context.Background(), Request{
		Text:    "  hello there ",
		Speaker: "EN-US",
		Speed:   1.25,
	})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if string(audio) != "RIFF" {
		t.Fatalf("unexpected audio %q", audio)
	}
}

func TestSynthesizeRawAudio(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/wav")
		_, _ = w.Write([]byte("wave"))
	}))
	defer server.Close()

	audio, err := NewClient(Config{BaseURL: server.URL}).Synthesize(context.Background(), Request{Text: "x"})
	if err != nil || string(audio) != "wave" {
		t.Fatalf("unexpected result %q %v", audio, err)
	}
}

func TestSynthesizeFailureClassifies(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL}, httpapi.WithSleeper(func(time.Duration) {}))
	_, err := client.Synthesize(context.Background(), Request{Text: "x"})
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected ErrExternalTool, got %v", err)
	}
	if _, err := client.Synthesize(context.Background(), Request{Text: ""}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation for empty text, got %v", err)
	}
}
