package imagegen_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"doodlecast/internal/artifactcache"
	"doodlecast/internal/engine"
	"doodlecast/internal/fallback"
	"doodlecast/internal/imagegen"
	"doodlecast/internal/script"
	"doodlecast/internal/services"
	"doodlecast/internal/services/diffusion"
	"doodlecast/internal/testsupport"
)

type fakeGenerator struct {
	calls    int
	requests []diffusion.Request
	out      []byte
	err      error
}

func (f *fakeGenerator) Generate(_ context.Context, req diffusion.Request) ([]byte, error) {
	f.calls++
	f.requests = append(f.requests, req)
	return f.out, f.err
}

func loaderFor(gen *fakeGenerator) engine.Loader[imagegen.Generator] {
	return func(context.Context) (imagegen.Generator, error) { return gen, nil }
}

func newPipeline(t *testing.T, gen *fakeGenerator, opts imagegen.Options) (*imagegen.Pipeline, *artifactcache.Store) {
	t.Helper()
	store, err := artifactcache.Open(filepath.Join(t.TempDir(), "images"), ".png",
		artifactcache.WithValidator(imagegen.ValidatePNG))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	p, err := imagegen.New(store, loaderFor(gen), opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p, store
}

func scene(t *testing.T, id int, visual, reference string) script.Scene {
	t.Helper()
	s, err := script.NewScene(script.SceneInput{
		ID:                id,
		Narration:         script.Text("narration"),
		VisualDescription: script.Text(visual),
		ReferenceImage:    reference,
	})
	if err != nil {
		t.Fatalf("NewScene: %v", err)
	}
	return s
}

func TestPresetTable(t *testing.T) {
	tests := []struct {
		quality string
		steps   int
		size    int
		sched   string
	}{
		{"fast", 4, 512, "lcm"},
		{"balanced", 20, 512, "unipc"},
		{"HIGH", 50, 768, "unipc"},
		{"", 20, 512, "unipc"},
	}
	for _, tt := range tests {
		t.Run(tt.quality, func(t *testing.T) {
			p, err := imagegen.PresetFor(tt.quality)
			if err != nil {
				t.Fatalf("PresetFor: %v", err)
			}
			if p.Steps != tt.steps || p.Width != tt.size || p.Height != tt.size || p.Scheduler != tt.sched {
				t.Fatalf("unexpected preset %+v", p)
			}
			if p.ConditioningScale != 1.0 {
				t.Fatalf("conditioning scale = %v", p.ConditioningScale)
			}
		})
	}
	if _, err := imagegen.PresetFor("ultra"); err == nil {
		t.Fatal("expected unknown preset error")
	}
}

func TestNewRejectsUnknownQuality(t *testing.T) {
	store, _ := artifactcache.Open(t.TempDir(), ".png")
	_, err := imagegen.New(store, loaderFor(&fakeGenerator{}), imagegen.Options{Quality: "ultra"})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestFingerprintInputs(t *testing.T) {
	dir := t.TempDir()
	ref := testsupport.WritePNG(t, filepath.Join(dir, "ref.png"), 8, 8)
	gen := &fakeGenerator{}
	p, _ := newPipeline(t, gen, imagegen.Options{Quality: "balanced"})
	base := p.Fingerprint(scene(t, 1, "a cat", ref))

	if again := p.Fingerprint(scene(t, 1, "a cat", ref)); again != base {
		t.Fatal("fingerprint not deterministic")
	}
	if p.Fingerprint(scene(t, 2, "a cat", ref)) == base {
		t.Fatal("scene id must change fingerprint")
	}
	if p.Fingerprint(scene(t, 1, "a dog", ref)) == base {
		t.Fatal("visual description must change fingerprint")
	}
	if p.Fingerprint(scene(t, 1, "a cat", "")) == base {
		t.Fatal("reference must change fingerprint")
	}

	fast, _ := newPipeline(t, gen, imagegen.Options{Quality: "fast"})
	if fast.Fingerprint(scene(t, 1, "a cat", ref)) == base {
		t.Fatal("preset must change fingerprint")
	}
	seed := int64(7)
	seeded, _ := newPipeline(t, gen, imagegen.Options{Quality: "balanced", Seed: &seed})
	if seeded.Fingerprint(scene(t, 1, "a cat", ref)) == base {
		t.Fatal("seed must change fingerprint")
	}

	later := time.Now().Add(time.Hour)
	if err := os.Chtimes(ref, later, later); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	if p.Fingerprint(scene(t, 1, "a cat", ref)) == base {
		t.Fatal("reference mtime must change fingerprint")
	}
}

func TestResolveGeneratesThenHitsCache(t *testing.T) {
	gen := &fakeGenerator{out: testsupport.PNGBytes(t, 16, 16)}
	p, store := newPipeline(t, gen, imagegen.Options{Quality: "fast"})
	if p.BackendState() != engine.Unloaded {
		t.Fatal("backend should start unloaded")
	}
	s := scene(t, 3, "a lighthouse", "")

	first, err := p.Resolve(context.Background(), s)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if first.Source != imagegen.ProducerDiffusion || !first.Put.Stored() {
		t.Fatalf("unexpected first result %+v", first)
	}
	if p.BackendState() != engine.Loaded {
		t.Fatal("backend should be loaded after generation")
	}
	second, err := p.Resolve(context.Background(), s)
	if err != nil {
		t.Fatalf("second Resolve: %v", err)
	}
	if !second.CacheHit() || !bytes.Equal(first.Artifact, second.Artifact) {
		t.Fatal("second resolve should be an identical cache hit")
	}
	if gen.calls != 1 {
		t.Fatalf("expected one backend call, got %d", gen.calls)
	}
	if _, err := os.Stat(store.Path(first.Fingerprint)); err != nil {
		t.Fatalf("artifact not cached: %v", err)
	}

	req := gen.requests[0]
	if !strings.HasPrefix(req.Prompt, "a lighthouse, ") || !strings.Contains(req.Prompt, "whiteboard doodle") {
		t.Fatalf("unexpected prompt %q", req.Prompt)
	}
	if req.NegativePrompt != imagegen.NegativePrompt || req.Steps != 4 || req.Scheduler != "lcm" {
		t.Fatalf("unexpected request %+v", req)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(req.ControlImage))
	if err != nil || cfg.Width != 512 || cfg.Height != 512 {
		t.Fatalf("control image should be a 512x512 canvas: %+v %v", cfg, err)
	}
	if err := p.Unload(); err != nil || p.BackendState() != engine.Unloaded {
		t.Fatalf("Unload: %v", err)
	}
}

func TestResolveBackendFailureIsGenerationError(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("cuda out of memory")}
	p, store := newPipeline(t, gen, imagegen.Options{})
	res, err := p.Resolve(context.Background(), scene(t, 1, "x", ""))
	var genErr *fallback.GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("expected GenerationError, got %v", err)
	}
	if len(genErr.Attempts) != 1 || genErr.Attempts[0].Producer != imagegen.ProducerDiffusion {
		t.Fatalf("unexpected attempts %+v", genErr.Attempts)
	}
	if _, err := os.Stat(store.Path(res.Fingerprint)); !os.IsNotExist(err) {
		t.Fatal("failed generation must not leave a cache entry")
	}
}

func TestResolveNormalizesJPEGOutput(t *testing.T) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewGray(image.Rect(0, 0, 4, 4)), nil); err != nil {
		t.Fatal(err)
	}
	gen := &fakeGenerator{out: buf.Bytes()}
	p, _ := newPipeline(t, gen, imagegen.Options{})
	res, err := p.Resolve(context.Background(), scene(t, 1, "x", ""))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if err := imagegen.ValidatePNG(res.Artifact); err != nil {
		t.Fatalf("artifact should be png: %v", err)
	}
}

func TestClientLoaderRequiresBackend(t *testing.T) {
	load := imagegen.ClientLoader(diffusion.NewClient(diffusion.Config{}))
	if _, err := load(context.Background()); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
