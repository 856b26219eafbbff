package workflow_test

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"doodlecast/internal/artifactcache"
	"doodlecast/internal/fallback"
	"doodlecast/internal/fingerprint"
	"doodlecast/internal/manifest"
	"doodlecast/internal/media/wav"
	"doodlecast/internal/script"
	"doodlecast/internal/speech"
	"doodlecast/internal/testsupport"
	"doodlecast/internal/workflow"
)

type fakeImages struct {
	t      *testing.T
	fail   map[int]bool
	calls  []int
	cancel context.CancelFunc
}

func (f *fakeImages) Resolve(_ context.Context, scene script.Scene) (fallback.Result, error) {
	f.calls = append(f.calls, scene.ID)
	fp := fingerprint.New("image").Int("scene", int64(scene.ID)).Sum()
	if f.cancel != nil {
		f.cancel()
	}
	if f.fail[scene.ID] {
		attempts := []fallback.Attempt{{Producer: "diffusion", Err: errors.New("backend down")}}
		return fallback.Result{Fingerprint: fp, Attempts: attempts},
			&fallback.GenerationError{Kind: "image", Fingerprint: fp, Attempts: attempts}
	}
	return fallback.Result{
		Fingerprint: fp,
		Artifact:    testsupport.PNGBytes(f.t, 4, 4),
		Source:      "diffusion",
		Attempts:    []fallback.Attempt{{Producer: "diffusion"}},
		Put:         artifactcache.PutResult{Status: artifactcache.PutStored},
	}, nil
}

type fakeSpeech struct {
	requests []speech.Request
}

func (f *fakeSpeech) Resolve(_ context.Context, req speech.Request) (fallback.Result, error) {
	f.requests = append(f.requests, req)
	fp := fingerprint.New("audio").Int("scene", int64(req.Scene.ID)).Sum()
	// 1.5 seconds at 8 kHz.
	data := wav.Encode(wav.Clip{SampleRate: 8000, Samples: make([]int16, 12000)})
	return fallback.Result{Fingerprint: fp, Artifact: data, Source: fallback.SourceCache}, nil
}

type fakeRecorder struct {
	assets []manifest.Asset
	err    error
}

func (f *fakeRecorder) RecordAsset(_ context.Context, asset manifest.Asset) error {
	f.assets = append(f.assets, asset)
	return f.err
}

func loadScript(t *testing.T) *script.Script {
	t.Helper()
	inputs := []script.SceneInput{
		{ID: 2, Narration: script.Text("second scene words"), VisualDescription: script.Text("B"), Duration: 4.0},
		{ID: 1, Narration: script.Text("first"), VisualDescription: script.Text("A")},
	}
	var scenes []script.Scene
	for _, in := range inputs {
		scene, err := script.NewScene(in)
		if err != nil {
			t.Fatalf("NewScene: %v", err)
		}
		scenes = append(scenes, scene)
	}
	s, err := script.NewScript(script.ScriptInput{
		Title:    "Demo",
		Language: "en",
		Scenes:   scenes,
		Metadata: map[string]any{"audience": "kids"},
	})
	if err != nil {
		t.Fatalf("NewScript: %v", err)
	}
	return s
}

func TestRunPublishesArtifactsAndStoryboard(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out")
	images := &fakeImages{t: t}
	voices := &fakeSpeech{}
	recorder := &fakeRecorder{}
	var progress []workflow.Progress
	runner := workflow.NewRunner(images, voices,
		workflow.WithRecorder(recorder),
		workflow.WithProgress(func(p workflow.Progress) { progress = append(progress, p) }),
	)

	report, err := runner.Run(context.Background(), loadScript(t), workflow.Options{OutputDir: out, RunID: "run-1", Quality: "fast"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Failed() != 0 || len(report.Scenes) != 2 {
		t.Fatalf("unexpected report %+v", report)
	}
	if images.calls[0] != 1 || images.calls[1] != 2 {
		t.Fatalf("scenes must run in id order, got %v", images.calls)
	}
	for _, name := range []string{"scene_001.png", "scene_001.wav", "scene_002.png", "scene_002.wav", workflow.StoryboardFile} {
		if _, err := os.Stat(filepath.Join(out, name)); err != nil {
			t.Fatalf("missing %s: %v", name, err)
		}
	}

	first := report.Scenes[0]
	if first.Image.CacheStatus != workflow.CacheStored || first.Audio.CacheStatus != workflow.CacheHit {
		t.Fatalf("unexpected cache statuses %+v / %+v", first.Image, first.Audio)
	}
	if math.Abs(first.AudioSeconds-1.5) > 1e-9 || first.DurationSeconds != first.AudioSeconds {
		t.Fatalf("auto duration should follow audio: %+v", first)
	}
	if report.Scenes[1].DurationSeconds != 4.0 {
		t.Fatalf("explicit duration should win, got %v", report.Scenes[1].DurationSeconds)
	}
	if report.Status() != manifest.RunCompleted || report.CacheHits() != 2 {
		t.Fatalf("status=%s hits=%d", report.Status(), report.CacheHits())
	}
	if voices.requests[0].Language != "en" || voices.requests[0].Voice != script.DefaultVoice {
		t.Fatalf("unexpected speech request %+v", voices.requests[0])
	}

	if len(recorder.assets) != 4 || recorder.assets[0].RunID != "run-1" || recorder.assets[1].DurationSeconds != 1.5 {
		t.Fatalf("unexpected ledger assets %+v", recorder.assets)
	}
	if len(progress) != 2 || progress[1].Done != 2 || progress[1].Total != 2 {
		t.Fatalf("unexpected progress %+v", progress)
	}

	data, err := os.ReadFile(filepath.Join(out, workflow.StoryboardFile))
	if err != nil {
		t.Fatal(err)
	}
	var decoded workflow.Report
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("storyboard is not valid json: %v", err)
	}
	if decoded.Title != "Demo" || len(decoded.Scenes) != 2 || decoded.Scenes[0].Image.Path == "" {
		t.Fatalf("unexpected storyboard %+v", decoded)
	}
	if decoded.Metadata["audience"] != "kids" {
		t.Fatalf("storyboard should carry script metadata, got %v", decoded.Metadata)
	}
}

func TestRunContinuesAfterGenerationError(t *testing.T) {
	out := t.TempDir()
	images := &fakeImages{t: t, fail: map[int]bool{1: true}}
	runner := workflow.NewRunner(images, &fakeSpeech{})
	report, err := runner.Run(context.Background(), loadScript(t), workflow.Options{OutputDir: out})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Failed() != 1 || report.Status() != manifest.RunFailed {
		t.Fatalf("expected one failed artifact, got %d", report.Failed())
	}
	failed := report.Scenes[0].Image
	if failed.Error == "" || len(failed.Attempts) != 1 || failed.Attempts[0].Error != "backend down" {
		t.Fatalf("unexpected failed artifact %+v", failed)
	}
	if _, err := os.Stat(filepath.Join(out, "scene_001.png")); !os.IsNotExist(err) {
		t.Fatal("failed image must not be published")
	}
	if _, err := os.Stat(filepath.Join(out, "scene_001.wav")); err != nil {
		t.Fatal("narration for the failed scene should still be produced")
	}
	if _, err := os.Stat(filepath.Join(out, "scene_002.png")); err != nil {
		t.Fatal("later scenes should still run")
	}
}

func TestRunPreviewSkipsSpeech(t *testing.T) {
	out := t.TempDir()
	runner := workflow.NewRunner(&fakeImages{t: t}, nil)
	report, err := runner.Run(context.Background(), loadScript(t), workflow.Options{OutputDir: out, Preview: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Scenes[0].Audio != nil || !report.Preview {
		t.Fatal("preview should not produce audio")
	}
	if _, err := os.Stat(filepath.Join(out, "scene_001.wav")); !os.IsNotExist(err) {
		t.Fatal("preview must not write audio")
	}
}

func TestRunStopsBetweenScenesOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	images := &fakeImages{t: t, cancel: cancel}
	runner := workflow.NewRunner(images, &fakeSpeech{})
	out := t.TempDir()
	report, err := runner.Run(ctx, loadScript(t), workflow.Options{OutputDir: out})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if !report.Canceled || len(report.Scenes) != 1 || len(images.calls) != 1 {
		t.Fatalf("expected one scene before stopping, got %d", len(report.Scenes))
	}
	if report.Status() != manifest.RunCanceled {
		t.Fatalf("status = %s", report.Status())
	}
	if _, err := os.Stat(filepath.Join(out, workflow.StoryboardFile)); err != nil {
		t.Fatal("storyboard should be written for a canceled run")
	}
}

func TestRunLedgerFailureIsNotFatal(t *testing.T) {
	recorder := &fakeRecorder{err: errors.New("database is locked")}
	runner := workflow.NewRunner(&fakeImages{t: t}, &fakeSpeech{}, workflow.WithRecorder(recorder))
	report, err := runner.Run(context.Background(), loadScript(t), workflow.Options{OutputDir: t.TempDir(), RunID: "r"})
	if err != nil || report.Failed() != 0 {
		t.Fatalf("ledger errors must not fail the run: %v", err)
	}
}

func TestRunValidatesArguments(t *testing.T) {
	runner := workflow.NewRunner(&fakeImages{t: t}, nil)
	if _, err := runner.Run(context.Background(), loadScript(t), workflow.Options{OutputDir: t.TempDir()}); err == nil {
		t.Fatal("expected error without a speech pipeline")
	}
	if _, err := runner.Run(context.Background(), nil, workflow.Options{OutputDir: t.TempDir()}); err == nil {
		t.Fatal("expected error for nil script")
	}
	if _, err := runner.Run(context.Background(), loadScript(t), workflow.Options{Preview: true}); err == nil {
		t.Fatal("expected error without output dir")
	}
}
