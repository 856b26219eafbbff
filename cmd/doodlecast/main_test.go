package main

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"doodlecast/internal/testsupport"
	"doodlecast/internal/workflow"
)

const twoSceneJSON = `{"title":"Water Cycle","language":"en","voice":"female_us","scenes":[
{"id":1,"narration":"Water rises from the sea.","visual_description":"Sun over waves","duration":3},
{"id":2,"narration":"Clouds carry the rain inland.","visual_description":"A cloud over hills"}]}`

const lessonMarkdown = `---
title: Photosynthesis
language: en
---

## Scene 1
**Narration:** Plants eat sunlight.
**Visual:** A smiling leaf under the sun

## Scene 2
**Visual:** A lonely cloud
`

func TestValidateCommandPrintsScenes(t *testing.T) {
	path := writeScriptFile(t, t.TempDir(), "water.json", twoSceneJSON)

	stdout, _, err := runCLI(t, []string{"validate", path}, "")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	assertContains(t, stdout, "Title: Water Cycle", "Language: en (en)", "Format: json", "Sun over waves", "auto", "Script valid: 2 scene(s)")
}

func TestValidateCommandPrintsSchema(t *testing.T) {
	stdout, _, err := runCLI(t, []string{"validate", "--schema"}, "")
	if err != nil {
		t.Fatalf("validate --schema: %v", err)
	}
	var schema map[string]any
	if err := json.Unmarshal([]byte(stdout), &schema); err != nil {
		t.Fatalf("schema output is not json: %v\n%s", err, stdout)
	}
	assertContains(t, stdout, "visual_description", "reference_image")

	if _, _, err := runCLI(t, []string{"validate"}, ""); err == nil {
		t.Fatal("expected an error without a path")
	}
}

func TestValidateCommandReportsDroppedBlocks(t *testing.T) {
	path := writeScriptFile(t, t.TempDir(), "lesson.md", lessonMarkdown)

	stdout, _, err := runCLI(t, []string{"validate", path}, "")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	assertContains(t, stdout, "Dropped block 2", "narration", "Script valid: 1 scene(s)")
}

func TestValidateCommandRejectsInvalidScript(t *testing.T) {
	path := writeScriptFile(t, t.TempDir(), "bad.json", `{"title":"T","language":"en","scenes":[]}`)

	if _, _, err := runCLI(t, []string{"validate", path}, ""); err == nil {
		t.Fatal("expected validate to fail for a script without scenes")
	}
}

func TestValidateCommandReportsMissingReference(t *testing.T) {
	dir := t.TempDir()
	path := writeScriptFile(t, dir, "ref.json", `{"title":"T","language":"en","scenes":[
{"id":1,"narration":"a","visual_description":"b","reference_image":"missing.png"}]}`)

	stdout, _, err := runCLI(t, []string{"validate", path}, "")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	assertContains(t, stdout, "Reference:", "missing.png")
}

func TestGenerateCommandWritesArtifactsAndHistory(t *testing.T) {
	backend := newFakeDiffusion(t, 0)
	env := setupCLITestEnv(t, testsupport.WithImageBackend(backend.server.URL), testsupport.WithQuality("fast"))
	script := writeScriptFile(t, env.baseDir, "water.json", twoSceneJSON)
	outDir := filepath.Join(env.baseDir, "out")

	stdout, _, err := runCLI(t, []string{"generate", "-i", script, "-o", outDir}, env.configPath)
	if err != nil {
		t.Fatalf("generate: %v\n%s", err, stdout)
	}
	assertContains(t, stdout, "Water Cycle", "diffusion", "placeholder", "Status: Completed", "Run: ")

	for _, name := range []string{"scene_001.png", "scene_001.wav", "scene_002.png", "scene_002.wav", workflow.StoryboardFile} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Fatalf("expected %s: %v", name, err)
		}
	}
	data, err := os.ReadFile(filepath.Join(outDir, workflow.StoryboardFile))
	if err != nil {
		t.Fatalf("read storyboard: %v", err)
	}
	var report workflow.Report
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("decode storyboard: %v", err)
	}
	if report.Quality != "fast" || len(report.Scenes) != 2 {
		t.Fatalf("unexpected storyboard: quality=%q scenes=%d", report.Quality, len(report.Scenes))
	}
	if report.Scenes[0].DurationSeconds != 3 {
		t.Fatalf("expected scripted duration 3, got %v", report.Scenes[0].DurationSeconds)
	}
	if report.Scenes[1].DurationSeconds <= 0 || report.Scenes[1].DurationSeconds != report.Scenes[1].AudioSeconds {
		t.Fatalf("expected auto duration from audio, got %+v", report.Scenes[1])
	}

	stdout, _, err = runCLI(t, []string{"generate", "-i", script, "-o", outDir}, env.configPath)
	if err != nil {
		t.Fatalf("second generate: %v", err)
	}
	// Placeholder narration is never cached, so only the images hit.
	assertContains(t, stdout, "2 cached", "placeholder")
	if got := backend.requests.Load(); got != 2 {
		t.Fatalf("expected backend to be called once per scene, got %d", got)
	}

	stdout, _, err = runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if strings.Count(stdout, "Water Cycle") != 2 {
		t.Fatalf("expected two runs in history, got:\n%s", stdout)
	}
	assertContains(t, stdout, "Completed")

	stdout, _, err = runCLI(t, []string{"history", "show", report.RunID[:8]}, env.configPath)
	if err != nil {
		t.Fatalf("history show: %v", err)
	}
	assertContains(t, stdout, "Run: "+report.RunID, "image", "audio", "placeholder")
}

func TestGeneratePreviewSkipsNarration(t *testing.T) {
	backend := newFakeDiffusion(t, 0)
	env := setupCLITestEnv(t, testsupport.WithImageBackend(backend.server.URL))
	script := writeScriptFile(t, env.baseDir, "water.json", twoSceneJSON)
	outDir := filepath.Join(env.baseDir, "preview")

	if _, _, err := runCLI(t, []string{"generate", "-i", script, "-o", outDir, "--preview"}, env.configPath); err != nil {
		t.Fatalf("generate --preview: %v", err)
	}
	if _, err := os.Stat(filepath.Join(outDir, "scene_001.png")); err != nil {
		t.Fatalf("expected preview image: %v", err)
	}
	if _, err := os.Stat(filepath.Join(outDir, "scene_001.wav")); !os.IsNotExist(err) {
		t.Fatalf("expected no narration in preview, stat err=%v", err)
	}
}

func TestGenerateDefaultsOutputUnderConfiguredDir(t *testing.T) {
	backend := newFakeDiffusion(t, 0)
	env := setupCLITestEnv(t, testsupport.WithImageBackend(backend.server.URL))
	script := writeScriptFile(t, env.baseDir, "water.json", twoSceneJSON)

	if _, _, err := runCLI(t, []string{"generate", "-i", script, "--preview"}, env.configPath); err != nil {
		t.Fatalf("generate: %v", err)
	}
	want := filepath.Join(env.cfg.Paths.OutputDir, "water", workflow.StoryboardFile)
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("expected storyboard at %s: %v", want, err)
	}
}

func TestGenerateFailedArtifactsExitNonZero(t *testing.T) {
	backend := newFakeDiffusion(t, http.StatusBadRequest)
	env := setupCLITestEnv(t, testsupport.WithImageBackend(backend.server.URL))
	script := writeScriptFile(t, env.baseDir, "water.json", twoSceneJSON)
	outDir := filepath.Join(env.baseDir, "out")

	stdout, _, err := runCLI(t, []string{"generate", "-i", script, "-o", outDir}, env.configPath)
	if err == nil {
		t.Fatal("expected generate to fail when images cannot be produced")
	}
	if !strings.Contains(err.Error(), "2 artifact(s) failed") {
		t.Fatalf("unexpected error: %v", err)
	}
	assertContains(t, stdout, "Scene 1 image:", "Status: Failed")
	if _, statErr := os.Stat(filepath.Join(outDir, "scene_001.wav")); statErr != nil {
		t.Fatalf("narration should still be generated: %v", statErr)
	}

	history, _, err := runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	assertContains(t, history, "Failed")
}

func TestGenerateRejectsUnknownQuality(t *testing.T) {
	env := setupCLITestEnv(t)
	script := writeScriptFile(t, env.baseDir, "water.json", twoSceneJSON)

	_, _, err := runCLI(t, []string{"generate", "-i", script, "-q", "ultra"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "invalid --quality") {
		t.Fatalf("expected quality error, got %v", err)
	}
}

func TestGenerateMissingScript(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"generate", "-i", filepath.Join(env.baseDir, "nope.json")}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "load script") {
		t.Fatalf("expected load error, got %v", err)
	}
}

func TestHistoryEmpty(t *testing.T) {
	env := setupCLITestEnv(t)

	stdout, _, err := runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	assertContains(t, stdout, "No runs recorded")
}

func TestDoctorReportsMissingImageBackend(t *testing.T) {
	env := setupCLITestEnv(t)

	stdout, _, err := runCLI(t, []string{"doctor"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "preflight check(s) failed") {
		t.Fatalf("expected doctor to fail, got %v", err)
	}
	assertContains(t, stdout, "Image backend", "FAIL", "image.backend_url not set", "Speech backend", "WARN")
}

func TestDoctorPassesWithReachableBackend(t *testing.T) {
	backend := newFakeDiffusion(t, 0)
	env := setupCLITestEnv(t, testsupport.WithImageBackend(backend.server.URL))

	stdout, _, err := runCLI(t, []string{"doctor"}, env.configPath)
	if err != nil {
		t.Fatalf("doctor: %v\n%s", err, stdout)
	}
	assertContains(t, stdout, "reachable", "All required checks passed", "file present: yes")
}
