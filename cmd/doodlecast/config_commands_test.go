package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigInitCreatesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "doodlecast", "config.toml")

	stdout, _, err := runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	assertContains(t, stdout, "Wrote sample configuration to "+target)
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected sample config: %v", err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected second init without --overwrite to fail")
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, ""); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestConfigShowRedactsKeys(t *testing.T) {
	env := setupCLITestEnv(t)
	t.Setenv("DOODLECAST_IMAGE_API_KEY", "super-secret")

	stdout, _, err := runCLI(t, []string{"config", "show"}, env.configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	assertContains(t, stdout, "# Config path: "+env.configPath, "[image]", "[speech]", "********")
	if strings.Contains(stdout, "super-secret") {
		t.Fatalf("api key leaked:\n%s", stdout)
	}
}

func TestConfigShowMissingFileUsesDefaults(t *testing.T) {
	env := setupCLITestEnv(t)
	missing := filepath.Join(env.baseDir, "absent.toml")
	t.Chdir(env.baseDir)

	stdout, _, err := runCLI(t, []string{"config", "show"}, missing)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	assertContains(t, stdout, "does not exist; defaults shown", "balanced")
}
