package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func runConfigLint(t *testing.T, manifest string) (string, string, string, error) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "pman.yaml")
	if err := os.WriteFile(path, []byte(manifest), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	stdout, stderr, err := runLint(t, path)
	return stdout, stderr, path, err
}

func runLint(t *testing.T, path string) (string, string, error) {
	t.Helper()
	root, ctx := newRootCommand()
	ctx.lookupEnv = envMap(nil)

	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs([]string{"config", "lint", "--config", path})

	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func configManifest(lines ...string) string {
	return strings.Join(lines, "\n") + "\n"
}

func TestConfigLintSuccess(t *testing.T) {
	manifest := configManifest(
		"prompt: \"jobs> \"",
		"logging:",
		"  level: info",
		"metrics:",
		"  addr: 127.0.0.1:9310",
		"tui:",
		"  refresh: 1s",
	)
	stdout, stderr, path, err := runConfigLint(t, manifest)
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if want := path + ": OK\n"; stdout != want {
		t.Fatalf("unexpected stdout: got %q want %q", stdout, want)
	}
	if stderr != "" {
		t.Fatalf("unexpected stderr output: %q", stderr)
	}
}

func TestConfigLintUnknownField(t *testing.T) {
	stdout, stderr, _, err := runConfigLint(t, configManifest("prompt: x", "services: {}"))
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
	if stdout != "" {
		t.Fatalf("expected empty stdout, got %q", stdout)
	}
	if !strings.Contains(stderr, "schema validation failed") || !strings.Contains(stderr, "services") {
		t.Fatalf("stderr does not mention unknown field: %q", stderr)
	}
}

func TestConfigLintInvalidValue(t *testing.T) {
	_, stderr, _, err := runConfigLint(t, configManifest("tui:", "  refresh: 5ms"))
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
	if !strings.Contains(stderr, "tui.refresh") {
		t.Fatalf("stderr does not mention refresh path: %q", stderr)
	}
}

func TestConfigLintBadLevelReportsPath(t *testing.T) {
	_, stderr, _, err := runConfigLint(t, configManifest("logging:", "  level: loud"))
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
	if !strings.Contains(stderr, "- logging.level:") {
		t.Fatalf("stderr does not mention logging.level: %q", stderr)
	}
}

func TestConfigLintMissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "absent.yaml")
	_, stderr, err := runLint(t, missing)
	if err == nil {
		t.Fatalf("expected error for missing file")
	}
	if !strings.Contains(stderr, "open config file") {
		t.Fatalf("unexpected stderr: %q", stderr)
	}
}
