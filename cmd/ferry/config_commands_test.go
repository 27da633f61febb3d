package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestConfigInitWritesSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	out, err := runCommand(t, "--config", path, "config", "init")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, path) {
		t.Fatalf("output should name the written path: %q", out)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if !strings.Contains(string(data), "[pipeline]") {
		t.Fatalf("sample config missing pipeline section:\n%s", data)
	}

	if _, err := runCommand(t, "--config", path, "config", "init"); err == nil {
		t.Fatal("second init without --force should refuse to overwrite")
	}
	if _, err := runCommand(t, "--config", path, "config", "init", "--force"); err != nil {
		t.Fatalf("forced init: %v", err)
	}
}

func TestConfigShowReportsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.toml")
	out, err := runCommand(t, "--config", path, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	for _, want := range []string{"configuration source: defaults", "max_attempts = 3", "backoff_minutes = [2 5 10]"} {
		if !strings.Contains(out, want) {
			t.Errorf("config show output missing %q:\n%s", want, out)
		}
	}
}
