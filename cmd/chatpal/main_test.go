package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func clearEnvOverrides(t *testing.T) {
	t.Setenv("CHATPAL_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("CHATPAL_BASE_URL", "")
	t.Setenv("CHATPAL_TELEGRAM_TOKEN", "")
	t.Setenv("CHATPAL_BOT_NAME", "")
	t.Setenv("CHATPAL_TRIGGER_KEYWORD", "")
	t.Setenv("CHATPAL_DISABLE_GROUP", "")
}

func captureStdout(t *testing.T, fn func() error) (string, error) {
	t.Helper()
	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	err := fn()

	w.Close()
	os.Stdout = oldStdout

	var buf bytes.Buffer
	io.Copy(&buf, r)
	return buf.String(), err
}

func TestWriteIfNotExists_NewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.txt")

	writeIfNotExists(path, "test content")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile error: %v", err)
	}
	if string(data) != "test content" {
		t.Errorf("content = %q, want 'test content'", string(data))
	}
}

func TestWriteIfNotExists_ExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.txt")
	os.WriteFile(path, []byte("original"), 0644)

	writeIfNotExists(path, "new content")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile error: %v", err)
	}
	if string(data) != "original" {
		t.Errorf("content = %q, want 'original'", string(data))
	}
}

func TestRunOnboard(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	clearEnvOverrides(t)

	output, err := captureStdout(t, func() error {
		return runOnboard(&cobra.Command{}, []string{})
	})
	if err != nil {
		t.Errorf("runOnboard error: %v", err)
	}

	cfgPath := filepath.Join(tmpDir, ".chatpal", "config.json")
	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		t.Error("config file was not created")
	}
	personaPath := filepath.Join(tmpDir, ".chatpal", "persona.json")
	if _, err := os.Stat(personaPath); os.IsNotExist(err) {
		t.Error("persona file was not created")
	}
	mediaDir := filepath.Join(tmpDir, ".chatpal", "media")
	if _, err := os.Stat(mediaDir); os.IsNotExist(err) {
		t.Error("media dir was not created")
	}

	if !strings.Contains(output, "Created config") {
		t.Errorf("unexpected output: %s", output)
	}
}

func TestRunOnboard_AlreadyExists(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	clearEnvOverrides(t)

	cfgDir := filepath.Join(tmpDir, ".chatpal")
	os.MkdirAll(cfgDir, 0755)
	os.WriteFile(filepath.Join(cfgDir, "config.json"), []byte("{}"), 0644)

	output, err := captureStdout(t, func() error {
		return runOnboard(&cobra.Command{}, []string{})
	})
	if err != nil {
		t.Errorf("runOnboard error: %v", err)
	}
	if !strings.Contains(output, "Config already exists") {
		t.Errorf("expected 'Config already exists', got: %s", output)
	}
}

func TestRunStatus(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	clearEnvOverrides(t)

	output, err := captureStdout(t, func() error {
		return runStatus(&cobra.Command{}, []string{})
	})
	if err != nil {
		t.Errorf("runStatus error: %v", err)
	}

	if !strings.Contains(output, "Config:") {
		t.Errorf("missing Config in output: %s", output)
	}
	if !strings.Contains(output, "API Key: not set") {
		t.Errorf("missing API Key info in output: %s", output)
	}
	if !strings.Contains(output, "Telegram: enabled=") {
		t.Errorf("missing Telegram status in output: %s", output)
	}
	if !strings.Contains(output, "Conversations:") {
		t.Errorf("missing conversation count in output: %s", output)
	}
}

func TestRunStatus_WithAPIKey(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	clearEnvOverrides(t)
	t.Setenv("CHATPAL_API_KEY", "sk-test-key-12345678")

	output, err := captureStdout(t, func() error {
		return runStatus(&cobra.Command{}, []string{})
	})
	if err != nil {
		t.Errorf("runStatus error: %v", err)
	}
	if !strings.Contains(output, "sk-t...") {
		t.Errorf("API key should be masked in output: %s", output)
	}
}

func TestRunStatus_WithShortAPIKey(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	clearEnvOverrides(t)
	t.Setenv("CHATPAL_API_KEY", "short")

	output, err := captureStdout(t, func() error {
		return runStatus(&cobra.Command{}, []string{})
	})
	if err != nil {
		t.Errorf("runStatus error: %v", err)
	}
	if !strings.Contains(output, "API Key: set") {
		t.Errorf("short API key should show 'set': %s", output)
	}
}

func TestRunGateway_NoAPIKey(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	clearEnvOverrides(t)

	err := runGateway(&cobra.Command{}, []string{})
	if err == nil {
		t.Error("expected error when API key is not set")
	}
	if !strings.Contains(err.Error(), "API key not set") {
		t.Errorf("error should mention API key: %v", err)
	}
}

func TestInit(t *testing.T) {
	if rootCmd == nil {
		t.Error("rootCmd should not be nil")
	}
	if gatewayCmd == nil {
		t.Error("gatewayCmd should not be nil")
	}
	if onboardCmd == nil {
		t.Error("onboardCmd should not be nil")
	}
	if statusCmd == nil {
		t.Error("statusCmd should not be nil")
	}
}
