package plugins

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFindPlugin_NotFound(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("PATH", t.TempDir())

	_, err := FindPlugin("nonexistent-plugin-xyz")
	if err != ErrPluginNotFound {
		t.Errorf("expected ErrPluginNotFound, got %v", err)
	}
}

func TestFindPlugin_RejectsPaths(t *testing.T) {
	for _, name := range []string{"", "../evil", "a/b"} {
		if _, err := FindPlugin(name); err != ErrPluginNotFound {
			t.Errorf("FindPlugin(%q) = %v, want ErrPluginNotFound", name, err)
		}
	}
}

func TestFindPlugin_InPluginsDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("PATH", t.TempDir())

	pluginsDir := filepath.Join(home, ".dropboxlog", "plugins")
	if err := os.MkdirAll(pluginsDir, 0755); err != nil {
		t.Fatalf("failed to create plugins dir: %v", err)
	}

	pluginPath := filepath.Join(pluginsDir, "dropboxlog-testplugin")
	if err := os.WriteFile(pluginPath, []byte("#!/bin/sh\necho test"), 0755); err != nil {
		t.Fatalf("failed to create test plugin: %v", err)
	}

	found, err := FindPlugin("testplugin")
	if err != nil {
		t.Fatalf("expected to find plugin, got error: %v", err)
	}
	if found != pluginPath {
		t.Errorf("expected %s, got %s", pluginPath, found)
	}
}

func TestFindPlugin_InPath(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	bin := t.TempDir()
	t.Setenv("PATH", bin)

	pluginPath := filepath.Join(bin, "dropboxlog-symbolize")
	if err := os.WriteFile(pluginPath, []byte("#!/bin/sh\nexit 0"), 0755); err != nil {
		t.Fatalf("failed to create test plugin: %v", err)
	}

	found, err := FindPlugin("symbolize")
	if err != nil {
		t.Fatalf("expected to find plugin, got error: %v", err)
	}
	if found != pluginPath {
		t.Errorf("expected %s, got %s", pluginPath, found)
	}
}

func TestExecute_ExitCode(t *testing.T) {
	dir := t.TempDir()
	plugin := filepath.Join(dir, "dropboxlog-fail")
	if err := os.WriteFile(plugin, []byte("#!/bin/sh\nexit 3\n"), 0755); err != nil {
		t.Fatalf("failed to create plugin: %v", err)
	}

	if code := Execute(plugin, nil); code != 3 {
		t.Errorf("Execute() = %d, want 3", code)
	}
}

func TestFormatNotFoundError(t *testing.T) {
	err := FormatNotFoundError("unknown")

	if !strings.Contains(err, `unknown command "unknown"`) {
		t.Error("expected error to name the command")
	}
	if !strings.Contains(err, "dropboxlog-unknown") {
		t.Error("expected error to mention dropboxlog-unknown")
	}
	if !strings.Contains(err, "~/.dropboxlog/plugins/") {
		t.Error("expected error to mention the plugin directory")
	}
}

func TestIsExecutable(t *testing.T) {
	tmpDir := t.TempDir()

	// Non-executable file
	nonExec := filepath.Join(tmpDir, "nonexec")
	if err := os.WriteFile(nonExec, []byte("test"), 0644); err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	if isExecutable(nonExec) {
		t.Error("non-executable file should not be detected as executable")
	}

	// Executable file
	exec := filepath.Join(tmpDir, "exec")
	if err := os.WriteFile(exec, []byte("test"), 0755); err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	if !isExecutable(exec) {
		t.Error("executable file should be detected as executable")
	}

	// Directories are never plugins
	if isExecutable(tmpDir) {
		t.Error("directory should not be detected as executable")
	}

	// Non-existent file
	if isExecutable(filepath.Join(tmpDir, "nonexistent")) {
		t.Error("non-existent file should not be detected as executable")
	}
}
