package dropbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strings"
)

// Runner executes an external command and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs commands with os/exec.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.CombinedOutput()
}

// ADBConfig selects the device to pull DropBox entries from.
type ADBConfig struct {
	// Serial is the device serial passed as "adb -s". Empty uses the only attached device.
	Serial string

	// RemotePath is the DropBox directory on the device.
	// Defaults to DefaultDeviceDir.
	RemotePath string

	// ADBPath is the adb binary. Defaults to "adb".
	ADBPath string

	// TempDir is where the pulled copy is kept. Defaults to os.TempDir().
	TempDir string

	// Runner executes adb. Defaults to ExecRunner.
	Runner Runner
}

// ErrDeviceUnavailable is returned when the device is not in the "device" state.
var ErrDeviceUnavailable = errors.New("adb device unavailable")

// ADBSource serves records pulled from a device over ADB. Reading the
// platform directory needs a rooted or debuggable build.
type ADBSource struct {
	*DirSource
	tmp string
}

// OpenADB checks the device, pulls its DropBox directory to a temporary
// location and indexes the copy. Close removes the copy.
func OpenADB(ctx context.Context, cfg ADBConfig) (*ADBSource, error) {
	if cfg.RemotePath == "" {
		cfg.RemotePath = DefaultDeviceDir
	}
	if cfg.ADBPath == "" {
		cfg.ADBPath = "adb"
	}
	if cfg.Runner == nil {
		cfg.Runner = ExecRunner
	}

	out, err := cfg.Runner(ctx, cfg.ADBPath, cfg.args("get-state")...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v, output: %s", ErrDeviceUnavailable, err, bytes.TrimSpace(out))
	}
	if state := strings.TrimSpace(string(out)); state != "device" {
		return nil, fmt.Errorf("%w: state %q", ErrDeviceUnavailable, state)
	}

	tmp, err := os.MkdirTemp(cfg.TempDir, "dropboxlog-adb-")
	if err != nil {
		return nil, fmt.Errorf("creating pull dir: %w", err)
	}

	out, err = cfg.Runner(ctx, cfg.ADBPath, cfg.args("pull", cfg.RemotePath, tmp)...)
	if err != nil {
		_ = os.RemoveAll(tmp)
		return nil, fmt.Errorf("pull %s failed: %v, output: %s", cfg.RemotePath, err, bytes.TrimSpace(out))
	}

	// adb pull of a directory into an existing directory nests it by name.
	local := filepath.Join(tmp, path.Base(cfg.RemotePath))
	if info, err := os.Stat(local); err != nil || !info.IsDir() {
		local = tmp
	}

	dir, err := OpenDir(local)
	if err != nil {
		_ = os.RemoveAll(tmp)
		return nil, err
	}

	return &ADBSource{DirSource: dir, tmp: tmp}, nil
}

func (c ADBConfig) args(rest ...string) []string {
	if c.Serial == "" {
		return rest
	}
	return append([]string{"-s", c.Serial}, rest...)
}

// Close removes the pulled copy.
func (s *ADBSource) Close() error {
	if s.tmp == "" {
		return nil
	}
	err := os.RemoveAll(s.tmp)
	s.tmp = ""
	return err
}
