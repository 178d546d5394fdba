package log

import (
	"os"
	"path/filepath"
	"runtime"
)

const appDir = "vozflow"

// defaultDir is the per-user log location: ~/Library/Logs on macOS,
// %LOCALAPPDATA% on Windows and the XDG config home elsewhere.
func defaultDir() (string, error) {
	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Logs", appDir), nil
	case "windows":
		base, err := os.UserCacheDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(base, appDir, "logs"), nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, appDir, "logs"), nil
}
