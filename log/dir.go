package log

import (
	"os"
	"path/filepath"
	"runtime"
)

const appName = "talkclip"

// defaultDir is the per-OS log location used when neither -logpath nor
// TALKCLIP_LOG_PATH is set.
func defaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return defaultDirFor(runtime.GOOS, home, os.Getenv), nil
}

func defaultDirFor(goos, home string, getenv func(string) string) string {
	switch goos {
	case "darwin":
		return filepath.Join(home, "Library", "Logs", appName)
	case "windows":
		base := getenv("LOCALAPPDATA")
		if base == "" {
			base = filepath.Join(home, "AppData", "Local")
		}
		return filepath.Join(base, appName, "logs")
	default:
		base := getenv("XDG_STATE_HOME")
		if base == "" {
			base = filepath.Join(home, ".local", "state")
		}
		return filepath.Join(base, appName, "logs")
	}
}
