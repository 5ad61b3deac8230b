package config

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

// GetDataDir resolves the base directory for arbor storage. ARBOR_DIR wins,
// then the XDG data home, and finally the user's home directory.
func GetDataDir() string {
	if explicit := os.Getenv("ARBOR_DIR"); explicit != "" {
		return explicit
	}

	xdg.Reload()

	dataHome := xdg.DataHome
	if dataHome == "" {
		home := xdg.Home
		if home == "" {
			var err error
			home, err = os.UserHomeDir()
			if err != nil {
				return filepath.Join(os.TempDir(), "arbor")
			}
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	return filepath.Join(dataHome, "arbor")
}

// GetDBPath returns the absolute path to the SQLite database file.
func GetDBPath() string {
	return filepath.Join(GetDataDir(), "arbor.db")
}

// GetConfigPath returns the path of the optional settings file.
func GetConfigPath() string {
	return filepath.Join(GetDataDir(), "config.yaml")
}

// GetLogPath returns the default log file used by the MCP server, which
// cannot log to stdio.
func GetLogPath() string {
	return filepath.Join(GetDataDir(), "arbor.log")
}
