package config

import (
	"os"
	"path/filepath"
)

const (
	appNameVar = "APP_NAME"
	apiURLVar  = "API_BASE_URL"
	folderVar  = "FOLDER"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Social Client")
}

// GetAPIBaseURL returns the base URL of the content API.
func (EnvVars) GetAPIBaseURL() string {
	return GetEnv(apiURLVar, "http://localhost:5000")
}

// GetDataFolder returns where the client keeps its persisted state
// (session token, optional config file).
func (EnvVars) GetDataFolder() string {
	folder := os.Getenv(folderVar)
	if folder != "" {
		return folder
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "./data"
	}
	return filepath.Join(home, ".social-client")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
