package config

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// ClientConfig carries the tunables of the client runtime. Values come from
// an optional config.yaml in the data folder; absent values fall back to
// defaults.
type ClientConfig interface {
	GetLivenessInterval() time.Duration
	GetRequestTimeout() time.Duration
}

const (
	configFileName          = "config.yaml"
	defaultLivenessInterval = 60 * time.Second
	defaultRequestTimeout   = 15 * time.Second
)

type clientFile struct {
	LivenessIntervalSeconds int `yaml:"liveness_interval_seconds"`
	RequestTimeoutSeconds   int `yaml:"request_timeout_seconds"`
}

type Client struct{}

var (
	clientOnce   sync.Once
	clientValues clientFile
)

var _ ClientConfig = Client{}

func loadClientFile() {
	path := filepath.Join(EnvVars{}.GetDataFolder(), configFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	// A broken config file means defaults, not a failed start.
	_ = yaml.Unmarshal(data, &clientValues)
}

func (Client) GetLivenessInterval() time.Duration {
	clientOnce.Do(loadClientFile)
	if clientValues.LivenessIntervalSeconds > 0 {
		return time.Duration(clientValues.LivenessIntervalSeconds) * time.Second
	}
	return defaultLivenessInterval
}

func (Client) GetRequestTimeout() time.Duration {
	clientOnce.Do(loadClientFile)
	if clientValues.RequestTimeoutSeconds > 0 {
		return time.Duration(clientValues.RequestTimeoutSeconds) * time.Second
	}
	return defaultRequestTimeout
}
