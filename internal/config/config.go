package config

type Config interface {
	EnvConfig
	ClientConfig
}

type EnvConfig interface {
	GetAppName() string
	GetAPIBaseURL() string
	GetDataFolder() string
	GetEnv() string
}

type mainConfig struct {
	EnvVars
	Client
}

func New() Config {
	return mainConfig{}
}
