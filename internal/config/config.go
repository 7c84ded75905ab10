package config

import (
	"github.com/joho/godotenv"
)

type Config struct {
	Server  ServerConfig
	Storage StorageConfig
	Vault   VaultConfig
	Locale  LocaleConfig
	Log     LogConfig
}

type ServerConfig struct {
	Port     int
	MaxConns int
}

type StorageConfig struct {
	DataDir string
}

type VaultConfig struct {
	// DeliveryDelay is a Go duration string; messages are sealed this long.
	DeliveryDelay string
	// CheckInterval is a Go duration string between delivery checks.
	CheckInterval string
}

type LocaleConfig struct {
	Default string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:     4400,
			MaxConns: 32,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Vault: VaultConfig{
			DeliveryDelay: "2160h", // 90 days
			CheckInterval: "1h",
		},
		Locale: LocaleConfig{
			Default: "en-US",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the platform-native backend and environment
// variables.
//
// On macOS the backend is UserDefaults (domain: com.sealbox.app).
// On Linux the backend is a JSON file at $XDG_CONFIG_HOME/sealbox/config.json.
//
// A .env file in the working directory is loaded first, then environment
// variables (SEALBOX_*) override backend values on all platforms.
func Load() (Config, error) {
	godotenv.Load()
	return loadWith(newPlatformBackend())
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	return cfg, nil
}
