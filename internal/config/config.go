package config

import (
	"os"
)

type Config struct {
	Addr    string
	DataDir string
	BaseURL string
	Org     string
}

func Load() Config {
	return Config{
		Addr:    getenv("OPS_API_ADDR", ":8080"),
		DataDir: getenv("OPS_DATA_DIR", "local-data"),
		BaseURL: os.Getenv("OPS_BASE_URL"),
		Org:     getenv("OPS_ORG", "default"),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
