package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/example/wrapshop-ops/api-go/internal/config"
	"github.com/example/wrapshop-ops/api-go/internal/httpapi"
	"github.com/example/wrapshop-ops/api-go/internal/store"
)

func main() {
	loadDotEnv()
	cfg := config.Load()
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatalf("mkdir data dir: %v", err)
	}

	dbPath := filepath.Join(cfg.DataDir, "ops.db")
	jobStore, err := store.Open(dbPath)
	if err != nil {
		log.Fatalf("open job store: %v", err)
	}
	defer jobStore.Close()

	baseURL := cfg.BaseURL
	if baseURL == "" {
		addr := cfg.Addr
		if strings.HasPrefix(addr, ":") {
			addr = "localhost" + addr
		}
		baseURL = fmt.Sprintf("http://%s", addr)
	}

	server := httpapi.NewServer(jobStore, cfg.Org)

	log.Printf("ops API listening on %s (org=%s baseURL=%s)", cfg.Addr, cfg.Org, baseURL)
	if err := http.ListenAndServe(cfg.Addr, server.Router()); err != nil {
		log.Fatalf("listen: %v", err)
	}
}

func loadDotEnv() {
	dir, err := os.Getwd()
	if err != nil {
		return
	}
	for i := 0; i < 5; i++ {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			_ = godotenv.Load(envPath)
			return
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return
		}
		dir = parent
	}
}
