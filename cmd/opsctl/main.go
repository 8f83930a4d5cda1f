// opsctl is the terminal client for the wrap shop ops API: inspect the
// pipeline, work the task queue, and move jobs forward or back.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/example/wrapshop-ops/api-go/internal/apiclient"
)

var (
	apiURL  string
	session string
)

var rootCmd = &cobra.Command{
	Use:   "opsctl",
	Short: "Wrap shop operations from the terminal",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		loadDotEnv()
		if apiURL == "" {
			apiURL = os.Getenv("OPS_API_URL")
		}
		if apiURL == "" {
			apiURL = "http://localhost:8080"
		}
		if session == "" {
			session = os.Getenv("OPS_SESSION")
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", "", "ops API base URL (default $OPS_API_URL or http://localhost:8080)")
	rootCmd.PersistentFlags().StringVar(&session, "session", "", "session id for task dismissal (default $OPS_SESSION)")
}

func newClient() *apiclient.Client {
	return apiclient.New(apiURL, session)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
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
