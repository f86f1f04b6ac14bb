package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "edge",
	Short: "Classroom attendance edge agent",
	Long: `The edge agent runs on a classroom capture device. It keeps the
active class roster cached locally, debounces repeated sightings, queues
attendance events durably on disk, and uploads them to the cloud in batches
with retry, so attendance survives restarts and network outages.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to device provisioning YAML")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
