package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/vikramraju/attendedge/internal/config"
	"github.com/vikramraju/attendedge/internal/edge"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the edge agent",
	Long: `Start the attendance pipeline: schedule sync, batch upload,
heartbeats and local queue housekeeping. The recognition loop feeds the
agent through its Observe API.`,
	RunE: runAgent,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runAgent(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadEdgeConfig(configPath)
	if err != nil {
		return err
	}

	agent, err := edge.NewAgent(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("Edge agent starting (device %s, classroom %s)", cfg.DeviceID, cfg.ClassroomID)
	if err := agent.Run(ctx); err != nil {
		return err
	}
	log.Println("Edge agent stopped gracefully")
	return nil
}
