package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vikramraju/attendedge/internal/config"
	"github.com/vikramraju/attendedge/internal/edge"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Inspect the local attendance queue",
	Long: `Show the state of the on-disk attendance queue: how many records
are waiting for upload and which ones permanently failed delivery.`,
	RunE: inspectQueue,
}

func init() {
	rootCmd.AddCommand(queueCmd)
}

func inspectQueue(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadEdgeConfig(configPath)
	if err != nil {
		return err
	}

	queue, err := edge.OpenDurableLocalQueue(cfg.QueuePath, cfg.MaxAttempts)
	if err != nil {
		return err
	}
	defer queue.Close()

	fmt.Printf("Queue: %s\n", cfg.QueuePath)
	fmt.Printf("Pending records: %d\n", queue.Depth())

	failed := queue.FailedRecords()
	fmt.Printf("Failed records:  %d\n", len(failed))
	for _, rec := range failed {
		fmt.Printf("  %s student=%s course=%s attempts=%d error=%q\n",
			rec.ID, rec.Event.StudentID, rec.Event.CourseID, rec.Attempts, rec.LastError)
	}
	return nil
}
