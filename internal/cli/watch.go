package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentguard/agentguard-go/internal/model"
	"github.com/agentguard/agentguard-go/internal/spool"
	"github.com/agentguard/agentguard-go/internal/transport"
)

var (
	watchDir           string
	watchBatchSize     int
	watchFlushInterval time.Duration
)

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringVar(&watchDir, "dir", "", "Inbox directory of event JSON files (required)")
	watchCmd.Flags().IntVar(&watchBatchSize, "batch-size", 50, "Buffer length that triggers a flush")
	watchCmd.Flags().DurationVar(&watchFlushInterval, "flush-interval", time.Second, "Periodic flush interval")
	watchCmd.MarkFlagRequired("dir")
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch an inbox directory and ship event files as they appear",
	Long: "Runs until interrupted. Each *.json file dropped into the directory\n" +
		"is parsed as one execution event, enqueued for batch delivery, and\n" +
		"removed. Files present at startup are shipped first.",
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	batch := transport.NewBatch(transport.BatchConfig{
		APIURL:         rootAPIURL,
		APIKey:         rootAPIKey,
		FlushBatchSize: watchBatchSize,
		Timeout:        rootTimeout,
	})
	defer batch.Close(context.Background())

	ticker := time.NewTicker(watchFlushInterval)
	defer ticker.Stop()
	go func() {
		for {
			select {
			case <-ticker.C:
				batch.Flush(context.Background())
			case <-ctx.Done():
				return
			}
		}
	}()

	watcher := spool.NewWatcher(watchDir, func(ev model.ExecutionEvent) {
		batch.Enqueue(ev)
	}, nil)

	fmt.Printf("watching %s (interrupt to stop)\n", watchDir)
	return watcher.Run(ctx)
}
