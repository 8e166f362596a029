package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentguard/agentguard-go/internal/spool"
	"github.com/agentguard/agentguard-go/internal/transport"
)

var (
	ingestFile string
	ingestKeep bool
)

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().StringVar(&ingestFile, "file", "", "Path to a JSONL journal of events (required)")
	ingestCmd.Flags().BoolVar(&ingestKeep, "keep", false, "Keep the journal file after a successful replay")
	ingestCmd.MarkFlagRequired("file")
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Replay a JSONL journal to the ingestion endpoint",
	Long: "Reads a journal written by the SDK spool (one event JSON per line),\n" +
		"sends all events as one batch, and removes the journal on success.\n" +
		"Events stay in the journal if delivery fails, so the command is safe\n" +
		"to retry.",
	RunE: runIngest,
}

func runIngest(cmd *cobra.Command, args []string) error {
	journal := spool.NewJournal(ingestFile)
	events, err := journal.ReadAll()
	if err != nil {
		return err
	}
	if len(events) == 0 {
		fmt.Println("journal is empty; nothing to send")
		return nil
	}

	batch := transport.NewBatch(transport.BatchConfig{
		APIURL:         rootAPIURL,
		APIKey:         rootAPIKey,
		FlushBatchSize: len(events) + 1, // flush once, explicitly
		Timeout:        rootTimeout,
	})
	ctx := context.Background()
	for _, ev := range events {
		batch.Enqueue(ev)
	}
	// Close performs the one delivery attempt; no deferred retry may run
	// after the journal decision below.
	batch.Close(ctx)

	if remaining := batch.Len(); remaining > 0 {
		return fmt.Errorf("delivery failed; %d of %d events not accepted (journal kept)", remaining, len(events))
	}

	if !ingestKeep {
		if err := journal.Clear(); err != nil {
			return err
		}
	}
	fmt.Printf("sent %d events\n", len(events))
	return nil
}
