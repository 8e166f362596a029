package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentguard/agentguard-go/internal/model"
	"github.com/agentguard/agentguard-go/internal/transport"
)

var verifyEventPath string

func init() {
	rootCmd.AddCommand(verifyCmd)
	verifyCmd.Flags().StringVar(&verifyEventPath, "event", "", "Path to an event JSON file (required)")
	verifyCmd.MarkFlagRequired("event")
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify a single event and print the verdict",
	Long: "Sends one execution event to the verification gateway and prints the\n" +
		"verdict as JSON. Exit code 1 if the request fails or the verdict\n" +
		"action is \"block\".",
	RunE: runVerify,
}

func runVerify(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(verifyEventPath)
	if err != nil {
		return fmt.Errorf("read event file: %w", err)
	}

	var ev model.ExecutionEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return fmt.Errorf("parse event file: %w", err)
	}

	direct := transport.NewDirect(transport.DirectConfig{
		APIURL:  rootAPIURL,
		APIKey:  rootAPIKey,
		Timeout: rootTimeout,
	})
	defer direct.Close()

	verdict, err := direct.Verify(context.Background(), ev)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(verdict, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))

	if verdict.Action == "block" {
		os.Exit(1)
	}
	return nil
}
