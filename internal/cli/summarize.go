package cli

import (
	"github.com/spf13/cobra"

	"github.com/harun/engram/pkg/engine"
)

var summarizeSinceDays int

var summarizeCmd = &cobra.Command{
	Use:   "summarize <owner-id>",
	Short: "Summarize an owner's recent episodes",
	Args:  cobra.ExactArgs(1),
	RunE:  runSummarize,
}

func init() {
	summarizeCmd.Flags().IntVar(&summarizeSinceDays, "since-days", 0, "recency window in days (0 = configured default)")
	rootCmd.AddCommand(summarizeCmd)
}

func runSummarize(cmd *cobra.Command, args []string) error {
	eng, cleanup, err := buildEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	resp := eng.SummarizeMemory(cmd.Context(), engine.SummarizeRequest{
		OwnerID:   args[0],
		SinceDays: summarizeSinceDays,
	})
	return printJSON(resp)
}
