package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/harun/engram/pkg/engine"
)

var (
	recallK         int
	recallSinceDays int
	recallGraph     bool
)

var recallCmd = &cobra.Command{
	Use:   "recall <owner-id> <query>...",
	Short: "Search memory with fused vector, fact, and graph retrieval",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runRecall,
}

func init() {
	recallCmd.Flags().IntVar(&recallK, "k", 0, "number of episodes to return (0 = configured default)")
	recallCmd.Flags().IntVar(&recallSinceDays, "since-days", 0, "recency window in days (0 = configured default)")
	recallCmd.Flags().BoolVar(&recallGraph, "graph", true, "include graph relationship paths")
	rootCmd.AddCommand(recallCmd)
}

func runRecall(cmd *cobra.Command, args []string) error {
	eng, cleanup, err := buildEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	resp := eng.SearchMemory(cmd.Context(), engine.SearchRequest{
		OwnerID:      args[0],
		Query:        strings.Join(args[1:], " "),
		K:            recallK,
		SinceDays:    recallSinceDays,
		IncludeGraph: recallGraph,
	})
	return printJSON(resp)
}
