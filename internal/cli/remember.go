package cli

import (
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/harun/engram/pkg/engine"
)

var (
	rememberChannel string
	rememberThread  string
)

var rememberCmd = &cobra.Command{
	Use:   "remember <owner-id> <text>...",
	Short: "Extract and store memories from a piece of text",
	Long: `Run the write pipeline on a piece of text: extract facts, an episodic
summary, and entity relationships, then persist them across the
key-value, vector, and graph stores.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runRemember,
}

func init() {
	rememberCmd.Flags().StringVar(&rememberChannel, "channel", "cli", "source channel recorded on the episode")
	rememberCmd.Flags().StringVar(&rememberThread, "thread", "", "thread id recorded on the episode")
	rootCmd.AddCommand(rememberCmd)
}

func runRemember(cmd *cobra.Command, args []string) error {
	eng, cleanup, err := buildEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	resp := eng.WriteMemory(cmd.Context(), engine.WriteRequest{
		OwnerID:   args[0],
		Text:      strings.Join(args[1:], " "),
		Channel:   rememberChannel,
		ThreadID:  rememberThread,
		Timestamp: time.Now(),
	})
	return printJSON(resp)
}
