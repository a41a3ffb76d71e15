package cli

import (
	"github.com/spf13/cobra"

	"github.com/harun/engram/pkg/engine"
)

var (
	forgetKeys       []string
	forgetEntities   []string
	forgetPredicates []string
	forgetHard       bool
)

var forgetCmd = &cobra.Command{
	Use:   "forget <owner-id>",
	Short: "Redact or delete stored memories",
	Long: `Remove memories for an owner. Facts are deleted by key, entities are
detached and deleted from the graph, and predicate edges are removed
from the owner's subgraph. Episodes are redacted by default; pass
--hard to purge them together with their vectors.`,
	Args: cobra.ExactArgs(1),
	RunE: runForget,
}

func init() {
	forgetCmd.Flags().StringArrayVar(&forgetKeys, "key", nil, "fact key to delete (repeatable)")
	forgetCmd.Flags().StringArrayVar(&forgetEntities, "entity", nil, "entity name to delete (repeatable)")
	forgetCmd.Flags().StringArrayVar(&forgetPredicates, "predicate", nil, "predicate whose edges to delete (repeatable)")
	forgetCmd.Flags().BoolVar(&forgetHard, "hard", false, "hard-delete episodes instead of redacting")
	rootCmd.AddCommand(forgetCmd)
}

func runForget(cmd *cobra.Command, args []string) error {
	eng, cleanup, err := buildEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	resp := eng.ForgetMemory(cmd.Context(), engine.ForgetRequest{
		OwnerID:    args[0],
		Keys:       forgetKeys,
		Entities:   forgetEntities,
		Predicates: forgetPredicates,
		HardDelete: forgetHard,
	})
	return printJSON(resp)
}
