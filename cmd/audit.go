package cmd

import (
	"encoding/json"
	"errors"
	"fmt"

	"ticket-ledger/config"
	"ticket-ledger/internal/services"

	"github.com/pocketbase/pocketbase/core"
	"github.com/spf13/cobra"
)

// newAuditCommand lists archived chains, or replays one and prints the
// audit report. A chain that fails the audit exits non-zero.
func newAuditCommand(app core.App, cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:          "audit-archive [chainId]",
		Short:        "List archived ledger chains or verify one of them",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, redisClient, err := openArchive(ctx, app, cfg)
			if err != nil {
				return err
			}
			if store == nil {
				return errors.New("no archive backend configured, set ARCHIVE_BACKEND")
			}
			if redisClient != nil {
				defer redisClient.Close()
			}

			out := cmd.OutOrStdout()
			if len(args) == 0 {
				chains, err := store.Chains(ctx)
				if err != nil {
					return err
				}
				for _, chainID := range chains {
					fmt.Fprintln(out, chainID)
				}
				return nil
			}

			report, err := services.AuditChain(ctx, store, args[0], cfg.Difficulty)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return err
			}
			if !report.Valid {
				return fmt.Errorf("chain %s failed audit: %s", report.ChainID, report.Problem)
			}
			return nil
		},
	}
}
