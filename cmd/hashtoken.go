package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"ticket-ledger/security"

	"github.com/spf13/cobra"
)

// newHashTokenCommand prints the bcrypt hash to put in ADMIN_TOKEN_HASH.
// The token is read from stdin when no argument is given.
func newHashTokenCommand() *cobra.Command {
	return &cobra.Command{
		Use:          "hash-admin-token [token]",
		Short:        "Print the ADMIN_TOKEN_HASH value for an admin token",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var token string
			if len(args) == 1 {
				token = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read token: %w", err)
				}
				token = strings.TrimSpace(line)
			}
			if token == "" {
				return errors.New("admin token must not be empty")
			}

			hash, err := security.HashToken(token)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
