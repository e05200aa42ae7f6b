package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gustavop-dev/rainy-project/internal/credentials"
)

func newTokenCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage the bearer token sent with uploads",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "set <value>",
		Short: "Store the bearer token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token := strings.TrimSpace(args[0])
			if token == "" {
				return fmt.Errorf("rainyctl: token must not be empty")
			}
			if err := a.tokens.Set(cmd.Context(), credentials.TokenKey, token); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "token stored in %s\n", a.tokens.Path())
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove the stored bearer token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.tokens.Delete(cmd.Context(), credentials.TokenKey); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "token cleared")
			return nil
		},
	})
	return cmd
}
