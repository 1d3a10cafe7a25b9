package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/zakazai/ulin-grid/internal/shell"
)

func newShellCmd() *cobra.Command {
	var table string
	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Browse and edit tables interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			ctx := callerContext(context.Background(), cfg)
			session := shell.NewSession(store, cfg.GridOptions())
			defer session.Close()

			// Check if we're in interactive mode or piped input
			interactive := true
			if stat, err := os.Stdin.Stat(); err == nil && stat.Mode()&os.ModeCharDevice == 0 {
				interactive = false
			}

			out := cmd.OutOrStdout()
			if interactive {
				fmt.Fprintln(out, "ulin-grid shell")
				fmt.Fprintln(out, "Type 'help' for commands, 'exit' to quit")
			}
			if table != "" {
				if _, err := session.Exec(ctx, fmt.Sprintf("USE %q", table), out); err != nil {
					return err
				}
			}
			return shell.Run(ctx, session, os.Stdin, out, interactive)
		},
	}
	cmd.Flags().StringVarP(&table, "table", "t", "", "Table to open (name or id)")
	return cmd
}
