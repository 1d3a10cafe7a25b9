package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zakazai/ulin-grid/internal/storage"
	"github.com/zakazai/ulin-grid/internal/types"
)

func newSeedCmd() *cobra.Command {
	var (
		workspace string
		table     string
		columns   []string
		rows      int
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create a table filled with synthetic rows",
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

			ws, err := store.CreateWorkspace(ctx, workspace)
			if err != nil {
				return fmt.Errorf("create workspace: %w", err)
			}
			t, err := store.CreateDefaultTable(ctx, ws.ID, table)
			if err != nil {
				return fmt.Errorf("create table: %w", err)
			}

			for _, def := range columns {
				name, kind, _ := strings.Cut(def, ":")
				colType := types.ColumnText
				if kind != "" {
					if colType, err = types.ParseColumnType(kind); err != nil {
						return err
					}
				}
				if _, err := store.AddColumn(ctx, t.ID, name, colType); err != nil {
					return fmt.Errorf("add column %s: %w", name, err)
				}
			}

			inserted := 0
			if rows > 0 {
				inserted, err = store.AddFakeRows(ctx, t.ID, rows)
				if err != nil {
					return fmt.Errorf("added %d of %d rows: %w", inserted, rows, err)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created table %s (%s) with %d rows\n", t.Name, t.ID, inserted+storage.DefaultRows)
			return nil
		},
	}
	cmd.Flags().StringVar(&workspace, "workspace", "Demo", "Workspace name")
	cmd.Flags().StringVar(&table, "table", "Demo", "Table name")
	cmd.Flags().StringSliceVar(&columns, "column", nil, "Extra column as name[:text|number], repeatable")
	cmd.Flags().IntVar(&rows, "rows", 1000, "Synthetic rows to add")
	return cmd
}
