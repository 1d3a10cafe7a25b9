package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zakazai/ulin-grid/internal/export"
	"github.com/zakazai/ulin-grid/internal/grid"
	"github.com/zakazai/ulin-grid/internal/types"
)

func newExportCmd() *cobra.Command {
	var (
		search string
		sorts  []string
	)
	cmd := &cobra.Command{
		Use:   "export <table-id> <file.xlsx>",
		Short: "Export a table view to an Excel workbook",
		Args:  cobra.ExactArgs(2),
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

			c := grid.New(store, args[0], cfg.GridOptions())
			defer c.Close()
			if err := c.Open(ctx); err != nil {
				return err
			}

			keys, err := sortKeys(c.Table().Columns, sorts)
			if err != nil {
				return err
			}
			c.SetSearchTerm(search)
			c.SetSort(keys)
			if err := c.Flush(ctx); err != nil {
				return err
			}

			f, err := os.Create(args[1])
			if err != nil {
				return err
			}
			n, err := export.View(ctx, c, f)
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d rows to %s\n", n, args[1])
			return nil
		},
	}
	cmd.Flags().StringVar(&search, "search", "", "Only rows containing this text")
	cmd.Flags().StringSliceVar(&sorts, "sort", nil, "Sort key as column[:asc|desc], repeatable")
	return cmd
}

// sortKeys resolves "column[:direction]" terms against the table columns.
func sortKeys(cols types.Columns, terms []string) ([]types.SortKey, error) {
	keys := make([]types.SortKey, 0, len(terms))
	for _, term := range terms {
		name, dir, _ := strings.Cut(term, ":")
		col, ok := cols.ByName(name)
		if !ok {
			return nil, types.Validationf("unknown column %q", name)
		}
		key := types.SortKey{ColumnID: col.ID, Direction: types.Asc}
		switch strings.ToLower(dir) {
		case "", "asc":
		case "desc":
			key.Direction = types.Desc
		default:
			return nil, types.Validationf("invalid sort direction %q", dir)
		}
		keys = append(keys, key)
	}
	return keys, nil
}
