package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hopeland/leasebot/internal/catalog"
	"github.com/hopeland/leasebot/internal/compose"
	"github.com/hopeland/leasebot/internal/config"
)

func catalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the listing catalog",
	}
	cmd.AddCommand(catalogCheckCmd())
	return cmd
}

func catalogCheckCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the catalog and report duplicate listing ids",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if path != "" {
				cfg.CatalogPath = path
			}
			cat, err := loadCatalog(cfg)
			if err != nil {
				return err
			}
			printCatalog(cmd, cat)
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "file", "", "Catalog YAML (defaults to CATALOG_PATH or the built-in catalog)")
	return cmd
}

func printCatalog(cmd *cobra.Command, cat *catalog.Catalog) {
	out := cmd.OutOrStdout()
	for _, c := range cat.Categories() {
		fmt.Fprintf(out, "%-10s %-12s %2d listings  keywords: %s\n", c.Key, c.Title, len(c.Listings), strings.Join(c.Keywords, ", "))
		if len(c.Listings) > compose.MaxMenuRows {
			fmt.Fprintf(out, "  only the first %d appear in the menu\n", compose.MaxMenuRows)
		}
		for _, l := range c.Listings {
			if len(l.Images) == 0 {
				fmt.Fprintf(out, "  %s has no images\n", l.ID)
			}
		}
	}
	fmt.Fprintf(out, "%d unique listings\n", cat.Size())
	if dups := cat.Duplicates(); len(dups) > 0 {
		fmt.Fprintf(out, "duplicate ids (first occurrence wins): %s\n", strings.Join(dups, ", "))
	}
}
