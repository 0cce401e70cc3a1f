package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:          "leasebot",
		Short:        "WhatsApp leasing assistant",
		Long:         "Answers rental enquiries on WhatsApp with category and unit menus, and emails the owners a digest of what people asked about.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	root.AddCommand(
		serveCmd(),
		digestCmd(),
		catalogCmd(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
