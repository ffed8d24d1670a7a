package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Shaizy-S/AutoSentiment/internal/app"
)

func newIngestCmd(root *rootOptions) *cobra.Command {
	var csvPath string
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Load a review CSV into the SQL review store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := app.OpenInput(csvPath)
			if err != nil {
				return err
			}
			defer in.Close()

			application, err := root.open(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer application.Close()

			n, err := application.Ingest(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d reviews stored\n", color.GreenString("ok"), n)
			return nil
		},
	}
	cmd.Flags().StringVar(&csvPath, "csv", "", "review CSV to load (- reads stdin)")
	_ = cmd.MarkFlagRequired("csv")
	return cmd
}
