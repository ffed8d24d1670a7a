package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/Shaizy-S/AutoSentiment/internal/domain"
	"github.com/Shaizy-S/AutoSentiment/internal/httpapi"
)

func newCompareCmd(root *rootOptions) *cobra.Command {
	var (
		maxReviews int
		timeout    time.Duration
		languages  []string
		asJSON     bool
	)
	cmd := &cobra.Command{
		Use:   "compare PRODUCT PRODUCT [PRODUCT...]",
		Short: "Rank 2 to 5 products by aspect sentiment",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := root.open(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer application.Close()

			req := domain.ComparisonRequest{
				Products: args,
				Options:  domain.ComparisonOptions{MaxReviewsPerProduct: maxReviews, Timeout: timeout},
			}
			for _, l := range languages {
				req.Options.Languages = append(req.Options.Languages, domain.Language(l))
			}

			res, err := application.Compare(cmd.Context(), req)
			if err != nil {
				return err
			}
			if asJSON {
				return httpapi.EncodeResult(cmd.OutOrStdout(), res)
			}
			renderResult(cmd.OutOrStdout(), res)
			return nil
		},
	}
	cmd.Flags().IntVarP(&maxReviews, "max-reviews", "n", 0, "reviews analysed per product (0 uses the configured default)")
	cmd.Flags().DurationVarP(&timeout, "timeout", "t", 0, "overall deadline (0 uses the configured default)")
	cmd.Flags().StringSliceVarP(&languages, "lang", "l", nil, "languages to keep: hi, mr")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the API response instead of a table")
	return cmd
}
