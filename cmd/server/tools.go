package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/iliyamo/pos-gateway/internal/billing"
	"github.com/iliyamo/pos-gateway/internal/model"
	"github.com/iliyamo/pos-gateway/internal/utils"
)

// receiptCmd prints the receipt of an order read from a JSON file, with no
// backend involved.
func receiptCmd() *cobra.Command {
	var (
		file string
		opts billing.ReceiptOptions
	)
	cmd := &cobra.Command{
		Use:   "receipt",
		Short: "Render a receipt from an order JSON file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			var o model.Order
			if err := json.Unmarshal(raw, &o); err != nil {
				return fmt.Errorf("decode %s: %w", file, err)
			}
			opts.Location = time.Local
			_, err = fmt.Fprint(cmd.OutOrStdout(), billing.RenderReceipt(o, opts))
			return err
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "order JSON as returned by GET /orders/{id}")
	cmd.Flags().IntVar(&opts.Width, "width", 48, "receipt columns")
	cmd.Flags().StringVar(&opts.Title, "title", envOr("RESTAURANT_NAME", "Restaurant"), "restaurant name")
	cmd.Flags().StringVar(&opts.Glyph, "glyph", envOr("CURRENCY_GLYPH", "Rs."), "currency prefix")
	cmd.Flags().StringSliceVar(&opts.HeaderLines, "line", nil, "header line under the name (repeatable)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// tokenCmd mints a development access token.
func tokenCmd() *cobra.Command {
	var (
		secret, user, role, branch string
		perms                      []string
		ttl                        time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a development access token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if secret == "" {
				return fmt.Errorf("no secret: pass --secret or set JWT_SECRET")
			}
			tok, err := utils.NewAccessToken(secret, user, role, branch, perms, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), tok.Token)
			return err
		},
	}
	cmd.Flags().StringVar(&secret, "secret", os.Getenv("JWT_SECRET"), "signing secret")
	cmd.Flags().StringVar(&user, "user", "", "user id")
	cmd.Flags().StringVar(&role, "role", "", "role, e.g. waiter, cashier, manager")
	cmd.Flags().StringVar(&branch, "branch", "main", "branch the token is valid for")
	cmd.Flags().StringSliceVar(&perms, "perm", nil, "explicit capability (repeatable); overrides the role map")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("role")
	return cmd
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}
