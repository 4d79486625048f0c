package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/francisco-dev-ao/loja356-25-sub001/internal/domain/entity"
)

// CallbackAuditor lists the stored callbacks of a reference
type CallbackAuditor interface {
	ListCallbacks(ctx context.Context, reference string, params entity.PaginationParams) (*entity.PaginatedCallbacksResponse, error)
}

func callbacksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "callbacks <reference>",
		Short: "Print the webhook audit trail of a payment reference",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			page, _ := cmd.Flags().GetInt("page")
			limit, _ := cmd.Flags().GetInt("limit")
			asJSON, _ := cmd.Flags().GetBool("json")

			a, logger, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer logger.Sync()
			defer a.Close()

			return runCallbacks(cmd.Context(), cmd.OutOrStdout(), a.Audit, args[0],
				entity.PaginationParams{Page: page, Limit: limit}, asJSON)
		},
	}

	cmd.Flags().IntP("page", "p", entity.DefaultPage, "Page number")
	cmd.Flags().IntP("limit", "n", entity.DefaultPageSize, "Records per page")
	cmd.Flags().BoolP("json", "j", false, "Output as JSON")

	return cmd
}

func runCallbacks(ctx context.Context, out io.Writer, auditor CallbackAuditor, reference string, params entity.PaginationParams, asJSON bool) error {
	resp, err := auditor.ListCallbacks(ctx, reference, params)
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tRECEIVED\tSTATUS\tOUTCOME\tAPPLIED\tREVIEW\tSOURCE\tDETAIL")
	for _, r := range resp.Data {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%t\t%t\t%s\t%s\n",
			r.ID,
			r.ReceivedAt.UTC().Format(time.RFC3339),
			deref(r.ExtractedStatus),
			r.Outcome,
			r.AppliedSuccessfully,
			r.NeedsReview,
			r.SourceIP,
			deref(r.Detail))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	p := resp.Pagination
	fmt.Fprintf(out, "page %d/%d, %d callbacks for %s\n", p.CurrentPage, p.TotalPages, p.Total, resp.Reference)
	return nil
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}
