package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/zaziork/photocat-client/internal/engine"
	"github.com/zaziork/photocat-client/internal/models"
)

func newListCmd(app *App) *cobra.Command {
	var (
		page    int
		limit   int
		orderBy string
		desc    bool
		search  string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Fetch and print a page of the photo catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			rec := app.engine.Store().Snapshot()
			rec.Meta.Page = page
			if limit > 0 {
				rec.Meta.Limit = limit
			}
			rec.Meta.OrderBy = orderBy
			rec.Meta.OrderDir = models.OrderAscending
			if desc {
				rec.Meta.OrderDir = models.OrderDescending
			}
			rec.Meta.Search = search
			rec.Meta.Next = nil
			rec.Meta.Previous = nil

			if err := app.engine.FetchRecords(cmd.Context(), engine.GetRecordsOptions{Record: &rec}); err != nil {
				return err
			}

			printRecord(cmd, app.engine.Store().Snapshot(), app.engine.Store().AuthMeta())
			return nil
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&limit, "limit", 0, "rows per page (0 uses the configured default)")
	cmd.Flags().StringVar(&orderBy, "order", "", "column to order by")
	cmd.Flags().BoolVar(&desc, "desc", false, "order descending")
	cmd.Flags().StringVar(&search, "search", "", "tag search term")
	return cmd
}

func newSuggestCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "suggest <term>",
		Short: "Print tag autocomplete suggestions for a term",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tags, err := app.engine.TagSuggestions(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, tag := range tags {
				fmt.Fprintln(cmd.OutOrStdout(), tag)
			}
			return nil
		},
	}
}

func printRecord(cmd *cobra.Command, rec models.Record, auth models.AuthMeta) {
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "page %d (limit %d)", rec.Meta.Page, rec.Meta.Limit)
	if rec.Meta.Search != "" {
		fmt.Fprintf(out, ", search %q", rec.Meta.Search)
	}
	if rec.Meta.OrderBy != "" {
		dir := "asc"
		if rec.Meta.OrderDir == models.OrderDescending {
			dir = "desc"
		}
		fmt.Fprintf(out, ", ordered by %s %s", rec.Meta.OrderBy, dir)
	}
	if auth.IsAdmin {
		fmt.Fprint(out, " [admin]")
	}
	fmt.Fprintln(out)

	if len(rec.Results) == 0 {
		fmt.Fprintln(out, "no records")
		return
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tFILE\tFORMAT\tTAGS")
	for _, item := range rec.Results {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", item.ID, item.FileName, item.FileFormat, strings.Join(item.Tags, ", "))
	}
	_ = w.Flush()
}
