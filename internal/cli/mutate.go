package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/zaziork/photocat-client/internal/api"
	"github.com/zaziork/photocat-client/internal/engine"
)

func newTagCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tag",
		Short: "Add or remove tags on a catalog item",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <id> <tag>...",
			Short: "Add one or more tags to an item",
			Args:  cobra.MinimumNArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseItemID(args[0])
				if err != nil {
					return err
				}
				return runMutation(cmd, app, engine.UpdateInput{
					ItemID: id,
					Kind:   engine.MutationAddTags,
					Tags:   args[1:],
				})
			},
		},
		&cobra.Command{
			Use:   "rm <id> <tag>",
			Short: "Remove a tag from an item",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseItemID(args[0])
				if err != nil {
					return err
				}
				return runMutation(cmd, app, engine.UpdateInput{
					ItemID: id,
					Kind:   engine.MutationRemoveTag,
					Tags:   []string{args[1]},
				})
			},
		},
	)

	return cmd
}

func newRotateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "rotate <id> <degrees>",
		Short: "Rotate an item's image by the given degrees",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseItemID(args[0])
			if err != nil {
				return err
			}
			degrees, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid degrees %q", args[1])
			}
			return runMutation(cmd, app, engine.UpdateInput{
				ItemID:          id,
				Kind:            engine.MutationRotateImage,
				RotationDegrees: degrees,
			})
		},
	}
}

func newReprocessCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "reprocess <id>",
		Short: "Trigger server-side reprocessing covering an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseItemID(args[0])
			if err != nil {
				return err
			}
			return runMutation(cmd, app, engine.UpdateInput{
				ItemID: id,
				Kind:   engine.MutationReprocess,
			})
		},
	}
}

// runMutation fetches the current page first so the item precondition runs
// against live state, then applies the mutation synchronously.
func runMutation(cmd *cobra.Command, app *App, in engine.UpdateInput) error {
	if err := app.engine.FetchRecords(cmd.Context(), engine.GetRecordsOptions{}); err != nil {
		return err
	}
	if err := app.engine.ApplyMutation(cmd.Context(), in); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), app.engine.Status().Text)
	return nil
}

func newProcessCmd(app *App) *cobra.Command {
	var flags api.ProcessFlags

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Trigger server-side batch photo processing",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.engine.ProcessPhotos(cmd.Context(), flags); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), app.engine.Status().Text)
			return nil
		},
	}

	cmd.Flags().BoolVar(&flags.Scan, "scan", false, "scan origin directories for new files")
	cmd.Flags().BoolVar(&flags.Retag, "retag", false, "re-copy tags from origin to processed images")
	cmd.Flags().BoolVar(&flags.CleanDB, "clean-db", false, "remove orphaned records")
	return cmd
}

func newReplaceCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "replace <search-tag> <replacement-tag>",
		Short: "Replace a tag across every matching record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			touched, err := app.engine.SearchAndReplace(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "updated %d item(s)\n", touched)
			return nil
		},
	}
}

func newPruneCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Remove orphaned records and tags server-side",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.engine.ProcessPhotos(cmd.Context(), api.ProcessFlags{CleanDB: true}); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), app.engine.Status().Text)
			return nil
		},
	}
}

func parseItemID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid item id %q", raw)
	}
	return id, nil
}
