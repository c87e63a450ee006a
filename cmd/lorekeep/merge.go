package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kittclouds/lorekeep/pkg/merge"
)

func mergeCmd() *cobra.Command {
	var selectNew, selectUpdate []string
	var all, dryRun, asJSON bool

	cmd := &cobra.Command{
		Use:   "merge <proposal.json>",
		Short: "Merge an extracted glossary into the active story",
		Long: `Classifies every proposed entry as new, update or skip against the active
story. Without selections nothing is written; pass --all or name entries with
--select-new / --select-update to apply them in one save.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readFileArg(cmd, args[0])
			if err != nil {
				return err
			}
			proposal, err := merge.ParseProposal(data)
			if err != nil {
				return err
			}

			lib, closeFn, err := getLibrary()
			if err != nil {
				return err
			}
			defer closeFn()

			c := lib.Classify(proposal)
			if all {
				selectNew = merge.SelectAll(c.New)
				selectUpdate = merge.SelectAll(c.Update)
			}

			if asJSON {
				if err := printJSON(cmd, c); err != nil {
					return err
				}
			} else {
				printClassification(cmd.OutOrStdout(), c)
			}

			if dryRun || (len(selectNew) == 0 && len(selectUpdate) == 0) {
				return nil
			}

			res, err := lib.ApplyMerge(c, selectNew, selectUpdate)
			fmt.Fprintf(cmd.OutOrStdout(), "Merged: %d added, %d updated, %d skipped\n", res.Added, res.Updated, res.Skipped)
			return err
		},
	}

	cmd.Flags().StringSliceVar(&selectNew, "select-new", nil, "new entries to add")
	cmd.Flags().StringSliceVar(&selectUpdate, "select-update", nil, "changed entries to overwrite")
	cmd.Flags().BoolVar(&all, "all", false, "select every new and changed entry")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "classify only")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the classification as JSON")
	return cmd
}

func printClassification(w io.Writer, c merge.Classification) {
	s := c.Summary()
	fmt.Fprintf(w, "%d new, %d update, %d skip\n", s.New, s.Update, s.Skip)
	for _, it := range c.New {
		fmt.Fprintf(w, "  + %s [%s] %s\n", it.Key, it.Type, truncate(it.Desc, 60))
	}
	for _, it := range c.Update {
		fmt.Fprintf(w, "  ~ %s [%s] %s\n", it.Key, it.Type, truncate(it.Desc, 60))
		fmt.Fprintf(w, "      was [%s] %s\n", it.OldType, truncate(it.OldDesc, 60))
	}
	for _, it := range c.Skip {
		fmt.Fprintf(w, "  = %s\n", it.Key)
	}
}
