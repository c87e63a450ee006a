package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/kittclouds/lorekeep/internal/library"
)

func backupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Export or import every story at once",
	}
	cmd.AddCommand(backupExportCmd())
	cmd.AddCommand(backupImportCmd())
	return cmd
}

func backupExportCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the whole story document as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, closeFn, err := getLibrary()
			if err != nil {
				return err
			}
			defer closeFn()

			data, err := lib.ExportAll()
			if err != nil {
				return err
			}
			return writeOutput(cmd, output, data)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	return cmd
}

func backupImportCmd() *cobra.Command {
	var replace bool

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a backup, adding its stories (or replacing everything with --replace)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readFileArg(cmd, args[0])
			if err != nil {
				return err
			}

			lib, closeFn, err := getLibrary()
			if err != nil {
				return err
			}
			defer closeFn()

			mode := library.ImportMerge
			if replace {
				mode = library.ImportReplace
			}
			n, err := lib.ImportAll(data, mode)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d stories (%s)\n", n, mode)
			return nil
		},
	}

	cmd.Flags().BoolVar(&replace, "replace", false, "replace all stories instead of adding")
	return cmd
}

func historyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List retained versions of the story document (sqlite backend)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, closeFn, err := getLibrary()
			if err != nil {
				return err
			}
			defer closeFn()

			versions, err := lib.History()
			if err != nil {
				return err
			}
			if versions == nil {
				return fmt.Errorf("backend keeps no history")
			}

			out := cmd.OutOrStdout()
			for _, v := range versions {
				marker := " "
				if v.IsCurrent {
					marker = "*"
				}
				fmt.Fprintf(out, "%s %4d  %s  %d bytes\n",
					marker, v.Version, time.UnixMilli(v.ValidFrom).Format(time.DateTime), v.Size)
			}
			return nil
		},
	}
}

func restoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <version>",
		Short: "Restore the story document to a retained version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid version %q", args[0])
			}

			lib, closeFn, err := getLibrary()
			if err != nil {
				return err
			}
			defer closeFn()

			if err := lib.RestoreVersion(version); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored version %d\n", version)
			return nil
		},
	}
}
