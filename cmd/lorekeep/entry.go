package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kittclouds/lorekeep/pkg/glossary"
)

func entryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entry",
		Short: "Manage glossary entries of the active story",
	}
	cmd.AddCommand(entryListCmd())
	cmd.AddCommand(entryGetCmd())
	cmd.AddCommand(entrySetCmd())
	cmd.AddCommand(entryDeleteCmd())
	cmd.AddCommand(entryClearCmd())
	cmd.AddCommand(entryTypesCmd())
	cmd.AddCommand(entryExportCmd())
	return cmd
}

func entryListCmd() *cobra.Command {
	var typeFilter string
	var grouped bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, closeFn, err := getLibrary()
			if err != nil {
				return err
			}
			defer closeFn()

			out := cmd.OutOrStdout()
			groups := lib.GroupedByType()

			if grouped {
				for _, typ := range sortedKeys(groups) {
					if typeFilter != "" && typ != strings.ToLower(typeFilter) {
						continue
					}
					fmt.Fprintf(out, "%s (%d)\n", typ, len(groups[typ]))
					for _, e := range groups[typ] {
						fmt.Fprintf(out, "  %s: %s\n", e.Name, truncate(e.Desc, 70))
					}
				}
				return nil
			}

			memory := lib.Entries()
			for _, name := range memory.Names() {
				e := memory[name]
				if typeFilter != "" && !strings.EqualFold(e.Type, typeFilter) {
					continue
				}
				fmt.Fprintf(out, "%-24s [%s] %s\n", name, e.Type, truncate(e.Desc, 60))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&typeFilter, "type", "t", "", "only entries of this type")
	cmd.Flags().BoolVarP(&grouped, "grouped", "g", false, "group entries by type")
	return cmd
}

func entryGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <name>",
		Short: "Show one entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, closeFn, err := getLibrary()
			if err != nil {
				return err
			}
			defer closeFn()

			e, ok := lib.Entry(args[0])
			if !ok {
				return fmt.Errorf("entry not found: %s", args[0])
			}
			return printJSON(cmd, e)
		},
	}
}

func entrySetCmd() *cobra.Command {
	var typ, desc string

	cmd := &cobra.Command{
		Use:   "set <name>",
		Short: "Add or replace an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, closeFn, err := getLibrary()
			if err != nil {
				return err
			}
			defer closeFn()

			return lib.SetEntry(args[0], typ, desc)
		},
	}

	cmd.Flags().StringVarP(&typ, "type", "t", "", "entry type (character, location, item, event, ...)")
	cmd.Flags().StringVarP(&desc, "desc", "d", "", "narrative description")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("desc")
	return cmd
}

func entryDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Remove an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, closeFn, err := getLibrary()
			if err != nil {
				return err
			}
			defer closeFn()

			return lib.DeleteEntry(args[0])
		},
	}
}

func entryClearCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every entry of the active story",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to clear without --yes")
			}
			lib, closeFn, err := getLibrary()
			if err != nil {
				return err
			}
			defer closeFn()

			return lib.ClearEntries()
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "confirm")
	return cmd
}

func entryTypesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List distinct entry types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, closeFn, err := getLibrary()
			if err != nil {
				return err
			}
			defer closeFn()

			for _, t := range lib.Types() {
				fmt.Fprintln(cmd.OutOrStdout(), t)
			}
			return nil
		},
	}
}

func entryExportCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the active story's entries as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, closeFn, err := getLibrary()
			if err != nil {
				return err
			}
			defer closeFn()

			data, err := lib.ExportEntries()
			if err != nil {
				return err
			}
			return writeOutput(cmd, output, data)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	return cmd
}

func sortedKeys(m map[string][]glossary.NamedEntry) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
