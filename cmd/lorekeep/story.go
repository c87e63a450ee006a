package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func storyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "story",
		Short: "Manage stories",
	}
	cmd.AddCommand(storyListCmd())
	cmd.AddCommand(storyCreateCmd())
	cmd.AddCommand(storyRenameCmd())
	cmd.AddCommand(storyDeleteCmd())
	cmd.AddCommand(storyUseCmd())
	cmd.AddCommand(storyStatsCmd())
	cmd.AddCommand(storyExportCmd())
	cmd.AddCommand(storyImportCmd())
	return cmd
}

func storyListCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stories, most recently updated first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, closeFn, err := getLibrary()
			if err != nil {
				return err
			}
			defer closeFn()

			stories := lib.Stories()
			if asJSON {
				return printJSON(cmd, stories)
			}

			out := cmd.OutOrStdout()
			active := lib.ActiveStoryID()
			for _, s := range stories {
				marker := " "
				if s.ID == active {
					marker = "*"
				}
				fmt.Fprintf(out, "%s %s  %-30s %4d entries  %s\n",
					marker, s.ID, truncate(s.Name, 30), len(s.Memory), s.Updated.Local().Format(time.DateTime))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func storyCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create [name]",
		Short: "Create a story and make it active",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, closeFn, err := getLibrary()
			if err != nil {
				return err
			}
			defer closeFn()

			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			id, err := lib.CreateStory(name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created story: %s\n", id)
			return nil
		},
	}
}

func storyRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <name>",
		Short: "Rename a story",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, closeFn, err := getLibrary()
			if err != nil {
				return err
			}
			defer closeFn()

			return lib.RenameStory(args[0], args[1])
		},
	}
}

func storyDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a story (the last one cannot be deleted)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, closeFn, err := getLibrary()
			if err != nil {
				return err
			}
			defer closeFn()

			if err := lib.DeleteStory(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted story: %s (active: %s)\n", args[0], lib.ActiveStoryID())
			return nil
		},
	}
}

func storyUseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "use <id>",
		Short: "Switch the active story",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, closeFn, err := getLibrary()
			if err != nil {
				return err
			}
			defer closeFn()

			return lib.SetActiveStory(args[0])
		},
	}
}

func storyStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats [id]",
		Short: "Show entry count and types of a story (default: active)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, closeFn, err := getLibrary()
			if err != nil {
				return err
			}
			defer closeFn()

			id := lib.ActiveStoryID()
			if len(args) == 1 {
				id = args[0]
			}
			stats, err := lib.StoryStats(id)
			if err != nil {
				return err
			}
			return printJSON(cmd, stats)
		},
	}
}

func storyExportCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export [id]",
		Short: "Export one story as JSON (default: active)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, closeFn, err := getLibrary()
			if err != nil {
				return err
			}
			defer closeFn()

			id := lib.ActiveStoryID()
			if len(args) == 1 {
				id = args[0]
			}
			data, err := lib.ExportStory(id)
			if err != nil {
				return err
			}
			return writeOutput(cmd, output, data)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	return cmd
}

func storyImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import a story exported with 'story export' (\"-\" reads stdin)",
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

			id, err := lib.ImportStory(data)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported story: %s\n", id)
			return nil
		},
	}
}
