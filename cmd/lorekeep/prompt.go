package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kittclouds/lorekeep/internal/config"
	"github.com/kittclouds/lorekeep/pkg/matcher"
	"github.com/kittclouds/lorekeep/pkg/prompt"
)

func matchCmd() *cobra.Command {
	var file string
	var spans bool

	cmd := &cobra.Command{
		Use:   "match [text]",
		Short: "List glossary names that occur in text, in order of first occurrence",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args, file)
			if err != nil {
				return err
			}

			lib, closeFn, err := getLibrary()
			if err != nil {
				return err
			}
			defer closeFn()

			if spans {
				return printJSON(cmd, matcher.New(lib.Keys()).Scan(text))
			}
			for _, e := range lib.MatchedEntries(lib.FindMatches(text)) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s [%s]\n", e.Name, e.Type)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "read text from file (\"-\" for stdin)")
	cmd.Flags().BoolVar(&spans, "spans", false, "print every occurrence as {from, to, key} byte offsets")
	return cmd
}

func promptCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "prompt [story text]",
		Short: "Build a generation prompt with the matching glossary entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args, file)
			if err != nil {
				return err
			}

			lib, closeFn, err := getLibrary()
			if err != nil {
				return err
			}
			defer closeFn()

			instruction := config.FlagOrViperString(cmd, "instruction", "prompt.instruction")
			out, names, err := lib.BuildPrompt(text, instruction)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)

			if config.FlagOrViperBool(cmd, "stats", "prompt.stats") {
				m := prompt.Measure(out)
				fmt.Fprintf(cmd.ErrOrStderr(), "%d entries matched, %d chars, ~%d tokens\n", len(names), m.Chars, m.Tokens)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "read story from file (\"-\" for stdin)")
	cmd.Flags().StringP("instruction", "i", "", "instruction (default: prompt.instruction, else continue the story)")
	cmd.Flags().Bool("stats", false, "print match count and size estimate to stderr")
	return cmd
}

func extractPromptCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "extract-prompt [story text]",
		Short: "Build the request that asks a model to extract a glossary from a story",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args, file)
			if err != nil {
				return err
			}
			types := config.FlagOrViperStringSlice(cmd, "types", "prompt.types")
			fmt.Fprintln(cmd.OutOrStdout(), prompt.BuildExtraction(text, types))
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "read story from file (\"-\" for stdin)")
	cmd.Flags().StringSliceP("types", "t", nil, "entity types to extract (default: prompt.types, else character,location,item,event)")
	return cmd
}
