package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	osfs "github.com/hack-pad/hackpadfs/os"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kittclouds/lorekeep/internal/config"
	"github.com/kittclouds/lorekeep/internal/library"
	"github.com/kittclouds/lorekeep/internal/logutil"
	"github.com/kittclouds/lorekeep/internal/store"
)

const dbFileName = "lorekeep.db"

var (
	cfgFile string
	logger  = logutil.Discard()
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "lorekeep",
		Short:        "Story glossaries and prompt assembly for long-form fiction",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Init(viper.GetViper(), cfgFile); err != nil {
				return err
			}
			l, err := logutil.LoggerFromViper()
			if err != nil {
				return err
			}
			logger = l
			return nil
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default ~/.lorekeep/config.yaml)")
	pf.String("data-dir", "", "data directory (default ~/.lorekeep)")
	pf.String("backend", "", "storage backend: sqlite|fs|memory")
	pf.String("storage-key", "", "storage key of the story document")
	pf.Int("quota-bytes", config.DefaultQuotaBytes, "reject documents larger than this (0 = unlimited)")
	pf.String("log-level", "", "logging level: debug|info|warn|error")
	pf.String("log-format", "text", "logging format: text|json")
	pf.Bool("log-add-source", false, "include source file:line in logs")

	_ = viper.BindPFlag("data_dir", pf.Lookup("data-dir"))
	_ = viper.BindPFlag("backend", pf.Lookup("backend"))
	_ = viper.BindPFlag("storage.key", pf.Lookup("storage-key"))
	_ = viper.BindPFlag("storage.quota_bytes", pf.Lookup("quota-bytes"))
	_ = viper.BindPFlag("logging.level", pf.Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", pf.Lookup("log-format"))
	_ = viper.BindPFlag("logging.add_source", pf.Lookup("log-add-source"))

	cmd.AddCommand(storyCmd())
	cmd.AddCommand(entryCmd())
	cmd.AddCommand(matchCmd())
	cmd.AddCommand(promptCmd())
	cmd.AddCommand(extractPromptCmd())
	cmd.AddCommand(mergeCmd())
	cmd.AddCommand(backupCmd())
	cmd.AddCommand(historyCmd())
	cmd.AddCommand(restoreCmd())

	return cmd
}

// openBackend builds the configured key-value backend.
func openBackend(s config.Settings) (store.Storer, error) {
	switch s.Backend {
	case config.BackendMemory:
		return store.NewMemStore(), nil

	case config.BackendFS:
		abs, err := filepath.Abs(s.DataDir)
		if err != nil {
			return nil, err
		}
		if err := os.MkdirAll(abs, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		fsys := osfs.NewFS()
		dir, err := fsys.FromOSPath(abs)
		if err != nil {
			return nil, fmt.Errorf("resolve data dir: %w", err)
		}
		return store.NewFSStore(fsys, dir)

	default:
		if err := os.MkdirAll(s.DataDir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		db, err := store.NewSQLiteStoreWithDSN(filepath.Join(s.DataDir, dbFileName))
		if err != nil {
			return nil, err
		}
		if s.KeepVersions > 0 {
			db.SetKeepVersions(s.KeepVersions)
		}
		return db, nil
	}
}

// getLibrary opens the library on the configured backend. The returned
// close func releases the backend.
func getLibrary() (*library.Library, func(), error) {
	settings, err := config.SettingsFromViper()
	if err != nil {
		return nil, nil, err
	}
	backend, err := openBackend(settings)
	if err != nil {
		return nil, nil, err
	}
	closer := func() { _ = backend.Close() }

	docs := store.NewDocumentStore(backend,
		store.WithKey(settings.Key),
		store.WithQuota(settings.QuotaBytes),
		store.WithLogger(logger),
	)
	lib, err := library.Open(docs, library.WithLogger(logger))
	if err != nil {
		// Still usable; the next successful write persists the repair.
		logger.Warn("library_open_not_durable", "error", err.Error())
	}
	logger.Debug("library_opened", "backend", settings.Backend, "key", settings.Key, "stories", lib.Count())
	return lib, closer, nil
}

// readInput takes text from --file ("-" for stdin), then args, then stdin.
func readInput(cmd *cobra.Command, args []string, file string) (string, error) {
	switch {
	case file == "-":
		b, err := io.ReadAll(cmd.InOrStdin())
		return string(b), err
	case file != "":
		b, err := os.ReadFile(file)
		return string(b), err
	case len(args) > 0:
		return strings.Join(args, " "), nil
	default:
		b, err := io.ReadAll(cmd.InOrStdin())
		return string(b), err
	}
}

func readFileArg(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}

// writeOutput writes data to path, or stdout when path is empty.
func writeOutput(cmd *cobra.Command, path string, data []byte) error {
	if path == "" {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func printJSON(cmd *cobra.Command, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(b))
	return err
}

func truncate(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
