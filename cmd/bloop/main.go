package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thomascherickal/bloop.ai/pkg/config"
	"github.com/thomascherickal/bloop.ai/pkg/log"
	"github.com/thomascherickal/bloop.ai/pkg/metrics"
	"github.com/thomascherickal/bloop.ai/pkg/repostore"
	"github.com/thomascherickal/bloop.ai/pkg/types"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "bloop",
	Short: "bloop - incremental code-search indexer",
	Long: `bloop keeps a full-text search index and a vector-embedding store
coherent with repository working copies, re-indexing only what
actually changed between passes.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"bloop version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("config", "", "Path to the YAML config file")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(repoCmd)
	rootCmd.AddCommand(statusCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Setup(logLevel, logJSON, nil)
}

// loadConfig layers the config file under the logging flags: the file
// drives the logger unless a flag was given explicitly.
func loadConfig(_ *cobra.Command) (config.Config, error) {
	flags := rootCmd.PersistentFlags()

	path, _ := flags.GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}

	if flags.Changed("log-level") {
		cfg.Log.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-json") {
		cfg.Log.JSON, _ = flags.GetBool("log-json")
	}
	log.Setup(cfg.Log.Level, cfg.Log.JSON, nil)

	return cfg, nil
}

var indexCmd = &cobra.Command{
	Use:   "index [repo-ref...]",
	Short: "Run an indexing pass over registered repositories",
	Long: `Run one indexing pass. With no arguments every registered repository
is indexed; otherwise only the named refs are.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		if cfg.Metrics.Addr != "" {
			go func() {
				mux := http.NewServeMux()
				mux.Handle("/metrics", metrics.Handler())
				if err := http.ListenAndServe(cfg.Metrics.Addr, mux); err != nil {
					log.WithComponent("metrics").Error().Err(err).Msg("metrics server failed")
				}
			}()
		}

		return runIndex(cmd.Context(), cfg, args)
	},
}

var repoCmd = &cobra.Command{
	Use:   "repo",
	Short: "Manage registered repositories",
}

var repoAddCmd = &cobra.Command{
	Use:   "add PATH",
	Short: "Register a repository working copy",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		diskPath, err := filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", args[0], err)
		}

		branches, _ := cmd.Flags().GetStringSlice("branch")

		store, err := openRegistry(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		repo := &types.Repository{
			Ref:      types.RepoRef("local/" + diskPath),
			Name:     filepath.Base(diskPath),
			DiskPath: diskPath,
			Branches: branches,
		}
		if err := store.Put(repo); err != nil {
			return err
		}

		fmt.Printf("Registered %s\n", repo.Ref)
		return nil
	},
}

var repoRemoveCmd = &cobra.Command{
	Use:   "remove REF",
	Short: "Retire a repository: registry entry, caches and documents",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return runRemove(cmd.Context(), cfg, types.RepoRef(args[0]))
	},
}

var repoListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered repositories",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		store, err := openRegistry(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		repos, err := store.List()
		if err != nil {
			return err
		}

		for _, repo := range repos {
			fmt.Printf("%s\t%s\t%s\n", repo.Ref, repo.DiskPath, repo.LastIndexStatus)
		}
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show indexing status per repository",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		store, err := openRegistry(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		repos, err := store.List()
		if err != nil {
			return err
		}

		if len(repos) == 0 {
			fmt.Println("No repositories registered.")
			return nil
		}

		for _, repo := range repos {
			branches := strings.Join(repo.Branches, ",")
			if branches == "" {
				branches = "-"
			}
			fmt.Printf("%-40s %-10s branches=%s\n", repo.Ref, repo.LastIndexStatus, branches)
		}
		return nil
	},
}

func openRegistry(cfg config.Config) (*repostore.Store, error) {
	if err := os.MkdirAll(cfg.IndexDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create index dir: %w", err)
	}
	return repostore.Open(cfg.IndexDir)
}

func init() {
	repoAddCmd.Flags().StringSlice("branch", []string{"main"}, "Branch the repository is indexed on (repeatable)")
	repoCmd.AddCommand(repoAddCmd)
	repoCmd.AddCommand(repoRemoveCmd)
	repoCmd.AddCommand(repoListCmd)
}
