package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/bitcommons/repover/internal/cache"
	"github.com/bitcommons/repover/internal/config"
	"github.com/bitcommons/repover/internal/gitcheck"
	"github.com/bitcommons/repover/internal/manifest"
	"github.com/bitcommons/repover/internal/rpc"
	"github.com/bitcommons/repover/internal/utils"
	"github.com/bitcommons/repover/pkg/version"
)

var (
	cfgFile string
	verbose bool
	log     *utils.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "repover",
	Short: "Manage multi-repository version manifests",
	Long: `Repover works with a versions manifest that records, per repository,
the released version, its git tag, an optional pinned commit, and the
repositories it requires.

It validates manifests, computes dependency-respecting build orders,
verifies tags against local clones, and queries a running node over
JSON-RPC for status diagnostics.`,
	Version:       version.Short(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.repover/config.yaml)")
	rootCmd.PersistentFlags().StringP("manifest", "m", config.DefaultManifest, "Path to the versions manifest")
	rootCmd.PersistentFlags().StringP("workspace", "w", config.DefaultWorkspace, "Directory holding local repository clones")
	rootCmd.PersistentFlags().String("rpc-addr", config.DefaultRPCAddr, "Node JSON-RPC address (host:port)")
	rootCmd.PersistentFlags().Bool("no-cache", false, "Disable the RPC snapshot cache")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	// Bind flags to viper
	_ = viper.BindPFlag("manifest", rootCmd.PersistentFlags().Lookup("manifest"))
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("rpc.addr", rootCmd.PersistentFlags().Lookup("rpc-addr"))

	showCmd.Flags().StringP("format", "f", "toml", "Output format: toml, json, or yaml")
	showCmd.Flags().StringP("output", "o", "", "Write to a file instead of stdout")
	statusCmd.Flags().Bool("cached", false, "Fall back to the last cached status when the node is unreachable")
	syncCmd.Flags().Duration("interval", 2*time.Second, "Polling interval")

	// Add subcommands
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(orderCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(chainCmd)
	rootCmd.AddCommand(peersCmd)
	rootCmd.AddCommand(networkCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(tagsCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(utils.ExpandPath(cfgFile))
	}
}

// setup loads the configuration and initializes the logger.
func setup(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logLevel := cfg.Logging.Level
	if verbose {
		logLevel = "debug"
	}
	log = utils.NewLogger(utils.LoggerOptions{
		Level:   logLevel,
		Format:  cfg.Logging.Format,
		Verbose: verbose,
	})

	if noCache, _ := cmd.Flags().GetBool("no-cache"); noCache {
		cfg.Cache.Enabled = false
	}
	return cfg, nil
}

// signalContext returns a context cancelled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func loadManifest(cfg *config.Config) (*manifest.VersionsManifest, error) {
	return manifest.NewLoader().Load(utils.ExpandPath(cfg.Manifest))
}

// newRPCClient builds the node client, attaching the snapshot cache when
// enabled. The returned closer releases the cache.
func newRPCClient(cfg *config.Config) (*rpc.Client, func(), error) {
	opts := []rpc.Option{
		rpc.WithTimeout(cfg.RPC.Timeout),
		rpc.WithMaxRetries(cfg.RPC.MaxRetries),
	}
	closer := func() {}

	if cfg.Cache.Enabled {
		store, err := cache.NewBadgerCache(cache.Options{Directory: utils.ExpandPath(cfg.Cache.Directory)})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open snapshot cache: %w", err)
		}
		opts = append(opts, rpc.WithSnapshots(store, cfg.Cache.TTL))
		closer = func() { _ = store.Close() }
	}

	return rpc.NewClient(cfg.RPC.Addr, log, opts...), closer, nil
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the versions manifest",
	Long: `Checks every version record for a well-formed X.Y.Z version, verifies
that all required repositories are defined, and detects circular
dependencies. All problems are reported, not just the first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := setup(cmd)
		if err != nil {
			return err
		}

		m, err := loadManifest(cfg)
		if err != nil {
			return err
		}

		result := m.Validate()
		for _, w := range result.Warnings {
			fmt.Printf("warning: %s\n", w)
		}
		for _, e := range result.Errors {
			fmt.Printf("error: %s\n", e)
		}
		if !result.IsValid() {
			return fmt.Errorf("manifest %s is invalid: %d error(s)", cfg.Manifest, len(result.Errors))
		}

		fmt.Printf("manifest %s is valid: %d repositories\n", cfg.Manifest, len(m.Versions))
		return nil
	},
}

var orderCmd = &cobra.Command{
	Use:   "order",
	Short: "Print the dependency-respecting build order",
	Long: `Computes an order in which the repositories can be built so that every
repository comes after everything it requires. The manifest is validated
first; an invalid manifest aborts the computation.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := setup(cmd)
		if err != nil {
			return err
		}

		m, err := loadManifest(cfg)
		if err != nil {
			return err
		}

		if result := m.Validate(); !result.IsValid() {
			for _, e := range result.Errors {
				fmt.Printf("error: %s\n", e)
			}
			return fmt.Errorf("manifest %s is invalid: %d error(s)", cfg.Manifest, len(result.Errors))
		}

		order, err := m.BuildOrder()
		if err != nil {
			return err
		}
		for i, name := range order {
			fmt.Printf("%d. %s\n", i+1, name)
		}
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show [repo]",
	Short: "Print the parsed manifest",
	Long: `Loads the manifest and re-encodes it in the requested format, either
whole or restricted to one repository's record. With --output the result
is written to a file, which also converts between manifest encodings.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := setup(cmd)
		if err != nil {
			return err
		}

		m, err := loadManifest(cfg)
		if err != nil {
			return err
		}

		if len(args) == 1 {
			rv, ok := m.Versions[args[0]]
			if !ok {
				return fmt.Errorf("repository '%s' is not defined in %s", args[0], cfg.Manifest)
			}
			m = &manifest.VersionsManifest{
				Versions: map[string]manifest.RepoVersion{args[0]: rv},
				Metadata: m.Metadata,
			}
		}

		format, _ := cmd.Flags().GetString("format")
		data, err := manifest.NewLoader().Encode(m, "."+strings.ToLower(format))
		if err != nil {
			return err
		}

		if out, _ := cmd.Flags().GetString("output"); out != "" {
			out = utils.ExpandPath(out)
			if err := utils.EnsureDir(out); err != nil {
				return err
			}
			return os.WriteFile(out, data, 0644)
		}
		fmt.Print(string(data))
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show node status",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := setup(cmd)
		if err != nil {
			return err
		}
		ctx, cancel := signalContext()
		defer cancel()

		client, closer, err := newRPCClient(cfg)
		if err != nil {
			return err
		}
		defer closer()

		status, err := client.Status(ctx)
		if err != nil {
			cached, _ := cmd.Flags().GetBool("cached")
			if !cached {
				return err
			}
			snap, snapErr := client.SnapshotStatus(ctx)
			if snapErr != nil {
				return errors.Join(err, snapErr)
			}
			log.Warn().Str("addr", client.Addr()).Msg("node unreachable, showing cached status")
			printStatus(snap, true)
			return nil
		}

		printStatus(status, false)
		return nil
	},
}

func printStatus(status *rpc.NodeStatus, cached bool) {
	suffix := ""
	if cached {
		suffix = " (cached)"
	}
	fmt.Printf("network: %s%s\n", status.Network, suffix)
	fmt.Printf("height:  %d\n", status.Height)
	fmt.Printf("peers:   %d\n", status.Peers)
	fmt.Printf("version: %s\n", status.Version)
	fmt.Printf("uptime:  %s\n", time.Duration(status.UptimeSeconds)*time.Second)
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Show node health",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := setup(cmd)
		if err != nil {
			return err
		}
		ctx, cancel := signalContext()
		defer cancel()

		client, closer, err := newRPCClient(cfg)
		if err != nil {
			return err
		}
		defer closer()

		health, err := client.Health(ctx)
		if err != nil {
			return err
		}

		if health.Healthy {
			fmt.Println("node is healthy")
		} else {
			fmt.Println("node is unhealthy")
		}
		for subsystem, state := range health.Details {
			fmt.Printf("  %s: %s\n", subsystem, state)
		}
		if !health.Healthy {
			return errors.New("node reported unhealthy")
		}
		return nil
	},
}

var chainCmd = &cobra.Command{
	Use:   "chain",
	Short: "Show best chain info",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := setup(cmd)
		if err != nil {
			return err
		}
		ctx, cancel := signalContext()
		defer cancel()

		client, closer, err := newRPCClient(cfg)
		if err != nil {
			return err
		}
		defer closer()

		info, err := client.ChainInfo(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("height:     %d\n", info.Height)
		fmt.Printf("best block: %s\n", info.BestBlockHash)
		fmt.Printf("difficulty: %g\n", info.Difficulty)
		return nil
	},
}

var peersCmd = &cobra.Command{
	Use:   "peers",
	Short: "List connected peers",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := setup(cmd)
		if err != nil {
			return err
		}
		ctx, cancel := signalContext()
		defer cancel()

		client, closer, err := newRPCClient(cfg)
		if err != nil {
			return err
		}
		defer closer()

		peers, err := client.Peers(ctx)
		if err != nil {
			return err
		}

		if len(peers) == 0 {
			fmt.Println("no peers connected")
			return nil
		}
		for _, p := range peers {
			fmt.Printf("%-24s %-9s %s\n", p.Addr, p.Direction, p.Version)
		}
		return nil
	},
}

var networkCmd = &cobra.Command{
	Use:   "network",
	Short: "Show network connectivity info",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := setup(cmd)
		if err != nil {
			return err
		}
		ctx, cancel := signalContext()
		defer cancel()

		client, closer, err := newRPCClient(cfg)
		if err != nil {
			return err
		}
		defer closer()

		info, err := client.NetworkInfo(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("network: %s\n", info.Network)
		fmt.Printf("listen:  %s\n", info.ListenAddr)
		fmt.Printf("peers:   %d (%d inbound, %d outbound)\n", info.PeerCount, info.Inbound, info.Outbound)
		return nil
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Watch block synchronization progress",
	Long:  "Polls the node until it reports being synced, showing a progress bar.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := setup(cmd)
		if err != nil {
			return err
		}
		ctx, cancel := signalContext()
		defer cancel()

		client, closer, err := newRPCClient(cfg)
		if err != nil {
			return err
		}
		defer closer()

		interval, _ := cmd.Flags().GetDuration("interval")

		status, err := client.SyncStatus(ctx)
		if err != nil {
			return err
		}
		if status.Synced {
			fmt.Printf("already synced at height %d\n", status.CurrentHeight)
			return nil
		}

		bar := progressbar.NewOptions64(int64(status.TargetHeight),
			progressbar.OptionSetDescription("syncing"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWriter(os.Stderr),
		)
		_ = bar.Set64(int64(status.CurrentHeight))

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}

			status, err = client.SyncStatus(ctx)
			if err != nil {
				return err
			}
			bar.ChangeMax64(int64(status.TargetHeight))
			_ = bar.Set64(int64(status.CurrentHeight))
			if status.Synced {
				_ = bar.Finish()
				fmt.Printf("\nsynced at height %d\n", status.CurrentHeight)
				return nil
			}
		}
	},
}

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "Verify manifest tags against local clones",
	Long: `Checks that each repository's git tag exists in its local clone under
the workspace directory and, when a commit is pinned, that the tag points
at that commit.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := setup(cmd)
		if err != nil {
			return err
		}
		ctx, cancel := signalContext()
		defer cancel()

		m, err := loadManifest(cfg)
		if err != nil {
			return err
		}

		checker := gitcheck.NewChecker(utils.ExpandPath(cfg.Workspace), log)
		results, err := checker.CheckAll(ctx, m)
		if err != nil {
			return err
		}

		failed := 0
		for _, r := range results {
			switch {
			case r.Err != nil:
				fmt.Printf("%-20s %-12s ERROR: %v\n", r.Repo, r.Tag, r.Err)
				failed++
			case !r.TagFound:
				fmt.Printf("%-20s %-12s MISSING\n", r.Repo, r.Tag)
				failed++
			case !r.CommitMatch:
				fmt.Printf("%-20s %-12s WRONG COMMIT (%s)\n", r.Repo, r.Tag, r.Commit)
				failed++
			default:
				fmt.Printf("%-20s %-12s OK\n", r.Repo, r.Tag)
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d repositories failed tag verification", failed, len(results))
		}
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the effective configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long:  "Prints the merged configuration after defaults, config file, environment, and flags are applied.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := setup(cmd)
		if err != nil {
			return err
		}

		data, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		fmt.Print(string(data))
		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Check that a configuration file loads",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var path string
		if len(args) == 1 {
			path = utils.ExpandPath(args[0])
		} else {
			if _, err := setup(cmd); err != nil {
				return err
			}
			path = viper.ConfigFileUsed()
			if path == "" {
				return errors.New("no configuration file found")
			}
		}

		v := viper.New()
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("invalid configuration file %s: %w", path, err)
		}
		var cfg config.Config
		if err := v.Unmarshal(&cfg); err != nil {
			return fmt.Errorf("invalid configuration file %s: %w", path, err)
		}

		fmt.Printf("configuration file %s is valid\n", path)
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file in use",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := setup(cmd); err != nil {
			return err
		}

		if path := viper.ConfigFileUsed(); path != "" {
			fmt.Println(path)
		} else {
			fmt.Println("no configuration file found")
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Full())
	},
}
