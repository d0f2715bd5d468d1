// Command resobserver is the agent's bootstrap entrypoint (C15): a Cobra
// root command wiring the agent configuration, cluster query client, OS
// probe, dump writer, health reporter, observers, and scheduler together,
// then running until a signal or a fatal observer error.
package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof" // pprof endpoints, gated behind --enable-pprof
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/latticeco/resobserver/pkg/agent"
	"github.com/latticeco/resobserver/pkg/cluster"
	"github.com/latticeco/resobserver/pkg/config"
	"github.com/latticeco/resobserver/pkg/dump"
	"github.com/latticeco/resobserver/pkg/health"
	"github.com/latticeco/resobserver/pkg/log"
	"github.com/latticeco/resobserver/pkg/metrics"
	"github.com/latticeco/resobserver/pkg/observer"
	"github.com/latticeco/resobserver/pkg/probe"
	"github.com/latticeco/resobserver/pkg/scheduler"
	"github.com/latticeco/resobserver/pkg/store"
	"github.com/latticeco/resobserver/pkg/telemetry"
	"github.com/spf13/cobra"
)

var (
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
	Use:     "resobserver",
	Short:   "resobserver - per-node resource observation agent",
	Long:    `resobserver samples per-node and per-application resource usage and reports health state transitions to the cluster.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"resobserver version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(agentCmd)
	rootCmd.AddCommand(versionCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Agent process operations",
}

var agentRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the resource-observation agent",
	Long:  `Constructs the agent context and runs the observer scheduler until a signal or a fatal observer error.`,
	RunE:  runAgent,
}

var agentValidateCmd = &cobra.Command{
	Use:   "validate-config",
	Short: "Validate the agent configuration and target list without starting the scheduler",
	RunE:  runValidateConfig,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build metadata",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("resobserver version %s\nCommit: %s\nBuilt: %s\n", Version, Commit, BuildTime)
	},
}

func init() {
	agentCmd.AddCommand(agentRunCmd)
	agentCmd.AddCommand(agentValidateCmd)

	for _, cmd := range []*cobra.Command{agentRunCmd, agentValidateCmd} {
		cmd.Flags().String("config", "/etc/resobserver/config.yaml", "Path to the agent configuration file")
	}

	agentRunCmd.Flags().String("node-name", "", "This node's identity as known to the cluster (required)")
	agentRunCmd.Flags().String("bind", "127.0.0.1:9090", "Bind address for the /metrics, /healthz and /debug/pprof endpoints")
	agentRunCmd.Flags().Bool("enable-pprof", false, "Enable pprof profiling endpoints on the bind address")
	agentRunCmd.MarkFlagRequired("node-name")
}

func runValidateConfig(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("agent configuration invalid: %w", err)
	}

	section := "AgentConfiguration"
	targetListPath := cfg.String(section, "TargetListPath", "")
	if targetListPath != "" {
		if _, err := config.NewTargetListAccessor(targetListPath); err != nil {
			return fmt.Errorf("target list invalid: %w", err)
		}
		fmt.Printf("✓ target list valid: %s\n", targetListPath)
	}

	fmt.Printf("✓ agent configuration valid: %s\n", configPath)
	return nil
}

func runAgent(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	nodeName, _ := cmd.Flags().GetString("node-name")
	bindAddr, _ := cmd.Flags().GetString("bind")
	pprofEnabled, _ := cmd.Flags().GetBool("enable-pprof")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load agent configuration: %w", err)
	}
	metrics.RegisterCriticalComponent("config", true, "loaded")

	section := "AgentConfiguration"

	var targets *config.TargetListAccessor
	if targetListPath := cfg.String(section, "TargetListPath", ""); targetListPath != "" {
		targets, err = config.NewTargetListAccessor(targetListPath)
		if err != nil {
			return fmt.Errorf("failed to load target list: %w", err)
		}
		if err := config.Watch(ctx, log.Logger, targetListPath, targets.Reload); err != nil {
			log.Logger.Warn().Err(err).Msg("failed to watch target list for changes")
		}
	}

	if err := config.Watch(ctx, log.Logger, configPath, cfg.Reload); err != nil {
		log.Logger.Warn().Err(err).Msg("failed to watch agent configuration for changes")
	}

	prober := probe.New()

	var cl cluster.Client
	if clusterAddr := cfg.String(section, "ClusterAddress", ""); clusterAddr != "" {
		certDir := cfg.String(section, "CertDir", "/etc/resobserver/certs")
		queryTimeout := cfg.Duration(section, "ClusterQueryTimeout", cluster.DefaultQueryTimeout)
		cl, err = cluster.New(ctx, clusterAddr, certDir, queryTimeout)
		if err != nil {
			return fmt.Errorf("failed to dial cluster query endpoint: %w", err)
		}
		defer cl.Close()
		// Only registered critical when a cluster address is actually
		// configured: dry-run/offline deployments have no cluster-client
		// to wait on (see clusterHealthPusher).
		metrics.RegisterCriticalComponent("cluster-client", true, "connected")
	}

	sentinelPath := cfg.String(section, "SentinelPath", "/var/lib/resobserver/sentinel.db")
	sentinel, err := store.Open(sentinelPath)
	if err != nil {
		return fmt.Errorf("failed to open sentinel store: %w", err)
	}
	defer sentinel.Close()

	maxDumps := cfg.Int("ObserverManagerConfiguration", "MaxDumps", 5)
	guardPct := cfg.Float64("ObserverManagerConfiguration", "DumpDiskGuardPercent", 0.90)
	diskUsage := func(path string) (float64, error) {
		pct, err := prober.DiskSpaceUsedPercent(ctx, path)
		if err != nil {
			return 0, err
		}
		return pct / 100, nil
	}
	dumper := dump.New(sentinel, diskUsage, maxDumps, guardPct)

	broker := telemetry.NewBroker()
	broker.Start()
	defer broker.Stop()
	logSink := telemetry.NewLogSink(log.WithComponent("telemetry"))
	reporter := health.NewReporter(clusterHealthPusher(cl), logSink, broker)

	ag := agent.New(ctx, nodeName, cl, prober, dumper, reporter, cfg, targets, log.WithNodeID(nodeName))

	observers := []observer.Observer{
		observer.NewNodeObserver(ag),
		observer.NewDiskObserver(ag),
		observer.NewAppObserver(ag),
		observer.NewFabricSystemObserver(ag),
	}

	sched := scheduler.New(ag, observers)
	metricsCollector := metrics.NewCollector(sched)
	metricsCollector.Start()
	defer metricsCollector.Stop()

	metrics.SetVersion(Version)
	metrics.RegisterCriticalComponent("scheduler", true, "running")

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/healthz", metrics.HealthHandler())
	mux.Handle("/ready", metrics.ReadyHandler())
	mux.Handle("/live", metrics.LivenessHandler())
	if pprofEnabled {
		mux.Handle("/debug/pprof/", http.DefaultServeMux)
	}

	httpServer := &http.Server{Addr: bindAddr, Handler: mux}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Logger.Error().Err(err).Msg("metrics server error")
		}
	}()
	log.Logger.Info().Str("addr", bindAddr).Bool("pprof", pprofEnabled).Msg("metrics endpoint started")

	runErr := sched.Run(ag.Ctx())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	httpServer.Shutdown(shutdownCtx)

	return runErr
}

// clusterHealthPusher adapts a possibly-nil cluster.Client to
// health.Pusher: a nil cluster client (no ClusterAddress configured) is
// valid, matching health.NewReporter's "nil pusher is valid for dry
// runs" contract, and lets `agent run` operate sink-only when no
// cluster is reachable.
func clusterHealthPusher(cl cluster.Client) health.Pusher {
	if cl == nil {
		return nil
	}
	return cl
}
