package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/voss/swarmtool/internal/config"
	"github.com/voss/swarmtool/internal/logger"
	"github.com/voss/swarmtool/pkg/gateway"
	"github.com/voss/swarmtool/pkg/runtime"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the tool runtime and peer gateway",
	Long: `Load the tool store, publish the namespace, and serve the peer
messaging endpoint until interrupted.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	loader := config.NewLoader(cfgFile)
	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	lg, err := logger.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer lg.Close()

	configPath, err := loader.Path()
	if err != nil {
		return err
	}

	rt, err := runtime.New(runtime.Config{
		ToolsDir:        cfg.ToolsDir,
		ConfigPath:      configPath,
		ScrapeTimeout:   time.Duration(cfg.Scrape.TimeoutSeconds) * time.Second,
		ScrapeWordLimit: cfg.Scrape.WordLimit,
		PeerTimeout:     time.Duration(cfg.Peer.TimeoutSeconds) * time.Second,
		WatchStore:      cfg.WatchStore,
	})
	if err != nil {
		return fmt.Errorf("failed to start runtime: %w", err)
	}
	defer rt.Close()

	var srv *gateway.Server
	if cfg.Gateway.Enabled {
		srv, err = gateway.NewServer(gateway.Config{
			Bind:      cfg.Gateway.Bind,
			Port:      cfg.Gateway.Port,
			Proposals: rt,
			Admin:     rt,
			Logger:    lg.GetZerolog(),
		})
		if err != nil {
			return fmt.Errorf("failed to create gateway: %w", err)
		}
		rt.SetBroadcaster(srv.Broadcaster())
		if err := srv.Start(); err != nil {
			return fmt.Errorf("failed to start gateway: %w", err)
		}
	}

	tools, _ := rt.ListTools()
	zlg := lg.GetZerolog()
	zlg.Info().
		Int("tools", len(tools)).
		Strs("names", tools).
		Msg("Tool runtime ready")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	if srv != nil {
		if err := srv.Stop(); err != nil {
			return err
		}
	}
	return nil
}
