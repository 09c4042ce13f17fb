package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/ytget/yt-web/internal/config"
	"github.com/ytget/yt-web/internal/download"
	"github.com/ytget/yt-web/internal/extract"
	"github.com/ytget/yt-web/internal/history"
	"github.com/ytget/yt-web/internal/platform"
	"github.com/ytget/yt-web/internal/registry"
	"github.com/ytget/yt-web/internal/server"
)

// Version is set during build via -ldflags "-X main.version=X.Y.Z"
var version = "dev"

const AppName = "yt-web"

// Command line flags
var (
	flagConfig      string
	flagAddr        string
	flagDownloadDir string
	flagMaxParallel int
	flagDebug       bool
)

var rootCmd = &cobra.Command{
	Use:           AppName,
	Short:         "Web front end for downloading media with yt-dlp",
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("%s v%s\n", AppName, version)
	},
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVarP(&flagConfig, "config", "c", config.DefaultConfigFile, "Path to TOML config file")
	flags.StringVar(&flagAddr, "addr", "", "Listen address (overrides config)")
	flags.StringVar(&flagDownloadDir, "download-dir", "", "Directory for downloaded files (overrides config)")
	flags.IntVar(&flagMaxParallel, "max-parallel", 0, "Maximum concurrent downloads (overrides config)")
	flags.BoolVar(&flagDebug, "debug", false, "Verbose logging")

	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Printf("%s: %v", AppName, err)
		os.Exit(1)
	}
}

// loadSettings merges defaults < config file < flags
func loadSettings(cmd *cobra.Command) (*config.Settings, error) {
	settings, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("addr") {
		settings.Addr = flagAddr
	}
	if flags.Changed("download-dir") {
		settings.DownloadDir = flagDownloadDir
	}
	if flags.Changed("max-parallel") {
		settings.SetMaxParallelDownloads(flagMaxParallel)
	}
	if flagDebug {
		settings.Debug = true
	}

	if err := settings.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return settings, nil
}

func run(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	if settings.Debug {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}
	log.Printf("YT Web v%s starting...", version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := platform.CreateDirectoryIfNotExists(settings.DownloadDir); err != nil {
		return errors.Wrap(err, "failed to ensure downloads dir")
	}

	if settings.InstallYTDLP {
		if err := extract.Install(ctx); err != nil {
			return err
		}
	}

	ttl, err := settings.GetTaskTTL()
	if err != nil {
		return err
	}
	interval, err := settings.GetProgressInterval()
	if err != nil {
		return err
	}

	var regOpts []registry.Option
	if ttl > 0 {
		regOpts = append(regOpts, registry.WithTTL(ttl))
	}
	reg := registry.New(regOpts...)
	defer reg.Close()

	extractor := extract.NewYTDLP(interval)
	svcOpts := download.Options{
		DownloadDir: settings.DownloadDir,
		CookieFile:  settings.CookieFile,
		MaxParallel: settings.MaxParallel,
	}
	srvOpts := []server.Option{server.WithDebug(settings.Debug)}

	if settings.HistoryDB != "" {
		store, err := history.Open(settings.HistoryDB)
		if err != nil {
			return err
		}
		defer store.Close()
		svcOpts.Recorder = store
		srvOpts = append(srvOpts, server.WithHistory(store))
	}

	svc := download.NewService(reg, extractor, svcOpts)
	log.Printf("Download dir %s, max parallel %d", settings.DownloadDir, settings.MaxParallel)

	serveErr := server.New(svc, extractor, srvOpts...).Run(ctx, settings.Addr)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), server.ShutdownTimeout)
	defer cancel()
	if err := svc.Close(shutdownCtx); err != nil {
		log.Printf("Download shutdown: %v", err)
	}
	return serveErr
}
