package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/menta2k/facemask/internal/config"
	"github.com/menta2k/facemask/internal/utils"
	"github.com/menta2k/facemask/pkg/client"
	"github.com/menta2k/facemask/pkg/detection"
	"github.com/menta2k/facemask/pkg/llamacpp"
	"github.com/menta2k/facemask/pkg/ollama"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "facemask",
	Short: "Cover faces in photos before sharing them",
	Long: strings.TrimSpace(`
Detect faces in photos and cover them with a symbol, pixelate or blur mask.
Child-only mode masks just the faces estimated to be minors.
    `),
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Config file (yaml or json), default "+config.GetConfigPath())
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().String("backend", "", "Face detector backend: ollama, llamacpp or pigo")
	rootCmd.PersistentFlags().String("url", "", "Detector server URL")
	rootCmd.PersistentFlags().String("model", "", "Vision model name")
	rootCmd.PersistentFlags().String("cascade", "", "Pigo face cascade file")
}

// newLogger returns the command logger, writing to the command's stderr
func newLogger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelInfo
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

// loadConfig loads the configuration file, if any, and applies flag
// overrides
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()

	path, _ := cmd.Flags().GetString("config")
	if path == "" && utils.FileExists(config.GetConfigPath()) {
		path = config.GetConfigPath()
	}
	if path != "" {
		loaded, err := config.LoadFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if v, _ := flags.GetString("backend"); v != "" && v != cfg.Detector.Backend {
		cfg.Detector.Backend = v
		// The configured URL belongs to the previous backend
		cfg.Detector.URL = ""
	}
	if v, _ := flags.GetString("url"); v != "" {
		cfg.Detector.URL = v
	}
	if v, _ := flags.GetString("model"); v != "" {
		cfg.Detector.Model = v
	}
	if v, _ := flags.GetString("cascade"); v != "" {
		cfg.Detector.CascadePath = v
	}
	if flags.Lookup("symbol") != nil {
		if v, _ := flags.GetString("symbol"); v != "" {
			cfg.Mask.Symbol = v
		}
		if v, _ := flags.GetString("kind"); v != "" {
			cfg.Mask.Kind = v
		}
		if flags.Changed("child-only") {
			cfg.Mask.ChildOnly, _ = flags.GetBool("child-only")
		}
		if v, _ := flags.GetString("format"); v != "" {
			cfg.Output.Format = v
		}
		if v, _ := flags.GetString("out"); v != "" {
			cfg.Output.Dir = v
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// newDetector creates and loads the configured face detector
func newDetector(ctx context.Context, cfg *config.Config, logger *slog.Logger) (detection.Detector, error) {
	var d interface {
		detection.Detector
		detection.Loader
	}

	switch cfg.Detector.Backend {
	case config.BackendPigo:
		d = detection.NewPigoDetector(detection.PigoConfig{
			CascadePath: cfg.Detector.CascadePath,
			PuplocPath:  cfg.Detector.PuplocPath,
			Logger:      logger,
		})
	case config.BackendOllama, config.BackendLlamaCpp:
		var visionClient client.VisionClient
		var err error
		if cfg.Detector.Backend == config.BackendOllama {
			visionClient, err = ollama.NewClient(cfg.Detector.URL)
		} else {
			visionClient, err = llamacpp.NewClient(cfg.Detector.URL)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create %s client: %w", cfg.Detector.Backend, err)
		}
		d = detection.NewVisionDetector(visionClient, detection.VisionConfig{
			Model:        cfg.Detector.Model,
			SendFormat:   cfg.Detector.SendFormat,
			SendQuality:  cfg.Detector.SendQuality,
			NMSThreshold: cfg.Detector.NMSThreshold,
			Logger:       logger,
		})
	default:
		return nil, fmt.Errorf("unknown backend: %s", cfg.Detector.Backend)
	}

	logger.Info("loading face detector", "backend", cfg.Detector.Backend)
	if err := d.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to load face detector: %w", err)
	}
	return d, nil
}
