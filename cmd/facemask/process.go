package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/menta2k/facemask"
	"github.com/menta2k/facemask/internal/config"
	"github.com/menta2k/facemask/internal/utils"
	"github.com/menta2k/facemask/pkg/detection"
	"github.com/menta2k/facemask/pkg/export"
	"github.com/menta2k/facemask/pkg/pipeline"
	"github.com/menta2k/facemask/pkg/render"
)

// processCmd masks every face in a set of images
var processCmd = &cobra.Command{
	Use:   "process [file|dir|url]...",
	Short: "Mask faces in images",
	Long: `Detect and mask faces in every image given. Directories are scanned
recursively for images, http(s) URLs are downloaded.

Example:
  facemask process ./photos --child-only --kind pixelate
  facemask process kid.jpg https://example.com/party.png --zip`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger(cmd)
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		inputs, err := utils.ExpandInputs(args)
		if err != nil {
			return err
		}
		if len(inputs) == 0 {
			return fmt.Errorf("no images found in %v", args)
		}

		detector, err := newDetector(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		app, err := newApp(cfg, detector, logger)
		if err != nil {
			return err
		}

		result, err := app.ProcessFiles(cmd.Context(), inputs)
		if err != nil {
			return err
		}

		var written int64
		if zipped, _ := cmd.Flags().GetBool("zip"); zipped {
			path, err := app.ExportAll()
			if err != nil {
				return err
			}
			written += fileSize(path)
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
		} else {
			exporter := export.NewWithConfig(export.Config{Dir: cfg.Output.Dir, Logger: logger})
			for _, entry := range app.Store().Live() {
				path, err := exporter.SaveNamed(entry)
				if err != nil {
					return err
				}
				written += int64(len(entry.Output))
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d/%d faces masked)\n", path, entry.MaskedCount, entry.FaceCount)
			}
		}

		images, faces, masked := app.Counts()
		fmt.Fprintf(cmd.OutOrStdout(), "%d images processed, %d failed: %d faces found, %d masked, %s written\n",
			images, len(result.Failed), faces, masked, utils.FormatFileSize(written))
		if result.Processed == 0 {
			return fmt.Errorf("all %d images failed", len(result.Failed))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(processCmd)
	addMaskFlags(processCmd)
	processCmd.Flags().Bool("zip", false, "Write one zip archive instead of separate images")
}

// addMaskFlags registers the flags overriding the mask and output config
func addMaskFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("out", "o", "", "Output directory")
	cmd.Flags().String("symbol", "", "Symbol drawn over faces")
	cmd.Flags().String("kind", "", "Mask kind: symbol, pixelate or blur")
	cmd.Flags().Bool("child-only", false, "Only mask faces estimated to be minors")
	cmd.Flags().String("format", "", "Output format: png, jpg or webp")
}

// newApp builds the controller from the configuration
func newApp(cfg *config.Config, detector detection.Detector, logger *slog.Logger) (*facemask.App, error) {
	policy, err := cfg.Policy()
	if err != nil {
		return nil, err
	}
	rc, err := cfg.RendererConfig()
	if err != nil {
		return nil, err
	}
	renderer := render.NewWithConfig(rc)

	return facemask.New(detector, facemask.Config{
		Pipeline: pipeline.Config{
			Policy:       policy,
			Detect:       cfg.DetectOptions(),
			Encode:       cfg.EncodeOptions(),
			OutputPrefix: cfg.Output.Prefix,
			Renderer:     renderer,
			Progress:     progressLogger(logger),
		},
		Export: export.Config{
			Dir:           cfg.Output.Dir,
			ArchiveFolder: cfg.Output.ArchiveFolder,
		},
		Editor: cfg.EditorConfig(1),
		Logger: logger,
	}), nil
}

// progressLogger logs every finished file and, at debug level, every stage
func progressLogger(logger *slog.Logger) pipeline.ProgressFunc {
	return func(p pipeline.Progress) {
		if p.FilePercent < 100 {
			logger.Debug("progress", "file", p.Name, "stage", p.Stage.String(), "overall", p.Overall)
			return
		}
		if p.Failed {
			return
		}
		logger.Info("processed", "index", p.Index+1, "total", p.Total, "file", p.Name, "overall", p.Overall)
	}
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
