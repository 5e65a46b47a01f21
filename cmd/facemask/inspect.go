package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/menta2k/facemask/internal/utils"
	"github.com/menta2k/facemask/pkg/analyzer"
	"github.com/menta2k/facemask/pkg/pipeline"
	"github.com/menta2k/facemask/pkg/processing"
)

// inspectCmd reports detected faces and planned masks without writing images
var inspectCmd = &cobra.Command{
	Use:   "inspect [file|dir|url]...",
	Short: "Print the faces found and the masks that would be applied",
	Long: `Run face detection and the masking policy on every image and print a
JSON report. No images are written.`,
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
		policy, err := cfg.Policy()
		if err != nil {
			return err
		}

		detector, err := newDetector(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		a := analyzer.NewWithConfig(detector, analyzer.Config{
			Policy: policy,
			Detect: cfg.DetectOptions(),
			Logger: logger,
		})

		processor := processing.NewProcessor()
		reports := make([]*analyzer.Report, 0, len(inputs))
		for _, in := range inputs {
			src := pipeline.SourceFor(in, processor)
			data, err := src.Read(cmd.Context())
			if err != nil {
				return fmt.Errorf("%s: %w", src.Name(), err)
			}
			report, err := a.Analyze(cmd.Context(), src.Name(), data)
			if err != nil {
				return fmt.Errorf("%s: %w", src.Name(), err)
			}
			reports = append(reports, report)
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		if compact, _ := cmd.Flags().GetBool("compact"); !compact {
			enc.SetIndent("", "  ")
		}
		return enc.Encode(reports)
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	addMaskFlags(inspectCmd)
	inspectCmd.Flags().Bool("compact", false, "Print the report on one line")
}
