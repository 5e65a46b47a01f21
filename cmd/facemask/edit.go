package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/menta2k/facemask/pkg/editor"
	"github.com/menta2k/facemask/pkg/export"
	"github.com/menta2k/facemask/pkg/processing"
)

// Script is a recorded editing session. Event coordinates are display
// pixels at Scale.
type Script struct {
	Scale  float64        `yaml:"scale"`
	Events []editor.Event `yaml:"events"`
}

// parseScript parses a YAML edit script
func parseScript(data []byte) (*Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse script: %w", err)
	}
	if s.Scale <= 0 {
		s.Scale = 1
	}
	return &s, nil
}

// editCmd replays an edit script on one image
var editCmd = &cobra.Command{
	Use:   "edit <image>",
	Short: "Mask faces in an image, then adjust the masks with an edit script",
	Long: `Process one image, replay pointer and touch events from a YAML script
through the mask editor and write the result.

Example script:
  scale: 0.5
  events:
    - kind: pointer-down
      point: {x: 120, y: 80}
    - kind: pointer-move
      point: {x: 140, y: 90}
    - kind: pointer-up
    - kind: toggle-add
    - kind: pointer-down
      point: {x: 300, y: 40}`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger(cmd)
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		scriptPath, _ := cmd.Flags().GetString("script")
		data, err := os.ReadFile(scriptPath)
		if err != nil {
			return fmt.Errorf("failed to read script: %w", err)
		}
		script, err := parseScript(data)
		if err != nil {
			return err
		}

		detector, err := newDetector(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		app, err := newApp(cfg, detector, logger)
		if err != nil {
			return err
		}
		if result, err := app.ProcessFiles(cmd.Context(), args); err != nil {
			return err
		} else if result.Processed == 0 {
			return fmt.Errorf("failed to process %s: %w", args[0], result.Failed[0])
		}

		session, err := app.OpenEditor(0, script.Scale)
		if err != nil {
			return err
		}
		for i, ev := range script.Events {
			if _, err := session.Dispatch(ev); err != nil {
				session.Cancel()
				return fmt.Errorf("event %d (%s): %w", i+1, ev.Kind, err)
			}
		}
		logger.Debug("script replayed", "events", len(script.Events), "masks", len(session.Masks()))

		if previewPath, _ := cmd.Flags().GetString("preview"); previewPath != "" {
			preview, err := session.Preview()
			if err != nil {
				session.Cancel()
				return err
			}
			encoded, err := app.Pipeline().Processor().Encode(preview, processing.EncodeOptions{Format: processing.FormatPNG})
			if err != nil {
				session.Cancel()
				return err
			}
			if err := os.WriteFile(previewPath, encoded, 0o644); err != nil {
				session.Cancel()
				return fmt.Errorf("failed to write preview: %w", err)
			}
		}

		entry, err := session.Commit()
		if err != nil {
			return err
		}
		path, err := export.NewWithConfig(export.Config{Dir: cfg.Output.Dir, Logger: logger}).SaveNamed(entry)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d masks)\n", path, entry.MaskedCount)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(editCmd)
	addMaskFlags(editCmd)
	editCmd.Flags().StringP("script", "s", "", "YAML edit script")
	editCmd.Flags().String("preview", "", "Also write the editor view before committing, as PNG")
	editCmd.MarkFlagRequired("script")
}
