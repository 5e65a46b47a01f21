package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/menta2k/facemask/pkg/editor"
	"github.com/menta2k/facemask/pkg/mask"
	"github.com/menta2k/facemask/pkg/processing"
	"github.com/menta2k/facemask/pkg/render"
	"github.com/menta2k/facemask/pkg/types"
)

// Detector backends
const (
	BackendOllama   = "ollama"
	BackendLlamaCpp = "llamacpp"
	BackendPigo     = "pigo"
)

// Config holds the application configuration
type Config struct {
	Mask     MaskConfig     `json:"mask" yaml:"mask"`
	Detector DetectorConfig `json:"detector" yaml:"detector"`
	Output   OutputConfig   `json:"output" yaml:"output"`
	Render   RenderConfig   `json:"render" yaml:"render"`
	Editor   EditorConfig   `json:"editor" yaml:"editor"`
}

// MaskConfig holds the masking policy applied to detected faces
type MaskConfig struct {
	Symbol       string `json:"symbol" yaml:"symbol"`
	SizePercent  int    `json:"size_percent" yaml:"size_percent"`
	Kind         string `json:"mask_kind" yaml:"mask_kind"`
	ChildOnly    bool   `json:"child_only" yaml:"child_only"`
	AgeThreshold int    `json:"age_threshold" yaml:"age_threshold"`
}

// DetectorConfig holds configuration for the face detector backend
type DetectorConfig struct {
	Backend       string  `json:"backend" yaml:"backend"`
	URL           string  `json:"url" yaml:"url"`
	Model         string  `json:"model" yaml:"model"`
	MinConfidence float64 `json:"min_confidence" yaml:"min_confidence"`
	InputSize     int     `json:"input_size" yaml:"input_size"`
	SendFormat    string  `json:"send_format" yaml:"send_format"`
	SendQuality   int     `json:"send_quality" yaml:"send_quality"`
	NMSThreshold  float64 `json:"nms_threshold" yaml:"nms_threshold"`
	// CascadePath and PuplocPath are used by the pigo backend
	CascadePath string `json:"cascade_path,omitempty" yaml:"cascade_path,omitempty"`
	PuplocPath  string `json:"puploc_path,omitempty" yaml:"puploc_path,omitempty"`
}

// OutputConfig holds configuration for output generation
type OutputConfig struct {
	Format        string `json:"format" yaml:"format"`
	Quality       int    `json:"quality" yaml:"quality"`
	Lossless      bool   `json:"lossless" yaml:"lossless"`
	Prefix        string `json:"prefix" yaml:"prefix"`
	Dir           string `json:"dir" yaml:"dir"`
	ArchiveFolder string `json:"archive_folder" yaml:"archive_folder"`
}

// RenderConfig holds configuration for mask painting
type RenderConfig struct {
	// FontPath names an OpenType font drawing the mask symbol. The built-in
	// Go Regular font has no emoji, so without a monochrome emoji font (Noto
	// Emoji for example) emoji symbols are drawn as solid discs.
	FontPath    string `json:"font_path,omitempty" yaml:"font_path,omitempty"`
	SymbolColor string `json:"symbol_color" yaml:"symbol_color"`
}

// EditorConfig holds the interactive editor limits
type EditorConfig struct {
	MinSize      float64 `json:"min_size" yaml:"min_size"`
	MaxSize      float64 `json:"max_size" yaml:"max_size"`
	ManualSize   float64 `json:"manual_size" yaml:"manual_size"`
	DeleteRadius float64 `json:"delete_radius" yaml:"delete_radius"`
	ResizeRadius float64 `json:"resize_radius" yaml:"resize_radius"`
}

// Default returns a configuration with default values
func Default() *Config {
	policy := mask.DefaultPolicy()
	return &Config{
		Mask: MaskConfig{
			Symbol:       policy.Symbol,
			SizePercent:  policy.SizePercent,
			Kind:         policy.Kind.String(),
			ChildOnly:    policy.ChildOnly,
			AgeThreshold: policy.AgeThreshold,
		},
		Detector: DetectorConfig{
			Backend:       BackendOllama,
			URL:           "http://localhost:11434",
			Model:         "openbmb/minicpm-v4.5",
			MinConfidence: 0.3,
			InputSize:     1536,
			SendFormat:    processing.FormatJPEG,
			SendQuality:   85,
			NMSThreshold:  0.4,
		},
		Output: OutputConfig{
			Format:        processing.FormatPNG,
			Quality:       90,
			Lossless:      false,
			Prefix:        "protected_",
			Dir:           "./output",
			ArchiveFolder: "protected_photos",
		},
		Render: RenderConfig{
			SymbolColor: "#000000",
		},
		Editor: EditorConfig{
			MinSize:      mask.MinSize,
			MaxSize:      mask.MaxSize,
			ManualSize:   mask.ManualSize,
			DeleteRadius: 15,
			ResizeRadius: 12,
		},
	}
}

func isYAML(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return ext == ".yaml" || ext == ".yml"
}

// LoadFromFile loads configuration from a JSON or YAML file, chosen by
// extension. Missing fields keep their default values.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if isYAML(filename) {
		err = yaml.Unmarshal(data, config)
	} else {
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a JSON or YAML file, chosen by extension
func (c *Config) SaveToFile(filename string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var data []byte
	var err error
	if isYAML(filename) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Mask.Symbol) == "" {
		return fmt.Errorf("mask.symbol cannot be empty")
	}

	if c.Mask.SizePercent < 1 {
		return fmt.Errorf("mask.size_percent must be positive")
	}

	if _, err := mask.ParseKind(c.Mask.Kind); err != nil {
		return fmt.Errorf("mask.mask_kind: %w", err)
	}

	if c.Mask.AgeThreshold < 0 {
		return fmt.Errorf("mask.age_threshold cannot be negative")
	}

	switch c.Detector.Backend {
	case BackendOllama, BackendLlamaCpp:
		if c.Detector.Model == "" {
			return fmt.Errorf("detector.model cannot be empty for the %s backend", c.Detector.Backend)
		}
	case BackendPigo:
		if c.Detector.CascadePath == "" {
			return fmt.Errorf("detector.cascade_path is required for the pigo backend")
		}
	default:
		return fmt.Errorf("detector.backend must be one of %s, %s, %s", BackendOllama, BackendLlamaCpp, BackendPigo)
	}

	if c.Detector.MinConfidence < 0 || c.Detector.MinConfidence > 1 {
		return fmt.Errorf("detector.min_confidence must be between 0 and 1")
	}

	if c.Detector.NMSThreshold < 0 || c.Detector.NMSThreshold > 1 {
		return fmt.Errorf("detector.nms_threshold must be between 0 and 1")
	}

	if c.Detector.InputSize < 0 {
		return fmt.Errorf("detector.input_size cannot be negative")
	}

	switch strings.ToLower(c.Output.Format) {
	case "png", "jpg", "jpeg", "webp":
	default:
		return fmt.Errorf("output.format must be png, jpg or webp")
	}

	if c.Output.Quality < 1 || c.Output.Quality > 100 {
		return fmt.Errorf("output.quality must be between 1 and 100")
	}

	if _, err := render.ParseColor(c.Render.SymbolColor); err != nil {
		return fmt.Errorf("render.symbol_color: %w", err)
	}

	if c.Editor.MinSize <= 0 || c.Editor.MaxSize < c.Editor.MinSize {
		return fmt.Errorf("editor.min_size must be positive and not above editor.max_size")
	}

	return nil
}

// Policy returns the masking policy
func (c *Config) Policy() (mask.Policy, error) {
	kind, err := mask.ParseKind(c.Mask.Kind)
	if err != nil {
		return mask.Policy{}, err
	}
	return mask.Policy{
		Symbol:       c.Mask.Symbol,
		SizePercent:  c.Mask.SizePercent,
		Kind:         kind,
		ChildOnly:    c.Mask.ChildOnly,
		AgeThreshold: c.Mask.AgeThreshold,
	}, nil
}

// DetectOptions returns the options passed to every detector call
func (c *Config) DetectOptions() types.DetectOptions {
	return types.DetectOptions{
		MinConfidence: c.Detector.MinConfidence,
		InputSize:     c.Detector.InputSize,
	}
}

// EncodeOptions returns the output encoding options
func (c *Config) EncodeOptions() processing.EncodeOptions {
	return processing.EncodeOptions{
		Format:   processing.NormalizeFormat(c.Output.Format),
		Quality:  c.Output.Quality,
		Lossless: c.Output.Lossless,
	}
}

// RendererConfig builds the renderer configuration, loading the configured
// font if any
func (c *Config) RendererConfig() (render.Config, error) {
	col, err := render.ParseColor(c.Render.SymbolColor)
	if err != nil {
		return render.Config{}, err
	}
	fonts := render.DefaultFonts()
	if c.Render.FontPath != "" {
		if fonts, err = render.LoadFonts(c.Render.FontPath); err != nil {
			return render.Config{}, err
		}
	}
	return render.Config{Fonts: fonts, SymbolColor: col}, nil
}

// EditorConfig returns the editor configuration for a display scale
func (c *Config) EditorConfig(displayScale float64) editor.Config {
	policy, _ := c.Policy()
	return editor.Config{
		DisplayScale: displayScale,
		MinSize:      c.Editor.MinSize,
		MaxSize:      c.Editor.MaxSize,
		ManualSize:   c.Editor.ManualSize,
		DeleteRadius: c.Editor.DeleteRadius,
		ResizeRadius: c.Editor.ResizeRadius,
		Symbol:       policy.Symbol,
		Kind:         policy.Kind,
	}
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.yaml"
	}
	return filepath.Join(home, ".config", "facemask", "config.yaml")
}
