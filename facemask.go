// Package facemask protects the privacy of people, children in particular, in
// photos by covering their faces with symbol, pixelate or blur masks.
//
// Basic usage:
//
//	package main
//
//	import (
//		"context"
//		"log"
//
//		"github.com/menta2k/facemask"
//		"github.com/menta2k/facemask/pkg/detection"
//		"github.com/menta2k/facemask/pkg/ollama"
//	)
//
//	func main() {
//		client, err := ollama.NewClient("")
//		if err != nil {
//			log.Fatal(err)
//		}
//		detector := detection.NewVisionDetector(client, detection.VisionConfig{Model: "openbmb/minicpm-v4.5"})
//		if err := detector.Load(context.Background()); err != nil {
//			log.Fatal(err)
//		}
//
//		app := facemask.New(detector, facemask.Config{})
//		if _, err := app.ProcessFiles(context.Background(), []string{"family.jpg"}); err != nil {
//			log.Fatal(err)
//		}
//		path, err := app.ExportAll()
//		if err != nil {
//			log.Fatal(err)
//		}
//		log.Printf("saved %s", path)
//	}
//
// The package consists of these components:
//
//  1. Detection (pkg/detection): face detectors backed by a vision model or pigo
//  2. Mask (pkg/mask): how a detected face becomes a mask under a policy
//  3. Render (pkg/render): painting masks onto images
//  4. Pipeline (pkg/pipeline): batch processing with progress and notices
//  5. Editor (pkg/editor): interactive mask editing of a processed image
//  6. Export (pkg/export): single image and zip archive export
package facemask

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/menta2k/facemask/pkg/detection"
	"github.com/menta2k/facemask/pkg/editor"
	"github.com/menta2k/facemask/pkg/export"
	"github.com/menta2k/facemask/pkg/pipeline"
	"github.com/menta2k/facemask/pkg/session"
)

// Version of the facemask library
const Version = "1.0.0"

// ErrEditorOpen is returned when opening an editor while another is open
var ErrEditorOpen = errors.New("an edit session is already open")

// Config holds the controller configuration
type Config struct {
	Pipeline pipeline.Config
	Export   export.Config
	// Editor is the base editor configuration; the display scale is set per
	// session
	Editor   editor.Config
	Notifier pipeline.Notifier
	Logger   *slog.Logger
}

// App owns the processed images of one session and every operation on them
type App struct {
	store    *session.Store
	pipeline *pipeline.Pipeline
	exporter *export.Exporter
	notifier pipeline.Notifier
	config   Config
	logger   *slog.Logger

	mu     sync.Mutex
	editor *editor.Session
}

// New creates a controller around a face detector
func New(detector detection.Detector, config Config) *App {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Notifier == nil {
		config.Notifier = pipeline.LogNotifier{Logger: config.Logger}
	}
	if config.Pipeline.Notifier == nil {
		config.Pipeline.Notifier = config.Notifier
	}
	if config.Pipeline.Logger == nil {
		config.Pipeline.Logger = config.Logger
	}
	if config.Export.Logger == nil {
		config.Export.Logger = config.Logger
	}
	if config.Editor.Logger == nil {
		config.Editor.Logger = config.Logger
	}

	p := pipeline.New(detector, config.Pipeline)
	if config.Editor.Renderer == nil {
		config.Editor.Renderer = p.Renderer()
	}

	return &App{
		store:    session.NewStore(),
		pipeline: p,
		exporter: export.NewWithConfig(config.Export),
		notifier: config.Notifier,
		config:   config,
		logger:   config.Logger,
	}
}

// Store returns the session store
func (a *App) Store() *session.Store {
	return a.store
}

// Pipeline returns the processing pipeline
func (a *App) Pipeline() *pipeline.Pipeline {
	return a.pipeline
}

// ProcessFiles processes local files and http(s) URLs in order and adds
// every successful result to the store
func (a *App) ProcessFiles(ctx context.Context, inputs []string) (pipeline.BatchResult, error) {
	sources := make([]pipeline.Source, len(inputs))
	for i, in := range inputs {
		sources[i] = pipeline.SourceFor(in, a.pipeline.Processor())
	}
	return a.ProcessSources(ctx, sources)
}

// ProcessSources processes sources in order and adds every successful
// result to the store
func (a *App) ProcessSources(ctx context.Context, sources []pipeline.Source) (pipeline.BatchResult, error) {
	return a.pipeline.ProcessBatch(ctx, sources, func(entry *session.ProcessedImage) {
		a.store.Add(entry)
	})
}

// OpenEditor opens an edit session on the image at index. Only one session
// may be open at a time.
func (a *App) OpenEditor(index int, displayScale float64) (*editor.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.editor != nil && !a.editor.Closed() {
		return nil, ErrEditorOpen
	}

	config := a.config.Editor
	config.DisplayScale = displayScale
	s, err := editor.Open(a.store, index, a.pipeline, config)
	if err != nil {
		return nil, err
	}
	a.editor = s
	return s, nil
}

// Editor returns the open edit session, or nil
func (a *App) Editor() *editor.Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.editor == nil || a.editor.Closed() {
		return nil
	}
	return a.editor
}

// Remove deletes the image at index
func (a *App) Remove(index int) bool {
	return a.store.Remove(index)
}

// Clear deletes every image
func (a *App) Clear() {
	a.store.Clear()
}

// Counts returns the number of images, detected faces and masked faces
func (a *App) Counts() (images, faces, masked int) {
	faces, masked = a.store.Counts()
	return a.store.Len(), faces, masked
}

// ExportSingle saves the processed image at index and returns its path
func (a *App) ExportSingle(index int) (string, error) {
	entry, ok := a.store.At(index)
	if !ok {
		err := fmt.Errorf("%w: no image at index %d", export.ErrNothingToExport, index)
		a.notifyExport(err, "")
		return "", err
	}
	path, err := a.exporter.SaveSingle(entry)
	if err != nil {
		a.notifyExport(err, entry.SourceName)
		return "", err
	}
	a.notifier.Notify(pipeline.Notice{Level: pipeline.LevelInfo, Message: "Image saved to " + path, Name: entry.SourceName})
	return path, nil
}

// ExportAll saves every processed image into one zip archive and returns
// its path
func (a *App) ExportAll() (string, error) {
	entries := a.store.Live()
	path, err := a.exporter.SaveArchive(entries)
	if err != nil {
		a.notifyExport(err, "")
		return "", err
	}
	a.notifier.Notify(pipeline.Notice{Level: pipeline.LevelInfo, Message: fmt.Sprintf("%d images saved to %s", len(entries), path)})
	return path, nil
}

func (a *App) notifyExport(err error, name string) {
	level := pipeline.LevelError
	msg := "Export failed"
	if errors.Is(err, export.ErrNothingToExport) {
		level = pipeline.LevelWarning
		msg = "Nothing to export"
	}
	a.logger.Error("export failed", "file", name, "err", err)
	a.notifier.Notify(pipeline.Notice{Level: level, Message: msg, Name: name, Err: err})
}

// FitScale returns the display scale that fits a w x h image into a
// maxW x maxH viewport without upscaling
func FitScale(w, h, maxW, maxH int) float64 {
	if w <= 0 || h <= 0 {
		return 1
	}
	return math.Min(1, math.Min(float64(maxW)/float64(w), float64(maxH)/float64(h)))
}
