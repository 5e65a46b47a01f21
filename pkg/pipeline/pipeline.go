// Package pipeline turns image files into masked images.
//
// Each file goes through the same stages in order: read, decode, detect,
// mask, composite and encode. Files of a batch are processed one at a time
// in input order, and a failing file never stops the batch.
package pipeline

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync/atomic"

	"github.com/menta2k/facemask/pkg/detection"
	"github.com/menta2k/facemask/pkg/mask"
	"github.com/menta2k/facemask/pkg/processing"
	"github.com/menta2k/facemask/pkg/render"
	"github.com/menta2k/facemask/pkg/session"
	"github.com/menta2k/facemask/pkg/types"
)

// Stage is one step of processing a file
type Stage int

const (
	StageReading Stage = iota
	StageDecoding
	StageDetecting
	StageMasking
	StageCompositing
	StageEncoding
)

var stageNames = [...]string{"reading", "decoding", "detecting", "masking", "compositing", "encoding"}

// stagePercent is the per-file progress once a stage has completed
var stagePercent = [...]int{10, 25, 50, 75, 95, 100}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

// Percent returns the per-file progress reached when the stage completes
func (s Stage) Percent() int {
	if s < 0 || int(s) >= len(stagePercent) {
		return 0
	}
	return stagePercent[s]
}

// Progress is reported after every stage of every file
type Progress struct {
	Index int
	Total int
	Name  string
	Stage Stage
	// FilePercent is the progress of the current file, 0 to 100
	FilePercent int
	// Overall is the progress of the whole batch, 0 to 100. It never
	// decreases during a batch.
	Overall int
	Failed  bool
}

// ProgressFunc receives progress updates
type ProgressFunc func(Progress)

// Config holds pipeline configuration
type Config struct {
	Policy       mask.Policy
	Detect       types.DetectOptions
	Encode       processing.EncodeOptions
	OutputPrefix string
	Renderer     *render.Renderer
	Notifier     Notifier
	Progress     ProgressFunc
	Logger       *slog.Logger
}

// BatchResult summarizes a batch
type BatchResult struct {
	Processed int
	Failed    []*FileError
}

// Pipeline processes images. At most one batch runs at a time.
type Pipeline struct {
	detector  detection.Detector
	processor *processing.Processor
	config    Config
	running   atomic.Bool
}

// New creates a pipeline around a face detector
func New(detector detection.Detector, config Config) *Pipeline {
	if config.Renderer == nil {
		config.Renderer = render.New()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Notifier == nil {
		config.Notifier = LogNotifier{Logger: config.Logger}
	}
	config.Policy = withPolicyDefaults(config.Policy)
	if config.Encode.Format == "" {
		config.Encode.Format = processing.FormatPNG
	}
	return &Pipeline{
		detector:  detector,
		processor: processing.NewProcessor(),
		config:    config,
	}
}

// withPolicyDefaults returns the default policy for a zero policy and fills
// the unset size and symbol of any other
func withPolicyDefaults(p mask.Policy) mask.Policy {
	def := mask.DefaultPolicy()
	if p == (mask.Policy{}) {
		return def
	}
	if p.SizePercent == 0 {
		p.SizePercent = def.SizePercent
	}
	if p.Symbol == "" {
		p.Symbol = def.Symbol
	}
	return p
}

// Processor returns the image processor used for decoding and encoding
func (p *Pipeline) Processor() *processing.Processor {
	return p.processor
}

// Renderer returns the renderer used for compositing
func (p *Pipeline) Renderer() *render.Renderer {
	return p.config.Renderer
}

// Policy returns the masking policy applied to new detections
func (p *Pipeline) Policy() mask.Policy {
	return p.config.Policy
}

// Processing reports whether a batch is running
func (p *Pipeline) Processing() bool {
	return p.running.Load()
}

// ProcessBatch processes sources one at a time, in order. onResult is called
// with every successful result before the next file starts. Per-file failures
// are notified and collected in the result; only ErrNotReady and
// ErrAlreadyProcessing are returned as errors, before any work starts.
func (p *Pipeline) ProcessBatch(ctx context.Context, sources []Source, onResult func(*session.ProcessedImage)) (BatchResult, error) {
	if p.detector == nil || !p.detector.Ready() {
		p.notify(Notice{Level: LevelError, Message: "Face detector is still loading, please wait", Err: ErrNotReady})
		return BatchResult{}, ErrNotReady
	}
	if !p.running.CompareAndSwap(false, true) {
		p.notify(Notice{Level: LevelWarning, Message: "Still processing, please wait", Err: ErrAlreadyProcessing})
		return BatchResult{}, ErrAlreadyProcessing
	}
	defer p.running.Store(false)

	var result BatchResult
	total := len(sources)
	for i, src := range sources {
		entry, err := p.ProcessFile(ctx, i, total, src)
		if err != nil {
			fe := asFileError(err, i, src.Name())
			result.Failed = append(result.Failed, fe)
			p.config.Logger.Error("file failed", "index", i, "file", fe.Name, "stage", fe.Stage.String(), "err", fe.Err)
			p.notify(Notice{
				Level:   LevelError,
				Message: fmt.Sprintf("Failed to process %s", fe.Name),
				Name:    fe.Name,
				Err:     fe,
			})
			p.report(Progress{Index: i, Total: total, Name: fe.Name, Stage: fe.Stage, FilePercent: 100, Failed: true})
			continue
		}
		result.Processed++
		if onResult != nil {
			onResult(entry)
		}
	}

	p.config.Logger.Info("batch complete", "processed", result.Processed, "failed", len(result.Failed))
	return result, nil
}

// ProcessFile runs every stage for one source. index and total position the
// file within its batch for progress reporting. Failures are returned as
// *FileError.
func (p *Pipeline) ProcessFile(ctx context.Context, index, total int, src Source) (*session.ProcessedImage, error) {
	name := src.Name()
	fail := func(stage Stage, kind, err error) error {
		return &FileError{Index: index, Name: name, Stage: stage, Kind: kind, Err: err}
	}
	step := func(stage Stage) {
		p.report(Progress{Index: index, Total: total, Name: name, Stage: stage, FilePercent: stage.Percent()})
	}

	if p.detector == nil || !p.detector.Ready() {
		return nil, ErrNotReady
	}

	data, err := src.Read(ctx)
	if err != nil {
		return nil, fail(StageReading, ErrFileRead, err)
	}
	step(StageReading)

	if err := ctx.Err(); err != nil {
		return nil, fail(StageDecoding, nil, err)
	}
	img, err := p.processor.Decode(data)
	if err != nil {
		return nil, fail(StageDecoding, ErrImageDecode, err)
	}
	step(StageDecoding)

	if err := ctx.Err(); err != nil {
		return nil, fail(StageDetecting, nil, err)
	}
	faces, err := p.detector.Detect(ctx, img, p.config.Detect)
	if err != nil {
		return nil, fail(StageDetecting, ErrDetector, err)
	}
	step(StageDetecting)

	masks := mask.FromDetections(faces, p.config.Policy)
	step(StageMasking)

	composited := p.config.Renderer.CompositeAll(img, masks)
	step(StageCompositing)

	encoded, err := p.processor.Encode(composited, p.config.Encode)
	if err != nil {
		return nil, fail(StageEncoding, ErrEncode, err)
	}
	step(StageEncoding)

	format := processing.NormalizeFormat(p.config.Encode.Format)
	b := img.Bounds()
	entry := &session.ProcessedImage{
		ID:               session.NewID(),
		SourceName:       name,
		OutputName:       processing.OutputName(p.config.OutputPrefix, name, format),
		OutputFormat:     format,
		Original:         data,
		Output:           encoded,
		OriginalDataURI:  processing.DataURI(processing.SniffMimeType(data), data),
		ProcessedDataURI: processing.DataURI(processing.MimeType(format), encoded),
		Width:            b.Dx(),
		Height:           b.Dy(),
		FaceCount:        len(faces),
		MaskedCount:      len(masks),
		Masks:            masks,
	}
	p.config.Logger.Debug("file processed", "index", index, "file", name, "faces", len(faces), "masked", len(masks))
	return entry, nil
}

// Decode decodes the original bytes of an entry
func (p *Pipeline) Decode(entry *session.ProcessedImage) (image.Image, error) {
	img, err := p.processor.Decode(entry.Original)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageDecode, err)
	}
	return img, nil
}

// Recomposite renders masks over the entry's original image and returns an
// updated copy of the entry. It goes through the same decode, composite and
// encode steps as ProcessFile, so unchanged masks give identical output.
func (p *Pipeline) Recomposite(entry *session.ProcessedImage, masks []mask.Mask) (*session.ProcessedImage, error) {
	img, err := p.Decode(entry)
	if err != nil {
		return nil, err
	}

	composited := p.config.Renderer.CompositeAll(img, masks)
	opts := p.config.Encode
	opts.Format = entry.OutputFormat
	encoded, err := p.processor.Encode(composited, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncode, err)
	}

	out := entry.Clone()
	out.Masks = mask.CloneAll(masks)
	out.MaskedCount = len(masks)
	out.Output = encoded
	out.ProcessedDataURI = processing.DataURI(processing.MimeType(entry.OutputFormat), encoded)
	return out, nil
}

func (p *Pipeline) notify(n Notice) {
	p.config.Notifier.Notify(n)
}

func (p *Pipeline) report(pr Progress) {
	if pr.Total > 0 {
		pr.Overall = (pr.Index*100 + pr.FilePercent) / pr.Total
	}
	if p.config.Progress != nil {
		p.config.Progress(pr)
	}
}

func asFileError(err error, index int, name string) *FileError {
	if fe, ok := err.(*FileError); ok {
		return fe
	}
	return &FileError{Index: index, Name: name, Err: err}
}
