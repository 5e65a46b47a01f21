package detection

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/disintegration/imaging"
	pigo "github.com/esimov/pigo/core"

	"github.com/menta2k/facemask/pkg/geometry"
	"github.com/menta2k/facemask/pkg/types"
)

// PigoConfig configures a PigoDetector
type PigoConfig struct {
	// CascadePath is the pigo face finder cascade file
	CascadePath string
	// PuplocPath is the optional pupil localization cascade. Without it faces
	// carry no eye landmarks and masks are not rotated.
	PuplocPath  string
	MinSize     int
	MaxSize     int
	ShiftFactor float64
	ScaleFactor float64
	// IoUThreshold is used to cluster overlapping detections
	IoUThreshold float64
	// MinQuality drops detections with a lower cascade score
	MinQuality float32
	Logger     *slog.Logger
}

// PigoDetector finds faces with the pigo pixel intensity cascade. It runs
// fully in process but does not estimate age: every face reports age 0.
type PigoDetector struct {
	config     PigoConfig
	classifier *pigo.Pigo
	puploc     *pigo.PuplocCascade
	ready      atomic.Bool
}

// NewPigoDetector creates an unloaded pigo detector
func NewPigoDetector(config PigoConfig) *PigoDetector {
	if config.MinSize <= 0 {
		config.MinSize = 20
	}
	if config.MaxSize <= 0 {
		config.MaxSize = 1000
	}
	if config.ShiftFactor <= 0 {
		config.ShiftFactor = 0.1
	}
	if config.ScaleFactor <= 0 {
		config.ScaleFactor = 1.1
	}
	if config.IoUThreshold <= 0 {
		config.IoUThreshold = 0.2
	}
	if config.MinQuality <= 0 {
		config.MinQuality = 5
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &PigoDetector{config: config}
}

// Load reads and unpacks the cascade files
func (d *PigoDetector) Load(ctx context.Context) error {
	data, err := os.ReadFile(d.config.CascadePath)
	if err != nil {
		return fmt.Errorf("failed to read cascade file: %w", err)
	}
	classifier, err := pigo.NewPigo().Unpack(data)
	if err != nil {
		return fmt.Errorf("failed to unpack cascade: %w", err)
	}
	d.classifier = classifier

	if d.config.PuplocPath != "" {
		data, err := os.ReadFile(d.config.PuplocPath)
		if err != nil {
			return fmt.Errorf("failed to read puploc cascade: %w", err)
		}
		plc, err := pigo.NewPuplocCascade().UnpackCascade(data)
		if err != nil {
			return fmt.Errorf("failed to unpack puploc cascade: %w", err)
		}
		d.puploc = plc
	}

	d.ready.Store(true)
	d.config.Logger.Debug("pigo detector ready", "min_size", d.config.MinSize, "landmarks", d.puploc != nil)
	return nil
}

// Ready reports whether Load succeeded
func (d *PigoDetector) Ready() bool {
	return d.ready.Load()
}

// Detect returns the faces in img in pixel coordinates. MinConfidence is not
// applied: cascade scores are filtered by MinQuality instead.
func (d *PigoDetector) Detect(ctx context.Context, img image.Image, opts types.DetectOptions) ([]types.FaceDetection, error) {
	if !d.Ready() {
		return nil, ErrNotLoaded
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b := img.Bounds()
	scale := 1.0
	work := img
	if w, h := sentSize(b.Dx(), b.Dy(), opts.InputSize); w != b.Dx() || h != b.Dy() {
		work = imaging.Resize(img, w, h, imaging.Lanczos)
		scale = float64(b.Dx()) / float64(w)
	}

	wb := work.Bounds()
	params := pigo.ImageParams{
		Pixels: grayscale(work),
		Rows:   wb.Dy(),
		Cols:   wb.Dx(),
		Dim:    wb.Dx(),
	}
	cParams := pigo.CascadeParams{
		MinSize:     d.config.MinSize,
		MaxSize:     d.config.MaxSize,
		ShiftFactor: d.config.ShiftFactor,
		ScaleFactor: d.config.ScaleFactor,
		ImageParams: params,
	}

	dets := d.classifier.RunCascade(cParams, 0.0)
	dets = d.classifier.ClusterDetections(dets, d.config.IoUThreshold)

	origin := geometry.Point{X: float64(b.Min.X), Y: float64(b.Min.Y)}
	faces := make([]types.FaceDetection, 0, len(dets))
	for _, det := range dets {
		if det.Q < d.config.MinQuality {
			continue
		}

		// Row and Col are the face center, Scale its diameter
		size := float64(det.Scale) * scale
		face := types.FaceDetection{
			Box: types.Box{
				X:      origin.X + float64(det.Col)*scale - size/2,
				Y:      origin.Y + float64(det.Row)*scale - size/2,
				Width:  size,
				Height: size,
			},
			Confidence: clamp(float64(det.Q)/100, 0, 1),
		}
		if lm, ok := d.eyes(det, params); ok {
			for i := range lm.LeftEye {
				lm.LeftEye[i] = lm.LeftEye[i].Scale(scale).Add(origin)
			}
			for i := range lm.RightEye {
				lm.RightEye[i] = lm.RightEye[i].Scale(scale).Add(origin)
			}
			face.Landmarks = lm
		}
		faces = append(faces, face)
	}

	d.config.Logger.Debug("pigo detection", "candidates", len(dets), "faces", len(faces))
	return faces, nil
}

// eyes localizes both pupils of a detection in work image coordinates
func (d *PigoDetector) eyes(det pigo.Detection, params pigo.ImageParams) (*types.Landmarks, bool) {
	if d.puploc == nil {
		return nil, false
	}

	s := float32(det.Scale)
	left := d.puploc.RunDetector(pigo.Puploc{
		Row:      det.Row - int(0.075*s),
		Col:      det.Col - int(0.175*s),
		Scale:    s * 0.25,
		Perturbs: 63,
	}, params, 0.0, false)
	right := d.puploc.RunDetector(pigo.Puploc{
		Row:      det.Row - int(0.075*s),
		Col:      det.Col + int(0.185*s),
		Scale:    s * 0.25,
		Perturbs: 63,
	}, params, 0.0, false)

	if left == nil || right == nil || left.Row <= 0 || left.Col <= 0 || right.Row <= 0 || right.Col <= 0 {
		return nil, false
	}
	return &types.Landmarks{
		LeftEye:  []geometry.Point{{X: float64(left.Col), Y: float64(left.Row)}},
		RightEye: []geometry.Point{{X: float64(right.Col), Y: float64(right.Row)}},
	}, true
}

// grayscale returns the luma of img as a row-major byte slice
func grayscale(img image.Image) []uint8 {
	gray := imaging.Grayscale(img)
	w, h := gray.Bounds().Dx(), gray.Bounds().Dy()
	pixels := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		row := gray.Pix[y*gray.Stride:]
		for x := 0; x < w; x++ {
			pixels[y*w+x] = row[x*4]
		}
	}
	return pixels
}
