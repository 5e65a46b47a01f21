// Package export writes processed images to disk, one at a time or as a
// single zip archive.
//
// Files are written to a temporary file next to the target and moved into
// place once complete, so a failed export never leaves a partial file behind.
package export

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/menta2k/facemask/pkg/processing"
	"github.com/menta2k/facemask/pkg/session"
)

var (
	// ErrExport wraps every failure to produce an export file
	ErrExport = errors.New("export failed")
	// ErrNothingToExport is returned when there are no images to export
	ErrNothingToExport = errors.New("nothing to export")
)

// Defaults for export naming
const (
	DefaultArchiveFolder = "protected_photos"
	singlePrefix         = "protected_photo_"
	archivePrefix        = "protected_photos_"
)

// Config holds export configuration
type Config struct {
	// Dir is the directory exports are written to
	Dir string
	// ArchiveFolder is the folder inside the zip holding every image
	ArchiveFolder string
	// Now returns the current time; it names the exported files
	Now    func() time.Time
	Logger *slog.Logger
}

// Exporter writes export files
type Exporter struct {
	config Config
}

// New creates an exporter writing to dir
func New(dir string) *Exporter {
	return NewWithConfig(Config{Dir: dir})
}

// NewWithConfig creates an exporter with custom configuration
func NewWithConfig(config Config) *Exporter {
	if config.Dir == "" {
		config.Dir = "."
	}
	if config.ArchiveFolder == "" {
		config.ArchiveFolder = DefaultArchiveFolder
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Exporter{config: config}
}

// Dir returns the export directory
func (e *Exporter) Dir() string {
	return e.config.Dir
}

// SingleName returns the file name of a single image export
func SingleName(entry *session.ProcessedImage, now time.Time) string {
	return singlePrefix + strconv.FormatInt(now.UnixMilli(), 10) + "." + processing.NormalizeFormat(entry.OutputFormat)
}

// ArchiveName returns the file name of an archive export
func ArchiveName(now time.Time) string {
	return archivePrefix + now.Format(time.DateOnly) + ".zip"
}

// WriteSingle writes the processed bytes of one entry to w
func WriteSingle(w io.Writer, entry *session.ProcessedImage) error {
	if entry == nil || len(entry.Output) == 0 {
		return ErrNothingToExport
	}
	if _, err := w.Write(entry.Output); err != nil {
		return fmt.Errorf("%w: %v", ErrExport, err)
	}
	return nil
}

// WriteArchive writes a zip archive holding every entry under
// folder/<output name>. Entries sharing an output name are keyed by it, so
// the later one wins and keeps the position of the first.
func WriteArchive(w io.Writer, folder string, entries []*session.ProcessedImage) error {
	var order []string
	byName := make(map[string]*session.ProcessedImage)
	for _, entry := range entries {
		if entry == nil || len(entry.Output) == 0 {
			continue
		}
		if _, seen := byName[entry.OutputName]; !seen {
			order = append(order, entry.OutputName)
		}
		byName[entry.OutputName] = entry
	}
	if len(order) == 0 {
		return ErrNothingToExport
	}

	zw := zip.NewWriter(w)
	for _, name := range order {
		entry := byName[name]
		fw, err := zw.CreateHeader(&zip.FileHeader{
			Name:     path.Join(folder, filepath.Base(name)),
			Method:   zip.Store,
			Modified: time.Now(),
		})
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrExport, name, err)
		}
		if _, err := fw.Write(entry.Output); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrExport, name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrExport, err)
	}
	return nil
}

// SaveSingle writes one entry to the export directory and returns its path
func (e *Exporter) SaveSingle(entry *session.ProcessedImage) (string, error) {
	if entry == nil || len(entry.Output) == 0 {
		return "", ErrNothingToExport
	}
	name := SingleName(entry, e.config.Now())
	target, err := e.writeFile(name, func(w io.Writer) error {
		return WriteSingle(w, entry)
	})
	if err != nil {
		return "", err
	}
	e.config.Logger.Info("image exported", "file", entry.SourceName, "path", target, "bytes", len(entry.Output))
	return target, nil
}

// SaveNamed writes one entry to the export directory under its output name
// and returns its path. An existing file is never replaced: the name gets a
// _2, _3, ... suffix instead.
func (e *Exporter) SaveNamed(entry *session.ProcessedImage) (string, error) {
	if entry == nil || len(entry.Output) == 0 {
		return "", ErrNothingToExport
	}
	name := filepath.Base(entry.OutputName)
	if name == "." || name == ".." || name == string(filepath.Separator) {
		name = SingleName(entry, e.config.Now())
	}
	tmpPath, err := e.writeTemp(name, func(w io.Writer) error {
		return WriteSingle(w, entry)
	})
	if err != nil {
		return "", err
	}
	defer os.Remove(tmpPath)

	target, err := linkUnique(tmpPath, e.config.Dir, name)
	if err != nil {
		return "", err
	}
	e.config.Logger.Debug("image exported", "file", entry.SourceName, "path", target)
	return target, nil
}

// SaveArchive writes every entry into one zip archive in the export
// directory and returns its path
func (e *Exporter) SaveArchive(entries []*session.ProcessedImage) (string, error) {
	if len(entries) == 0 {
		return "", ErrNothingToExport
	}
	name := ArchiveName(e.config.Now())
	target, err := e.writeFile(name, func(w io.Writer) error {
		return WriteArchive(w, e.config.ArchiveFolder, entries)
	})
	if err != nil {
		return "", err
	}
	e.config.Logger.Info("archive exported", "path", target, "images", len(entries))
	return target, nil
}

// writeFile writes name in the export directory through a temporary file
func (e *Exporter) writeFile(name string, write func(io.Writer) error) (string, error) {
	tmpPath, err := e.writeTemp(name, write)
	if err != nil {
		return "", err
	}
	target := filepath.Join(e.config.Dir, name)
	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("%w: rename: %v", ErrExport, err)
	}
	return target, nil
}

// writeTemp writes a complete temporary file for name in the export
// directory and returns its path
func (e *Exporter) writeTemp(name string, write func(io.Writer) error) (string, error) {
	if err := os.MkdirAll(e.config.Dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: mkdir %s: %v", ErrExport, e.config.Dir, err)
	}

	tmp, err := os.CreateTemp(e.config.Dir, "."+name+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("%w: create temp: %v", ErrExport, err)
	}
	tmpPath := tmp.Name()

	if err := write(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		if errors.Is(err, ErrExport) || errors.Is(err, ErrNothingToExport) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", ErrExport, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("%w: close: %v", ErrExport, err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("%w: chmod: %v", ErrExport, err)
	}
	return tmpPath, nil
}

// maxNameAttempts bounds the suffixes tried by linkUnique
const maxNameAttempts = 10000

// linkUnique hard links tmpPath into dir under name, or name_N when name is
// taken. Linking fails on an existing target, so no file is ever replaced.
func linkUnique(tmpPath, dir, name string) (string, error) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 1; i <= maxNameAttempts; i++ {
		candidate := name
		if i > 1 {
			candidate = stem + "_" + strconv.Itoa(i) + ext
		}
		target := filepath.Join(dir, candidate)
		err := os.Link(tmpPath, target)
		if err == nil {
			return target, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("%w: link: %v", ErrExport, err)
		}
	}
	return "", fmt.Errorf("%w: no free name for %s", ErrExport, name)
}
