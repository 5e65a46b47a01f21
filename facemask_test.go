package facemask

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/menta2k/facemask/pkg/detection"
	"github.com/menta2k/facemask/pkg/editor"
	"github.com/menta2k/facemask/pkg/export"
	"github.com/menta2k/facemask/pkg/pipeline"
	"github.com/menta2k/facemask/pkg/types"
)

func createTestPNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 200, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png encode failed: %v", err)
	}
	return buf.Bytes()
}

func newTestApp(t *testing.T) (*App, *pipeline.Recorder) {
	t.Helper()
	faces := detection.Static{
		{Box: types.Box{X: 20, Y: 20, Width: 40, Height: 40}, Age: 6, Confidence: 0.9},
		{Box: types.Box{X: 100, Y: 30, Width: 50, Height: 50}, Age: 40, Confidence: 0.9},
	}
	rec := &pipeline.Recorder{}
	app := New(faces, Config{
		Notifier: rec,
		Export:   export.Config{Dir: t.TempDir()},
	})
	return app, rec
}

func processTwo(t *testing.T, app *App) {
	t.Helper()
	data := createTestPNG(t, 200, 120)
	result, err := app.ProcessSources(context.Background(), []pipeline.Source{
		pipeline.BytesSource{Filename: "a.png", Data: data},
		pipeline.BytesSource{Filename: "broken.png", Data: []byte("nope")},
		pipeline.BytesSource{Filename: "c.png", Data: data},
	})
	if err != nil {
		t.Fatalf("ProcessSources failed: %v", err)
	}
	if result.Processed != 2 || len(result.Failed) != 1 {
		t.Fatalf("Expected 2 processed and 1 failed, got %+v", result)
	}
}

func TestProcessSources(t *testing.T) {
	app, rec := newTestApp(t)
	processTwo(t, app)

	live := app.Store().Live()
	if live[0].SourceName != "a.png" || live[1].SourceName != "c.png" {
		t.Errorf("Unexpected store order %s, %s", live[0].SourceName, live[1].SourceName)
	}

	images, faces, masked := app.Counts()
	if images != 2 || faces != 4 || masked != 4 {
		t.Errorf("Expected 2/4/4, got %d/%d/%d", images, faces, masked)
	}

	var named bool
	for _, n := range rec.Notices() {
		if n.Level == pipeline.LevelError && n.Name == "broken.png" {
			named = true
		}
	}
	if !named {
		t.Error("Expected an error notice naming broken.png")
	}
}

func TestProcessFilesFromDisk(t *testing.T) {
	app, _ := newTestApp(t)
	path := filepath.Join(t.TempDir(), "disk.png")
	if err := os.WriteFile(path, createTestPNG(t, 80, 80), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := app.ProcessFiles(context.Background(), []string{path}); err != nil {
		t.Fatalf("ProcessFiles failed: %v", err)
	}
	entry, ok := app.Store().At(0)
	if !ok || entry.OutputName != "disk.png" {
		t.Errorf("Unexpected entry %+v", entry)
	}
}

func TestSingleEditor(t *testing.T) {
	app, _ := newTestApp(t)
	processTwo(t, app)

	if _, err := app.OpenEditor(5, 1); !errors.Is(err, editor.ErrNoSuchImage) {
		t.Errorf("Expected ErrNoSuchImage, got %v", err)
	}

	s, err := app.OpenEditor(0, 0.5)
	if err != nil {
		t.Fatalf("OpenEditor failed: %v", err)
	}
	if s.Scale() != 0.5 {
		t.Errorf("Expected display scale 0.5, got %f", s.Scale())
	}
	if _, err := app.OpenEditor(1, 1); !errors.Is(err, ErrEditorOpen) {
		t.Errorf("Expected ErrEditorOpen, got %v", err)
	}
	if app.Editor() != s {
		t.Error("Expected the open session")
	}

	s.Cancel()
	if app.Editor() != nil {
		t.Error("Expected no open session after cancel")
	}
	if _, err := app.OpenEditor(1, 1); err != nil {
		t.Errorf("Expected a new session after cancel, got %v", err)
	}
}

func TestEditorCommitUpdatesStore(t *testing.T) {
	app, _ := newTestApp(t)
	processTwo(t, app)

	s, err := app.OpenEditor(0, 1)
	if err != nil {
		t.Fatalf("OpenEditor failed: %v", err)
	}
	// Select the first mask and delete it
	if _, err := s.Dispatch(editor.Event{Kind: editor.EventPointerDown, Point: s.Masks()[0].Center}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Dispatch(editor.Event{Kind: editor.EventDeleteSelected}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	_, faces, masked := app.Counts()
	if faces != 4 || masked != 3 {
		t.Errorf("Expected 4 faces and 3 masked after edit, got %d and %d", faces, masked)
	}
}

func TestRemoveAndClear(t *testing.T) {
	app, _ := newTestApp(t)
	processTwo(t, app)

	if !app.Remove(0) {
		t.Fatal("Remove failed")
	}
	if entry, _ := app.Store().At(0); entry.SourceName != "c.png" {
		t.Errorf("Expected c.png to remain, got %s", entry.SourceName)
	}
	if app.Remove(7) {
		t.Error("Remove of a missing index should fail")
	}

	app.Clear()
	if images, _, _ := app.Counts(); images != 0 {
		t.Errorf("Expected empty store, got %d", images)
	}
}

func TestExport(t *testing.T) {
	app, rec := newTestApp(t)

	if _, err := app.ExportAll(); !errors.Is(err, export.ErrNothingToExport) {
		t.Errorf("Expected ErrNothingToExport, got %v", err)
	}
	notices := rec.Notices()
	if len(notices) != 1 || notices[0].Level != pipeline.LevelWarning {
		t.Errorf("Expected one warning notice, got %+v", notices)
	}

	processTwo(t, app)

	single, err := app.ExportSingle(1)
	if err != nil {
		t.Fatalf("ExportSingle failed: %v", err)
	}
	entry, _ := app.Store().At(1)
	data, _ := os.ReadFile(single)
	if !bytes.Equal(data, entry.Output) {
		t.Error("Exported bytes differ from the processed output")
	}

	archive, err := app.ExportAll()
	if err != nil {
		t.Fatalf("ExportAll failed: %v", err)
	}
	if filepath.Ext(archive) != ".zip" {
		t.Errorf("Expected a zip archive, got %s", archive)
	}

	if _, err := app.ExportSingle(9); !errors.Is(err, export.ErrNothingToExport) {
		t.Errorf("Expected ErrNothingToExport, got %v", err)
	}
}

func TestFitScale(t *testing.T) {
	tests := []struct {
		w, h, maxW, maxH int
		want             float64
	}{
		{4000, 3000, 800, 600, 0.2},
		{400, 300, 800, 600, 1},
		{1000, 2000, 800, 600, 0.3},
		{0, 100, 800, 600, 1},
	}
	for _, tt := range tests {
		if got := FitScale(tt.w, tt.h, tt.maxW, tt.maxH); got != tt.want {
			t.Errorf("FitScale(%d, %d, %d, %d) = %f, want %f", tt.w, tt.h, tt.maxW, tt.maxH, got, tt.want)
		}
	}
}
