package pipeline

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/menta2k/facemask/pkg/processing"
)

// Source supplies the bytes of one image
type Source interface {
	// Name identifies the image in notices and output names
	Name() string
	Read(ctx context.Context) ([]byte, error)
}

// FileSource reads an image from the local filesystem
type FileSource struct {
	Path string
}

func (s FileSource) Name() string { return filepath.Base(s.Path) }

func (s FileSource) Read(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}

// URLSource downloads an image over http or https
type URLSource struct {
	URL       string
	Processor *processing.Processor
}

func (s URLSource) Name() string {
	if u, err := url.Parse(s.URL); err == nil {
		if base := path.Base(u.Path); base != "" && base != "/" && base != "." {
			return base
		}
		if u.Host != "" {
			return u.Host
		}
	}
	return s.URL
}

func (s URLSource) Read(ctx context.Context) ([]byte, error) {
	p := s.Processor
	if p == nil {
		p = processing.NewProcessor()
	}
	return p.ReadURL(ctx, s.URL)
}

// BytesSource is an image already held in memory
type BytesSource struct {
	Filename string
	Data     []byte
}

func (s BytesSource) Name() string { return s.Filename }

func (s BytesSource) Read(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.Data, nil
}

// SourceFor returns a URLSource for http(s) URLs and a FileSource otherwise
func SourceFor(arg string, p *processing.Processor) Source {
	if strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://") {
		return URLSource{URL: arg, Processor: p}
	}
	return FileSource{Path: arg}
}
