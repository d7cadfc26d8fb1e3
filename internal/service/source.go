package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-geoview/internal/catalog"
)

// ErrInvalidName is returned for catalog sources that would resolve outside
// the sources directory.
var ErrInvalidName = errors.New("invalid source name")

// SourceService reads the GeoJSON files behind catalog layers from
// <data-dir>/sources.
type SourceService struct {
	sourcesDir string
	catalog    *catalog.Catalog
}

// NewSourceService creates a source service over dataDir.
func NewSourceService(dataDir string, c *catalog.Catalog) *SourceService {
	return &SourceService{
		sourcesDir: filepath.Join(dataDir, "sources"),
		catalog:    c,
	}
}

// List returns the GeoJSON files present in the sources directory, each
// tagged with the catalog layer that uses it.
func (s *SourceService) List() ([]SourceFile, error) {
	entries, err := os.ReadDir(s.sourcesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []SourceFile{}, nil
		}
		return nil, err
	}

	layerBySource := make(map[string]string)
	for _, ref := range s.catalog.Sources() {
		layerBySource[ref.Source] = ref.Name
	}

	files := []SourceFile{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".geojson", ".json":
		default:
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		files = append(files, SourceFile{
			Name:  entry.Name(),
			Size:  formatSize(info.Size()),
			Layer: layerBySource[entry.Name()],
		})
	}
	return files, nil
}

// Path resolves a layer name to its file, rejecting sources that are not
// local paths.
func (s *SourceService) Path(name string) (string, error) {
	e, err := s.catalog.Get(name)
	if err != nil {
		return "", err
	}
	if !filepath.IsLocal(e.Source) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, e.Source)
	}
	return filepath.Join(s.sourcesDir, e.Source), nil
}

// Read loads and parses the FeatureCollection of a layer.
func (s *SourceService) Read(ctx context.Context, name string) (*geojson.FeatureCollection, error) {
	path, err := s.Path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", filepath.Base(path), err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	return fc, nil
}

// Fetch makes SourceService a registry fetcher for in-process sessions.
func (s *SourceService) Fetch(ctx context.Context, name string) (*geojson.FeatureCollection, error) {
	return s.Read(ctx, name)
}

// SourcesDir returns the path to the sources directory.
func (s *SourceService) SourcesDir() string {
	return s.sourcesDir
}
