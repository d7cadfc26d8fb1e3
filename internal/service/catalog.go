package service

import "github.com/joeblew999/plat-geoview/internal/catalog"

// CatalogService is read-only access to the presentation table.
type CatalogService struct {
	catalog *catalog.Catalog
}

// NewCatalogService wraps c.
func NewCatalogService(c *catalog.Catalog) *CatalogService {
	return &CatalogService{catalog: c}
}

// List returns all entries in declaration order.
func (s *CatalogService) List() []catalog.Entry {
	return s.catalog.Entries()
}

// Get returns one entry or an error wrapping catalog.ErrNotFound.
func (s *CatalogService) Get(name string) (catalog.Entry, error) {
	return s.catalog.Get(name)
}

// Sources returns the ordered name → resource mapping.
func (s *CatalogService) Sources() []catalog.SourceRef {
	return s.catalog.Sources()
}

// Groups returns layer names keyed by "group/category".
func (s *CatalogService) Groups() map[string][]string {
	return s.catalog.Groups()
}

// Catalog returns the underlying catalog.
func (s *CatalogService) Catalog() *catalog.Catalog {
	return s.catalog
}
