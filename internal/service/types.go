// Package service exposes the layer catalog and the GeoJSON files behind it
// to the HTTP handlers and viewer sessions.
package service

import "fmt"

// SourceFile is a GeoJSON file in the sources directory.
type SourceFile struct {
	Name  string `json:"name" doc:"File name" example:"US_hy.geojson"`
	Size  string `json:"size" doc:"Human-readable file size" example:"1.2 MB"`
	Layer string `json:"layer,omitempty" doc:"Catalog layer backed by this file" example:"Hydrogen Stations"`
}

// formatSize returns a human-readable file size.
func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
