// internal/capture/artifact.go

// Package capture turns a resolved console page into evidence files on disk:
// screenshots, pagination sweeps, date-filter overlays, and the metadata
// sidecars auditors need to trust them.
package capture

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	json "github.com/json-iterator/go"

	"github.com/veritas9k/consnap-cli/internal/console"
)

// Artifact records one evidence file and the context it was captured in.
// A JSON sidecar with the same fields sits next to every screenshot so the
// provenance survives the file being moved around.
type Artifact struct {
	FilePath   string    `json:"file_path"`
	Service    string    `json:"service"`
	Resource   string    `json:"resource"`
	Region     string    `json:"region"`
	Tab        string    `json:"tab,omitempty"`
	RFICode    string    `json:"rfi_code,omitempty"`
	CapturedAt time.Time `json:"captured_at"`
	PageIndex  int       `json:"page_index,omitempty"`
	PageCount  int       `json:"page_count,omitempty"`
	Filter     string    `json:"filter,omitempty"`
	NavTier    string    `json:"navigation_tier,omitempty"`
}

// SidecarPath is the metadata file written next to the screenshot.
func (a *Artifact) SidecarPath() string {
	return a.FilePath + ".json"
}

// WriteSidecar persists the artifact metadata next to its screenshot.
func (a *Artifact) WriteSidecar() error {
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal artifact metadata: %w", err)
	}
	if err := os.WriteFile(a.SidecarPath(), data, 0o644); err != nil {
		return fmt.Errorf("failed to write artifact sidecar: %w", err)
	}
	return nil
}

// sanitizeToken strips anything that does not belong in a filename fragment.
func sanitizeToken(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '_':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '/', r == ':':
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), "-")
}

// fileName builds the evidence filename for one page of a capture:
//
//	<service>_<resource>_<region>[_<tab>][_<rfi>]_<UTC timestamp>[_pN].png
func fileName(t console.Target, rfiCode string, capturedAt time.Time, pageIndex, pageCount int) string {
	parts := []string{
		sanitizeToken(t.Service),
		sanitizeToken(t.Resource),
		sanitizeToken(t.Region),
	}
	if t.Tab != "" {
		parts = append(parts, sanitizeToken(t.Tab))
	}
	if rfiCode != "" {
		parts = append(parts, sanitizeToken(rfiCode))
	}
	parts = append(parts, capturedAt.UTC().Format("20060102T150405Z"))
	if pageCount > 1 {
		parts = append(parts, fmt.Sprintf("p%d", pageIndex))
	}
	return strings.Join(parts, "_") + ".png"
}

// writeArtifact writes the screenshot bytes and the sidecar, returning the
// populated artifact record.
func writeArtifact(dir string, t console.Target, tier string, rfiCode, filterDesc string, capturedAt time.Time, pageIndex, pageCount int, png []byte) (*Artifact, error) {
	path := filepath.Join(dir, fileName(t, rfiCode, capturedAt, pageIndex, pageCount))
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write screenshot %s: %w", path, err)
	}
	art := &Artifact{
		FilePath:   path,
		Service:    t.Service,
		Resource:   t.Resource,
		Region:     t.Region,
		Tab:        t.Tab,
		RFICode:    rfiCode,
		CapturedAt: capturedAt.UTC(),
		PageIndex:  pageIndex,
		PageCount:  pageCount,
		Filter:     filterDesc,
		NavTier:    tier,
	}
	if err := art.WriteSidecar(); err != nil {
		return nil, err
	}
	return art, nil
}
