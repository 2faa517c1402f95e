// Package export renders asset versions as controlled PDF documents.
package export

import (
	"errors"
	"time"
)

// Format represents the export output format
type Format string

const (
	FormatPDF Format = "pdf"
)

// Request contains parameters for an export operation
type Request struct {
	AssetID        string
	Format         Format
	IncludeHistory bool
}

// Result contains the export output
type Result struct {
	Data     []byte
	Filename string
	MimeType string
}

// AssetInfo holds the asset version metadata the renderer needs.
type AssetInfo struct {
	ID            string
	AssetUID      string
	ProjectID     string
	Type          string
	Subtype       string
	Version       int
	ApprovalState string
	RevisionCode  string
	Content       []byte
	UpdatedBy     string
	UpdatedAt     time.Time
}

// ProjectInfo holds project metadata for the document header.
type ProjectInfo struct {
	ID   string
	Name string
	Code string
}

// VersionInfo is one row of the revision history table.
type VersionInfo struct {
	Version       int
	RevisionCode  string
	ApprovalState string
	ChangeLog     string
	UpdatedBy     string
	UpdatedAt     time.Time
}

var (
	// ErrContentUnavailable indicates asset content could not be loaded for export.
	ErrContentUnavailable = errors.New("export content unavailable")
	// ErrPDFDependencyMissing indicates PDF export runtime dependencies are unavailable.
	ErrPDFDependencyMissing = errors.New("export pdf dependency missing")
)
