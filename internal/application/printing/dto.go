package printing

import (
	"regexp"
	"time"

	domain "github.com/mfirdausali/wif-fin-sub004/internal/domain/printing"
)

// RenderRequest is one document to render
type RenderRequest struct {
	DocumentType domain.DocType
	Document     domain.Document
	CompanyInfo  domain.CompanyInfo
	PrinterInfo  *domain.PrinterInfo
	// PageOptions overrides the default A4 layout when set
	PageOptions *domain.PageOptions
}

// RenderResult is a finished PDF artifact
type RenderResult struct {
	PDF              []byte
	Filename         string
	DocumentNumber   string
	EngineGeneration uint64
	SessionID        string
	Duration         time.Duration
}

// PreviewResult is the generated markup without pagination
type PreviewResult struct {
	HTML           string
	Footer         string
	DocumentNumber string
}

// DocumentTypeInfo describes one supported document type
type DocumentTypeInfo struct {
	Type        string `json:"type"`
	Slug        string `json:"slug"`
	PayloadKey  string `json:"payload_key"`
	DisplayName string `json:"display_name"`
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ArtifactFilename returns "<document-type>-<documentNumber>.pdf" with the
// number reduced to filename-safe characters
func ArtifactFilename(dt domain.DocType, number string) string {
	safe := unsafeFilenameChars.ReplaceAllString(number, "_")
	if safe == "" {
		safe = "document"
	}
	return dt.Slug() + "-" + safe + ".pdf"
}
