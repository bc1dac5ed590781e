// Package ingest loads claim-form files for analysis and discovers them on disk.
package ingest

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/joseph-ayodele/claims-extractor/constants"
	"github.com/joseph-ayodele/claims-extractor/internal/common"
	"github.com/joseph-ayodele/claims-extractor/internal/ocr"
)

// Document is a loaded input file.
type Document struct {
	SourcePath string
	Name       string
	Ext        string
	Format     string // constants.PDF or constants.IMAGE
	Content    []byte
	HashHex    string
	PageCount  int
}

// File is the form sent to the layout analyzer.
func (d *Document) File() ocr.File {
	return ocr.File{Name: d.Name, ContentType: constants.ContentType(d.Ext), Content: d.Content}
}

// LoadFile reads path and pre-flights it. Unsupported extensions, empty
// files and unreadable PDFs are UnsupportedErrors.
func LoadFile(ctx context.Context, path string, logger *slog.Logger) (*Document, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !AllowedExt(filepath.Ext(path)) {
		return nil, common.NewUnsupportedError(fmt.Sprintf("unsupported file type %q", filepath.Ext(path)), nil)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	doc, err := FromBytes(filepath.Base(path), b)
	if err != nil {
		logger.Warn("ingest.load.rejected", "path", path, "error", err)
		return nil, err
	}
	doc.SourcePath = abs
	logger.Info("ingest.load.ok", "path", abs, "format", doc.Format, "pages", doc.PageCount, "size", len(b), "sha256", doc.HashHex)
	return doc, nil
}

// FromBytes builds a Document from uploaded content.
func FromBytes(name string, content []byte) (*Document, error) {
	ext := constants.NormalizeExt(filepath.Ext(name))
	format := constants.MapExtToFormat(ext)
	if format == "" {
		return nil, common.NewUnsupportedError(fmt.Sprintf("unsupported file type %q", filepath.Ext(name)), nil)
	}
	if len(content) == 0 {
		return nil, common.NewUnsupportedError("empty file", nil)
	}
	sum := sha256.Sum256(content)
	doc := &Document{
		SourcePath: name,
		Name:       filepath.Base(name),
		Ext:        ext,
		Format:     format,
		Content:    content,
		HashHex:    hex.EncodeToString(sum[:]),
		PageCount:  1,
	}
	if format == constants.PDF {
		n, err := api.PageCount(bytes.NewReader(content), nil)
		if err != nil {
			return nil, common.NewUnsupportedError("unreadable PDF", err)
		}
		doc.PageCount = n
	}
	return doc, nil
}
